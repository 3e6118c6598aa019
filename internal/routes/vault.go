package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/custody-vault/internal/vault"
)

// RegisterVaultQueryRoutes wires the public read side of the custody ledger
// and wrapped asset.
func RegisterVaultQueryRoutes(r fiber.Router, h *vault.Handler) {
	r.Get("/vault/deposits/:account", h.Deposits)
	r.Get("/vault/wrapped", h.Wrapped)
	r.Get("/vault/wrapped/balance/:account", h.WrappedBalance)
	r.Get("/vault/wrapped/allowance/:owner/:spender", h.WrappedAllowance)
	r.Get("/vault/audit", h.Audit)
}

// RegisterVaultRoutes wires vault writes, which act for the session account.
func RegisterVaultRoutes(r fiber.Router, h *vault.Handler) {
	r.Post("/vault/deposit", h.Deposit)
	r.Post("/vault/withdraw", h.Withdraw)
	r.Post("/vault/wrap", h.Wrap)
	r.Post("/vault/unwrap", h.Unwrap)
	r.Post("/vault/wrapped/transfer", h.Transfer)
	r.Post("/vault/wrapped/approve", h.Approve)
}
