package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/custody-vault/internal/token"
)

// RegisterTokenQueryRoutes wires the token listing and read endpoints.
func RegisterTokenQueryRoutes(r fiber.Router, h *token.Handler, listed map[string]string) {
	r.Get("/tokens", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(listed)
	})
	r.Get("/tokens/:token/balance/:account", h.Balance)
	r.Get("/tokens/:token/allowance/:owner/:spender", h.Allowance)
}

// RegisterTokenRoutes wires token writes. Deploying and minting are only
// exposed outside production.
func RegisterTokenRoutes(r fiber.Router, h *token.Handler, allowDeploy bool) {
	r.Post("/tokens/:token/transfer", h.Transfer)
	r.Post("/tokens/:token/approve", h.Approve)
	if allowDeploy {
		r.Post("/tokens", h.Deploy)
		r.Post("/tokens/:token/mint", h.Mint)
	}
}
