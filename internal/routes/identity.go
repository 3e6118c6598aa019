package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/custody-vault/internal/identity"
	"github.com/congo-pay/custody-vault/internal/wallet"
)

// RegisterIdentityRoutes wires identity endpoints and auto‑provisions a wallet
// bound to the new user's ledger account on registration.
func RegisterIdentityRoutes(r fiber.Router, ids *identity.Service, h *identity.Handler, wallets *wallet.Service, logger *slog.Logger) {
	r.Post("/identity/register", func(c *fiber.Ctx) error {
		var req struct {
			Phone    string `json:"phone"`
			PIN      string `json:"pin"`
			DeviceID string `json:"device_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		user, err := ids.Register(c.UserContext(), identity.Credentials{Phone: req.Phone, PIN: req.PIN, DeviceID: req.DeviceID})
		if err != nil {
			if errors.Is(err, identity.ErrExists) {
				return fiber.NewError(http.StatusConflict, err.Error())
			}
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		w, err := wallets.Create(c.UserContext(), wallet.CreateInput{OwnerID: user.ID, Account: user.Address})
		if err != nil {
			logger.Error("wallet provisioning failed", slog.String("user_id", user.ID), slog.Any("error", err))
			return fiber.NewError(http.StatusInternalServerError, "wallet provisioning failed")
		}
		logger.Info("identity.register completed",
			slog.String("user_id", user.ID),
			slog.String("account", user.Address.Hex()),
			slog.String("wallet_id", w.ID),
		)
		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"user_id":   user.ID,
			"phone":     user.Phone,
			"tier":      user.Tier,
			"device_id": user.DeviceID,
			"account":   user.Address.Hex(),
			"wallet_id": w.ID,
		})
	})

	// Plain authenticate (no tokens) remains for compatibility
	r.Post("/identity/authenticate", h.Authenticate)
}
