package wallet

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/custody-vault/internal/units"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service  *Service
	decimals uint8
}

// NewHandler builds a wallet HTTP handler. Balances are rendered with the
// native coin's decimals.
func NewHandler(service *Service, decimals uint8) *Handler {
	return &Handler{service: service, decimals: decimals}
}

type walletResponse struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Account string `json:"account"`
	Status  string `json:"status"`
}

// Create provisions a wallet for the authenticated owner.
func (h *Handler) Create(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	acct, _ := c.Locals("account").(string)
	if uid == "" || !common.IsHexAddress(acct) {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	wallet, err := h.service.Create(c.UserContext(), CreateInput{OwnerID: uid, Account: common.HexToAddress(acct)})
	if err != nil {
		if errors.Is(err, ErrExists) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(walletResponse{
		ID:      wallet.ID,
		OwnerID: wallet.OwnerID,
		Account: wallet.Account.Hex(),
		Status:  wallet.Status,
	})
}

// Balance returns the wallet overview.
func (h *Handler) Balance(c *fiber.Ctx) error {
	walletID := c.Params("walletId")
	wallet, err := h.service.Get(c.UserContext(), walletID)
	if err != nil {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	if uid, _ := c.Locals("user_id").(string); uid != wallet.OwnerID {
		return fiber.NewError(http.StatusForbidden, "wallet belongs to another user")
	}
	ov, err := h.service.Overview(c.UserContext(), walletID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(h.Render(ov))
}

// Render formats an overview for clients.
func (h *Handler) Render(ov Overview) fiber.Map {
	return fiber.Map{
		"wallet_id": ov.WalletID,
		"account":   ov.Account.Hex(),
		"native":    units.Format(ov.Native, h.decimals),
		"deposited": units.Format(ov.Deposited, h.decimals),
		"wrapped":   units.Format(ov.Wrapped, h.decimals),
		"timestamp": ov.AsOf,
	}
}
