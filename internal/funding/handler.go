package funding

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/custody-vault/internal/chain"
	"github.com/congo-pay/custody-vault/internal/ledger"
	"github.com/congo-pay/custody-vault/internal/units"
	"github.com/congo-pay/custody-vault/internal/wallet"
)

// Handler exposes HTTP endpoints for card funding flows.
type Handler struct {
	service *Service
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CardIn processes wallet top-ups funded by cards.
func (h *Handler) CardIn(c *fiber.Ctx) error {
	var req CardInRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.authorize(c); err != nil {
		return err
	}

	result, err := h.service.CardIn(c.UserContext(), CardInInput{
		WalletID:   c.Params("walletId"),
		Amount:     req.Amount,
		ClientTxID: req.ClientTxID,
		CardNumber: req.CardNumber,
		Expiry:     req.Expiry,
		CVV:        req.CVV,
	})
	return h.respond(c, result, err)
}

// CardOut processes wallet withdrawals to cards.
func (h *Handler) CardOut(c *fiber.Ctx) error {
	var req CardOutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.authorize(c); err != nil {
		return err
	}

	result, err := h.service.CardOut(c.UserContext(), CardOutInput{
		WalletID:   c.Params("walletId"),
		Amount:     req.Amount,
		ClientTxID: req.ClientTxID,
		CardNumber: req.CardNumber,
	})
	return h.respond(c, result, err)
}

// authorize checks the wallet belongs to the session user.
func (h *Handler) authorize(c *fiber.Ctx) error {
	w, err := h.service.wallets.Get(c.UserContext(), c.Params("walletId"))
	if err != nil {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	if uid, _ := c.Locals("user_id").(string); uid != w.OwnerID {
		return fiber.NewError(http.StatusForbidden, "wallet belongs to another user")
	}
	return nil
}

func (h *Handler) respond(c *fiber.Ctx, result FundingResult, err error) error {
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrDuplicateTransaction):
			return c.Status(http.StatusOK).JSON(h.toResponse(result))
		case errors.Is(err, wallet.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, chain.ErrInsufficientFunds):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, ErrDeclined):
			return fiber.NewError(http.StatusPaymentRequired, err.Error())
		case errors.Is(err, chain.ErrBalanceOverflow):
			return fiber.NewError(http.StatusConflict, err.Error())
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(h.toResponse(result))
}

func (h *Handler) toResponse(result FundingResult) FundingResponse {
	return FundingResponse{
		TransactionID:     result.TransactionID,
		ClientTxID:        result.ClientTxID,
		Status:            result.Status,
		Balance:           units.Format(result.Balance, h.service.decimals),
		AcquirerReference: result.AcquirerReference,
	}
}
