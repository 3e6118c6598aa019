package vault

import (
	"context"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/holiman/uint256"

	"github.com/congo-pay/custody-vault/internal/ledger"
	"github.com/congo-pay/custody-vault/internal/token"
)

// Executor runs a function as one committed transaction.
type Executor interface {
	Execute(ctx context.Context, clientTxID string, fn func(ctx context.Context) error) (ledger.Receipt, error)
}

// Handler exposes vault endpoints. The caller is the account bound to the
// authenticated session.
type Handler struct {
	vault *Vault
	exec  Executor
}

// NewHandler constructs a vault handler.
func NewHandler(v *Vault, exec Executor) *Handler {
	return &Handler{vault: v, exec: exec}
}

type depositRequest struct {
	Asset      string `json:"asset"`
	Amount     string `json:"amount"`
	Value      string `json:"value"`
	ClientTxID string `json:"client_tx_id"`
}

type withdrawRequest struct {
	Asset      string `json:"asset"`
	Amount     string `json:"amount"`
	ClientTxID string `json:"client_tx_id"`
}

type amountRequest struct {
	Amount     string `json:"amount"`
	ClientTxID string `json:"client_tx_id"`
}

type transferRequest struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Amount     string `json:"amount"`
	ClientTxID string `json:"client_tx_id"`
}

type approveRequest struct {
	Spender    string `json:"spender"`
	Amount     string `json:"amount"`
	ClientTxID string `json:"client_tx_id"`
}

// Deposit moves native coin or tokens from the caller into custody.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	caller, err := callerAccount(c)
	if err != nil {
		return err
	}
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	id, err := parseAsset(req.Asset)
	if err != nil {
		return err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return err
	}
	value := new(uint256.Int)
	if req.Value != "" {
		if value, err = parseAmount(req.Value); err != nil {
			return err
		}
	}
	return h.execute(c, req.ClientTxID, func(ctx context.Context) error {
		return h.vault.Deposit(ctx, caller, id, amount, value)
	})
}

// Withdraw pays custody funds back to the caller.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	caller, err := callerAccount(c)
	if err != nil {
		return err
	}
	var req withdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	id, err := parseAsset(req.Asset)
	if err != nil {
		return err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return err
	}
	return h.execute(c, req.ClientTxID, func(ctx context.Context) error {
		return h.vault.Withdraw(ctx, caller, id, amount)
	})
}

// Wrap converts native deposits into wrapped units.
func (h *Handler) Wrap(c *fiber.Ctx) error {
	return h.amountOp(c, h.vault.Wrap)
}

// Unwrap converts wrapped units back into native deposits.
func (h *Handler) Unwrap(c *fiber.Ctx) error {
	return h.amountOp(c, h.vault.Unwrap)
}

func (h *Handler) amountOp(c *fiber.Ctx, op func(context.Context, common.Address, *uint256.Int) error) error {
	caller, err := callerAccount(c)
	if err != nil {
		return err
	}
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return err
	}
	return h.execute(c, req.ClientTxID, func(ctx context.Context) error {
		return op(ctx, caller, amount)
	})
}

// Deposits reports an account's custody balances. Without an asset query
// parameter only the native coin ledger is returned.
func (h *Handler) Deposits(c *fiber.Ctx) error {
	account, err := parseAccount(c.Params("account"))
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	res := fiber.Map{
		"account": account.Hex(),
		"native":  h.vault.NativeCoinDeposits(ctx, account).Dec(),
	}
	if raw := c.Query("asset"); raw != "" {
		id, err := parseAsset(raw)
		if err != nil {
			return err
		}
		res["asset"] = id.Hex()
		res["token"] = h.vault.TokenDeposits(ctx, account, id).Dec()
	}
	return c.Status(http.StatusOK).JSON(res)
}

// Wrapped describes the wrapped asset.
func (h *Handler) Wrapped(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"address":      h.vault.Address().Hex(),
		"name":         h.vault.Name(),
		"symbol":       h.vault.Symbol(),
		"decimals":     h.vault.Decimals(),
		"total_supply": h.vault.TotalSupply(c.UserContext()).Dec(),
	})
}

// WrappedBalance returns an account's wrapped balance.
func (h *Handler) WrappedBalance(c *fiber.Ctx) error {
	account, err := parseAccount(c.Params("account"))
	if err != nil {
		return err
	}
	bal, err := h.vault.BalanceOf(c.UserContext(), account)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"account": account.Hex(), "balance": bal.Dec()})
}

// WrappedAllowance returns what spender may move for owner.
func (h *Handler) WrappedAllowance(c *fiber.Ctx) error {
	owner, err := parseAccount(c.Params("owner"))
	if err != nil {
		return err
	}
	spender, err := parseAccount(c.Params("spender"))
	if err != nil {
		return err
	}
	allowance, err := h.vault.Allowance(c.UserContext(), owner, spender)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"owner":     owner.Hex(),
		"spender":   spender.Hex(),
		"allowance": allowance.Dec(),
	})
}

// Transfer moves the caller's wrapped units. With a from field it spends an
// allowance instead.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	caller, err := callerAccount(c)
	if err != nil {
		return err
	}
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	to, err := parseAccount(req.To)
	if err != nil {
		return err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return err
	}
	if req.From == "" {
		return h.execute(c, req.ClientTxID, func(ctx context.Context) error {
			_, err := h.vault.Transfer(ctx, caller, to, amount)
			return err
		})
	}
	from, err := parseAccount(req.From)
	if err != nil {
		return err
	}
	return h.execute(c, req.ClientTxID, func(ctx context.Context) error {
		_, err := h.vault.TransferFrom(ctx, caller, from, to, amount)
		return err
	})
}

// Approve sets a spender allowance over the caller's wrapped units.
func (h *Handler) Approve(c *fiber.Ctx) error {
	caller, err := callerAccount(c)
	if err != nil {
		return err
	}
	var req approveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	spender, err := parseAccount(req.Spender)
	if err != nil {
		return err
	}
	amount := token.Unlimited()
	if req.Amount != "max" {
		if amount, err = parseAmount(req.Amount); err != nil {
			return err
		}
	}
	return h.execute(c, req.ClientTxID, func(ctx context.Context) error {
		_, err := h.vault.Approve(ctx, caller, spender, amount)
		return err
	})
}

// Audit reports whether custody covers every ledger.
func (h *Handler) Audit(c *fiber.Ctx) error {
	var assets []common.Address
	for _, raw := range c.Context().QueryArgs().PeekMulti("asset") {
		id, err := parseAsset(string(raw))
		if err != nil {
			return err
		}
		assets = append(assets, id)
	}
	report, err := h.vault.Audit(c.UserContext(), assets...)
	if err != nil {
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}
	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusConflict
	}
	return c.Status(status).JSON(report)
}

func (h *Handler) execute(c *fiber.Ctx, clientTxID string, fn func(ctx context.Context) error) error {
	receipt, err := h.exec.Execute(c.UserContext(), clientTxID, fn)
	if err != nil {
		return errorStatus(err)
	}
	return c.Status(http.StatusCreated).JSON(receipt)
}

func errorStatus(err error) error {
	switch {
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		return fiber.NewError(http.StatusConflict, "duplicate transaction")
	case errors.Is(err, ErrTransferFailed):
		// Wraps the token's own revert cause, so it must win over the token cases.
		return fiber.NewError(http.StatusBadGateway, err.Error())
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrAmountMismatch):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrInsufficientAllowance),
		errors.Is(err, token.ErrInvalidRecipient):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrReentrantCall), errors.Is(err, ErrBalanceOverflow):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

func callerAccount(c *fiber.Ctx) (common.Address, error) {
	raw, _ := c.Locals("account").(string)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fiber.NewError(http.StatusUnauthorized, "no account bound to session")
	}
	return common.HexToAddress(raw), nil
}

func parseAccount(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fiber.NewError(http.StatusBadRequest, "invalid account address")
	}
	return common.HexToAddress(raw), nil
}

// parseAsset accepts a token address or "native" for the native coin.
func parseAsset(raw string) (common.Address, error) {
	if raw == "" || raw == "native" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fiber.NewError(http.StatusBadRequest, "invalid asset address")
	}
	return common.HexToAddress(raw), nil
}

func parseAmount(raw string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, fiber.NewError(http.StatusBadRequest, "amount must be a base-unit integer")
	}
	return v, nil
}
