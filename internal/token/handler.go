package token

import (
	"context"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/holiman/uint256"

	"github.com/congo-pay/custody-vault/internal/ledger"
	"github.com/congo-pay/custody-vault/internal/state"
)

// Host deploys contracts and runs transactions.
type Host interface {
	state.Backend
	Deploy(deployer common.Address, build func(addr common.Address) any) (common.Address, error)
	Contract(addr common.Address) (any, bool)
	Execute(ctx context.Context, clientTxID string, fn func(ctx context.Context) error) (ledger.Receipt, error)
}

// Handler exposes token endpoints for funding test and dev environments.
type Handler struct {
	host Host
}

// NewHandler constructs a token handler.
func NewHandler(host Host) *Handler {
	return &Handler{host: host}
}

type deployRequest struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

type moveRequest struct {
	To         string `json:"to"`
	Spender    string `json:"spender"`
	Amount     string `json:"amount"`
	ClientTxID string `json:"client_tx_id"`
}

// Deploy creates a token minted by the caller. Such tokens live only as long
// as the process: after a restart their balances stay in the ledger but no
// contract answers at the address.
func (h *Handler) Deploy(c *fiber.Ctx) error {
	caller, err := sessionAccount(c)
	if err != nil {
		return err
	}
	var req deployRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Symbol == "" {
		return fiber.NewError(http.StatusBadRequest, "symbol is required")
	}
	addr, err := h.host.Deploy(caller, func(addr common.Address) any {
		return New(h.host, addr, Metadata{Name: req.Name, Symbol: req.Symbol, Decimals: req.Decimals}, caller)
	})
	if err != nil {
		return fiber.NewError(http.StatusConflict, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"address":  addr.Hex(),
		"name":     req.Name,
		"symbol":   req.Symbol,
		"decimals": req.Decimals,
		"minter":   caller.Hex(),
	})
}

// Mint creates tokens. Only the minter may call it.
func (h *Handler) Mint(c *fiber.Ctx) error {
	return h.move(c, func(ctx context.Context, tok *ERC20, caller common.Address, req moveRequest, amount *uint256.Int) error {
		to, err := address(req.To)
		if err != nil {
			return err
		}
		return tok.Mint(ctx, caller, to, amount)
	})
}

// Transfer moves the caller's tokens.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	return h.move(c, func(ctx context.Context, tok *ERC20, caller common.Address, req moveRequest, amount *uint256.Int) error {
		to, err := address(req.To)
		if err != nil {
			return err
		}
		_, err = tok.Transfer(ctx, caller, to, amount)
		return err
	})
}

// Approve sets a spender allowance over the caller's tokens.
func (h *Handler) Approve(c *fiber.Ctx) error {
	return h.move(c, func(ctx context.Context, tok *ERC20, caller common.Address, req moveRequest, amount *uint256.Int) error {
		spender, err := address(req.Spender)
		if err != nil {
			return err
		}
		_, err = tok.Approve(ctx, caller, spender, amount)
		return err
	})
}

// Balance returns an account's token balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	tok, err := h.lookup(c.Params("token"))
	if err != nil {
		return err
	}
	account, err := address(c.Params("account"))
	if err != nil {
		return err
	}
	bal, _ := tok.BalanceOf(c.UserContext(), account)
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"token":   tok.Address().Hex(),
		"symbol":  tok.Symbol(),
		"account": account.Hex(),
		"balance": bal.Dec(),
	})
}

// Allowance returns what spender may move for owner.
func (h *Handler) Allowance(c *fiber.Ctx) error {
	tok, err := h.lookup(c.Params("token"))
	if err != nil {
		return err
	}
	owner, err := address(c.Params("owner"))
	if err != nil {
		return err
	}
	spender, err := address(c.Params("spender"))
	if err != nil {
		return err
	}
	allowance, _ := tok.Allowance(c.UserContext(), owner, spender)
	return c.Status(http.StatusOK).JSON(fiber.Map{"allowance": allowance.Dec()})
}

func (h *Handler) move(c *fiber.Ctx, fn func(ctx context.Context, tok *ERC20, caller common.Address, req moveRequest, amount *uint256.Int) error) error {
	caller, err := sessionAccount(c)
	if err != nil {
		return err
	}
	tok, err := h.lookup(c.Params("token"))
	if err != nil {
		return err
	}
	var req moveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := uint256.FromDecimal(req.Amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "amount must be a base-unit integer")
	}
	receipt, err := h.host.Execute(c.UserContext(), req.ClientTxID, func(ctx context.Context) error {
		return fn(ctx, tok, caller, req, amount)
	})
	if err != nil {
		var fe *fiber.Error
		switch {
		case errors.As(err, &fe):
			return fe
		case errors.Is(err, ledger.ErrDuplicateTransaction):
			return fiber.NewError(http.StatusConflict, "duplicate transaction")
		case errors.Is(err, ErrUnauthorized):
			return fiber.NewError(http.StatusForbidden, err.Error())
		case errors.Is(err, ErrInsufficientBalance), errors.Is(err, ErrInvalidRecipient), errors.Is(err, ErrSupplyOverflow):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(receipt)
}

func (h *Handler) lookup(raw string) (*ERC20, error) {
	addr, err := address(raw)
	if err != nil {
		return nil, err
	}
	v, ok := h.host.Contract(addr)
	if !ok {
		return nil, fiber.NewError(http.StatusNotFound, "token not found")
	}
	tok, ok := v.(*ERC20)
	if !ok {
		return nil, fiber.NewError(http.StatusNotFound, "not a managed token")
	}
	return tok, nil
}

func sessionAccount(c *fiber.Ctx) (common.Address, error) {
	raw, _ := c.Locals("account").(string)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fiber.NewError(http.StatusUnauthorized, "no account bound to session")
	}
	return common.HexToAddress(raw), nil
}

func address(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fiber.NewError(http.StatusBadRequest, "invalid address")
	}
	return common.HexToAddress(raw), nil
}
