package funding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/custody-vault/internal/ledger"
	"github.com/congo-pay/custody-vault/internal/state"
	"github.com/congo-pay/custody-vault/internal/units"
	"github.com/congo-pay/custody-vault/internal/wallet"
)

var (
	// ErrDeclined is returned when the acquirer refuses the authorization.
	ErrDeclined = errors.New("authorization declined")
	// ErrInvalidAmount is returned for non-positive or malformed amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidCard is returned for malformed card numbers.
	ErrInvalidCard = errors.New("invalid card number")
)

// Executor runs a function as one atomic ledger transaction.
type Executor interface {
	Execute(ctx context.Context, clientTxID string, fn func(ctx context.Context) error) (ledger.Receipt, error)
	Call(ctx context.Context, fn func(ctx context.Context, db *state.DB) error) error
}

const (
	directionIn  = "card_in"
	directionOut = "card_out"
)

// CardSettledEvent is logged in the same transaction as the mint or burn, so
// the acquirer reference is stored with the receipt.
type CardSettledEvent struct {
	Account   common.Address `json:"account"`
	Direction string         `json:"direction"`
	Amount    string         `json:"amount"`
	Reference string         `json:"reference"`
}

// Signature implements state.Event.
func (CardSettledEvent) Signature() string { return "CardSettled(address,string,uint256,string)" }

// Bank issues and retires native coin.
type Bank interface {
	BalanceOf(ctx context.Context, account common.Address) *uint256.Int
	Mint(ctx context.Context, to common.Address, amount *uint256.Int) error
	Burn(ctx context.Context, from common.Address, amount *uint256.Int) error
}

// Service coordinates card funding and withdrawal operations using the ledger and acquirer connector.
type Service struct {
	exec     Executor
	bank     Bank
	wallets  *wallet.Service
	acquirer Acquirer
	decimals uint8
}

// NewService prepares a funding service. Amounts are entered in display units
// of a coin with the given decimals.
func NewService(exec Executor, bank Bank, wallets *wallet.Service, acquirer Acquirer, decimals uint8) (*Service, error) {
	if wallets == nil {
		return nil, fmt.Errorf("wallet service is required")
	}
	if acquirer == nil {
		acquirer = StaticAcquirer{}
	}
	return &Service{exec: exec, bank: bank, wallets: wallets, acquirer: acquirer, decimals: decimals}, nil
}

// CardInInput captures the required data for a card top-up.
type CardInInput struct {
	WalletID   string
	Amount     string
	ClientTxID string
	CardNumber string
	Expiry     string
	CVV        string
}

// CardOutInput captures the required data for a card withdrawal.
type CardOutInput struct {
	WalletID   string
	Amount     string
	ClientTxID string
	CardNumber string
}

// FundingResult represents the domain outcome of a card operation.
type FundingResult struct {
	TransactionID     string
	ClientTxID        string
	Status            string
	Balance           *uint256.Int
	AcquirerReference string
	CompletedAt       time.Time
}

// CardIn authorizes a card top-up and mints the amount to the wallet's account.
// A declined authorization leaves the ledger untouched.
func (s *Service) CardIn(ctx context.Context, input CardInInput) (FundingResult, error) {
	if err := validateCardNumber(input.CardNumber); err != nil {
		return FundingResult{}, err
	}
	display, amount, err := s.parse(input.Amount)
	if err != nil {
		return FundingResult{}, err
	}
	w, err := s.wallets.Get(ctx, input.WalletID)
	if err != nil {
		return FundingResult{}, err
	}

	var decision AuthorizationDecision
	return s.run(ctx, w, input.ClientTxID, &decision, func(ctx context.Context) error {
		decision, err = s.acquirer.AuthorizeCardIn(ctx, CardInAuthorization{
			CardNumber: input.CardNumber,
			Expiry:     input.Expiry,
			CVV:        input.CVV,
			Amount:     display,
		})
		if err != nil {
			return err
		}
		if decision.Status != decisionApproved {
			return fmt.Errorf("%w: %s", ErrDeclined, decision.Reference)
		}
		if err := s.bank.Mint(ctx, w.Account, amount); err != nil {
			return err
		}
		return s.settle(ctx, w.Account, directionIn, amount, decision.Reference)
	})
}

// CardOut burns the amount from the wallet's account and pushes it to a card.
// A declined payout restores the burned coin.
func (s *Service) CardOut(ctx context.Context, input CardOutInput) (FundingResult, error) {
	if err := validateCardNumber(input.CardNumber); err != nil {
		return FundingResult{}, err
	}
	display, amount, err := s.parse(input.Amount)
	if err != nil {
		return FundingResult{}, err
	}
	w, err := s.wallets.Get(ctx, input.WalletID)
	if err != nil {
		return FundingResult{}, err
	}

	var decision AuthorizationDecision
	return s.run(ctx, w, input.ClientTxID, &decision, func(ctx context.Context) error {
		if err := s.bank.Burn(ctx, w.Account, amount); err != nil {
			return err
		}
		decision, err = s.acquirer.AuthorizeCardOut(ctx, CardOutAuthorization{
			CardNumber: input.CardNumber,
			Amount:     display,
		})
		if err != nil {
			return err
		}
		if decision.Status != decisionApproved {
			return fmt.Errorf("%w: %s", ErrDeclined, decision.Reference)
		}
		return s.settle(ctx, w.Account, directionOut, amount, decision.Reference)
	})
}

func (s *Service) run(ctx context.Context, w wallet.Wallet, clientTxID string, decision *AuthorizationDecision, fn func(ctx context.Context) error) (FundingResult, error) {
	if clientTxID == "" {
		clientTxID = uuid.NewString()
	}
	receipt, err := s.exec.Execute(ctx, clientTxID, fn)
	if err != nil && !errors.Is(err, ledger.ErrDuplicateTransaction) {
		return FundingResult{}, err
	}
	reference := decision.Reference
	if err != nil {
		// Replays never reach the acquirer; the reference comes from the receipt.
		reference = settledReference(receipt)
	}
	return FundingResult{
		TransactionID:     receipt.TransactionID,
		ClientTxID:        clientTxID,
		Status:            receipt.Status,
		Balance:           s.bank.BalanceOf(ctx, w.Account),
		AcquirerReference: reference,
		CompletedAt:       receipt.CommittedAt,
	}, err
}

func (s *Service) settle(ctx context.Context, account common.Address, direction string, amount *uint256.Int, reference string) error {
	return s.exec.Call(ctx, func(_ context.Context, db *state.DB) error {
		db.AddLog(state.Log{Address: account, Event: CardSettledEvent{
			Account:   account,
			Direction: direction,
			Amount:    amount.Dec(),
			Reference: reference,
		}})
		return nil
	})
}

func settledReference(receipt ledger.Receipt) string {
	name := state.Log{Event: CardSettledEvent{}}.Name()
	for _, rec := range receipt.Logs {
		if rec.Name != name {
			continue
		}
		var ev CardSettledEvent
		if err := json.Unmarshal(rec.Payload, &ev); err == nil {
			return ev.Reference
		}
	}
	return ""
}

func (s *Service) parse(raw string) (decimal.Decimal, *uint256.Int, error) {
	display, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !display.IsPositive() {
		return decimal.Decimal{}, nil, ErrInvalidAmount
	}
	amount, err := units.Parse(display.String(), s.decimals)
	if err != nil {
		return decimal.Decimal{}, nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return display, amount, nil
}

func validateCardNumber(card string) error {
	digits := strings.ReplaceAll(card, " ", "")
	if len(digits) < 12 || len(digits) > 19 {
		return fmt.Errorf("%w: must be between 12 and 19 digits", ErrInvalidCard)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: must be numeric", ErrInvalidCard)
		}
	}
	return nil
}
