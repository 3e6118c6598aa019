package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/congo-pay/custody-vault/internal/ledger"
	"github.com/congo-pay/custody-vault/internal/notification"
	"github.com/congo-pay/custody-vault/internal/units"
	"github.com/congo-pay/custody-vault/internal/wallet"
)

// Executor runs a function as one atomic ledger transaction.
type Executor interface {
	Execute(ctx context.Context, clientTxID string, fn func(ctx context.Context) error) (ledger.Receipt, error)
}

// Asset is the fungible token P2P payments move.
type Asset interface {
	Symbol() string
	Decimals() uint8
	BalanceOf(ctx context.Context, account common.Address) (*uint256.Int, error)
	Transfer(ctx context.Context, caller, to common.Address, amount *uint256.Int) (bool, error)
}

// Service moves the wrapped asset between wallets.
type Service struct {
	exec          Executor
	asset         Asset
	walletService *wallet.Service
	notifier      notification.Notifier
}

// NewService constructs a payment service.
func NewService(exec Executor, asset Asset, walletService *wallet.Service, notifier notification.Notifier) *Service {
	return &Service{exec: exec, asset: asset, walletService: walletService, notifier: notifier}
}

// TransferInput captures the data needed to move funds between wallets.
type TransferInput struct {
	FromWalletID    string
	ToWalletID      string
	Amount          string
	ClientTxID      string
	RequestorUserID string
}

// TransferResult describes the ledger outcome of a P2P transfer.
type TransferResult struct {
	TransactionID string
	FromBalance   *uint256.Int
	ToBalance     *uint256.Int
	CompletedAt   time.Time
}

var (
	// ErrNotOwner indicates the caller does not own the source wallet.
	ErrNotOwner = errors.New("not owner of source wallet")
	// ErrInvalidAmount is returned for malformed or non-positive amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrSameWallet is returned when source and destination coincide.
	ErrSameWallet = errors.New("source and destination wallets are the same")
	// ErrRejected is returned when the asset refused the transfer without an error.
	ErrRejected = errors.New("transfer rejected")
)

// Transfer moves wrapped units from one wallet's account to another's and
// notifies the recipient once the transaction commits.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (TransferResult, error) {
	amount, err := units.Parse(input.Amount, s.asset.Decimals())
	if err != nil || amount.IsZero() {
		return TransferResult{}, ErrInvalidAmount
	}
	if input.ClientTxID == "" {
		input.ClientTxID = uuid.New().String()
	}
	if input.FromWalletID == input.ToWalletID {
		return TransferResult{}, ErrSameWallet
	}

	fromWallet, err := s.walletService.Get(ctx, input.FromWalletID)
	if err != nil {
		return TransferResult{}, err
	}
	if input.RequestorUserID != "" && fromWallet.OwnerID != input.RequestorUserID {
		return TransferResult{}, ErrNotOwner
	}
	toWallet, err := s.walletService.Get(ctx, input.ToWalletID)
	if err != nil {
		return TransferResult{}, err
	}

	receipt, err := s.exec.Execute(ctx, input.ClientTxID, func(ctx context.Context) error {
		ok, err := s.asset.Transfer(ctx, fromWallet.Account, toWallet.Account, amount)
		if err != nil {
			return err
		}
		if !ok {
			return ErrRejected
		}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}

	fromBal, err := s.asset.BalanceOf(ctx, fromWallet.Account)
	if err != nil {
		return TransferResult{}, err
	}
	toBal, err := s.asset.BalanceOf(ctx, toWallet.Account)
	if err != nil {
		return TransferResult{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindWrappedTransfer,
			Destination: toWallet.OwnerID,
			Body: fmt.Sprintf("You received %s %s from wallet %s",
				units.Format(amount, s.asset.Decimals()), s.asset.Symbol(), input.FromWalletID),
		})
	}

	return TransferResult{
		TransactionID: receipt.TransactionID,
		FromBalance:   fromBal,
		ToBalance:     toBal,
		CompletedAt:   receipt.CommittedAt,
	}, nil
}
