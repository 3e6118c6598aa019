package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

const (
	statusActive = "active"
)

// Bank reports native coin balances held directly by an account.
type Bank interface {
	BalanceOf(ctx context.Context, account common.Address) *uint256.Int
}

// Custody reports what the vault holds on an account's behalf.
type Custody interface {
	NativeCoinDeposits(ctx context.Context, account common.Address) *uint256.Int
	BalanceOf(ctx context.Context, account common.Address) (*uint256.Int, error)
}

// Service exposes wallet operations backed by the ledger.
type Service struct {
	repo    Repository
	bank    Bank
	custody Custody
	now     func() time.Time
}

// NewService builds a wallet service instance.
func NewService(repo Repository, bank Bank, custody Custody) *Service {
	return &Service{repo: repo, bank: bank, custody: custody, now: time.Now}
}

// CreateInput captures data required to create a wallet.
type CreateInput struct {
	OwnerID string
	Account common.Address
}

// Create provisions a wallet bound to the owner's ledger account.
func (s *Service) Create(ctx context.Context, input CreateInput) (Wallet, error) {
	if _, err := uuid.Parse(input.OwnerID); err != nil {
		return Wallet{}, fmt.Errorf("invalid owner id: %w", err)
	}
	if input.Account == (common.Address{}) {
		return Wallet{}, fmt.Errorf("account is required")
	}

	wallet := Wallet{
		ID:        uuid.New().String(),
		OwnerID:   input.OwnerID,
		Account:   input.Account,
		Status:    statusActive,
		CreatedAt: s.now().UTC(),
	}

	if err := s.repo.Create(ctx, wallet); err != nil {
		return Wallet{}, err
	}

	return wallet, nil
}

// Get retrieves wallet metadata.
func (s *Service) Get(ctx context.Context, id string) (Wallet, error) {
	return s.repo.Get(ctx, id)
}

// GetByOwner retrieves the wallet belonging to a user.
func (s *Service) GetByOwner(ctx context.Context, ownerID string) (Wallet, error) {
	return s.repo.GetByOwner(ctx, ownerID)
}

// GetByAccount retrieves the wallet bound to a ledger account.
func (s *Service) GetByAccount(ctx context.Context, account common.Address) (Wallet, error) {
	return s.repo.GetByAccount(ctx, account)
}

// Overview returns the wallet's native balance, vault deposits and wrapped holdings.
func (s *Service) Overview(ctx context.Context, id string) (Overview, error) {
	wallet, err := s.repo.Get(ctx, id)
	if err != nil {
		return Overview{}, err
	}
	wrapped, err := s.custody.BalanceOf(ctx, wallet.Account)
	if err != nil {
		return Overview{}, err
	}
	return Overview{
		WalletID:  wallet.ID,
		Account:   wallet.Account,
		Native:    s.bank.BalanceOf(ctx, wallet.Account),
		Deposited: s.custody.NativeCoinDeposits(ctx, wallet.Account),
		Wrapped:   wrapped,
		AsOf:      s.now().UTC(),
	}, nil
}
