// Package token implements a fungible token contract with ERC-20 semantics on
// top of the host's journaled state.
package token

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/congo-pay/custody-vault/internal/state"
)

var (
	// ErrInsufficientBalance is returned when the holder cannot cover a debit.
	ErrInsufficientBalance = errors.New("token: transfer amount exceeds balance")
	// ErrInsufficientAllowance is returned when a spender exceeds its allowance.
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	// ErrInvalidRecipient is returned for transfers and mints to the zero address.
	ErrInvalidRecipient = errors.New("token: invalid recipient")
	// ErrUnauthorized is returned when a non-minter mints or burns.
	ErrUnauthorized = errors.New("token: caller is not the minter")
	// ErrSupplyOverflow is returned when a mint would overflow 256 bits.
	ErrSupplyOverflow = errors.New("token: supply overflow")
	// ErrInvalidAmount is returned for nil amounts.
	ErrInvalidAmount = errors.New("token: invalid amount")
)

// Metadata describes a token.
type Metadata struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// TransferEvent is emitted on every balance movement, mints (From is zero) and
// burns (To is zero) included.
type TransferEvent struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *uint256.Int   `json:"value"`
}

func (TransferEvent) Signature() string { return "Transfer(address,address,uint256)" }

// ApprovalEvent is emitted when an allowance is set or consumed.
type ApprovalEvent struct {
	Owner   common.Address `json:"owner"`
	Spender common.Address `json:"spender"`
	Value   *uint256.Int   `json:"value"`
}

func (ApprovalEvent) Signature() string { return "Approval(address,address,uint256)" }

// Unlimited is the allowance that transferFrom never decrements.
func Unlimited() *uint256.Int {
	return new(uint256.Int).SetAllOne()
}

// ERC20 is a fungible token whose balances live in the host state under its
// address.
type ERC20 struct {
	address common.Address
	meta    Metadata
	minter  common.Address
	backend state.Backend
}

// New creates a token at address. Only minter may Mint and Burn.
func New(backend state.Backend, address common.Address, meta Metadata, minter common.Address) *ERC20 {
	return &ERC20{address: address, meta: meta, minter: minter, backend: backend}
}

// Address returns the token contract address.
func (t *ERC20) Address() common.Address { return t.address }

// Minter returns the account allowed to mint and burn.
func (t *ERC20) Minter() common.Address { return t.minter }

// Name returns the token name.
func (t *ERC20) Name() string { return t.meta.Name }

// Symbol returns the ticker.
func (t *ERC20) Symbol() string { return t.meta.Symbol }

// Decimals returns the display precision.
func (t *ERC20) Decimals() uint8 { return t.meta.Decimals }

// TotalSupply returns the amount in circulation.
func (t *ERC20) TotalSupply(ctx context.Context) *uint256.Int {
	v := t.backend.Read(ctx).Get(t.supplyKey())
	return &v
}

// BalanceOf returns account's balance.
func (t *ERC20) BalanceOf(ctx context.Context, account common.Address) (*uint256.Int, error) {
	v := t.backend.Read(ctx).Get(t.balanceKey(account))
	return &v, nil
}

// Allowance returns what spender may still move on behalf of owner.
func (t *ERC20) Allowance(ctx context.Context, owner, spender common.Address) (*uint256.Int, error) {
	v := t.backend.Read(ctx).Get(t.allowanceKey(owner, spender))
	return &v, nil
}

// Transfer moves amount from caller to to.
func (t *ERC20) Transfer(ctx context.Context, caller, to common.Address, amount *uint256.Int) (bool, error) {
	err := t.backend.Call(ctx, func(_ context.Context, db *state.DB) error {
		return t.move(db, caller, to, amount)
	})
	return err == nil, err
}

// Approve sets spender's allowance over caller's balance.
func (t *ERC20) Approve(ctx context.Context, caller, spender common.Address, amount *uint256.Int) (bool, error) {
	if amount == nil {
		return false, ErrInvalidAmount
	}
	err := t.backend.Call(ctx, func(_ context.Context, db *state.DB) error {
		db.Set(t.allowanceKey(caller, spender), *amount)
		db.AddLog(state.Log{Address: t.address, Event: ApprovalEvent{Owner: caller, Spender: spender, Value: amount.Clone()}})
		return nil
	})
	return err == nil, err
}

// TransferFrom moves amount from from to to, spending spender's allowance.
func (t *ERC20) TransferFrom(ctx context.Context, spender, from, to common.Address, amount *uint256.Int) (bool, error) {
	err := t.backend.Call(ctx, func(_ context.Context, db *state.DB) error {
		if amount == nil {
			return ErrInvalidAmount
		}
		key := t.allowanceKey(from, spender)
		allowance := db.Get(key)
		if !allowance.Eq(Unlimited()) {
			if allowance.Lt(amount) {
				return fmt.Errorf("%w: allowance %s, requested %s", ErrInsufficientAllowance, allowance.Dec(), amount.Dec())
			}
			remaining := new(uint256.Int).Sub(&allowance, amount)
			db.Set(key, *remaining)
			db.AddLog(state.Log{Address: t.address, Event: ApprovalEvent{Owner: from, Spender: spender, Value: remaining}})
		}
		return t.move(db, from, to, amount)
	})
	return err == nil, err
}

// Mint creates amount for to. Only the minter may call it.
func (t *ERC20) Mint(ctx context.Context, caller, to common.Address, amount *uint256.Int) error {
	return t.backend.Call(ctx, func(_ context.Context, db *state.DB) error {
		if caller != t.minter {
			return ErrUnauthorized
		}
		if amount == nil {
			return ErrInvalidAmount
		}
		if to == (common.Address{}) {
			return ErrInvalidRecipient
		}
		supply := db.Get(t.supplyKey())
		newSupply, overflow := new(uint256.Int).AddOverflow(&supply, amount)
		if overflow {
			return ErrSupplyOverflow
		}
		bal := db.Get(t.balanceKey(to))
		db.Set(t.supplyKey(), *newSupply)
		db.Set(t.balanceKey(to), *new(uint256.Int).Add(&bal, amount))
		db.AddLog(state.Log{Address: t.address, Event: TransferEvent{To: to, Value: amount.Clone()}})
		return nil
	})
}

// Burn destroys amount held by from. Only the minter may call it.
func (t *ERC20) Burn(ctx context.Context, caller, from common.Address, amount *uint256.Int) error {
	return t.backend.Call(ctx, func(_ context.Context, db *state.DB) error {
		if caller != t.minter {
			return ErrUnauthorized
		}
		if amount == nil {
			return ErrInvalidAmount
		}
		bal := db.Get(t.balanceKey(from))
		if bal.Lt(amount) {
			return fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientBalance, bal.Dec(), amount.Dec())
		}
		supply := db.Get(t.supplyKey())
		db.Set(t.balanceKey(from), *new(uint256.Int).Sub(&bal, amount))
		db.Set(t.supplyKey(), *new(uint256.Int).Sub(&supply, amount))
		db.AddLog(state.Log{Address: t.address, Event: TransferEvent{From: from, Value: amount.Clone()}})
		return nil
	})
}

func (t *ERC20) move(db *state.DB, from, to common.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrInvalidAmount
	}
	if to == (common.Address{}) {
		return ErrInvalidRecipient
	}
	fromBal := db.Get(t.balanceKey(from))
	if fromBal.Lt(amount) {
		return fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientBalance, fromBal.Dec(), amount.Dec())
	}
	db.Set(t.balanceKey(from), *new(uint256.Int).Sub(&fromBal, amount))
	// Read after the debit so self-transfers net to zero.
	toBal := db.Get(t.balanceKey(to))
	db.Set(t.balanceKey(to), *new(uint256.Int).Add(&toBal, amount))
	db.AddLog(state.Log{Address: t.address, Event: TransferEvent{From: from, To: to, Value: amount.Clone()}})
	return nil
}

func (t *ERC20) balanceKey(holder common.Address) state.Key {
	return state.Key{Owner: t.address, Table: state.TableBalance, A: holder}
}

func (t *ERC20) allowanceKey(owner, spender common.Address) state.Key {
	return state.Key{Owner: t.address, Table: state.TableAllowance, A: owner, B: spender}
}

func (t *ERC20) supplyKey() state.Key {
	return state.Key{Owner: t.address, Table: state.TableSupply}
}
