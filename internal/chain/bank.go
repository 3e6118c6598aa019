package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/congo-pay/custody-vault/internal/asset"
	"github.com/congo-pay/custody-vault/internal/state"
)

var (
	// ErrInsufficientFunds is returned when an account cannot cover a native debit.
	ErrInsufficientFunds = errors.New("chain: insufficient native balance")
	// ErrBalanceOverflow is returned when a native credit would overflow.
	ErrBalanceOverflow = errors.New("chain: native balance overflow")
	// ErrInvalidAmount is returned for nil amounts.
	ErrInvalidAmount = errors.New("chain: invalid amount")
)

// Receiver is implemented by contracts that run code when native coin is sent to
// them. Returning an error rejects the payment.
type Receiver interface {
	ReceiveNative(ctx context.Context, from common.Address, amount *uint256.Int) error
}

// Bank keeps native coin balances in the chain state.
type Bank struct {
	chain *Chain
}

var _ asset.Bank = (*Bank)(nil)

// BalanceOf returns account's native balance.
func (b *Bank) BalanceOf(ctx context.Context, account common.Address) *uint256.Int {
	v := b.chain.Read(ctx).Get(nativeKey(account))
	return &v
}

// Supply returns the sum of every native balance.
func (b *Bank) Supply(ctx context.Context) *uint256.Int {
	total := new(uint256.Int)
	b.chain.Read(ctx).Each(common.Address{}, state.TableNative, func(_ state.Key, v uint256.Int) bool {
		total.Add(total, &v)
		return true
	})
	return total
}

// Transfer sends amount from one account to another. A contract registered at
// the recipient address is notified through Receiver in the same call frame.
func (b *Bank) Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error {
	return b.chain.Call(ctx, func(ctx context.Context, db *state.DB) error {
		if err := debit(db, from, amount); err != nil {
			return err
		}
		if err := credit(db, to, amount); err != nil {
			return err
		}
		v, ok := b.chain.Contract(to)
		if !ok {
			return nil
		}
		if r, ok := v.(Receiver); ok {
			return r.ReceiveNative(ctx, from, amount)
		}
		return nil
	})
}

// Mint creates native coin for to. It backs on-ramp top-ups and genesis funding.
func (b *Bank) Mint(ctx context.Context, to common.Address, amount *uint256.Int) error {
	return b.chain.Call(ctx, func(_ context.Context, db *state.DB) error {
		return credit(db, to, amount)
	})
}

// Burn destroys native coin held by from. It backs off-ramp payouts.
func (b *Bank) Burn(ctx context.Context, from common.Address, amount *uint256.Int) error {
	return b.chain.Call(ctx, func(_ context.Context, db *state.DB) error {
		return debit(db, from, amount)
	})
}

func debit(db *state.DB, account common.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrInvalidAmount
	}
	key := nativeKey(account)
	bal := db.Get(key)
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientFunds, account.Hex(), bal.Dec(), amount.Dec())
	}
	db.Set(key, *new(uint256.Int).Sub(&bal, amount))
	return nil
}

func credit(db *state.DB, account common.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrInvalidAmount
	}
	key := nativeKey(account)
	bal := db.Get(key)
	sum, overflow := new(uint256.Int).AddOverflow(&bal, amount)
	if overflow {
		return ErrBalanceOverflow
	}
	db.Set(key, *sum)
	return nil
}

func nativeKey(account common.Address) state.Key {
	return state.Key{Table: state.TableNative, A: account}
}
