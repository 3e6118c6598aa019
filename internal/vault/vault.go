// Package vault implements the custodial Vault Ledger. Accounts deposit native
// coin or external tokens into custody, withdraw them again, and convert native
// deposits 1:1 into a wrapped fungible token issued by the vault itself.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/congo-pay/custody-vault/internal/asset"
	"github.com/congo-pay/custody-vault/internal/metrics"
	"github.com/congo-pay/custody-vault/internal/state"
	"github.com/congo-pay/custody-vault/internal/token"
)

// Operation names used in logs and metrics.
const (
	OpDeposit  = "deposit"
	OpWithdraw = "withdraw"
	OpWrap     = "wrap"
	OpUnwrap   = "unwrap"
)

// Env is what the vault needs from its host.
type Env struct {
	Backend state.Backend
	Bank    asset.Bank
	Tokens  asset.Resolver
}

// DefaultMetadata describes the wrapped asset.
var DefaultMetadata = token.Metadata{Name: "Wrapped Native Coin", Symbol: "WNATIVE", Decimals: 18}

// Option customises a Vault.
type Option func(*Vault)

// WithReentrancyGuard toggles the guard that rejects an operation entered while
// another operation of the same vault is running. It is on by default.
func WithReentrancyGuard(enabled bool) Option {
	return func(v *Vault) { v.guard = enabled }
}

// WithLogger sets the vault logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Vault) { v.logger = l }
}

// WithMetrics counts operation outcomes.
func WithMetrics(m *metrics.Collector) Option {
	return func(v *Vault) { v.metrics = m }
}

// WithMetadata overrides the wrapped asset metadata.
func WithMetadata(meta token.Metadata) Option {
	return func(v *Vault) { v.meta = meta }
}

// Vault holds funds in custody at its address and tracks who owns them.
type Vault struct {
	address common.Address
	env     Env
	wrapped *token.ERC20
	meta    token.Metadata

	guard   bool
	entered bool

	logger  *slog.Logger
	metrics *metrics.Collector
}

// New creates a vault at address. The wrapped asset shares the vault's address.
func New(env Env, address common.Address, opts ...Option) *Vault {
	v := &Vault{
		address: address,
		env:     env,
		meta:    DefaultMetadata,
		guard:   true,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.wrapped = token.New(env.Backend, address, v.meta, address)
	return v
}

// Address returns the custody address, which is also the wrapped asset identity.
func (v *Vault) Address() common.Address { return v.address }

// Deposit moves amount of id from caller into custody and credits caller.
// value is the native coin attached to the call; it must equal amount for native
// deposits and be zero for token deposits.
func (v *Vault) Deposit(ctx context.Context, caller, id common.Address, amount, value *uint256.Int) error {
	return v.operate(ctx, OpDeposit, func(ctx context.Context, db *state.DB) error {
		if err := validAmount(amount); err != nil {
			return err
		}
		attached := value
		if attached == nil {
			attached = new(uint256.Int)
		}
		if asset.IsNative(id) && !attached.Eq(amount) {
			return fmt.Errorf("%w: attached %s, declared %s", ErrAmountMismatch, attached.Dec(), amount.Dec())
		}
		if !asset.IsNative(id) && !attached.IsZero() {
			return fmt.Errorf("%w: %s attached to a token deposit", ErrAmountMismatch, attached.Dec())
		}
		t, err := asset.Select(id, v.address, v.env.Bank, v.env.Tokens)
		if err != nil {
			return err
		}
		err = asset.Receive(ctx, t, caller, amount, func() error {
			return v.credit(db, depositKey(v.address, caller, id), amount)
		})
		if err != nil {
			return err
		}
		db.AddLog(state.Log{Address: v.address, Event: DepositEvent{Account: caller, Asset: id, Amount: amount.Clone()}})
		return nil
	})
}

// Withdraw debits caller's entry for id and then pays amount out of custody.
func (v *Vault) Withdraw(ctx context.Context, caller, id common.Address, amount *uint256.Int) error {
	return v.operate(ctx, OpWithdraw, func(ctx context.Context, db *state.DB) error {
		if err := validAmount(amount); err != nil {
			return err
		}
		key := depositKey(v.address, caller, id)
		if bal := db.Get(key); bal.Lt(amount) {
			return fmt.Errorf("%w: have %s, requested %s", ErrInsufficientBalance, bal.Dec(), amount.Dec())
		}
		t, err := asset.Select(id, v.address, v.env.Bank, v.env.Tokens)
		if err != nil {
			return err
		}
		err = asset.Send(ctx, t, caller, amount, func() error {
			return v.debit(db, key, amount)
		})
		if err != nil {
			return err
		}
		db.AddLog(state.Log{Address: v.address, Event: WithdrawEvent{Account: caller, Asset: id, Amount: amount.Clone()}})
		return nil
	})
}

// Wrap converts amount of caller's native deposit into wrapped units. The native
// value stays in custody under the vault's own bucket.
func (v *Vault) Wrap(ctx context.Context, caller common.Address, amount *uint256.Int) error {
	return v.operate(ctx, OpWrap, func(ctx context.Context, db *state.DB) error {
		if err := validAmount(amount); err != nil {
			return err
		}
		if err := v.debit(db, nativeKey(v.address, caller), amount); err != nil {
			return err
		}
		if err := v.credit(db, nativeKey(v.address, v.address), amount); err != nil {
			return err
		}
		if err := v.wrapped.Mint(ctx, v.address, caller, amount); err != nil {
			return mapTokenErr(err)
		}
		db.AddLog(state.Log{Address: v.address, Event: WrapEvent{Account: caller, Amount: amount.Clone()}})
		return nil
	})
}

// Unwrap burns amount of caller's wrapped units and credits the native deposit.
func (v *Vault) Unwrap(ctx context.Context, caller common.Address, amount *uint256.Int) error {
	return v.operate(ctx, OpUnwrap, func(ctx context.Context, db *state.DB) error {
		if err := validAmount(amount); err != nil {
			return err
		}
		if err := v.wrapped.Burn(ctx, v.address, caller, amount); err != nil {
			return mapTokenErr(err)
		}
		if err := v.debit(db, nativeKey(v.address, v.address), amount); err != nil {
			return err
		}
		if err := v.credit(db, nativeKey(v.address, caller), amount); err != nil {
			return err
		}
		db.AddLog(state.Log{Address: v.address, Event: UnwrapEvent{Account: caller, Amount: amount.Clone()}})
		return nil
	})
}

// NativeCoinDeposits returns account's native coin held in custody.
func (v *Vault) NativeCoinDeposits(ctx context.Context, account common.Address) *uint256.Int {
	bal := v.env.Backend.Read(ctx).Get(nativeKey(v.address, account))
	return &bal
}

// TokenDeposits returns account's custody balance of id. The native sentinel
// reads the native coin ledger.
func (v *Vault) TokenDeposits(ctx context.Context, account, id common.Address) *uint256.Int {
	bal := v.env.Backend.Read(ctx).Get(depositKey(v.address, account, id))
	return &bal
}

func (v *Vault) operate(ctx context.Context, op string, fn func(ctx context.Context, db *state.DB) error) error {
	err := v.env.Backend.Call(ctx, func(ctx context.Context, db *state.DB) error {
		if v.guard {
			if v.entered {
				return ErrReentrantCall
			}
			v.entered = true
			defer func() { v.entered = false }()
		}
		return fn(ctx, db)
	})
	v.metrics.VaultOperation(op, reason(err))
	if err != nil {
		v.logger.Debug("vault operation rejected", "operation", op, "error", err)
	}
	return err
}

func (v *Vault) credit(db *state.DB, key state.Key, amount *uint256.Int) error {
	bal := db.Get(key)
	sum, overflow := new(uint256.Int).AddOverflow(&bal, amount)
	if overflow {
		return ErrBalanceOverflow
	}
	db.Set(key, *sum)
	return nil
}

func (v *Vault) debit(db *state.DB, key state.Key, amount *uint256.Int) error {
	bal := db.Get(key)
	if bal.Lt(amount) {
		return fmt.Errorf("%w: have %s, requested %s", ErrInsufficientBalance, bal.Dec(), amount.Dec())
	}
	db.Set(key, *new(uint256.Int).Sub(&bal, amount))
	return nil
}

func validAmount(amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	return nil
}

func mapTokenErr(err error) error {
	switch {
	case errors.Is(err, token.ErrInsufficientBalance):
		return fmt.Errorf("%w: %w", ErrInsufficientBalance, err)
	case errors.Is(err, token.ErrSupplyOverflow):
		return fmt.Errorf("%w: %w", ErrBalanceOverflow, err)
	default:
		return err
	}
}

func nativeKey(vault, account common.Address) state.Key {
	return state.Key{Owner: vault, Table: state.TableNativeDeposits, A: account}
}

func depositKey(vault, account, id common.Address) state.Key {
	if asset.IsNative(id) {
		return nativeKey(vault, account)
	}
	return state.Key{Owner: vault, Table: state.TableTokenDeposits, A: account, B: id}
}
