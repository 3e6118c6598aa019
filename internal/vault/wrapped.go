package vault

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/congo-pay/custody-vault/internal/asset"
)

// The wrapped asset surface. Transfers move wrapped units between accounts
// without touching the custody bucket, so total supply always equals it.

var _ asset.Token = (*Vault)(nil)

func (v *Vault) Name() string { return v.wrapped.Name() }

func (v *Vault) Symbol() string { return v.wrapped.Symbol() }

func (v *Vault) Decimals() uint8 { return v.wrapped.Decimals() }

// TotalSupply returns the wrapped units in circulation.
func (v *Vault) TotalSupply(ctx context.Context) *uint256.Int {
	return v.wrapped.TotalSupply(ctx)
}

// BalanceOf returns account's wrapped balance.
func (v *Vault) BalanceOf(ctx context.Context, account common.Address) (*uint256.Int, error) {
	return v.wrapped.BalanceOf(ctx, account)
}

// Allowance returns the wrapped units spender may move for owner.
func (v *Vault) Allowance(ctx context.Context, owner, spender common.Address) (*uint256.Int, error) {
	return v.wrapped.Allowance(ctx, owner, spender)
}

// Transfer moves wrapped units from caller to to.
func (v *Vault) Transfer(ctx context.Context, caller, to common.Address, amount *uint256.Int) (bool, error) {
	return v.wrapped.Transfer(ctx, caller, to, amount)
}

// Approve lets spender move up to amount of caller's wrapped units.
func (v *Vault) Approve(ctx context.Context, caller, spender common.Address, amount *uint256.Int) (bool, error) {
	return v.wrapped.Approve(ctx, caller, spender, amount)
}

// TransferFrom moves wrapped units from from to to using spender's allowance.
func (v *Vault) TransferFrom(ctx context.Context, spender, from, to common.Address, amount *uint256.Int) (bool, error) {
	return v.wrapped.TransferFrom(ctx, spender, from, to, amount)
}
