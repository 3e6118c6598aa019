package vault

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// DepositEvent records a successful Deposit.
type DepositEvent struct {
	Account common.Address `json:"account"`
	Asset   common.Address `json:"asset"`
	Amount  *uint256.Int   `json:"amount"`
}

func (DepositEvent) Signature() string { return "Deposit(address,address,uint256)" }

// WithdrawEvent records a successful Withdraw.
type WithdrawEvent struct {
	Account common.Address `json:"account"`
	Asset   common.Address `json:"asset"`
	Amount  *uint256.Int   `json:"amount"`
}

func (WithdrawEvent) Signature() string { return "Withdraw(address,address,uint256)" }

// WrapEvent records a successful Wrap.
type WrapEvent struct {
	Account common.Address `json:"account"`
	Amount  *uint256.Int   `json:"amount"`
}

func (WrapEvent) Signature() string { return "Wrap(address,uint256)" }

// UnwrapEvent records a successful Unwrap.
type UnwrapEvent struct {
	Account common.Address `json:"account"`
	Amount  *uint256.Int   `json:"amount"`
}

func (UnwrapEvent) Signature() string { return "Unwrap(address,uint256)" }
