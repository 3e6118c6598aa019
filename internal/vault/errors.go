package vault

import (
	"errors"

	"github.com/congo-pay/custody-vault/internal/asset"
)

var (
	// ErrInsufficientBalance is returned when the caller's ledger entry is below
	// the requested amount on Withdraw, Wrap or Unwrap.
	ErrInsufficientBalance = errors.New("vault: insufficient balance")
	// ErrAmountMismatch is returned when the attached native value does not equal
	// the declared deposit amount.
	ErrAmountMismatch = errors.New("vault: attached value does not match amount")
	// ErrTransferFailed is returned when moving funds in or out of custody failed.
	ErrTransferFailed = asset.ErrTransferFailed
	// ErrInvalidAmount is returned for zero or missing amounts.
	ErrInvalidAmount = errors.New("vault: invalid amount")
	// ErrBalanceOverflow is returned when a credit would overflow 256 bits.
	ErrBalanceOverflow = errors.New("vault: balance overflow")
	// ErrReentrantCall is returned when an operation is entered while another one
	// is still running.
	ErrReentrantCall = errors.New("vault: reentrant call")
)

// reason labels an operation outcome for metrics.
func reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, ErrReentrantCall):
		return "reentrant_call"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrAmountMismatch):
		return "amount_mismatch"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrBalanceOverflow):
		return "balance_overflow"
	default:
		return "error"
	}
}
