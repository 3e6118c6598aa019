// Package asset moves value between accounts and a custodian. Native coin and
// external fungible tokens are both reached through Transfer, selected by the
// asset identity.
package asset

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Native is the asset identity of the host network's native coin.
var Native = common.Address{}

var (
	// ErrTransferFailed is returned when an external transfer reverted, returned
	// false or did not move the expected amount.
	ErrTransferFailed = errors.New("transfer failed")
)

// IsNative reports whether id is the native coin sentinel.
func IsNative(id common.Address) bool {
	return id == Native
}

// Bank moves native coin between accounts.
type Bank interface {
	BalanceOf(ctx context.Context, account common.Address) *uint256.Int
	Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error
}

// Token is the consumed surface of an external fungible-token contract. An error
// return means the call reverted.
type Token interface {
	Transfer(ctx context.Context, caller, to common.Address, amount *uint256.Int) (bool, error)
	TransferFrom(ctx context.Context, spender, from, to common.Address, amount *uint256.Int) (bool, error)
	BalanceOf(ctx context.Context, account common.Address) (*uint256.Int, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*uint256.Int, error)
}

// Resolver finds the token contract deployed at an address.
type Resolver interface {
	Token(id common.Address) (Token, bool)
}

// Transfer is the capability to move one asset in and out of custody. Its
// methods are only reachable through Receive and Send.
type Transfer interface {
	// Asset returns the identity the capability moves.
	Asset() common.Address

	pull(ctx context.Context, from common.Address, amount *uint256.Int) error
	push(ctx context.Context, to common.Address, amount *uint256.Int) error
	held(ctx context.Context) (*uint256.Int, error)
}

// Select returns the Transfer for id with custody held by custodian.
func Select(id, custodian common.Address, bank Bank, tokens Resolver) (Transfer, error) {
	if IsNative(id) {
		return nativeTransfer{bank: bank, custodian: custodian}, nil
	}
	tok, ok := tokens.Token(id)
	if !ok {
		return nil, fmt.Errorf("%w: no token contract at %s", ErrTransferFailed, id.Hex())
	}
	return tokenTransfer{id: id, token: tok, custodian: custodian}, nil
}

// Held reports the custodian's actual balance of the asset.
func Held(ctx context.Context, t Transfer) (*uint256.Int, error) {
	return t.held(ctx)
}

// Receive pulls amount from an account into custody and then runs credit. The
// custodian's balance must grow by exactly amount.
func Receive(ctx context.Context, t Transfer, from common.Address, amount *uint256.Int, credit func() error) error {
	before, err := t.held(ctx)
	if err != nil {
		return err
	}
	if err := t.pull(ctx, from, amount); err != nil {
		return err
	}
	after, err := t.held(ctx)
	if err != nil {
		return err
	}
	received, underflow := new(uint256.Int).SubOverflow(after, before)
	if underflow || !received.Eq(amount) {
		return fmt.Errorf("%w: custody of %s changed by %s, expected %s", ErrTransferFailed, t.Asset().Hex(), signedDelta(before, after), amount.Dec())
	}
	return credit()
}

// Send runs debit and only then pays amount out of custody. A reentrant call made
// during the payout observes the debited ledger.
func Send(ctx context.Context, t Transfer, to common.Address, amount *uint256.Int, debit func() error) error {
	if err := debit(); err != nil {
		return err
	}
	return t.push(ctx, to, amount)
}

func signedDelta(before, after *uint256.Int) string {
	if after.Lt(before) {
		return "-" + new(uint256.Int).Sub(before, after).Dec()
	}
	return new(uint256.Int).Sub(after, before).Dec()
}

type nativeTransfer struct {
	bank      Bank
	custodian common.Address
}

func (n nativeTransfer) Asset() common.Address { return Native }

func (n nativeTransfer) pull(ctx context.Context, from common.Address, amount *uint256.Int) error {
	if err := n.bank.Transfer(ctx, from, n.custodian, amount); err != nil {
		return fmt.Errorf("%w: native receive: %w", ErrTransferFailed, err)
	}
	return nil
}

func (n nativeTransfer) push(ctx context.Context, to common.Address, amount *uint256.Int) error {
	if err := n.bank.Transfer(ctx, n.custodian, to, amount); err != nil {
		return fmt.Errorf("%w: native send: %w", ErrTransferFailed, err)
	}
	return nil
}

func (n nativeTransfer) held(ctx context.Context) (*uint256.Int, error) {
	return n.bank.BalanceOf(ctx, n.custodian), nil
}

type tokenTransfer struct {
	id        common.Address
	token     Token
	custodian common.Address
}

func (t tokenTransfer) Asset() common.Address { return t.id }

func (t tokenTransfer) pull(ctx context.Context, from common.Address, amount *uint256.Int) error {
	ok, err := t.token.TransferFrom(ctx, t.custodian, from, t.custodian, amount)
	return checkCall("transferFrom", t.id, ok, err)
}

func (t tokenTransfer) push(ctx context.Context, to common.Address, amount *uint256.Int) error {
	ok, err := t.token.Transfer(ctx, t.custodian, to, amount)
	return checkCall("transfer", t.id, ok, err)
}

func (t tokenTransfer) held(ctx context.Context) (*uint256.Int, error) {
	bal, err := t.token.BalanceOf(ctx, t.custodian)
	if err != nil {
		return nil, fmt.Errorf("%w: balanceOf on %s: %w", ErrTransferFailed, t.id.Hex(), err)
	}
	return bal, nil
}

func checkCall(method string, id common.Address, ok bool, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s on %s reverted: %w", ErrTransferFailed, method, id.Hex(), err)
	}
	if !ok {
		return fmt.Errorf("%w: %s on %s returned false", ErrTransferFailed, method, id.Hex())
	}
	return nil
}
