package vault_test

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/custody-vault/internal/asset"
	"github.com/congo-pay/custody-vault/internal/chain"
	"github.com/congo-pay/custody-vault/internal/ledger"
	"github.com/congo-pay/custody-vault/internal/logging"
	"github.com/congo-pay/custody-vault/internal/token"
	"github.com/congo-pay/custody-vault/internal/vault"
)

var (
	operator = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol    = common.HexToAddress("0x00000000000000000000000000000000000ca201")
	feeSink  = common.HexToAddress("0x0000000000000000000000000000000000000fee")

	native = asset.Native
)

const startBalance = 1000

type fixture struct {
	chain *chain.Chain
	store ledger.Store
	vault *vault.Vault
	usdt  *token.ERC20
	dai   *token.ERC20
}

func setup(t *testing.T, opts ...vault.Option) *fixture {
	t.Helper()
	store := ledger.NewInMemory()
	c := chain.New(store, chain.WithLogger(logging.Discard()))
	f := &fixture{chain: c, store: store}

	opts = append([]vault.Option{vault.WithLogger(logging.Discard())}, opts...)
	c.Deploy(operator, func(addr common.Address) any {
		f.vault = vault.New(vault.Env{Backend: c, Bank: c.Bank(), Tokens: c}, addr, opts...)
		return f.vault
	})
	f.usdt = f.deployToken(t, "Tether USD", "USDT")
	f.dai = f.deployToken(t, "Dai", "DAI")

	ctx := context.Background()
	for _, who := range []common.Address{alice, bob, carol} {
		require.NoError(t, c.Bank().Mint(ctx, who, u(startBalance)))
		require.NoError(t, f.usdt.Mint(ctx, operator, who, u(startBalance)))
		require.NoError(t, f.dai.Mint(ctx, operator, who, u(startBalance)))
	}
	return f
}

func (f *fixture) deployToken(t *testing.T, name, symbol string) *token.ERC20 {
	t.Helper()
	var tok *token.ERC20
	f.chain.Deploy(operator, func(addr common.Address) any {
		tok = token.New(f.chain, addr, token.Metadata{Name: name, Symbol: symbol, Decimals: 18}, operator)
		return tok
	})
	return tok
}

// exec runs fn as its own transaction and returns the receipt.
func (f *fixture) exec(t *testing.T, fn func(ctx context.Context) error) (ledger.Receipt, error) {
	t.Helper()
	return f.chain.Execute(context.Background(), "", fn)
}

func (f *fixture) approve(t *testing.T, tok *token.ERC20, owner common.Address, amount uint64) {
	t.Helper()
	_, err := tok.Approve(context.Background(), owner, f.vault.Address(), u(amount))
	require.NoError(t, err)
}

func (f *fixture) nativeDeposits(who common.Address) uint64 {
	return f.vault.NativeCoinDeposits(context.Background(), who).Uint64()
}

func (f *fixture) tokenDeposits(who common.Address, tok *token.ERC20) uint64 {
	return f.vault.TokenDeposits(context.Background(), who, tok.Address()).Uint64()
}

func (f *fixture) wrapped(t *testing.T, who common.Address) uint64 {
	t.Helper()
	bal, err := f.vault.BalanceOf(context.Background(), who)
	require.NoError(t, err)
	return bal.Uint64()
}

func (f *fixture) coins(who common.Address) uint64 {
	return f.chain.Bank().BalanceOf(context.Background(), who).Uint64()
}

func (f *fixture) tokens(t *testing.T, tok *token.ERC20, who common.Address) uint64 {
	t.Helper()
	bal, err := tok.BalanceOf(context.Background(), who)
	require.NoError(t, err)
	return bal.Uint64()
}

func (f *fixture) requireHealthy(t *testing.T) {
	t.Helper()
	report, err := f.vault.Audit(context.Background(), f.usdt.Address(), f.dai.Address())
	require.NoError(t, err)
	require.True(t, report.Healthy, "audit: %+v", report)
}

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

type decodedLog struct {
	Name    string
	Payload map[string]string
}

func decode(t *testing.T, receipt ledger.Receipt) []decodedLog {
	t.Helper()
	out := make([]decodedLog, 0, len(receipt.Logs))
	for _, l := range receipt.Logs {
		var payload map[string]string
		require.NoError(t, json.Unmarshal(l.Payload, &payload))
		out = append(out, decodedLog{Name: l.Name, Payload: payload})
	}
	return out
}

func hexLower(a common.Address) string { return strings.ToLower(a.Hex()) }

func TestDepositNativeCoin(t *testing.T) {
	f := setup(t)
	receipt, err := f.exec(t, func(ctx context.Context) error {
		return f.vault.Deposit(ctx, alice, native, u(1), u(1))
	})
	require.NoError(t, err)
	_, err = f.exec(t, func(ctx context.Context) error {
		return f.vault.Deposit(ctx, bob, native, u(1), u(1))
	})
	require.NoError(t, err)

	require.Equal(t, uint64(1), f.nativeDeposits(alice))
	require.Equal(t, uint64(1), f.nativeDeposits(bob))
	require.Equal(t, uint64(startBalance-1), f.coins(alice))
	require.Equal(t, uint64(2), f.coins(f.vault.Address()))

	logs := decode(t, receipt)
	require.Len(t, logs, 1)
	require.Equal(t, "Deposit", logs[0].Name)
	require.Equal(t, map[string]string{
		"account": hexLower(alice),
		"asset":   hexLower(native),
		"amount":  "1",
	}, logs[0].Payload)
	f.requireHealthy(t)
}

func TestDepositToken(t *testing.T) {
	f := setup(t)
	f.approve(t, f.usdt, alice, 1)
	allowance, err := f.usdt.Allowance(context.Background(), alice, f.vault.Address())
	require.NoError(t, err)
	require.Equal(t, uint64(1), allowance.Uint64())

	receipt, err := f.exec(t, func(ctx context.Context) error {
		return f.vault.Deposit(ctx, alice, f.usdt.Address(), u(1), nil)
	})
	require.NoError(t, err)

	require.Equal(t, uint64(1), f.tokenDeposits(alice, f.usdt))
	require.Equal(t, uint64(1), f.tokens(t, f.usdt, f.vault.Address()))
	require.Equal(t, uint64(startBalance-1), f.tokens(t, f.usdt, alice))

	var deposits []decodedLog
	for _, l := range decode(t, receipt) {
		if l.Name == "Deposit" {
			deposits = append(deposits, l)
		}
	}
	require.Len(t, deposits, 1)
	require.Equal(t, hexLower(f.usdt.Address()), deposits[0].Payload["asset"])
	require.Equal(t, "Deposit", receipt.Logs[len(receipt.Logs)-1].Name, "deposit event comes last")
	f.requireHealthy(t)
}

func TestWithdrawAboveBalanceFails(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.vault.Deposit(ctx, alice, native, u(1), u(1)))

	err := f.vault.Withdraw(ctx, alice, native, u(2))
	require.ErrorIs(t, err, vault.ErrInsufficientBalance)
	require.Equal(t, uint64(1), f.nativeDeposits(alice))
	require.Equal(t, uint64(startBalance-1), f.coins(alice))

	f.approve(t, f.usdt, alice, 1)
	require.NoError(t, f.vault.Deposit(ctx, alice, f.usdt.Address(), u(1), nil))
	err = f.vault.Withdraw(ctx, alice, f.usdt.Address(), u(2))
	require.ErrorIs(t, err, vault.ErrInsufficientBalance)
	require.Equal(t, uint64(1), f.tokenDeposits(alice, f.usdt))

	err = f.vault.Withdraw(ctx, bob, common.HexToAddress("0x1234"), u(1))
	require.ErrorIs(t, err, vault.ErrInsufficientBalance, "unknown assets have nothing to withdraw")
}

func TestWithdrawReturnsFunds(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.vault.Deposit(ctx, alice, native, u(40), u(40)))
	f.approve(t, f.usdt, alice, 70)
	require.NoError(t, f.vault.Deposit(ctx, alice, f.usdt.Address(), u(70), nil))

	receipt, err := f.exec(t, func(ctx context.Context) error {
		return f.vault.Withdraw(ctx, alice, native, u(15))
	})
	require.NoError(t, err)
	logs := decode(t, receipt)
	require.Len(t, logs, 1)
	require.Equal(t, "Withdraw", logs[0].Name)
	require.Equal(t, "15", logs[0].Payload["amount"])

	require.NoError(t, f.vault.Withdraw(ctx, alice, f.usdt.Address(), u(70)))

	require.Equal(t, uint64(25), f.nativeDeposits(alice))
	require.Equal(t, uint64(startBalance-25), f.coins(alice))
	require.Zero(t, f.tokenDeposits(alice, f.usdt))
	require.Equal(t, uint64(startBalance), f.tokens(t, f.usdt, alice))
	f.requireHealthy(t)
}

func TestWrapThenUnwrap(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for _, who := range []common.Address{alice, bob} {
		require.NoError(t, f.vault.Deposit(ctx, who, native, u(1), u(1)))
	}

	for _, who := range []common.Address{alice, bob} {
		receipt, err := f.exec(t, func(ctx context.Context) error {
			return f.vault.Wrap(ctx, who, u(1))
		})
		require.NoError(t, err)
		logs := decode(t, receipt)
		require.Equal(t, []string{"Transfer", "Wrap"}, []string{logs[0].Name, logs[1].Name})
		require.Equal(t, map[string]string{"account": hexLower(who), "amount": "1"}, logs[1].Payload)
	}
	require.Zero(t, f.nativeDeposits(alice))
	require.Zero(t, f.nativeDeposits(bob))
	require.Equal(t, uint64(1), f.wrapped(t, alice))
	require.Equal(t, uint64(1), f.wrapped(t, bob))
	require.Equal(t, uint64(2), f.vault.TotalSupply(ctx).Uint64())
	require.Equal(t, uint64(2), f.nativeDeposits(f.vault.Address()))
	f.requireHealthy(t)

	for _, who := range []common.Address{alice, bob} {
		receipt, err := f.exec(t, func(ctx context.Context) error {
			return f.vault.Unwrap(ctx, who, u(1))
		})
		require.NoError(t, err)
		logs := decode(t, receipt)
		require.Equal(t, "Unwrap", logs[len(logs)-1].Name)
	}
	require.Equal(t, uint64(1), f.nativeDeposits(alice))
	require.Equal(t, uint64(1), f.nativeDeposits(bob))
	require.Zero(t, f.wrapped(t, alice))
	require.Zero(t, f.wrapped(t, bob))
	require.True(t, f.vault.TotalSupply(ctx).IsZero())
	require.Equal(t, uint64(2), f.coins(f.vault.Address()), "wrapping never moves custody")
	f.requireHealthy(t)
}

func TestWrapRequiresNativeDeposit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.ErrorIs(t, f.vault.Wrap(ctx, alice, u(1)), vault.ErrInsufficientBalance)

	require.NoError(t, f.vault.Deposit(ctx, alice, native, u(5), u(5)))
	require.ErrorIs(t, f.vault.Wrap(ctx, alice, u(6)), vault.ErrInsufficientBalance)
	require.ErrorIs(t, f.vault.Unwrap(ctx, alice, u(1)), vault.ErrInsufficientBalance)

	require.NoError(t, f.vault.Wrap(ctx, alice, u(5)))
	require.ErrorIs(t, f.vault.Unwrap(ctx, alice, u(6)), vault.ErrInsufficientBalance)
	require.Equal(t, uint64(5), f.wrapped(t, alice))
	require.Zero(t, f.nativeDeposits(alice))
}

func TestAmountMismatch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.ErrorIs(t, f.vault.Deposit(ctx, alice, native, u(2), u(1)), vault.ErrAmountMismatch)
	require.ErrorIs(t, f.vault.Deposit(ctx, alice, native, u(1), nil), vault.ErrAmountMismatch)

	f.approve(t, f.usdt, alice, 5)
	require.ErrorIs(t, f.vault.Deposit(ctx, alice, f.usdt.Address(), u(5), u(5)), vault.ErrAmountMismatch)

	require.Zero(t, f.nativeDeposits(alice))
	require.Zero(t, f.tokenDeposits(alice, f.usdt))
	require.Equal(t, uint64(startBalance), f.coins(alice))
	require.Equal(t, uint64(startBalance), f.tokens(t, f.usdt, alice))
}

func TestZeroAmountsAreRejected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	zero := new(uint256.Int)

	require.ErrorIs(t, f.vault.Deposit(ctx, alice, native, zero, zero), vault.ErrInvalidAmount)
	require.ErrorIs(t, f.vault.Deposit(ctx, alice, f.usdt.Address(), zero, nil), vault.ErrInvalidAmount)
	require.ErrorIs(t, f.vault.Withdraw(ctx, alice, native, zero), vault.ErrInvalidAmount)
	require.ErrorIs(t, f.vault.Wrap(ctx, alice, zero), vault.ErrInvalidAmount)
	require.ErrorIs(t, f.vault.Unwrap(ctx, alice, zero), vault.ErrInvalidAmount)
	require.ErrorIs(t, f.vault.Withdraw(ctx, alice, native, nil), vault.ErrInvalidAmount)
}

func TestTokenDepositWithoutAllowanceFails(t *testing.T) {
	f := setup(t)
	err := f.vault.Deposit(context.Background(), alice, f.usdt.Address(), u(1), nil)
	require.ErrorIs(t, err, vault.ErrTransferFailed)
	require.ErrorIs(t, err, token.ErrInsufficientAllowance)
	require.Zero(t, f.tokenDeposits(alice, f.usdt))
}

func TestDepositUnknownAssetFails(t *testing.T) {
	f := setup(t)
	err := f.vault.Deposit(context.Background(), alice, common.HexToAddress("0xdead"), u(1), nil)
	require.ErrorIs(t, err, vault.ErrTransferFailed)
}

func TestTokenIsolation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.vault.Deposit(ctx, alice, native, u(10), u(10)))
	f.approve(t, f.dai, alice, 20)
	require.NoError(t, f.vault.Deposit(ctx, alice, f.dai.Address(), u(20), nil))

	f.approve(t, f.usdt, alice, 300)
	require.NoError(t, f.vault.Deposit(ctx, alice, f.usdt.Address(), u(300), nil))
	require.NoError(t, f.vault.Withdraw(ctx, alice, f.usdt.Address(), u(100)))

	require.Equal(t, uint64(200), f.tokenDeposits(alice, f.usdt))
	require.Equal(t, uint64(20), f.tokenDeposits(alice, f.dai))
	require.Equal(t, uint64(10), f.nativeDeposits(alice))
	require.Zero(t, f.tokenDeposits(bob, f.usdt))
	require.Equal(t, uint64(20), f.tokens(t, f.dai, f.vault.Address()))
	f.requireHealthy(t)
}

func TestFailedOperationInsideTransactionRevertsOnlyItself(t *testing.T) {
	f := setup(t)
	receipt, err := f.exec(t, func(ctx context.Context) error {
		if err := f.vault.Deposit(ctx, alice, native, u(3), u(3)); err != nil {
			return err
		}
		err := f.vault.Withdraw(ctx, alice, native, u(4))
		require.ErrorIs(t, err, vault.ErrInsufficientBalance)
		return nil
	})
	require.NoError(t, err)
	logs := decode(t, receipt)
	require.Len(t, logs, 1)
	require.Equal(t, "Deposit", logs[0].Name)
	require.Equal(t, uint64(3), f.nativeDeposits(alice))
}

func TestFailedTransactionLeavesNoTrace(t *testing.T) {
	f := setup(t)
	before := ledger.Commits(f.store)
	_, err := f.exec(t, func(ctx context.Context) error {
		if err := f.vault.Deposit(ctx, alice, native, u(3), u(3)); err != nil {
			return err
		}
		if err := f.vault.Wrap(ctx, alice, u(3)); err != nil {
			return err
		}
		return f.vault.Withdraw(ctx, alice, native, u(1))
	})
	require.ErrorIs(t, err, vault.ErrInsufficientBalance)
	require.Equal(t, before, ledger.Commits(f.store))
	require.Zero(t, f.nativeDeposits(alice))
	require.Zero(t, f.wrapped(t, alice))
	require.Equal(t, uint64(startBalance), f.coins(alice))
}

func TestWrappedTransfers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.vault.Deposit(ctx, alice, native, u(50), u(50)))
	require.NoError(t, f.vault.Wrap(ctx, alice, u(50)))

	ok, err := f.vault.Transfer(ctx, alice, bob, u(20))
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.vault.Approve(ctx, bob, carol, u(15))
	require.NoError(t, err)
	_, err = f.vault.TransferFrom(ctx, carol, bob, carol, u(10))
	require.NoError(t, err)
	left, err := f.vault.Allowance(ctx, bob, carol)
	require.NoError(t, err)
	require.Equal(t, uint64(5), left.Uint64())

	_, err = f.vault.TransferFrom(ctx, carol, bob, carol, u(6))
	require.ErrorIs(t, err, token.ErrInsufficientAllowance)

	require.Equal(t, uint64(30), f.wrapped(t, alice))
	require.Equal(t, uint64(10), f.wrapped(t, bob))
	require.Equal(t, uint64(10), f.wrapped(t, carol))
	require.Equal(t, uint64(50), f.vault.TotalSupply(ctx).Uint64())

	// Carol received wrapped units and can redeem them against custody.
	require.NoError(t, f.vault.Unwrap(ctx, carol, u(10)))
	require.NoError(t, f.vault.Withdraw(ctx, carol, native, u(10)))
	require.Equal(t, uint64(startBalance+10), f.coins(carol))
	f.requireHealthy(t)
}

func TestWrappedAssetIsDepositable(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	wrappedID := f.vault.Address()
	require.NoError(t, f.vault.Deposit(ctx, alice, native, u(9), u(9)))
	require.NoError(t, f.vault.Wrap(ctx, alice, u(9)))

	_, err := f.vault.Approve(ctx, alice, wrappedID, u(4))
	require.NoError(t, err)
	require.NoError(t, f.vault.Deposit(ctx, alice, wrappedID, u(4), nil))

	require.Equal(t, uint64(4), f.vault.TokenDeposits(ctx, alice, wrappedID).Uint64())
	require.Equal(t, uint64(5), f.wrapped(t, alice))
	require.Equal(t, uint64(4), f.wrapped(t, wrappedID))

	report, err := f.vault.Audit(ctx, wrappedID)
	require.NoError(t, err)
	require.True(t, report.Healthy)

	require.NoError(t, f.vault.Withdraw(ctx, alice, wrappedID, u(4)))
	require.Equal(t, uint64(9), f.wrapped(t, alice))
	require.Zero(t, f.vault.TokenDeposits(ctx, alice, wrappedID).Uint64())
}

func TestAuditToleratesDonations(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.vault.Deposit(ctx, alice, native, u(5), u(5)))
	require.NoError(t, f.chain.Bank().Transfer(ctx, bob, f.vault.Address(), u(7)))
	_, err := f.usdt.Transfer(ctx, bob, f.vault.Address(), u(3))
	require.NoError(t, err)

	report, err := f.vault.Audit(ctx, f.usdt.Address(), f.usdt.Address())
	require.NoError(t, err)
	require.True(t, report.Healthy)
	require.Len(t, report.Holdings, 2)
	require.Equal(t, uint64(5), report.Holdings[0].Owed.Uint64())
	require.Equal(t, uint64(12), report.Holdings[0].Held.Uint64())
	require.Equal(t, uint64(3), report.Holdings[1].Held.Uint64())
}

func TestAuditRejectsUnknownAsset(t *testing.T) {
	f := setup(t)
	_, err := f.vault.Audit(context.Background(), common.HexToAddress("0xbeef"))
	require.ErrorIs(t, err, vault.ErrTransferFailed)
}

func TestDeploymentsAreIsolated(t *testing.T) {
	a, b := setup(t), setup(t)
	ctx := context.Background()
	require.NoError(t, a.vault.Deposit(ctx, alice, native, u(3), u(3)))
	require.Equal(t, a.vault.Address(), b.vault.Address())
	require.Zero(t, b.nativeDeposits(alice))
}

func TestConservationUnderRandomOperations(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	accounts := []common.Address{alice, bob, carol}

	deposited := map[common.Address]uint64{}
	withdrawn := map[common.Address]uint64{}
	wrapped := map[common.Address]uint64{}

	for i := 0; i < 400; i++ {
		who := accounts[rng.Intn(len(accounts))]
		amount := uint64(rng.Intn(40) + 1)
		ledgerBal := deposited[who] - withdrawn[who]

		switch rng.Intn(4) {
		case 0:
			canPay := f.coins(who) >= amount
			err := f.vault.Deposit(ctx, who, native, u(amount), u(amount))
			if canPay {
				require.NoError(t, err)
				deposited[who] += amount
			} else {
				require.ErrorIs(t, err, vault.ErrTransferFailed)
			}
		case 1:
			err := f.vault.Withdraw(ctx, who, native, u(amount))
			if amount <= ledgerBal {
				require.NoError(t, err)
				withdrawn[who] += amount
			} else {
				require.ErrorIs(t, err, vault.ErrInsufficientBalance)
			}
		case 2:
			err := f.vault.Wrap(ctx, who, u(amount))
			if amount <= ledgerBal {
				require.NoError(t, err)
				withdrawn[who] += amount
				wrapped[who] += amount
			} else {
				require.ErrorIs(t, err, vault.ErrInsufficientBalance)
			}
		case 3:
			err := f.vault.Unwrap(ctx, who, u(amount))
			if amount <= wrapped[who] {
				require.NoError(t, err)
				wrapped[who] -= amount
				deposited[who] += amount
			} else {
				require.ErrorIs(t, err, vault.ErrInsufficientBalance)
			}
		}

		var owed, supply uint64
		for _, a := range accounts {
			require.Equal(t, deposited[a]-withdrawn[a], f.nativeDeposits(a))
			require.Equal(t, wrapped[a], f.wrapped(t, a))
			owed += f.nativeDeposits(a)
			supply += wrapped[a]
		}
		require.Equal(t, supply, f.nativeDeposits(f.vault.Address()))
		require.Equal(t, owed+supply, f.coins(f.vault.Address()))
	}
	f.requireHealthy(t)
}

func TestSameTokenDepositsAcrossAccounts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for i, who := range []common.Address{alice, bob, carol} {
		amount := uint64(10 * (i + 1))
		f.approve(t, f.usdt, who, amount)
		require.NoError(t, f.vault.Deposit(ctx, who, f.usdt.Address(), u(amount), nil))
	}
	require.Equal(t, uint64(60), f.tokens(t, f.usdt, f.vault.Address()))

	err := f.vault.Withdraw(ctx, alice, f.usdt.Address(), u(11))
	require.ErrorIs(t, err, vault.ErrInsufficientBalance, "custody of others is not reachable")
	require.NoError(t, f.vault.Withdraw(ctx, carol, f.usdt.Address(), u(30)))
	require.Equal(t, uint64(30), f.tokens(t, f.usdt, f.vault.Address()))
	f.requireHealthy(t)
}

func TestErrorsAreDistinguishable(t *testing.T) {
	errs := []error{
		vault.ErrInsufficientBalance,
		vault.ErrAmountMismatch,
		vault.ErrTransferFailed,
		vault.ErrInvalidAmount,
		vault.ErrBalanceOverflow,
		vault.ErrReentrantCall,
	}
	for i, a := range errs {
		for j, b := range errs {
			require.Equal(t, i == j, errors.Is(a, b), "%v vs %v", a, b)
		}
	}
}
