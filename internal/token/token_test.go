package token_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/custody-vault/internal/chain"
	"github.com/congo-pay/custody-vault/internal/ledger"
	"github.com/congo-pay/custody-vault/internal/logging"
	"github.com/congo-pay/custody-vault/internal/token"
)

var (
	owner = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func deploy(t *testing.T) (*chain.Chain, *token.ERC20) {
	t.Helper()
	c := chain.New(ledger.NewInMemory(), chain.WithLogger(logging.Discard()))
	var tok *token.ERC20
	c.Deploy(owner, func(addr common.Address) any {
		tok = token.New(c, addr, token.Metadata{Name: "Tether USD", Symbol: "USDT", Decimals: 6}, owner)
		return tok
	})
	require.NoError(t, tok.Mint(context.Background(), owner, alice, uint256.NewInt(100)))
	return c, tok
}

func balance(t *testing.T, tok *token.ERC20, who common.Address) uint64 {
	t.Helper()
	v, err := tok.BalanceOf(context.Background(), who)
	require.NoError(t, err)
	return v.Uint64()
}

func TestMetadataAndSupply(t *testing.T) {
	c, tok := deploy(t)
	require.Equal(t, "Tether USD", tok.Name())
	require.Equal(t, "USDT", tok.Symbol())
	require.Equal(t, uint8(6), tok.Decimals())
	require.Equal(t, uint64(100), tok.TotalSupply(context.Background()).Uint64())

	resolved, ok := c.Token(tok.Address())
	require.True(t, ok)
	require.Same(t, tok, resolved)
}

func TestTransfer(t *testing.T) {
	_, tok := deploy(t)
	ctx := context.Background()

	ok, err := tok.Transfer(ctx, alice, bob, uint256.NewInt(30))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(70), balance(t, tok, alice))
	require.Equal(t, uint64(30), balance(t, tok, bob))

	ok, err = tok.Transfer(ctx, alice, alice, uint256.NewInt(70))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(70), balance(t, tok, alice))

	ok, err = tok.Transfer(ctx, alice, bob, new(uint256.Int))
	require.NoError(t, err, "zero-value transfers are allowed")
	require.True(t, ok)

	ok, err = tok.Transfer(ctx, bob, alice, uint256.NewInt(31))
	require.ErrorIs(t, err, token.ErrInsufficientBalance)
	require.False(t, ok)

	_, err = tok.Transfer(ctx, alice, common.Address{}, uint256.NewInt(1))
	require.ErrorIs(t, err, token.ErrInvalidRecipient)
	require.Equal(t, uint64(100), tok.TotalSupply(ctx).Uint64())
}

func TestTransferFromSpendsAllowance(t *testing.T) {
	_, tok := deploy(t)
	ctx := context.Background()

	_, err := tok.TransferFrom(ctx, bob, alice, bob, uint256.NewInt(1))
	require.ErrorIs(t, err, token.ErrInsufficientAllowance)

	_, err = tok.Approve(ctx, alice, bob, uint256.NewInt(40))
	require.NoError(t, err)

	ok, err := tok.TransferFrom(ctx, bob, alice, bob, uint256.NewInt(25))
	require.NoError(t, err)
	require.True(t, ok)

	left, err := tok.Allowance(ctx, alice, bob)
	require.NoError(t, err)
	require.Equal(t, uint64(15), left.Uint64())

	_, err = tok.TransferFrom(ctx, bob, alice, bob, uint256.NewInt(16))
	require.ErrorIs(t, err, token.ErrInsufficientAllowance)
	require.Equal(t, uint64(25), balance(t, tok, bob))
}

func TestUnlimitedAllowanceIsNotDecremented(t *testing.T) {
	_, tok := deploy(t)
	ctx := context.Background()

	_, err := tok.Approve(ctx, alice, bob, token.Unlimited())
	require.NoError(t, err)
	_, err = tok.TransferFrom(ctx, bob, alice, bob, uint256.NewInt(60))
	require.NoError(t, err)

	left, err := tok.Allowance(ctx, alice, bob)
	require.NoError(t, err)
	require.True(t, left.Eq(token.Unlimited()))
}

func TestFailedTransferFromRestoresAllowance(t *testing.T) {
	_, tok := deploy(t)
	ctx := context.Background()

	_, err := tok.Approve(ctx, alice, bob, uint256.NewInt(500))
	require.NoError(t, err)
	_, err = tok.TransferFrom(ctx, bob, alice, bob, uint256.NewInt(200))
	require.ErrorIs(t, err, token.ErrInsufficientBalance)

	left, err := tok.Allowance(ctx, alice, bob)
	require.NoError(t, err)
	require.Equal(t, uint64(500), left.Uint64())
}

func TestMintAndBurnRestrictedToMinter(t *testing.T) {
	_, tok := deploy(t)
	ctx := context.Background()

	require.ErrorIs(t, tok.Mint(ctx, alice, alice, uint256.NewInt(1)), token.ErrUnauthorized)
	require.ErrorIs(t, tok.Burn(ctx, alice, alice, uint256.NewInt(1)), token.ErrUnauthorized)

	require.NoError(t, tok.Burn(ctx, owner, alice, uint256.NewInt(40)))
	require.Equal(t, uint64(60), balance(t, tok, alice))
	require.Equal(t, uint64(60), tok.TotalSupply(ctx).Uint64())

	require.ErrorIs(t, tok.Burn(ctx, owner, alice, uint256.NewInt(61)), token.ErrInsufficientBalance)
	require.ErrorIs(t, tok.Mint(ctx, owner, common.Address{}, uint256.NewInt(1)), token.ErrInvalidRecipient)
}

func TestMintOverflow(t *testing.T) {
	_, tok := deploy(t)
	err := tok.Mint(context.Background(), owner, bob, new(uint256.Int).SetAllOne())
	require.ErrorIs(t, err, token.ErrSupplyOverflow)
	require.Equal(t, uint64(0), balance(t, tok, bob))
}

func TestEventsAreRecorded(t *testing.T) {
	c, tok := deploy(t)
	receipt, err := c.Execute(context.Background(), "evt", func(ctx context.Context) error {
		if _, err := tok.Approve(ctx, alice, bob, uint256.NewInt(10)); err != nil {
			return err
		}
		_, err := tok.TransferFrom(ctx, bob, alice, bob, uint256.NewInt(10))
		return err
	})
	require.NoError(t, err)

	names := make([]string, 0, len(receipt.Logs))
	for _, l := range receipt.Logs {
		require.Equal(t, tok.Address(), l.Address)
		names = append(names, l.Name)
	}
	require.Equal(t, []string{"Approval", "Approval", "Transfer"}, names)
}

func TestSupplyMatchesBalances(t *testing.T) {
	_, tok := deploy(t)
	ctx := context.Background()
	holders := []common.Address{alice, bob, owner}

	moves := []struct {
		from, to common.Address
		amount   uint64
	}{
		{alice, bob, 10}, {bob, owner, 3}, {alice, owner, 200}, {owner, alice, 1},
	}
	for _, m := range moves {
		_, err := tok.Transfer(ctx, m.from, m.to, uint256.NewInt(m.amount))
		if err != nil && !errors.Is(err, token.ErrInsufficientBalance) {
			t.Fatalf("transfer: %v", err)
		}
		var sum uint64
		for _, h := range holders {
			sum += balance(t, tok, h)
		}
		require.Equal(t, tok.TotalSupply(ctx).Uint64(), sum)
	}
}
