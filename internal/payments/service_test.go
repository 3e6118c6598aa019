package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/congo-pay/custody-vault/internal/asset"
	"github.com/congo-pay/custody-vault/internal/chain"
	"github.com/congo-pay/custody-vault/internal/ledger"
	"github.com/congo-pay/custody-vault/internal/logging"
	"github.com/congo-pay/custody-vault/internal/notification"
	"github.com/congo-pay/custody-vault/internal/token"
	"github.com/congo-pay/custody-vault/internal/vault"
	"github.com/congo-pay/custody-vault/internal/wallet"
)

var operator = common.HexToAddress("0x00000000000000000000000000000000000000aa")

// one wrapped unit at 18 decimals.
var one = uint256.NewInt(1_000_000_000_000_000_000)

type testNotifier struct {
	sent []notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.sent = append(n.sent, msg)
	return nil
}

type fixture struct {
	chain     *chain.Chain
	vault     *vault.Vault
	walletSvc *wallet.Service
	from, to  wallet.Wallet
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := chain.New(ledger.NewInMemory(), chain.WithLogger(logging.Discard()))
	var v *vault.Vault
	c.Deploy(operator, func(addr common.Address) any {
		v = vault.New(vault.Env{Backend: c, Bank: c.Bank(), Tokens: c}, addr, vault.WithLogger(logging.Discard()))
		return v
	})
	walletSvc := wallet.NewService(wallet.NewMemoryRepository(), c.Bank(), v)

	ctx := context.Background()
	from, err := walletSvc.Create(ctx, wallet.CreateInput{OwnerID: uuid.NewString(), Account: common.HexToAddress("0x0a")})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	to, err := walletSvc.Create(ctx, wallet.CreateInput{OwnerID: uuid.NewString(), Account: common.HexToAddress("0x0b")})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	return &fixture{chain: c, vault: v, walletSvc: walletSvc, from: from, to: to}
}

// wrap gives the source wallet n wrapped units.
func (f *fixture) wrap(t *testing.T, n uint64) {
	t.Helper()
	ctx := context.Background()
	amount := new(uint256.Int).Mul(uint256.NewInt(n), one)
	if err := f.chain.Bank().Mint(ctx, f.from.Account, amount); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := f.vault.Deposit(ctx, f.from.Account, asset.Native, amount, amount); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := f.vault.Wrap(ctx, f.from.Account, amount); err != nil {
		t.Fatalf("wrap: %v", err)
	}
}

func TestTransferSuccess(t *testing.T) {
	f := newFixture(t)
	notifier := &testNotifier{}
	svc := NewService(f.chain, f.vault, f.walletSvc, notifier)
	f.wrap(t, 10)

	ctx := context.Background()
	res, err := svc.Transfer(ctx, TransferInput{FromWalletID: f.from.ID, ToWalletID: f.to.ID, Amount: "2.5", ClientTxID: "abc"})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	if got := res.ToBalance.Dec(); got != "2500000000000000000" {
		t.Fatalf("unexpected recipient balance: %s", got)
	}
	if got := res.FromBalance.Dec(); got != "7500000000000000000" {
		t.Fatalf("unexpected sender balance: %s", got)
	}

	if len(notifier.sent) != 1 || notifier.sent[0].Kind != notification.KindWrappedTransfer {
		t.Fatalf("expected notification to be sent, got %+v", notifier.sent)
	}
	if notifier.sent[0].Destination != f.to.OwnerID {
		t.Fatalf("expected notification for %s, got %s", f.to.OwnerID, notifier.sent[0].Destination)
	}

	if _, err := svc.Transfer(ctx, TransferInput{FromWalletID: f.from.ID, ToWalletID: f.to.ID, Amount: "2.5", ClientTxID: "abc"}); !errors.Is(err, ledger.ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("duplicate must not notify again")
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.chain, f.vault, f.walletSvc, nil)

	ctx := context.Background()
	if _, err := svc.Transfer(ctx, TransferInput{FromWalletID: f.from.ID, ToWalletID: f.to.ID, Amount: "1", ClientTxID: "abc"}); !errors.Is(err, token.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if supply := f.vault.TotalSupply(ctx); !supply.IsZero() {
		t.Fatalf("expected no wrapped supply, got %s", supply)
	}
}

func TestTransferRejects(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.chain, f.vault, f.walletSvc, nil)
	f.wrap(t, 1)
	ctx := context.Background()

	if _, err := svc.Transfer(ctx, TransferInput{FromWalletID: f.from.ID, ToWalletID: f.to.ID, Amount: "0"}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := svc.Transfer(ctx, TransferInput{FromWalletID: f.from.ID, ToWalletID: f.from.ID, Amount: "1"}); !errors.Is(err, ErrSameWallet) {
		t.Fatalf("expected same wallet rejection, got %v", err)
	}
	if _, err := svc.Transfer(ctx, TransferInput{FromWalletID: f.from.ID, ToWalletID: f.to.ID, Amount: "1", RequestorUserID: f.to.OwnerID}); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected not owner, got %v", err)
	}
}
