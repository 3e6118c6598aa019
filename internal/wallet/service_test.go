package wallet

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
	"github.com/congo-pay/custody-vault/internal/vault"
)

var operator = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func newCustody(t *testing.T) (*chain.Chain, *vault.Vault) {
	t.Helper()
	c := chain.New(ledger.NewInMemory(), chain.WithLogger(logging.Discard()))
	var v *vault.Vault
	c.Deploy(operator, func(addr common.Address) any {
		v = vault.New(vault.Env{Backend: c, Bank: c.Bank(), Tokens: c}, addr, vault.WithLogger(logging.Discard()))
		return v
	})
	return c, v
}

func TestServiceCreateAndOverview(t *testing.T) {
	c, v := newCustody(t)
	svc := NewService(NewMemoryRepository(), c.Bank(), v)

	ctx := context.Background()
	ownerID := uuid.NewString()
	account := common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	wallet, err := svc.Create(ctx, CreateInput{OwnerID: ownerID, Account: account})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	fetched, err := svc.GetByOwner(ctx, ownerID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if fetched.ID != wallet.ID || fetched.Account != account {
		t.Fatalf("expected wallet ID %s, got %s", wallet.ID, fetched.ID)
	}

	if err := c.Bank().Mint(ctx, account, uint256.NewInt(2_500)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := v.Deposit(ctx, account, asset.Native, uint256.NewInt(1_000), uint256.NewInt(1_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := v.Wrap(ctx, account, uint256.NewInt(400)); err != nil {
		t.Fatalf("wrap: %v", err)
	}

	ov, err := svc.Overview(ctx, wallet.ID)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if ov.Native.Uint64() != 1_500 {
		t.Fatalf("expected native 1500, got %s", ov.Native)
	}
	if ov.Deposited.Uint64() != 600 {
		t.Fatalf("expected deposited 600, got %s", ov.Deposited)
	}
	if ov.Wrapped.Uint64() != 400 {
		t.Fatalf("expected wrapped 400, got %s", ov.Wrapped)
	}
}

func TestServiceCreateRejects(t *testing.T) {
	c, v := newCustody(t)
	svc := NewService(NewMemoryRepository(), c.Bank(), v)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{OwnerID: "not-a-uuid", Account: operator}); err == nil {
		t.Fatalf("expected invalid owner error")
	}
	if _, err := svc.Create(ctx, CreateInput{OwnerID: uuid.NewString()}); err == nil {
		t.Fatalf("expected missing account error")
	}

	owner := uuid.NewString()
	if _, err := svc.Create(ctx, CreateInput{OwnerID: owner, Account: operator}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{OwnerID: owner, Account: common.HexToAddress("0x01")}); !errors.Is(err, ErrExists) {
		t.Fatalf("expected one wallet per owner, got %v", err)
	}
	if _, err := svc.Get(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
