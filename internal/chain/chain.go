// Package chain is the in-process execution host. It linearizes transactions,
// runs nested call frames against the journaled world state, persists committed
// transactions and publishes their logs.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/congo-pay/custody-vault/internal/asset"
	"github.com/congo-pay/custody-vault/internal/ledger"
	"github.com/congo-pay/custody-vault/internal/metrics"
	"github.com/congo-pay/custody-vault/internal/notification"
	"github.com/congo-pay/custody-vault/internal/state"
)

// ErrNestedTransaction is returned when Execute is called from inside a running
// transaction. Nested work must go through Call.
var ErrNestedTransaction = errors.New("chain: transaction already in progress")

// ErrAddressOccupied is returned when a contract is already registered at the
// derived deployment address.
var ErrAddressOccupied = errors.New("chain: address already occupied")

const (
	statusCommitted = "committed"
	statusReverted  = "reverted"
	statusDuplicate = "duplicate"
	statusFailed    = "persist_failed"
)

type txKey struct{}

// Option customises a Chain.
type Option func(*Chain)

// WithNotifier publishes committed logs to n.
func WithNotifier(n notification.Notifier) Option {
	return func(c *Chain) { c.notifier = n }
}

// WithMetrics records transaction outcomes.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Chain) { c.metrics = m }
}

// WithLogger sets the chain logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Chain) { c.logger = l }
}

// WithClock overrides the commit timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Chain) { c.now = now }
}

// Chain executes transactions one at a time over a shared world state.
type Chain struct {
	mu sync.Mutex
	db *state.DB

	store    ledger.Store
	notifier notification.Notifier
	metrics  *metrics.Collector
	logger   *slog.Logger
	now      func() time.Time

	contractsMu sync.RWMutex
	contracts   map[common.Address]any
	nonces      map[common.Address]uint64

	bank *Bank
}

// New creates a chain persisting through store.
func New(store ledger.Store, opts ...Option) *Chain {
	c := &Chain{
		db:        state.New(),
		store:     store,
		logger:    slog.Default(),
		now:       time.Now,
		contracts: make(map[common.Address]any),
		nonces:    make(map[common.Address]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.bank = &Bank{chain: c}
	return c
}

// Bank returns the native coin bank.
func (c *Chain) Bank() *Bank { return c.bank }

// Load replaces the in-memory state with what the store has persisted.
func (c *Chain) Load(ctx context.Context) error {
	entries, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.db.Load(entries)
	c.logger.Info("state loaded", "slots", len(entries))
	return nil
}

// Execute runs fn as one top-level transaction. Every write and log fn makes is
// persisted and published together, or not at all when fn fails.
//
// A non-empty clientTxID that was already committed returns the original receipt
// together with ledger.ErrDuplicateTransaction, and fn is not run.
func (c *Chain) Execute(ctx context.Context, clientTxID string, fn func(ctx context.Context) error) (ledger.Receipt, error) {
	if c.inTransaction(ctx) {
		return ledger.Receipt{}, ErrNestedTransaction
	}
	if clientTxID != "" {
		receipt, err := c.store.Receipt(ctx, clientTxID)
		switch {
		case err == nil:
			c.metrics.Transaction(statusDuplicate)
			return receipt, ledger.ErrDuplicateTransaction
		case !errors.Is(err, ledger.ErrReceiptNotFound):
			return ledger.Receipt{}, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	txID := uuid.NewString()
	txCtx := context.WithValue(ctx, txKey{}, c)

	if err := c.run(txCtx, fn); err != nil {
		c.db.Discard()
		c.metrics.Transaction(statusReverted)
		c.logger.Debug("transaction reverted", "tx_id", txID, "client_tx_id", clientTxID, "error", err)
		return ledger.Receipt{}, err
	}

	receipt, err := c.store.Commit(ctx, ledger.Commit{
		TransactionID: txID,
		ClientTxID:    clientTxID,
		Changes:       c.db.Pending(),
		CommittedAt:   c.now().UTC(),
	})
	if err != nil {
		c.db.Discard()
		if errors.Is(err, ledger.ErrDuplicateTransaction) {
			c.metrics.Transaction(statusDuplicate)
			return receipt, err
		}
		c.metrics.Transaction(statusFailed)
		return ledger.Receipt{}, fmt.Errorf("persist transaction: %w", err)
	}
	c.db.Finalize()
	c.metrics.Transaction(statusCommitted)
	c.publish(ctx, receipt)
	return receipt, nil
}

func (c *Chain) run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.db.Discard()
			panic(r)
		}
	}()
	return fn(ctx)
}

// Call runs fn as a call frame. Inside a transaction a failing frame reverts its
// own writes and logs only; outside one, Call opens an anonymous transaction.
func (c *Chain) Call(ctx context.Context, fn func(ctx context.Context, db *state.DB) error) error {
	if !c.inTransaction(ctx) {
		_, err := c.Execute(ctx, "", func(ctx context.Context) error {
			return c.Call(ctx, fn)
		})
		return err
	}
	snap := c.db.Snapshot()
	if err := fn(ctx, c.db); err != nil {
		c.db.RevertToSnapshot(snap)
		return err
	}
	return nil
}

// Read returns the in-flight state for ctx's transaction, or the committed state.
func (c *Chain) Read(ctx context.Context) state.Reader {
	if c.inTransaction(ctx) {
		return c.db
	}
	return c.db.Committed()
}

// View runs fn against one consistent state. Outside a transaction it holds the
// execution lock for the duration of fn, so multi-read reports such as audits
// never straddle a commit.
func (c *Chain) View(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.inTransaction(ctx) {
		return fn(ctx)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.db.Discard()
	return c.run(context.WithValue(ctx, txKey{}, c), fn)
}

func (c *Chain) inTransaction(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Chain)
	return owner == c
}

func (c *Chain) publish(ctx context.Context, receipt ledger.Receipt) {
	if c.notifier == nil {
		return
	}
	for _, rec := range receipt.Logs {
		msg := notification.Message{
			Kind:        rec.Name,
			Destination: rec.Address.Hex(),
			Body:        string(rec.Payload),
		}
		if err := c.notifier.Send(ctx, msg); err != nil {
			c.metrics.NotificationFailed()
			c.logger.Warn("publish log failed", "tx_id", receipt.TransactionID, "index", rec.Index, "error", err)
		}
	}
}

// Deploy registers the contract returned by build at the next deterministic
// address of deployer. Addresses that already carry committed state, left by a
// contract deployed before a restart, are skipped so a new contract never
// inherits someone else's balances. An address already registered in this
// process is rejected with ErrAddressOccupied; its nonce is still consumed.
func (c *Chain) Deploy(deployer common.Address, build func(addr common.Address) any) (common.Address, error) {
	c.contractsMu.Lock()
	defer c.contractsMu.Unlock()
	for {
		addr, nonce := c.nextAddress(deployer)
		if _, ok := c.contracts[addr]; ok {
			return common.Address{}, fmt.Errorf("%w: %s", ErrAddressOccupied, addr.Hex())
		}
		if c.db.Owns(addr) {
			c.logger.Warn("deploy skipped address with persisted state", "deployer", deployer.Hex(), "address", addr.Hex(), "nonce", nonce)
			continue
		}
		c.register(deployer, addr, nonce, build)
		return addr, nil
	}
}

// Attach registers build at the next deterministic address of deployer and
// binds it to whatever state that address already has. Boot uses it to bring
// back the configured contracts, which must be attached in the same order on
// every start.
func (c *Chain) Attach(deployer common.Address, build func(addr common.Address) any) (common.Address, error) {
	c.contractsMu.Lock()
	defer c.contractsMu.Unlock()
	addr, nonce := c.nextAddress(deployer)
	if _, ok := c.contracts[addr]; ok {
		return common.Address{}, fmt.Errorf("%w: %s", ErrAddressOccupied, addr.Hex())
	}
	c.register(deployer, addr, nonce, build)
	return addr, nil
}

func (c *Chain) nextAddress(deployer common.Address) (common.Address, uint64) {
	nonce := c.nonces[deployer]
	c.nonces[deployer] = nonce + 1
	return crypto.CreateAddress(deployer, nonce), nonce
}

func (c *Chain) register(deployer, addr common.Address, nonce uint64, build func(addr common.Address) any) {
	c.contracts[addr] = build(addr)
	c.logger.Info("contract deployed", "deployer", deployer.Hex(), "address", addr.Hex(), "nonce", nonce)
}

// Contract returns the contract deployed at addr.
func (c *Chain) Contract(addr common.Address) (any, bool) {
	c.contractsMu.RLock()
	defer c.contractsMu.RUnlock()
	v, ok := c.contracts[addr]
	return v, ok
}

// Token resolves an asset identity to the token contract deployed there.
func (c *Chain) Token(id common.Address) (asset.Token, bool) {
	v, ok := c.Contract(id)
	if !ok {
		return nil, false
	}
	tok, ok := v.(asset.Token)
	return tok, ok
}

// Tokens exposes the chain as an asset.Resolver.
func (c *Chain) Tokens() asset.Resolver { return c }

var (
	_ state.Backend  = (*Chain)(nil)
	_ asset.Resolver = (*Chain)(nil)
)
