package routes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/congo-pay/custody-vault/internal/chain"
	"github.com/congo-pay/custody-vault/internal/ledger"
	"github.com/congo-pay/custody-vault/internal/logging"
	"github.com/congo-pay/custody-vault/internal/metrics"
	"github.com/congo-pay/custody-vault/internal/notification"
	"github.com/congo-pay/custody-vault/internal/token"
	"github.com/congo-pay/custody-vault/internal/vault"
)

// custody is the ledger core every route group works against.
type custody struct {
	chain    *chain.Chain
	vault    *vault.Vault
	tokens   map[string]common.Address
	metrics  *metrics.Collector
	notifier notification.Notifier
}

// buildCustody restores persisted state and reattaches the vault followed by
// the configured tokens. Addresses derive from the operator and a nonce, so the
// same configuration always yields the same addresses. Tokens deployed at
// runtime through the dev endpoint are not reattached after a restart.
func buildCustody(ctx context.Context, d Deps) (*custody, error) {
	var store ledger.Store
	if d.DB != nil {
		pg := ledger.NewPostgresLedger(d.DB)
		if err := pg.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate ledger: %w", err)
		}
		store = pg
	} else {
		store = ledger.NewInMemory()
	}

	collector := d.Metrics
	if collector == nil {
		collector = metrics.New()
	}

	var notifier notification.Notifier = notification.NewLoggerNotifier(d.Logger)
	if d.Cache != nil {
		notifier = notification.Multi{
			notifier,
			notification.NewStreamNotifier(d.Cache, d.Cfg.EventStream, d.Cfg.StreamMaxLen),
		}
	}

	c := chain.New(store,
		chain.WithLogger(logging.Component(d.Logger, "chain")),
		chain.WithMetrics(collector),
		chain.WithNotifier(notifier),
	)
	if err := c.Load(ctx); err != nil {
		return nil, err
	}

	out := &custody{chain: c, tokens: map[string]common.Address{}, metrics: collector, notifier: notifier}
	if _, err := c.Attach(d.Cfg.Operator, func(addr common.Address) any {
		out.vault = vault.New(vault.Env{Backend: c, Bank: c.Bank(), Tokens: c}, addr,
			vault.WithReentrancyGuard(d.Cfg.ReentrancyGuard),
			vault.WithLogger(logging.Component(d.Logger, "vault")),
			vault.WithMetrics(collector),
			vault.WithMetadata(token.Metadata{
				Name:     vault.DefaultMetadata.Name,
				Symbol:   vault.DefaultMetadata.Symbol,
				Decimals: d.Cfg.NativeDecimals,
			}),
		)
		return out.vault
	}); err != nil {
		return nil, fmt.Errorf("attach vault: %w", err)
	}
	for _, spec := range d.Cfg.Tokens {
		meta := token.Metadata{Name: spec.Name, Symbol: spec.Symbol, Decimals: spec.Decimals}
		addr, err := c.Attach(d.Cfg.Operator, func(addr common.Address) any {
			return token.New(c, addr, meta, d.Cfg.Operator)
		})
		if err != nil {
			return nil, fmt.Errorf("attach token %s: %w", spec.Symbol, err)
		}
		out.tokens[spec.Symbol] = addr
	}

	d.Logger.Info("custody ready",
		slog.String("vault", out.vault.Address().Hex()),
		slog.Int("tokens", len(out.tokens)),
		slog.Bool("reentrancy_guard", d.Cfg.ReentrancyGuard),
	)
	return out, nil
}
