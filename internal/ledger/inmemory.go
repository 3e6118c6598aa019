package ledger

import (
	"context"
	"sync"

	"github.com/holiman/uint256"

	"github.com/congo-pay/custody-vault/internal/state"
)

type inMemoryLedger struct {
	mu       sync.RWMutex
	entries  map[state.Key]uint256.Int
	receipts map[string]Receipt
	commits  int
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit tests.
func NewInMemory() Store {
	return &inMemoryLedger{
		entries:  make(map[state.Key]uint256.Int),
		receipts: make(map[string]Receipt),
	}
}

func (l *inMemoryLedger) Load(_ context.Context) (map[state.Key]uint256.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[state.Key]uint256.Int, len(l.entries))
	for k, v := range l.entries {
		out[k] = v
	}
	return out, nil
}

func (l *inMemoryLedger) Commit(_ context.Context, c Commit) (Receipt, error) {
	records, err := Records(c.Changes.Logs)
	if err != nil {
		return Receipt{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if c.ClientTxID != "" {
		if res, exists := l.receipts[c.ClientTxID]; exists {
			return res, ErrDuplicateTransaction
		}
	}

	for _, w := range c.Changes.Writes {
		l.entries[w.Key] = w.Value
	}

	res := Receipt{
		TransactionID: c.TransactionID,
		ClientTxID:    c.ClientTxID,
		Status:        StatusCommitted,
		Logs:          records,
		CommittedAt:   c.CommittedAt,
	}
	if c.ClientTxID != "" {
		l.receipts[c.ClientTxID] = res
	}
	l.commits++
	return res, nil
}

func (l *inMemoryLedger) Receipt(_ context.Context, clientTxID string) (Receipt, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	res, ok := l.receipts[clientTxID]
	if !ok {
		return Receipt{}, ErrReceiptNotFound
	}
	return res, nil
}
