package ledger

import (
	"github.com/holiman/uint256"

	"github.com/congo-pay/custody-vault/internal/state"
)

// SeedEntry is a test helper that writes a slot directly when using the in-memory ledger.
func SeedEntry(l Store, key state.Key, amount uint64) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.entries[key] = *uint256.NewInt(amount)
	}
}

// Commits reports how many transactions an in-memory ledger persisted.
func Commits(l Store) int {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.RLock()
		defer mem.mu.RUnlock()
		return mem.commits
	}
	return 0
}
