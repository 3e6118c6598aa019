package wallet

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Wallet
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Wallet)}
}

func (r *memoryRepository) Create(_ context.Context, wallet Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.storage {
		if w.ID == wallet.ID || w.OwnerID == wallet.OwnerID || w.Account == wallet.Account {
			return ErrExists
		}
	}
	r.storage[wallet.ID] = wallet
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wallet, ok := r.storage[id]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return wallet, nil
}

func (r *memoryRepository) GetByOwner(_ context.Context, ownerID string) (Wallet, error) {
	return r.find(func(w Wallet) bool { return w.OwnerID == ownerID })
}

func (r *memoryRepository) GetByAccount(_ context.Context, account common.Address) (Wallet, error) {
	return r.find(func(w Wallet) bool { return w.Account == account })
}

func (r *memoryRepository) find(match func(Wallet) bool) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.storage {
		if match(w) {
			return w, nil
		}
	}
	return Wallet{}, ErrNotFound
}
