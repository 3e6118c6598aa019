package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/congo-pay/custody-vault/internal/state"
)

var (
	// ErrDuplicateTransaction indicates the provided client transaction identifier
	// already exists and therefore the operation should be treated as idempotent.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrReceiptNotFound is returned when no committed transaction carries the
	// requested client transaction identifier.
	ErrReceiptNotFound = errors.New("receipt not found")
)

const (
	// StatusCommitted marks a transaction whose changes were persisted.
	StatusCommitted = "committed"
)

// LogRecord is the persisted form of a contract log.
type LogRecord struct {
	Index   int             `json:"index"`
	Address common.Address  `json:"address"`
	Name    string          `json:"name"`
	Topic   common.Hash     `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Receipt captures the outcome of a committed chain transaction.
type Receipt struct {
	TransactionID string      `json:"transaction_id"`
	ClientTxID    string      `json:"client_tx_id,omitempty"`
	Status        string      `json:"status"`
	Logs          []LogRecord `json:"logs"`
	CommittedAt   time.Time   `json:"committed_at"`
}

// Commit is one transaction's worth of state to persist atomically.
type Commit struct {
	TransactionID string
	ClientTxID    string
	Changes       state.Changeset
	CommittedAt   time.Time
}

// Store defines the contract implemented by ledger backends (e.g. Postgres).
type Store interface {
	// Load returns every persisted state slot.
	Load(ctx context.Context) (map[state.Key]uint256.Int, error)
	// Commit persists a transaction's writes and logs in one unit. A client
	// transaction identifier that was already committed yields
	// ErrDuplicateTransaction and persists nothing.
	Commit(ctx context.Context, c Commit) (Receipt, error)
	// Receipt looks up a committed transaction by client transaction identifier.
	Receipt(ctx context.Context, clientTxID string) (Receipt, error)
}

// Records converts logs into their persisted form.
func Records(logs []state.Log) ([]LogRecord, error) {
	out := make([]LogRecord, 0, len(logs))
	for i, l := range logs {
		payload, err := json.Marshal(l.Event)
		if err != nil {
			return nil, err
		}
		out = append(out, LogRecord{
			Index:   i,
			Address: l.Address,
			Name:    l.Name(),
			Topic:   l.Topic(),
			Payload: payload,
		})
	}
	return out, nil
}
