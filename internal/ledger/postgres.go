package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/custody-vault/internal/state"
)

// Schema creates the tables used by PostgresLedger.
const Schema = `
CREATE TABLE IF NOT EXISTS state_entries (
    owner      BYTEA         NOT NULL,
    tbl        SMALLINT      NOT NULL,
    a          BYTEA         NOT NULL,
    b          BYTEA         NOT NULL,
    value      NUMERIC(78,0) NOT NULL CHECK (value >= 0),
    updated_at TIMESTAMPTZ   NOT NULL,
    PRIMARY KEY (owner, tbl, a, b)
);

CREATE TABLE IF NOT EXISTS transactions (
    id           UUID PRIMARY KEY,
    client_tx_id TEXT UNIQUE,
    status       TEXT        NOT NULL,
    committed_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS logs (
    transaction_id UUID    NOT NULL REFERENCES transactions (id),
    idx            INTEGER NOT NULL,
    address        BYTEA   NOT NULL,
    name           TEXT    NOT NULL,
    topic          BYTEA   NOT NULL,
    payload        JSONB   NOT NULL,
    PRIMARY KEY (transaction_id, idx)
);`

// PostgresLedger persists world state and transaction receipts in PostgreSQL.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// Migrate creates the ledger schema when missing.
func (l *PostgresLedger) Migrate(ctx context.Context) error {
	_, err := l.db.Exec(ctx, Schema)
	return err
}

// Load reads every persisted slot.
func (l *PostgresLedger) Load(ctx context.Context) (map[state.Key]uint256.Int, error) {
	rows, err := l.db.Query(ctx, `SELECT owner, tbl, a, b, value::text FROM state_entries`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[state.Key]uint256.Int)
	for rows.Next() {
		var (
			owner, a, b []byte
			tbl         int16
			raw         string
		)
		if err := rows.Scan(&owner, &tbl, &a, &b, &raw); err != nil {
			return nil, err
		}
		value, err := uint256.FromDecimal(raw)
		if err != nil {
			return nil, fmt.Errorf("decode slot value %q: %w", raw, err)
		}
		key := state.Key{
			Owner: common.BytesToAddress(owner),
			Table: state.Table(tbl),
			A:     common.BytesToAddress(a),
			B:     common.BytesToAddress(b),
		}
		out[key] = *value
	}
	return out, rows.Err()
}

// Commit records the transaction, its slot writes and its logs atomically.
func (l *PostgresLedger) Commit(ctx context.Context, c Commit) (Receipt, error) {
	records, err := Records(c.Changes.Logs)
	if err != nil {
		return Receipt{}, err
	}
	txID, err := uuid.Parse(c.TransactionID)
	if err != nil {
		return Receipt{}, err
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Receipt{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	tag, err := tx.Exec(ctx, `INSERT INTO transactions (id, client_tx_id, status, committed_at)
        VALUES ($1, NULLIF($2, ''), $3, $4)
        ON CONFLICT (client_tx_id) DO NOTHING`, txID, c.ClientTxID, StatusCommitted, c.CommittedAt.UTC())
	if err != nil {
		return Receipt{}, err
	}
	if tag.RowsAffected() == 0 {
		existing, err := receiptByClientTxID(ctx, tx, c.ClientTxID)
		if err != nil {
			return Receipt{}, err
		}
		return existing, ErrDuplicateTransaction
	}

	batch := &pgx.Batch{}
	for _, w := range c.Changes.Writes {
		batch.Queue(`INSERT INTO state_entries (owner, tbl, a, b, value, updated_at)
            VALUES ($1, $2, $3, $4, $5::numeric, $6)
            ON CONFLICT (owner, tbl, a, b) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
			w.Key.Owner.Bytes(), int16(w.Key.Table), w.Key.A.Bytes(), w.Key.B.Bytes(), w.Value.Dec(), c.CommittedAt.UTC())
	}
	for _, r := range records {
		batch.Queue(`INSERT INTO logs (transaction_id, idx, address, name, topic, payload)
            VALUES ($1, $2, $3, $4, $5, $6)`,
			txID, r.Index, r.Address.Bytes(), r.Name, r.Topic.Bytes(), []byte(r.Payload))
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return Receipt{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Receipt{}, err
	}

	return Receipt{
		TransactionID: c.TransactionID,
		ClientTxID:    c.ClientTxID,
		Status:        StatusCommitted,
		Logs:          records,
		CommittedAt:   c.CommittedAt.UTC(),
	}, nil
}

// Receipt fetches a committed transaction by client transaction identifier.
func (l *PostgresLedger) Receipt(ctx context.Context, clientTxID string) (Receipt, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return Receipt{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck
	return receiptByClientTxID(ctx, tx, clientTxID)
}

func receiptByClientTxID(ctx context.Context, tx pgx.Tx, clientTxID string) (Receipt, error) {
	const query = `SELECT id, status, committed_at FROM transactions WHERE client_tx_id = $1`
	var (
		id          uuid.UUID
		status      string
		committedAt time.Time
	)
	if err := tx.QueryRow(ctx, query, clientTxID).Scan(&id, &status, &committedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Receipt{}, ErrReceiptNotFound
		}
		return Receipt{}, err
	}

	rows, err := tx.Query(ctx, `SELECT idx, address, name, topic, payload FROM logs
        WHERE transaction_id = $1 ORDER BY idx`, id)
	if err != nil {
		return Receipt{}, err
	}
	defer rows.Close()

	var records []LogRecord
	for rows.Next() {
		var (
			r              LogRecord
			address, topic []byte
			payload        []byte
		)
		if err := rows.Scan(&r.Index, &address, &r.Name, &topic, &payload); err != nil {
			return Receipt{}, err
		}
		r.Address = common.BytesToAddress(address)
		r.Topic = common.BytesToHash(topic)
		r.Payload = payload
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return Receipt{}, err
	}

	return Receipt{
		TransactionID: id.String(),
		ClientTxID:    clientTxID,
		Status:        status,
		Logs:          records,
		CommittedAt:   committedAt.UTC(),
	}, nil
}
