package state

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Table partitions the slots owned by a single address.
type Table uint8

const (
	// TableNative holds native coin balances kept by the host bank.
	TableNative Table = iota + 1
	// TableBalance holds fungible token balances (A = holder).
	TableBalance
	// TableAllowance holds token allowances (A = owner, B = spender).
	TableAllowance
	// TableSupply holds a token's total supply.
	TableSupply
	// TableNativeDeposits holds vault native coin custody entries (A = account).
	TableNativeDeposits
	// TableTokenDeposits holds vault token custody entries (A = account, B = asset).
	TableTokenDeposits
)

// Key addresses one 256-bit slot of world state.
type Key struct {
	Owner common.Address
	Table Table
	A     common.Address
	B     common.Address
}

// Less orders keys deterministically for persistence.
func (k Key) Less(o Key) bool {
	if c := bytes.Compare(k.Owner[:], o.Owner[:]); c != 0 {
		return c < 0
	}
	if k.Table != o.Table {
		return k.Table < o.Table
	}
	if c := bytes.Compare(k.A[:], o.A[:]); c != 0 {
		return c < 0
	}
	return bytes.Compare(k.B[:], o.B[:]) < 0
}

// Event is a typed record emitted by a contract.
type Event interface {
	// Signature returns the ABI style signature, e.g. "Wrap(address,uint256)".
	Signature() string
}

// Log is an event emitted by the contract at Address.
type Log struct {
	Address common.Address
	Event   Event
}

// Name returns the event name without its argument list.
func (l Log) Name() string {
	sig := l.Event.Signature()
	if i := strings.IndexByte(sig, '('); i >= 0 {
		return sig[:i]
	}
	return sig
}

// Topic returns the Keccak-256 hash of the event signature.
func (l Log) Topic() common.Hash {
	return crypto.Keccak256Hash([]byte(l.Event.Signature()))
}

// Write is a single slot assignment.
type Write struct {
	Key   Key
	Value uint256.Int
}

// Changeset is everything a transaction produced.
type Changeset struct {
	Writes []Write
	Logs   []Log
}

// Reader exposes read access to world state.
type Reader interface {
	Get(key Key) uint256.Int
	Each(owner common.Address, table Table, fn func(Key, uint256.Int) bool)
}

// Backend is implemented by the execution host. Contracts use it to run call
// frames and to read state consistently with the caller's transaction.
type Backend interface {
	// Call runs fn as a call frame. Any error reverts every write and log made by
	// fn, including those of nested frames.
	Call(ctx context.Context, fn func(ctx context.Context, db *DB) error) error
	// Read returns the in-flight view when ctx belongs to a running transaction
	// and the committed view otherwise.
	Read(ctx context.Context) Reader
	// View runs fn with every Read observing the same committed state. No
	// transaction commits while fn runs, and writes made by fn are dropped.
	View(ctx context.Context, fn func(ctx context.Context) error) error
}

type journalEntry struct {
	key     Key
	prev    uint256.Int
	existed bool
}

// DB is a journaled key/value store of 256-bit slots. Pending writes and logs are
// only reachable through the transaction that made them until Finalize.
//
// Pending access is not synchronized: the host serializes transactions.
type DB struct {
	mu        sync.RWMutex
	committed map[Key]uint256.Int

	pending map[Key]uint256.Int
	journal []journalEntry
	logs    []Log
}

// New creates an empty DB.
func New() *DB {
	return &DB{
		committed: make(map[Key]uint256.Int),
		pending:   make(map[Key]uint256.Int),
	}
}

// Load replaces the committed state. Pending changes are dropped.
func (db *DB) Load(entries map[Key]uint256.Int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.committed = make(map[Key]uint256.Int, len(entries))
	for k, v := range entries {
		db.committed[k] = v
	}
	db.resetPending()
}

// Get returns the pending value of key, falling back to committed state.
func (db *DB) Get(key Key) uint256.Int {
	if v, ok := db.pending[key]; ok {
		return v
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.committed[key]
}

// Set records a pending write.
func (db *DB) Set(key Key, value uint256.Int) {
	prev, existed := db.pending[key]
	db.journal = append(db.journal, journalEntry{key: key, prev: prev, existed: existed})
	db.pending[key] = value
}

// AddLog records a pending log.
func (db *DB) AddLog(log Log) {
	db.logs = append(db.logs, log)
}

// Logs returns the pending logs in emission order.
func (db *DB) Logs() []Log {
	out := make([]Log, len(db.logs))
	copy(out, db.logs)
	return out
}

// Snapshot returns an identifier usable with RevertToSnapshot.
func (db *DB) Snapshot() int {
	return len(db.journal)<<32 | len(db.logs)
}

// RevertToSnapshot undoes every write and log made after the snapshot was taken.
func (db *DB) RevertToSnapshot(id int) {
	journalLen, logLen := id>>32, id&0xffffffff
	for i := len(db.journal) - 1; i >= journalLen; i-- {
		e := db.journal[i]
		if e.existed {
			db.pending[e.key] = e.prev
		} else {
			delete(db.pending, e.key)
		}
	}
	db.journal = db.journal[:journalLen]
	db.logs = db.logs[:logLen]
}

// Pending returns the write set, ordered by key, and the logs of the running
// transaction.
func (db *DB) Pending() Changeset {
	writes := make([]Write, 0, len(db.pending))
	for k, v := range db.pending {
		writes = append(writes, Write{Key: k, Value: v})
	}
	sort.Slice(writes, func(i, j int) bool { return writes[i].Key.Less(writes[j].Key) })
	return Changeset{Writes: writes, Logs: db.Logs()}
}

// Finalize folds pending writes into committed state.
func (db *DB) Finalize() {
	db.mu.Lock()
	defer db.mu.Unlock()
	for k, v := range db.pending {
		db.committed[k] = v
	}
	db.resetPending()
}

// Discard drops pending writes and logs.
func (db *DB) Discard() {
	db.resetPending()
}

func (db *DB) resetPending() {
	db.pending = make(map[Key]uint256.Int)
	db.journal = nil
	db.logs = nil
}

// Owns reports whether any committed slot belongs to owner.
func (db *DB) Owns(owner common.Address) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for k := range db.committed {
		if k.Owner == owner {
			return true
		}
	}
	return false
}

// Each calls fn for every slot of table owned by owner, pending writes included.
// Iteration stops when fn returns false.
func (db *DB) Each(owner common.Address, table Table, fn func(Key, uint256.Int) bool) {
	seen := make(map[Key]struct{})
	for k, v := range db.pending {
		if k.Owner != owner || k.Table != table {
			continue
		}
		seen[k] = struct{}{}
		if !fn(k, v) {
			return
		}
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	for k, v := range db.committed {
		if k.Owner != owner || k.Table != table {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		if !fn(k, v) {
			return
		}
	}
}

// Committed returns a view that only observes finalized state.
func (db *DB) Committed() Reader {
	return committedView{db: db}
}

type committedView struct {
	db *DB
}

func (v committedView) Get(key Key) uint256.Int {
	v.db.mu.RLock()
	defer v.db.mu.RUnlock()
	return v.db.committed[key]
}

func (v committedView) Each(owner common.Address, table Table, fn func(Key, uint256.Int) bool) {
	v.db.mu.RLock()
	defer v.db.mu.RUnlock()
	for k, val := range v.db.committed {
		if k.Owner != owner || k.Table != table {
			continue
		}
		if !fn(k, val) {
			return
		}
	}
}
