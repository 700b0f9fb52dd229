// Package memstore implements the store ports on top of hashicorp/go-memdb.
//
// go-memdb provides MVCC transactions over immutable radix trees: a write
// transaction sees its own staged writes, readers see the last committed
// snapshot, and Commit publishes every staged write at once. Write
// transactions are serialized by the database, so two scopes never interleave
// their writes.
//
// Records are stored as private copies. Every value handed out is cloned so
// callers can never mutate committed state.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/jsamuelsen11/taskboard/internal/ports"
)

const (
	tableUsers = "users"
	tableTasks = "tasks"

	indexID           = "id"
	indexEmail        = "email"
	indexAssignedUser = "assigned_user"
	indexCompleted    = "completed"
)

// Compile-time interface checks.
var (
	_ ports.Store = (*Store)(nil)
	_ ports.Scope = (*scope)(nil)
)

// ErrScopeClosed is returned when a scope is used after Commit or Abort.
var ErrScopeClosed = errors.New("memstore: scope already closed")

// ErrForeignScope is returned when a scope created by another store
// implementation is passed in.
var ErrForeignScope = errors.New("memstore: scope not created by this store")

// Option configures a Store.
type Option func(*Store)

// WithClock sets the function used for CreatedAt timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store is an in-memory transactional store for users and tasks.
type Store struct {
	db  *memdb.MemDB
	now func() time.Time

	mu              sync.Mutex
	lastSnapshotErr error
}

// New creates an empty Store.
func New(opts ...Option) (*Store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("creating memdb: %w", err)
	}

	s := &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableUsers: {
				Name: tableUsers,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					// Uniqueness is enforced by checkEmailFree; memdb does not
					// reject duplicate secondary keys on insert.
					indexEmail: {
						Name:    indexEmail,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Email"},
					},
				},
			},
			tableTasks: {
				Name: tableTasks,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					indexAssignedUser: {
						Name:         indexAssignedUser,
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "AssignedUser"},
					},
					indexCompleted: {
						Name:    indexCompleted,
						Indexer: &memdb.BoolFieldIndex{Field: "Completed"},
					},
				},
			},
		},
	}
}

// scope wraps one memdb write transaction.
type scope struct {
	txn    *memdb.Txn
	closed bool
}

// Commit publishes the staged writes.
func (sc *scope) Commit() error {
	if sc.closed {
		return ErrScopeClosed
	}
	sc.closed = true
	sc.txn.Commit()
	return nil
}

// Abort discards the staged writes. It is a no-op once the scope is closed.
func (sc *scope) Abort() {
	if sc.closed {
		return
	}
	sc.closed = true
	sc.txn.Abort()
}

// Begin opens a write scope. It blocks while another write scope is open; if
// ctx ended during the wait the scope is released and ctx's error returned.
func (s *Store) Begin(ctx context.Context) (ports.Scope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn := s.db.Txn(true)
	if err := ctx.Err(); err != nil {
		txn.Abort()
		return nil, err
	}
	return &scope{txn: txn}, nil
}

// read runs fn against the scope's transaction, or against a fresh read-only
// snapshot when sc is nil.
func (s *Store) read(sc ports.Scope, fn func(txn *memdb.Txn) error) error {
	if sc == nil {
		txn := s.db.Txn(false)
		defer txn.Abort()
		return fn(txn)
	}
	txn, err := txnOf(sc)
	if err != nil {
		return err
	}
	return fn(txn)
}

// write runs fn inside the scope's transaction. When sc is nil, fn runs in
// its own write transaction that commits only if fn succeeds.
func (s *Store) write(sc ports.Scope, fn func(txn *memdb.Txn) error) error {
	if sc == nil {
		txn := s.db.Txn(true)
		defer txn.Abort()
		if err := fn(txn); err != nil {
			return err
		}
		txn.Commit()
		return nil
	}
	txn, err := txnOf(sc)
	if err != nil {
		return err
	}
	return fn(txn)
}

func txnOf(sc ports.Scope) (*memdb.Txn, error) {
	own, ok := sc.(*scope)
	if !ok {
		return nil, ErrForeignScope
	}
	if own.closed {
		return nil, ErrScopeClosed
	}
	return own.txn, nil
}

// page applies skip and limit to an already ordered slice. A non-positive
// limit means no limit.
func page[T any](items []T, skip, limit int) []T {
	if skip > 0 {
		if skip >= len(items) {
			return []T{}
		}
		items = items[skip:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// byCreation orders records oldest first, breaking ties by ID.
func byCreation[T any](items []T, created func(T) time.Time, id func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		ci, cj := created(items[i]), created(items[j])
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return id(items[i]) < id(items[j])
	})
}
