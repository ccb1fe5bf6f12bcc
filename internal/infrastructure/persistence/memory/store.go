// Package memory keeps books, users and reservations in process memory.
// It backs database.driver=memory and the engine tests.
package memory

import (
	"context"
	"sync"
)

// Store is the shared state behind the memory repositories.
type Store struct {
	mu sync.RWMutex

	nextBookID        uint
	nextUserID        uint
	nextReservationID uint

	books        map[uint]*bookRow
	users        map[uint]*userRow
	reservations map[uint]*reservationRow
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		books:        make(map[uint]*bookRow),
		users:        make(map[uint]*userRow),
		reservations: make(map[uint]*reservationRow),
	}
}

// =========================================
// transactions
// =========================================

type txKey struct{}

// undoLog collects compensations for writes made inside a transaction.
type undoLog struct {
	mu    sync.Mutex
	steps []func()
}

func (l *undoLog) push(step func()) {
	l.mu.Lock()
	l.steps = append(l.steps, step)
	l.mu.Unlock()
}

func (l *undoLog) rollback() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.steps) - 1; i >= 0; i-- {
		l.steps[i]()
	}
	l.steps = nil
}

// TxManager gives the memory store the same Transaction contract as the
// MySQL one: writes inside fn are undone when fn returns an error.
// Isolation comes from the caller's book lock, not from the store.
type TxManager struct {
	store *Store
}

// NewTxManager creates a transaction manager over store.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Transaction runs fn, rolling back its writes if it fails. Nested calls
// join the outer transaction.
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*undoLog); ok {
		return fn(ctx)
	}

	log := &undoLog{}
	if err := fn(context.WithValue(ctx, txKey{}, log)); err != nil {
		m.store.mu.Lock()
		log.rollback()
		m.store.mu.Unlock()
		return err
	}
	return nil
}

// record registers undo for a write; must be called with s.mu held.
func (s *Store) record(ctx context.Context, undo func()) {
	if log, ok := ctx.Value(txKey{}).(*undoLog); ok {
		log.push(undo)
	}
}
