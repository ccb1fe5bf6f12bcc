package book

import (
	"context"
)

// Repository persists books. Implementations read the transaction, when
// there is one, from ctx.
type Repository interface {
	Create(ctx context.Context, book *Book) error

	// FindByID returns ErrBookNotFound when no row exists.
	FindByID(ctx context.Context, id uint) (*Book, error)

	// FindByIDs returns the books found, keyed by id. Missing ids are absent.
	FindByIDs(ctx context.Context, ids []uint) (map[uint]*Book, error)

	FindByISBN(ctx context.Context, isbn string) (*Book, error)

	List(ctx context.Context, params ListParams) ([]*Book, int64, error)

	// LockByID reads the book with SELECT ... FOR UPDATE inside the current
	// transaction.
	LockByID(ctx context.Context, id uint) (*Book, error)

	// UpdateQuantity adds delta to quantity atomically. It returns
	// ErrInsufficientStock if the result would be negative.
	UpdateQuantity(ctx context.Context, id uint, delta int) error

	// IncrReservationCount bumps the display counter by one.
	IncrReservationCount(ctx context.Context, id uint) error
}

// ListParams pages and filters List.
type ListParams struct {
	Page     int
	PageSize int
	Keyword  string // matches title or author
}
