package reservation

import (
	"context"
)

// Repository persists reservations. Implementations read the transaction,
// when there is one, from ctx.
type Repository interface {
	// Create inserts r and fills r.ID.
	Create(ctx context.Context, r *Reservation) error

	// FindByID returns ErrReservationNotFound when no row exists.
	FindByID(ctx context.Context, id uint) (*Reservation, error)

	// UpdateStatus persists r.Status and r.UpdatedAt.
	UpdateStatus(ctx context.Context, r *Reservation) error

	// ListQueuedByBook returns the Queued reservations of a book in
	// promotion order: CreatedAt ascending, then ID ascending.
	ListQueuedByBook(ctx context.Context, bookID uint) ([]*Reservation, error)

	// List returns reservations matching filter ordered by CreatedAt
	// descending, then ID descending.
	List(ctx context.Context, filter ListFilter) ([]*Reservation, error)
}

// ListFilter narrows List. Zero values mean "any".
type ListFilter struct {
	Status *Status
	UserID uint
	BookID uint
}

// Transactor runs fn inside one storage transaction carried by ctx.
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Locker serialises state changes on one book.
type Locker interface {
	Lock(ctx context.Context, bookID uint) (unlock func(), err error)
}
