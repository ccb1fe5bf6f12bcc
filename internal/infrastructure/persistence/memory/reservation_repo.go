package memory

import (
	"context"
	"sort"

	"github.com/xiebiao/library/internal/domain/reservation"
)

type reservationRow struct {
	reservation.Reservation
}

type reservationRepository struct {
	s *Store
}

// NewReservationRepository returns the memory reservation repository.
func NewReservationRepository(s *Store) reservation.Repository {
	return &reservationRepository{s: s}
}

func (r *reservationRepository) Create(ctx context.Context, res *reservation.Reservation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextReservationID++
	res.ID = r.s.nextReservationID
	r.s.reservations[res.ID] = &reservationRow{Reservation: *res}

	id := res.ID
	r.s.record(ctx, func() { delete(r.s.reservations, id) })
	return nil
}

func (r *reservationRepository) FindByID(_ context.Context, id uint) (*reservation.Reservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row, ok := r.s.reservations[id]
	if !ok {
		return nil, reservation.ErrReservationNotFound
	}
	res := row.Reservation
	return &res, nil
}

func (r *reservationRepository) UpdateStatus(ctx context.Context, res *reservation.Reservation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.reservations[res.ID]
	if !ok {
		return reservation.ErrReservationNotFound
	}
	prevStatus, prevUpdated := row.Status, row.UpdatedAt
	row.Status = res.Status
	row.UpdatedAt = res.UpdatedAt

	r.s.record(ctx, func() {
		row.Status = prevStatus
		row.UpdatedAt = prevUpdated
	})
	return nil
}

func (r *reservationRepository) ListQueuedByBook(_ context.Context, bookID uint) ([]*reservation.Reservation, error) {
	status := reservation.StatusQueued
	out := r.collect(reservation.ListFilter{Status: &status, BookID: bookID})

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *reservationRepository) List(_ context.Context, filter reservation.ListFilter) ([]*reservation.Reservation, error) {
	out := r.collect(filter)

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *reservationRepository) collect(filter reservation.ListFilter) []*reservation.Reservation {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*reservation.Reservation, 0)
	for _, row := range r.s.reservations {
		if filter.Status != nil && row.Status != *filter.Status {
			continue
		}
		if filter.UserID != 0 && row.UserID != filter.UserID {
			continue
		}
		if filter.BookID != 0 && row.BookID != filter.BookID {
			continue
		}
		res := row.Reservation
		out = append(out, &res)
	}
	return out
}
