package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/xiebiao/library/internal/domain/book"
)

type bookRow struct {
	book.Book
}

type bookRepository struct {
	s *Store
}

// NewBookRepository returns the memory book repository.
func NewBookRepository(s *Store) book.Repository {
	return &bookRepository{s: s}
}

func (r *bookRepository) Create(ctx context.Context, b *book.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, row := range r.s.books {
		if row.ISBN == b.ISBN {
			return book.ErrISBNDuplicate
		}
	}

	r.s.nextBookID++
	b.ID = r.s.nextBookID
	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now
	r.s.books[b.ID] = &bookRow{Book: *b}

	id := b.ID
	r.s.record(ctx, func() { delete(r.s.books, id) })
	return nil
}

func (r *bookRepository) FindByID(_ context.Context, id uint) (*book.Book, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row, ok := r.s.books[id]
	if !ok {
		return nil, book.ErrBookNotFound
	}
	b := row.Book
	return &b, nil
}

func (r *bookRepository) FindByIDs(_ context.Context, ids []uint) (map[uint]*book.Book, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[uint]*book.Book, len(ids))
	for _, id := range ids {
		if row, ok := r.s.books[id]; ok {
			b := row.Book
			out[id] = &b
		}
	}
	return out, nil
}

func (r *bookRepository) FindByISBN(_ context.Context, isbn string) (*book.Book, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, row := range r.s.books {
		if row.ISBN == isbn {
			b := row.Book
			return &b, nil
		}
	}
	return nil, book.ErrBookNotFound
}

func (r *bookRepository) List(_ context.Context, params book.ListParams) ([]*book.Book, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	keyword := strings.ToLower(params.Keyword)
	matched := make([]*book.Book, 0, len(r.s.books))
	for _, row := range r.s.books {
		if keyword != "" &&
			!strings.Contains(strings.ToLower(row.Title), keyword) &&
			!strings.Contains(strings.ToLower(row.Author), keyword) {
			continue
		}
		b := row.Book
		matched = append(matched, &b)
	}

	// newest first, same as the MySQL listing
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	start := (params.Page - 1) * params.PageSize
	if start < 0 || start >= len(matched) {
		return []*book.Book{}, total, nil
	}
	end := start + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// LockByID is FindByID; callers serialise through the book lock.
func (r *bookRepository) LockByID(ctx context.Context, id uint) (*book.Book, error) {
	return r.FindByID(ctx, id)
}

func (r *bookRepository) UpdateQuantity(ctx context.Context, id uint, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.books[id]
	if !ok {
		return book.ErrBookNotFound
	}
	if row.Quantity+delta < 0 {
		return book.ErrInsufficientStock
	}
	row.Quantity += delta
	row.UpdatedAt = time.Now()

	r.s.record(ctx, func() { row.Quantity -= delta })
	return nil
}

func (r *bookRepository) IncrReservationCount(ctx context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.books[id]
	if !ok {
		return book.ErrBookNotFound
	}
	row.ReservationCount++

	r.s.record(ctx, func() { row.ReservationCount-- })
	return nil
}
