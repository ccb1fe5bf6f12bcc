package book

import (
	"time"
)

// Book is a catalogue entry together with its lendable inventory.
// Quantity is the number of copies on the shelf right now; the reservation
// engine moves it by exactly one per assignment or release.
type Book struct {
	ID               uint
	ISBN             string
	Title            string
	Author           string
	Quantity         int // copies available, never negative
	ReservationCount int // display counter, bumped on every Reserve
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewBook creates a catalogue entry with its initial stock.
func NewBook(isbn, title, author string, quantity int) *Book {
	now := time.Now()
	return &Book{
		ISBN:      isbn,
		Title:     title,
		Author:    author,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasStock reports whether a copy can be handed out.
func (b *Book) HasStock() bool {
	return b.Quantity > 0
}
