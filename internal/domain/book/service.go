package book

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// Service holds the catalogue rules.
type Service interface {
	// AddBook registers a title with its initial number of copies.
	AddBook(ctx context.Context, isbn, title, author string, quantity int) (*Book, error)

	GetBook(ctx context.Context, id uint) (*Book, error)

	ListBooks(ctx context.Context, params ListParams) ([]*Book, int64, error)
}

type service struct {
	repo Repository
}

// NewService creates the catalogue service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) AddBook(ctx context.Context, isbn, title, author string, quantity int) (*Book, error) {
	isbn = normalizeISBN(isbn)
	if !isValidISBN(isbn) {
		return nil, ErrInvalidISBN
	}

	title = strings.TrimSpace(title)
	if title == "" || len(title) > 200 {
		return nil, ErrInvalidTitle
	}

	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	// the unique index is the real guard; this gives a clean error on the common path
	existing, err := s.repo.FindByISBN(ctx, isbn)
	if err == nil && existing != nil {
		return nil, ErrISBNDuplicate
	}
	if err != nil && !errors.Is(err, ErrBookNotFound) {
		return nil, err
	}

	b := NewBook(isbn, title, strings.TrimSpace(author), quantity)
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) GetBook(ctx context.Context, id uint) (*Book, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) ListBooks(ctx context.Context, params ListParams) ([]*Book, int64, error) {
	return s.repo.List(ctx, params)
}

var nonDigit = regexp.MustCompile(`[^0-9X]`)

// normalizeISBN strips separators (978-7-115-42802-8 → 9787115428028).
func normalizeISBN(isbn string) string {
	return nonDigit.ReplaceAllString(strings.ToUpper(isbn), "")
}

// isValidISBN only checks the length; check digits are not verified.
func isValidISBN(isbn string) bool {
	return len(isbn) == 10 || len(isbn) == 13
}
