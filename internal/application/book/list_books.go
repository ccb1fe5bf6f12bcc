package book

import (
	"context"

	"github.com/xiebiao/library/internal/domain/book"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	timeLayout      = "2006-01-02 15:04:05"
)

// BookItem is the public view of a book.
type BookItem struct {
	ID               uint   `json:"id"`
	ISBN             string `json:"isbn"`
	Title            string `json:"title"`
	Author           string `json:"author"`
	Quantity         int    `json:"quantity"`
	ReservationCount int    `json:"reservation_count"`
	CreatedAt        string `json:"created_at"`
}

func toBookItem(b *book.Book) BookItem {
	return BookItem{
		ID:               b.ID,
		ISBN:             b.ISBN,
		Title:            b.Title,
		Author:           b.Author,
		Quantity:         b.Quantity,
		ReservationCount: b.ReservationCount,
		CreatedAt:        b.CreatedAt.Format(timeLayout),
	}
}

type ListBooksUseCase struct {
	bookService book.Service
}

func NewListBooksUseCase(bookService book.Service) *ListBooksUseCase {
	return &ListBooksUseCase{bookService: bookService}
}

type ListBooksRequest struct {
	Page     int // from 1
	PageSize int
	Keyword  string // title or author
}

type ListBooksResponse struct {
	List       []BookItem `json:"list"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}

func (uc *ListBooksUseCase) Execute(ctx context.Context, req ListBooksRequest) (*ListBooksResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	books, total, err := uc.bookService.ListBooks(ctx, book.ListParams{
		Page:     req.Page,
		PageSize: req.PageSize,
		Keyword:  req.Keyword,
	})
	if err != nil {
		return nil, err
	}

	list := make([]BookItem, len(books))
	for i, b := range books {
		list[i] = toBookItem(b)
	}

	totalPages := int(total) / req.PageSize
	if int(total)%req.PageSize != 0 {
		totalPages++
	}

	return &ListBooksResponse{
		List:       list,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages,
	}, nil
}

type GetBookUseCase struct {
	bookService book.Service
}

func NewGetBookUseCase(bookService book.Service) *GetBookUseCase {
	return &GetBookUseCase{bookService: bookService}
}

func (uc *GetBookUseCase) Execute(ctx context.Context, id uint) (*BookItem, error) {
	b, err := uc.bookService.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	item := toBookItem(b)
	return &item, nil
}
