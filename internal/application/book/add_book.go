package book

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/pkg/logger"
)

// AddBookUseCase lets a librarian put a title and its copies on the shelf.
type AddBookUseCase struct {
	bookService book.Service
}

func NewAddBookUseCase(bookService book.Service) *AddBookUseCase {
	return &AddBookUseCase{bookService: bookService}
}

type AddBookRequest struct {
	ISBN     string
	Title    string
	Author   string
	Quantity int
	AddedBy  uint // librarian id, for the audit log
}

// Execute validates and stores the book.
func (uc *AddBookUseCase) Execute(ctx context.Context, req AddBookRequest) (*BookItem, error) {
	b, err := uc.bookService.AddBook(ctx, req.ISBN, req.Title, req.Author, req.Quantity)
	if err != nil {
		return nil, err
	}

	logger.L().Info("book added",
		zap.Uint("book_id", b.ID),
		zap.String("isbn", b.ISBN),
		zap.Int("quantity", b.Quantity),
		zap.Uint("added_by", req.AddedBy),
	)
	item := toBookItem(b)
	return &item, nil
}
