package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/library/internal/domain/book"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

type bookRepository struct {
	db *gorm.DB
}

// NewBookRepository returns the MySQL book repository.
func NewBookRepository(db *gorm.DB) book.Repository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(ctx context.Context, b *book.Book) error {
	model := &BookModel{
		ISBN:     b.ISBN,
		Title:    b.Title,
		Author:   b.Author,
		Quantity: b.Quantity,
	}

	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return book.ErrISBNDuplicate
		}
		return apperrors.Wrap(err, "create book failed")
	}

	b.ID = model.ID
	b.CreatedAt = model.CreatedAt
	b.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *bookRepository) FindByID(ctx context.Context, id uint) (*book.Book, error) {
	var model BookModel
	if err := getDB(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, book.ErrBookNotFound
		}
		return nil, apperrors.Wrap(err, "query book failed")
	}
	return toBookEntity(&model), nil
}

func (r *bookRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]*book.Book, error) {
	out := make(map[uint]*book.Book, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var models []BookModel
	if err := getDB(ctx, r.db).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "query books failed")
	}
	for i := range models {
		out[models[i].ID] = toBookEntity(&models[i])
	}
	return out, nil
}

func (r *bookRepository) FindByISBN(ctx context.Context, isbn string) (*book.Book, error) {
	var model BookModel
	if err := getDB(ctx, r.db).Where("isbn = ?", isbn).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, book.ErrBookNotFound
		}
		return nil, apperrors.Wrap(err, "query book failed")
	}
	return toBookEntity(&model), nil
}

func (r *bookRepository) List(ctx context.Context, params book.ListParams) ([]*book.Book, int64, error) {
	var (
		models []BookModel
		total  int64
	)

	query := getDB(ctx, r.db).Model(&BookModel{})
	if params.Keyword != "" {
		keyword := "%" + params.Keyword + "%"
		query = query.Where("title LIKE ? OR author LIKE ?", keyword, keyword)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "count books failed")
	}

	offset := (params.Page - 1) * params.PageSize
	err := query.Order("created_at DESC").Order("id DESC").
		Limit(params.PageSize).Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "list books failed")
	}

	books := make([]*book.Book, len(models))
	for i := range models {
		books[i] = toBookEntity(&models[i])
	}
	return books, total, nil
}

// LockByID reads the row with SELECT ... FOR UPDATE. Outside a transaction
// the lock is released immediately, so callers wrap it in TxManager.
func (r *bookRepository) LockByID(ctx context.Context, id uint) (*book.Book, error) {
	var model BookModel
	err := getDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, book.ErrBookNotFound
		}
		return nil, apperrors.Wrap(err, "lock book failed")
	}
	return toBookEntity(&model), nil
}

// UpdateQuantity runs
//
//	UPDATE books SET quantity = quantity + ? WHERE id = ? AND quantity + ? >= 0
//
// and tells a missing row apart from a stock shortfall when nothing matched.
func (r *bookRepository) UpdateQuantity(ctx context.Context, id uint, delta int) error {
	db := getDB(ctx, r.db)
	result := db.Model(&BookModel{}).
		Where("id = ?", id).
		Where("quantity + ? >= 0", delta).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "update quantity failed")
	}

	if result.RowsAffected == 0 {
		var model BookModel
		if err := db.Select("id").First(&model, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return book.ErrBookNotFound
			}
			return apperrors.Wrap(err, "query book failed")
		}
		return book.ErrInsufficientStock
	}
	return nil
}

func (r *bookRepository) IncrReservationCount(ctx context.Context, id uint) error {
	result := getDB(ctx, r.db).Model(&BookModel{}).
		Where("id = ?", id).
		Update("reservation_count", gorm.Expr("reservation_count + 1"))
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "update reservation count failed")
	}
	if result.RowsAffected == 0 {
		return book.ErrBookNotFound
	}
	return nil
}

func toBookEntity(model *BookModel) *book.Book {
	return &book.Book{
		ID:               model.ID,
		ISBN:             model.ISBN,
		Title:            model.Title,
		Author:           model.Author,
		Quantity:         model.Quantity,
		ReservationCount: model.ReservationCount,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}
