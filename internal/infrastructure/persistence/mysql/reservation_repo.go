package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/domain/reservation"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

type reservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository returns the MySQL reservation repository.
func NewReservationRepository(db *gorm.DB) reservation.Repository {
	return &reservationRepository{db: db}
}

func (r *reservationRepository) Create(ctx context.Context, res *reservation.Reservation) error {
	model := &ReservationModel{
		UserID:    res.UserID,
		BookID:    res.BookID,
		Status:    int8(res.Status),
		CreatedAt: res.CreatedAt,
		UpdatedAt: res.UpdatedAt,
	}
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "create reservation failed")
	}

	res.ID = model.ID
	res.CreatedAt = model.CreatedAt
	res.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *reservationRepository) FindByID(ctx context.Context, id uint) (*reservation.Reservation, error) {
	var model ReservationModel
	if err := getDB(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, apperrors.Wrap(err, "query reservation failed")
	}
	return toReservationEntity(&model), nil
}

// UpdateStatus only writes status and updated_at; the other columns are immutable.
func (r *reservationRepository) UpdateStatus(ctx context.Context, res *reservation.Reservation) error {
	result := getDB(ctx, r.db).Model(&ReservationModel{}).
		Where("id = ?", res.ID).
		Updates(map[string]interface{}{
			"status":     int8(res.Status),
			"updated_at": res.UpdatedAt,
		})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "update reservation status failed")
	}
	if result.RowsAffected == 0 {
		return reservation.ErrReservationNotFound
	}
	return nil
}

func (r *reservationRepository) ListQueuedByBook(ctx context.Context, bookID uint) ([]*reservation.Reservation, error) {
	var models []ReservationModel
	err := getDB(ctx, r.db).
		Where("book_id = ? AND status = ?", bookID, int8(reservation.StatusQueued)).
		Order("created_at ASC").Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "list queue failed")
	}
	return toReservationEntities(models), nil
}

func (r *reservationRepository) List(ctx context.Context, filter reservation.ListFilter) ([]*reservation.Reservation, error) {
	query := getDB(ctx, r.db).Model(&ReservationModel{})
	if filter.Status != nil {
		query = query.Where("status = ?", int8(*filter.Status))
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.BookID != 0 {
		query = query.Where("book_id = ?", filter.BookID)
	}

	var models []ReservationModel
	if err := query.Order("created_at DESC").Order("id DESC").Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "list reservations failed")
	}
	return toReservationEntities(models), nil
}

func toReservationEntity(model *ReservationModel) *reservation.Reservation {
	return &reservation.Reservation{
		ID:        model.ID,
		UserID:    model.UserID,
		BookID:    model.BookID,
		Status:    reservation.Status(model.Status),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toReservationEntities(models []ReservationModel) []*reservation.Reservation {
	out := make([]*reservation.Reservation, len(models))
	for i := range models {
		out[i] = toReservationEntity(&models[i])
	}
	return out
}
