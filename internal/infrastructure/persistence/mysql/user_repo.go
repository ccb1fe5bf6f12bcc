package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/domain/user"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns the MySQL user repository.
func NewUserRepository(db *gorm.DB) user.Repository {
	return &userRepository{db: db}
}

// Create relies on the unique index on email rather than a prior SELECT.
func (r *userRepository) Create(ctx context.Context, u *user.User) error {
	role := u.Role
	if role == "" {
		role = user.RoleMember
	}
	model := &UserModel{
		Email:    u.Email,
		Password: u.Password,
		Nickname: u.Nickname,
		Role:     string(role),
	}

	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return apperrors.ErrEmailDuplicate
		}
		return apperrors.Wrap(err, "create user failed")
	}

	u.ID = model.ID
	u.Role = role
	u.CreatedAt = model.CreatedAt
	u.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*user.User, error) {
	var model UserModel
	if err := getDB(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "query user failed")
	}
	return toUserEntity(&model), nil
}

func (r *userRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]*user.User, error) {
	out := make(map[uint]*user.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var models []UserModel
	if err := getDB(ctx, r.db).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "query users failed")
	}
	for i := range models {
		out[models[i].ID] = toUserEntity(&models[i])
	}
	return out, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	var model UserModel
	if err := getDB(ctx, r.db).Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "query user failed")
	}
	return toUserEntity(&model), nil
}

func (r *userRepository) UpdateRole(ctx context.Context, id uint, role user.Role) error {
	result := getDB(ctx, r.db).Model(&UserModel{}).Where("id = ?", id).Update("role", string(role))
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "update user role failed")
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func toUserEntity(model *UserModel) *user.User {
	return &user.User{
		ID:        model.ID,
		Email:     model.Email,
		Password:  model.Password,
		Nickname:  model.Nickname,
		Role:      user.Role(model.Role),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}
