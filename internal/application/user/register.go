package user

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/pkg/logger"
)

type RegisterUseCase struct {
	userService user.Service
}

func NewRegisterUseCase(userService user.Service) *RegisterUseCase {
	return &RegisterUseCase{userService: userService}
}

type RegisterRequest struct {
	Email    string
	Password string
	Nickname string
}

// Execute creates a member account.
func (uc *RegisterUseCase) Execute(ctx context.Context, req RegisterRequest) (*UserInfo, error) {
	u, err := uc.userService.Register(ctx, req.Email, req.Password, req.Nickname)
	if err != nil {
		return nil, err
	}

	logger.L().Info("user registered", zap.Uint("user_id", u.ID))
	return &UserInfo{ID: u.ID, Email: u.Email, Nickname: u.Nickname, Role: string(u.Role)}, nil
}

// BootstrapAdmin seeds the librarian account from configuration.
type BootstrapAdmin struct {
	userService user.Service
}

func NewBootstrapAdmin(userService user.Service) *BootstrapAdmin {
	return &BootstrapAdmin{userService: userService}
}

// Execute creates or promotes the account; an empty email does nothing.
func (b *BootstrapAdmin) Execute(ctx context.Context, email, password, nickname string) error {
	if email == "" {
		return nil
	}
	u, err := b.userService.EnsureAdmin(ctx, email, password, nickname)
	if err != nil {
		return err
	}
	logger.L().Info("admin account ready", zap.Uint("user_id", u.ID), zap.String("email", u.Email))
	return nil
}
