package user

import (
	"context"
	"errors"
	"regexp"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// Service holds account rules: registration, credential checks and roles.
type Service interface {
	Register(ctx context.Context, email, password, nickname string) (*User, error)

	Login(ctx context.Context, email, password string) (*User, error)

	// EnsureAdmin creates the account as admin, or promotes it if it exists.
	EnsureAdmin(ctx context.Context, email, password, nickname string) (*User, error)

	ValidatePassword(hashedPassword, plainPassword string) error
}

type service struct {
	repo       Repository
	bcryptCost int
}

// NewService creates the account service.
func NewService(repo Repository) Service {
	return NewServiceWithCost(repo, 12)
}

// NewServiceWithCost lets tests use bcrypt.MinCost.
func NewServiceWithCost(repo Repository, cost int) Service {
	return &service{repo: repo, bcryptCost: cost}
}

func (s *service) Register(ctx context.Context, email, password, nickname string) (*User, error) {
	return s.create(ctx, email, password, nickname, RoleMember)
}

func (s *service) create(ctx context.Context, email, password, nickname string, role Role) (*User, error) {
	if !isValidEmail(email) {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "invalid email")
	}

	if err := validatePasswordStrength(password); err != nil {
		return nil, err
	}

	if len(nickname) < 2 || len(nickname) > 50 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "nickname must be 2-50 characters")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, apperrors.Wrap(err, "hash password failed")
	}

	u := NewUser(email, string(hashed), nickname, role)
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := s.ValidatePassword(u.Password, password); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) EnsureAdmin(ctx context.Context, email, password, nickname string) (*User, error) {
	u, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if u.IsAdmin() {
			return u, nil
		}
		if err := s.repo.UpdateRole(ctx, u.ID, RoleAdmin); err != nil {
			return nil, err
		}
		u.Role = RoleAdmin
		return u, nil
	case errors.Is(err, apperrors.ErrUserNotFound):
		return s.create(ctx, email, password, nickname, RoleAdmin)
	default:
		return nil, err
	}
}

func (s *service) ValidatePassword(hashedPassword, plainPassword string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return apperrors.ErrInvalidPassword
		}
		return apperrors.Wrap(err, "verify password failed")
	}
	return nil
}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	hasLetter    = regexp.MustCompile(`[a-zA-Z]`)
	hasDigit     = regexp.MustCompile(`[0-9]`)
)

func isValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// validatePasswordStrength requires 8-20 characters with letters and digits.
func validatePasswordStrength(password string) error {
	if len(password) < 8 || len(password) > 20 {
		return apperrors.ErrWeakPassword
	}
	if !hasLetter.MatchString(password) || !hasDigit.MatchString(password) {
		return apperrors.ErrWeakPassword
	}
	return nil
}
