package user

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/pkg/jwt"
	"github.com/xiebiao/library/pkg/logger"
)

type LoginRequest struct {
	Email    string
	Password string
	ClientIP string
}

type LoginResponse struct {
	User         UserInfo `json:"user"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in"` // seconds
}

// LoginUseCase checks credentials, issues a token pair and opens a session
// that lives as long as the refresh token.
type LoginUseCase struct {
	userService  user.Service
	jwtManager   *jwt.Manager
	sessionStore SessionStore
	now          func() time.Time
}

func NewLoginUseCase(userService user.Service, jwtManager *jwt.Manager, sessionStore SessionStore) *LoginUseCase {
	return &LoginUseCase{
		userService:  userService,
		jwtManager:   jwtManager,
		sessionStore: sessionStore,
		now:          time.Now,
	}
}

func (uc *LoginUseCase) Execute(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	u, err := uc.userService.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	pair, err := uc.jwtManager.GenerateToken(identityOf(u))
	if err != nil {
		return nil, err
	}

	session := map[string]interface{}{
		"user_id":  u.ID,
		"email":    u.Email,
		"role":     string(u.Role),
		"login_at": uc.now().Unix(),
		"ip":       req.ClientIP,
	}
	// a missing session only disables the server-side logout check
	if err := uc.sessionStore.SaveSession(ctx, u.ID, session, uc.jwtManager.RefreshTokenTTL()); err != nil {
		logger.L().Warn("save session failed", zap.Uint("user_id", u.ID), zap.Error(err))
	}

	return &LoginResponse{
		User:         UserInfo{ID: u.ID, Email: u.Email, Nickname: u.Nickname, Role: string(u.Role)},
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

// RefreshUseCase trades a refresh token for a new pair. The user is
// re-read so role changes take effect.
type RefreshUseCase struct {
	users        user.Repository
	jwtManager   *jwt.Manager
	sessionStore SessionStore
}

func NewRefreshUseCase(users user.Repository, jwtManager *jwt.Manager, sessionStore SessionStore) *RefreshUseCase {
	return &RefreshUseCase{users: users, jwtManager: jwtManager, sessionStore: sessionStore}
}

func (uc *RefreshUseCase) Execute(ctx context.Context, refreshToken string) (*LoginResponse, error) {
	claims, err := uc.jwtManager.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	// logout drops the session, which also retires its refresh tokens
	if _, err := uc.sessionStore.GetSession(ctx, claims.UserID); err != nil {
		return nil, err
	}

	u, err := uc.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	pair, err := uc.jwtManager.GenerateToken(identityOf(u))
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		User:         UserInfo{ID: u.ID, Email: u.Email, Nickname: u.Nickname, Role: string(u.Role)},
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

// LogoutUseCase drops the session and blacklists the access token for
// the rest of its lifetime.
type LogoutUseCase struct {
	jwtManager   *jwt.Manager
	sessionStore SessionStore
}

func NewLogoutUseCase(jwtManager *jwt.Manager, sessionStore SessionStore) *LogoutUseCase {
	return &LogoutUseCase{jwtManager: jwtManager, sessionStore: sessionStore}
}

func (uc *LogoutUseCase) Execute(ctx context.Context, accessToken string) error {
	claims, err := uc.jwtManager.ParseAccessToken(accessToken)
	if err != nil {
		return err
	}
	if err := uc.sessionStore.DeleteSession(ctx, claims.UserID); err != nil {
		return err
	}
	return uc.sessionStore.AddToBlacklist(ctx, accessToken, uc.jwtManager.Remaining(claims))
}

// ProfileUseCase returns the caller's account.
type ProfileUseCase struct {
	users user.Repository
}

func NewProfileUseCase(users user.Repository) *ProfileUseCase {
	return &ProfileUseCase{users: users}
}

func (uc *ProfileUseCase) Execute(ctx context.Context, userID uint) (*UserInfo, error) {
	u, err := uc.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserInfo{ID: u.ID, Email: u.Email, Nickname: u.Nickname, Role: string(u.Role)}, nil
}

func identityOf(u *user.User) jwt.Identity {
	return jwt.Identity{UserID: u.ID, Email: u.Email, Nickname: u.Nickname, Role: string(u.Role)}
}
