package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

const issuer = "library"

// TokenType separates access tokens from refresh tokens so one cannot be
// replayed as the other.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Manager signs and verifies HS256 token pairs. Access tokens are short
// lived and authorise API calls; refresh tokens only mint new pairs.
type Manager struct {
	secret             []byte
	accessTokenExpire  time.Duration
	refreshTokenExpire time.Duration
	now                func() time.Time
}

// NewManager creates a token manager.
func NewManager(secret string, accessTokenExpire, refreshTokenExpire time.Duration) *Manager {
	return &Manager{
		secret:             []byte(secret),
		accessTokenExpire:  accessTokenExpire,
		refreshTokenExpire: refreshTokenExpire,
		now:                time.Now,
	}
}

// Claims are the custom fields on top of the registered ones.
type Claims struct {
	UserID   uint      `json:"user_id"`
	Email    string    `json:"email,omitempty"`
	Nickname string    `json:"nickname,omitempty"`
	Role     string    `json:"role,omitempty"`
	Type     TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // access token lifetime in seconds
}

// Identity is what a token says about its holder.
type Identity struct {
	UserID   uint
	Email    string
	Nickname string
	Role     string
}

// GenerateToken signs a new access and refresh token for id.
func (m *Manager) GenerateToken(id Identity) (*TokenPair, error) {
	now := m.now()

	access, err := m.sign(Claims{
		UserID:           id.UserID,
		Email:            id.Email,
		Nickname:         id.Nickname,
		Role:             id.Role,
		Type:             TokenTypeAccess,
		RegisteredClaims: m.registered(id.UserID, now, m.accessTokenExpire),
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "sign access token failed")
	}

	// the refresh token carries only the user id; roles are re-read on refresh
	refresh, err := m.sign(Claims{
		UserID:           id.UserID,
		Type:             TokenTypeRefresh,
		RegisteredClaims: m.registered(id.UserID, now, m.refreshTokenExpire),
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "sign refresh token failed")
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(m.accessTokenExpire.Seconds()),
	}, nil
}

// ParseAccessToken verifies signature, time window and token type.
func (m *Manager) ParseAccessToken(token string) (*Claims, error) {
	return m.parse(token, TokenTypeAccess)
}

// ParseRefreshToken is ParseAccessToken for refresh tokens.
func (m *Manager) ParseRefreshToken(token string) (*Claims, error) {
	return m.parse(token, TokenTypeRefresh)
}

// AccessTokenTTL is how long a freshly issued access token lives; revoked
// tokens are blacklisted for this long.
func (m *Manager) AccessTokenTTL() time.Duration {
	return m.accessTokenExpire
}

// RefreshTokenTTL bounds the login session.
func (m *Manager) RefreshTokenTTL() time.Duration {
	return m.refreshTokenExpire
}

// Remaining returns how long claims stay valid from now.
func (m *Manager) Remaining(claims *Claims) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	return claims.ExpiresAt.Sub(m.now())
}

func (m *Manager) registered(userID uint, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    issuer,
		Subject:   strconv.FormatUint(uint64(userID), 10),
	}
}

func (m *Manager) sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *Manager) parse(tokenString string, want TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Type != want {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}
