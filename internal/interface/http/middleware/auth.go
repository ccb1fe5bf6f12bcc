package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/library/internal/domain/user"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/jwt"
	"github.com/xiebiao/library/pkg/response"
)

const (
	ctxUserID      = "user_id"
	ctxEmail       = "email"
	ctxNickname    = "nickname"
	ctxRole        = "role"
	ctxAccessToken = "access_token"
)

var errBadAuthHeader = apperrors.New(apperrors.ErrCodeInvalidToken, "malformed Authorization header")

// Blacklist answers whether a token was revoked by logout.
type Blacklist interface {
	IsInBlacklist(ctx context.Context, token string) (bool, error)
}

// AuthMiddleware validates bearer access tokens and puts the caller's
// identity on the gin context.
type AuthMiddleware struct {
	jwtManager *jwt.Manager
	blacklist  Blacklist
}

func NewAuthMiddleware(jwtManager *jwt.Manager, blacklist Blacklist) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager, blacklist: blacklist}
}

// RequireAuth rejects requests without a live access token.
//
//	authorized := v1.Group("")
//	authorized.Use(auth.RequireAuth())
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, apperrors.ErrUnauthorized)
			return
		}
		token, ok := bearerToken(header)
		if !ok {
			abort(c, errBadAuthHeader)
			return
		}

		revoked, err := m.blacklist.IsInBlacklist(c.Request.Context(), token)
		if err != nil {
			abort(c, apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "verify token failed"))
			return
		}
		if revoked {
			abort(c, apperrors.New(apperrors.ErrCodeTokenExpired, "token revoked, please log in again"))
			return
		}

		claims, err := m.jwtManager.ParseAccessToken(token)
		if err != nil {
			abort(c, err)
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxNickname, claims.Nickname)
		c.Set(ctxRole, claims.Role)
		c.Set(ctxAccessToken, token)
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) != string(user.RoleAdmin) {
			abort(c, apperrors.ErrForbidden)
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	response.Error(c, err)
	c.Abort()
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// GetUserID returns 0 for anonymous requests.
func GetUserID(c *gin.Context) uint {
	return c.GetUint(ctxUserID)
}

func GetEmail(c *gin.Context) string {
	return c.GetString(ctxEmail)
}

func GetRole(c *gin.Context) string {
	return c.GetString(ctxRole)
}

// GetAccessToken returns the raw bearer token of the request.
func GetAccessToken(c *gin.Context) string {
	return c.GetString(ctxAccessToken)
}

// MustGetUserID is for handlers mounted behind RequireAuth.
func MustGetUserID(c *gin.Context) uint {
	userID := GetUserID(c)
	if userID == 0 {
		panic("user_id not found in context")
	}
	return userID
}
