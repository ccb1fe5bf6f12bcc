package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xiebiao/library/internal/infrastructure/persistence/memory"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/jwt"
	"github.com/xiebiao/library/pkg/response"
	"github.com/xiebiao/library/pkg/tracing"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var r response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	return r
}

func TestRequestLogger_AssignsAndEchoesID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	generated := w.Header().Get(HeaderRequestID)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "abc-123", entries[1].ContextMap()["request_id"])
	assert.Equal(t, "/x", entries[1].ContextMap()["route"])
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := gin.New()
	r.Use(Recovery(zap.New(core)))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperrors.ErrCodeInternal, decode(t, w).Code)
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestTracing_ContinuesIncomingTrace(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	tracing.Install(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	r := gin.New()
	r.Use(Tracing())
	r.GET("/books/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/books/7", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", w.Header().Get(HeaderTraceID))
	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /books/:id", spans[0].Name())
	assert.Equal(t, "00f067aa0ba902b7", spans[0].Parent().SpanID().String())
}

func TestAuth(t *testing.T) {
	sessions := memory.NewSessionStore()
	manager := jwt.NewManager("secret", time.Hour, 2*time.Hour)
	auth := NewAuthMiddleware(manager, sessions)

	r := gin.New()
	r.GET("/me", auth.RequireAuth(), func(c *gin.Context) {
		response.Success(c, gin.H{"id": GetUserID(c), "role": GetRole(c), "email": GetEmail(c)})
	})
	r.GET("/admin", auth.RequireAuth(), auth.RequireAdmin(), func(c *gin.Context) {
		response.Success(c, nil)
	})

	call := func(path, header string) response.Response {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return decode(t, w)
	}

	member, err := manager.GenerateToken(jwt.Identity{UserID: 5, Email: "m@example.com", Role: "member"})
	require.NoError(t, err)
	admin, err := manager.GenerateToken(jwt.Identity{UserID: 1, Role: "admin"})
	require.NoError(t, err)

	assert.Equal(t, apperrors.ErrCodeUnauthorized, call("/me", "").Code)
	assert.Equal(t, apperrors.ErrCodeInvalidToken, call("/me", "Token abc").Code)
	assert.Equal(t, apperrors.ErrCodeInvalidToken, call("/me", "Bearer "+member.RefreshToken).Code)

	ok := call("/me", "bearer "+member.AccessToken)
	assert.Equal(t, 0, ok.Code)
	assert.Equal(t, map[string]interface{}{"id": float64(5), "role": "member", "email": "m@example.com"}, ok.Data)

	assert.Equal(t, apperrors.ErrCodeForbidden, call("/admin", "Bearer "+member.AccessToken).Code)
	assert.Equal(t, 0, call("/admin", "Bearer "+admin.AccessToken).Code)

	require.NoError(t, sessions.AddToBlacklist(context.Background(), member.AccessToken, time.Hour))
	assert.Equal(t, apperrors.ErrCodeTokenExpired, call("/me", "Bearer "+member.AccessToken).Code)
}
