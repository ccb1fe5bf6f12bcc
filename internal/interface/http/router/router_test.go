package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	appbook "github.com/xiebiao/library/internal/application/book"
	appreservation "github.com/xiebiao/library/internal/application/reservation"
	appuser "github.com/xiebiao/library/internal/application/user"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/reservation"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/events"
	"github.com/xiebiao/library/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/jwt"
	"github.com/xiebiao/library/pkg/keylock"
)

const (
	adminEmail    = "admin@library.local"
	adminPassword = "Admin1234"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type server struct {
	t      *testing.T
	engine http.Handler
}

func newServer(t *testing.T) *server {
	t.Helper()
	cfg := &config.Config{
		Server:  config.ServerConfig{Port: 8080, Mode: "test", CORSOrigins: []string{"*"}},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}

	store := memory.NewStore()
	bookRepo := memory.NewBookRepository(store)
	userRepo := memory.NewUserRepository(store)
	reservationRepo := memory.NewReservationRepository(store)
	sessions := memory.NewSessionStore()
	jwtManager := jwt.NewManager("test-secret", time.Hour, 24*time.Hour)

	userService := user.NewServiceWithCost(userRepo, bcrypt.MinCost)
	bookService := book.NewService(bookRepo)
	require.NoError(t, appuser.NewBootstrapAdmin(userService).Execute(context.Background(), adminEmail, adminPassword, "librarian"))

	engine := reservation.NewEngine(reservationRepo, bookRepo, userRepo, memory.NewTxManager(store), keylock.New[uint]())

	r := New(cfg, zap.NewNop(), Handlers{
		Users: handler.NewUserHandler(
			appuser.NewRegisterUseCase(userService),
			appuser.NewLoginUseCase(userService, jwtManager, sessions),
			appuser.NewRefreshUseCase(userRepo, jwtManager, sessions),
			appuser.NewLogoutUseCase(jwtManager, sessions),
			appuser.NewProfileUseCase(userRepo),
		),
		Books: handler.NewBookHandler(
			appbook.NewAddBookUseCase(bookService),
			appbook.NewListBooksUseCase(bookService),
			appbook.NewGetBookUseCase(bookService),
		),
		Reservations: handler.NewReservationHandler(
			appreservation.NewService(engine, events.NoopNotifier{}),
			appreservation.NewQueryService(reservationRepo, bookRepo, userRepo),
		),
		Auth: middleware.NewAuthMiddleware(jwtManager, sessions),
	})
	return &server{t: t, engine: r}
}

func (s *server) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (s *server) login(email, password string) (access, refresh string) {
	s.t.Helper()
	_, env := s.do(http.MethodPost, "/api/v1/users/login", "", map[string]string{"email": email, "password": password})
	require.Equal(s.t, 0, env.Code, env.Message)
	var out struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &out))
	return out.AccessToken, out.RefreshToken
}

func (s *server) register(email, nickname string) string {
	s.t.Helper()
	_, env := s.do(http.MethodPost, "/api/v1/users/register", "", map[string]string{
		"email": email, "password": "Passw0rd1", "nickname": nickname,
	})
	require.Equal(s.t, 0, env.Code, env.Message)
	access, _ := s.login(email, "Passw0rd1")
	return access
}

type result struct {
	ReservationID uint   `json:"reservation_id"`
	Status        int    `json:"status"`
	StatusName    string `json:"status_name"`
	Message       string `json:"message"`
	Promotion     *struct {
		ReservationID uint `json:"reservation_id"`
		UserID        uint `json:"user_id"`
	} `json:"promotion"`
}

func decodeResult(t *testing.T, env envelope) result {
	t.Helper()
	var r result
	require.NoError(t, json.Unmarshal(env.Data, &r))
	return r
}

func TestPing(t *testing.T) {
	s := newServer(t)
	w, env := s.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
}

func TestReservationLifecycle(t *testing.T) {
	s := newServer(t)
	admin, _ := s.login(adminEmail, adminPassword)
	alice := s.register("alice@example.com", "alice")
	bob := s.register("bob@example.com", "bob")

	_, env := s.do(http.MethodPost, "/api/v1/admin/books", admin, map[string]interface{}{
		"isbn": "9780134190440", "title": "The Go Programming Language", "author": "Donovan", "quantity": 1,
	})
	require.Equal(t, 0, env.Code, env.Message)
	var created struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	_, env = s.do(http.MethodPost, "/api/v1/reservations", alice, map[string]uint{"book_id": created.ID})
	require.Equal(t, 0, env.Code, env.Message)
	first := decodeResult(t, env)
	assert.Equal(t, int(reservation.StatusAssigned), first.Status)
	assert.Equal(t, reservation.MsgReservedAssigned, env.Message)

	_, env = s.do(http.MethodPost, "/api/v1/reservations", bob, map[string]uint{"book_id": created.ID})
	require.Equal(t, 0, env.Code, env.Message)
	second := decodeResult(t, env)
	assert.Equal(t, "queued", second.StatusName)

	_, env = s.do(http.MethodPost, fmt.Sprintf("/api/v1/reservations/%d/cancel", first.ReservationID), bob, nil)
	assert.Equal(t, apperrors.ErrCodeForbidden, env.Code)
	assert.Equal(t, reservation.MsgNotOwner, env.Message)
	assert.Equal(t, int(reservation.StatusNone), decodeResult(t, env).Status)

	_, env = s.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/reservations/%d/return", first.ReservationID), admin, nil)
	assert.Equal(t, apperrors.ErrCodeInvalidReservationStatus, env.Code)

	_, env = s.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/reservations/%d/approve", first.ReservationID), admin, nil)
	require.Equal(t, 0, env.Code, env.Message)
	assert.Equal(t, int(reservation.StatusPickedUp), decodeResult(t, env).Status)

	_, env = s.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/reservations/%d/return", first.ReservationID), admin, nil)
	require.Equal(t, 0, env.Code, env.Message)
	returned := decodeResult(t, env)
	require.NotNil(t, returned.Promotion)
	assert.Equal(t, second.ReservationID, returned.Promotion.ReservationID)

	_, env = s.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/reservations/%d/return", first.ReservationID), admin, nil)
	assert.Equal(t, apperrors.ErrCodeReservationClosed, env.Code)

	_, env = s.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/books/%d/assign-next", created.ID), admin, nil)
	assert.Equal(t, apperrors.ErrCodeInsufficientStock, env.Code)
	assert.Equal(t, -1, decodeResult(t, env).Status)

	_, env = s.do(http.MethodGet, "/api/v1/reservations/mine", bob, nil)
	require.Equal(t, 0, env.Code)
	var mine []struct {
		ID         uint   `json:"id"`
		Nickname   string `json:"nickname"`
		BookTitle  string `json:"book_title"`
		StatusName string `json:"status_name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "bob", mine[0].Nickname)
	assert.Equal(t, "The Go Programming Language", mine[0].BookTitle)
	assert.Equal(t, "assigned", mine[0].StatusName)

	_, env = s.do(http.MethodGet, "/api/v1/admin/reservations?status=returned", admin, nil)
	require.Equal(t, 0, env.Code)
	var returnedRows []struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &returnedRows))
	require.Len(t, returnedRows, 1)
	assert.Equal(t, first.ReservationID, returnedRows[0].ID)

	_, env = s.do(http.MethodGet, "/api/v1/admin/reservations?status=lost", admin, nil)
	assert.Equal(t, apperrors.ErrCodeInvalidParams, env.Code)

	_, env = s.do(http.MethodGet, fmt.Sprintf("/api/v1/books/%d", created.ID), "", nil)
	require.Equal(t, 0, env.Code)
	var got struct {
		Quantity         int `json:"quantity"`
		ReservationCount int `json:"reservation_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, 0, got.Quantity)
	assert.Equal(t, 2, got.ReservationCount)
}

func TestReserveUnknownBook(t *testing.T) {
	s := newServer(t)
	alice := s.register("alice@example.com", "alice")

	_, env := s.do(http.MethodPost, "/api/v1/reservations", alice, map[string]uint{"book_id": 42})
	assert.Equal(t, apperrors.ErrCodeBookNotFound, env.Code)
	assert.Equal(t, reservation.MsgBookNotFound, env.Message)

	_, env = s.do(http.MethodPost, "/api/v1/reservations/abc/cancel", alice, nil)
	assert.Equal(t, apperrors.ErrCodeInvalidParams, env.Code)

	_, env = s.do(http.MethodPost, "/api/v1/reservations/77/cancel", alice, nil)
	assert.Equal(t, apperrors.ErrCodeReservationNotFound, env.Code)
}

func TestAuthGuards(t *testing.T) {
	s := newServer(t)
	alice := s.register("alice@example.com", "alice")

	_, env := s.do(http.MethodGet, "/api/v1/reservations/mine", "", nil)
	assert.Equal(t, apperrors.ErrCodeUnauthorized, env.Code)

	_, env = s.do(http.MethodGet, "/api/v1/reservations/mine", "not-a-jwt", nil)
	assert.Equal(t, apperrors.ErrCodeInvalidToken, env.Code)

	_, env = s.do(http.MethodGet, "/api/v1/admin/reservations", alice, nil)
	assert.Equal(t, apperrors.ErrCodeForbidden, env.Code)

	_, env = s.do(http.MethodPost, "/api/v1/admin/books", alice, map[string]interface{}{"isbn": "9780134190440", "title": "x", "quantity": 1})
	assert.Equal(t, apperrors.ErrCodeForbidden, env.Code)
}

func TestSessionRoutes(t *testing.T) {
	s := newServer(t)
	s.register("alice@example.com", "alice")
	access, refresh := s.login("alice@example.com", "Passw0rd1")

	_, env := s.do(http.MethodGet, "/api/v1/users/me", access, nil)
	require.Equal(t, 0, env.Code)
	var me struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "alice@example.com", me.Email)
	assert.Equal(t, "member", me.Role)

	_, env = s.do(http.MethodPost, "/api/v1/users/refresh", "", map[string]string{"refresh_token": access})
	assert.Equal(t, apperrors.ErrCodeInvalidToken, env.Code)

	_, env = s.do(http.MethodPost, "/api/v1/users/refresh", "", map[string]string{"refresh_token": refresh})
	require.Equal(t, 0, env.Code, env.Message)

	_, env = s.do(http.MethodPost, "/api/v1/users/logout", access, nil)
	require.Equal(t, 0, env.Code, env.Message)

	_, env = s.do(http.MethodGet, "/api/v1/users/me", access, nil)
	assert.Equal(t, apperrors.ErrCodeTokenExpired, env.Code)

	_, env = s.do(http.MethodPost, "/api/v1/users/refresh", "", map[string]string{"refresh_token": refresh})
	assert.Equal(t, apperrors.ErrCodeUnauthorized, env.Code)
}

func TestValidationAndListing(t *testing.T) {
	s := newServer(t)

	_, env := s.do(http.MethodPost, "/api/v1/users/register", "", map[string]string{"email": "nope", "password": "x"})
	assert.Equal(t, apperrors.ErrCodeInvalidParams, env.Code)

	_, env = s.do(http.MethodGet, "/api/v1/books?page_size=500", "", nil)
	assert.Equal(t, apperrors.ErrCodeInvalidParams, env.Code)

	_, env = s.do(http.MethodGet, "/api/v1/books", "", nil)
	require.Equal(t, 0, env.Code)
	var page struct {
		Total int64 `json:"total"`
		Page  int   `json:"page"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Zero(t, page.Total)
	assert.Equal(t, 1, page.Page)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newServer(t)
	s.do(http.MethodGet, "/ping", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "library_http_requests_total")
}
