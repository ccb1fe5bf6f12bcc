package reservation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/reservation"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/library/pkg/keylock"
	"github.com/xiebiao/library/pkg/tracing"
)

type recordingNotifier struct {
	mu    sync.Mutex
	notes []reservation.Notification
	err   error
}

func (n *recordingNotifier) Notify(_ context.Context, notes ...reservation.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, notes...)
	return n.err
}

func (n *recordingNotifier) topics() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.notes))
	for i, note := range n.notes {
		out[i] = note.Topic
	}
	return out
}

type env struct {
	ctx          context.Context
	svc          *Service
	query        *QueryService
	notifier     *recordingNotifier
	books        book.Repository
	users        user.Repository
	reservations reservation.Repository
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.NewStore()
	e := &env{
		ctx:          context.Background(),
		notifier:     &recordingNotifier{},
		books:        memory.NewBookRepository(store),
		users:        memory.NewUserRepository(store),
		reservations: memory.NewReservationRepository(store),
	}
	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	engine := reservation.NewEngine(
		e.reservations, e.books, e.users,
		memory.NewTxManager(store), NewTimedLocker(keylock.New[uint]()),
	).WithClock(tick)
	e.svc = NewService(engine, e.notifier)
	e.query = NewQueryService(e.reservations, e.books, e.users)
	return e
}

func (e *env) addUser(t *testing.T, email, nickname string) *user.User {
	t.Helper()
	u := user.NewUser(email, "hash", nickname, user.RoleMember)
	require.NoError(t, e.users.Create(e.ctx, u))
	return u
}

func (e *env) addBook(t *testing.T, isbn, title string, qty int) *book.Book {
	t.Helper()
	b := book.NewBook(isbn, title, "Author", qty)
	require.NoError(t, e.books.Create(e.ctx, b))
	return b
}

func TestService_ReserveAndReturnPublishesNotifications(t *testing.T) {
	e := newEnv(t)
	alice := e.addUser(t, "alice@example.com", "alice")
	bob := e.addUser(t, "bob@example.com", "bob")
	b := e.addBook(t, "9780000000001", "Dune", 1)

	first, err := e.svc.Reserve(e.ctx, alice.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusAssigned, first.Status)

	second, err := e.svc.Reserve(e.ctx, bob.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusQueued, second.Status)

	_, err = e.svc.ApprovePickup(e.ctx, first.ReservationID)
	require.NoError(t, err)

	ret, err := e.svc.Return(e.ctx, first.ReservationID)
	require.NoError(t, err)
	require.NotNil(t, ret.Promotion)
	assert.Equal(t, second.ReservationID, ret.Promotion.ReservationID)

	assert.Equal(t, []string{
		reservation.TopicAssigned,
		reservation.TopicQueued,
		reservation.TopicPickedUp,
		reservation.TopicReturned,
		reservation.TopicPromoted,
	}, e.notifier.topics())
}

func TestService_RejectionPublishesNothing(t *testing.T) {
	e := newEnv(t)
	alice := e.addUser(t, "alice@example.com", "alice")
	bob := e.addUser(t, "bob@example.com", "bob")
	b := e.addBook(t, "9780000000001", "Dune", 1)

	res, err := e.svc.Reserve(e.ctx, alice.ID, b.ID)
	require.NoError(t, err)

	denied, err := e.svc.Cancel(e.ctx, bob.ID, res.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, reservation.OutcomePermissionDenied, denied.Outcome)

	missing, err := e.svc.ApprovePickup(e.ctx, 999)
	require.NoError(t, err)
	assert.Equal(t, reservation.OutcomeNotFound, missing.Outcome)

	assert.Equal(t, []string{reservation.TopicAssigned}, e.notifier.topics())
}

func TestService_NotifierFailureIsNotFatal(t *testing.T) {
	e := newEnv(t)
	e.notifier.err = errors.New("broker down")
	alice := e.addUser(t, "alice@example.com", "alice")
	b := e.addBook(t, "9780000000001", "Dune", 2)

	res, err := e.svc.Reserve(e.ctx, alice.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, res.OK())

	got, err := e.books.FindByID(e.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Quantity)
}

func TestService_AutoAssignNext(t *testing.T) {
	e := newEnv(t)
	alice := e.addUser(t, "alice@example.com", "alice")
	bob := e.addUser(t, "bob@example.com", "bob")
	b := e.addBook(t, "9780000000001", "Dune", 0)

	empty, err := e.svc.AutoAssignNext(e.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.OutcomeEmptyQueue, empty.Outcome)

	_, err = e.svc.Reserve(e.ctx, alice.ID, b.ID)
	require.NoError(t, err)
	_, err = e.svc.Reserve(e.ctx, bob.ID, b.ID)
	require.NoError(t, err)

	noStock, err := e.svc.AutoAssignNext(e.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.OutcomeInsufficientStock, noStock.Outcome)
}

func TestService_RecordsSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	tracing.Install(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	e := newEnv(t)
	alice := e.addUser(t, "alice@example.com", "alice")
	b := e.addBook(t, "9780000000001", "Dune", 1)

	_, err := e.svc.Reserve(e.ctx, alice.ID, b.ID)
	require.NoError(t, err)

	spans := rec.Ended()
	require.NotEmpty(t, spans)
	last := spans[len(spans)-1]
	assert.Equal(t, "reservation.reserve", last.Name())

	attrs := map[string]string{}
	for _, kv := range last.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "success", attrs["reservation.outcome"])
	assert.Equal(t, "assigned", attrs["reservation.status"])
}

func TestQuery_AllReservations(t *testing.T) {
	e := newEnv(t)
	alice := e.addUser(t, "alice@example.com", "alice")
	bob := e.addUser(t, "bob@example.com", "bob")
	b := e.addBook(t, "9780000000001", "Dune", 1)

	first, err := e.svc.Reserve(e.ctx, alice.ID, b.ID)
	require.NoError(t, err)
	second, err := e.svc.Reserve(e.ctx, bob.ID, b.ID)
	require.NoError(t, err)

	all, err := e.query.AllReservations(e.ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ReservationID, all[0].ID)
	assert.Equal(t, "bob", all[0].Nickname)
	assert.Equal(t, "Dune", all[0].BookTitle)
	assert.Equal(t, first.ReservationID, all[1].ID)

	queued, err := e.query.AllReservations(e.ctx, "queued")
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, second.ReservationID, queued[0].ID)

	assigned, err := e.query.AllReservations(e.ctx, "1")
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, first.ReservationID, assigned[0].ID)

	none, err := e.query.AllReservations(e.ctx, "returned")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	for _, bad := range []string{"lost", "9", "-1", "999999"} {
		_, err = e.query.AllReservations(e.ctx, bad)
		assert.ErrorIs(t, err, reservation.ErrInvalidStatusFilter, bad)
	}
}

func TestQuery_UserReservationsFallsBackForMissingRows(t *testing.T) {
	e := newEnv(t)
	alice := e.addUser(t, "alice@example.com", "alice")
	b := e.addBook(t, "9780000000001", "Dune", 1)

	_, err := e.svc.Reserve(e.ctx, alice.ID, b.ID)
	require.NoError(t, err)

	orphan := reservation.NewReservation(alice.ID, 4242, reservation.StatusQueued, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, e.reservations.Create(e.ctx, orphan))
	stranger := reservation.NewReservation(777, b.ID, reservation.StatusQueued, time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, e.reservations.Create(e.ctx, stranger))

	mine, err := e.query.UserReservations(e.ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, orphan.ID, mine[0].ID)
	assert.Equal(t, reservation.UnknownBook, mine[0].BookTitle)
	assert.Equal(t, "Dune", mine[1].BookTitle)

	all, err := e.query.AllReservations(e.ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, stranger.ID, all[0].ID)
	assert.Equal(t, reservation.UnknownUser, all[0].Nickname)

	nobody, err := e.query.UserReservations(e.ctx, 31337)
	require.NoError(t, err)
	assert.Empty(t, nobody)
}
