package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-expense-tracker/internal/apitest"
	"github.com/pribylovaa/go-expense-tracker/internal/client"
	"github.com/pribylovaa/go-expense-tracker/internal/config"
	apierrors "github.com/pribylovaa/go-expense-tracker/internal/errors"
	"github.com/pribylovaa/go-expense-tracker/internal/models"
	"github.com/pribylovaa/go-expense-tracker/internal/tokens"
	"github.com/pribylovaa/go-expense-tracker/mocks"
)

const (
	email    = "alice@example.com"
	password = "password123"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// env — сервер, хранилище, клиент и сессия поверх них.
type env struct {
	srv   *apitest.Server
	store tokens.Store
	cl    *client.Client
	sess  *Session
}

func newEnv(t *testing.T, store tokens.Store) *env {
	t.Helper()

	srv := apitest.New(t)
	if store == nil {
		store = tokens.NewMemoryStore()
	}

	cl, err := client.New(config.Config{
		API: config.APIConfig{BaseURL: srv.BaseURL(), Timeout: 5 * time.Second},
	}, store, client.WithLogger(quietLogger()))
	require.NoError(t, err)

	return &env{srv: srv, store: store, cl: cl, sess: New(cl, store, quietLogger())}
}

func requirePair(t *testing.T, s tokens.Store) models.TokenPair {
	t.Helper()
	p, err := tokens.Pair(context.Background(), s)
	require.NoError(t, err)
	return p
}

func TestNew_StartsLoading(t *testing.T) {
	t.Parallel()

	s := New(nil, tokens.NewMemoryStore(), nil)
	require.Equal(t, StateLoading, s.State())
	require.Nil(t, s.User())
	require.False(t, s.IsAuthenticated())
	require.Equal(t, "loading", s.State().String())
}

func TestState_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "authenticated", StateAuthenticated.String())
	require.Equal(t, "unauthenticated", StateUnauthenticated.String())
	require.Equal(t, "State(42)", State(42).String())
}

// Без токена Bootstrap не делает ни одного запроса.
func TestBootstrap_NoToken_NoRequests(t *testing.T) {
	t.Parallel()

	e := newEnv(t, nil)
	require.NoError(t, e.sess.Bootstrap(context.Background()))

	require.Equal(t, StateUnauthenticated, e.sess.State())
	require.Nil(t, e.sess.User())
	require.Zero(t, e.srv.TotalCalls())
}

func TestBootstrap_ValidToken(t *testing.T) {
	t.Parallel()

	e := newEnv(t, nil)
	u := e.srv.SeedUser(email, password, "Alice")
	pair := e.srv.IssuePair(u.ID)
	require.NoError(t, e.store.Set(context.Background(), pair.Access, pair.Refresh))

	require.NoError(t, e.sess.Bootstrap(context.Background()))

	snap := e.sess.Snapshot()
	require.Equal(t, StateAuthenticated, snap.State)
	require.True(t, snap.IsAuthenticated())
	require.Equal(t, u.ID, snap.User.ID)
	require.Equal(t, 1, e.srv.Calls(http.MethodGet, client.EndpointMe))
}

// Протухший access восстанавливается через refresh прозрачно для сессии.
func TestBootstrap_ExpiredAccess_Refreshes(t *testing.T) {
	t.Parallel()

	e := newEnv(t, nil)
	u := e.srv.SeedUser(email, password, "Alice")
	pair := e.srv.IssuePair(u.ID)
	require.NoError(t, e.store.Set(context.Background(), pair.Access, pair.Refresh))
	e.srv.ExpireAccessTokens()

	require.NoError(t, e.sess.Bootstrap(context.Background()))
	require.True(t, e.sess.IsAuthenticated())
	require.Equal(t, 1, e.srv.RefreshCalls())
}

func TestBootstrap_InvalidSession_ClearsStore(t *testing.T) {
	t.Parallel()

	e := newEnv(t, nil)
	u := e.srv.SeedUser(email, password, "Alice")
	pair := e.srv.IssuePair(u.ID)
	require.NoError(t, e.store.Set(context.Background(), pair.Access, pair.Refresh))
	e.srv.ExpireAccessTokens()
	e.srv.RevokeRefreshTokens()

	err := e.sess.Bootstrap(context.Background())
	require.ErrorIs(t, err, apierrors.ErrUnauthenticated)

	require.Equal(t, StateUnauthenticated, e.sess.State())
	require.True(t, requirePair(t, e.store).Empty())
}

// Сбой сети при Bootstrap тоже завершает сессию.
func TestBootstrap_ServerDown_Unauthenticated(t *testing.T) {
	t.Parallel()

	e := newEnv(t, nil)
	require.NoError(t, e.store.Set(context.Background(), "A", "R"))
	e.srv.Close()

	err := e.sess.Bootstrap(context.Background())
	require.ErrorIs(t, err, apierrors.ErrTransport)
	require.Equal(t, StateUnauthenticated, e.sess.State())
	require.True(t, requirePair(t, e.store).Empty())
}

func TestLogin_OK(t *testing.T) {
	t.Parallel()

	e := newEnv(t, nil)
	u := e.srv.SeedUser(email, password, "Alice")

	require.NoError(t, e.sess.Login(context.Background(), email, password))

	snap := e.sess.Snapshot()
	require.Equal(t, StateAuthenticated, snap.State)
	require.Equal(t, u.ID, snap.User.ID)
	require.Equal(t, "Alice", snap.User.FullName)

	p := requirePair(t, e.store)
	require.NotEmpty(t, p.Access)
	require.NotEmpty(t, p.Refresh)

	// токены рабочие.
	var me models.User
	require.NoError(t, e.cl.Do(context.Background(), client.Request{Method: http.MethodGet, Path: client.EndpointMe}, &me))
	require.Equal(t, u.ID, me.ID)
}

func TestLogin_WrongPassword_StateUnchanged(t *testing.T) {
	t.Parallel()

	e := newEnv(t, nil)
	e.srv.SeedUser(email, password, "Alice")
	require.NoError(t, e.sess.Bootstrap(context.Background()))

	var events int
	cancel := e.sess.Subscribe(func(Snapshot) { events++ })
	defer cancel()

	err := e.sess.Login(context.Background(), email, "nope-nope")
	require.Error(t, err)
	require.True(t, apierrors.IsStatus(err, http.StatusUnauthorized))
	require.NotErrorIs(t, err, apierrors.ErrUnauthenticated)
	require.Equal(t, "Incorrect email or password", apierrors.Message(err))

	require.Equal(t, StateUnauthenticated, e.sess.State())
	require.True(t, requirePair(t, e.store).Empty())
	require.Zero(t, events)
	require.Zero(t, e.srv.RefreshCalls())
}

// Неудачный вход при активной сессии её не трогает.
func TestLogin_FailureKeepsExistingSession(t *testing.T) {
	t.Parallel()

	e := newEnv(t, nil)
	e.srv.SeedUser(email, password, "Alice")
	require.NoError(t, e.sess.Login(context.Background(), email, password))
	before := requirePair(t, e.store)

	require.Error(t, e.sess.Login(context.Background(), email, "wrong-password"))

	require.True(t, e.sess.IsAuthenticated())
	require.Equal(t, before, requirePair(t, e.store))
}

func TestLogin_StoreFailure_StateUnchanged(t *testing.T) {
	t.Parallel()

	srv := apitest.New(t)
	srv.SeedUser(email, password, "Alice")

	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	st.EXPECT().Access(gomock.Any()).Return("", nil).AnyTimes()
	st.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	cl, err := client.New(config.Config{API: config.APIConfig{BaseURL: srv.BaseURL()}}, st, client.WithLogger(quietLogger()))
	require.NoError(t, err)
	s := New(cl, st, quietLogger())

	err = s.Login(context.Background(), email, password)
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")
	require.Equal(t, StateLoading, s.State())
}

// fakeDoer — Doer с фиксированным ответом.
type fakeDoer struct {
	resp models.LoginResponse
	err  error
}

func (f fakeDoer) Do(_ context.Context, _ client.Request, out any) error {
	if f.err != nil {
		return f.err
	}
	if p, ok := out.(*models.LoginResponse); ok {
		*p = f.resp
	}
	return nil
}

func TestLogin_EmptyTokensRejected(t *testing.T) {
	t.Parallel()

	store := tokens.NewMemoryStore()
	s := New(fakeDoer{resp: models.LoginResponse{AccessToken: "A"}}, store, quietLogger())

	err := s.Login(context.Background(), email, password)
	require.ErrorIs(t, err, ErrEmptyTokens)
	require.False(t, s.IsAuthenticated())
	require.True(t, requirePair(t, store).Empty())
}

func TestRegister_OK(t *testing.T) {
	t.Parallel()

	e := newEnv(t, nil)

	require.NoError(t, e.sess.Register(context.Background(), "bob@example.com", "password123", "Bob"))

	u := e.sess.User()
	require.NotNil(t, u)
	require.Equal(t, "bob@example.com", u.Email)
	require.Equal(t, "Bob", u.FullName)
	require.False(t, requirePair(t, e.store).Empty())
	require.Equal(t, 1, e.srv.Calls(http.MethodPost, client.EndpointRegister))
	require.Equal(t, 1, e.srv.Calls(http.MethodPost, client.EndpointLogin))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()

	e := newEnv(t, nil)
	e.srv.SeedUser(email, password, "Alice")

	err := e.sess.Register(context.Background(), email, password, "Alice 2")
	require.True(t, apierrors.IsStatus(err, http.StatusBadRequest))
	require.Equal(t, "Email already registered", apierrors.Message(err))
	require.Zero(t, e.srv.Calls(http.MethodPost, client.EndpointLogin))
	require.False(t, e.sess.IsAuthenticated())
}

func TestRegister_ValidationDetail(t *testing.T) {
	t.Parallel()

	e := newEnv(t, nil)

	err := e.sess.Register(context.Background(), "carol@example.com", "short", "Carol")
	require.True(t, apierrors.IsStatus(err, http.StatusUnprocessableEntity))
	require.Equal(t, "String should have at least 8 characters", apierrors.Message(err))
	require.True(t, requirePair(t, e.store).Empty())
}

// Регистрация прошла, вход упал: хранилище пустое, пользователь не аутентифицирован.
func TestRegister_LoginFails_NoPartialState(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	// клиент читает access перед каждым запросом; Set не должен вызываться.
	st.EXPECT().Access(gomock.Any()).Return("", nil).AnyTimes()
	st.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	calls := 0
	doer := doerFunc(func(_ context.Context, req client.Request, _ any) error {
		calls++
		if req.Path == client.EndpointLogin {
			return &apierrors.APIError{Status: http.StatusServiceUnavailable, Code: "unavailable"}
		}
		return nil
	})

	s := New(doer, st, quietLogger())
	err := s.Register(context.Background(), "dave@example.com", "password123", "Dave")
	require.Error(t, err)
	require.True(t, apierrors.IsStatus(err, http.StatusServiceUnavailable))
	require.Equal(t, 2, calls)
	require.False(t, s.IsAuthenticated())
	require.Equal(t, StateLoading, s.State())
}

type doerFunc func(ctx context.Context, req client.Request, out any) error

func (f doerFunc) Do(ctx context.Context, req client.Request, out any) error { return f(ctx, req, out) }

func TestLogout_ClearsEverything_NoNetwork(t *testing.T) {
	t.Parallel()

	e := newEnv(t, nil)
	e.srv.SeedUser(email, password, "Alice")
	require.NoError(t, e.sess.Login(context.Background(), email, password))
	callsBefore := e.srv.TotalCalls()

	e.sess.Logout(context.Background())

	require.Equal(t, StateUnauthenticated, e.sess.State())
	require.Nil(t, e.sess.User())
	require.False(t, e.sess.IsAuthenticated())
	require.True(t, requirePair(t, e.store).Empty())
	require.Equal(t, callsBefore, e.srv.TotalCalls())

	// повторный выход безопасен.
	e.sess.Logout(context.Background())
	require.Equal(t, StateUnauthenticated, e.sess.State())
}

func TestLogout_StoreErrorStillLogsOut(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	st.EXPECT().Clear(gomock.Any()).Return(errors.New("redis down"))

	s := New(fakeDoer{}, st, quietLogger())
	s.Logout(context.Background())
	require.Equal(t, StateUnauthenticated, s.State())
}

func TestRefreshUser_PicksUpNewSnapshot(t *testing.T) {
	t.Parallel()

	e := newEnv(t, nil)
	e.srv.SeedUser(email, password, "Alice")
	require.NoError(t, e.sess.Login(context.Background(), email, password))

	require.NoError(t, e.sess.RefreshUser(context.Background()))
	require.True(t, e.sess.IsAuthenticated())
	require.Equal(t, 1, e.srv.Calls(http.MethodGet, client.EndpointMe))
}

func TestSubscribe_NotifiesAndCancels(t *testing.T) {
	t.Parallel()

	e := newEnv(t, nil)
	e.srv.SeedUser(email, password, "Alice")

	var (
		mu   sync.Mutex
		seen []State
	)
	cancel := e.sess.Subscribe(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s.State)
		require.Equal(t, s.State == StateAuthenticated, s.IsAuthenticated())
	})

	require.NoError(t, e.sess.Bootstrap(context.Background()))
	require.NoError(t, e.sess.Login(context.Background(), email, password))
	e.sess.Logout(context.Background())

	cancel()
	cancel()
	require.NoError(t, e.sess.Login(context.Background(), email, password))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []State{StateUnauthenticated, StateAuthenticated, StateUnauthenticated}, seen)
}

// Снимок — копия: правка полученного пользователя не меняет сессию.
func TestSnapshot_ReturnsCopy(t *testing.T) {
	t.Parallel()

	e := newEnv(t, nil)
	e.srv.SeedUser(email, password, "Alice")
	require.NoError(t, e.sess.Login(context.Background(), email, password))

	u := e.sess.User()
	u.FullName = "Mallory"
	require.Equal(t, "Alice", e.sess.User().FullName)
}

// Результат Bootstrap, начатого до Logout, не воскрешает сессию.
func TestBootstrap_StaleResultDiscarded(t *testing.T) {
	t.Parallel()

	store := tokens.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "A", "R"))

	started := make(chan struct{})
	release := make(chan struct{})
	doer := doerFunc(func(_ context.Context, _ client.Request, out any) error {
		close(started)
		<-release
		*(out.(*models.User)) = models.User{ID: "u1"}
		return nil
	})

	s := New(doer, store, quietLogger())

	done := make(chan error, 1)
	go func() { done <- s.Bootstrap(context.Background()) }()

	<-started
	s.Logout(context.Background())
	close(release)

	require.NoError(t, <-done)
	require.Equal(t, StateUnauthenticated, s.State())
	require.Nil(t, s.User())
}

// clearHookStore вызывает hook перед первой очисткой хранилища.
type clearHookStore struct {
	tokens.Store
	once sync.Once
	hook func()
}

func (c *clearHookStore) Clear(ctx context.Context) error {
	c.once.Do(c.hook)
	return c.Store.Clear(ctx)
}

// Login, пришедший во время очистки неудачного Bootstrap, сохраняет свою пару.
func TestBootstrap_FailureDoesNotWipeConcurrentLogin(t *testing.T) {
	t.Parallel()

	mem := tokens.NewMemoryStore()
	require.NoError(t, mem.Set(context.Background(), "A", "R"))

	doer := doerFunc(func(_ context.Context, req client.Request, out any) error {
		switch req.Path {
		case client.EndpointMe:
			return &apierrors.APIError{Status: http.StatusInternalServerError, Code: "internal"}
		case client.EndpointLogin:
			*(out.(*models.LoginResponse)) = models.LoginResponse{
				AccessToken:  "A2",
				RefreshToken: "R2",
				User:         models.User{ID: "u1", Email: email},
			}
		}
		return nil
	})

	var (
		s        *Session
		loginErr = make(chan error, 1)
	)
	store := &clearHookStore{Store: mem, hook: func() {
		go func() { loginErr <- s.Login(context.Background(), email, password) }()
		time.Sleep(30 * time.Millisecond)
	}}
	s = New(doer, store, quietLogger())

	require.Error(t, s.Bootstrap(context.Background()))
	require.NoError(t, <-loginErr)

	require.Equal(t, StateAuthenticated, s.State())
	require.Equal(t, models.TokenPair{Access: "A2", Refresh: "R2"}, requirePair(t, mem))
}
