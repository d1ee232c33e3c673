// session — единый источник истины о текущем пользователе клиента.
//
// Жизненный цикл: loading -> (authenticated | unauthenticated).
// Переходы выполняют Bootstrap/RefreshUser, Login, Register и Logout;
// подписчики (Subscribe) получают снимок после каждого перехода.
// Кроме клиента с его refresh, писать токены может только Session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/pribylovaa/go-expense-tracker/internal/client"
	"github.com/pribylovaa/go-expense-tracker/internal/models"
	"github.com/pribylovaa/go-expense-tracker/internal/pkg/redact"
	"github.com/pribylovaa/go-expense-tracker/internal/tokens"
)

type State int

const (
	StateLoading State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Snapshot — согласованная пара (состояние, пользователь).
// User != nil тогда и только тогда, когда State == StateAuthenticated.
type Snapshot struct {
	State State
	User  *models.User
}

// IsAuthenticated — есть ли текущий пользователь.
func (s Snapshot) IsAuthenticated() bool { return s.User != nil }

// Doer — то, что Session нужно от HTTP-клиента.
type Doer interface {
	Do(ctx context.Context, req client.Request, out any) error
}

// ErrEmptyTokens — сервер ответил на вход без пары токенов.
var ErrEmptyTokens = errors.New("login response without tokens")

type Session struct {
	api   Doer
	store tokens.Store
	log   *slog.Logger

	mu    sync.RWMutex
	state State
	user  *models.User
	// epoch растёт на каждом Login/Logout: результат Bootstrap, начатого
	// до них, отбрасывается.
	epoch uint64

	// wmu связывает запись в хранилище со сменой epoch: Bootstrap не может
	// очистить пару, которую только что сохранил Login.
	wmu sync.Mutex

	lmu       sync.Mutex
	listeners map[int]func(Snapshot)
	nextID    int
}

func New(api Doer, store tokens.Store, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		api:       api,
		store:     store,
		log:       logger,
		state:     StateLoading,
		listeners: make(map[int]func(Snapshot)),
	}
}

// Bootstrap проверяет сохранённую сессию.
//
// Поведение:
//   - access-токена нет — unauthenticated без сетевых запросов;
//   - GET /auth/me успешен — authenticated(user);
//   - иначе — хранилище очищается, unauthenticated, ошибка возвращается.
func (s *Session) Bootstrap(ctx context.Context) error {
	const op = "session.Bootstrap"

	epoch := s.currentEpoch()

	if !tokens.HasAccess(ctx, s.store) {
		s.transitionIf(epoch, StateUnauthenticated, nil)
		return nil
	}

	var u models.User
	err := s.api.Do(ctx, client.Request{Method: http.MethodGet, Path: client.EndpointMe}, &u)
	if err != nil {
		s.wmu.Lock()
		if s.currentEpoch() == epoch {
			if cerr := s.store.Clear(ctx); cerr != nil {
				s.log.Error("token store clear failed", slog.String("op", op), slog.String("err", cerr.Error()))
			}
		}
		snap, ok := s.applyIf(epoch, StateUnauthenticated, nil)
		s.wmu.Unlock()

		if ok {
			s.notify(snap)
		}
		s.log.Info("session not restored", slog.String("op", op), slog.String("err", err.Error()))

		return fmt.Errorf("%s: %w", op, err)
	}

	s.transitionIf(epoch, StateAuthenticated, &u)
	s.log.Debug("session restored", slog.String("user_id", u.ID))

	return nil
}

// RefreshUser повторяет проверку сессии (например, после изменения профиля).
func (s *Session) RefreshUser(ctx context.Context) error {
	return s.Bootstrap(ctx)
}

// Login — POST /auth/login. При ошибке состояние и хранилище не меняются.
func (s *Session) Login(ctx context.Context, email, password string) error {
	const op = "session.Login"

	var resp models.LoginResponse
	err := s.api.Do(ctx, client.Request{
		Method:           http.MethodPost,
		Path:             client.EndpointLogin,
		Body:             models.LoginRequest{Email: email, Password: password},
		SkipAuthRecovery: true,
	}, &resp)
	if err != nil {
		s.log.Info("login failed", slog.String("email", redact.Email(email)), slog.String("err", err.Error()))
		return fmt.Errorf("%s: %w", op, err)
	}

	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptyTokens)
	}

	u := resp.User

	s.wmu.Lock()
	if err := s.store.Set(ctx, resp.AccessToken, resp.RefreshToken); err != nil {
		s.wmu.Unlock()
		return fmt.Errorf("%s: store tokens: %w", op, err)
	}
	snap := s.apply(StateAuthenticated, &u)
	s.wmu.Unlock()

	s.notify(snap)
	s.log.Info("logged in", slog.String("email", redact.Email(email)), slog.String("user_id", u.ID))

	return nil
}

// Register — POST /auth/register, затем вход с теми же учётными данными.
// Ошибка любого шага прерывает процесс; частичного состояния не остаётся.
func (s *Session) Register(ctx context.Context, email, password, fullName string) error {
	const op = "session.Register"

	err := s.api.Do(ctx, client.Request{
		Method:           http.MethodPost,
		Path:             client.EndpointRegister,
		Body:             models.RegisterRequest{Email: email, Password: password, FullName: fullName},
		SkipAuthRecovery: true,
	}, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.Login(ctx, email, password); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Logout очищает хранилище и переводит сессию в unauthenticated. Сеть не используется.
func (s *Session) Logout(ctx context.Context) {
	s.wmu.Lock()
	if err := s.store.Clear(ctx); err != nil {
		s.log.Error("token store clear failed", slog.String("op", "session.Logout"), slog.String("err", err.Error()))
	}
	snap := s.apply(StateUnauthenticated, nil)
	s.wmu.Unlock()

	s.notify(snap)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked()
}

func (s *Session) State() State { return s.Snapshot().State }

// User — копия текущего пользователя или nil.
func (s *Session) User() *models.User { return s.Snapshot().User }

func (s *Session) IsAuthenticated() bool { return s.Snapshot().IsAuthenticated() }

// Subscribe регистрирует fn; она вызывается после каждого перехода.
// Возвращённая функция отменяет подписку.
func (s *Session) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lmu.Lock()
			delete(s.listeners, id)
			s.lmu.Unlock()
		})
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}

	return snap
}

func (s *Session) currentEpoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.epoch
}

// apply — безусловный переход (Login/Logout), сдвигает epoch.
// Подписчиков уведомляет вызывающий.
func (s *Session) apply(state State, u *models.User) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.state, s.user = state, u

	return s.snapshotLocked()
}

// applyIf применяет результат Bootstrap, только если с его начала не было Login/Logout.
func (s *Session) applyIf(epoch uint64, state State, u *models.User) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		return Snapshot{}, false
	}
	s.state, s.user = state, u

	return s.snapshotLocked(), true
}

func (s *Session) transitionIf(epoch uint64, state State, u *models.User) {
	if snap, ok := s.applyIf(epoch, state, u); ok {
		s.notify(snap)
	}
}

func (s *Session) notify(snap Snapshot) {
	s.lmu.Lock()
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
