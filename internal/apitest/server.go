// apitest — поддельный REST API expense-tracker для тестов клиента.
//
// Сервер держит всё в памяти, выдаёт настоящие HS256 JWT (golang-jwt),
// хэширует пароли bcrypt и повторяет форму ответов и ошибок
// настоящего API ({"detail": ...}). Для сценариев сессии есть ручки:
// принудительное «протухание» access, отзыв refresh, сбой /auth/refresh,
// задержка refresh и счётчики запросов.
package apitest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-expense-tracker/internal/models"
	"github.com/pribylovaa/go-expense-tracker/internal/pkg/log"
)

// BasePath — префикс версии API.
const BasePath = "/api/v1"

type user struct {
	models.User
	hash string
}

type Server struct {
	srv *httptest.Server

	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *slog.Logger

	mu            sync.Mutex
	now           func() time.Time
	accessGen     int
	refreshGen    int
	refreshStatus int
	refreshDelay  time.Duration
	calls         map[string]int
	usersByEmail  map[string]*user
	usersByID     map[string]*user
	groups        map[string]*models.Group
	groupOrder    []string
	expenses      map[string][]models.Expense
}

type Option func(*Server)

func WithAccessTTL(d time.Duration) Option { return func(s *Server) { s.accessTTL = d } }

// WithRefreshDelay задерживает ответ /auth/refresh (для гонок параллельных 401).
func WithRefreshDelay(d time.Duration) Option { return func(s *Server) { s.refreshDelay = d } }

func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.logger = l } }

// New поднимает сервер; он закрывается в t.Cleanup.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()

	s := &Server{
		secret:       []byte("apitest-secret-" + uuid.NewString()),
		accessTTL:    15 * time.Minute,
		refreshTTL:   7 * 24 * time.Hour,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:          time.Now,
		calls:        make(map[string]int),
		usersByEmail: make(map[string]*user),
		usersByID:    make(map[string]*user),
		groups:       make(map[string]*models.Group),
		expenses:     make(map[string][]models.Expense),
	}
	for _, fn := range opts {
		fn(s)
	}

	s.srv = httptest.NewServer(s.router())
	t.Cleanup(s.srv.Close)

	return s
}

// BaseURL — адрес для config.APIConfig.BaseURL.
func (s *Server) BaseURL() string { return s.srv.URL + BasePath }

// Close останавливает сервер раньше t.Cleanup (имитация недоступности API).
func (s *Server) Close() { s.srv.Close() }

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recover, s.count, s.logging)

	r.Route(BasePath, func(r chi.Router) {
		r.Post("/auth/register", s.register)
		r.Post("/auth/login", s.login)
		r.Post("/auth/refresh", s.refresh)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/auth/me", s.me)

			r.Get("/groups", s.listGroups)
			r.Post("/groups", s.createGroup)
			r.Get("/groups/{id}", s.getGroup)

			r.Post("/groups/{id}/members", s.addMember)
			r.Patch("/groups/{id}/members/{uid}/promote", s.promoteMember)
			r.Delete("/groups/{id}/members/{uid}", s.removeMember)

			r.Get("/groups/{id}/expenses", s.listExpenses)
			r.Post("/groups/{id}/expenses", s.createExpense)

			r.Get("/groups/{id}/categories", s.listCategories)
			r.Post("/groups/{id}/categories", s.addCategory)

			r.Get("/groups/{id}/stats", s.stats)
		})
	})

	return r
}

// ---- ручки для тестов ----

// SeedUser регистрирует пользователя напрямую, минуя HTTP.
func (s *Server) SeedUser(email, password, fullName string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.addUserLocked(email, password, fullName)
	if err != nil {
		panic(fmt.Sprintf("apitest: seed user: %v", err))
	}

	return u.User
}

// IssuePair выдаёт пару токенов пользователю, как это делает /auth/login.
func (s *Server) IssuePair(userID string) models.TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.issuePairLocked(userID)
}

// ExpireAccessTokens делает недействительными все выданные access-токены.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	s.accessGen++
	s.mu.Unlock()
}

// RevokeRefreshTokens делает недействительными все выданные refresh-токены.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	s.refreshGen++
	s.mu.Unlock()
}

// FailRefresh заставляет /auth/refresh отвечать status (0 — обычное поведение).
func (s *Server) FailRefresh(status int) {
	s.mu.Lock()
	s.refreshStatus = status
	s.mu.Unlock()
}

// Calls — число запросов "METHOD /path" (путь без BasePath).
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls[method+" "+path]
}

// RefreshCalls — число обращений к /auth/refresh.
func (s *Server) RefreshCalls() int { return s.Calls(http.MethodPost, "/auth/refresh") }

// TotalCalls — все запросы к серверу.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range s.calls {
		n += c
	}

	return n
}

// Group возвращает копию группы (для проверок состояния).
func (s *Server) Group(id string) (models.Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[id]
	if !ok {
		return models.Group{}, false
	}

	return cloneGroup(g), true
}

// ---- middleware ----

func (s *Server) recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.From(r.Context()).Error("panic",
					slog.String("path", r.URL.Path),
					slog.Any("reason", rec),
				)
				writeError(w, http.StatusInternalServerError, "Internal Server Error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + strings.TrimPrefix(r.URL.Path, BasePath)

		s.mu.Lock()
		s.calls[key]++
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := s.logger.With(
			slog.String("request_id", r.Header.Get("X-Request-Id")),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(log.Into(r.Context(), l)))
		l.Debug("apitest", slog.Duration("dur", time.Since(start)))
	})
}

// ---- общие утилиты ответа ----

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

type fieldIssue struct {
	Loc []string `json:"loc"`
	Msg string   `json:"msg"`
	Typ string   `json:"type"`
}

// writeValidation — 422 со списком нарушений, как у настоящего API.
func writeValidation(w http.ResponseWriter, issues ...fieldIssue) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": issues})
}

func bodyIssue(field, msg string) fieldIssue {
	return fieldIssue{Loc: []string{"body", field}, Msg: msg, Typ: "value_error"}
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// ---- пользователи ----

var errEmailTaken = errors.New("email already registered")

func (s *Server) addUserLocked(email, password, fullName string) (*user, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, ok := s.usersByEmail[email]; ok {
		return nil, errEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	u := &user{
		User: models.User{
			ID:        uuid.NewString(),
			Email:     email,
			FullName:  fullName,
			IsActive:  true,
			CreatedAt: &now,
		},
		hash: string(hash),
	}
	s.usersByEmail[email] = u
	s.usersByID[u.ID] = u

	return u, nil
}

func cloneGroup(g *models.Group) models.Group {
	out := *g
	out.Members = append([]models.Member(nil), g.Members...)
	out.CustomCategories = append([]string(nil), g.CustomCategories...)
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
