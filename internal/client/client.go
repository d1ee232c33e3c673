// client — HTTP-клиент REST API с прозрачным восстановлением сессии.
//
// Каждый запрос:
//  1. получает Authorization: Bearer <access>, если access сохранён;
//  2. на 401 (один раз за вызов) обменивает refresh на новый access через
//     POST /auth/refresh и повторяет запрос ровно один раз;
//  3. если refresh нет или он отклонён — очищает хранилище, уводит
//     пользователя на экран входа (через Navigator) и возвращает ошибку,
//     для которой errors.Is(err, apierrors.ErrUnauthenticated) == true.
//
// Параллельные 401 делят один запрос refresh (singleflight).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/pribylovaa/go-expense-tracker/internal/client/interceptors"
	"github.com/pribylovaa/go-expense-tracker/internal/config"
	apierrors "github.com/pribylovaa/go-expense-tracker/internal/errors"
	"github.com/pribylovaa/go-expense-tracker/internal/models"
	"github.com/pribylovaa/go-expense-tracker/internal/tokens"
)

// Пути, которые клиент знает сам.
const (
	EndpointRefresh  = "/auth/refresh"
	EndpointLogin    = "/auth/login"
	EndpointRegister = "/auth/register"
	EndpointMe       = "/auth/me"

	// Экраны хоста, на которых редирект на вход не выполняется.
	PathLogin    = "/login"
	PathRegister = "/register"
)

// maxErrorBody — сколько байт тела не-2xx ответа читается для извлечения detail.
const maxErrorBody = 64 << 10

// Navigator — порт навигации хост-приложения.
type Navigator interface {
	// CurrentPath — текущий экран (например, "/login").
	CurrentPath() string
	// RedirectToLogin уводит пользователя на экран входа.
	RedirectToLogin(ctx context.Context)
}

// Request — описание одного вызова API.
type Request struct {
	Method string
	// Path относительно base_url, начинается с "/".
	Path  string
	Body  any
	Query url.Values
	// SkipAuthRecovery — 401 возвращается как *APIError без refresh и без
	// очистки хранилища (неверные учётные данные на login/register).
	SkipAuthRecovery bool
}

type Client struct {
	baseURL string
	http    *http.Client
	store   tokens.Store
	nav     Navigator
	log     *slog.Logger
	timeout time.Duration

	refreshes singleflight.Group
}

type options struct {
	nav       Navigator
	logger    *slog.Logger
	reg       prometheus.Registerer
	transport http.RoundTripper
}

type Option func(*options)

// WithNavigator задаёт порт навигации. Без него редиректа нет.
func WithNavigator(n Navigator) Option { return func(o *options) { o.nav = n } }

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithRegisterer включает метрики исходящих запросов.
func WithRegisterer(reg prometheus.Registerer) Option { return func(o *options) { o.reg = reg } }

// WithTransport подменяет базовый транспорт (по умолчанию http.DefaultTransport).
func WithTransport(rt http.RoundTripper) Option { return func(o *options) { o.transport = rt } }

// New создаёт клиент.
// Цепочка транспорта: metadata -> timeout -> logging -> metrics -> breaker.
func New(cfg config.Config, store tokens.Store, opts ...Option) (*Client, error) {
	const op = "client.New"

	if store == nil {
		return nil, fmt.Errorf("%s: nil token store", op)
	}

	base := strings.TrimRight(cfg.API.BaseURL, "/")
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%s: parse base url: %w", op, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%s: unsupported base url %q", op, cfg.API.BaseURL)
	}

	o := options{}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	var metrics *interceptors.Metrics
	if o.reg != nil {
		metrics = interceptors.NewMetrics(o.reg)
	}

	var breaker interceptors.Middleware
	if cfg.Breaker.Enabled {
		breaker = interceptors.WithBreaker(interceptors.NewBreaker(cfg.Breaker, o.logger))
	}

	rt := interceptors.Chain(o.transport,
		interceptors.WithMetadata(cfg.API.UserAgent),
		interceptors.WithTimeout(cfg.API.Timeout),
		interceptors.WithLogging(o.logger),
		interceptors.WithMetrics(metrics),
		breaker,
	)

	return &Client{
		baseURL: base,
		http:    &http.Client{Transport: rt},
		store:   store,
		nav:     o.nav,
		log:     o.logger,
		timeout: cfg.API.Timeout,
	}, nil
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

// Do выполняет вызов и декодирует 2xx-ответ в out (out == nil — тело отбрасывается).
//
// Ошибки:
//   - apierrors.ErrTransport — ответа не было (сеть, таймаут, breaker);
//   - apierrors.ErrUnauthenticated + *APIError(401) — сессия невосстановима;
//   - *apierrors.APIError — прочие не-2xx и повторный 401 после refresh.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	const op = "client.Do"

	payload, err := encodeBody(req.Body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	// retried — локальный флаг этого вызова.
	retried := false
	for {
		resp, usedAccess, err := c.send(ctx, req, payload)
		if err != nil {
			return fmt.Errorf("%s: %s %s: %w: %w", op, req.Method, req.Path, apierrors.ErrTransport, err)
		}

		if resp.StatusCode != http.StatusUnauthorized || req.SkipAuthRecovery || retried {
			return decode(resp, out)
		}

		apiErr := readError(resp)
		retried = true

		if err := c.recoverSession(ctx, req.Path, usedAccess); err != nil {
			// Вызывающий сам отменил запрос: сессию сервер не отклонял, токены остаются.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("%s: %s %s: %w: %w", op, req.Method, req.Path, apierrors.ErrTransport, ctxErr)
			}

			c.log.Warn("session recovery failed",
				slog.String("path", req.Path),
				slog.String("err", err.Error()),
			)
			return fmt.Errorf("%s: %w: %w", op, apierrors.ErrUnauthenticated, c.expire(ctx, apiErr))
		}
	}
}

// send — одна попытка. Возвращает access-токен, с которым ушёл запрос.
func (c *Client) send(ctx context.Context, req Request, payload []byte) (*http.Response, string, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	hr, err := http.NewRequestWithContext(ctx, req.Method, c.url(req.Path, req.Query), body)
	if err != nil {
		return nil, "", err
	}

	hr.Header.Set("Accept", "application/json")
	if payload != nil {
		hr.Header.Set("Content-Type", "application/json")
	}

	access, err := c.store.Access(ctx)
	if err != nil {
		c.log.Warn("token store read failed", slog.String("err", err.Error()))
		access = ""
	}
	if access != "" {
		hr.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.http.Do(hr)
	if err != nil {
		return nil, access, err
	}

	return resp, access, nil
}

var (
	errNoRefresh       = errors.New("no refresh token")
	errRefreshEndpoint = errors.New("refresh endpoint rejected")
)

// recoverSession получает новый access для повтора.
// Параллельные вызовы с одним refresh ждут общий результат; если access
// уже обновили другие, сеть не трогается. Общий refresh не зависит от
// отмены контекста отдельного вызова: каждый ждёт его, пока жив свой ctx.
func (c *Client) recoverSession(ctx context.Context, path, usedAccess string) error {
	if path == EndpointRefresh {
		return errRefreshEndpoint
	}

	refresh, err := c.store.Refresh(ctx)
	if err != nil {
		return err
	}
	if refresh == "" {
		return errNoRefresh
	}

	ch := c.refreshes.DoChan(refresh, func() (any, error) {
		rctx, cancel := c.detached(ctx)
		defer cancel()

		if cur, _ := c.store.Access(rctx); cur != "" && cur != usedAccess {
			return nil, nil
		}

		return nil, c.refresh(rctx, refresh)
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

// detached — контекст общего refresh: значения (логгер, request id) от ctx,
// без его отмены, но с таймаутом API.
func (c *Client) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if c.timeout <= 0 {
		return context.WithCancel(base)
	}

	return context.WithTimeout(base, c.timeout)
}

// refresh — POST /auth/refresh без Authorization, мимо логики повтора.
func (c *Client) refresh(ctx context.Context, refreshToken string) error {
	const op = "client.refresh"

	payload, err := encodeBody(models.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(EndpointRefresh, nil), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	hr.Header.Set("Accept", "application/json")
	hr.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(hr)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, apierrors.ErrTransport, err)
	}

	var out models.RefreshResponse
	if err := decode(resp, &out); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if out.AccessToken == "" {
		return fmt.Errorf("%s: empty access token in response", op)
	}

	if err := c.store.SetAccess(ctx, out.AccessToken); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	c.log.Debug("access token refreshed")

	return nil
}

// expire — терминальный путь: хранилище очищено, пользователь уведён на вход.
func (c *Client) expire(ctx context.Context, cause *apierrors.APIError) *apierrors.APIError {
	if err := c.store.Clear(ctx); err != nil {
		c.log.Error("token store clear failed", slog.String("err", err.Error()))
	}

	if c.nav != nil {
		switch c.nav.CurrentPath() {
		case PathLogin, PathRegister:
		default:
			c.nav.RedirectToLogin(ctx)
		}
	}

	return cause
}

func (c *Client) url(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	return u
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}

	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}

	return b, nil
}

// decode: 2xx — JSON в out (пустое тело допустимо), иначе *APIError.
func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readErrorBody(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// readError читает тело не-2xx ответа и закрывает его.
func readError(resp *http.Response) *apierrors.APIError {
	defer resp.Body.Close()
	return readErrorBody(resp)
}

func readErrorBody(resp *http.Response) *apierrors.APIError {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return apierrors.FromResponse(resp.StatusCode, b)
}
