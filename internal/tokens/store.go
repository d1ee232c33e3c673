// tokens хранит пару (access, refresh) между запусками процесса.
//
// Значения лежат в двух независимых слотах с фиксированными именами
// access_token и refresh_token. Инвариант: после Set/Clear присутствуют
// либо оба токена, либо ни одного. Содержимое токенов не проверяется.
package tokens

import (
	"context"
	"errors"

	"github.com/pribylovaa/go-expense-tracker/internal/models"
)

// Имена слотов. Версионирования формата нет.
const (
	KeyAccess  = "access_token"
	KeyRefresh = "refresh_token"
)

var (
	// ErrEmptyToken — попытка сохранить пустой access или refresh.
	ErrEmptyToken = errors.New("empty token")
	// ErrNoRefresh — SetAccess без сохранённого refresh (сессию уже очистили).
	ErrNoRefresh = errors.New("no refresh token stored")
)

// Store — контракт хранилища токенов. Отсутствующий токен — пустая строка без ошибки.
type Store interface {
	// Set сохраняет оба токена, перезаписывая прежнюю пару.
	Set(ctx context.Context, access, refresh string) error
	// SetAccess заменяет только access; refresh остаётся прежним.
	SetAccess(ctx context.Context, access string) error
	// Clear удаляет оба токена; безопасен при их отсутствии.
	Clear(ctx context.Context) error
	// Access возвращает access-токен или "".
	Access(ctx context.Context) (string, error)
	// Refresh возвращает refresh-токен или "".
	Refresh(ctx context.Context) (string, error)
}

// HasAccess — true, если access-токен сохранён. Ошибка хранилища трактуется как отсутствие.
func HasAccess(ctx context.Context, s Store) bool {
	tok, err := s.Access(ctx)
	return err == nil && tok != ""
}

// Pair читает оба слота.
func Pair(ctx context.Context, s Store) (models.TokenPair, error) {
	access, err := s.Access(ctx)
	if err != nil {
		return models.TokenPair{}, err
	}

	refresh, err := s.Refresh(ctx)
	if err != nil {
		return models.TokenPair{}, err
	}

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}

func checkPair(access, refresh string) error {
	if access == "" || refresh == "" {
		return ErrEmptyToken
	}

	return nil
}
