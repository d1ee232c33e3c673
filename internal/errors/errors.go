// errors классифицирует ошибки клиента REST API и превращает их
// в сообщения для пользователя.
//
// Таксономия:
//   - валидация (ErrValidation) — локальная, до сети не доходит;
//   - аутентификация (ErrUnauthenticated) — 401 после исчерпанного refresh;
//   - бизнес/доступ (4xx кроме 401) — detail сервера отдаётся как есть;
//   - сервер/транспорт (5xx, сетевые сбои) — общее сообщение-заглушка.
//
// Источник истинности по detail: тело ответа сервера вида {"detail": "..."}.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// GenericMessage — текст для 5xx/транспортных ошибок и ответов без detail.
const GenericMessage = "Something went wrong. Please try again."

var (
	// ErrUnauthenticated — сессия невосстановима: refresh отсутствует или отклонён.
	ErrUnauthenticated = stderrors.New("unauthenticated")
	// ErrValidation — локальная ошибка валидации входных данных.
	ErrValidation = stderrors.New("validation failed")
	// ErrTransport — запрос не получил HTTP-ответа (сеть, таймаут, breaker).
	ErrTransport = stderrors.New("transport failure")
)

// APIError — не-2xx ответ сервера.
// Code — короткий стабильный код по HTTP-статусу (для машинной обработки),
// Detail — detail из тела ответа, если сервер его прислал.
type APIError struct {
	Status int
	Code   string
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Detail)
	}

	return fmt.Sprintf("api error %d (%s)", e.Status, e.Code)
}

// errorBody — форма тела ошибки. detail бывает строкой (HTTPException)
// или списком объектов (ошибки валидации запроса, 422).
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type validationItem struct {
	Msg string `json:"msg"`
	Loc []any  `json:"loc"`
}

// FromResponse собирает APIError из статуса и (возможно пустого) тела ответа.
func FromResponse(status int, body []byte) *APIError {
	return &APIError{
		Status: status,
		Code:   codeFromStatus(status),
		Detail: detailFromBody(body),
	}
}

func detailFromBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(eb.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var items []validationItem
	if err := json.Unmarshal(eb.Detail, &items); err == nil && len(items) > 0 {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}

		return strings.Join(msgs, "; ")
	}

	return ""
}

// codeFromStatus — базовый маппинг HTTP-статус -> код:
//   - 400 -> bad_request
//   - 401 -> unauthenticated
//   - 403 -> permission_denied
//   - 404 -> not_found
//   - 409 -> conflict
//   - 422 -> invalid_argument
//   - 429 -> resource_exhausted
//   - 502/503 -> unavailable
//   - 504 -> deadline_exceeded
//   - прочие 4xx -> client_error, прочие 5xx -> internal
func codeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "permission_denied"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "invalid_argument"
	case http.StatusTooManyRequests:
		return "resource_exhausted"
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return "unavailable"
	case http.StatusGatewayTimeout:
		return "deadline_exceeded"
	}

	if status >= 400 && status < 500 {
		return "client_error"
	}

	return "internal"
}

// FieldError — нарушенное правило для одного поля.
type FieldError struct {
	Field string
	Rule  string
}

// ValidationError — результат локальной валидации; errors.Is(err, ErrValidation) == true.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}

	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s (%s)", f.Field, f.Rule))
	}

	return ErrValidation.Error() + ": " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// IsStatus сообщает, что в цепочке err есть APIError с данным статусом.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return stderrors.As(err, &apiErr) && apiErr.Status == status
}
