package errors

import (
	"context"
	stderrors "errors"
)

// Kind — класс ошибки с точки зрения пользователя.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindUnauthenticated
	KindBusiness
	KindServer
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindBusiness:
		return "business"
	case KindServer:
		return "server"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Classify определяет класс ошибки. Порядок проверок важен:
// ErrUnauthenticated оборачивает исходный 401 APIError и должен победить.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	if stderrors.Is(err, ErrValidation) {
		return KindValidation
	}

	if stderrors.Is(err, ErrUnauthenticated) {
		return KindUnauthenticated
	}

	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		if apiErr.Status >= 500 {
			return KindServer
		}

		return KindBusiness
	}

	if stderrors.Is(err, ErrTransport) ||
		stderrors.Is(err, context.DeadlineExceeded) ||
		stderrors.Is(err, context.Canceled) {
		return KindTransport
	}

	return KindUnknown
}

// Message — текст для пользователя.
//
// Поведение:
//   - валидация — описание нарушенных полей;
//   - 4xx — detail сервера как есть, иначе GenericMessage;
//   - unauthenticated — detail исходного 401 либо просьба войти заново;
//   - 5xx/транспорт/прочее — GenericMessage без утечки деталей.
func Message(err error) string {
	switch Classify(err) {
	case KindValidation:
		var verr *ValidationError
		if stderrors.As(err, &verr) {
			return verr.Error()
		}

		return ErrValidation.Error()
	case KindUnauthenticated:
		if d := detail(err); d != "" {
			return d
		}

		return "Your session has expired. Please log in again."
	case KindBusiness:
		if d := detail(err); d != "" {
			return d
		}

		return GenericMessage
	default:
		return GenericMessage
	}
}

func detail(err error) string {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Detail
	}

	return ""
}
