// api — типизированные операции REST API поверх client.Client:
// группы, участники, расходы, категории и статистика.
//
// Входные данные проверяются локально (validator/v10) до любого сетевого
// вызова; нарушения возвращаются как *apierrors.ValidationError.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pribylovaa/go-expense-tracker/internal/client"
	apierrors "github.com/pribylovaa/go-expense-tracker/internal/errors"
)

// Doer — транспорт, через который идут все вызовы (обычно *client.Client).
type Doer interface {
	Do(ctx context.Context, req client.Request, out any) error
}

// API агрегирует сервисы по ресурсам.
type API struct {
	Groups     *Groups
	Members    *Members
	Expenses   *Expenses
	Categories *Categories
	Stats      *Stats
}

func New(d Doer) *API {
	return &API{
		Groups:     &Groups{d: d},
		Members:    &Members{d: d},
		Expenses:   &Expenses{d: d},
		Categories: &Categories{d: d},
		Stats:      &Stats{d: d},
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// В ошибках — имена полей как в JSON.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return v
}

// check валидирует структуру и переводит ошибки validator в ValidationError.
func check(op string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%s: %w", op, err)
	}

	out := &apierrors.ValidationError{Fields: make([]apierrors.FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, apierrors.FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}

	return fmt.Errorf("%s: %w", op, out)
}

// requireID — идентификатор пути не может быть пустым.
func requireID(op, field, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s: %w", op, &apierrors.ValidationError{
			Fields: []apierrors.FieldError{{Field: field, Rule: "required"}},
		})
	}

	return nil
}

// groupPath — "/groups/<id>" + хвост; id экранируется.
func groupPath(groupID string, tail ...string) string {
	var b strings.Builder
	b.WriteString("/groups/")
	b.WriteString(url.PathEscape(groupID))
	for _, t := range tail {
		b.WriteString("/")
		b.WriteString(t)
	}

	return b.String()
}
