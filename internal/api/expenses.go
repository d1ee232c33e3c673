package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pribylovaa/go-expense-tracker/internal/client"
	"github.com/pribylovaa/go-expense-tracker/internal/models"
)

// Значения по умолчанию для списка расходов.
const (
	DefaultPage  = 1
	DefaultLimit = 20
)

type Expenses struct{ d Doer }

// List — страница расходов группы, отсортированная по дате
// (по умолчанию: первая страница, 20 записей, новые сверху).
func (e *Expenses) List(ctx context.Context, groupID string, p models.ListExpensesParams) (*models.ExpensePage, error) {
	const op = "api.Expenses.List"

	if err := requireID(op, "group_id", groupID); err != nil {
		return nil, err
	}
	if err := check(op, p); err != nil {
		return nil, err
	}

	if p.Page == 0 {
		p.Page = DefaultPage
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.SortOrder == 0 {
		p.SortOrder = models.SortDesc
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("limit", strconv.Itoa(p.Limit))
	q.Set("sort_order", strconv.Itoa(p.SortOrder))

	var out models.ExpensePage
	if err := e.d.Do(ctx, client.Request{Method: http.MethodGet, Path: groupPath(groupID, "expenses"), Query: q}, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// Create добавляет расход. Категорию сервер сверяет со списком группы.
func (e *Expenses) Create(ctx context.Context, groupID string, in models.NewExpense) (*models.Expense, error) {
	const op = "api.Expenses.Create"

	if err := requireID(op, "group_id", groupID); err != nil {
		return nil, err
	}
	if err := check(op, in); err != nil {
		return nil, err
	}

	var out models.Expense
	if err := e.d.Do(ctx, client.Request{Method: http.MethodPost, Path: groupPath(groupID, "expenses"), Body: in}, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}
