package models

import "time"

// PredefinedCategories — категории, доступные в любой группе (совпадают с сервером).
var PredefinedCategories = []string{
	"Food & Groceries",
	"Transport",
	"Utilities",
	"Rent",
	"Entertainment",
	"Health",
	"Shopping",
	"Travel",
	"Education",
	"Personal Care",
	"Other",
}

// Направление сортировки расходов по дате.
const (
	SortAsc  = 1
	SortDesc = -1
)

type Expense struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Amount      float64    `json:"amount"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Date        string     `json:"date"` // YYYY-MM-DD
	CreatedBy   string     `json:"created_by"`
	GroupID     string     `json:"group_id"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// NewExpense — тело POST /groups/:id/expenses.
type NewExpense struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Amount      float64 `json:"amount" validate:"gt=0"`
	Category    string  `json:"category" validate:"required,max=100"`
	Description string  `json:"description" validate:"max=1000"`
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
}

// ExpensePage — страница расходов.
type ExpensePage struct {
	Items []Expense `json:"items"`
	Total int       `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
	Pages int       `json:"pages"`
}

// ListExpensesParams — query-параметры списка. Нулевые значения заменяются дефолтами.
type ListExpensesParams struct {
	Page      int `json:"page" validate:"gte=0"`
	Limit     int `json:"limit" validate:"gte=0,lte=100"`
	SortOrder int `json:"sort_order" validate:"oneof=-1 0 1"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

type AddCategoryRequest struct {
	Category string `json:"category" validate:"required,min=1,max=100"`
}

// CategoryActionResponse — ответ POST /groups/:id/categories.
type CategoryActionResponse struct {
	Message  string `json:"message"`
	Category string `json:"category"`
}
