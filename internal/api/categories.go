package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pribylovaa/go-expense-tracker/internal/client"
	"github.com/pribylovaa/go-expense-tracker/internal/models"
)

type Categories struct{ d Doer }

// List — предопределённые категории плюс пользовательские категории группы.
func (c *Categories) List(ctx context.Context, groupID string) ([]string, error) {
	const op = "api.Categories.List"

	if err := requireID(op, "group_id", groupID); err != nil {
		return nil, err
	}

	var out models.CategoriesResponse
	if err := c.d.Do(ctx, client.Request{Method: http.MethodGet, Path: groupPath(groupID, "categories")}, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out.Categories, nil
}

// Add — новая пользовательская категория (только администратор).
func (c *Categories) Add(ctx context.Context, groupID, name string) (*models.CategoryActionResponse, error) {
	const op = "api.Categories.Add"

	if err := requireID(op, "group_id", groupID); err != nil {
		return nil, err
	}

	req := models.AddCategoryRequest{Category: name}
	if err := check(op, req); err != nil {
		return nil, err
	}

	var out models.CategoryActionResponse
	if err := c.d.Do(ctx, client.Request{Method: http.MethodPost, Path: groupPath(groupID, "categories"), Body: req}, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}
