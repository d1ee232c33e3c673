package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pribylovaa/go-expense-tracker/internal/client"
	"github.com/pribylovaa/go-expense-tracker/internal/models"
	"github.com/pribylovaa/go-expense-tracker/internal/pkg/log"
)

type Groups struct{ d Doer }

// List — группы, в которых состоит текущий пользователь.
func (g *Groups) List(ctx context.Context) ([]models.Group, error) {
	const op = "api.Groups.List"

	var out []models.Group
	if err := g.d.Do(ctx, client.Request{Method: http.MethodGet, Path: "/groups"}, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Create создаёт группу; создатель становится её администратором.
func (g *Groups) Create(ctx context.Context, name string) (*models.Group, error) {
	const op = "api.Groups.Create"

	req := models.CreateGroupRequest{Name: name}
	if err := check(op, req); err != nil {
		return nil, err
	}

	var out models.Group
	if err := g.d.Do(ctx, client.Request{Method: http.MethodPost, Path: "/groups", Body: req}, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (g *Groups) Get(ctx context.Context, id string) (*models.Group, error) {
	const op = "api.Groups.Get"

	if err := requireID(op, "group_id", id); err != nil {
		return nil, err
	}

	var out models.Group
	if err := g.d.Do(ctx, client.Request{Method: http.MethodGet, Path: groupPath(id)}, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// Name — имя группы для заголовков и «хлебных крошек».
// Best-effort: при любой ошибке возвращает "".
func (g *Groups) Name(ctx context.Context, id string) string {
	grp, err := g.Get(ctx, id)
	if err != nil {
		log.From(ctx).Debug("group name unavailable",
			slog.String("group_id", id),
			slog.String("err", err.Error()),
		)
		return ""
	}

	return grp.Name
}
