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

type Stats struct{ d Doer }

// Get — агрегаты по группе: итог, по категориям, по участникам, по месяцам.
func (s *Stats) Get(ctx context.Context, groupID string, p models.StatsParams) (*models.Stats, error) {
	const op = "api.Stats.Get"

	if err := requireID(op, "group_id", groupID); err != nil {
		return nil, err
	}
	if err := check(op, p); err != nil {
		return nil, err
	}

	q := url.Values{}
	if p.Period != "" {
		q.Set("period", p.Period)
	}
	if p.Year != 0 {
		q.Set("year", strconv.Itoa(p.Year))
	}
	if p.Month != 0 {
		q.Set("month", strconv.Itoa(p.Month))
	}

	var out models.Stats
	if err := s.d.Do(ctx, client.Request{Method: http.MethodGet, Path: groupPath(groupID, "stats"), Query: q}, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}
