package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pribylovaa/go-expense-tracker/internal/client"
	"github.com/pribylovaa/go-expense-tracker/internal/models"
)

// Members — управление участниками группы. Все операции доступны только администратору.
type Members struct{ d Doer }

func (m *Members) Add(ctx context.Context, groupID, userID string) (*models.MemberActionResponse, error) {
	const op = "api.Members.Add"

	if err := requireID(op, "group_id", groupID); err != nil {
		return nil, err
	}

	req := models.AddMemberRequest{UserID: userID}
	if err := check(op, req); err != nil {
		return nil, err
	}

	var out models.MemberActionResponse
	if err := m.d.Do(ctx, client.Request{Method: http.MethodPost, Path: groupPath(groupID, "members"), Body: req}, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// Promote назначает участника администратором.
func (m *Members) Promote(ctx context.Context, groupID, userID string) (*models.MemberActionResponse, error) {
	const op = "api.Members.Promote"

	if err := m.ids(op, groupID, userID); err != nil {
		return nil, err
	}

	var out models.MemberActionResponse
	path := groupPath(groupID, "members", url.PathEscape(userID), "promote")
	if err := m.d.Do(ctx, client.Request{Method: http.MethodPatch, Path: path}, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// Remove исключает участника. Последнего администратора сервер удалить не даст.
func (m *Members) Remove(ctx context.Context, groupID, userID string) (*models.MemberActionResponse, error) {
	const op = "api.Members.Remove"

	if err := m.ids(op, groupID, userID); err != nil {
		return nil, err
	}

	var out models.MemberActionResponse
	path := groupPath(groupID, "members", url.PathEscape(userID))
	if err := m.d.Do(ctx, client.Request{Method: http.MethodDelete, Path: path}, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (m *Members) ids(op, groupID, userID string) error {
	if err := requireID(op, "group_id", groupID); err != nil {
		return err
	}

	return requireID(op, "user_id", userID)
}
