package models

import "time"

// Роли участника группы.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Member — участник группы; FullName приходит обогащённым с сервера и может отсутствовать.
type Member struct {
	UserID   string  `json:"user_id"`
	Role     string  `json:"role"`
	FullName *string `json:"full_name,omitempty"`
}

// IsAdmin — удобный предикат для UI/CLI.
func (m Member) IsAdmin() bool { return m.Role == RoleAdmin }

type Group struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	CreatedBy        string     `json:"created_by"`
	Members          []Member   `json:"members"`
	CustomCategories []string   `json:"custom_categories"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
}

// Member ищет участника по user_id.
func (g Group) Member(userID string) (Member, bool) {
	for _, m := range g.Members {
		if m.UserID == userID {
			return m, true
		}
	}

	return Member{}, false
}

type CreateGroupRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// MemberActionResponse — ответ мутаций участников (add/promote/remove).
type MemberActionResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}
