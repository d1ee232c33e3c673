package apitest

import (
	"math"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-expense-tracker/internal/models"
)

// memberGroupLocked — группа по {id} для участника; иначе пишет 404/403 и возвращает nil.
func (s *Server) memberGroupLocked(w http.ResponseWriter, r *http.Request) *models.Group {
	g, ok := s.groups[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Group not found")
		return nil
	}

	if _, ok := g.Member(userIDFrom(r.Context())); !ok {
		writeError(w, http.StatusForbidden, "You are not a member of this group")
		return nil
	}

	return g
}

func (s *Server) adminGroupLocked(w http.ResponseWriter, r *http.Request) *models.Group {
	g := s.memberGroupLocked(w, r)
	if g == nil {
		return nil
	}

	if m, _ := g.Member(userIDFrom(r.Context())); !m.IsAdmin() {
		writeError(w, http.StatusForbidden, "Admin access required")
		return nil
	}

	return g
}

// enrichedLocked — копия группы с full_name участников.
func (s *Server) enrichedLocked(g *models.Group) models.Group {
	out := cloneGroup(g)
	for i, m := range out.Members {
		if u, ok := s.usersByID[m.UserID]; ok {
			name := u.FullName
			out.Members[i].FullName = &name
		}
	}

	return out
}

func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	uid := userIDFrom(r.Context())

	s.mu.Lock()
	out := make([]models.Group, 0)
	for _, id := range s.groupOrder {
		g := s.groups[id]
		if _, ok := g.Member(uid); ok {
			out = append(out, s.enrichedLocked(g))
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createGroup(w http.ResponseWriter, r *http.Request) {
	var req models.CreateGroupRequest
	if err := decode(r, &req); err != nil {
		writeValidation(w, bodyIssue("body", "JSON decode error"))
		return
	}

	if n := len([]rune(req.Name)); n < 1 || n > 100 {
		writeValidation(w, bodyIssue("name", "String should have between 1 and 100 characters"))
		return
	}

	uid := userIDFrom(r.Context())
	now := s.nowUTC()

	s.mu.Lock()
	g := &models.Group{
		ID:               uuid.NewString(),
		Name:             req.Name,
		CreatedBy:        uid,
		Members:          []models.Member{{UserID: uid, Role: models.RoleAdmin}},
		CustomCategories: []string{},
		CreatedAt:        &now,
	}
	s.groups[g.ID] = g
	s.groupOrder = append(s.groupOrder, g.ID)
	out := cloneGroup(g)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) getGroup(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.memberGroupLocked(w, r)
	if g == nil {
		return
	}

	writeJSON(w, http.StatusOK, s.enrichedLocked(g))
}

func (s *Server) addMember(w http.ResponseWriter, r *http.Request) {
	var req models.AddMemberRequest
	if err := decode(r, &req); err != nil || req.UserID == "" {
		writeValidation(w, bodyIssue("user_id", "Field required"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.adminGroupLocked(w, r)
	if g == nil {
		return
	}

	if _, ok := s.usersByID[req.UserID]; !ok {
		writeError(w, http.StatusBadRequest, "User may already be a member")
		return
	}
	if _, ok := g.Member(req.UserID); ok {
		writeError(w, http.StatusBadRequest, "User may already be a member")
		return
	}

	g.Members = append(g.Members, models.Member{UserID: req.UserID, Role: models.RoleMember})

	writeJSON(w, http.StatusCreated, models.MemberActionResponse{Message: "Member added", UserID: req.UserID})
}

func (s *Server) promoteMember(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "uid")

	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.adminGroupLocked(w, r)
	if g == nil {
		return
	}

	for i := range g.Members {
		if g.Members[i].UserID == target {
			g.Members[i].Role = models.RoleAdmin
			writeJSON(w, http.StatusOK, models.MemberActionResponse{Message: "Member promoted to admin", UserID: target})
			return
		}
	}

	writeError(w, http.StatusNotFound, "Member not found in group")
}

func (s *Server) removeMember(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "uid")

	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.adminGroupLocked(w, r)
	if g == nil {
		return
	}

	var admins []string
	for _, m := range g.Members {
		if m.IsAdmin() {
			admins = append(admins, m.UserID)
		}
	}
	if len(admins) == 1 && admins[0] == target {
		writeError(w, http.StatusBadRequest, "Cannot remove the last admin. Transfer admin role first.")
		return
	}

	idx := slices.IndexFunc(g.Members, func(m models.Member) bool { return m.UserID == target })
	if idx < 0 {
		writeError(w, http.StatusNotFound, "Member not found in group")
		return
	}
	g.Members = slices.Delete(g.Members, idx, idx+1)

	writeJSON(w, http.StatusOK, models.MemberActionResponse{Message: "Member removed", UserID: target})
}

// ---- расходы ----

func queryInt(r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}

	v, err := strconv.Atoi(raw)
	return v, err == nil
}

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	page, ok1 := queryInt(r, "page", 1)
	limit, ok2 := queryInt(r, "limit", 20)
	order, ok3 := queryInt(r, "sort_order", models.SortDesc)
	if !ok1 || !ok2 || !ok3 || page < 1 || limit < 1 || limit > 100 {
		writeValidation(w, fieldIssue{Loc: []string{"query"}, Msg: "Input should be a valid integer in range", Typ: "value_error"})
		return
	}

	s.mu.Lock()
	g := s.memberGroupLocked(w, r)
	if g == nil {
		s.mu.Unlock()
		return
	}
	all := append([]models.Expense(nil), s.expenses[g.ID]...)
	s.mu.Unlock()

	sort.SliceStable(all, func(i, j int) bool {
		if order == models.SortAsc {
			return all[i].Date < all[j].Date
		}
		return all[i].Date > all[j].Date
	})

	total := len(all)
	from := min((page-1)*limit, total)
	to := min(from+limit, total)

	writeJSON(w, http.StatusOK, models.ExpensePage{
		Items: all[from:to],
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: (total + limit - 1) / limit,
	})
}

func (s *Server) createExpense(w http.ResponseWriter, r *http.Request) {
	var req models.NewExpense
	if err := decode(r, &req); err != nil {
		writeValidation(w, bodyIssue("body", "JSON decode error"))
		return
	}

	var issues []fieldIssue
	if n := len([]rune(req.Title)); n < 1 || n > 200 {
		issues = append(issues, bodyIssue("title", "String should have between 1 and 200 characters"))
	}
	if req.Amount <= 0 {
		issues = append(issues, bodyIssue("amount", "Input should be greater than 0"))
	}
	if _, err := time.Parse(time.DateOnly, req.Date); err != nil {
		issues = append(issues, bodyIssue("date", "Input should be a valid date"))
	}
	if len(issues) > 0 {
		writeValidation(w, issues...)
		return
	}

	uid := userIDFrom(r.Context())
	now := s.nowUTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.memberGroupLocked(w, r)
	if g == nil {
		return
	}

	allowed := categoriesOf(g)
	if !slices.Contains(allowed, req.Category) {
		writeError(w, http.StatusBadRequest, "Category must be one of: "+strings.Join(allowed, ", "))
		return
	}

	e := models.Expense{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		Date:        req.Date,
		CreatedBy:   uid,
		GroupID:     g.ID,
		CreatedAt:   &now,
	}
	s.expenses[g.ID] = append(s.expenses[g.ID], e)

	writeJSON(w, http.StatusCreated, e)
}

// ---- категории ----

// categoriesOf — предопределённые + пользовательские без повторов, порядок сохраняется.
func categoriesOf(g *models.Group) []string {
	out := make([]string, 0, len(models.PredefinedCategories)+len(g.CustomCategories))
	for _, c := range append(append([]string(nil), models.PredefinedCategories...), g.CustomCategories...) {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}

	return out
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.memberGroupLocked(w, r)
	if g == nil {
		return
	}

	writeJSON(w, http.StatusOK, models.CategoriesResponse{Categories: categoriesOf(g)})
}

func (s *Server) addCategory(w http.ResponseWriter, r *http.Request) {
	var req models.AddCategoryRequest
	if err := decode(r, &req); err != nil {
		writeValidation(w, bodyIssue("body", "JSON decode error"))
		return
	}
	if n := len([]rune(req.Category)); n < 1 || n > 100 {
		writeValidation(w, bodyIssue("category", "String should have between 1 and 100 characters"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.adminGroupLocked(w, r)
	if g == nil {
		return
	}

	if slices.Contains(g.CustomCategories, req.Category) {
		writeError(w, http.StatusBadRequest, "Category may already exist")
		return
	}
	g.CustomCategories = append(g.CustomCategories, req.Category)

	writeJSON(w, http.StatusCreated, models.CategoryActionResponse{Message: "Category added", Category: req.Category})
}

// ---- статистика ----

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	year, _ := queryInt(r, "year", 0)
	month, _ := queryInt(r, "month", 0)

	s.mu.Lock()
	g := s.memberGroupLocked(w, r)
	if g == nil {
		s.mu.Unlock()
		return
	}
	all := append([]models.Expense(nil), s.expenses[g.ID]...)
	s.mu.Unlock()

	var (
		total   float64
		byCat   = map[string]float64{}
		byUser  = map[string]float64{}
		monthly = map[[2]int]float64{}
	)

	for _, e := range all {
		d, err := time.Parse(time.DateOnly, e.Date)
		if err != nil {
			continue
		}
		if (period == "year" || period == "month") && year != 0 && d.Year() != year {
			continue
		}
		if period == "month" && month != 0 && int(d.Month()) != month {
			continue
		}

		total += e.Amount
		byCat[e.Category] += e.Amount
		byUser[e.CreatedBy] += e.Amount
		monthly[[2]int{d.Year(), int(d.Month())}] += e.Amount
	}

	out := models.Stats{
		Total:      round2(total),
		ByCategory: []models.CategoryTotal{},
		ByUser:     []models.UserTotal{},
		Monthly:    []models.MonthTotal{},
	}
	for _, c := range sortedKeys(byCat) {
		out.ByCategory = append(out.ByCategory, models.CategoryTotal{Category: c, Total: round2(byCat[c])})
	}
	for _, u := range sortedKeys(byUser) {
		out.ByUser = append(out.ByUser, models.UserTotal{UserID: u, Total: round2(byUser[u])})
	}

	keys := make([][2]int, 0, len(monthly))
	for k := range monthly {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	for _, k := range keys {
		out.Monthly = append(out.Monthly, models.MonthTotal{Year: k[0], Month: k[1], Total: round2(monthly[k])})
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) nowUTC() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.now().UTC()
}
