package apitest

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-expense-tracker/internal/models"
)

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decode(r, &req); err != nil {
		writeValidation(w, bodyIssue("body", "JSON decode error"))
		return
	}

	var issues []fieldIssue
	if _, err := mail.ParseAddress(req.Email); err != nil || !strings.Contains(req.Email, "@") {
		issues = append(issues, bodyIssue("email", "value is not a valid email address"))
	}
	if len(req.Password) < 8 {
		issues = append(issues, bodyIssue("password", "String should have at least 8 characters"))
	}
	if len(issues) > 0 {
		writeValidation(w, issues...)
		return
	}

	s.mu.Lock()
	u, err := s.addUserLocked(req.Email, req.Password, req.FullName)
	s.mu.Unlock()

	switch {
	case errors.Is(err, errEmailTaken):
		writeError(w, http.StatusBadRequest, "Email already registered")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	default:
		writeJSON(w, http.StatusOK, u.User)
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decode(r, &req); err != nil {
		writeValidation(w, bodyIssue("body", "JSON decode error"))
		return
	}

	s.mu.Lock()
	u, ok := s.usersByEmail[strings.ToLower(strings.TrimSpace(req.Email))]
	s.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword([]byte(u.hash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	s.mu.Lock()
	pair := s.issuePairLocked(u.ID)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, models.LoginResponse{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		TokenType:    "bearer",
		User:         u.User,
	})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := decode(r, &req); err != nil {
		writeValidation(w, bodyIssue("refresh_token", "Field required"))
		return
	}

	s.mu.Lock()
	delay, forced := s.refreshDelay, s.refreshStatus
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if forced != 0 {
		writeError(w, forced, "Refresh unavailable")
		return
	}

	s.mu.Lock()
	uid, err := s.parseLocked(req.RefreshToken, typeRefresh)
	var access string
	if err == nil {
		access = s.signLocked(uid, typeAccess, s.accessGen, s.accessTTL)
	}
	s.mu.Unlock()

	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	writeJSON(w, http.StatusOK, models.RefreshResponse{AccessToken: access, TokenType: "bearer"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	u, ok := s.usersByID[userIDFrom(r.Context())]
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, u.User)
}
