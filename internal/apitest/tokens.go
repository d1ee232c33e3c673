package apitest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-expense-tracker/internal/models"
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

type claims struct {
	Type string `json:"type"`
	Gen  int    `json:"gen"`
	jwt.RegisteredClaims
}

var errInvalidToken = errors.New("invalid token")

func (s *Server) signLocked(userID, typ string, gen int, ttl time.Duration) string {
	now := s.now()
	c := claims{
		Type: typ,
		Gen:  gen,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		panic(fmt.Sprintf("apitest: sign token: %v", err))
	}

	return signed
}

func (s *Server) issuePairLocked(userID string) models.TokenPair {
	return models.TokenPair{
		Access:  s.signLocked(userID, typeAccess, s.accessGen, s.accessTTL),
		Refresh: s.signLocked(userID, typeRefresh, s.refreshGen, s.refreshTTL),
	}
}

// parseLocked проверяет подпись, срок, тип и поколение токена. Возвращает user id.
func (s *Server) parseLocked(raw, typ string) (string, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c,
		func(*jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errInvalidToken, err)
	}

	if c.Type != typ || c.Subject == "" {
		return "", errInvalidToken
	}

	gen := s.accessGen
	if typ == typeRefresh {
		gen = s.refreshGen
	}
	if c.Gen != gen {
		return "", errInvalidToken
	}

	if _, ok := s.usersByID[c.Subject]; !ok {
		return "", errInvalidToken
	}

	return c.Subject, nil
}

type ctxKey struct{}

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// requireAuth — Bearer access-токен обязателен, иначе 401.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "Bearer "

		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, prefix) || len(auth) == len(prefix) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		s.mu.Lock()
		uid, err := s.parseLocked(strings.TrimSpace(auth[len(prefix):]), typeAccess)
		s.mu.Unlock()

		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, uid)))
	})
}
