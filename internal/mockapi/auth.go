package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"

	"github.com/five82/bookdesk/internal/bookapi"
)

type contextKey string

const claimsKey = contextKey("claims")

type tokenClaims struct {
	jwt.RegisteredClaims
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *Server) issueToken(u *user) (string, error) {
	now := s.now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
		Name:  u.Name,
		Email: u.Email,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) parseToken(raw string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		scheme, raw, ok := strings.Cut(header, " ")
		if header == "" || !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(raw) == "" {
			writeError(w, r, http.StatusUnauthorized, "Authorization header must be Bearer {token}", nil)
			return
		}
		claims, err := s.parseToken(strings.TrimSpace(raw))
		if err != nil {
			s.log.WithError(err).Debug("rejected bearer token")
			writeError(w, r, http.StatusUnauthorized, "Invalid or expired token", nil)
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFrom(ctx context.Context) *tokenClaims {
	c, _ := ctx.Value(claimsKey).(*tokenClaims)
	return c
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req bookapi.Registration
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Request body must be JSON", nil)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	fields := map[string]string{}
	if req.Name == "" {
		fields["name"] = "Name is required"
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		fields["email"] = "A valid email is required"
	}
	if req.Password == "" {
		fields["password"] = "Password is required"
	}
	if len(fields) > 0 {
		writeError(w, r, http.StatusBadRequest, "All fields are required", fields)
		return
	}

	u, err := s.store.addUser(req.Name, req.Email, req.Password)
	switch {
	case errors.Is(err, errDuplicateEmail):
		writeError(w, r, http.StatusConflict, "User already exists with this email", nil)
		return
	case err != nil:
		s.log.WithError(err).Error("register user")
		writeError(w, r, http.StatusInternalServerError, "Could not create user", nil)
		return
	}
	s.respondToken(w, r, u, http.StatusCreated)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req bookapi.Credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Request body must be JSON", nil)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "Email and password are required", nil)
		return
	}
	u, err := s.store.authenticate(strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "Email or password incorrect", nil)
		return
	}
	s.respondToken(w, r, u, http.StatusOK)
}

func (s *Server) respondToken(w http.ResponseWriter, r *http.Request, u *user, status int) {
	token, err := s.issueToken(u)
	if err != nil {
		s.log.WithError(err).Error("sign token")
		writeError(w, r, http.StatusInternalServerError, "Could not sign token", nil)
		return
	}
	render.Status(r, status)
	render.JSON(w, r, bookapi.TokenResponse{AccessToken: token})
}

type errorBody struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string, fields map[string]string) {
	render.Status(r, status)
	render.JSON(w, r, errorBody{Message: msg, Errors: fields})
}
