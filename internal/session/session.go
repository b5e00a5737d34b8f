// Package session holds the access token shared by every authenticated
// request. New returns the read side and the write side separately; only the
// login/logout flow is handed the Writer.
package session

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned by Require when nobody is signed in.
var ErrNoToken = errors.New("not signed in")

// TokenSource is the read-only view handed to request builders.
type TokenSource interface {
	Token() (string, bool)
}

// Store is the read side of the session.
type Store struct {
	token atomic.Pointer[string]
}

// Ensure Store implements TokenSource at compile time.
var _ TokenSource = (*Store)(nil)

// Writer is the write side of the session.
type Writer struct {
	store *Store
}

// New creates an empty session.
func New() (*Store, *Writer) {
	s := &Store{}
	return s, &Writer{store: s}
}

// Token returns the current token and whether one is set.
func (s *Store) Token() (string, bool) {
	if s == nil {
		return "", false
	}
	p := s.token.Load()
	if p == nil {
		return "", false
	}
	return *p, true
}

// Require returns the current token or ErrNoToken.
func (s *Store) Require() (string, error) {
	tok, ok := s.Token()
	if !ok {
		return "", ErrNoToken
	}
	return tok, nil
}

// SetToken replaces the token. Blank tokens clear the session.
func (w *Writer) SetToken(token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		w.ClearToken()
		return
	}
	w.store.token.Store(&token)
}

// ClearToken signs the session out.
func (w *Writer) ClearToken() {
	w.store.token.Store(nil)
}

// Store returns the read side this writer mutates.
func (w *Writer) Store() *Store {
	return w.store
}

// Claims is the identity carried in a JWT access token.
type Claims struct {
	Subject   string
	Name      string
	Email     string
	ExpiresAt time.Time
}

// Label returns the most readable identity available.
func (c Claims) Label() string {
	switch {
	case c.Name != "":
		return c.Name
	case c.Email != "":
		return c.Email
	default:
		return c.Subject
	}
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Claims decodes the identity from the current token for display. The
// signature is not verified; the API remains the authority. ok is false when
// no token is set or the token is not a JWT.
func (s *Store) Claims() (Claims, bool) {
	tok, ok := s.Token()
	if !ok {
		return Claims{}, false
	}
	var parsed tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &parsed); err != nil {
		return Claims{}, false
	}
	out := Claims{
		Subject: parsed.Subject,
		Name:    parsed.Name,
		Email:   parsed.Email,
	}
	if parsed.ExpiresAt != nil {
		out.ExpiresAt = parsed.ExpiresAt.Time
	}
	return out, true
}
