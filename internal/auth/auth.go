// Package auth signs the session in and out. It is the only holder of the
// session writer.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/five82/bookdesk/internal/bookapi"
	"github.com/five82/bookdesk/internal/session"
)

// ErrMissingField is returned when a required credential is blank.
var ErrMissingField = errors.New("missing required field")

// ErrInvalidEmail is returned for an address that does not parse.
var ErrInvalidEmail = errors.New("invalid email address")

// API is the part of the book API used to obtain tokens.
type API interface {
	Login(ctx context.Context, creds bookapi.Credentials) (bookapi.TokenResponse, error)
	Signup(ctx context.Context, reg bookapi.Registration) (bookapi.TokenResponse, error)
}

// Service performs login, registration and logout.
type Service struct {
	api    API
	writer *session.Writer
	log    logrus.FieldLogger
}

// NewService creates a Service.
func NewService(api API, writer *session.Writer, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{api: api, writer: writer, log: log.WithField("component", "auth")}
}

// Session returns the read side of the session.
func (s *Service) Session() *session.Store {
	return s.writer.Store()
}

// Login exchanges credentials for a token and stores it.
func (s *Service) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if err := required("email", email); err != nil {
		return err
	}
	if err := required("password", password); err != nil {
		return err
	}
	resp, err := s.api.Login(ctx, bookapi.Credentials{Email: email, Password: password})
	if err != nil {
		s.log.WithError(err).WithField("email", email).Warn("login failed")
		return err
	}
	return s.accept(resp, email, "login")
}

// Register creates an account and stores the returned token.
func (s *Service) Register(ctx context.Context, name, email, password string) error {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	for _, f := range []struct{ field, value string }{
		{"name", name}, {"email", email}, {"password", password},
	} {
		if err := required(f.field, f.value); err != nil {
			return err
		}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidEmail, email)
	}
	resp, err := s.api.Signup(ctx, bookapi.Registration{Name: name, Email: email, Password: password})
	if err != nil {
		s.log.WithError(err).WithField("email", email).Warn("registration failed")
		return err
	}
	return s.accept(resp, email, "register")
}

// Resume signs in with a token obtained earlier, such as one passed to the
// CLI. The token is not checked until the API sees it.
func (s *Service) Resume(token string) error {
	if err := required("token", token); err != nil {
		return err
	}
	s.writer.SetToken(token)
	return nil
}

// Logout clears the token.
func (s *Service) Logout() {
	s.writer.ClearToken()
	s.log.Info("signed out")
}

func (s *Service) accept(resp bookapi.TokenResponse, email, op string) error {
	if strings.TrimSpace(resp.AccessToken) == "" {
		return &bookapi.Error{Kind: bookapi.KindDecode, Op: op, Message: "response carried no access token"}
	}
	s.writer.SetToken(resp.AccessToken)
	s.log.WithField("email", email).Info("signed in")
	return nil
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	return nil
}
