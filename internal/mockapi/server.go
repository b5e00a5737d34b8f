// Package mockapi is an in-memory stand-in for the book catalog API, used by
// the mock-server command during development and by end-to-end tests.
//
// It implements the same four endpoints the client consumes:
//
//	POST /api/users/register  {name, email, password} -> 201 {accessToken}
//	POST /api/users/login     {email, password}       -> 200 {accessToken}
//	GET  /api/books                                   -> 200 [book...] newest first
//	POST /api/books           multipart, Bearer       -> 201 book
//
// Tokens are HS256 JWTs carrying sub, name and email with a one hour
// expiry. Uploaded files are kept in memory and served from /uploads.
package mockapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenTTL       = time.Hour
	maxUploadBytes = 32 << 20
	timestampFmt   = time.RFC3339
)

// Server is the fake API.
type Server struct {
	store  *store
	secret []byte
	log    logrus.FieldLogger
	now    func() time.Time
	router chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithSecret sets the JWT signing key. The default is random per process.
func WithSecret(secret []byte) Option {
	return func(s *Server) {
		if len(secret) > 0 {
			s.secret = secret
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock replaces time.Now for timestamps and token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithFastHashing lowers the bcrypt cost. Tests use it.
func WithFastHashing() Option {
	return func(s *Server) { s.store.hashCost = bcrypt.MinCost }
}

// New builds a Server with an empty catalog.
func New(opts ...Option) *Server {
	s := &Server{
		store:  newStore(bcrypt.DefaultCost),
		secret: []byte(uuid.NewString()),
		log:    logrus.StandardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/users/register", s.handleRegister)
		r.Post("/users/login", s.handleLogin)
		r.Get("/books", s.handleListBooks)
		r.With(s.requireBearer).Post("/books", s.handleCreateBook)
	})
	r.Get("/uploads/{id}/{kind}", s.handleUpload)
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = middleware.GetReqID(r.Context())
		}
		s.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"request_id": requestID,
			"duration":   time.Since(start).Round(time.Microsecond),
		}).Info("request")
	})
}
