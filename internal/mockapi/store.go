package mockapi

import (
	"errors"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/five82/bookdesk/internal/bookapi"
)

var (
	errDuplicateEmail = errors.New("email already registered")
	errBadCredentials = errors.New("invalid email or password")
)

type user struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
}

type upload struct {
	Name        string
	ContentType string
	Data        []byte
}

type storedBook struct {
	Book     bookapi.Book
	Cover    upload
	Document upload
}

// store keeps users and books in memory. Books are appended in creation
// order.
type store struct {
	mu       sync.RWMutex
	users    map[string]*user // by lower-cased email
	books    []*storedBook
	byID     map[string]*storedBook
	hashCost int
}

func newStore(hashCost int) *store {
	return &store{
		users:    make(map[string]*user),
		byID:     make(map[string]*storedBook),
		hashCost: hashCost,
	}
}

func (s *store) addUser(name, email, password string) (*user, error) {
	key := strings.ToLower(email)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[key]; exists {
		return nil, errDuplicateEmail
	}
	u := &user{ID: ulid.Make().String(), Name: name, Email: email, PasswordHash: hash}
	s.users[key] = u
	return u, nil
}

func (s *store) authenticate(email, password string) (*user, error) {
	s.mu.RLock()
	u, ok := s.users[strings.ToLower(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, errBadCredentials
	}
	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		return nil, errBadCredentials
	}
	return u, nil
}

func (s *store) addBook(b *storedBook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books = append(s.books, b)
	s.byID[b.Book.ID] = b
}

// listBooks returns books newest first.
func (s *store) listBooks() []bookapi.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]bookapi.Book, 0, len(s.books))
	for i := len(s.books) - 1; i >= 0; i-- {
		out = append(out, s.books[i].Book)
	}
	return out
}

func (s *store) book(id string) (*storedBook, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.byID[id]
	return b, ok
}
