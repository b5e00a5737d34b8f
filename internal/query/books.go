package query

import (
	"context"
	"slices"

	"github.com/five82/bookdesk/internal/bookapi"
)

// BooksKey is the cache key of the book list.
const BooksKey = "books"

// BookLister is the slice of the API the list query needs.
type BookLister interface {
	ListBooks(ctx context.Context) ([]bookapi.Book, error)
}

// Books registers the book list query.
func Books(c *Client, api BookLister) *Query[[]bookapi.Book] {
	return Register(c, Spec[[]bookapi.Book]{
		Key:     BooksKey,
		Fetch:   api.ListBooks,
		IsEmpty: func(b []bookapi.Book) bool { return len(b) == 0 },
		Clone:   func(b []bookapi.Book) []bookapi.Book { return slices.Clone(b) },
	})
}
