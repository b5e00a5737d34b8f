// Package mutation runs the create-book submission: validate the draft,
// assemble the upload, attach the session token, call the API, then
// invalidate the cached book list and signal navigation.
//
// A Pipeline holds one submission at a time. Submit while Pending is
// rejected with ErrSubmitInFlight and makes no network call. Close detaches
// the pipeline from its owner: submissions still finish and still
// invalidate the cache, but callbacks stop firing.
package mutation

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/five82/bookdesk/internal/bookapi"
	"github.com/five82/bookdesk/internal/form"
	"github.com/five82/bookdesk/internal/query"
	"github.com/five82/bookdesk/internal/session"
)

// ErrSubmitInFlight rejects a submit while another is pending.
var ErrSubmitInFlight = errors.New("submission already in flight")

// Creator is the API call the pipeline drives.
type Creator interface {
	CreateBook(ctx context.Context, upload bookapi.BookUpload, token string) (bookapi.Book, error)
}

// Invalidator marks cached queries stale.
type Invalidator interface {
	Invalidate(key string) bool
}

// Config wires a Pipeline.
type Config struct {
	API    Creator
	Tokens session.TokenSource
	Cache  Invalidator
	Logger logrus.FieldLogger
	// OnSuccess is the navigation signal, called with the created book.
	OnSuccess func(bookapi.Book)
	// OnChange observes every state transition.
	OnChange func(State)
}

// Pipeline is the create-book mutation.
type Pipeline struct {
	api       Creator
	tokens    session.TokenSource
	cache     Invalidator
	log       logrus.FieldLogger
	onSuccess func(bookapi.Book)
	onChange  func(State)

	mu     sync.Mutex
	state  State
	closed bool
}

// New creates an idle pipeline.
func New(cfg Config) *Pipeline {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{
		api:       cfg.API,
		tokens:    cfg.Tokens,
		cache:     cfg.Cache,
		log:       log.WithField("component", "mutation"),
		onSuccess: cfg.OnSuccess,
		onChange:  cfg.OnChange,
	}
}

// State returns the current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Pending reports whether a submission is running.
func (p *Pipeline) Pending() bool {
	return p.State().Phase == Pending
}

// Reset returns a settled pipeline to Idle. A pending submission is left
// alone.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	if p.state.Phase == Pending {
		p.mu.Unlock()
		return
	}
	p.state = State{}
	p.mu.Unlock()
	p.notify(State{})
}

// Close stops callbacks. It is safe to call more than once.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

// Submit runs one submission to completion. The returned error is
// ErrSubmitInFlight, the Failed state's *ErrorDetail, or nil on success.
func (p *Pipeline) Submit(ctx context.Context, draft form.BookDraft) (State, error) {
	p.mu.Lock()
	if p.state.Phase == Pending {
		st := p.state
		p.mu.Unlock()
		p.log.Debug("submit rejected: already pending")
		return st, ErrSubmitInFlight
	}

	result := form.Validate(draft)
	if !result.Valid {
		st := p.failLocked(&ErrorDetail{
			Kind:        ValidationError,
			Message:     MsgValidation,
			FieldErrors: result.FieldErrors,
		})
		p.mu.Unlock()
		p.log.WithField("fields", result.Fields()).Info("book draft rejected by validation")
		p.notify(st)
		return st, st.Err
	}

	upload := form.Assemble(draft)

	var token string
	ok := false
	if p.tokens != nil {
		token, ok = p.tokens.Token()
	}
	if !ok {
		st := p.failLocked(&ErrorDetail{Kind: AuthError, Message: MsgSignedOut})
		p.mu.Unlock()
		p.log.Warn("create book attempted without a session")
		p.notify(st)
		return st, st.Err
	}

	p.state = State{Phase: Pending}
	p.mu.Unlock()
	p.notify(State{Phase: Pending})

	book, err := p.api.CreateBook(ctx, upload, token)
	if err != nil {
		detail := Detail(err)
		p.mu.Lock()
		st := p.failLocked(detail)
		p.mu.Unlock()
		p.log.WithError(err).WithFields(logrus.Fields{
			"kind":   detail.Kind.String(),
			"status": detail.Status,
		}).Warn("create book failed")
		p.notify(st)
		return st, st.Err
	}

	if p.cache != nil {
		p.cache.Invalidate(query.BooksKey)
	}
	p.mu.Lock()
	p.state = State{Phase: Succeeded, Book: &book}
	st := p.state
	closed := p.closed
	p.mu.Unlock()

	p.log.WithFields(logrus.Fields{"id": book.ID, "title": book.Title}).Info("book created")
	p.notify(st)
	if !closed && p.onSuccess != nil {
		p.onSuccess(book)
	}
	return st, nil
}

func (p *Pipeline) failLocked(detail *ErrorDetail) State {
	p.state = State{Phase: Failed, Err: detail}
	return p.state
}

func (p *Pipeline) notify(st State) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed || p.onChange == nil {
		return
	}
	p.onChange(st)
}
