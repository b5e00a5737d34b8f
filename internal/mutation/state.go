package mutation

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/five82/bookdesk/internal/bookapi"
)

// Phase is the lifecycle position of a submission. Phases only move forward
// within one submission; a new submission starts again at Pending.
type Phase int

const (
	Idle Phase = iota
	Pending
	Succeeded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrorKind is the failure taxonomy shown to the user.
type ErrorKind int

const (
	// ValidationError: the draft failed local checks.
	ValidationError ErrorKind = iota + 1
	// AuthError: no token, or the API rejected it.
	AuthError
	// NetworkError: the API was unreachable or timed out.
	NetworkError
	// ServerError: any other non-2xx response.
	ServerError
)

func (k ErrorKind) String() string {
	switch k {
	case ValidationError:
		return "validation"
	case AuthError:
		return "auth"
	case NetworkError:
		return "network"
	case ServerError:
		return "server"
	default:
		return "unknown"
	}
}

// Messages used when the API gives none.
const (
	MsgValidation   = "Please fix the highlighted fields."
	MsgSignedOut    = "You must be signed in to create a book."
	MsgUnauthorized = "Your session is no longer valid. Sign in again."
	MsgUnreachable  = "Could not reach the server. Check your connection and try again."
	MsgTimeout      = "The server took too long to respond. Try again."
	MsgCancelled    = "The request was cancelled."
	MsgServer       = "The server could not create the book."
)

// ErrorDetail is the failure carried by a Failed state.
type ErrorDetail struct {
	Kind        ErrorKind
	Message     string
	Status      int
	FieldErrors map[string]string
}

func (e *ErrorDetail) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// State is the observable pipeline state.
type State struct {
	Phase Phase
	Book  *bookapi.Book
	Err   *ErrorDetail
}

// Detail maps an adapter failure onto the user-facing taxonomy.
func Detail(err error) *ErrorDetail {
	if err == nil {
		return nil
	}
	var apiErr *bookapi.Error
	if !errors.As(err, &apiErr) {
		if errors.Is(err, context.Canceled) {
			return &ErrorDetail{Kind: NetworkError, Message: MsgCancelled}
		}
		return &ErrorDetail{Kind: NetworkError, Message: MsgUnreachable}
	}

	d := &ErrorDetail{Status: apiErr.Status, Message: apiErr.Message}
	if len(apiErr.Fields) > 0 {
		d.FieldErrors = make(map[string]string, len(apiErr.Fields))
		for k, v := range apiErr.Fields {
			d.FieldErrors[k] = v
		}
	}
	switch apiErr.Kind {
	case bookapi.KindAuth:
		d.Kind = AuthError
		if errors.Is(apiErr, bookapi.ErrMissingToken) {
			d.Message = MsgSignedOut
		}
		fallback(d, MsgUnauthorized)
	case bookapi.KindUnreachable:
		d.Kind = NetworkError
		if errors.Is(apiErr, context.Canceled) {
			fallback(d, MsgCancelled)
		}
		fallback(d, MsgUnreachable)
	case bookapi.KindTimeout:
		d.Kind = NetworkError
		fallback(d, MsgTimeout)
	case bookapi.KindClient:
		if errors.Is(apiErr, bookapi.ErrAttachment) {
			d.Kind = ValidationError
			fallback(d, MsgValidation)
			break
		}
		d.Kind = ServerError
		if d.Message == "" && d.Status > 0 {
			d.Message = fmt.Sprintf("%s (%d %s)", MsgServer, d.Status, http.StatusText(d.Status))
		}
		fallback(d, MsgServer)
	case bookapi.KindServer, bookapi.KindDecode:
		d.Kind = ServerError
		if d.Message == "" && d.Status > 0 {
			d.Message = fmt.Sprintf("%s (%d %s)", MsgServer, d.Status, http.StatusText(d.Status))
		}
		fallback(d, MsgServer)
	default:
		d.Kind = ServerError
		fallback(d, MsgServer)
	}
	return d
}

func fallback(d *ErrorDetail, msg string) {
	if d.Message == "" {
		d.Message = msg
	}
}
