package bookapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// Kind classifies adapter failures.
type Kind int

const (
	// KindUnreachable means the request never produced a response.
	KindUnreachable Kind = iota + 1
	// KindTimeout means the transport gave up waiting.
	KindTimeout
	// KindAuth covers a missing token and 401/403 responses.
	KindAuth
	// KindClient covers the remaining 4xx responses.
	KindClient
	// KindServer covers 5xx responses.
	KindServer
	// KindDecode means a 2xx response carried an unreadable body.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindTimeout:
		return "timeout"
	case KindAuth:
		return "auth"
	case KindClient:
		return "client error"
	case KindServer:
		return "server error"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// ErrMissingToken is returned by authenticated operations called without a token.
var ErrMissingToken = errors.New("access token required")

// ErrAttachment is returned when a selected file cannot be opened.
var ErrAttachment = errors.New("attachment unreadable")

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Error is the classified failure returned by every Client operation.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	switch {
	case e.Status > 0:
		fmt.Fprintf(&b, "api returned status %d", e.Status)
		if e.Message != "" {
			b.WriteString(": ")
			b.WriteString(e.Message)
		}
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(e.Kind.String())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the Kind of err, or zero when err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

func transportError(op string, err error) *Error {
	kind := KindUnreachable
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf("execute request: %w", err)}
}

func statusKind(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status >= 500:
		return KindServer
	default:
		return KindClient
	}
}

// responseError reads a non-2xx response into an *Error. JSON bodies with a
// message/error field are preferred; anything else falls back to the text.
func responseError(op string, resp *http.Response) *Error {
	apiErr := &Error{Kind: statusKind(resp.StatusCode), Op: op, Status: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var payload struct {
		Message string            `json:"message"`
		Error   string            `json:"error"`
		Errors  map[string]string `json:"errors"`
	}
	if json.Unmarshal(body, &payload) == nil {
		apiErr.Message = strings.TrimSpace(payload.Message)
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(payload.Error)
		}
		if len(payload.Errors) > 0 {
			apiErr.Fields = payload.Errors
		}
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}
