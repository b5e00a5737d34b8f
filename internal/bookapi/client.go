package bookapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// API defines the book catalog operations the dashboard consumes.
// This interface is implemented by *Client and can be used for testing.
type API interface {
	Login(ctx context.Context, creds Credentials) (TokenResponse, error)
	Signup(ctx context.Context, reg Registration) (TokenResponse, error)
	ListBooks(ctx context.Context) ([]Book, error)
	CreateBook(ctx context.Context, upload BookUpload, token string) (Book, error)
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

// Client talks to the book catalog HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	log       logrus.FieldLogger
}

const (
	defaultBaseURL   = "http://127.0.0.1:5513"
	defaultUserAgent = "bookdesk/0.1"
	defaultTimeout   = 15 * time.Second

	contentTypeJSON = "application/json"
)

// Option customises a Client.
type Option func(*Client)

// WithTimeout sets the transport timeout for every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient builds a Client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		userAgent: defaultUserAgent,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalised API root.
func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.baseURL.String()
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, creds Credentials) (TokenResponse, error) {
	var payload TokenResponse
	if err := c.doJSON(ctx, "login", http.MethodPost, "/api/users/login", creds, &payload); err != nil {
		return TokenResponse{}, err
	}
	return payload, nil
}

// Signup registers a new user and returns its access token.
func (c *Client) Signup(ctx context.Context, reg Registration) (TokenResponse, error) {
	var payload TokenResponse
	if err := c.doJSON(ctx, "signup", http.MethodPost, "/api/users/register", reg, &payload); err != nil {
		return TokenResponse{}, err
	}
	return payload, nil
}

// ListBooks retrieves the current catalog.
func (c *Client) ListBooks(ctx context.Context) ([]Book, error) {
	var payload []Book
	if err := c.doJSON(ctx, "list books", http.MethodGet, "/api/books", nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// CreateBook uploads a new book as multipart form data. The token is
// required; an empty token fails locally without touching the network.
func (c *Client) CreateBook(ctx context.Context, upload BookUpload, token string) (Book, error) {
	const op = "create book"
	if strings.TrimSpace(token) == "" {
		return Book{}, &Error{Kind: KindAuth, Op: op, Err: ErrMissingToken}
	}
	if upload.CoverImage == nil || upload.Document == nil {
		return Book{}, &Error{Kind: KindClient, Op: op, Err: fmt.Errorf("cover image and document are required")}
	}

	cover, document, err := openAttachments(op, upload)
	if err != nil {
		return Book{}, err
	}
	body, contentType := encodeUpload(upload, cover, document)
	var payload Book
	if err := c.do(ctx, request{
		op:          op,
		method:      http.MethodPost,
		path:        "/api/books",
		body:        body,
		contentType: contentType,
		token:       token,
	}, &payload); err != nil {
		return Book{}, err
	}
	return payload, nil
}

type request struct {
	op          string
	method      string
	path        string
	body        io.Reader
	contentType string
	token       string
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, dest any) error {
	req := request{op: op, method: method, path: path}
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return &Error{Kind: KindClient, Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		req.body = bytes.NewReader(encoded)
	}
	return c.do(ctx, req, dest)
}

func (c *Client) do(ctx context.Context, r request, dest any) error {
	if c == nil {
		return &Error{Kind: KindUnreachable, Op: r.op, Err: fmt.Errorf("client is nil")}
	}
	reqURL := c.baseURL.ResolveReference(&url.URL{Path: r.path})
	req, err := http.NewRequestWithContext(ctx, r.method, reqURL.String(), r.body)
	if err != nil {
		if closer, ok := r.body.(io.Closer); ok {
			_ = closer.Close()
		}
		return &Error{Kind: KindClient, Op: r.op, Err: fmt.Errorf("create request: %w", err)}
	}

	requestID := uuid.NewString()
	contentType := r.contentType
	if contentType == "" {
		contentType = contentTypeJSON
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	log := c.log.WithFields(logrus.Fields{
		"op":         r.op,
		"method":     r.method,
		"path":       r.path,
		"request_id": requestID,
	})
	started := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		apiErr := transportError(r.op, err)
		log.WithError(err).WithField("kind", apiErr.Kind.String()).Debug("request failed")
		return apiErr
	}
	defer func() { _ = resp.Body.Close() }()

	log = log.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(started).Round(time.Millisecond).String(),
	})
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := responseError(r.op, resp)
		log.WithField("kind", apiErr.Kind.String()).Debug("request rejected")
		return apiErr
	}
	log.Debug("request completed")

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &Error{Kind: KindDecode, Op: r.op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// openAttachments opens both files before anything is sent, so a bad path
// is reported against its field rather than as a transport failure.
func openAttachments(op string, upload BookUpload) (io.ReadCloser, io.ReadCloser, error) {
	fields := make(map[string]string)
	var errs []error
	open := func(field, label string, f File) io.ReadCloser {
		rc, err := f.Open()
		if err != nil {
			fields[field] = fmt.Sprintf("Could not open %s %s", label, filepath.Base(f.Name()))
			errs = append(errs, fmt.Errorf("open %s: %w", field, err))
			return nil
		}
		return rc
	}
	cover := open(FieldCoverImage, "cover image", upload.CoverImage)
	document := open(FieldDocument, "book document", upload.Document)
	if len(fields) == 0 {
		return cover, document, nil
	}

	for _, rc := range []io.ReadCloser{cover, document} {
		if rc != nil {
			_ = rc.Close()
		}
	}
	return nil, nil, &Error{
		Kind:    KindClient,
		Op:      op,
		Message: "Could not read the selected files.",
		Fields:  fields,
		Err:     fmt.Errorf("%w: %w", ErrAttachment, errors.Join(errs...)),
	}
}

// encodeUpload streams the multipart body through a pipe so attachments are
// never fully buffered. It takes ownership of cover and document.
func encodeUpload(upload BookUpload, cover, document io.ReadCloser) (io.Reader, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer func() {
			_ = cover.Close()
			_ = document.Close()
		}()
		pw.CloseWithError(writeUpload(mw, upload, cover, document))
	}()
	return pr, mw.FormDataContentType()
}

func writeUpload(mw *multipart.Writer, upload BookUpload, cover, document io.Reader) error {
	fields := []struct{ name, value string }{
		{FieldTitle, upload.Title},
		{FieldGenre, upload.Genre},
		{FieldDescription, upload.Description},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	if err := writeFilePart(mw, FieldCoverImage, upload.CoverImage.Name(), cover); err != nil {
		return err
	}
	if err := writeFilePart(mw, FieldDocument, upload.Document.Name(), document); err != nil {
		return err
	}
	return mw.Close()
}

func writeFilePart(mw *multipart.Writer, field, fileName string, src io.Reader) error {
	name := filepath.Base(fileName)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, name))
	header.Set("Content-Type", detectContentType(name))

	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create %s part: %w", field, err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("copy %s: %w", field, err)
	}
	return nil
}

func detectContentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse base url %q: missing host", raw)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
