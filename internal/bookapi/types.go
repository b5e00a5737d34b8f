package bookapi

import (
	"encoding/json"
	"io"
	"strings"
	"time"
)

// Multipart field names accepted by POST /api/books.
const (
	FieldTitle       = "title"
	FieldGenre       = "genre"
	FieldDescription = "description"
	FieldCoverImage  = "coverImage"
	FieldDocument    = "document"
)

const apiTimestampLayout = "2006-01-02 15:04:05"

// Credentials is the /api/users/login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the /api/users/register request body.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse mirrors the login and register payloads.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// Author is the embedded author of a book. The API sends either a populated
// object or a bare id string, depending on the endpoint.
type Author struct {
	ID   string `json:"_id,omitempty"`
	Name string `json:"name"`
}

// UnmarshalJSON accepts both the object and the bare id forms.
func (a *Author) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		return json.Unmarshal(data, &a.ID)
	}
	type plain Author
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*a = Author(decoded)
	return nil
}

// Book describes a catalog entry in transport-friendly form.
type Book struct {
	ID            string `json:"_id"`
	Title         string `json:"title"`
	Genre         string `json:"genre"`
	Description   string `json:"description,omitempty"`
	Author        Author `json:"author"`
	CoverImageURL string `json:"coverImage"`
	DocumentURL   string `json:"file,omitempty"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
}

// ParsedCreatedAt returns the parsed CreatedAt timestamp.
func (b Book) ParsedCreatedAt() time.Time {
	return parseTime(b.CreatedAt)
}

// File is a named, re-openable attachment.
type File interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// BookUpload is the assembled create-book payload. Each attachment is the
// single file selected for that field.
type BookUpload struct {
	Title       string
	Genre       string
	Description string
	CoverImage  File
	Document    File
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(apiTimestampLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
