package form

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/five82/bookdesk/internal/bookapi"
)

// Field names, shared with the multipart payload.
const (
	FieldTitle       = bookapi.FieldTitle
	FieldGenre       = bookapi.FieldGenre
	FieldDescription = bookapi.FieldDescription
	FieldCoverImage  = bookapi.FieldCoverImage
	FieldDocument    = bookapi.FieldDocument
)

// FileList is the set of files selected for a file input.
type FileList []bookapi.File

// First returns the first selected file, or nil.
func (l FileList) First() bookapi.File {
	if len(l) == 0 {
		return nil
	}
	return l[0]
}

// BookDraft is unsaved input for a new book.
type BookDraft struct {
	Title       string
	Genre       string
	Description string
	CoverImage  FileList
	Document    FileList
}

// Reset clears every field and file selection.
func (d *BookDraft) Reset() {
	*d = BookDraft{}
}

// Assemble maps a draft onto the create-book payload. Text fields map by
// name; each attachment is the first file of its list. Callers validate
// first; Assemble does not.
func Assemble(d BookDraft) bookapi.BookUpload {
	return bookapi.BookUpload{
		Title:       d.Title,
		Genre:       d.Genre,
		Description: d.Description,
		CoverImage:  d.CoverImage.First(),
		Document:    d.Document.First(),
	}
}

// LocalFile is a file on disk.
type LocalFile struct {
	Path string
}

// Name returns the path.
func (f LocalFile) Name() string { return f.Path }

// Open opens the file for reading.
func (f LocalFile) Open() (io.ReadCloser, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Path, err)
	}
	return file, nil
}

// ParsePaths turns a comma separated path list into a FileList. Blank
// entries are dropped, so "" yields an empty selection. A leading ~ is
// expanded to the home directory.
func ParsePaths(raw string) FileList {
	var out FileList
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, LocalFile{Path: expandHome(p)})
		}
	}
	return out
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
