package mockapi

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/oklog/ulid/v2"

	"github.com/five82/bookdesk/internal/bookapi"
)

const (
	uploadCover    = "cover"
	uploadDocument = "document"
)

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.store.listBooks())
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if claims == nil {
		writeError(w, r, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "Upload exceeds 32 MiB", nil)
			return
		}
		writeError(w, r, http.StatusBadRequest, "Request must be multipart/form-data", nil)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	title := strings.TrimSpace(r.FormValue(bookapi.FieldTitle))
	genre := strings.TrimSpace(r.FormValue(bookapi.FieldGenre))
	description := strings.TrimSpace(r.FormValue(bookapi.FieldDescription))

	fields := map[string]string{}
	minLen := func(field, value string, n int, label string) {
		if utf8.RuneCountInString(value) < n {
			fields[field] = fmt.Sprintf("%s must be at least %d characters.", label, n)
		}
	}
	minLen(bookapi.FieldTitle, title, 2, "Title")
	minLen(bookapi.FieldGenre, genre, 2, "Genre")
	minLen(bookapi.FieldDescription, description, 10, "Description")

	cover, coverMsg := singleFile(r.MultipartForm, bookapi.FieldCoverImage, "Cover image")
	if coverMsg != "" {
		fields[bookapi.FieldCoverImage] = coverMsg
	}
	doc, docMsg := singleFile(r.MultipartForm, bookapi.FieldDocument, "Book document")
	if docMsg != "" {
		fields[bookapi.FieldDocument] = docMsg
	}
	if len(fields) > 0 {
		writeError(w, r, http.StatusBadRequest, "Validation failed", fields)
		return
	}

	coverUpload, err := readUpload(cover)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Could not read cover image", nil)
		return
	}
	docUpload, err := readUpload(doc)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Could not read book document", nil)
		return
	}

	id := ulid.Make().String()
	created := s.now().UTC().Format(timestampFmt)
	book := bookapi.Book{
		ID:            id,
		Title:         title,
		Genre:         genre,
		Description:   description,
		Author:        bookapi.Author{ID: claims.Subject, Name: claims.Name},
		CoverImageURL: uploadURL(r, id, uploadCover),
		DocumentURL:   uploadURL(r, id, uploadDocument),
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	s.store.addBook(&storedBook{Book: book, Cover: coverUpload, Document: docUpload})

	s.log.WithField("id", id).WithField("title", title).Info("book created")
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, book)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	b, ok := s.store.book(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "Book not found", nil)
		return
	}
	var up upload
	switch chi.URLParam(r, "kind") {
	case uploadCover:
		up = b.Cover
	case uploadDocument:
		up = b.Document
	default:
		writeError(w, r, http.StatusNotFound, "Upload not found", nil)
		return
	}
	w.Header().Set("Content-Type", up.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": up.Name}))
	_, _ = w.Write(up.Data)
}

func singleFile(form *multipart.Form, field, label string) (*multipart.FileHeader, string) {
	files := form.File[field]
	switch len(files) {
	case 0:
		return nil, label + " is required"
	case 1:
		return files[0], ""
	default:
		return nil, "Select exactly one " + strings.ToLower(label)
	}
}

func readUpload(fh *multipart.FileHeader) (upload, error) {
	f, err := fh.Open()
	if err != nil {
		return upload{}, err
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return upload{}, err
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	return upload{Name: path.Base(fh.Filename), ContentType: ct, Data: data}, nil
}

func uploadURL(r *http.Request, id, kind string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/uploads/%s/%s", scheme, r.Host, id, kind)
}
