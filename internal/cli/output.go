package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/five82/bookdesk/internal/bookapi"
)

type outputFormat string

const (
	formatTable outputFormat = "table"
	formatJSON  outputFormat = "json"
	formatYAML  outputFormat = "yaml"
)

func parseFormat(raw string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(raw))); f {
	case formatTable, formatJSON, formatYAML:
		return f, nil
	case "":
		return formatTable, nil
	default:
		return "", fmt.Errorf("%w: %q (want table, json or yaml)", errUnknownFormat, raw)
	}
}

// bookRecord is the YAML shape of a book.
type bookRecord struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Genre       string `yaml:"genre"`
	Author      string `yaml:"author,omitempty"`
	Description string `yaml:"description,omitempty"`
	CoverImage  string `yaml:"coverImage,omitempty"`
	Document    string `yaml:"document,omitempty"`
	CreatedAt   string `yaml:"createdAt,omitempty"`
}

func toRecord(b bookapi.Book) bookRecord {
	return bookRecord{
		ID:          b.ID,
		Title:       b.Title,
		Genre:       b.Genre,
		Author:      b.Author.Name,
		Description: b.Description,
		CoverImage:  b.CoverImageURL,
		Document:    b.DocumentURL,
		CreatedAt:   b.CreatedAt,
	}
}

func writeBooks(w io.Writer, format outputFormat, books []bookapi.Book) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if books == nil {
			books = []bookapi.Book{}
		}
		return enc.Encode(books)
	case formatYAML:
		records := make([]bookRecord, 0, len(books))
		for _, b := range books {
			records = append(records, toRecord(b))
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		if len(books) == 0 {
			_, err := fmt.Fprintln(w, "No books found")
			return err
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("ID", "TITLE", "GENRE", "AUTHOR", "CREATED")
		for _, b := range books {
			t.Row(b.ID, b.Title, b.Genre, b.Author.Name, formatCreated(b))
		}
		_, err := fmt.Fprintln(w, t.Render())
		return err
	}
}

func writeBook(w io.Writer, format outputFormat, b bookapi.Book) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	}
	return writeBooks(w, format, []bookapi.Book{b})
}

func formatCreated(b bookapi.Book) string {
	t := b.ParsedCreatedAt()
	if t.IsZero() {
		return b.CreatedAt
	}
	return t.Local().Format("2006-01-02 15:04")
}
