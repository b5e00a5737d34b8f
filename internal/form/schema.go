package form

import (
	"sort"
	"unicode/utf8"
)

// Rule is one declarative check: when Check returns a non-empty message, the
// field fails with that message.
type Rule struct {
	Field string
	Check func(BookDraft) string
}

// Schema is an ordered list of rules, at most one failure per field.
type Schema []Rule

// ValidationResult is the outcome of one validation pass.
type ValidationResult struct {
	Valid       bool
	FieldErrors map[string]string
}

// Fields returns the failing field names in sorted order.
func (r ValidationResult) Fields() []string {
	out := make([]string, 0, len(r.FieldErrors))
	for name := range r.FieldErrors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// BookSchema is the create-book form schema.
var BookSchema = Schema{
	{Field: FieldTitle, Check: minLength(func(d BookDraft) string { return d.Title }, 2,
		"Title must be at least 2 characters.")},
	{Field: FieldGenre, Check: minLength(func(d BookDraft) string { return d.Genre }, 2,
		"Genre must be at least 2 characters.")},
	{Field: FieldDescription, Check: minLength(func(d BookDraft) string { return d.Description }, 10,
		"Description must be at least 10 characters.")},
	{Field: FieldCoverImage, Check: exactlyOne(func(d BookDraft) FileList { return d.CoverImage },
		"Cover image is required", "Select exactly one cover image")},
	{Field: FieldDocument, Check: exactlyOne(func(d BookDraft) FileList { return d.Document },
		"Book document is required", "Select exactly one book document")},
}

// Validate checks every rule and reports all failures at once.
func (s Schema) Validate(d BookDraft) ValidationResult {
	errs := make(map[string]string)
	for _, rule := range s {
		if _, failed := errs[rule.Field]; failed {
			continue
		}
		if msg := rule.Check(d); msg != "" {
			errs[rule.Field] = msg
		}
	}
	return ValidationResult{Valid: len(errs) == 0, FieldErrors: errs}
}

// Validate runs BookSchema against d.
func Validate(d BookDraft) ValidationResult {
	return BookSchema.Validate(d)
}

func minLength(get func(BookDraft) string, n int, msg string) func(BookDraft) string {
	return func(d BookDraft) string {
		if utf8.RuneCountInString(get(d)) < n {
			return msg
		}
		return ""
	}
}

func exactlyOne(get func(BookDraft) FileList, missing, many string) func(BookDraft) string {
	return func(d BookDraft) string {
		switch n := len(get(d)); {
		case n == 0:
			return missing
		case n > 1:
			return many
		default:
			return ""
		}
	}
}
