package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/five82/bookdesk/internal/form"
	"github.com/five82/bookdesk/internal/mutation"
)

// EnvToken supplies the access token for books create.
const EnvToken = "BOOKDESK_TOKEN"

func newBooksCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "List and create books",
	}
	cmd.AddCommand(newBooksListCmd(flags), newBooksCreateCmd(flags))
	return cmd
}

func newBooksListCmd(flags *globalFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the book catalog",
		Example: `  bookdesk books list
  bookdesk books list -o yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(output)
			if err != nil {
				return err
			}
			deps, err := flags.deps(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()

			books, err := deps.Books.Fetch(cmd.Context())
			if err != nil {
				return fmt.Errorf("list books: %w", err)
			}
			return writeBooks(cmd.OutOrStdout(), format, books)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", string(formatTable), "output format: table, json, yaml")
	return cmd
}

type createFlags struct {
	title       string
	genre       string
	description string
	covers      []string
	documents   []string
	token       string
	email       string
	password    string
	output      string
}

func newBooksCreateCmd(flags *globalFlags) *cobra.Command {
	var f createFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a book with a cover image and a document",
		Long: `Create validates the input, uploads it as multipart form data and prints
the created book. Authenticate with --token (or ` + EnvToken + `), or with
--email and --password to sign in first.`,
		Example: `  bookdesk books create --title Dune --genre Sci-Fi \
    --description "A desert planet saga." \
    --cover dune.png --document dune.pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(f.output)
			if err != nil {
				return err
			}
			deps, err := flags.deps(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()

			ctx := cmd.Context()
			switch token := firstNonEmpty(f.token, os.Getenv(EnvToken)); {
			case token != "":
				if err := deps.Auth.Resume(token); err != nil {
					return err
				}
			case f.email != "":
				if err := deps.Auth.Login(ctx, f.email, f.password); err != nil {
					return fmt.Errorf("login: %w", err)
				}
			}

			draft := form.BookDraft{
				Title:       f.title,
				Genre:       f.genre,
				Description: f.description,
				CoverImage:  pathsToFiles(f.covers),
				Document:    pathsToFiles(f.documents),
			}
			st, err := deps.NewPipeline(nil, nil).Submit(ctx, draft)
			if err != nil {
				reportFailure(cmd.ErrOrStderr(), st)
				return fmt.Errorf("create book: %w", err)
			}
			return writeBook(cmd.OutOrStdout(), format, *st.Book)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.title, "title", "", "book title")
	fl.StringVar(&f.genre, "genre", "", "book genre")
	fl.StringVar(&f.description, "description", "", "book description")
	fl.StringArrayVar(&f.covers, "cover", nil, "cover image file")
	fl.StringArrayVar(&f.documents, "document", nil, "book document file")
	fl.StringVar(&f.token, "token", "", "access token (default $"+EnvToken+")")
	fl.StringVar(&f.email, "email", "", "sign in with this email before creating")
	fl.StringVar(&f.password, "password", "", "password for --email")
	fl.StringVarP(&f.output, "output", "o", string(formatTable), "output format: table, json, yaml")
	cmd.MarkFlagsRequiredTogether("email", "password")
	return cmd
}

func pathsToFiles(paths []string) form.FileList {
	var out form.FileList
	for _, p := range paths {
		out = append(out, form.ParsePaths(p)...)
	}
	return out
}

func reportFailure(w io.Writer, st mutation.State) {
	if st.Err == nil {
		return
	}
	fmt.Fprintln(w, st.Err.Message)
	result := form.ValidationResult{FieldErrors: st.Err.FieldErrors}
	for _, field := range result.Fields() {
		fmt.Fprintf(w, "  %s: %s\n", field, st.Err.FieldErrors[field])
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

var errUnknownFormat = errors.New("unknown output format")
