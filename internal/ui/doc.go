// Package ui provides the bookdesk terminal dashboard.
//
// # Architecture Overview
//
// The dashboard is a Bubble Tea program. Model holds every view's state and
// Update is the only place it changes. Network work runs in tea.Cmd
// functions and comes back as messages; the query cache and the create-book
// pipeline are shared with the CLI and own all request state.
//
// # Package Structure
//
//   - app.go: Model, Options, the message loop and Run
//   - login.go: Sign-in and registration forms
//   - books.go: Paginated book table with a detail pane
//   - create.go: Create book form driven by a mutation.Pipeline
//   - logs.go: Tail of the bookdesk log file
//   - header.go, help.go, keys.go: Chrome, key bindings and the help overlay
//   - theme.go, style_helpers.go, layout.go: Palettes and rendering helpers
//
// # Views
//
//   - Sign in / Register: shown while the session holds no token
//   - Books: the "books" query rendered by status (loading, stale, error,
//     empty, loaded)
//   - Create book: text inputs plus cover and document paths
//   - Logs: level-colored tail with follow mode
//
// # Event Flow
//
//  1. Run builds the Model and starts the program with the caller's context
//  2. A tick re-reads the books query; Read never blocks and a stale value
//     starts a background fetch picked up by a later tick
//  3. Opening the create form makes a fresh pipeline whose success callback
//     posts bookCreatedMsg on an event channel read by waitForEvent
//  4. Leaving the form cancels the request, closes the pipeline and bumps the
//     form generation so late results are ignored
//
// # Key Bindings
//
//   - r: Refresh books
//   - c: Create book
//   - j/k: Move selection
//   - n/p: Next/previous page
//   - l: Logs
//   - L: Sign out
//   - Tab/Shift+Tab: Move between form fields
//   - Enter: Next field or submit; Ctrl+S submits the create form
//   - Ctrl+R: Switch between sign in and register
//   - Space: Toggle log follow
//   - T: Cycle theme
//   - ?: Help
//   - ESC: Back
//   - q or Ctrl+C: Exit (only Ctrl+C inside forms)
//
// # Usage Example
//
//	err := ui.Run(ui.Options{
//		Context: ctx,
//		Auth:    deps.Auth,
//		Books:   deps.Books,
//		NewPipeline: func(onSuccess func(bookapi.Book)) *mutation.Pipeline {
//			return deps.NewPipeline(onSuccess, nil)
//		},
//		Config:  &cfg,
//		LogPath: cfg.LogFile,
//	})
package ui
