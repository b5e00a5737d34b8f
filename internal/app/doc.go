// Package app is the composition root for bookdesk.
//
// # Overview
//
// Build wires the object graph shared by the dashboard and the CLI
// commands; Run starts the dashboard on top of it.
//
//	┌──────────────┐
//	│   Build()    │
//	└──────┬───────┘
//	       ├─────> bookapi.NewClient()  HTTP adapter (base URL, timeout)
//	       ├─────> session.New()        Token store (read side) and writer
//	       ├─────> auth.NewService()    Sole holder of the writer
//	       ├─────> query.NewClient()    Query cache with the staleness window
//	       └─────> query.Books()        The "books" list query
//
//	┌──────────────┐
//	│    Run()     │
//	└──────┬───────┘
//	       ├─────> logging.SetupFile()  Logs to the configured file
//	       ├─────> prefs.Load()         Theme and last email
//	       ├─────> Build()
//	       ├─────> StartPoller()        Keeps the book list warm
//	       └─────> ui.Run()             Blocks until quit
//
// Create-book pipelines are made per form session with Deps.NewPipeline, so
// leaving the form can close its pipeline without affecting the next one.
//
// # Polling Behavior
//
// The poller refreshes the book query every refresh_interval (default 30
// seconds). Consecutive failures double the wait, capped at 30 seconds but
// never below the normal interval. The first success after a failure resets
// the count and logs a recovery line.
//
// The UI never waits on the poller: it renders query snapshots on its own
// tick.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - The log file cannot be opened
//   - The base URL is invalid
//
// Recoverable errors (logged, polling continues):
//   - Unreachable API or timeouts during background refresh
//   - Non-2xx list responses
//
// # Usage Example
//
//	cfg, _ := config.Load("")
//	if err := app.Run(ctx, app.Options{Config: cfg}); err != nil {
//		log.Fatalf("bookdesk failed: %v", err)
//	}
package app
