// Package config loads bookdesk settings from a TOML file.
//
// # Resolution Order
//
// Settings are layered, later sources winning:
//
//  1. Built-in defaults (Default)
//  2. The config file: an explicit path, or ~/.config/bookdesk/config.toml
//  3. BOOKDESK_BASE_URL from the environment (a .env file is loaded into
//     the environment by the command layer before Load runs)
//  4. The --base-url flag, applied by the caller with OverrideBaseURL
//
// A missing config file is not an error. Empty or zero values in the file
// keep their defaults.
//
// # Default Values
//
//   - base_url: http://127.0.0.1:5513
//   - stale_time: 10s (how long the book list is served without refetching)
//   - request_timeout: 15s
//   - refresh_interval: 30s (background list refresh)
//   - page_size: 10
//   - log_file: ~/.local/state/bookdesk/bookdesk.log
//   - log_level: info
//
// # TOML Format
//
//	base_url = "https://books.example.com"
//	stale_time = "10s"
//	request_timeout = "15s"
//	refresh_interval = "30s"
//	page_size = 10
//	log_file = "~/.local/state/bookdesk/bookdesk.log"
//	log_level = "debug"
//
// Durations use Go duration syntax and must be positive. Tilde expansion is
// performed for the config path and log_file.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors and malformed durations
package config
