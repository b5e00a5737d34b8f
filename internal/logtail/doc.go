// Package logtail reads the tail of the bookdesk log file and parses its
// lines for the Logs view.
//
// # Reading Log Files
//
// Read extracts the last maxLines lines with a ring buffer, so memory stays
// O(maxLines) regardless of file size:
//
//  1. Allocate a ring of size maxLines
//  2. For each line, store it at the current index and advance modulo maxLines
//  3. Unroll the ring from the oldest slot so lines come back in order
//
// A non-positive maxLines returns the whole file. A missing file is not an
// error; the dashboard may open before anything has been logged.
//
//	lines, err := logtail.Read(cfg.LogFile, 400)
//
// # Parsing
//
// The log file is written by the logrus text formatter with full
// timestamps:
//
//	time="2024-05-01T12:00:00Z" level=info msg="book created" id=01HX title=Dune
//
// Parse splits such a line into time, level, message and the remaining
// fields. Lines that do not follow the key=value shape (panics, stray
// output) come back with only Raw and Message set, so nothing is dropped.
//
//	entries, err := logtail.Tail(cfg.LogFile, 400)
//	for _, e := range entries {
//		if e.HasLevel && e.Level <= logrus.WarnLevel {
//			// highlight
//		}
//	}
//
// Colouring is left to the UI, which owns the palette.
package logtail
