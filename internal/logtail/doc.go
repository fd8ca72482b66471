// Package logtail reads the tail of tarmac's JSON log for the activity pane.
//
// Read extracts the last N lines of a file in one pass with a ring buffer,
// using O(N) memory regardless of file size. Tail decodes those lines with
// Parse, which understands the zap production encoding written by the
// logging package:
//
//	{"level":"info","timestamp":"2026-03-01T10:15:00.000Z","msg":"flight deleted","id":"42"}
//
// Format renders an Entry as a single line for display:
//
//	10:15:00 INFO  flight deleted id=42
//
// Read returns nil, nil for a missing file. Lines that are not JSON are
// kept as plain messages rather than rejected.
package logtail
