// Package logtail reads the end of the viewer's log file for the in-app log
// panel.
//
// Read keeps a ring buffer of maxLines entries, so memory stays bounded by
// the requested tail rather than the file size. A missing file is not an
// error: the panel simply shows nothing until the first line is written.
//
// Parse and Entry.Format turn the structured JSON lines written by the
// logging package into a compact single-line form:
//
//	15:04:05 WRN [poller] row count refresh failed error=timeout failures=2
//
// Lines that are not JSON pass through unchanged.
package logtail
