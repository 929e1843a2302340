package gelf

import "time"

// Field is a single metadata key/value pair attached to an Event. Events
// carry fields as an ordered slice rather than a map, so that duplicate
// keys resolve with last-seen precedence during document building.
type Field struct {
	Key   string
	Value any
}

// Event is one normalized log event handed to the shipping pipeline. Events
// are produced by the caller, treated as immutable, and consumed once.
type Event struct {
	Level   Severity
	Message string
	Time    time.Time
	Fields  []Field
}

// Formatter rewrites an event before it is rendered into a GELF document.
// Implementations receive and return the full event tuple. A nil Formatter
// is the identity. A Formatter that panics is ignored for that event and
// the unformatted event is shipped instead.
type Formatter func(level Severity, message string, t time.Time, fields []Field) (Severity, string, time.Time, []Field)

// LogSink accepts events from whatever owns the logging pipeline. Client
// implements LogSink; the slog Handler submits through it.
type LogSink interface {
	Submit(Event)
}
