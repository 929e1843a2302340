package gelf

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// gelfVersion is the literal schema version written to every document.
const gelfVersion = "1.1"

// shortMessageLimit is the maximum length of `short_message`, counted in
// Unicode scalars, not bytes.
const shortMessageLimit = 80

// buildDocument maps one event through the configured formatter into the
// canonical GELF document. ok is false when the formatted message is empty,
// the sentinel for skipping the event without any I/O.
func buildDocument(ev Event, cfg *Config) (doc map[string]any, ok bool) {

	level, msg, t, fields := applyFormatter(cfg.Formatter, ev)
	if len(msg) == 0 {
		return nil, false
	}

	doc = map[string]any{
		"version":       gelfVersion,
		"host":          cfg.Hostname,
		"short_message": truncateRunes(msg, shortMessageLimit),
		"full_message":  msg,
		"timestamp":     epochSeconds(t),
		"level":         level.Code(),
		"_application":  cfg.Application,
	}

	// ordered fields give last-seen precedence on duplicate keys
	for _, f := range fields {
		if cfg.metadataSelected(f.Key) {
			doc["_"+f.Key] = stringify(f.Value)
		}
	}

	// tags merge after metadata selection and win on collision
	for k, v := range cfg.Tags {
		doc["_"+k] = v
	}

	return doc, true
}

// applyFormatter runs the configured formatter over the event tuple. A nil
// or panicking formatter resolves to the identity, so a bad custom
// formatter never surfaces to the caller.
func applyFormatter(f Formatter, ev Event) (level Severity, msg string, t time.Time, fields []Field) {
	level, msg, t, fields = ev.Level, ev.Message, ev.Time, ev.Fields
	if f == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			level, msg, t, fields = ev.Level, ev.Message, ev.Time, ev.Fields
		}
	}()

	return f(level, msg, t, fields)
}

// truncateRunes returns the first limit Unicode scalars of s.
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		// cannot have more runes than bytes
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// epochSeconds converts an event time, treated as already UTC, to seconds
// since epoch with exactly millisecond precision (3 decimal places).
func epochSeconds(t time.Time) json.Number {
	s := strconv.FormatFloat(float64(t.UnixMilli())/1e3, 'f', 3, 64)
	return json.Number(s)
}

// stringify renders a metadata value as text. Non-scalar values use their
// debug-string form, so the encoder never receives a value it cannot
// serialize.
func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
