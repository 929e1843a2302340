package gelf

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

// Handler is an adapter that translates Go structured logs into gelf.Event
// values submitted to a LogSink, normally a gelf.Client.
//
//	// Example of basic usage
//	h, err := gelf.NewHandler(&gelf.Config{Host: collectorHost}, nil)
//	if err != nil {
//	   log.Fatalln(err)
//	}
//
//	logger := slog.New(h)
//	slog.SetDefault(logger)
//
//	slog.Info("unrecognized user", "user_id", userID)
type Handler struct {
	*HandlerOptions
	sink LogSink

	// prefix is the dotted path of open groups; fields are the attrs
	// accumulated by WithAttrs, already prefixed
	prefix string
	fields []Field
}

// compile-time check for slog.Handler conformance
var _ slog.Handler = (*Handler)(nil)

// NewHandler creates a Handler backed by a new Client with default pool
// options. For complete control over the Client, construct it separately
// and use NewHandlerCustom.
func NewHandler(cfg *Config, opts *HandlerOptions) (*Handler, error) {
	c, err := NewClient(cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create gelf.NewClient: %w", err)
	}
	return NewHandlerCustom(c, opts), nil
}

// NewHandlerCustom creates a Handler that submits events to a caller-owned
// sink.
func NewHandlerCustom(sink LogSink, opts *HandlerOptions) *Handler {
	if opts == nil {
		opts = DefaultHandlerOptions()
	} else {
		opts.resolve()
	}

	return &Handler{
		HandlerOptions: opts,
		sink:           sink,
	}
}

// Enabled reports whether the handler handles records at the given level.
// The handler ignores records whose level is lower.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.Level.Level()
}

// Handle translates the Record into an Event and submits it to the sink.
// The producer path never blocks on network I/O; the sink enqueues the
// event for a pool worker.
//
// Handler rules observed:
//   - If r.Time is the zero time, time.Now() is used as a reasonable
//     fallback rather than omitting the timestamp, which GELF requires.
//   - Attr values are resolved.
//   - Attrs with zero key and value are ignored.
//   - Groups with empty keys are inlined; empty groups are ignored.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {

	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}

	fields := make([]Field, len(h.fields), len(h.fields)+r.NumAttrs()+1)
	copy(fields, h.fields)

	if h.AddSource && r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		fields = append(fields, Field{Key: "source", Value: fmt.Sprintf("%s:%d", f.File, f.Line)})
	}

	r.Attrs(func(attr slog.Attr) bool {
		fields = h.appendAttr(fields, h.prefix, attr)
		return true
	})

	h.sink.Submit(Event{
		Level:   severityFromLevel(r.Level),
		Message: r.Message,
		Time:    t,
		Fields:  fields,
	})

	return nil
}

// WithAttrs returns a new Handler whose fields consist of both the
// receiver's fields and the arguments, flattened under the current group
// prefix.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	h2 := *h
	h2.fields = make([]Field, len(h.fields), len(h.fields)+len(attrs))
	copy(h2.fields, h.fields)
	for _, a := range attrs {
		h2.fields = h2.appendAttr(h2.fields, h2.prefix, a)
	}

	if len(h2.fields) == len(h.fields) {
		return h
	}
	return &h2
}

// WithGroup returns a new Handler with the given group appended to the
// receiver's group path. Grouped attr keys are flattened into dotted field
// names, since GELF documents carry a single flat `_`-prefixed namespace.
func (h *Handler) WithGroup(name string) slog.Handler {
	// rule: ignore if name is empty
	if len(name) == 0 {
		return h
	}

	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

func (h *Handler) appendAttr(fields []Field, prefix string, a slog.Attr) []Field {

	// rule: must first resolve, and then ignore if empty
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return fields
	}

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()

		// rule: ignore empty groups entirely
		if len(group) == 0 {
			return fields
		}

		// rule: inline attrs if the group key is empty
		p := prefix
		if len(a.Key) > 0 {
			p = p + a.Key + "."
		}
		for _, ga := range group {
			fields = h.appendAttr(fields, p, ga)
		}
		return fields
	}

	// rule: ignore non-group attrs with empty keys
	if len(a.Key) == 0 {
		return fields
	}

	var v any
	if a.Value.Kind() == slog.KindTime {
		v = a.Value.Time().Format(h.TimeFormat)
	} else {
		v = a.Value.Any()
	}

	return append(fields, Field{Key: prefix + a.Key, Value: v})
}

// severityFromLevel maps slog levels onto the syslog severity ladder.
// Custom levels above slog.LevelError map to Critical.
func severityFromLevel(l slog.Level) Severity {
	switch {
	case l < slog.LevelInfo:
		return Debug
	case l < slog.LevelWarn:
		return Info
	case l < slog.LevelError:
		return Warning
	case l < slog.LevelError+4:
		return Error
	default:
		return Critical
	}
}
