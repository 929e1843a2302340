package gelf

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Compression selects the codec applied to the serialized GELF document
// before transport. The zero value is gzip, the GELF default.
type Compression int

const (
	// CompressionGzip compresses payloads with gzip (the default).
	CompressionGzip Compression = iota

	// CompressionZlib compresses payloads with zlib.
	CompressionZlib

	// CompressionNone sends the raw serialized document.
	CompressionNone
)

// Config is the immutable snapshot of collector endpoint and
// document-shaping options shared read-only by all pool workers. Replacing
// the snapshot via Client.Reconfigure closes and reopens every worker
// socket; a Config is never mutated in place.
//
// # Invalid options are coerced
//
// NB: The struct pointer options approach is used to be consistent with the
// `HandlerOptions` style used by log/slog.
type Config struct {

	// Host is the collector host. The default is "127.0.0.1".
	Host string

	// Port is the collector port. The default is 12201, the standard GELF
	// UDP port. Configuration surfaces that carry the port as a decimal
	// string can convert it with ParsePort.
	Port int

	// Application is written to the `_application` field of every document.
	// The default is the base name of the running executable.
	Application string

	// Hostname overrides the `host` field of every document. The default is
	// the local host name reported by the operating system.
	Hostname string

	// Compression selects gzip (default), zlib, or none. Unknown values are
	// coerced to none.
	Compression Compression

	// MetadataKeys selects which event fields are included as `_`-prefixed
	// document entries. A nil slice selects all fields. Reserved internal
	// keys (crash_reason, ancestors, callers) are always excluded.
	MetadataKeys []string

	// Tags are static key/value pairs merged into every document after
	// metadata selection, taking precedence on key collision.
	Tags map[string]string

	// Encoder renders the document to bytes. The default is JSONEncoder.
	Encoder Encoder

	// Formatter rewrites each event before document building. The default
	// is the identity.
	Formatter Formatter
}

const (
	defaultHost = "127.0.0.1"
	defaultPort = 12201
)

// DefaultConfig returns a *Config with all default values.
func DefaultConfig() *Config {
	c := &Config{}
	c.resolve()
	return c
}

// resolve ensures that all options have valid values.
func (c *Config) resolve() {

	if len(c.Host) == 0 {
		c.Host = defaultHost
	}

	// constrain to valid range
	if c.Port < 1 || c.Port > 65535 {
		c.Port = defaultPort
	}

	if len(c.Application) == 0 {
		c.Application = filepath.Base(os.Args[0])
	}

	if len(c.Hostname) == 0 {
		h, err := os.Hostname()
		if err != nil {
			h = "localhost"
		}
		c.Hostname = h
	}

	// only gzip, zlib, or none; anything else means none
	if c.Compression < CompressionGzip || c.Compression > CompressionNone {
		c.Compression = CompressionNone
	}

	if c.Encoder == nil {
		c.Encoder = JSONEncoder{}
	}
}

// addr composes the collector address in the format used by dialers.
func (c *Config) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// metadataSelected reports whether the field key passes the MetadataKeys
// selection. Reserved keys never pass.
func (c *Config) metadataSelected(key string) bool {
	if reservedKeys[key] {
		return false
	}
	if c.MetadataKeys == nil {
		return true
	}
	for _, k := range c.MetadataKeys {
		if k == key {
			return true
		}
	}
	return false
}

// reservedKeys are internal metadata keys excluded from every document.
var reservedKeys = map[string]bool{
	"crash_reason": true,
	"ancestors":    true,
	"callers":      true,
}

// ParsePort converts a configuration port value in numeric or
// decimal-string form into a port number. String values must parse as an
// unsigned integer.
func ParsePort(v any) (int, error) {
	switch p := v.(type) {
	case int:
		return p, nil
	case int64:
		return int(p), nil
	case uint16:
		return int(p), nil
	case string:
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return 0, fmt.Errorf("invalid port value %q: %w", p, err)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("unsupported port type %T", v)
	}
}
