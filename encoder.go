package gelf

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"encoding/json"
	"fmt"
)

// Encoder renders a GELF document to bytes. The GELF wire body is JSON, so
// alternative implementations are expected to produce JSON as well; the
// capability exists so callers can substitute a faster or stricter encoder.
type Encoder interface {
	Encode(doc map[string]any) ([]byte, error)
}

// JSONEncoder is the default Encoder, backed by encoding/json.
type JSONEncoder struct{}

// Encode implements Encoder.
func (JSONEncoder) Encode(doc map[string]any) ([]byte, error) {
	return json.Marshal(doc)
}

// compress applies the configured codec to a serialized document. The
// output is round-trip compatible with standard gunzip/inflate tooling on
// the collector side. CompressionNone is a pass-through.
func compress(p []byte, mode Compression) ([]byte, error) {
	if mode == CompressionNone {
		return p, nil
	}

	var buf bytes.Buffer
	switch mode {
	case CompressionGzip:
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(p); err != nil {
			return nil, fmt.Errorf("failed to gzip payload: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("failed to finalize gzip payload: %w", err)
		}
	case CompressionZlib:
		w := zlib.NewWriter(&buf)
		if _, err := w.Write(p); err != nil {
			return nil, fmt.Errorf("failed to zlib payload: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("failed to finalize zlib payload: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported compression mode: %d", mode)
	}

	return buf.Bytes(), nil
}
