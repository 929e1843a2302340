package gelf

import (
	"fmt"
	"io"

	"github.com/google/uuid"
)

const (
	// maxDatagramSize is the largest payload sent as a single datagram.
	maxDatagramSize = 8192

	// chunkHeaderSize is the fixed chunk header: 2 magic bytes, an 8-byte
	// message id, a sequence byte, and a total byte.
	chunkHeaderSize = 12

	// maxChunkPayload is the payload capacity of one chunk datagram.
	maxChunkPayload = maxDatagramSize - chunkHeaderSize

	// maxChunks is the GELF protocol ceiling on chunks per message; the
	// total count must fit in one byte and collectors cap it at 128.
	maxChunks = 128

	// maxMessageSize is the largest compressed payload that can be shipped
	// at all (maxChunks * maxChunkPayload).
	maxMessageSize = maxChunks * maxChunkPayload
)

// chunkMagic marks a datagram as one chunk of a larger GELF message.
var chunkMagic = [2]byte{0x1e, 0x0f}

// newMessageID returns the 8 random bytes shared by all chunks of one
// message. Collision resistance, not cryptographic strength, is what
// matters here; a collision is a non-fatal reassembly risk on the receiver.
func newMessageID() (id [8]byte) {
	u := uuid.New()
	copy(id[:], u[:8])
	return id
}

// writePayload sends one compressed payload to the collector, either as a
// single datagram or as an ascending chunk sequence sharing a fresh message
// id. Each Write call maps to exactly one datagram on a UDP conn. Chunks
// are sent strictly sequentially, so two chunk sets are never interleaved
// on one socket.
//
// The caller is responsible for the empty-payload and oversized-payload
// policies; writePayload assumes 0 < len(p) <= maxMessageSize.
func writePayload(w io.Writer, p []byte) error {

	if len(p) <= maxDatagramSize {
		if _, err := w.Write(p); err != nil {
			return fmt.Errorf("failed to send datagram: %w", err)
		}
		return nil
	}

	total := (len(p) + maxChunkPayload - 1) / maxChunkPayload
	id := newMessageID()

	buf := make([]byte, 0, maxDatagramSize)
	for seq := 0; seq < total; seq++ {
		buf = buf[:0]
		buf = append(buf, chunkMagic[0], chunkMagic[1])
		buf = append(buf, id[:]...)
		buf = append(buf, byte(seq), byte(total))

		start := seq * maxChunkPayload
		end := start + maxChunkPayload
		if end > len(p) {
			end = len(p)
		}
		buf = append(buf, p[start:end]...)

		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("failed to send chunk %d/%d: %w", seq, total, err)
		}
	}

	return nil
}
