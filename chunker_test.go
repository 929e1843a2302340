package gelf

import (
	"bytes"
	"testing"
)

// datagramRecorder captures each Write call as one datagram, the way a UDP
// conn maps writes to packets.
type datagramRecorder struct {
	datagrams [][]byte
}

func (r *datagramRecorder) Write(p []byte) (int, error) {
	cp := make([]byte, len(p))
	copy(cp, p)
	r.datagrams = append(r.datagrams, cp)
	return len(p), nil
}

func TestWritePayload_SingleDatagram(t *testing.T) {
	payload := bytes.Repeat([]byte("a"), maxDatagramSize)

	rec := &datagramRecorder{}
	if err := writePayload(rec, payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rec.datagrams) != 1 {
		t.Fatalf("expected 1 datagram, got: %d", len(rec.datagrams))
	}
	if !bytes.Equal(rec.datagrams[0], payload) {
		t.Error("expected the raw payload with no chunk header")
	}
}

func TestWritePayload_Chunked(t *testing.T) {

	tests := []struct {
		name        string
		payloadLen  int
		expectTotal int
	}{
		{"just over the datagram limit", maxDatagramSize + 1, 2},
		{"two full chunks", maxChunkPayload * 2, 2},
		{"uneven split", 20_000, 3},
		{"largest shippable message", maxMessageSize, maxChunks},
	}
	for i := 0; i < len(tests); i++ {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			payload := make([]byte, tt.payloadLen)
			for j := range payload {
				payload[j] = byte(j)
			}

			rec := &datagramRecorder{}
			if err := writePayload(rec, payload); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(rec.datagrams) != tt.expectTotal {
				t.Fatalf("expected %d chunks, got: %d", tt.expectTotal, len(rec.datagrams))
			}

			var id [8]byte
			copy(id[:], rec.datagrams[0][2:10])

			var reassembled []byte
			for seq, d := range rec.datagrams {
				if len(d) > maxDatagramSize {
					t.Fatalf("chunk %d exceeds the datagram limit: %d bytes", seq, len(d))
				}
				if d[0] != chunkMagic[0] || d[1] != chunkMagic[1] {
					t.Fatalf("chunk %d missing magic bytes: % x", seq, d[:2])
				}
				if !bytes.Equal(d[2:10], id[:]) {
					t.Fatalf("chunk %d carries a different message id", seq)
				}
				if int(d[10]) != seq {
					t.Fatalf("expected ascending sequence, chunk %d has seq %d", seq, d[10])
				}
				if int(d[11]) != tt.expectTotal {
					t.Fatalf("chunk %d reports total %d, expected %d", seq, d[11], tt.expectTotal)
				}
				reassembled = append(reassembled, d[chunkHeaderSize:]...)
			}

			if !bytes.Equal(reassembled, payload) {
				t.Error("reassembled chunks do not reconstruct the payload")
			}
		})
	}
}

func TestWritePayload_FreshMessageIDPerSend(t *testing.T) {
	payload := make([]byte, maxDatagramSize+1)

	rec := &datagramRecorder{}
	if err := writePayload(rec, payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := writePayload(rec, payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, second := rec.datagrams[0][2:10], rec.datagrams[2][2:10]
	if bytes.Equal(first, second) {
		t.Error("expected a fresh message id per oversized send")
	}
}

func TestNewMessageID_Varies(t *testing.T) {
	seen := make(map[[8]byte]bool)
	for i := 0; i < 64; i++ {
		seen[newMessageID()] = true
	}
	if len(seen) != 64 {
		t.Errorf("expected 64 distinct ids, got: %d", len(seen))
	}
}
