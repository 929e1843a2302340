package gelf

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"net"
	"sync"
)

// testDatagram is one raw datagram captured by the test collector, along
// with the sender address, which identifies the worker socket it came from.
type testDatagram struct {
	from string
	data []byte
}

// chunkSet accumulates the chunks of one oversized message.
type chunkSet struct {
	total    int
	received int
	payloads [][]byte
}

// testCollector is an in-process stand-in for a Graylog UDP input. It
// reassembles chunked messages, decompresses payloads, and exposes the
// resulting JSON bodies on messageCh.
type testCollector struct {
	conn      *net.UDPConn
	port      int
	messageCh chan []byte

	mu        sync.Mutex
	datagrams []testDatagram
	sets      map[[8]byte]*chunkSet
}

func newTestCollector() (*testCollector, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		return nil, fmt.Errorf("failed to start test collector: %v", err)
	}

	c := &testCollector{
		conn:      conn,
		port:      conn.LocalAddr().(*net.UDPAddr).Port,
		messageCh: make(chan []byte, 128),
		sets:      make(map[[8]byte]*chunkSet),
	}

	go c.loop()

	return c, nil
}

func (c *testCollector) Shutdown() {
	c.conn.Close()
}

func (c *testCollector) loop() {
	buf := make([]byte, 65535)
	for {
		n, addr, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			// conn closed by Shutdown
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		c.receive(testDatagram{from: addr.String(), data: data})
	}
}

func (c *testCollector) receive(d testDatagram) {
	c.mu.Lock()
	c.datagrams = append(c.datagrams, d)
	c.mu.Unlock()

	p := d.data
	if len(p) > chunkHeaderSize && p[0] == chunkMagic[0] && p[1] == chunkMagic[1] {
		c.receiveChunk(p)
		return
	}
	c.deliver(p)
}

func (c *testCollector) receiveChunk(p []byte) {
	var id [8]byte
	copy(id[:], p[2:10])
	seq, total := int(p[10]), int(p[11])

	c.mu.Lock()
	set, ok := c.sets[id]
	if !ok {
		set = &chunkSet{total: total, payloads: make([][]byte, total)}
		c.sets[id] = set
	}
	if set.payloads[seq] == nil {
		set.payloads[seq] = p[chunkHeaderSize:]
		set.received++
	}
	done := set.received == set.total
	if done {
		delete(c.sets, id)
	}
	c.mu.Unlock()

	if done {
		c.deliver(bytes.Join(set.payloads, nil))
	}
}

// deliver decompresses one complete payload and publishes the JSON body.
// The codec is sniffed from the payload's leading bytes, the same way a
// collector distinguishes gzip, zlib, and raw bodies.
func (c *testCollector) deliver(p []byte) {
	body, err := decompressPayload(p)
	if err != nil {
		panic(fmt.Sprintf("test collector failed to decompress payload: %v", err))
	}
	c.messageCh <- body
}

func decompressPayload(p []byte) ([]byte, error) {
	switch {
	case len(p) > 1 && p[0] == 0x1f && p[1] == 0x8b:
		r, err := gzip.NewReader(bytes.NewReader(p))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case len(p) > 0 && p[0] == 0x78:
		r, err := zlib.NewReader(bytes.NewReader(p))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	default:
		return p, nil
	}
}

// senders returns the number of datagrams seen per sender address. Each
// pool worker owns one socket, so sender addresses identify workers.
func (c *testCollector) senders() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := make(map[string]int)
	for _, d := range c.datagrams {
		counts[d.from]++
	}
	return counts
}

// testSink records submitted events rather than shipping them. It
// implements the Handler's LogSink interface.
type testSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *testSink) Submit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *testSink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}
