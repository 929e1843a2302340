package gelf

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bitdabbler/backoff"
)

// worker owns one UDP socket and drains one inbox. Workers share no mutable
// state; the Config snapshot a worker holds is immutable and replaced
// wholesale on reconfiguration.
type worker struct {
	*ClientOptions
	id         int
	slot       int
	conn       net.Conn
	cfg        *Config
	inbox      chan Event
	cfgCh      chan *Config
	failCh     chan<- int
	shutdownCh <-chan struct{}
	wg         *sync.WaitGroup
	live       *atomic.Int64
	dropped    *atomic.Uint64
	encodeErrs *atomic.Uint64
}

// Client is a pool of UDP transport workers fed by a round-robin balancer.
// Each worker owns exactly one socket, opened once and reused until the
// worker is replaced. Client implements LogSink.
type Client struct {
	opts *ClientOptions
	cfg  atomic.Pointer[Config]

	// inboxes is the fixed arena of worker slots. Replacing a worker swaps
	// the goroutine and socket behind a slot, never the inbox itself, so
	// events queued during the replace window survive.
	inboxes []chan Event
	cfgChs  []chan *Config

	failCh       chan int
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	wg           *sync.WaitGroup

	// workers holds the current handle for each slot; only the supervisor
	// replaces entries after construction
	mu      sync.Mutex
	workers []*worker

	cursor     atomic.Uint64
	nextID     atomic.Int64
	live       atomic.Int64
	dropped    atomic.Uint64
	encodeErrs atomic.Uint64
}

// compile-time check that the Client satisfies the sink contract
var _ LogSink = (*Client)(nil)

// NewClient creates a new GELF client pool and opens every worker socket
// immediately, returning an error if any socket cannot be opened. That is
// the only unrecoverable initialization failure; after construction, socket
// errors are handled by worker replacement.
func NewClient(cfg *Config, opts *ClientOptions) (*Client, error) {

	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg.resolve()
	}

	if opts == nil {
		opts = DefaultClientOptions()
	} else {
		opts.resolve()
	}

	c := &Client{
		opts:       opts,
		inboxes:    make([]chan Event, opts.PoolSize),
		cfgChs:     make([]chan *Config, opts.PoolSize),
		failCh:     make(chan int, opts.PoolSize),
		shutdownCh: make(chan struct{}),
		wg:         &sync.WaitGroup{},
		workers:    make([]*worker, opts.PoolSize),
	}
	c.cfg.Store(cfg)

	c.debug("starting Client with the resolved ClientOptions: %+v", c.opts)

	for i := 0; i < opts.PoolSize; i++ {
		c.inboxes[i] = make(chan Event, opts.QueueDepth)
		c.cfgChs[i] = make(chan *Config, 1)
	}

	// eagerly open every worker socket
	for i := 0; i < opts.PoolSize; i++ {
		conn, err := openConn(cfg.addr(), opts.DialTimeout)
		if err != nil {
			// will drop the client, so eagerly stop started workers
			close(c.shutdownCh)
			for j := 0; j < i; j++ {
				close(c.inboxes[j])
			}
			return nil, err
		}
		w := c.newWorker(i, cfg, conn)
		c.workers[i] = w
		c.wg.Add(1)
		go w.run()
	}

	// the supervisor shares the pool WaitGroup, so the group never drains
	// while replacements can still be spawned
	c.wg.Add(1)
	go c.supervise()

	return c, nil
}

func (c *Client) newWorker(slot int, cfg *Config, conn net.Conn) *worker {
	return &worker{
		ClientOptions: c.opts,
		id:            int(c.nextID.Add(1)),
		slot:          slot,
		conn:          conn,
		cfg:           cfg,
		inbox:         c.inboxes[slot],
		cfgCh:         c.cfgChs[slot],
		failCh:        c.failCh,
		shutdownCh:    c.shutdownCh,
		wg:            c.wg,
		live:          &c.live,
		dropped:       &c.dropped,
		encodeErrs:    &c.encodeErrs,
	}
}

// openConn opens one UDP socket to the collector. For UDP the dial timeout
// effectively bounds name resolution.
func openConn(addr string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial collector at %s: %w", addr, err)
	}
	return conn, nil
}

// Submit places the event into the inbox of the next worker in the
// round-robin rotation and returns without waiting on network I/O.
//
// This operation is async/non-blocking except when the chosen worker's
// inbox is full and DropIfQueueFull is false, in which case it blocks until
// the inbox can receive the event.
//
// Submit must not be called after Shutdown.
func (c *Client) Submit(ev Event) {
	i := c.cursor.Add(1) - 1
	inbox := c.inboxes[int(i%uint64(len(c.inboxes)))]

	if c.opts.DropIfQueueFull {
		select {
		case inbox <- ev:
		default:
			c.debug("full inbox: dropping event: queue depth: %d", c.opts.QueueDepth)
		}
	} else {
		// otherwise block if the inbox is full
		inbox <- ev
	}
}

// Reconfigure replaces the Config snapshot and broadcasts it to every
// worker. Each worker closes its existing socket and reopens it against the
// new endpoint; in-flight sends on the old socket may be lost, as
// reconfiguration is not transactional with respect to outstanding sends.
func (c *Client) Reconfigure(cfg *Config) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg.resolve()
	}
	c.cfg.Store(cfg)

	for _, ch := range c.cfgChs {
		ch <- cfg
	}
}

// workerAt returns the current handle for a slot.
func (c *Client) workerAt(slot int) *worker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.workers[slot]
}

// Dropped reports the number of events discarded because their compressed
// payload exceeded the maximum shippable message size.
func (c *Client) Dropped() uint64 { return c.dropped.Load() }

// EncodeErrors reports the number of events lost to serialization or
// compression failures.
func (c *Client) EncodeErrors() uint64 { return c.encodeErrs.Load() }

// Shutdown is used to support graceful shutdown. It closes the worker
// inboxes, so any further calls to Submit will panic. Shutdown blocks until
// the inboxes are fully drained and all worker goroutines have stopped, or
// the context expires, whichever occurs first.
func (c *Client) Shutdown(ctx context.Context) error {
	c.shutdownOnce.Do(func() {
		close(c.shutdownCh)
		for _, ch := range c.inboxes {
			close(ch)
		}
	})
	c.debug("inboxes closed; writing out previously enqueued events")

	doneCh := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-doneCh:
		c.debug("inboxes successfully drained")
		return nil
	}
}

// supervise keeps the pool at its configured size. Every worker failure
// arrives as a slot index; the supervisor reopens a socket for the slot,
// retrying with exponential backoff, and starts a fresh worker holding the
// current Config snapshot on the slot's existing inbox.
func (c *Client) supervise() {
	defer c.wg.Done()

	for {
		select {
		case <-c.shutdownCh:
			return
		case slot := <-c.failCh:
			c.replace(slot)
		}
	}
}

func (c *Client) replace(slot int) {
	b, err := backoff.New(
		backoff.WithInitialDelay(0),
		backoff.WithExponentialLimit(time.Second*20),
	)
	if err != nil {
		InternalLogger().Printf("failed to create replacement backoff: %v", err)
	}

	for {
		select {
		case <-c.shutdownCh:
			return
		default:
		}

		cfg := c.cfg.Load()
		conn, err := openConn(cfg.addr(), c.opts.DialTimeout)
		if err == nil {
			w := c.newWorker(slot, cfg, conn)
			c.mu.Lock()
			c.workers[slot] = w
			c.mu.Unlock()
			c.wg.Add(1)
			go w.run()
			c.debug("replaced worker in slot %d", slot)
			return
		}

		c.debug("failed to reopen socket for slot %d: %v", slot, err)
		if b != nil {
			b.Sleep()
		} else {
			time.Sleep(time.Second)
		}
	}
}

func (w *worker) run() {
	defer w.wg.Done()

	w.live.Add(1)
	defer w.live.Add(-1)

	w.debug("starting on slot %d", w.slot)

	for {
		select {
		case cfg := <-w.cfgCh:
			if err := w.applyConfig(cfg); err != nil {
				w.fail(err)
				return
			}
		case ev, ok := <-w.inbox:
			if !ok {
				w.debug("inbox drained; closing socket and returning")
				w.conn.Close()
				return
			}
			if err := w.send(ev); err != nil {
				w.fail(err)
				return
			}
		}
	}
}

// send runs one event through the full pipeline: document building,
// serialization, compression, and transport. Only a transport error is
// returned; encoding and compression failures, skips, and oversized drops
// are fatal for the single event at most.
func (w *worker) send(ev Event) error {

	doc, ok := buildDocument(ev, w.cfg)
	if !ok {
		// empty formatted message is the skip sentinel
		w.debug("skipping event with empty formatted message")
		return nil
	}

	raw, err := w.cfg.Encoder.Encode(doc)
	if err != nil {
		w.encodeErrs.Add(1)
		w.reportError("failed to encode document: %v", err)
		return nil
	}

	payload, err := compress(raw, w.cfg.Compression)
	if err != nil {
		w.encodeErrs.Add(1)
		w.reportError("failed to compress payload: %v", err)
		return nil
	}

	if len(payload) == 0 {
		return nil
	}

	if len(payload) > maxMessageSize {
		w.dropped.Add(1)
		w.debug("dropping oversized payload: %d bytes (max %d)", len(payload), maxMessageSize)
		return nil
	}

	return writePayload(w.conn, payload)
}

// applyConfig swaps the worker's Config snapshot, closing the current
// socket and opening a fresh one against the new endpoint.
func (w *worker) applyConfig(cfg *Config) error {
	w.debug("applying new Config; reopening socket")

	w.conn.Close()
	conn, err := openConn(cfg.addr(), w.DialTimeout)
	if err != nil {
		return fmt.Errorf("failed to reopen socket after reconfigure: %w", err)
	}

	w.conn = conn
	w.cfg = cfg
	return nil
}

// fail tears the worker down after a fatal transport error and signals the
// supervisor to replace it. The event being sent when the error occurred is
// lost; delivery is at most once.
func (w *worker) fail(err error) {
	w.reportError("fatal: %v", err)
	w.conn.Close()

	select {
	case w.failCh <- w.slot:
	case <-w.shutdownCh:
	}
}

// internal logging helpers:
func (c *Client) debug(format string, args ...any) {
	if !c.opts.Verbose {
		return
	}
	InternalLogger().Printf(format, args...)
}

func (w *worker) debug(format string, args ...any) {
	if !w.Verbose {
		return
	}
	args = append([]any{w.id}, args...)
	InternalLogger().Printf("worker %d: "+format, args...)
}

func (w *worker) reportError(format string, args ...any) {
	args = append([]any{w.id}, args...)
	InternalLogger().Printf("worker %d: "+format, args...)
}
