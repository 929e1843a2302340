package gelf

import "time"

// ClientOptions are used to customize the pool mechanics of the Client.
// Endpoint and document-shaping options live in Config, which can be
// replaced at runtime; ClientOptions are fixed at construction.
//
// # Invalid options are coerced
//
// NB: The struct pointer options approach is used to be consistent with the
// `HandlerOptions` style used by log/slog.
type ClientOptions struct {

	// PoolSize controls the number of transport workers the Client will
	// spin up. Each worker owns one UDP socket and drains its own inbox.
	// The default is 1.
	PoolSize int

	// QueueDepth sets the inbox capacity of each worker. Submitting to a
	// worker whose inbox is full blocks the producer unless
	// DropIfQueueFull is set. The default is 64.
	QueueDepth int

	// DropIfQueueFull controls how events are handled when a worker inbox
	// is full. The default is to block the producer until the inbox can
	// receive the event. With this option enabled, overflow events are
	// dropped to the floor, trading log completeness for a producer path
	// that never blocks.
	DropIfQueueFull bool

	// DialTimeout sets the timeout for opening a worker socket, which for
	// UDP covers name resolution. The default is 30s.
	DialTimeout time.Duration

	// Verbose controls whether debug logs are written to the internal
	// logger.
	Verbose bool
}

const (
	defaultPoolSize    = 1
	defaultQueueDepth  = 64
	defaultDialTimeout = time.Second * 30
)

// DefaultClientOptions returns *ClientOptions with all default values.
func DefaultClientOptions() *ClientOptions {
	return &ClientOptions{
		PoolSize:    defaultPoolSize,
		QueueDepth:  defaultQueueDepth,
		DialTimeout: defaultDialTimeout,
	}
}

// resolve ensures that all options have valid values.
func (o *ClientOptions) resolve() {

	// must have at least one worker
	if o.PoolSize < 1 {
		o.PoolSize = defaultPoolSize
	}

	// must be positive
	if o.QueueDepth < 1 {
		o.QueueDepth = defaultQueueDepth
	}

	// must be positive
	if o.DialTimeout < 1 {
		o.DialTimeout = defaultDialTimeout
	}
}
