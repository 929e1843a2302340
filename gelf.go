/*
Package gelf provides a full GELF (Graylog Extended Log Format) shipping
stack in Go, including:

  - `gelf.Client` - a pool of UDP workers that build, compress, chunk, and
    send GELF documents to a collector
  - `gelf.Handler` - serializes structured logs (implements `slog.Handler`)
    by translating records into `gelf.Event` values submitted to a `LogSink`
  - `gelf.Config` - an immutable snapshot of the collector endpoint and
    document-shaping options, shared read-only by all workers

The stack is optimized for a non-blocking producer path:

  - dispatch is an asynchronous enqueue into a worker inbox; the caller
    never waits on network I/O
  - each worker owns exactly one UDP socket, so no locking is needed on the
    send path and chunk sequences are never interleaved
  - a supervisor replaces failed workers with fresh ones holding the
    current Config snapshot, keeping the pool at its configured size
  - oversized payloads are dropped rather than allowed to destabilize the
    pool, surfaced through a counter and the internal logger
*/
package gelf
