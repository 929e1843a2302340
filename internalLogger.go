package gelf

import (
	"log"
	"os"
	"sync/atomic"
)

var internalLogger atomic.Value

func init() {
	internalLogger.Store(log.New(os.Stderr, "[gelf] ", log.LstdFlags))
}

// InternalLogger returns the Logger used to write out internal logs, where
// logs get written when something goes wrong in the logging stack itself.
func InternalLogger() *log.Logger { return internalLogger.Load().(*log.Logger) }

// SetInternalLogger makes l the internal logger used for the stack's own
// diagnostics.
func SetInternalLogger(l *log.Logger) {
	internalLogger.Store(l)
}
