// Package debuglog is the SDK's internal debug logger. Everything the
// delivery pipeline has to say about failures is routed here and nowhere
// else; a failure to report an error must never surface in the monitored
// application. Output is discarded until a logger is installed, which the
// client does when debug logging is enabled.
package debuglog

import (
	"io"
	"log"
	"sync"
)

var (
	logger = log.New(io.Discard, "[Checkend] ", log.LstdFlags)
	mu     sync.RWMutex
)

// SetLogger replaces the current debug logger with a new one.
// This function is thread-safe and can be called concurrently.
func SetLogger(l *log.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

func SetOutput(w io.Writer) {
	mu.RLock()
	defer mu.RUnlock()
	logger.SetOutput(w)
}

// GetLogger returns the current logger instance.
// This function is thread-safe and can be called concurrently.
func GetLogger() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Printf calls Printf on the underlying logger.
// This function is thread-safe and can be called concurrently.
func Printf(format string, args ...interface{}) {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// Println calls Println on the underlying logger.
// This function is thread-safe and can be called concurrently.
func Println(args ...interface{}) {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		l.Println(args...)
	}
}
