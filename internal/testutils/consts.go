package testutils

import (
	"os"
	"testing"
	"time"
)

func IsCI() bool {
	return os.Getenv("CI") != ""
}

func FlushTimeout() time.Duration {
	if IsCI() {
		// CI is very overloaded so we need to allow for a long wait time.
		return 5 * time.Second
	}

	return time.Second
}

// WaitUntil polls condition every 10ms until it holds or the timeout elapses.
func WaitUntil(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return condition()
}
