// Package checkend is the Checkend error-reporting client for Go. It captures
// application faults, turns them into structured, privacy-scrubbed notices
// and delivers them to the Checkend collector over HTTP without blocking the
// reporting goroutine.
//
// Most applications construct a Client explicitly and thread it through their
// own wiring. The package-level functions bind a single process-wide client
// for hosts that want a drop-in entry point:
//
//	err := checkend.Configure(checkend.ClientOptions{APIKey: "..."})
//	...
//	checkend.Notify(ctx, err)
//	defer checkend.Stop()
package checkend

import (
	"context"
	"sync"
	"time"
)

var (
	currentMu     sync.RWMutex
	currentClient *Client
)

// Configure builds the process-wide client used by the package-level
// functions. Calling it again replaces the client; the previous one is
// stopped after draining.
func Configure(options ClientOptions) error {
	client, err := NewClient(options)
	if err != nil {
		return err
	}

	currentMu.Lock()
	previous := currentClient
	currentClient = client
	currentMu.Unlock()

	if previous != nil {
		previous.Stop()
	}
	return nil
}

// CurrentClient returns the process-wide client, or nil before Configure.
func CurrentClient() *Client {
	currentMu.RLock()
	defer currentMu.RUnlock()
	return currentClient
}

// Notify reports an error through the process-wide client. It is a no-op
// before Configure.
func Notify(ctx context.Context, err error, opts ...NoticeOptions) *NoticeID {
	client := CurrentClient()
	if client == nil {
		return nil
	}
	return client.Notify(ctx, err, opts...)
}

// NotifySync reports an error synchronously through the process-wide client.
func NotifySync(ctx context.Context, err error, opts ...NoticeOptions) Response {
	client := CurrentClient()
	if client == nil {
		return Response{StatusCode: 0, Body: "client not configured"}
	}
	return client.NotifySync(ctx, err, opts...)
}

// Recover reports a recovered panic value through the process-wide client.
func Recover(ctx context.Context, recovered interface{}) *NoticeID {
	client := CurrentClient()
	if client == nil {
		return nil
	}
	return client.Recover(ctx, recovered)
}

// Flush waits for the process-wide client's queue to drain.
func Flush(timeout time.Duration) bool {
	client := CurrentClient()
	if client == nil {
		return true
	}
	return client.Flush(timeout)
}

// Stop shuts the process-wide client down.
func Stop() {
	client := CurrentClient()
	if client != nil {
		client.Stop()
	}
}
