package checkend

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/checkend/checkend-go/internal/debuglog"
)

// Client owns a configured delivery pipeline: transport, background worker and
// notice builder. Construct one per application; its lifetime is owned by the
// caller, and Stop must be called before process exit to drain pending
// notices.
type Client struct {
	options   ClientOptions
	transport Transport
	worker    *Worker
	builder   noticeBuilder
}

// NewClient validates and defaults options and starts the background worker.
func NewClient(options ClientOptions) (*Client, error) {
	options, err := options.withDefaults()
	if err != nil {
		return nil, err
	}

	if options.Debug {
		writer := options.DebugWriter
		if writer == nil {
			writer = os.Stderr
		}
		debuglog.SetLogger(log.New(writer, "[Checkend] ", log.LstdFlags))
	}

	transport := options.Transport
	if transport == nil {
		transport = newHTTPTransport(options)
	}

	client := &Client{
		options:   options,
		transport: transport,
		worker:    NewWorker(transport, options.MaxQueueSize, options.ShutdownTimeout),
		builder:   noticeBuilder{options: options},
	}

	debuglog.Printf("Configured with endpoint: %s\n", options.Endpoint)
	return client, nil
}

// Notify reports an error asynchronously. It returns the local ID of the
// enqueued notice, or nil when the notice was dropped (client disabled, error
// ignored, filtered by a BeforeNotify callback, or queue full). Notify never
// blocks and never panics; a failure to report an error must not become a
// second fault in the monitored application.
func (c *Client) Notify(ctx context.Context, err error, opts ...NoticeOptions) *NoticeID {
	notice := c.prepare(ctx, err, opts)
	if notice == nil {
		return nil
	}

	if c.options.SyncSend {
		response := c.transport.Send(notice)
		if !response.IsSuccess() {
			return nil
		}
		return &notice.ID
	}

	if !c.worker.Enqueue(notice) {
		return nil
	}
	return &notice.ID
}

// NotifySync reports an error on the calling goroutine and returns the
// collector's response. Dropped notices yield a Response with StatusCode 0
// and the drop reason as Body.
func (c *Client) NotifySync(ctx context.Context, err error, opts ...NoticeOptions) Response {
	if err == nil {
		return Response{StatusCode: 0, Body: "nil error"}
	}
	if c.options.Disabled {
		return Response{StatusCode: 0, Body: "client disabled"}
	}
	if shouldIgnore(err, c.options.IgnoreErrors) {
		return Response{StatusCode: 0, Body: "error ignored"}
	}

	notice := c.builder.build(ctx, err, mergeOpts(opts))
	if notice = c.runBeforeNotify(notice); notice == nil {
		return Response{StatusCode: 0, Body: "filtered by BeforeNotify"}
	}

	return c.transport.Send(notice)
}

// Recover reports a recovered panic value. Use it from a deferred function:
//
//	defer func() {
//		if v := recover(); v != nil {
//			client.Recover(ctx, v)
//			panic(v)
//		}
//	}()
func (c *Client) Recover(ctx context.Context, recovered interface{}) *NoticeID {
	if recovered == nil {
		return nil
	}
	err, ok := recovered.(error)
	if !ok {
		err = fmt.Errorf("panic: %v", recovered)
	}
	return c.Notify(ctx, err)
}

// Flush blocks until the pending queue drains or the timeout elapses and
// reports whether it drained.
func (c *Client) Flush(timeout time.Duration) bool {
	return c.worker.Flush(timeout)
}

// Stop shuts the delivery pipeline down. The client cannot be restarted.
func (c *Client) Stop() {
	c.worker.Stop()
}

// Options returns the client's effective configuration.
func (c *Client) Options() ClientOptions {
	return c.options
}

// Worker exposes the delivery worker for introspection (queue size, throttle
// delay, rate-limit state).
func (c *Client) Worker() *Worker {
	return c.worker
}

func (c *Client) prepare(ctx context.Context, err error, opts []NoticeOptions) *Notice {
	if err == nil || c.options.Disabled {
		return nil
	}
	if shouldIgnore(err, c.options.IgnoreErrors) {
		debuglog.Printf("Ignoring error: %s\n", errorTypeName(err))
		return nil
	}
	return c.runBeforeNotify(c.builder.build(ctx, err, mergeOpts(opts)))
}

func (c *Client) runBeforeNotify(notice *Notice) *Notice {
	for _, callback := range c.options.BeforeNotify {
		if notice = callback(notice); notice == nil {
			debuglog.Println("Notice filtered by BeforeNotify callback")
			return nil
		}
	}
	return notice
}

func mergeOpts(opts []NoticeOptions) NoticeOptions {
	var merged NoticeOptions
	for _, o := range opts {
		if o.Fingerprint != "" {
			merged.Fingerprint = o.Fingerprint
		}
		merged.Tags = append(merged.Tags, o.Tags...)
		merged.Context = mergeMap(merged.Context, o.Context)
		merged.Request = mergeMap(merged.Request, o.Request)
		merged.User = mergeMap(merged.User, o.User)
	}
	return merged
}

func mergeMap(dst, src map[string]interface{}) map[string]interface{} {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]interface{}, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
