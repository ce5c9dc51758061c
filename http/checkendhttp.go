// Package checkendhttp provides net/http middleware that reports panics to
// Checkend and attaches per-request report data to the request context.
package checkendhttp

import (
	"context"
	"net/http"
	"time"

	checkend "github.com/checkend/checkend-go"
)

// Handler wraps http.Handler values with Checkend panic reporting.
type Handler struct {
	repanic         bool
	waitForDelivery bool
	timeout         time.Duration
}

// Options configure a Handler.
type Options struct {
	// Repanic configures whether to panic again after reporting. Enable it
	// when an upstream recovery middleware still has to run.
	Repanic bool
	// WaitForDelivery configures whether to block the request until the
	// reported panic has been flushed to the collector.
	WaitForDelivery bool
	// Timeout for the delivery wait. Defaults to 2 seconds.
	Timeout time.Duration
}

// New constructs a Handler with the given options.
func New(options Options) *Handler {
	timeout := options.Timeout
	if timeout == 0 {
		timeout = 2 * time.Second
	}
	return &Handler{
		repanic:         options.Repanic,
		waitForDelivery: options.WaitForDelivery,
		timeout:         timeout,
	}
}

// Handle wraps handler, attaching fresh report data populated from the
// request to the context and reporting any panic through the process-wide
// client.
func (h *Handler) Handle(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		ctx := checkend.AttachReportData(r.Context())
		checkend.SetRequest(ctx, requestData(r))
		defer h.recoverWithCheckend(ctx)
		handler.ServeHTTP(rw, r.WithContext(ctx))
	})
}

// HandleFunc is Handle for plain handler functions.
func (h *Handler) HandleFunc(handler http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		ctx := checkend.AttachReportData(r.Context())
		checkend.SetRequest(ctx, requestData(r))
		defer h.recoverWithCheckend(ctx)
		handler(rw, r.WithContext(ctx))
	}
}

func (h *Handler) recoverWithCheckend(ctx context.Context) {
	if recovered := recover(); recovered != nil {
		checkend.Recover(ctx, recovered)
		if h.waitForDelivery {
			checkend.Flush(h.timeout)
		}
		if h.repanic {
			panic(recovered)
		}
	}
}

// requestData captures the transmittable view of an incoming request. Header
// values go through the sanitizer with everything else, so credential-bearing
// headers such as Authorization end up filtered.
func requestData(r *http.Request) map[string]interface{} {
	headers := make(map[string]interface{}, len(r.Header))
	for name, values := range r.Header {
		if len(values) == 1 {
			headers[name] = values[0]
		} else {
			headers[name] = values
		}
	}

	return map[string]interface{}{
		"url":          r.URL.Path,
		"method":       r.Method,
		"query_string": r.URL.RawQuery,
		"remote_addr":  r.RemoteAddr,
		"headers":      headers,
	}
}
