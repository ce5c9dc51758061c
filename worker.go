package checkend

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/checkend/checkend-go/internal/debuglog"
)

const maxSendAttempts = 3
const throttleFactor = 1.05
const throttleSeed = 100 * time.Millisecond
const throttleFloor = 10 * time.Millisecond
const maxThrottleDelay = 100 * time.Second
const defaultRateLimitBackoff = 60 * time.Second

// pollInterval bounds every wait inside the worker loop so shutdown stays
// responsive.
const pollInterval = 100 * time.Millisecond

var retryDelays = [maxSendAttempts]time.Duration{
	100 * time.Millisecond,
	200 * time.Millisecond,
	400 * time.Millisecond,
}

// Worker owns a bounded queue of pending notices and a single background
// goroutine that drains it, applying retry, throttle and rate-limit policy.
//
// The throttle delay is a local congestion signal: it grows on repeated 5xx
// and transport failures and decays on success. The rate-limit deadline is a
// server-directed hard pause driven by 429 responses. They compound so that
// delivery after a rate-limit window resumes cautiously rather than at full
// speed.
type Worker struct {
	transport Transport
	queue     chan *Notice

	running          atomic.Bool
	throttleDelayMs  atomic.Int64
	rateLimitedUntil atomic.Int64 // unix milliseconds, 0 when not limited

	done            chan struct{}
	wg              sync.WaitGroup
	stopOnce        sync.Once
	shutdownTimeout time.Duration
}

// NewWorker constructs a Worker with a queue of the given capacity and starts
// its background goroutine. A stopped Worker cannot be restarted; construct a
// fresh one instead.
func NewWorker(transport Transport, queueSize int, shutdownTimeout time.Duration) *Worker {
	worker := &Worker{
		transport:       transport,
		queue:           make(chan *Notice, queueSize),
		done:            make(chan struct{}),
		shutdownTimeout: shutdownTimeout,
	}
	worker.running.Store(true)
	worker.wg.Add(1)
	go worker.run()
	return worker
}

// Enqueue attempts a non-blocking insert into the queue. It returns false
// without side effects when the Worker is stopped, and false with a warning
// when the queue is full; the notice is dropped in both cases. Enqueue never
// blocks the caller, whatever state the pipeline is in.
func (w *Worker) Enqueue(notice *Notice) bool {
	if !w.running.Load() {
		return false
	}
	select {
	case w.queue <- notice:
		return true
	default:
		debuglog.Println("Queue full, notice dropped")
		return false
	}
}

// Flush polls until the queue is empty or the timeout elapses and reports
// whether the queue drained. It does not guarantee that in-flight sends have
// completed.
func (w *Worker) Flush(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for len(w.queue) > 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	return len(w.queue) == 0
}

// Stop shuts the Worker down: no new notices are accepted, the background
// goroutine finishes draining the queue, and after the shutdown grace period
// any remaining work is abandoned. Stop is idempotent.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.running.Store(false)

		drained := make(chan struct{})
		go func() {
			w.wg.Wait()
			close(drained)
		}()

		select {
		case <-drained:
		case <-time.After(w.shutdownTimeout):
			// Abandon the drain; the goroutine exits as soon as its current
			// send attempt returns.
			close(w.done)
		}
	})
}

// IsRunning reports whether the Worker still accepts notices.
func (w *Worker) IsRunning() bool {
	return w.running.Load()
}

// QueueSize returns the number of notices waiting to be sent.
func (w *Worker) QueueSize() int {
	return len(w.queue)
}

// IsRateLimited reports whether the collector-imposed cooldown is still in
// effect.
func (w *Worker) IsRateLimited() bool {
	return w.rateLimitedUntil.Load() > time.Now().UnixMilli()
}

// ThrottleDelay returns the current locally adaptive pacing delay.
func (w *Worker) ThrottleDelay() time.Duration {
	return time.Duration(w.throttleDelayMs.Load()) * time.Millisecond
}

func (w *Worker) run() {
	defer w.wg.Done()

	for w.running.Load() || len(w.queue) > 0 {
		select {
		case <-w.done:
			return
		default:
		}

		if until := w.rateLimitedUntil.Load(); until > 0 {
			wait := time.Until(time.UnixMilli(until))
			if wait > 0 {
				debuglog.Printf("Rate limited, waiting %s\n", wait)
				if wait > time.Second {
					wait = time.Second
				}
				if !w.sleep(wait) {
					return
				}
				continue
			}
			w.rateLimitedUntil.Store(0)
			debuglog.Println("Rate limit period ended, resuming")
		}

		if throttle := w.ThrottleDelay(); throttle > 0 {
			if !w.sleep(throttle) {
				return
			}
		}

		select {
		case notice := <-w.queue:
			w.sendWithRetry(notice)
		case <-w.done:
			return
		case <-time.After(pollInterval):
		}
	}
}

func (w *Worker) sendWithRetry(notice *Notice) {
	for attempt := 0; attempt < maxSendAttempts; attempt++ {
		response := w.transport.Send(notice)

		if response.IsSuccess() {
			debuglog.Printf("Notice %s sent successfully\n", notice.ID)
			w.decreaseThrottle()
			return
		}

		if response.IsRateLimited() {
			backoff := response.RetryAfterDuration(defaultRateLimitBackoff)
			debuglog.Printf("Rate limited by server, backing off for %s\n", backoff)
			w.rateLimitedUntil.Store(time.Now().Add(backoff).UnixMilli())
			w.increaseThrottle()
			w.requeue(notice)
			return
		}

		// Client errors other than 429 are permanent, don't retry.
		if response.StatusCode >= 400 && response.StatusCode < 500 {
			debuglog.Printf("Client error, not retrying: %d - %s\n", response.StatusCode, response.Body)
			return
		}

		// 5xx or transport failure (status 0).
		w.increaseThrottle()
		if attempt < maxSendAttempts-1 {
			debuglog.Printf("Retrying after server error: %d\n", response.StatusCode)
			if !w.sleep(retryDelays[attempt]) {
				return
			}
		}
	}
	debuglog.Printf("Failed to send notice %s after %d attempts\n", notice.ID, maxSendAttempts)
}

// requeue reinserts a rate-limited notice at the back of the queue for a later
// attempt. The insert is non-blocking: when the queue is full at re-enqueue
// time the recycled notice is dropped rather than evicting fresher notices,
// which have not yet had a delivery opportunity.
func (w *Worker) requeue(notice *Notice) {
	select {
	case w.queue <- notice:
	default:
		debuglog.Printf("Queue full, rate-limited notice %s dropped\n", notice.ID)
	}
}

// sleep blocks the worker goroutine for d, returning false when the Worker was
// force-stopped mid-sleep. Callers abandon their work on a false return.
func (w *Worker) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-w.done:
		return false
	}
}

func (w *Worker) increaseThrottle() {
	current := time.Duration(w.throttleDelayMs.Load()) * time.Millisecond
	next := throttleSeed
	if current > 0 {
		next = time.Duration(float64(current) * throttleFactor)
	}
	if next > maxThrottleDelay {
		next = maxThrottleDelay
	}
	w.throttleDelayMs.Store(next.Milliseconds())
}

func (w *Worker) decreaseThrottle() {
	current := time.Duration(w.throttleDelayMs.Load()) * time.Millisecond
	if current == 0 {
		return
	}
	next := time.Duration(float64(current) / throttleFactor)
	if next < throttleFloor {
		next = 0
	}
	w.throttleDelayMs.Store(next.Milliseconds())
}
