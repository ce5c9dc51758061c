package checkend

import "sync"

// TransportMock implements [Transport] for use in tests. Wiring it in via
// ClientOptions.Transport puts the client in capture mode: notices are
// recorded in memory instead of being sent.
type TransportMock struct {
	mu         sync.Mutex
	notices    []*Notice
	lastNotice *Notice

	// Response is returned from every Send. The zero value reports success.
	Response *Response
}

func (t *TransportMock) Send(notice *Notice) Response {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notices = append(t.notices, notice)
	t.lastNotice = notice
	if t.Response != nil {
		return *t.Response
	}
	return Response{StatusCode: 201, Body: `{"id":"captured"}`}
}

// Notices returns the captured notices in send order.
func (t *TransportMock) Notices() []*Notice {
	t.mu.Lock()
	defer t.mu.Unlock()
	result := make([]*Notice, len(t.notices))
	copy(result, t.notices)
	return result
}

// LastNotice returns the most recently captured notice, or nil.
func (t *TransportMock) LastNotice() *Notice {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastNotice
}

// Reset discards all captured notices.
func (t *TransportMock) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notices = nil
	t.lastNotice = nil
}
