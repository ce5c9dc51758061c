package checkendhttp

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	checkend "github.com/checkend/checkend-go"
)

// configureMock installs a synchronous process-wide client backed by a mock
// transport so each test can inspect what the middleware reported.
func configureMock(t *testing.T) *checkend.TransportMock {
	t.Helper()

	mock := &checkend.TransportMock{}
	err := checkend.Configure(checkend.ClientOptions{
		APIKey:    "middleware-test",
		SyncSend:  true,
		Transport: mock,
	})
	require.NoError(t, err)
	t.Cleanup(checkend.Stop)
	return mock
}

func TestNewAppliesDefaultTimeout(t *testing.T) {
	assert.Equal(t, 2*time.Second, New(Options{}).timeout)
	assert.Equal(t, 500*time.Millisecond, New(Options{Timeout: 500 * time.Millisecond}).timeout)
}

func TestHandlePassesThroughWithoutPanic(t *testing.T) {
	mock := configureMock(t)

	var sawReportData bool
	handler := New(Options{}).Handle(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		sawReportData = checkend.HasReportData(r.Context())
		rw.WriteHeader(http.StatusTeapot)
	}))

	rw := httptest.NewRecorder()
	handler.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusTeapot, rw.Code)
	assert.True(t, sawReportData, "request context should carry report data")
	assert.Empty(t, mock.Notices())
}

func TestHandleReportsPanicWithRequestData(t *testing.T) {
	mock := configureMock(t)

	handler := New(Options{}).Handle(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		panic("middleware test panic")
	}))

	r := httptest.NewRequest(http.MethodPost, "/orders?limit=5", nil)
	r.Header.Set("Accept", "application/json")
	r.Header.Set("Authorization", "Bearer hunter2")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	notice := mock.LastNotice()
	require.NotNil(t, notice, "expected the panic to be reported")
	assert.Equal(t, "panic: middleware test panic", notice.Message)

	require.NotNil(t, notice.Request)
	assert.Equal(t, "/orders", notice.Request["url"])
	assert.Equal(t, http.MethodPost, notice.Request["method"])
	assert.Equal(t, "limit=5", notice.Request["query_string"])

	headers, ok := notice.Request["headers"].(map[string]interface{})
	require.True(t, ok, "headers should survive as a map")
	assert.Equal(t, "application/json", headers["Accept"])
	assert.Equal(t, "[FILTERED]", headers["Authorization"])
}

func TestHandleReportsPanicErrorValue(t *testing.T) {
	mock := configureMock(t)

	cause := errors.New("connection reset")
	handler := New(Options{}).HandleFunc(func(rw http.ResponseWriter, r *http.Request) {
		panic(cause)
	})

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	notice := mock.LastNotice()
	require.NotNil(t, notice)
	assert.Equal(t, "connection reset", notice.Message)
	assert.Equal(t, "errors.errorString", notice.ErrorClass)
}

func TestHandleRepanic(t *testing.T) {
	mock := configureMock(t)

	handler := New(Options{Repanic: true}).Handle(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		panic("pass it on")
	}))

	assert.PanicsWithValue(t, "pass it on", func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Len(t, mock.Notices(), 1, "the panic should be reported before repanicking")
}

func TestHandleFuncMergesHandlerReportData(t *testing.T) {
	mock := configureMock(t)

	handler := New(Options{WaitForDelivery: true}).HandleFunc(func(rw http.ResponseWriter, r *http.Request) {
		checkend.SetUser(r.Context(), map[string]interface{}{"id": "u-42"})
		panic("after user data")
	})

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	notice := mock.LastNotice()
	require.NotNil(t, notice)
	assert.Equal(t, "u-42", notice.User["id"])
}

func TestRequestData(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/search?q=errors", nil)
	r.Header.Set("Accept", "text/html")
	r.Header.Add("Accept-Encoding", "gzip")
	r.Header.Add("Accept-Encoding", "br")

	data := requestData(r)

	assert.Equal(t, "/search", data["url"])
	assert.Equal(t, "q=errors", data["query_string"])
	assert.NotEmpty(t, data["remote_addr"])

	headers := data["headers"].(map[string]interface{})
	assert.Equal(t, "text/html", headers["Accept"])
	assert.Equal(t, []string{"gzip", "br"}, headers["Accept-Encoding"])
}
