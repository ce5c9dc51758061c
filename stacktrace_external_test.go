package checkend_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	goErrors "github.com/go-errors/errors"
	pingcapErrors "github.com/pingcap/errors"
	pkgErrors "github.com/pkg/errors"

	"github.com/checkend/checkend-go"
)

func RedPkgErrorsRanger() error {
	return BluePkgErrorsRanger()
}

func BluePkgErrorsRanger() error {
	return pkgErrors.New("this is bad from pkgErrors")
}

func RedPingcapErrorsRanger() error {
	return BluePingcapErrorsRanger()
}

func BluePingcapErrorsRanger() error {
	return pingcapErrors.New("this is bad from pingcapErrors")
}

func RedGoErrorsRanger() error {
	return BlueGoErrorsRanger()
}

func BlueGoErrorsRanger() error {
	return goErrors.New("this is bad from goErrors")
}

// newSyncClient builds a synchronous client backed by a mock transport, so a
// test can call Notify directly and read the captured notice right away.
func newSyncClient(t *testing.T) (*checkend.Client, *checkend.TransportMock) {
	t.Helper()

	mock := &checkend.TransportMock{}
	client, err := checkend.NewClient(checkend.ClientOptions{
		APIKey:    "backtrace-test",
		SyncSend:  true,
		Transport: mock,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(client.Stop)
	return client, mock
}

func captureNotice(t *testing.T, err error) *checkend.Notice {
	t.Helper()

	client, mock := newSyncClient(t)
	if id := client.Notify(context.Background(), err); id == nil {
		t.Fatal("expected the notice to be accepted")
	}
	notice := mock.LastNotice()
	if notice == nil {
		t.Fatal("expected the transport to receive a notice")
	}
	return notice
}

// nolint: scopelint // false positive https://github.com/kyoh86/scopelint/issues/4
func TestBacktraceFromStackCarryingErrors(t *testing.T) {
	tests := map[string]struct {
		f          func() error
		wantMethod [2]string
	}{
		// https://github.com/pkg/errors
		"pkg/errors": {
			RedPkgErrorsRanger,
			[2]string{"BluePkgErrorsRanger", "RedPkgErrorsRanger"},
		},
		// https://github.com/pingcap/errors
		"pingcap/errors": {
			RedPingcapErrorsRanger,
			[2]string{"BluePingcapErrorsRanger", "RedPingcapErrorsRanger"},
		},
		// https://github.com/go-errors/errors
		"go-errors/errors": {
			RedGoErrorsRanger,
			[2]string{"BlueGoErrorsRanger", "RedGoErrorsRanger"},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			notice := captureNotice(t, tt.f())
			if len(notice.Backtrace) < 2 {
				t.Fatalf("got %d frames, want at least 2", len(notice.Backtrace))
			}
			for i, want := range tt.wantMethod {
				frame := notice.Backtrace[i]
				if !strings.HasSuffix(frame.Method, want) {
					t.Errorf("frame %d method = %q, want suffix %q", i, frame.Method, want)
				}
				if !strings.HasSuffix(frame.File, "stacktrace_external_test.go") {
					t.Errorf("frame %d file = %q, want this test file", i, frame.File)
				}
				if frame.Line <= 0 {
					t.Errorf("frame %d has no line number", i)
				}
			}
		})
	}
}

func TestBacktraceFallsBackToCallSite(t *testing.T) {
	client, mock := newSyncClient(t)
	client.Notify(context.Background(), errors.New("no stack recorded"))
	notice := mock.LastNotice()
	if notice == nil {
		t.Fatal("expected the transport to receive a notice")
	}

	if len(notice.Backtrace) == 0 {
		t.Fatal("expected a fallback backtrace")
	}
	if got := notice.Backtrace[0].Method; !strings.HasSuffix(got, "TestBacktraceFallsBackToCallSite") {
		t.Errorf("first frame = %q, want the Notify call site", got)
	}
	for _, frame := range notice.Backtrace {
		if strings.HasPrefix(frame.Method, "runtime.") || strings.HasPrefix(frame.Method, "testing.") {
			t.Errorf("internal frame leaked into backtrace: %q", frame.Method)
		}
		if strings.HasPrefix(frame.Method, "github.com/checkend/checkend-go.") {
			t.Errorf("reporter frame leaked into backtrace: %q", frame.Method)
		}
	}
}

func TestBacktraceFallsBackWhenWrappedStackIsEmpty(t *testing.T) {
	client, mock := newSyncClient(t)
	client.Notify(context.Background(), pkgErrors.WithMessage(errors.New("annotated"), "outer"))
	notice := mock.LastNotice()
	if notice == nil {
		t.Fatal("expected the transport to receive a notice")
	}

	// WithMessage records no stack of its own and the cause has none either,
	// so the call stack at Notify time is used.
	if len(notice.Backtrace) == 0 {
		t.Fatal("expected a fallback backtrace")
	}
	if got := notice.Backtrace[0].Method; !strings.HasSuffix(got, "TestBacktraceFallsBackWhenWrappedStackIsEmpty") {
		t.Errorf("first frame = %q, want the Notify call site", got)
	}
}
