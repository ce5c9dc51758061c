package checkend

import (
	"reflect"
	"runtime"
	"strings"
)

const unknown = "unknown"
const maxBacktraceFrames = 100

// newBacktrace captures the current call stack, skipping runtime internals
// and the SDK's own frames so the backtrace starts at the caller of Notify.
func newBacktrace(skip int) []Frame {
	pcs := make([]uintptr, maxBacktraceFrames)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return []Frame{}
	}

	frames := make([]Frame, 0, n)
	callersFrames := runtime.CallersFrames(pcs[:n])
	for {
		callerFrame, more := callersFrames.Next()
		frame := newFrame(callerFrame.Function, callerFrame.File, callerFrame.Line)
		if !isInternalFrame(frame) {
			frames = append(frames, frame)
		}
		if !more || len(frames) == maxBacktraceFrames {
			break
		}
	}
	return frames
}

// extractBacktrace pulls a backtrace out of an error that carries one.
// Detection is by method probing so the SDK works with the popular
// stack-carrying error libraries (github.com/pkg/errors,
// github.com/go-errors/errors, github.com/pingcap/errors) without importing
// them.
func extractBacktrace(err error) []Frame {
	method := firstMethodOf(err, "StackTrace", "Callers", "Stacktrace")
	if !method.IsValid() {
		return nil
	}

	results := method.Call(nil)
	if len(results) != 1 {
		return nil
	}

	pcs := programCounters(results[0])
	if len(pcs) == 0 {
		return nil
	}

	frames := make([]Frame, 0, len(pcs))
	callersFrames := runtime.CallersFrames(pcs)
	for {
		callerFrame, more := callersFrames.Next()
		frames = append(frames, newFrame(callerFrame.Function, callerFrame.File, callerFrame.Line))
		if !more || len(frames) == maxBacktraceFrames {
			break
		}
	}
	return frames
}

// firstMethodOf returns the first zero-argument method of err with one of the
// given names.
func firstMethodOf(err error, names ...string) reflect.Value {
	errValue := reflect.ValueOf(err)
	if !errValue.IsValid() {
		return reflect.Value{}
	}
	for _, name := range names {
		method := errValue.MethodByName(name)
		if method.IsValid() && method.Type().NumIn() == 0 && method.Type().NumOut() == 1 {
			return method
		}
	}
	return reflect.Value{}
}

// programCounters converts the result of a StackTrace/Callers style method
// into plain program counters. pkg/errors returns []errors.Frame (uintptr
// values pointing one past the call site), go-errors returns []uintptr.
func programCounters(value reflect.Value) []uintptr {
	if value.Kind() != reflect.Slice {
		return nil
	}
	if value.Type().Elem().Kind() != reflect.Uintptr {
		return nil
	}

	pcs := make([]uintptr, value.Len())
	for i := 0; i < value.Len(); i++ {
		pcs[i] = uintptr(value.Index(i).Uint())
	}
	return pcs
}

func newFrame(function, file string, line int) Frame {
	if file == "" {
		file = unknown
	}
	if function == "" {
		function = unknown
	}
	return Frame{
		File:   file,
		Line:   line,
		Method: function,
	}
}

func isInternalFrame(frame Frame) bool {
	if strings.HasPrefix(frame.Method, "runtime.") || strings.HasPrefix(frame.Method, "testing.") {
		return true
	}
	return strings.HasPrefix(frame.Method, "github.com/checkend/checkend-go.") ||
		strings.HasPrefix(frame.Method, "github.com/checkend/checkend-go/")
}
