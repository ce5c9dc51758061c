package checkend

import (
	"context"
	"runtime"
	"time"

	"github.com/google/uuid"
)

const maxMessageLength = 10000

// NoticeOptions carries per-call additions to a notice. The three maps are
// merged over whatever report data the context carries.
type NoticeOptions struct {
	Fingerprint string
	Tags        []string
	Context     map[string]interface{}
	Request     map[string]interface{}
	User        map[string]interface{}
}

type noticeBuilder struct {
	options ClientOptions
}

// build assembles a fully formed Notice from a captured error. The notice is
// complete when build returns: the delivery pipeline never touches it again.
func (b noticeBuilder) build(ctx context.Context, err error, opts NoticeOptions) *Notice {
	notice := &Notice{
		ID:          uuid.New(),
		ErrorClass:  errorTypeName(err),
		Message:     truncateMessage(err.Error()),
		Backtrace:   buildBacktrace(err),
		Fingerprint: opts.Fingerprint,
		Tags:        opts.Tags,
		Environment: b.options.Environment,
		OccurredAt:  time.Now().UTC(),
		Notifier:    b.buildNotifier(),
	}

	if !b.options.DisableContextData {
		notice.Context = b.sanitizedMerge(ContextData(ctx), opts.Context)
	}
	if !b.options.DisableRequestData {
		notice.Request = b.sanitizedMerge(RequestData(ctx), opts.Request)
	}
	if !b.options.DisableUserData {
		notice.User = b.sanitizedMerge(UserData(ctx), opts.User)
	}

	return notice
}

// sanitizedMerge layers overrides on top of base and scrubs the result. The
// merged map is built fresh, so sanitization never mutates caller data.
func (b noticeBuilder) sanitizedMerge(base, overrides map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	if len(merged) == 0 {
		return nil
	}
	return Sanitize(merged, b.options.FilterKeys)
}

func (b noticeBuilder) buildNotifier() map[string]string {
	notifier := map[string]string{
		"name":             sdkName,
		"version":          Version,
		"language":         "go",
		"language_version": runtime.Version(),
	}
	if b.options.AppName != "" {
		notifier["app_name"] = b.options.AppName
	}
	if b.options.Revision != "" {
		notifier["revision"] = b.options.Revision
	}
	return notifier
}

// buildBacktrace prefers the stack the error itself recorded at creation time
// and falls back to the current call stack.
func buildBacktrace(err error) []Frame {
	if frames := extractBacktrace(err); len(frames) > 0 {
		return frames
	}
	return newBacktrace(3)
}

func truncateMessage(message string) string {
	if len(message) <= maxMessageLength {
		return message
	}
	runes := []rune(message)
	if len(runes) <= maxMessageLength {
		return message
	}
	return string(runes[:maxMessageLength])
}
