// Package checkendlogrus provides a simple Logrus hook for Checkend: log
// entries at the configured levels are reported as notices.
package checkendlogrus

import (
	"errors"
	"time"

	checkend "github.com/checkend/checkend-go"
	"github.com/sirupsen/logrus"
)

// Field keys recognized by the hook. When present in the entry's fields, and
// of the expected type, they become notice metadata instead of generic
// context data.
// FieldError holds the error being logged; logrus sets it via WithError.
var FieldError = logrus.ErrorKey

const (
	// FieldFingerprint holds a grouping fingerprint as a string.
	FieldFingerprint = "fingerprint"
	// FieldTags holds a []string of notice tags.
	FieldTags = "tags"
)

// Hook is the logrus hook for Checkend.
//
// It is not safe to configure the hook while logging is happening. Please
// perform all configuration before using it.
type Hook struct {
	client *checkend.Client
	levels []logrus.Level
}

// New constructs a client from opts and returns a hook reporting entries at
// the given levels.
func New(levels []logrus.Level, opts checkend.ClientOptions) (*Hook, error) {
	client, err := checkend.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return NewFromClient(levels, client), nil
}

// NewFromClient returns a hook reporting through an existing client.
func NewFromClient(levels []logrus.Level, client *checkend.Client) *Hook {
	return &Hook{
		client: client,
		levels: levels,
	}
}

// Levels returns the logging levels that are sent to Checkend.
func (h *Hook) Levels() []logrus.Level {
	return h.levels
}

// Fire reports the entry as a notice. The logged error (WithError) is
// preferred as the fault; without one the entry message becomes the error.
// Remaining entry fields travel as context data and are sanitized with
// everything else.
func (h *Hook) Fire(entry *logrus.Entry) error {
	var opts checkend.NoticeOptions

	err, _ := entry.Data[FieldError].(error)
	if err == nil {
		err = errors.New(entry.Message)
	}

	if fingerprint, ok := entry.Data[FieldFingerprint].(string); ok {
		opts.Fingerprint = fingerprint
	}
	if tags, ok := entry.Data[FieldTags].([]string); ok {
		opts.Tags = tags
	}

	context := make(map[string]interface{}, len(entry.Data)+2)
	for key, value := range entry.Data {
		switch key {
		case FieldError, FieldFingerprint, FieldTags:
		default:
			context[key] = value
		}
	}
	context["log_level"] = entry.Level.String()
	if entry.Message != "" {
		context["log_message"] = entry.Message
	}
	opts.Context = context

	h.client.Notify(entry.Context, err, opts)
	return nil
}

// Flush waits until the underlying client has drained its queue.
func (h *Hook) Flush(timeout time.Duration) bool {
	return h.client.Flush(timeout)
}

// Stop shuts the underlying client down.
func (h *Hook) Stop() {
	h.client.Stop()
}
