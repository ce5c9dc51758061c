package checkend

import (
	"time"

	"github.com/google/uuid"
)

// Version of the checkend-go SDK.
const Version = "0.1.0"

const sdkName = "checkend-go"
const sdkUserAgent = sdkName + "/" + Version

// NoticeID identifies a single captured notice. It is generated locally and
// never transmitted; callers can use it to correlate debug log lines with the
// Notify call that produced them.
type NoticeID = uuid.UUID

// Frame is a single backtrace entry.
type Frame struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Method string `json:"method"`
}

// Notice is the structured record of one reported fault, ready for
// transmission. A Notice handed to the Worker is fully formed and is never
// mutated afterwards; the delivery pipeline only reads it.
//
// Context, Request and User hold already-sanitized data: the builder passes
// them through Sanitize before the Notice is constructed. Optional fields are
// omitted from the wire document entirely when empty.
type Notice struct {
	ID          NoticeID               `json:"-"`
	ErrorClass  string                 `json:"error_class"`
	Message     string                 `json:"message"`
	Backtrace   []Frame                `json:"backtrace"`
	Fingerprint string                 `json:"fingerprint,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Request     map[string]interface{} `json:"request,omitempty"`
	User        map[string]interface{} `json:"user,omitempty"`
	Environment string                 `json:"environment"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Notifier    map[string]string      `json:"notifier"`
}
