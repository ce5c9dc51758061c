package checkend

import (
	"crypto/x509"
	"errors"
	"io"
	"net/http"
	"time"
)

const defaultEndpoint = "https://app.checkend.com"
const defaultConnectTimeout = 5 * time.Second
const defaultReadTimeout = 15 * time.Second
const defaultShutdownTimeout = 5 * time.Second
const defaultMaxQueueSize = 1000

// defaultFilterKeys mark a field as sensitive when its lower-cased key
// contains one of them as a substring.
var defaultFilterKeys = []string{
	"password", "password_confirmation", "secret", "secret_key",
	"api_key", "apikey", "access_token", "auth_token", "authorization",
	"token", "credit_card", "card_number", "cvv", "cvc", "ssn", "social_security",
}

// ClientOptions configures a Client. The zero value is usable once APIKey is
// set; NewClient fills in every other default.
type ClientOptions struct {
	// APIKey is the ingestion credential. Required.
	APIKey string
	// Endpoint is the collector base URL. Defaults to https://app.checkend.com.
	Endpoint string
	// Environment tags every notice (e.g. "production").
	Environment string
	// Disabled turns the whole pipeline off; Notify becomes a no-op.
	Disabled bool
	// SyncSend bypasses the background worker and sends on the caller's
	// goroutine. Intended for short-lived processes.
	SyncSend bool
	// MaxQueueSize bounds the pending-notice queue. Defaults to 1000.
	MaxQueueSize int
	// Debug enables SDK debug logging to stderr (or DebugWriter).
	Debug bool
	// DebugWriter overrides the destination of SDK debug logging.
	DebugWriter io.Writer

	ConnectTimeout  time.Duration
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Proxy routing. When ProxyHost is set, requests go through an HTTP proxy
	// at ProxyHost:ProxyPort; ProxyUsername/ProxyPassword add a
	// Proxy-Authorization header.
	ProxyHost     string
	ProxyPort     int
	ProxyUsername string
	ProxyPassword string

	// AppName and Revision are added to the notifier metadata when set.
	AppName  string
	Revision string

	// DisableContextData, DisableRequestData and DisableUserData drop the
	// corresponding sub-map from every notice.
	DisableContextData bool
	DisableRequestData bool
	DisableUserData    bool

	// FilterKeys are appended to the default sensitive-key set.
	FilterKeys []string
	// IgnoreErrors drops matching errors before a notice is built.
	IgnoreErrors []IgnorePattern
	// BeforeNotify callbacks run in order on every built notice. Returning
	// nil drops the notice; returning a different Notice replaces it.
	BeforeNotify []func(notice *Notice) *Notice

	// Transport replaces the HTTP transport, e.g. with a TransportMock in
	// tests.
	Transport Transport
	// HTTPTransport replaces the underlying http.Transport while keeping the
	// default delivery pipeline.
	HTTPTransport *http.Transport
	// CaCerts overrides the trusted root certificates.
	CaCerts *x509.CertPool
}

func (options ClientOptions) withDefaults() (ClientOptions, error) {
	if options.APIKey == "" {
		return options, errors.New("checkend: APIKey is required")
	}
	if options.Endpoint == "" {
		options.Endpoint = defaultEndpoint
	}
	if options.MaxQueueSize == 0 {
		options.MaxQueueSize = defaultMaxQueueSize
	}
	if options.ConnectTimeout == 0 {
		options.ConnectTimeout = defaultConnectTimeout
	}
	if options.ReadTimeout == 0 {
		options.ReadTimeout = defaultReadTimeout
	}
	if options.ShutdownTimeout == 0 {
		options.ShutdownTimeout = defaultShutdownTimeout
	}
	options.FilterKeys = append(append([]string{}, defaultFilterKeys...), options.FilterKeys...)
	return options, nil
}
