package checkend

import (
	"bytes"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/certifi/gocertifi"

	"github.com/checkend/checkend-go/internal/debuglog"
)

const ingestPath = "/ingest/v1/errors"

// Response is the interpreted outcome of one delivery attempt. Transport-level
// failures (DNS, connection refused, timeout) are reported with StatusCode 0
// and the failure description as Body; they are never surfaced as errors.
type Response struct {
	StatusCode int
	Body       string
	RetryAfter string
}

// IsSuccess reports whether the collector accepted the notice.
func (r Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsRateLimited reports whether the collector asked us to back off.
func (r Response) IsRateLimited() bool {
	return r.StatusCode == http.StatusTooManyRequests
}

// RetryAfterDuration parses the Retry-After header value as an integer count
// of seconds. The HTTP-date form is not supported; it falls back to def, as
// does an absent or malformed header.
func (r Response) RetryAfterDuration(def time.Duration) time.Duration {
	if r.RetryAfter == "" {
		return def
	}
	seconds, err := strconv.ParseInt(r.RetryAfter, 10, 64)
	if err != nil {
		return def
	}
	return time.Duration(seconds) * time.Second
}

// Transport is used by the Client and Worker to deliver notices to the remote
// collector. Send must never panic and never block beyond the configured
// timeouts. The default implementation is an HTTP transport; tests swap in a
// TransportMock via ClientOptions.Transport.
type Transport interface {
	Send(notice *Notice) Response
}

// httpTransport is the default Transport implementation.
type httpTransport struct {
	endpoint  string
	apiKey    string
	proxyAuth string
	client    *http.Client
}

func newHTTPTransport(options ClientOptions) *httpTransport {
	transport := options.HTTPTransport
	if transport == nil {
		transport = &http.Transport{
			Proxy:           proxyConfig(options),
			TLSClientConfig: tlsConfig(options),
			DialContext: (&net.Dialer{
				Timeout: options.ConnectTimeout,
			}).DialContext,
		}
	}

	return &httpTransport{
		endpoint:  options.Endpoint,
		apiKey:    options.APIKey,
		proxyAuth: proxyAuthHeader(options),
		client: &http.Client{
			Transport: transport,
			Timeout:   options.ReadTimeout,
		},
	}
}

// Send serializes the notice and issues a single POST to the collector. The
// response status code, body and Retry-After header are captured regardless of
// outcome; the policy decisions (retry, drop, cool down) belong to the Worker.
func (t *httpTransport) Send(notice *Notice) Response {
	body, err := json.Marshal(notice)
	if err != nil {
		return Response{StatusCode: 0, Body: err.Error()}
	}

	request, err := http.NewRequest(http.MethodPost, t.endpoint+ingestPath, bytes.NewReader(body))
	if err != nil {
		return Response{StatusCode: 0, Body: err.Error()}
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Checkend-Ingestion-Key", t.apiKey)
	request.Header.Set("User-Agent", sdkUserAgent)
	if t.proxyAuth != "" {
		request.Header.Set("Proxy-Authorization", t.proxyAuth)
	}

	response, err := t.client.Do(request)
	if err != nil {
		debuglog.Printf("There was an issue with sending a notice: %v\n", err)
		return Response{StatusCode: 0, Body: err.Error()}
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		responseBody = nil
	}

	debuglog.Printf("Response: %d - %s\n", response.StatusCode, responseBody)

	return Response{
		StatusCode: response.StatusCode,
		Body:       string(responseBody),
		RetryAfter: response.Header.Get("Retry-After"),
	}
}

func proxyConfig(options ClientOptions) func(*http.Request) (*url.URL, error) {
	if options.ProxyHost != "" {
		proxyURL := fmt.Sprintf("http://%s:%d", options.ProxyHost, options.ProxyPort)
		debuglog.Printf("Using proxy: %s:%d\n", options.ProxyHost, options.ProxyPort)
		return func(_ *http.Request) (*url.URL, error) {
			return url.Parse(proxyURL)
		}
	}

	return http.ProxyFromEnvironment
}

func tlsConfig(options ClientOptions) *tls.Config {
	if options.CaCerts != nil {
		return &tls.Config{
			RootCAs: options.CaCerts,
		}
	}

	rootCAs, err := gocertifi.CACerts()
	if err != nil {
		debuglog.Printf("Couldn't load CA Certificates: %v\n", err)
	}
	return &tls.Config{
		RootCAs: rootCAs,
	}
}

func proxyAuthHeader(options ClientOptions) string {
	if options.ProxyHost == "" || options.ProxyUsername == "" {
		return ""
	}
	auth := options.ProxyUsername + ":" + options.ProxyPassword
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(auth))
}
