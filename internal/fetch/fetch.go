package fetch

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
)

// Result is the outcome of a single fetch.
//
// A failure is reported, not raised: callers must treat Failed as "skip this
// resource, keep going". Only request construction on a malformed URL yields
// Failed with an empty StatusCode.
type Result struct {
	// Body contains the response bytes, capped at the fetcher's body limit.
	Body []byte

	// StatusCode is the HTTP status code, zero when no response arrived.
	StatusCode int

	// ContentType is the response Content-Type header.
	ContentType string

	// Failed reports that the fetch did not produce usable bytes.
	Failed bool
}

// Fetcher retrieves bytes for URLs with a per-request timeout and a body
// size cap.
type Fetcher struct {
	// client is the configured HTTP client.
	client *http.Client

	// userAgent is the User-Agent header sent with every request.
	userAgent string

	// headers are extra headers sent with every request (per-site config).
	headers map[string]string

	// maxBodySize limits response body reads.
	maxBodySize int64

	// logger receives skip-and-continue diagnostics.
	logger *slog.Logger
}

// Option configures a Fetcher.
type Option func(*options)

type options struct {
	timeout     time.Duration
	userAgent   string
	headers     map[string]string
	maxBodySize int64
	socksProxy  string
	logger      *slog.Logger
	transport   http.RoundTripper
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// WithHeaders sets extra headers to include in every request.
func WithHeaders(headers map[string]string) Option {
	return func(o *options) {
		o.headers = headers
	}
}

// WithMaxBodySize sets the maximum response body size to read.
func WithMaxBodySize(size int64) Option {
	return func(o *options) {
		o.maxBodySize = size
	}
}

// WithSOCKSProxy routes all connections through a SOCKS5 proxy at the given
// "host:port" address. An empty address means direct connections.
func WithSOCKSProxy(address string) Option {
	return func(o *options) {
		o.socksProxy = address
	}
}

// WithLogger sets the logger used for skip diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTransport overrides the HTTP transport. Used by tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// New creates a Fetcher.
// It returns an error only when the SOCKS proxy address is unusable; every
// runtime failure is reported through Result.Failed instead.
func New(opts ...Option) (*Fetcher, error) {
	o := &options{
		timeout:     30 * time.Second,
		userAgent:   "webmirror/1.0",
		maxBodySize: 10 * 1024 * 1024,
	}
	for _, opt := range opts {
		opt(o)
	}

	transport := o.transport
	if transport == nil {
		t := &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     30 * time.Second,
		}
		if o.socksProxy != "" {
			// nil auth: local SOCKS proxies typically require none.
			dialer, err := proxy.SOCKS5("tcp", o.socksProxy, nil, proxy.Direct)
			if err != nil {
				return nil, err
			}
			t.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
		transport = t
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   o.timeout,
		},
		userAgent:   o.userAgent,
		headers:     o.headers,
		maxBodySize: o.maxBodySize,
		logger:      logger,
	}, nil
}

// Fetch retrieves the bytes at the given URL.
// Network errors, timeouts, and non-2xx statuses all produce a Result with
// Failed set and are logged at debug level.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		f.logger.Debug("fetch skipped: bad request URL", "url", rawURL, "error", err)
		return Result{Failed: true}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "*/*")
	for key, value := range f.headers {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("fetch failed", "url", rawURL, "error", err)
		return Result{Failed: true}
	}
	defer resp.Body.Close() //nolint:errcheck // Best-effort close on read path

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.logger.Debug("fetch failed: bad status", "url", rawURL, "status", resp.StatusCode)
		return Result{StatusCode: resp.StatusCode, Failed: true}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		f.logger.Debug("fetch failed: body read", "url", rawURL, "error", err)
		return Result{StatusCode: resp.StatusCode, Failed: true}
	}

	return Result{
		Body:        body,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}
}
