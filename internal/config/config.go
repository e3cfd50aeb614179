package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultTimeout is the per-request timeout for page and resource
	// fetches. A fetch that exceeds it degrades to a skip, never an abort.
	DefaultTimeout = 30 * time.Second

	// DefaultDepth is the default crawl depth.
	// Depth 0 mirrors only the start page and its resources.
	DefaultDepth = 0

	// DefaultMaxPages is the maximum number of pages to mirror per session.
	// This prevents runaway crawling on large or infinitely-generating
	// sites. Users can override it via the --max-pages CLI flag.
	DefaultMaxPages = 200

	// DefaultCrawlDelay is the delay between page fetches.
	// This is a politeness setting to avoid overwhelming servers.
	DefaultCrawlDelay = 200 * time.Millisecond

	// DefaultMaxBodySize limits the maximum response body size to read.
	// 10MB accommodates large images and PDFs while preventing memory
	// exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultUserAgent identifies webmirror in HTTP requests.
	// A descriptive User-Agent lets operators identify mirror traffic.
	DefaultUserAgent = "webmirror/1.0 (+https://github.com/nao1215/webmirror)"

	// DefaultBatchSize is the number of concurrent sessions when mirroring
	// multiple start URLs. Each session still fetches its own resources
	// concurrently, so this stays small.
	DefaultBatchSize = 3

	// AppName is the application name used for XDG directory paths.
	AppName = "webmirror"
)

// Config holds all configuration options for webmirror.
type Config struct {
	// StartURLs are the pages each mirror session starts from.
	StartURLs []string

	// Depth is the maximum number of link hops to follow from a start page.
	// 0 means only the start page, 1 means the start page plus its direct
	// links, and so on.
	Depth int

	// MaxPages caps the total number of pages mirrored per session.
	MaxPages int

	// Timeout is the per-request timeout for page and resource fetches.
	Timeout time.Duration

	// CrawlDelay is the politeness delay between page fetches.
	CrawlDelay time.Duration

	// MaxBodySize limits response body reads.
	MaxBodySize int64

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// RestrictDomain limits crawling to links on the start page's host.
	RestrictDomain bool

	// FocusMode limits crawling to links whose path is under the start
	// page's directory. Implies nothing about the host; combine with
	// RestrictDomain for the strictest crawl.
	FocusMode bool

	// SOCKSProxy is an optional SOCKS5 proxy address in "host:port" format.
	// Empty means direct connections.
	SOCKSProxy string

	// OutputDir is the directory the archive file is written to.
	// Empty means the current working directory.
	OutputDir string

	// BatchSize is the number of concurrent sessions for multi-URL runs.
	BatchSize int

	// Verbose enables slog.LevelDebug output.
	Verbose bool

	// MarkdownReport enables Markdown report output instead of the
	// human-readable summary.
	MarkdownReport bool

	// ReportPath is an optional file path the report is written to.
	ReportPath string

	// NoHistory disables recording the session in the history database.
	NoHistory bool

	// ConfigFilePath is the path to the configuration file. If empty, the
	// tool searches for .webmirror in the current and home directories.
	ConfigFilePath string

	// SiteConfigs holds per-site configurations loaded from the config file.
	SiteConfigs *File
}

// Default returns a Config populated with the default values above.
func Default() *Config {
	return &Config{
		Depth:          DefaultDepth,
		MaxPages:       DefaultMaxPages,
		Timeout:        DefaultTimeout,
		CrawlDelay:     DefaultCrawlDelay,
		MaxBodySize:    DefaultMaxBodySize,
		UserAgent:      DefaultUserAgent,
		RestrictDomain: true,
		BatchSize:      DefaultBatchSize,
	}
}

// DataDir returns the XDG data directory for webmirror.
// On Linux: ~/.local/share/webmirror
// On macOS: ~/Library/Application Support/webmirror
// On Windows: %LOCALAPPDATA%\webmirror
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// ConfigDir returns the XDG config directory for webmirror.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific sentinel error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each point
// of use to fail fast and provide clear error messages upfront. This is
// called once after CLI parsing, before any crawling begins.
func (c *Config) Validate() error {
	if len(c.StartURLs) == 0 {
		return ErrNoStartURL
	}
	if c.Depth < 0 {
		return ErrInvalidDepth
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	return nil
}

// SiteFor returns the merged site configuration for the given host,
// or a zero SiteConfig when no config file was loaded.
func (c *Config) SiteFor(host string) SiteConfig {
	if c.SiteConfigs == nil {
		return SiteConfig{}
	}
	return c.SiteConfigs.SiteConfig(host)
}
