package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/webmirror/internal/fetch"
	"github.com/nao1215/webmirror/internal/model"
)

// Getter fetches page bytes. Implemented by *fetch.Fetcher.
type Getter interface {
	Fetch(ctx context.Context, url string) fetch.Result
}

// Spider performs the depth-bounded breadth-first traversal of a site.
// One Spider belongs to one mirror session; its frontier and visited set
// are constructed fresh per session and discarded with it.
type Spider struct {
	// fetcher retrieves page bytes with the session's skip-and-continue
	// discipline.
	fetcher Getter

	// maxDepth limits how many link hops to follow from the starting URL.
	// 0 means only the starting page.
	maxDepth int

	// maxPages limits the total number of pages to crawl.
	// This prevents runaway crawling on large sites.
	maxPages int

	// delay is the politeness delay between page fetches.
	delay time.Duration

	// restrictDomain limits discovery to links on the start page's host.
	restrictDomain bool

	// focusMode limits discovery to links whose path is under the start
	// page's directory.
	focusMode bool

	// ignorePatterns are URL path patterns to skip during crawling.
	// Patterns use glob syntax (e.g., "/admin/*", "*.zip").
	ignorePatterns []string

	// followPatterns are URL path patterns to follow during crawling.
	// If set, only URLs matching these patterns are crawled.
	followPatterns []string

	// visited tracks URLs already enqueued or crawled.
	// It grows monotonically during a session and never shrinks.
	visited map[string]bool

	// mutex protects visited.
	mutex sync.Mutex

	logger *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the starting page, 1 = starting page plus linked pages, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages sets the maximum number of pages to crawl.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithDelay sets the politeness delay between page fetches.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithRestrictDomain limits discovery to the start page's host.
func WithRestrictDomain(restrict bool) SpiderOption {
	return func(s *Spider) {
		s.restrictDomain = restrict
	}
}

// WithFocusMode limits discovery to paths under the start page's directory.
func WithFocusMode(focus bool) SpiderOption {
	return func(s *Spider) {
		s.focusMode = focus
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// If set, only URLs matching at least one pattern are crawled.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithSpiderLogger sets the logger for crawl diagnostics.
func WithSpiderLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a Spider using the given fetcher.
func NewSpider(fetcher Getter, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:        fetcher,
		maxDepth:       0,
		maxPages:       200,
		delay:          0,
		restrictDomain: true,
		visited:        make(map[string]bool),
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// queueItem is one frontier entry.
type queueItem struct {
	url   string
	depth int
}

// Crawl performs the breadth-first traversal from startURL and returns the
// fetched pages in discovery order, each carrying its depth and raw bytes.
//
// The only fatal error is an unusable start URL; an unreachable page is
// logged and skipped, and a cancelled context returns the pages collected
// so far together with the context error.
func (s *Spider) Crawl(ctx context.Context, startURL string) ([]*model.Page, error) {
	start, err := url.Parse(startURL)
	if err != nil || !start.IsAbs() || start.Host == "" {
		return nil, fmt.Errorf("invalid start URL %q: %w", startURL, errOrUnparsable(err))
	}
	if start.Scheme != "http" && start.Scheme != "https" {
		return nil, fmt.Errorf("invalid start URL %q: unsupported scheme %q", startURL, start.Scheme)
	}

	// The focus directory is the start page's containing path.
	focusDir := path.Dir(start.Path)
	if focusDir == "." {
		focusDir = "/"
	}

	pages := make([]*model.Page, 0)
	queue := []queueItem{{url: start.String(), depth: 0}}
	s.markVisited(start.String())

	for len(queue) > 0 && len(pages) < s.maxPages {
		select {
		case <-ctx.Done():
			return pages, ctx.Err()
		default:
		}

		item := queue[0]
		queue = queue[1:]

		page, ok := s.fetchPage(ctx, item.url, item.depth)
		if !ok {
			// Failures local to one page never abort the crawl.
			continue
		}
		pages = append(pages, page)

		if item.depth < s.maxDepth {
			for _, link := range page.Links {
				if s.isVisited(link) {
					continue
				}
				if !s.shouldFollow(start, focusDir, link) {
					continue
				}
				s.markVisited(link)
				queue = append(queue, queueItem{url: link, depth: item.depth + 1})
			}
		}

		if s.delay > 0 && len(queue) > 0 {
			select {
			case <-ctx.Done():
				return pages, ctx.Err()
			case <-time.After(s.delay):
			}
		}
	}

	return pages, nil
}

// fetchPage fetches one page, extracts its links when it is HTML, and
// reports false when the page must be skipped.
func (s *Spider) fetchPage(ctx context.Context, pageURL string, depth int) (*model.Page, bool) {
	res := s.fetcher.Fetch(ctx, pageURL)
	if res.Failed {
		s.logger.Warn("page skipped", "url", pageURL, "status", res.StatusCode)
		return nil, false
	}

	page := &model.Page{
		URL:         pageURL,
		StatusCode:  res.StatusCode,
		ContentType: res.ContentType,
		Title:       model.TitleFromURL(pageURL),
		Depth:       depth,
		Raw:         res.Body,
	}
	page.TruncateRaw()
	page.ComputeHash()

	if strings.Contains(page.ContentType, "text/html") {
		page.Links = ExtractLinks(page.Raw, pageURL)
	}

	return page, true
}

// isVisited checks if a URL has been enqueued or crawled.
func (s *Spider) isVisited(pageURL string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.visited[normalizeURL(pageURL)]
}

// markVisited records a URL so it is never re-queued.
func (s *Spider) markVisited(pageURL string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.visited[normalizeURL(pageURL)] = true
}

// VisitedCount returns the number of unique URLs encountered.
func (s *Spider) VisitedCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.visited)
}

// normalizeURL normalizes a URL for deduplication: fragments dropped,
// scheme and host lowercased, and the empty path treated as "/".
func normalizeURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

// shouldFollow applies the session's link policy to a discovered URL:
// domain restriction, focus mode, then ignore/follow glob patterns.
func (s *Spider) shouldFollow(start *url.URL, focusDir, targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}

	if s.restrictDomain && !strings.EqualFold(u.Host, start.Host) {
		return false
	}

	urlPath := u.Path
	if urlPath == "" {
		urlPath = "/"
	}

	if s.focusMode && !strings.HasPrefix(urlPath, focusDir) {
		return false
	}

	for _, pattern := range s.ignorePatterns {
		if matchPattern(pattern, urlPath) {
			return false
		}
	}

	if len(s.followPatterns) > 0 {
		for _, pattern := range s.followPatterns {
			if matchPattern(pattern, urlPath) {
				return true
			}
		}
		return false
	}

	return true
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use * for any sequence of non-separator characters and ?
// for any single character. "/admin/*" also matches nested paths, and
// "*.zip" matches against the file name alone.
func matchPattern(pattern, urlPath string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(urlPath, prefix+"/") || urlPath == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		if strings.HasSuffix(urlPath, strings.TrimPrefix(pattern, "*")) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, urlPath)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := filepath.Match(pattern, path.Base(urlPath))
		if err == nil && matched {
			return true
		}
	}

	return false
}

// errOrUnparsable keeps the original parse error when there is one.
func errOrUnparsable(err error) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("not an absolute URL")
}
