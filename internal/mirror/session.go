package mirror

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/webmirror/internal/archive"
	"github.com/nao1215/webmirror/internal/config"
	"github.com/nao1215/webmirror/internal/crawler"
	"github.com/nao1215/webmirror/internal/fetch"
	"github.com/nao1215/webmirror/internal/localize"
	"github.com/nao1215/webmirror/internal/model"
	"github.com/nao1215/webmirror/internal/progress"
)

// State identifies where a Session is in its run.
type State int

const (
	// StateIdle means no run has started yet.
	StateIdle State = iota

	// StateCrawling means the spider is discovering pages.
	StateCrawling

	// StateLocalizing means pages are being rewritten and their
	// resources fetched.
	StateLocalizing

	// StatePackaging means the archive is being serialized.
	StatePackaging

	// StateDone means the run finished and its result is available.
	StateDone
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCrawling:
		return "crawling"
	case StateLocalizing:
		return "localizing"
	case StatePackaging:
		return "packaging"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Result holds the output of one mirror run.
type Result struct {
	// Archive is the serialized zip blob.
	Archive []byte

	// Report summarizes the run.
	Report *model.MirrorReport
}

// Session runs one mirror at a time. All state created during a run
// (visited set, resource registry, archive builder) is owned by the
// run, so repeated runs on the same Session don't leak dedup state
// into each other.
type Session struct {
	fetcher *fetch.Fetcher
	logger  *slog.Logger
	gate    *Gate

	maxDepth       int
	maxPages       int
	delay          time.Duration
	restrictDomain bool
	focusMode      bool
	ignorePatterns []string
	followPatterns []string
	concurrency    int
	onProgress     func(percent string)

	mu    sync.Mutex
	state State
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithMaxDepth sets how many link hops to follow from the start URL.
// Zero mirrors only the start page.
func WithMaxDepth(depth int) SessionOption {
	return func(s *Session) {
		s.maxDepth = depth
	}
}

// WithMaxPages caps the total number of pages fetched.
func WithMaxPages(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.maxPages = n
		}
	}
}

// WithDelay sets the politeness delay between page fetches.
func WithDelay(d time.Duration) SessionOption {
	return func(s *Session) {
		s.delay = d
	}
}

// WithRestrictDomain limits the crawl to the start URL's host.
func WithRestrictDomain(restrict bool) SessionOption {
	return func(s *Session) {
		s.restrictDomain = restrict
	}
}

// WithFocusMode limits the crawl to paths under the start URL's
// directory.
func WithFocusMode(focus bool) SessionOption {
	return func(s *Session) {
		s.focusMode = focus
	}
}

// WithIgnorePatterns sets glob patterns for paths to skip.
func WithIgnorePatterns(patterns []string) SessionOption {
	return func(s *Session) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts the crawl to paths matching a pattern.
func WithFollowPatterns(patterns []string) SessionOption {
	return func(s *Session) {
		s.followPatterns = patterns
	}
}

// WithConcurrency sets how many pages are localized at once.
func WithConcurrency(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithOnProgress sets a callback invoked with percentage strings like
// "42%" as the run advances. At depth zero progress counts localized
// elements on the single page; at greater depths it counts pages.
func WithOnProgress(fn func(percent string)) SessionOption {
	return func(s *Session) {
		s.onProgress = fn
	}
}

// WithGate sets the gate that serializes this session's runs. Sessions
// without an explicit gate share the process-wide default.
func WithGate(g *Gate) SessionOption {
	return func(s *Session) {
		s.gate = g
	}
}

// WithSessionLogger sets the logger for run diagnostics.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a Session using fetcher for all page and resource
// requests.
func NewSession(fetcher *fetch.Fetcher, opts ...SessionOption) *Session {
	s := &Session{
		fetcher:        fetcher,
		logger:         slog.Default(),
		gate:           DefaultGate(),
		maxDepth:       config.DefaultDepth,
		maxPages:       config.DefaultMaxPages,
		delay:          config.DefaultCrawlDelay,
		restrictDomain: true,
		concurrency:    localize.DefaultConcurrency,
		state:          StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the session's current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.logger.Debug("session state changed", "state", state.String())
}

// Mirror crawls startURL, localizes every discovered page, and returns
// the assembled archive with its report.
//
// Only three failures abort a run: a busy gate, a start URL that can't
// be crawled at all, and archive serialization. Everything else is
// skip-and-continue: failed pages and resources are logged, counted in
// the report, and left out of the archive. When ctx expires mid-run
// the archive holds everything fetched so far and the report is marked
// timed out.
func (s *Session) Mirror(ctx context.Context, startURL string) (*Result, error) {
	if !s.gate.Acquire() {
		return nil, ErrMirrorInProgress
	}
	defer s.gate.Release()

	started := time.Now()
	s.setState(StateCrawling)

	spider := crawler.NewSpider(s.fetcher,
		crawler.WithMaxDepth(s.maxDepth),
		crawler.WithMaxPages(s.maxPages),
		crawler.WithDelay(s.delay),
		crawler.WithRestrictDomain(s.restrictDomain),
		crawler.WithFocusMode(s.focusMode),
		crawler.WithIgnorePatterns(s.ignorePatterns),
		crawler.WithFollowPatterns(s.followPatterns),
		crawler.WithSpiderLogger(s.logger),
	)

	pages, crawlErr := spider.Crawl(ctx, startURL)
	timedOut := errors.Is(crawlErr, context.DeadlineExceeded) || errors.Is(crawlErr, context.Canceled)
	if crawlErr != nil && !timedOut {
		s.setState(StateDone)
		return nil, crawlErr
	}
	if len(pages) == 0 {
		s.setState(StateDone)
		if timedOut {
			return nil, crawlErr
		}
		return nil, ErrNoPages
	}

	s.setState(StateLocalizing)

	builder := archive.NewBuilder()
	registry := localize.NewRegistry()
	localizer := localize.NewLocalizer(s.fetcher, builder, registry,
		localize.WithLogger(s.logger))

	tracker, onUnit := s.newTracker(localizer, pages)

	var mu sync.Mutex
	var resources []*model.ResourceEntry

	// Pages localize concurrently; within each page the phases still
	// run in order. The builder and registry are both concurrency-safe.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, page := range pages {
		g.Go(func() error {
			localized, entries, err := localizer.LocalizePage(gctx, page.Raw, page.URL, onUnit)
			if err != nil {
				// Unparsable page: archive the raw bytes unmodified.
				s.logger.Warn("page localization failed, storing raw page",
					"url", page.URL, "error", err)
				localized = page.Raw
			}
			page.Localized = localized
			if path, stored := builder.AddPage(page.Title, s.maxDepth, localized); !stored {
				s.logger.Debug("page title collision, keeping first page",
					"url", page.URL, "path", path)
			}

			mu.Lock()
			resources = append(resources, entries...)
			mu.Unlock()

			if onUnit == nil {
				tracker.Increment()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil || ctx.Err() != nil {
		// Context expired mid-localization. Keep what we have.
		timedOut = true
	}

	s.setState(StatePackaging)

	blob, err := builder.Bytes()
	if err != nil {
		s.setState(StateDone)
		return nil, err
	}

	report := &model.MirrorReport{
		StartURL:     startURL,
		Depth:        s.maxDepth,
		ArchiveName:  archive.SuggestedName(startURL),
		ArchiveBytes: int64(len(blob)),
		Pages:        pages,
		Resources:    resources,
		StartedAt:    started,
		FinishedAt:   time.Now(),
		TimedOut:     timedOut,
	}

	s.setState(StateDone)
	s.logger.Info("mirror complete",
		"start_url", startURL,
		"pages", len(pages),
		"resources", len(resources),
		"archive_bytes", report.ArchiveBytes,
		"timed_out", timedOut,
	)

	return &Result{Archive: blob, Report: report}, nil
}

// newTracker builds the progress tracker for this run. Depth-zero runs
// count individual localized elements for fine-grained progress;
// link-following runs count whole pages, however many were found.
func (s *Session) newTracker(localizer *localize.Localizer, pages []*model.Page) (*progress.Tracker, func()) {
	var opts []progress.Option
	if s.onProgress != nil {
		opts = append(opts, progress.WithOnUpdate(s.onProgress))
	}

	if s.maxDepth == 0 {
		total := localizer.CountResources(pages[0].Raw, pages[0].URL)
		tracker := progress.NewTracker(total, opts...)
		return tracker, tracker.Increment
	}

	tracker := progress.NewTracker(len(pages), opts...)
	return tracker, nil
}
