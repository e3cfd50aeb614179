package localize

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/webmirror/internal/fetch"
	"github.com/nao1215/webmirror/internal/model"
)

// Getter fetches resource bytes. Implemented by *fetch.Fetcher.
type Getter interface {
	Fetch(ctx context.Context, url string) fetch.Result
}

// Sink receives finished archive entries.
// Add must be safe for concurrent use; phases fetch concurrently and pages
// are localized concurrently at depth >= 1.
type Sink interface {
	Add(path string, data []byte)
}

// DefaultConcurrency is the per-phase fetch concurrency.
const DefaultConcurrency = 8

// Localizer rewrites a page's resource references to archive-relative paths
// and schedules the referenced bytes into the archive.
type Localizer struct {
	resolver    *Resolver
	registry    *Registry
	fetcher     Getter
	sink        Sink
	logger      *slog.Logger
	concurrency int
}

// LocalizerOption configures a Localizer.
type LocalizerOption func(*Localizer)

// WithLogger sets the logger for element-level diagnostics.
func WithLogger(logger *slog.Logger) LocalizerOption {
	return func(l *Localizer) {
		l.logger = logger
	}
}

// WithConcurrency sets the per-phase fetch concurrency.
func WithConcurrency(n int) LocalizerOption {
	return func(l *Localizer) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// NewLocalizer creates a Localizer. The registry is owned by the enclosing
// mirror session and shared across all pages of that session.
func NewLocalizer(fetcher Getter, sink Sink, registry *Registry, opts ...LocalizerOption) *Localizer {
	l := &Localizer{
		resolver:    NewResolver(),
		registry:    registry,
		fetcher:     fetcher,
		sink:        sink,
		logger:      slog.Default(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// target is one rewritable attribute found during a phase's collect pass.
type target struct {
	node    *html.Node
	attrIdx int
	ref     string
}

// phase describes one resource kind's collect/filter/name rules.
// Phases run in a fixed order and each one re-parses the buffer, so the
// previous phase's rewrites are always visible.
type phase struct {
	kind model.ResourceKind

	// collect finds candidate targets in a parsed document.
	collect func(*html.Node) []*target

	// filter, when set, drops targets after resolution (PDF anchors).
	filter func(resolved string) bool

	// localName derives the archive file name from the resolved URL.
	localName func(resolved string) string
}

func phases() []phase {
	return []phase{
		{
			kind:      model.KindPDF,
			collect:   func(doc *html.Node) []*target { return collectAttr(doc, "a", "href") },
			filter:    func(resolved string) bool { return strings.Contains(strings.ToLower(resolved), ".pdf") },
			localName: SanitizeName,
		},
		{
			kind:      model.KindImage,
			collect:   func(doc *html.Node) []*target { return collectAttr(doc, "img", "src") },
			localName: SanitizeName,
		},
		{
			kind:      model.KindStylesheet,
			collect:   collectStylesheets,
			localName: func(resolved string) string { return ensureSuffix(SanitizeName(resolved), ".css") },
		},
		{
			kind:      model.KindScript,
			collect:   func(doc *html.Node) []*target { return collectAttr(doc, "script", "src") },
			localName: func(resolved string) string { return ensureSuffix(SanitizeName(resolved), ".js") },
		},
		{
			kind:      model.KindVideo,
			collect:   func(doc *html.Node) []*target { return collectAttr(doc, "iframe", "src") },
			localName: SanitizeName,
		},
	}
}

// LocalizePage rewrites all resource references on a page and schedules the
// referenced bytes into the archive. It returns the rewritten HTML and one
// ResourceEntry per newly scheduled resource (failed fetches included).
//
// onUnit, when non-nil, is invoked once per processed element; the mirror
// session uses it for per-element progress at depth 0.
//
// The returned error is page-fatal only (unparsable buffer); element-level
// failures are absorbed.
func (l *Localizer) LocalizePage(ctx context.Context, page []byte, pageURL string, onUnit func()) ([]byte, []*model.ResourceEntry, error) {
	buf := page
	var entries []*model.ResourceEntry

	for _, ph := range phases() {
		out, phaseEntries, err := l.runPhase(ctx, ph, buf, pageURL, onUnit)
		if err != nil {
			return nil, entries, err
		}
		buf = out
		entries = append(entries, phaseEntries...)
	}

	return buf, entries, nil
}

// job pairs a target with its scheduling decision.
type job struct {
	t         *target
	resolved  string
	localPath string

	// entry is non-nil when this job won the registry's check-and-set and
	// is responsible for fetching the resource.
	entry *model.ResourceEntry
}

// runPhase executes one resource-kind phase: a single parse, concurrent
// fetches, then one authoritative rewrite pass committed via render.
func (l *Localizer) runPhase(ctx context.Context, ph phase, page []byte, pageURL string, onUnit func()) ([]byte, []*model.ResourceEntry, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, nil, err
	}

	jobs := make([]*job, 0)
	for _, t := range ph.collect(doc) {
		if ShouldIgnore(t.ref) {
			continue
		}

		resolved, err := l.resolver.Resolve(t.ref, pageURL)
		if err != nil {
			// Leave the element unmodified; its siblings still process.
			l.logger.Debug("reference left unmodified",
				"kind", ph.kind.String(), "ref", t.ref, "error", err)
			continue
		}
		if ph.filter != nil && !ph.filter(resolved) {
			continue
		}

		name := ph.localName(resolved)
		j := &job{t: t, resolved: resolved, localPath: ph.kind.String() + "/" + name}
		if l.registry.ShouldSchedule(ph.kind, name) {
			j.entry = &model.ResourceEntry{
				Kind:        ph.kind,
				OriginalURL: resolved,
				LocalName:   name,
				LocalPath:   j.localPath,
			}
		}
		jobs = append(jobs, j)
	}

	// Fetch every newly scheduled resource concurrently. Sub-entries come
	// from stylesheet bodies, whose url(...) references are localized too.
	var mu sync.Mutex
	var subEntries []*model.ResourceEntry

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for _, j := range jobs {
		if j.entry == nil {
			continue
		}
		g.Go(func() error {
			res := l.fetcher.Fetch(gctx, j.resolved)
			if res.Failed {
				// The tag is still rewritten below; only the archive
				// entry is omitted. A dangling reference is acceptable,
				// aborting the crawl is not.
				j.entry.Failed = true
				return nil
			}

			body := res.Body
			if ph.kind == model.KindStylesheet {
				rewritten, cssEntries := l.LocalizeCSS(gctx, string(body), j.resolved)
				body = []byte(rewritten)
				mu.Lock()
				subEntries = append(subEntries, cssEntries...)
				mu.Unlock()
			}

			j.entry.Size = int64(len(body))
			l.sink.Add(j.localPath, body)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	// Single authoritative rewrite pass over this phase's parse. All edits
	// commit before the next phase re-parses the buffer.
	for _, j := range jobs {
		j.t.node.Attr[j.t.attrIdx].Val = "../" + j.localPath
		if onUnit != nil {
			onUnit()
		}
	}

	var out bytes.Buffer
	if err := html.Render(&out, doc); err != nil {
		return nil, nil, err
	}

	entries := make([]*model.ResourceEntry, 0, len(jobs)+len(subEntries))
	for _, j := range jobs {
		if j.entry != nil {
			entries = append(entries, j.entry)
		}
	}
	entries = append(entries, subEntries...)

	return out.Bytes(), entries, nil
}

// CountResources pre-scans a page and returns the number of localizable
// elements: PDF anchors, images, stylesheet links, scripts with src, and
// video iframes. Used as the exact progress total in single-page mode.
func (l *Localizer) CountResources(page []byte, pageURL string) int {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return 0
	}

	count := 0
	for _, ph := range phases() {
		for _, t := range ph.collect(doc) {
			if ShouldIgnore(t.ref) {
				continue
			}
			resolved, err := l.resolver.Resolve(t.ref, pageURL)
			if err != nil {
				continue
			}
			if ph.filter != nil && !ph.filter(resolved) {
				continue
			}
			count++
		}
	}
	return count
}

// collectAttr walks the document and returns a target for every element of
// the given name carrying a non-empty attribute.
func collectAttr(doc *html.Node, element, attr string) []*target {
	var targets []*target
	walk(doc, func(n *html.Node) {
		if n.Data != element {
			return
		}
		for i, a := range n.Attr {
			if a.Key == attr && strings.TrimSpace(a.Val) != "" {
				targets = append(targets, &target{node: n, attrIdx: i, ref: a.Val})
				return
			}
		}
	})
	return targets
}

// collectStylesheets returns a target for every <link rel="stylesheet">.
func collectStylesheets(doc *html.Node) []*target {
	var targets []*target
	walk(doc, func(n *html.Node) {
		if n.Data != "link" || !isStylesheetRel(getAttr(n, "rel")) {
			return
		}
		for i, a := range n.Attr {
			if a.Key == "href" && strings.TrimSpace(a.Val) != "" {
				targets = append(targets, &target{node: n, attrIdx: i, ref: a.Val})
				return
			}
		}
	})
	return targets
}

// isStylesheetRel reports whether a rel attribute names a stylesheet.
// rel is a space-separated token list ("alternate stylesheet" counts).
func isStylesheetRel(rel string) bool {
	for _, token := range strings.Fields(strings.ToLower(rel)) {
		if token == "stylesheet" {
			return true
		}
	}
	return false
}

// walk applies fn to every element node under n.
func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
