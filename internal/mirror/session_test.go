package mirror

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nao1215/webmirror/internal/fetch"
)

// newTestSite serves a two-page site with shared resources.
func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head>
			<link rel="stylesheet" href="/assets/site.css">
			<script src="/assets/app.js"></script>
		</head><body>
			<img src="/assets/logo.png">
			<a href="/files/guide.pdf">guide</a>
			<a href="/about">about</a>
		</body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>
			<img src="/assets/logo.png">
			<img src="/assets/team.png">
		</body></html>`)
	})
	mux.HandleFunc("/assets/site.css", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/css")
		fmt.Fprint(w, `body { background: url('/assets/bg.png'); }`)
	})
	for _, path := range []string{"/assets/logo.png", "/assets/team.png", "/assets/bg.png"} {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			fmt.Fprint(w, "png-bytes")
		})
	}
	mux.HandleFunc("/assets/app.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		fmt.Fprint(w, "console.log('hi')")
	})
	mux.HandleFunc("/files/guide.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF-1.4")
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestSession(t *testing.T, opts ...SessionOption) *Session {
	t.Helper()

	f, err := fetch.New()
	if err != nil {
		t.Fatalf("fetch.New failed: %v", err)
	}
	opts = append([]SessionOption{WithGate(NewGate()), WithDelay(0)}, opts...)
	return NewSession(f, opts...)
}

// archiveFiles unpacks a zip blob into a path-to-content map.
func archiveFiles(t *testing.T, blob []byte) map[string]string {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	files := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("failed to read %s: %v", f.Name, err)
		}
		rc.Close()
		files[f.Name] = string(data)
	}
	return files
}

func TestMirrorSinglePage(t *testing.T) {
	t.Parallel()

	srv := newTestSite(t)

	var percents []string
	s := newTestSession(t,
		WithMaxDepth(0),
		WithOnProgress(func(p string) { percents = append(percents, p) }),
	)

	result, err := s.Mirror(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatalf("Mirror failed: %v", err)
	}
	if got := s.State(); got != StateDone {
		t.Errorf("State() = %s, want done", got)
	}

	files := archiveFiles(t, result.Archive)

	var htmlPath, htmlBody string
	for path, body := range files {
		if strings.HasSuffix(path, ".html") {
			htmlPath, htmlBody = path, body
		}
	}
	if htmlPath == "" {
		t.Fatal("archive has no HTML entry")
	}
	if strings.Contains(htmlPath, "/") {
		t.Errorf("single-page HTML must sit at the archive root, got %s", htmlPath)
	}

	for _, want := range []string{
		`src="../img/logo.png"`,
		`href="../css/site.css"`,
		`src="../js/app.js"`,
		`href="../pdf/guide.pdf"`,
	} {
		if !strings.Contains(htmlBody, want) {
			t.Errorf("page missing rewritten reference %s", want)
		}
	}

	for _, path := range []string{"img/logo.png", "css/site.css", "js/app.js", "pdf/guide.pdf", "img/bg.png"} {
		if _, ok := files[path]; !ok {
			t.Errorf("archive missing %s", path)
		}
	}

	// Nested stylesheet reference rewritten relative to the css dir.
	if !strings.Contains(files["css/site.css"], "'../img/bg.png'") {
		t.Errorf("stylesheet not localized: %q", files["css/site.css"])
	}

	if len(percents) == 0 || percents[len(percents)-1] != "100%" {
		t.Errorf("expected progress to reach 100%%, got %v", percents)
	}
	for i := 1; i < len(percents); i++ {
		prev := strings.TrimSuffix(percents[i-1], "%")
		cur := strings.TrimSuffix(percents[i], "%")
		if len(cur) < len(prev) || (len(cur) == len(prev) && cur < prev) {
			t.Errorf("progress went backwards: %v", percents)
		}
	}
}

func TestMirrorDepthOne(t *testing.T) {
	t.Parallel()

	srv := newTestSite(t)

	s := newTestSession(t, WithMaxDepth(1))
	result, err := s.Mirror(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatalf("Mirror failed: %v", err)
	}

	files := archiveFiles(t, result.Archive)

	var pageCount int
	for path := range files {
		if !strings.HasSuffix(path, ".html") {
			continue
		}
		pageCount++
		if !strings.HasPrefix(path, "html/") {
			t.Errorf("page %s stored outside html/ in a link-following run", path)
		}
	}
	if pageCount != 2 {
		t.Errorf("expected 2 html/ entries, got %d", pageCount)
	}

	// logo.png is referenced by both pages but stored once.
	logoEntries := 0
	for _, res := range result.Report.Resources {
		if strings.HasSuffix(res.OriginalURL, "logo.png") {
			logoEntries++
		}
	}
	if logoEntries != 1 {
		t.Errorf("shared image scheduled %d times, want 1", logoEntries)
	}

	if len(result.Report.Pages) != 2 {
		t.Errorf("expected 2 pages in report, got %d", len(result.Report.Pages))
	}
	if result.Report.ArchiveBytes != int64(len(result.Archive)) {
		t.Errorf("ArchiveBytes = %d, archive is %d bytes",
			result.Report.ArchiveBytes, len(result.Archive))
	}
}

func TestMirrorProgressCountsPagesWhenFollowingLinks(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>
			<img src="/a.png"><img src="/b.png"><img src="/c.png">
		</body></html>`)
	})
	for _, path := range []string{"/a.png", "/b.png", "/c.png"} {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			fmt.Fprint(w, "png-bytes")
		})
	}

	// The crawl finds no links, so a single page comes back. Progress
	// must still count pages, not the page's elements.
	var percents []string
	s := newTestSession(t,
		WithMaxDepth(1),
		WithOnProgress(func(p string) { percents = append(percents, p) }),
	)
	if _, err := s.Mirror(context.Background(), srv.URL+"/"); err != nil {
		t.Fatalf("Mirror failed: %v", err)
	}

	if len(percents) != 1 || percents[0] != "100%" {
		t.Errorf("expected a single 100%% update, got %v", percents)
	}
}

func TestMirrorGate(t *testing.T) {
	t.Parallel()

	srv := newTestSite(t)

	gate := NewGate()
	s := newTestSession(t, WithGate(gate))

	if !gate.Acquire() {
		t.Fatal("failed to acquire open gate")
	}
	if _, err := s.Mirror(context.Background(), srv.URL+"/"); !errors.Is(err, ErrMirrorInProgress) {
		t.Errorf("expected ErrMirrorInProgress, got %v", err)
	}
	gate.Release()

	if _, err := s.Mirror(context.Background(), srv.URL+"/"); err != nil {
		t.Errorf("Mirror after release failed: %v", err)
	}
	if gate.InProgress() {
		t.Error("gate must be released after the run")
	}
}

func TestMirrorCancelledContext(t *testing.T) {
	t.Parallel()

	srv := newTestSite(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newTestSession(t)
	if _, err := s.Mirror(ctx, srv.URL+"/"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if s.gate.InProgress() {
		t.Error("gate must be released on the error path")
	}
}

func TestMirrorSkipsFailedResources(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><img src="/missing.png"></body></html>`)
	})

	s := newTestSession(t)
	result, err := s.Mirror(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatalf("Mirror failed: %v", err)
	}

	if got := result.Report.SkippedResources(); got != 1 {
		t.Errorf("SkippedResources() = %d, want 1", got)
	}
	if _, ok := archiveFiles(t, result.Archive)["img/missing.png"]; ok {
		t.Error("failed resource must not be stored")
	}
}

func TestBatchProcessor(t *testing.T) {
	t.Parallel()

	srv := newTestSite(t)

	f, err := fetch.New()
	if err != nil {
		t.Fatalf("fetch.New failed: %v", err)
	}
	bp := NewBatchProcessor(func() *Session {
		return NewSession(f, WithGate(NewGate()), WithDelay(0))
	}, WithBatchConcurrency(2))

	urls := []string{srv.URL + "/", srv.URL + "/about", "http://127.0.0.1:1/unreachable"}
	results, err := bp.ProcessBatch(context.Background(), urls)
	if err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 result slots, got %d", len(results))
	}
	if results[0] == nil || results[1] == nil {
		t.Error("expected results for reachable sites")
	}
	if results[2] != nil {
		t.Error("expected nil slot for unreachable site")
	}
}
