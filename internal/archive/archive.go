package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Builder collects files for a mirror run and serializes them into a
// single zip archive. It is safe for concurrent use; when the same
// path is added twice the first write wins.
type Builder struct {
	mu      sync.Mutex
	entries []entry
	seen    map[string]bool
}

type entry struct {
	path string
	data []byte
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		seen: make(map[string]bool),
	}
}

// Add stores data at path inside the archive. Later writes to an
// already-stored path are ignored.
func (b *Builder) Add(path string, data []byte) {
	b.add(path, data)
}

func (b *Builder) add(path string, data []byte) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.seen[path] {
		return false
	}
	b.seen[path] = true
	b.entries = append(b.entries, entry{path: path, data: data})
	return true
}

// AddPage stores a rendered HTML page. In a single-page run (runDepth
// zero) the page sits at the archive root; when the run follows links
// every page, the start page included, goes under the html directory.
// It returns the path used inside the archive and whether the page was
// stored, false when an earlier page already claimed the path.
func (b *Builder) AddPage(title string, runDepth int, data []byte) (string, bool) {
	name := title
	if !strings.HasSuffix(name, ".html") {
		name += ".html"
	}
	path := name
	if runDepth > 0 {
		path = "html/" + name
	}
	return path, b.add(path, data)
}

// Len returns the number of stored files.
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// TotalBytes returns the sum of all stored file sizes before
// compression.
func (b *Builder) TotalBytes() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	var n int64
	for _, e := range b.entries {
		n += int64(len(e.data))
	}
	return n
}

// Bytes serializes the collected files into a zip archive.
func (b *Builder) Bytes() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range b.entries {
		w, err := zw.Create(e.path)
		if err != nil {
			return nil, fmt.Errorf("failed to create archive entry %s: %w", e.path, err)
		}
		if _, err := w.Write(e.data); err != nil {
			return nil, fmt.Errorf("failed to write archive entry %s: %w", e.path, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// SuggestedName derives an archive file name from the mirrored site's
// host, falling back to "mirror" when the URL has none.
func SuggestedName(startURL string) string {
	host := "mirror"
	if u, err := url.Parse(startURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return host + ".zip"
}
