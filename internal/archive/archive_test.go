package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
)

// readZip unpacks a zip blob into a path-to-content map.
func readZip(t *testing.T, blob []byte) map[string]string {
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

func TestBuilderLayout(t *testing.T) {
	t.Parallel()

	t.Run("single page run keeps the page at the root", func(t *testing.T) {
		t.Parallel()

		b := NewBuilder()
		if got, stored := b.AddPage("ex.com_index", 0, []byte("<html>root</html>")); got != "ex.com_index.html" || !stored {
			t.Errorf("AddPage = (%q, %t), want (ex.com_index.html, true)", got, stored)
		}
		b.Add("img/logo.png", []byte("png"))
		b.Add("css/site.css", []byte("body{}"))

		blob, err := b.Bytes()
		if err != nil {
			t.Fatalf("Bytes failed: %v", err)
		}
		files := readZip(t, blob)

		want := map[string]string{
			"ex.com_index.html": "<html>root</html>",
			"img/logo.png":      "png",
			"css/site.css":      "body{}",
		}
		if len(files) != len(want) {
			t.Fatalf("expected %d files, got %d: %v", len(want), len(files), files)
		}
		for path, content := range want {
			if files[path] != content {
				t.Errorf("file %s = %q, want %q", path, files[path], content)
			}
		}
	})

	t.Run("link following run nests every page", func(t *testing.T) {
		t.Parallel()

		b := NewBuilder()
		if got, _ := b.AddPage("ex.com_index", 1, []byte("<html>root</html>")); got != "html/ex.com_index.html" {
			t.Errorf("AddPage start page path = %q, want html/ex.com_index.html", got)
		}
		if got, _ := b.AddPage("ex.com_about", 1, []byte("<html>about</html>")); got != "html/ex.com_about.html" {
			t.Errorf("AddPage linked page path = %q, want html/ex.com_about.html", got)
		}

		blob, err := b.Bytes()
		if err != nil {
			t.Fatalf("Bytes failed: %v", err)
		}
		for path := range readZip(t, blob) {
			if !strings.HasPrefix(path, "html/") {
				t.Errorf("page %s stored outside html/", path)
			}
		}
	})
}

func TestBuilderPageCollision(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	if _, stored := b.AddPage("ex.com_about", 1, []byte("first")); !stored {
		t.Fatal("first page must be stored")
	}
	if _, stored := b.AddPage("ex.com_about", 1, []byte("second")); stored {
		t.Error("colliding page must report stored = false")
	}
	blob, err := b.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	if got := readZip(t, blob)["html/ex.com_about.html"]; got != "first" {
		t.Errorf("colliding page = %q, want first write kept", got)
	}
}

func TestBuilderFirstWriteWins(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	b.Add("img/a.png", []byte("first"))
	b.Add("img/a.png", []byte("second"))

	if b.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", b.Len())
	}
	blob, err := b.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	if got := readZip(t, blob)["img/a.png"]; got != "first" {
		t.Errorf("img/a.png = %q, want first write kept", got)
	}
}

func TestBuilderConcurrent(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Add("img/shared.png", []byte("x"))
			b.Add("js/unique-"+string(rune('a'+i))+".js", []byte("y"))
		}()
	}
	wg.Wait()

	if got := b.Len(); got != 17 {
		t.Errorf("expected 17 entries, got %d", got)
	}
}

func TestSuggestedName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
	}{
		{url: "https://ex.com/docs/", want: "ex.com.zip"},
		{url: "http://sub.ex.com:8080/", want: "sub.ex.com:8080.zip"},
		{url: "not a url", want: "mirror.zip"},
	}
	for _, tt := range tests {
		if got := SuggestedName(tt.url); got != tt.want {
			t.Errorf("SuggestedName(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
