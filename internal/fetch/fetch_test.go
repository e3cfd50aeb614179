package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestFetch tests the skip-and-continue fetch discipline.
func TestFetch(t *testing.T) {
	t.Parallel()

	t.Run("successful fetch returns body and content type", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/css")
			if _, err := w.Write([]byte("body { color: red }")); err != nil {
				t.Error(err)
			}
		}))
		defer srv.Close()

		f, err := New()
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		res := f.Fetch(context.Background(), srv.URL)
		if res.Failed {
			t.Fatal("expected success")
		}
		if string(res.Body) != "body { color: red }" {
			t.Errorf("unexpected body %q", res.Body)
		}
		if res.ContentType != "text/css" {
			t.Errorf("unexpected content type %q", res.ContentType)
		}
	})

	t.Run("non-2xx status degrades to Failed", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer srv.Close()

		f, err := New()
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		res := f.Fetch(context.Background(), srv.URL)
		if !res.Failed {
			t.Error("expected Failed for 404")
		}
		if res.StatusCode != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", res.StatusCode)
		}
	})

	t.Run("unreachable server degrades to Failed", func(t *testing.T) {
		t.Parallel()

		f, err := New(WithTimeout(500 * time.Millisecond))
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		res := f.Fetch(context.Background(), "http://127.0.0.1:1/nothing")
		if !res.Failed {
			t.Error("expected Failed for unreachable server")
		}
	})

	t.Run("malformed URL degrades to Failed", func(t *testing.T) {
		t.Parallel()

		f, err := New()
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		res := f.Fetch(context.Background(), "http://exa mple.com/")
		if !res.Failed {
			t.Error("expected Failed for malformed URL")
		}
	})

	t.Run("body is capped at max size", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := w.Write([]byte(strings.Repeat("x", 1000))); err != nil {
				t.Error(err)
			}
		}))
		defer srv.Close()

		f, err := New(WithMaxBodySize(100))
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		res := f.Fetch(context.Background(), srv.URL)
		if res.Failed {
			t.Fatal("expected success")
		}
		if len(res.Body) != 100 {
			t.Errorf("expected capped body of 100 bytes, got %d", len(res.Body))
		}
	})

	t.Run("user agent and extra headers are sent", func(t *testing.T) {
		t.Parallel()

		var gotUA, gotExtra string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			gotExtra = r.Header.Get("X-Custom")
		}))
		defer srv.Close()

		f, err := New(
			WithUserAgent("test-agent"),
			WithHeaders(map[string]string{"X-Custom": "yes"}),
		)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		if res := f.Fetch(context.Background(), srv.URL); res.Failed {
			t.Fatal("expected success")
		}
		if gotUA != "test-agent" {
			t.Errorf("expected custom user agent, got %q", gotUA)
		}
		if gotExtra != "yes" {
			t.Errorf("expected custom header, got %q", gotExtra)
		}
	})
}
