package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/webmirror/internal/config"
)

// TestNewMirrorCmd tests the mirror command creation.
func TestNewMirrorCmd(t *testing.T) {
	t.Parallel()

	cmd := NewMirrorCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if !strings.HasPrefix(cmd.Use, "mirror") {
			t.Errorf("expected use to start with 'mirror', got %q", cmd.Use)
		}
	})

	t.Run("has expected flags", func(t *testing.T) {
		t.Parallel()

		flags := map[string]string{
			"depth":      "d",
			"max-pages":  "p",
			"timeout":    "t",
			"delay":      "",
			"focus":      "f",
			"external":   "",
			"proxy":      "x",
			"batch":      "b",
			"output":     "o",
			"markdown":   "m",
			"report":     "",
			"no-history": "",
			"config":     "c",
		}
		for name, shorthand := range flags {
			flag := cmd.Flags().Lookup(name)
			if flag == nil {
				t.Errorf("missing flag %q", name)
				continue
			}
			if flag.Shorthand != shorthand {
				t.Errorf("flag %q shorthand = %q, want %q", name, flag.Shorthand, shorthand)
			}
		}
	})
}

// TestBuildConfig tests flag-to-config translation.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cmd := NewMirrorCmd()
		if err := cmd.ParseFlags(nil); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, []string{"https://ex.com/"})
		if err != nil {
			t.Fatalf("buildConfig failed: %v", err)
		}

		if cfg.Depth != config.DefaultDepth {
			t.Errorf("Depth = %d, want default %d", cfg.Depth, config.DefaultDepth)
		}
		if cfg.MaxPages != config.DefaultMaxPages {
			t.Errorf("MaxPages = %d", cfg.MaxPages)
		}
		if cfg.Timeout != config.DefaultTimeout {
			t.Errorf("Timeout = %s", cfg.Timeout)
		}
		if !cfg.RestrictDomain {
			t.Error("RestrictDomain must default to true")
		}
		if len(cfg.StartURLs) != 1 || cfg.StartURLs[0] != "https://ex.com/" {
			t.Errorf("StartURLs = %v", cfg.StartURLs)
		}
	})

	t.Run("external flag lifts domain restriction", func(t *testing.T) {
		t.Parallel()

		cmd := NewMirrorCmd()
		if err := cmd.ParseFlags([]string{"--external", "--depth", "3"}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, []string{"https://ex.com/"})
		if err != nil {
			t.Fatalf("buildConfig failed: %v", err)
		}
		if cfg.RestrictDomain {
			t.Error("RestrictDomain must be false with --external")
		}
		if cfg.Depth != 3 {
			t.Errorf("Depth = %d, want 3", cfg.Depth)
		}
	})

	t.Run("explicit missing config file errors", func(t *testing.T) {
		t.Parallel()

		cmd := NewMirrorCmd()
		if err := cmd.ParseFlags([]string{"-c", filepath.Join(t.TempDir(), "nope.yaml")}); err != nil {
			t.Fatal(err)
		}
		if _, err := buildConfig(cmd, []string{"https://ex.com/"}); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("loads site config file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "conf.yaml")
		content := "sites:\n  ex.com:\n    depth: 2\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cmd := NewMirrorCmd()
		if err := cmd.ParseFlags([]string{"-c", path}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, []string{"https://ex.com/"})
		if err != nil {
			t.Fatalf("buildConfig failed: %v", err)
		}
		if got := cfg.SiteFor("ex.com").Depth; got != 2 {
			t.Errorf("site depth = %d, want 2", got)
		}
	})
}

// TestMirrorCmdRequiresStartURL tests the no-arguments error path.
func TestMirrorCmdRequiresStartURL(t *testing.T) {
	t.Parallel()

	cmd := NewMirrorCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--no-history"})

	err := cmd.Execute()
	if !errors.Is(err, config.ErrNoStartURL) {
		t.Errorf("expected ErrNoStartURL, got %v", err)
	}
}

// TestMirrorCmdEndToEnd mirrors a small test site through the CLI.
func TestMirrorCmdEndToEnd(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><img src="/logo.png"></body></html>`)
	})
	mux.HandleFunc("/logo.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		fmt.Fprint(w, "png-bytes")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	outDir := t.TempDir()
	reportPath := filepath.Join(t.TempDir(), "report.md")

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{
		"mirror",
		"--no-history",
		"--delay", "0s",
		"--timeout", (5 * time.Second).String(),
		"-o", outDir,
		"--markdown",
		"--report", reportPath,
		srv.URL + "/",
	})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("mirror command failed: %v", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), ".zip") {
		t.Fatalf("expected one zip archive in output dir, got %v", entries)
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !strings.Contains(string(data), "# Webmirror Report") {
		t.Error("report file missing markdown header")
	}
}
