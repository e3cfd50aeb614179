package database

import (
	"context"
	"testing"
	"time"

	"github.com/nao1215/webmirror/internal/model"
)

func testReport(startURL string) *model.MirrorReport {
	now := time.Now().UTC().Truncate(time.Second)
	return &model.MirrorReport{
		StartURL:     startURL,
		Depth:        1,
		ArchiveName:  "ex.com.zip",
		ArchiveBytes: 2048,
		Pages: []*model.Page{
			{URL: startURL, Title: "ex.com_index", Depth: 0},
			{URL: startURL + "about", Title: "ex.com_about", Depth: 1},
		},
		Resources: []*model.ResourceEntry{
			{Kind: model.KindImage, OriginalURL: startURL + "logo.png", LocalName: "logo.png", LocalPath: "img/logo.png", Size: 128},
			{Kind: model.KindStylesheet, OriginalURL: startURL + "site.css", Failed: true},
		},
		StartedAt:  now.Add(-time.Minute),
		FinishedAt: now,
	}
}

func TestOpenRequiresExistingDatabase(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := Open(dir, Options{CreateIfNotExists: false}); err == nil {
		t.Error("expected error when database does not exist")
	}

	hdb, err := Open(dir, DefaultOptions())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := hdb.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	// Now it exists, so opening without create must succeed.
	hdb, err = Open(dir, Options{CreateIfNotExists: false})
	if err != nil {
		t.Fatalf("Open of existing database failed: %v", err)
	}
	defer hdb.Close()
}

func TestInsertAndListSessions(t *testing.T) {
	t.Parallel()

	hdb, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer hdb.Close()

	ctx := context.Background()
	id, err := hdb.InsertSession(ctx, testReport("https://ex.com/"))
	if err != nil {
		t.Fatalf("InsertSession failed: %v", err)
	}
	if id == 0 {
		t.Error("expected non-zero session ID")
	}
	if _, err := hdb.InsertSession(ctx, testReport("https://other.example/")); err != nil {
		t.Fatalf("InsertSession failed: %v", err)
	}

	all, err := hdb.ListSessions(ctx, "")
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(all))
	}

	filtered, err := hdb.ListSessions(ctx, "https://ex.com/")
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(filtered) != 1 {
		t.Fatalf("expected 1 session for start URL, got %d", len(filtered))
	}

	rec := filtered[0]
	if rec.StartURL != "https://ex.com/" {
		t.Errorf("StartURL = %q", rec.StartURL)
	}
	if rec.PageCount != 2 {
		t.Errorf("PageCount = %d, want 2", rec.PageCount)
	}
	if rec.ResourceCount != 2 {
		t.Errorf("ResourceCount = %d, want 2", rec.ResourceCount)
	}
	if rec.SkippedCount != 1 {
		t.Errorf("SkippedCount = %d, want 1", rec.SkippedCount)
	}
	if rec.ArchiveName != "ex.com.zip" {
		t.Errorf("ArchiveName = %q", rec.ArchiveName)
	}
	if rec.StartedAt.IsZero() || rec.FinishedAt.IsZero() {
		t.Error("expected parsed timestamps")
	}
}

func TestGetReportByID(t *testing.T) {
	t.Parallel()

	hdb, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer hdb.Close()

	ctx := context.Background()
	id, err := hdb.InsertSession(ctx, testReport("https://ex.com/"))
	if err != nil {
		t.Fatalf("InsertSession failed: %v", err)
	}

	report, err := hdb.GetReportByID(ctx, id)
	if err != nil {
		t.Fatalf("GetReportByID failed: %v", err)
	}
	if report == nil {
		t.Fatal("expected report, got nil")
	}
	if report.StartURL != "https://ex.com/" {
		t.Errorf("StartURL = %q", report.StartURL)
	}
	if len(report.Pages) != 2 || len(report.Resources) != 2 {
		t.Errorf("report contents not round-tripped: %d pages, %d resources",
			len(report.Pages), len(report.Resources))
	}

	missing, err := hdb.GetReportByID(ctx, id+100)
	if err != nil {
		t.Fatalf("GetReportByID failed: %v", err)
	}
	if missing != nil {
		t.Error("expected nil report for unknown ID")
	}
}

func TestHasRecentSession(t *testing.T) {
	t.Parallel()

	hdb, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer hdb.Close()

	ctx := context.Background()
	if _, err := hdb.InsertSession(ctx, testReport("https://ex.com/")); err != nil {
		t.Fatalf("InsertSession failed: %v", err)
	}

	recent, err := hdb.HasRecentSession(ctx, "https://ex.com/", time.Hour)
	if err != nil {
		t.Fatalf("HasRecentSession failed: %v", err)
	}
	if !recent {
		t.Error("expected a recent session")
	}

	recent, err = hdb.HasRecentSession(ctx, "https://never.example/", time.Hour)
	if err != nil {
		t.Fatalf("HasRecentSession failed: %v", err)
	}
	if recent {
		t.Error("expected no recent session for unknown URL")
	}
}
