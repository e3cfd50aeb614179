package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/webmirror/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting that pipes cleanly to files or other tools.
type SimpleWriter struct {
	baseWriter

	// verbose enables per-page and per-resource detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.MirrorReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeArchive(&sb, report)
	w.writeResources(&sb, report)
	if w.verbose {
		w.writePages(&sb, report)
		w.writeSkipped(&sb, report)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.MirrorReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         WEBMIRROR REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Start URL:  %s\n", report.StartURL))
	sb.WriteString(fmt.Sprintf("Depth:      %d\n", report.Depth))
	sb.WriteString(fmt.Sprintf("Started:    %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:   %s\n", report.Duration().Round(10*time.Millisecond)))

	if report.TimedOut {
		sb.WriteString("Status:     TIMED OUT (partial archive)\n")
	} else {
		sb.WriteString("Status:     Complete\n")
	}

	sb.WriteString("\n")
}

// writeArchive writes the archive summary section.
func (w *SimpleWriter) writeArchive(sb *strings.Builder, report *model.MirrorReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("ARCHIVE\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  Name:  %s\n", report.ArchiveName))
	sb.WriteString(fmt.Sprintf("  Size:  %d bytes\n", report.ArchiveBytes))
	sb.WriteString(fmt.Sprintf("  Pages: %d\n", len(report.Pages)))
	sb.WriteString("\n")
}

// writeResources writes the per-kind resource summary.
func (w *SimpleWriter) writeResources(sb *strings.Builder, report *model.MirrorReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("RESOURCES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	counts := report.ResourceCounts()
	for _, kind := range model.Kinds() {
		sb.WriteString(fmt.Sprintf("  %-7s %d\n", strings.ToUpper(string(kind))+":", counts[kind]))
	}
	if skipped := report.SkippedResources(); skipped > 0 {
		sb.WriteString(fmt.Sprintf("\n  SKIPPED: %d (fetch failed)\n", skipped))
	}
	sb.WriteString("\n")
}

// writePages writes the localized page list.
func (w *SimpleWriter) writePages(sb *strings.Builder, report *model.MirrorReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("PAGES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, page := range report.Pages {
		sb.WriteString(fmt.Sprintf("  [%d] %s\n", page.Depth, page.URL))
	}
	sb.WriteString("\n")
}

// writeSkipped writes the list of resources whose fetch failed.
func (w *SimpleWriter) writeSkipped(sb *strings.Builder, report *model.MirrorReport) {
	skipped := make([]*model.ResourceEntry, 0, len(report.Resources))
	for _, res := range report.Resources {
		if res.Failed {
			skipped = append(skipped, res)
		}
	}
	if len(skipped) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SKIPPED RESOURCES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, res := range skipped {
		sb.WriteString(fmt.Sprintf("  [%s] %s\n", res.Kind, res.OriginalURL))
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by webmirror\n")
	sb.WriteString("https://github.com/nao1215/webmirror\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
