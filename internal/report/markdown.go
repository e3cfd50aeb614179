package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/webmirror/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter

	titler cases.Caser
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		titler:     cases.Title(language.English),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.MirrorReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeArchive(md, report)
	w.writeResources(md, report)
	w.writeSkipped(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.MirrorReport) {
	md.H1("Webmirror Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Start URL", "`" + report.StartURL + "`"},
			{"Depth", strconv.Itoa(report.Depth)},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().String()},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.MirrorReport) string {
	if report.TimedOut {
		return "⚠️ Timed Out (partial archive)"
	}
	return "✅ Complete"
}

// writeArchive writes the archive summary section.
func (w *MarkdownWriter) writeArchive(md *markdown.Markdown, report *model.MirrorReport) {
	md.H2("Archive")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Name", "`" + report.ArchiveName + "`"},
			{"Size", strconv.FormatInt(report.ArchiveBytes, 10) + " bytes"},
			{"Pages", strconv.Itoa(len(report.Pages))},
		},
	})
	md.PlainText("")
}

// writeResources writes the per-kind resource summary with a pie chart.
func (w *MarkdownWriter) writeResources(md *markdown.Markdown, report *model.MirrorReport) {
	md.H2("Resources")
	md.PlainText("")

	counts := report.ResourceCounts()
	rows := make([][]string, 0, len(counts)+1)
	total := 0
	for _, kind := range model.Kinds() {
		rows = append(rows, []string{w.titler.String(string(kind)), strconv.Itoa(counts[kind])})
		total += counts[kind]
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(total) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if total > 0 {
		w.writePieChart(md, counts)
	}
}

// writePieChart writes a mermaid pie chart for the resource distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts map[model.ResourceKind]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Resource Distribution"),
		piechart.WithShowData(true),
	)

	for _, kind := range model.Kinds() {
		if counts[kind] > 0 {
			chart.LabelAndIntValue(w.titler.String(string(kind)), uint64(counts[kind]))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeSkipped writes the resources whose fetch failed.
func (w *MarkdownWriter) writeSkipped(md *markdown.Markdown, report *model.MirrorReport) {
	skipped := make([]*model.ResourceEntry, 0)
	for _, res := range report.Resources {
		if res.Failed {
			skipped = append(skipped, res)
		}
	}
	if len(skipped) == 0 {
		return
	}

	md.H2("Skipped Resources")
	md.PlainText("")
	md.Warningf("%d resource(s) could not be fetched and were left out of the archive.", len(skipped))
	md.PlainText("")

	rows := make([][]string, len(skipped))
	for i, res := range skipped {
		rows[i] = []string{string(res.Kind), "`" + truncateString(res.OriginalURL, 70) + "`"}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Kind", "URL"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [webmirror](https://github.com/nao1215/webmirror)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
