// Package report renders mirror run summaries in multiple output
// formats. The SimpleWriter targets terminal display, the
// MarkdownWriter produces shareable documents, and the JSONWriter
// emits machine-readable output.
package report
