// Package archive assembles the files produced by a mirror run into a
// single zip archive. Resource files live under per-kind directories
// (img, css, js, pdf, video) and HTML pages live under html, except
// in a single-page run where the lone page sits at the archive root.
package archive
