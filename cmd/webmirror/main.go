// Package main provides the entry point for the webmirror CLI.
//
// Webmirror crawls a website, rewrites its resource references to
// local paths, and packs the result into a single zip archive that
// browses offline.
//
// Usage:
//
//	webmirror mirror <url>
//	webmirror mirror --depth 2 <url>
//
// See --help for all available options.
package main

// main is the entry point for webmirror.
func main() {
	Execute()
}
