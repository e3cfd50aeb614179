// Package database provides SQLite-based storage for mirror run history.
// Each completed run is recorded with its start URL, crawl settings,
// archive details, and resource summary so past runs can be listed and
// inspected from the command line.
package database
