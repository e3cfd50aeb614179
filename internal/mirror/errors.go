package mirror

import "errors"

var (
	// ErrMirrorInProgress is returned when a mirror is requested while
	// another one holds the same gate.
	ErrMirrorInProgress = errors.New("mirror already in progress")

	// ErrNoPages is returned when the crawl produced no pages at all,
	// which means even the start URL could not be fetched.
	ErrNoPages = errors.New("no pages could be fetched")
)
