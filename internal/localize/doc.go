// Package localize rewrites pages and stylesheets so that every external
// resource reference points at a file stored inside the mirror archive.
//
// # Architecture
//
// The Localizer processes one page as a sequence of ordered phases, one per
// resource kind: PDF links, images, stylesheets, scripts, and video iframes.
// Each phase parses the accumulating HTML buffer exactly once, resolves and
// deduplicates every candidate reference, fetches the missing resources
// concurrently, commits all of the phase's rewrites in a single pass over
// that parse, and renders the buffer back before the next phase begins.
// This ordering guarantee is load-bearing: a later phase re-parses the
// buffer, so an earlier phase's edits must be fully committed first or they
// would be silently discarded.
//
// Within a phase, fetches run concurrently under an errgroup, but the DOM is
// mutated only after the group completes. The Registry's check-and-set is
// atomic, so pages localized concurrently at depth >= 1 never schedule the
// same (kind, name) twice.
//
// # Components
//
//   - Resolver: reference + base URL -> canonical absolute URL
//   - Registry: per-kind dedup of sanitized local names
//   - Localizer: phased HTML rewriting and CSS url(...) rewriting
//
// Element-level failures (malformed attribute, resolution failure, fetch
// failure) are logged and leave that element's original reference in place;
// they never abort sibling elements, the page, or the crawl.
package localize
