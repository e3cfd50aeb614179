// Package crawler provides the breadth-first link traversal that feeds the
// mirror session.
//
// # Architecture
//
// The crawler is designed around the Spider type. It maintains a FIFO
// frontier of discovered page URLs and a global visited set; a URL enters
// the frontier at most once, which bounds the crawl even on cyclic link
// graphs. Depth 0 is the trivial one-node case of the same BFS routine,
// not a separate code path.
//
// Design decision: We implement our own crawler rather than using a
// third-party library because:
//  1. The mirror needs tight coupling between discovery order and the
//     depth-bounded archive layout
//  2. Link filtering policy (domain restriction, focus mode, glob
//     patterns) is decided per session, before enqueue
//  3. Page fetching must share the mirror's skip-and-continue fetcher
//
// # Politeness
//
// The crawler delays between page fetches and caps the total page count to
// avoid hammering servers and to bound runaway crawls.
package crawler
