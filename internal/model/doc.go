// Package model defines the core data structures used throughout webmirror.
//
// This package contains the following main types:
//   - Page: Represents a crawled web page and its localized content
//   - ResourceEntry: Identifies one external asset scheduled into the archive
//   - MirrorReport: The result of a complete mirror session
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (crawler, localize, report, database) need
// to use these types, so centralizing them prevents import cycles.
package model
