package localize

import (
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidBaseURL is returned when a page's base URL cannot be parsed.
// This is the resolver's only failure mode; a malformed reference merely
// leaves the element unmodified.
var ErrInvalidBaseURL = errors.New("invalid base URL")

// internalSchemes are URL schemes belonging to browser-internal origins.
// Pages saved by browser tooling sometimes carry absolute URLs on such an
// origin, an artifact of resolving against the wrong base. References that
// resolve there are re-resolved against the page base, discarding the
// spurious origin.
var internalSchemes = map[string]bool{
	"chrome-extension":     true,
	"moz-extension":        true,
	"safari-web-extension": true,
}

// Resolver turns a possibly-relative reference plus a base page URL into a
// canonical absolute URL. It performs no network access.
type Resolver struct{}

// NewResolver creates a Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve applies the resolution rules in order:
//
//  1. A protocol-relative reference (//host/p) gets the https scheme.
//  2. An already-absolute http(s) reference is returned unchanged.
//  3. Anything else resolves relative to base per RFC 3986.
//  4. A reference that lands on a browser-internal origin is re-resolved
//     against base using only its path and query.
//
// It fails only on a malformed base URL.
func (r *Resolver) Resolve(reference, base string) (string, error) {
	reference = strings.TrimSpace(reference)

	if strings.HasPrefix(reference, "//") {
		return "https:" + reference, nil
	}

	ref, err := url.Parse(reference)
	if err != nil {
		// Treat an unparsable reference like a relative path below; base
		// resolution will fail the same way and the caller skips it.
		ref = &url.URL{Path: reference}
	}

	if ref.IsAbs() {
		if internalSchemes[ref.Scheme] {
			return r.stripInternalOrigin(ref, base)
		}
		if ref.Scheme == "http" || ref.Scheme == "https" {
			return reference, nil
		}
	}

	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() {
		return "", ErrInvalidBaseURL
	}

	resolved := baseURL.ResolveReference(ref)
	if internalSchemes[resolved.Scheme] {
		return r.stripInternalOrigin(resolved, base)
	}
	return resolved.String(), nil
}

// stripInternalOrigin discards a browser-internal origin and re-resolves the
// reference's path and query against the page base.
func (r *Resolver) stripInternalOrigin(ref *url.URL, base string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() {
		return "", ErrInvalidBaseURL
	}

	bare := &url.URL{Path: ref.Path, RawQuery: ref.RawQuery}
	return baseURL.ResolveReference(bare).String(), nil
}

// ShouldIgnore reports whether a reference must not be localized at all:
// inline data, page-internal fragments, and non-fetchable schemes.
func ShouldIgnore(reference string) bool {
	ref := strings.ToLower(strings.TrimSpace(reference))
	if ref == "" {
		return true
	}
	for _, prefix := range []string{
		"data:", "#", "about:", "javascript:", "mailto:", "tel:", "sms:", "blob:",
	} {
		if strings.HasPrefix(ref, prefix) {
			return true
		}
	}
	return false
}
