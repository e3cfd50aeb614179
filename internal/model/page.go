package model

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// Page represents a crawled web page.
// It holds the raw response data, the localized (rewritten) markup, and the
// links discovered on the page for further crawling.
type Page struct {
	// URL is the absolute URL the page was fetched from.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the MIME type of the response.
	// Extracted from Content-Type header for convenience.
	ContentType string `json:"content_type"`

	// Title is the archive-safe title derived from the page URL.
	// It names the page's entry inside the archive. Two distinct URLs can
	// map to the same title; the first page wins.
	Title string `json:"title"`

	// Depth is the number of link hops from the start page.
	Depth int `json:"depth"`

	// Raw contains the page body as fetched, before localization.
	// Limited to MaxPageSize bytes.
	Raw []byte `json:"-"`

	// Localized contains the rewritten HTML with all resource references
	// pointing at archive-relative paths. Empty until localization runs.
	Localized []byte `json:"-"`

	// Links contains the absolute URLs of same-crawl candidate pages
	// discovered on this page.
	Links []string `json:"links,omitempty"`

	// Hash is the SHA-256 hash of the raw content, used for change
	// detection in the history database.
	Hash string `json:"hash"`
}

// MaxPageSize is the maximum size of raw page content to store.
// Larger pages are truncated to this size.
const MaxPageSize = 10 * 1024 * 1024 // 10 MB

// ComputeHash calculates and stores the SHA-256 hash of the raw content.
func (p *Page) ComputeHash() {
	sum := sha256.Sum256(p.Raw)
	p.Hash = hex.EncodeToString(sum[:])
}

// TruncateRaw limits the raw content to MaxPageSize bytes.
func (p *Page) TruncateRaw() {
	if len(p.Raw) > MaxPageSize {
		p.Raw = p.Raw[:MaxPageSize]
	}
}

// TitleFromURL derives a deterministic, filesystem-safe title from a page
// URL. The title is built from the host and path so that mirrored pages of
// different sites never collide on "index".
//
// Design decision: We derive titles from URLs rather than <title> tags
// because URL-derived names are deterministic, unique-ish, and never empty.
// HTML titles are frequently duplicated across a site ("Home | Example").
func TitleFromURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return sanitizeTitle(pageURL)
	}

	name := u.Host + u.Path
	name = strings.TrimSuffix(name, "/")
	if name == "" {
		name = u.Host
	}
	return sanitizeTitle(name)
}

// titleReplacer strips characters that are illegal or awkward in file names.
var titleReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"&", "",
	"#", "",
	"%", "",
	" ", "_",
)

func sanitizeTitle(name string) string {
	name = titleReplacer.Replace(name)
	if name == "" {
		name = "page"
	}
	return name
}
