package model

// ResourceKind classifies an external asset referenced by a page.
type ResourceKind string

// Resource kinds. The kind doubles as the archive directory prefix, so the
// values are stable and must not change between releases.
const (
	KindImage      ResourceKind = "img"
	KindStylesheet ResourceKind = "css"
	KindScript     ResourceKind = "js"
	KindPDF        ResourceKind = "pdf"
	KindVideo      ResourceKind = "video"
)

// Kinds lists all resource kinds in archive-layout order.
func Kinds() []ResourceKind {
	return []ResourceKind{KindImage, KindStylesheet, KindScript, KindPDF, KindVideo}
}

// String returns the kind's archive directory prefix.
func (k ResourceKind) String() string {
	return string(k)
}

// ResourceEntry identifies one external asset scheduled into the archive.
//
// Invariant: LocalName is unique within its kind. Duplicates are suppressed
// by the registry before scheduling, never after.
type ResourceEntry struct {
	// Kind is the asset's category (image, stylesheet, script, pdf, video).
	Kind ResourceKind `json:"kind"`

	// OriginalURL is the absolute URL the asset was referenced from.
	OriginalURL string `json:"original_url"`

	// LocalName is the sanitized file name used inside the archive.
	LocalName string `json:"local_name"`

	// LocalPath is the kind-prefixed archive-relative path,
	// e.g. "img/logo.png".
	LocalPath string `json:"local_path"`

	// Size is the number of bytes stored, zero when the fetch failed.
	Size int64 `json:"size"`

	// Failed reports that the asset could not be fetched. The referencing
	// markup is still rewritten; the archive entry is simply absent.
	Failed bool `json:"failed,omitempty"`
}
