package localize

import (
	"encoding/hex"
	"net/url"
	"path"
	"strings"

	"golang.org/x/crypto/sha3"
)

// maxCSSNameLen caps local names derived inside stylesheets, where generated
// asset URLs are frequently hundreds of characters long.
const maxCSSNameLen = 50

// illegalNameChars are stripped from local file names.
const illegalNameChars = `&/\#,+()$~%'":*?<>{}`

// SanitizeName derives a local file name from an absolute resource URL.
// Query and fragment are stripped, the final path segment is taken, and
// characters illegal in file names are removed. When that leaves nothing
// usable, a deterministic fallback derived from a SHA3-256 hash of the full
// URL is used so that distinct URLs never collapse onto an empty name.
func SanitizeName(rawURL string) string {
	segment := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		segment = path.Base(u.Path)
	} else {
		// Strip query/fragment by hand for unparsable input.
		if idx := strings.IndexAny(segment, "?#"); idx != -1 {
			segment = segment[:idx]
		}
		segment = path.Base(segment)
	}

	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(illegalNameChars, r) {
			return -1
		}
		return r
	}, segment)
	name = strings.TrimSpace(name)

	if name == "" || name == "." || name == ".." {
		return hashName(rawURL)
	}
	return name
}

// hashName builds a collision-resistant fallback name from the full URL.
func hashName(rawURL string) string {
	sum := sha3.Sum256([]byte(rawURL))
	return "w" + hex.EncodeToString(sum[:6])
}

// truncateName caps a name's length.
func truncateName(name string, max int) string {
	if len(name) <= max {
		return name
	}
	return name[:max]
}

// ensureSuffix appends suffix when the name does not already carry it.
// Stylesheets and scripts are stored with canonical extensions so the
// archive layout stays predictable.
func ensureSuffix(name, suffix string) string {
	if strings.HasSuffix(strings.ToLower(name), suffix) {
		return name
	}
	return name + suffix
}
