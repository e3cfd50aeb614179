package localize

import (
	"context"
	"strings"

	"github.com/nao1215/webmirror/internal/model"
)

// LocalizeCSS scans stylesheet text for url(...) references, schedules each
// referenced asset under img/, and rewrites the reference to its
// archive-relative path. Relative references resolve against cssURL.
//
// The scan is a single forward pass bounded by the input length, so
// pathological stylesheets can neither loop it nor hide late references
// behind an iteration cap. Entries that cannot be localized (ignorable
// schemes, namespace declarations, resolution failures) are left verbatim;
// the function never fails its caller.
func (l *Localizer) LocalizeCSS(ctx context.Context, css string, cssURL string) (string, []*model.ResourceEntry) {
	var out strings.Builder
	out.Grow(len(css))
	var entries []*model.ResourceEntry

	pos := 0
	for pos < len(css) {
		idx := strings.Index(css[pos:], "url(")
		if idx < 0 {
			out.WriteString(css[pos:])
			break
		}
		idx += pos

		// "url" must start a token, not end one (e.g. -webkit-image-url().
		if idx > 0 && isIdentChar(css[idx-1]) {
			out.WriteString(css[pos : idx+4])
			pos = idx + 4
			continue
		}

		closing := strings.IndexByte(css[idx+4:], ')')
		if closing < 0 {
			// Unterminated reference; emit the tail verbatim.
			out.WriteString(css[pos:])
			break
		}
		end := idx + 4 + closing

		out.WriteString(css[pos:idx])
		out.WriteString("url(")
		out.WriteString(l.localizeCSSRef(ctx, css[idx+4:end], cssURL, &entries))
		out.WriteString(")")
		pos = end + 1
	}

	return out.String(), entries
}

// localizeCSSRef rewrites a single url(...) argument, returning the original
// argument verbatim when it cannot or should not be localized.
func (l *Localizer) localizeCSSRef(ctx context.Context, raw string, cssURL string, entries *[]*model.ResourceEntry) string {
	ref := strings.TrimSpace(raw)
	ref = strings.Trim(ref, `'"`)

	// SVG filter references carry XML namespace URLs that must stay intact.
	if ref == "" || strings.Contains(ref, "xmlns") || ShouldIgnore(ref) {
		return raw
	}

	resolved, err := l.resolver.Resolve(ref, cssURL)
	if err != nil {
		l.logger.Debug("stylesheet reference left unmodified", "ref", ref, "error", err)
		return raw
	}

	name := truncateName(SanitizeName(resolved), maxCSSNameLen)
	localPath := model.KindImage.String() + "/" + name

	if l.registry.ShouldSchedule(model.KindImage, name) {
		entry := &model.ResourceEntry{
			Kind:        model.KindImage,
			OriginalURL: resolved,
			LocalName:   name,
			LocalPath:   localPath,
		}
		res := l.fetcher.Fetch(ctx, resolved)
		if res.Failed {
			entry.Failed = true
		} else {
			entry.Size = int64(len(res.Body))
			l.sink.Add(localPath, res.Body)
		}
		*entries = append(*entries, entry)
	}

	return "'../" + localPath + "'"
}

// isIdentChar reports whether b can appear inside a CSS identifier.
func isIdentChar(b byte) bool {
	return b == '-' || b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
