package sanitize

import (
	"strings"
	"unicode/utf8"
)

const (
	maxInlinePathLen = 200
	maxExcerptLen    = 160
)

// PathInline cleans potentially hostile file path text before it is embedded
// into prompts or report tables: control characters dropped, newlines
// flattened, length bounded.
func PathInline(path string) string {
	return clean(path, maxInlinePathLen)
}

// Excerpt cleans a matched source line the same way, with a tighter bound
// suited to evidence columns.
func Excerpt(line string) string {
	return clean(line, maxExcerptLen)
}

func clean(in string, maxLen int) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(in))
	for _, r := range in {
		switch r {
		case '\n', '\r', '\t':
			b.WriteRune(' ')
		default:
			if r < 0x20 || r == 0x7f {
				continue
			}
			// Invalid bytes decode as RuneError when ranging a string.
			if r == utf8.RuneError || !utf8.ValidRune(r) {
				continue
			}
			b.WriteRune(r)
		}
	}

	out := strings.TrimSpace(b.String())
	if len(out) > maxLen {
		out = out[:maxLen] + "..."
	}
	return out
}
