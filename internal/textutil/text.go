package textutil

import "strings"

var segmentReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"\x00", "",
)

// PathSegment converts a relay identifier into a single safe path element.
// Separators and shell-hostile characters are replaced, and empty or dot-only
// results become "unknown".
func PathSegment(value string) string {
	out := strings.TrimSpace(segmentReplacer.Replace(strings.TrimSpace(value)))
	if strings.Trim(out, ".") == "" {
		return "unknown"
	}
	return out
}

// Truncate shortens value to at most limit runes, marking the cut with an
// ellipsis.
func Truncate(value string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit == 1 {
		return "…"
	}
	return string(runes[:limit-1]) + "…"
}
