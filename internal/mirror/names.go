package mirror

import (
	"net/url"
	"strconv"
	"strings"
)

var illegalChars = strings.NewReplacer(
	`\`, "_", "/", "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_",
)

// SanitizeName replaces the characters \ / : * ? " < > | with "_".
// Distinct names that sanitize identically collide.
func SanitizeName(name string) string {
	name = illegalChars.Replace(name)
	switch name {
	case "", ".", "..":
		return strings.Repeat("_", max(len(name), 1))
	}
	return name
}

// FileName derives the local filename of a document from its file URL:
// the last path segment with "-<id>" spliced in before a ".pdf" suffix,
// or appended when there is none. The query string is ignored.
func FileName(rawURL string, id int) string {
	base := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		base = u.Path
	}
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if base == "" {
		base = "document"
	}

	suffix := "-" + strconv.Itoa(id)
	if stem, ok := strings.CutSuffix(base, ".pdf"); ok {
		return SanitizeName(stem + suffix + ".pdf")
	}
	return SanitizeName(base + suffix)
}
