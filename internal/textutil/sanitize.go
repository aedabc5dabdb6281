package textutil

import "strings"

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
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

// SanitizeFileName replaces filesystem-unsafe characters in a single name.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. The result is trimmed of surrounding whitespace and
// never "." or "..".
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(fileNameReplacer.Replace(strings.TrimSpace(name)))
	if name == "." || name == ".." {
		return ""
	}
	return name
}

// SanitizeRelativePath sanitizes every slash-separated segment of p and drops
// segments that end up empty, so a rendered template can never escape its
// base directory.
func SanitizeRelativePath(p string) string {
	segments := strings.Split(p, "/")
	kept := segments[:0]
	for _, segment := range segments {
		if clean := SanitizeFileName(segment); clean != "" {
			kept = append(kept, clean)
		}
	}
	return strings.Join(kept, "/")
}
