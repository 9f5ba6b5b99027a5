package avatar

import (
	"regexp"
	"strings"
)

// LargeSuffix marks the canonical 400x400 size variant.
const LargeSuffix = "_400x400"

var (
	smallSizeSuffix = regexp.MustCompile(`_(?:normal|bigger|mini|200x200)(\.[A-Za-z0-9]+)?$`)
	imageExtTail    = regexp.MustCompile(`\.` + imageExt + `$`)
)

// Normalize rewrites a trailing small/medium size token to LargeSuffix.
// Empty strings and addresses without a known token are returned unchanged.
func Normalize(url string) string {
	if url == "" {
		return url
	}
	return smallSizeSuffix.ReplaceAllString(url, LargeSuffix+"${1}")
}

func isLarge(url string) bool {
	return strings.Contains(url, LargeSuffix)
}

// largeVariant is Normalize plus insertion of LargeSuffix for addresses that
// carry no size token at all (the original upload).
func largeVariant(url string) string {
	url = Normalize(url)
	if url == "" || isLarge(url) {
		return url
	}
	loc := imageExtTail.FindStringIndex(url)
	if loc == nil {
		return url
	}
	return url[:loc[0]] + LargeSuffix + url[loc[0]:]
}
