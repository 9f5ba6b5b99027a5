package avatar

import "regexp"

// DefaultImagePrefix is where profile images are hosted.
const DefaultImagePrefix = "https://pbs.twimg.com/profile_images/"

const imageExt = `(?:jpe?g|png|gif|webp)`

var ldJSONBlock = regexp.MustCompile(
	`(?s)<script[^>]*type=["']application/ld\+json["'][^>]*>\s*(\{.*?\})\s*</script>`,
)

type patterns struct {
	prefix     string
	contentURL *regexp.Regexp
	imgLarge   *regexp.Regexp
	imgAny     *regexp.Regexp
}

func compilePatterns(prefix string) *patterns {
	if prefix == "" {
		prefix = DefaultImagePrefix
	}
	host := regexp.QuoteMeta(prefix)
	return &patterns{
		prefix:     prefix,
		contentURL: regexp.MustCompile(`"contentUrl"\s*:\s*"(` + host + `[^"]+?\.` + imageExt + `)"`),
		imgLarge:   regexp.MustCompile(`<img[^>]+src="(` + host + `[^"]+?` + LargeSuffix + `\.` + imageExt + `)"`),
		imgAny:     regexp.MustCompile(`<img[^>]+src="(` + host + `[^"]+?\.` + imageExt + `)"`),
	}
}
