package avatar

import (
	"encoding/json"
	"strings"
)

// Strategy names the extractor that produced a resolution.
type Strategy string

// Extraction strategies in priority order.
const (
	StrategyStructuredData Strategy = "structured_data"
	StrategyMarkup         Strategy = "markup"
	StrategyNetworkLog     Strategy = "network_log"
)

// Extractor is one fallible lookup in the resolution chain.
type Extractor struct {
	Strategy Strategy
	Extract  func(page *Page) (string, bool)
}

// StructuredDataExtractor reads the subject image from ld+json blocks.
func StructuredDataExtractor(prefix string) Extractor {
	p := compilePatterns(prefix)
	return Extractor{Strategy: StrategyStructuredData, Extract: p.structuredData}
}

// MarkupExtractor scans raw markup for image tags on the image host.
func MarkupExtractor(prefix string) Extractor {
	p := compilePatterns(prefix)
	return Extractor{Strategy: StrategyMarkup, Extract: p.markup}
}

// NetworkLogExtractor picks an image-host address out of captured traffic.
func NetworkLogExtractor(prefix string) Extractor {
	p := compilePatterns(prefix)
	return Extractor{Strategy: StrategyNetworkLog, Extract: p.networkLog}
}

func (p *patterns) structuredData(page *Page) (string, bool) {
	for _, block := range ldJSONBlock.FindAllStringSubmatch(page.Markup, -1) {
		raw := block[1]
		if url := subjectImage(raw); url != "" {
			return Normalize(url), true
		}
		if m := p.contentURL.FindStringSubmatch(raw); m != nil {
			return Normalize(m[1]), true
		}
	}
	return "", false
}

var subjectKeys = []string{"author", "mainEntity"}

// subjectImage returns the first non-empty subject image address, or "" when
// the block is not valid JSON or has no such key path.
func subjectImage(raw string) string {
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return ""
	}
	for _, key := range subjectKeys {
		subject, _ := doc[key].(map[string]any)
		if url := imageAddress(subject["image"]); url != "" {
			return url
		}
	}
	return ""
}

func imageAddress(v any) string {
	switch img := v.(type) {
	case string:
		return img
	case map[string]any:
		url, _ := img["contentUrl"].(string)
		return url
	default:
		return ""
	}
}

func (p *patterns) markup(page *Page) (string, bool) {
	if m := p.imgLarge.FindStringSubmatch(page.Markup); m != nil {
		return m[1], true
	}
	if m := p.imgAny.FindStringSubmatch(page.Markup); m != nil {
		return Normalize(m[1]), true
	}
	return "", false
}

func (p *patterns) networkLog(page *Page) (string, bool) {
	if page.Log == nil {
		return "", false
	}
	entries, err := page.Log.Entries()
	if err != nil {
		return "", false
	}

	var candidates []string
	for _, entry := range entries {
		if entry.Kind != EventRequest && entry.Kind != EventResponse {
			continue
		}
		if strings.HasPrefix(entry.URL, p.prefix) {
			candidates = append(candidates, entry.URL)
		}
	}
	for _, url := range candidates {
		if isLarge(url) {
			return url, true
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return largeVariant(candidates[0]), true
}
