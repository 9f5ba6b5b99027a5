package avatar

// Resolution is a found profile-image address and the strategy that found it.
type Resolution struct {
	URL      string   `json:"url"`
	Strategy Strategy `json:"strategy"`
}

// Options configures a Resolver.
type Options struct {
	// ImagePrefix is the address prefix of hosted profile images.
	// Defaults to DefaultImagePrefix.
	ImagePrefix string
}

// Resolver runs extractors in order and returns the first hit.
type Resolver struct {
	extractors []Extractor
}

// New builds a Resolver with the standard chain:
// structured data, then markup, then network log.
func New(opts Options) *Resolver {
	return NewWithExtractors(DefaultExtractors(opts.ImagePrefix)...)
}

// DefaultExtractors returns the standard chain for the given image prefix.
func DefaultExtractors(prefix string) []Extractor {
	return []Extractor{
		StructuredDataExtractor(prefix),
		MarkupExtractor(prefix),
		NetworkLogExtractor(prefix),
	}
}

// NewWithExtractors builds a Resolver over an explicit chain.
func NewWithExtractors(extractors ...Extractor) *Resolver {
	return &Resolver{extractors: append([]Extractor(nil), extractors...)}
}

// Resolve returns the first non-empty address produced by the chain.
// Absence is reported with ok == false and is never an error.
func (r *Resolver) Resolve(page *Page) (Resolution, bool) {
	if page == nil {
		return Resolution{}, false
	}
	for _, ex := range r.extractors {
		if ex.Extract == nil {
			continue
		}
		if url, ok := ex.Extract(page); ok && url != "" {
			return Resolution{URL: url, Strategy: ex.Strategy}, true
		}
	}
	return Resolution{}, false
}
