package providers

import "context"

const (
	Placeholder    = "https://via.placeholder.com/300x420?text=Manga"
	UnknownTitle   = "Unknown Manga"
	DefaultChapter = "1"
	MaxSynopsis    = 500
)

// Result is the metadata recovered from a single manga page.
type Result struct {
	Title      string `json:"title"`
	Chapter    string `json:"chapter"`
	CoverImage string `json:"cover_image"`
	Synopsis   string `json:"synopsis,omitempty"`
	Source     string `json:"source"`
}

func (r Result) HasCover() bool {
	return r.CoverImage != "" && r.CoverImage != Placeholder
}

// Extractor turns a page URL into a Result. Network failures are returned
// as *util.FetchError; parse problems never are.
type Extractor interface {
	Extract(ctx context.Context, url string) (Result, error)
}

type ExtractorFunc func(ctx context.Context, url string) (Result, error)

func (f ExtractorFunc) Extract(ctx context.Context, url string) (Result, error) {
	return f(ctx, url)
}
