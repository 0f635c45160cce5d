package generic

import (
	"strings"
	"unicode"
)

// Rules holds the keyword lists, selectors and weights used to find page
// metadata. The zero value matches nothing; start from DefaultRules.
type Rules struct {
	CoverKeywords  []string `yaml:"cover_keywords" mapstructure:"cover_keywords"`
	ClassKeywords  []string `yaml:"class_keywords" mapstructure:"class_keywords"`
	AltKeywords    []string `yaml:"alt_keywords" mapstructure:"alt_keywords"`
	ChromePatterns []string `yaml:"chrome_patterns" mapstructure:"chrome_patterns"`
	AdDomains      []string `yaml:"ad_domains" mapstructure:"ad_domains"`

	URLWeight   int `yaml:"url_weight" mapstructure:"url_weight"`
	ClassWeight int `yaml:"class_weight" mapstructure:"class_weight"`
	AltWeight   int `yaml:"alt_weight" mapstructure:"alt_weight"`

	MinImageSize int `yaml:"min_image_size" mapstructure:"min_image_size"`

	MetaSelectors     []string `yaml:"meta_selectors" mapstructure:"meta_selectors"`
	CoverSelectors    []string `yaml:"cover_selectors" mapstructure:"cover_selectors"`
	SynopsisSelectors []string `yaml:"synopsis_selectors" mapstructure:"synopsis_selectors"`
	TitleSelectors    []string `yaml:"title_selectors" mapstructure:"title_selectors"`

	MinSynopsis int `yaml:"min_synopsis" mapstructure:"min_synopsis"`
}

func DefaultRules() Rules {
	return Rules{
		CoverKeywords: []string{"cover", "poster", "thumb", "manga"},
		ClassKeywords: []string{"cover", "poster", "thumb"},
		AltKeywords:   []string{"cover", "poster", "manga"},
		ChromePatterns: []string{
			"icon", "logo", "avatar", "sprite", "loading", "loader", "spinner",
			"favicon", "banner", "emoji", "pixel", "blank", "spacer",
		},
		AdDomains: []string{
			"doubleclick.net", "googlesyndication.com", "googleadservices.com",
			"adservice.google.com", "amazon-adsystem.com", "adnxs.com",
			"taboola.com", "outbrain.com", "exoclick.com", "popads.net",
		},

		URLWeight:   10,
		ClassWeight: 5,
		AltWeight:   3,

		MinImageSize: 100,

		MetaSelectors: []string{
			`meta[property="og:image"]`,
			`meta[name="twitter:image"]`,
		},
		CoverSelectors: []string{
			".manga-cover img",
			".post-thumbnail img",
			".entry-thumb img",
			".wp-post-image",
			".cover-image img",
			".manga-poster img",
			"img[class*='cover']",
			"img[class*='poster']",
			"img[class*='thumb']",
		},
		SynopsisSelectors: []string{
			".manga-summary",
			".manga-description",
			".synopsis",
			".entry-content p",
		},
		TitleSelectors: []string{
			"h1.entry-title",
			"h1.post-title",
			"h1",
		},

		MinSynopsis: 30,
	}
}

// WithDefaults fills empty fields from DefaultRules so partial overrides
// from a config file keep working.
func (r Rules) WithDefaults() Rules {
	d := DefaultRules()

	fillList(&r.CoverKeywords, d.CoverKeywords)
	fillList(&r.ClassKeywords, d.ClassKeywords)
	fillList(&r.AltKeywords, d.AltKeywords)
	fillList(&r.ChromePatterns, d.ChromePatterns)
	fillList(&r.AdDomains, d.AdDomains)
	fillList(&r.MetaSelectors, d.MetaSelectors)
	fillList(&r.CoverSelectors, d.CoverSelectors)
	fillList(&r.SynopsisSelectors, d.SynopsisSelectors)
	fillList(&r.TitleSelectors, d.TitleSelectors)

	fillInt(&r.URLWeight, d.URLWeight)
	fillInt(&r.ClassWeight, d.ClassWeight)
	fillInt(&r.AltWeight, d.AltWeight)
	fillInt(&r.MinImageSize, d.MinImageSize)
	fillInt(&r.MinSynopsis, d.MinSynopsis)

	return r
}

func fillList(dst *[]string, def []string) {
	if len(*dst) == 0 {
		*dst = append([]string(nil), def...)
	}
}

func fillInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

func containsAny(s string, words []string) bool {
	s = strings.ToLower(s)
	for _, w := range words {
		if w != "" && strings.Contains(s, strings.ToLower(w)) {
			return true
		}
	}

	return false
}

// hasToken reports whether any word appears as a whole token of s, where
// tokens are runs of letters and digits. A trailing plural "s" also matches,
// so "icons" hits "icon" but "silicon" does not.
func hasToken(s string, words []string) bool {
	tokens := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, tok := range tokens {
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w == "" {
				continue
			}
			if tok == w || tok == w+"s" {
				return true
			}
		}
	}

	return false
}
