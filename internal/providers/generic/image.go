package generic

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	reParseSize = regexp.MustCompile(`[-_](\d{2,5})x(\d{2,5})(?:\.[A-Za-z0-9]+)?$`)
	reLooseSize = regexp.MustCompile(`[-_](\d{2,5})x(\d{2,5})`)

	reBackgroundURL = regexp.MustCompile(`url\((?:["']?)([^"')]+)(?:["']?)\)`)
)

// Stage is where a candidate was discovered. Lower stages always outrank
// higher ones, whatever their keyword score.
type Stage int

const (
	StageMeta Stage = iota
	StageStructured
	StageSelector
	StageSrc
	StageLazy
	StageSrcset
)

var stageNames = [...]string{"meta", "structured-data", "selector", "src", "lazy", "srcset"}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}

	return "stage(" + strconv.Itoa(int(s)) + ")"
}

var lazyAttrs = []string{"data-src", "data-lazy-src", "data-original"}

// Attributes are the element attributes that affect scoring.
type Attributes struct {
	Class  string
	Alt    string
	Width  string
	Height string
}

func attributesOf(sel *goquery.Selection) Attributes {
	return Attributes{
		Class:  sel.AttrOr("class", ""),
		Alt:    sel.AttrOr("alt", ""),
		Width:  sel.AttrOr("width", ""),
		Height: sel.AttrOr("height", ""),
	}
}

// Candidate is one possible cover image.
type Candidate struct {
	URL   string
	Stage Stage
	Score int
	Order int
}

// better reports whether c ranks above o: earlier stage, then higher
// score, then earlier encounter.
func (c Candidate) better(o Candidate) bool {
	if c.Stage != o.Stage {
		return c.Stage < o.Stage
	}
	if c.Score != o.Score {
		return c.Score > o.Score
	}

	return c.Order < o.Order
}

// IsValidCandidate reports whether raw could plausibly be content art. It
// only looks at the URL text and never touches the network.
func (r Rules) IsValidCandidate(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}

	u, err := url.Parse(raw)
	if err != nil || u == nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Host == "" {
		return false
	}

	host := strings.ToLower(u.Hostname())
	for _, d := range r.AdDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" && (host == d || strings.HasSuffix(host, "."+d)) {
			return false
		}
	}

	file := strings.ToLower(path.Base(u.Path))
	if file == "/" || file == "." {
		return false
	}
	// a cover keyword outweighs a chrome word: "pixel-hunter-cover.jpg" is art
	if hasToken(file, r.ChromePatterns) && !hasToken(file, r.CoverKeywords) {
		return false
	}

	if w, h := parseWxH(file); r.belowMin(w) || r.belowMin(h) {
		return false
	}

	q := u.Query()
	for _, k := range []string{"w", "width", "h", "height"} {
		if n, err := strconv.Atoi(q.Get(k)); err == nil && r.belowMin(n) {
			return false
		}
	}

	return true
}

// Score is the keyword part of a candidate's rank.
func (r Rules) Score(raw string, attrs Attributes) int {
	score := 0

	target := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		target = u.Path
	}

	if containsAny(target, r.CoverKeywords) {
		score += r.URLWeight
	}
	if containsAny(attrs.Class, r.ClassKeywords) {
		score += r.ClassWeight
	}
	if containsAny(attrs.Alt, r.AltKeywords) {
		score += r.AltWeight
	}

	return score
}

func (r Rules) belowMin(n int) bool {
	return n > 0 && n < r.MinImageSize
}

func (r Rules) attrsTooSmall(a Attributes) bool {
	w, _ := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(a.Width), "px"))
	h, _ := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(a.Height), "px"))

	return r.belowMin(w) || r.belowMin(h)
}

func resolve(pageURL, raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u == nil {
		return raw
	}

	if u.IsAbs() {
		return u.String()
	}

	base, err := url.Parse(pageURL)
	if err != nil || base == nil {
		return raw
	}

	return base.ResolveReference(u).String()
}

func parseWxH(u string) (int, int) {
	m := reParseSize.FindStringSubmatch(u)
	if m == nil {
		m = reLooseSize.FindStringSubmatch(u)
	}
	if m == nil {
		return 0, 0
	}

	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])

	return w, h
}

func firstSrcset(ss string) string {
	for p := range strings.SplitSeq(ss, ",") {
		if parts := strings.Fields(p); len(parts) > 0 {
			return parts[0]
		}
	}

	return ""
}

func backgroundURL(sel *goquery.Selection) string {
	style := sel.AttrOr("style", "")
	if !strings.Contains(strings.ToLower(style), "background") {
		return ""
	}
	if m := reBackgroundURL.FindStringSubmatch(style); m != nil {
		return strings.TrimSpace(m[1])
	}

	return ""
}

// imageScanner ranks every image element of a document.
type imageScanner struct {
	rules   Rules
	pageURL string
	best    Candidate
	found   bool
	counter int
	seen    map[string]bool
}

func newImageScanner(rules Rules, pageURL string) *imageScanner {
	return &imageScanner{rules: rules, pageURL: pageURL, seen: make(map[string]bool)}
}

func (s *imageScanner) offer(raw string, stage Stage, attrs Attributes) {
	if strings.TrimSpace(raw) == "" {
		return
	}

	u := resolve(s.pageURL, raw)
	s.counter++
	if !s.rules.IsValidCandidate(u) || s.rules.attrsTooSmall(attrs) {
		return
	}

	key := strconv.Itoa(int(stage)) + " " + u
	if s.seen[key] {
		return
	}
	s.seen[key] = true

	c := Candidate{URL: u, Stage: stage, Score: s.rules.Score(u, attrs), Order: s.counter}
	if !s.found || c.better(s.best) {
		s.best = c
		s.found = true
	}
}

// ScanIMGTags offers src, the lazy-load attributes and the first srcset
// entry of every img, plus picture sources.
func (s *imageScanner) ScanIMGTags(doc *goquery.Document) {
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		attrs := attributesOf(img)

		s.offer(img.AttrOr("src", ""), StageSrc, attrs)
		for _, k := range lazyAttrs {
			s.offer(img.AttrOr(k, ""), StageLazy, attrs)
		}
		s.offer(firstSrcset(img.AttrOr("srcset", "")), StageSrcset, attrs)
		s.offer(firstSrcset(img.AttrOr("data-srcset", "")), StageSrcset, attrs)
	})

	doc.Find("picture source[srcset]").Each(func(_ int, src *goquery.Selection) {
		attrs := attributesOf(src.ParentsFiltered("picture").Find("img").First())
		s.offer(firstSrcset(src.AttrOr("srcset", "")), StageSrcset, attrs)
	})
}

func (s *imageScanner) Best() (Candidate, bool) {
	return s.best, s.found
}
