package generic

import (
	"context"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/publicsuffix"

	"github.com/Doudousmyle42/mangatracker/internal/providers"
	"github.com/Doudousmyle42/mangatracker/internal/util"
)

var reTitleChapter = regexp.MustCompile(`(?i)\s*[-:|]?\s*(?:chapitre|chapter|chap\.?|ch\.|episode|ep\.)\s*\d+.*$`)

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*util.Page, error)
}

type Logger interface {
	Debugf(string, ...any)
	Warnf(string, ...any)
}

// Recorder receives extraction outcomes. *metrics.Metrics implements it.
type Recorder interface {
	ObserveFetch(status int, err error, d time.Duration)
	ObserveCover(stage string)
}

// Scraper extracts page metadata from plain HTTP responses. It keeps no
// per-call state and is safe for concurrent use.
type Scraper struct {
	session Fetcher
	rules   Rules
	log     Logger
	metrics Recorder
}

func NewScraper(session Fetcher, rules Rules, log Logger, metrics Recorder) *Scraper {
	return &Scraper{
		session: session,
		rules:   rules.WithDefaults(),
		log:     log,
		metrics: metrics,
	}
}

func (s *Scraper) Rules() Rules { return s.rules }

// Extract fetches url and extracts its metadata. Only fetch failures are
// returned as errors, always as *util.FetchError.
func (s *Scraper) Extract(ctx context.Context, pageURL string) (providers.Result, error) {
	start := time.Now()
	page, err := s.session.Fetch(ctx, pageURL)
	if s.metrics != nil {
		status := 0
		if page != nil {
			status = page.Status
		}
		s.metrics.ObserveFetch(status, err, time.Since(start))
	}
	if err != nil {
		return providers.Result{}, err
	}
	if len(page.Redirects) > 0 {
		s.debugf("%s redirected via %s", pageURL, strings.Join(page.Redirects, " -> "))
	}

	return s.extract(pageURL, page.FinalURL, page.HTML), nil
}

// ExtractHTML runs the field extraction on an already retrieved document.
// It never fails; missing fields fall back to their defaults.
func (s *Scraper) ExtractHTML(pageURL, html string) providers.Result {
	return s.extract(pageURL, pageURL, html)
}

// page is the per-call parse state shared by the strategies.
type page struct {
	requestURL string
	baseURL    string
	raw        string
	doc        *goquery.Document
	rules      Rules
}

type coverStrategy struct {
	name string
	find func(*page) (Candidate, bool)
}

var coverStrategies = []coverStrategy{
	{"meta", coverFromMeta},
	{"structured-data", coverFromStructured},
	{"selector", coverFromSelectors},
	{"scan", coverFromScan},
}

func (s *Scraper) extract(requestURL, baseURL, html string) providers.Result {
	if baseURL == "" {
		baseURL = requestURL
	}

	res := providers.Result{
		Title:      providers.UnknownTitle,
		Chapter:    ChapterFromURL(requestURL),
		CoverImage: providers.Placeholder,
		Source:     SourceLabel(baseURL),
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		s.debugf("parse %s: %v\n", requestURL, err)
		if t, ok := TitleFromURL(requestURL); ok {
			res.Title = t
		}
		return res
	}

	p := &page{requestURL: requestURL, baseURL: baseURL, raw: html, doc: doc, rules: s.rules}

	res.Title = p.title()

	for _, st := range coverStrategies {
		c, ok := st.find(p)
		if !ok {
			s.debugf("cover: %s found nothing\n", st.name)
			continue
		}

		s.debugf("cover: %s picked %s (stage=%s score=%d)\n", st.name, c.URL, c.Stage, c.Score)
		res.CoverImage = c.URL
		if s.metrics != nil {
			s.metrics.ObserveCover(c.Stage.String())
		}
		break
	}
	if res.CoverImage == providers.Placeholder && s.metrics != nil {
		s.metrics.ObserveCover("placeholder")
	}

	res.Synopsis = p.synopsis()

	return res
}

func (s *Scraper) debugf(format string, args ...any) {
	if s.log != nil {
		s.log.Debugf(format, args...)
	}
}

func (p *page) title() string {
	if t, ok := TitleFromURL(p.requestURL); ok {
		return t
	}

	for _, sel := range p.rules.TitleSelectors {
		if t := cleanTitle(p.doc.Find(sel).First().Text()); len([]rune(t)) > 3 {
			return t
		}
	}

	base, _ := url.Parse(p.baseURL)
	if article, err := readability.FromReader(strings.NewReader(p.raw), base); err == nil {
		if t := cleanTitle(article.Title); len([]rune(t)) > 3 {
			return t
		}
	}

	return providers.UnknownTitle
}

func cleanTitle(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = reTitleChapter.ReplaceAllString(s, "")

	return strings.TrimSpace(s)
}

func coverFromMeta(p *page) (Candidate, bool) {
	for _, sel := range p.rules.MetaSelectors {
		var found Candidate
		ok := false
		p.doc.Find(sel).EachWithBreak(func(_ int, m *goquery.Selection) bool {
			u := resolve(p.baseURL, m.AttrOr("content", ""))
			if !p.rules.IsValidCandidate(u) {
				return true
			}
			found, ok = Candidate{URL: u, Stage: StageMeta}, true
			return false
		})
		if ok {
			return found, true
		}
	}

	return Candidate{}, false
}

func coverFromStructured(p *page) (Candidate, bool) {
	for _, raw := range structuredImages(p.doc) {
		u := resolve(p.baseURL, raw)
		if p.rules.IsValidCandidate(u) {
			return Candidate{URL: u, Stage: StageStructured}, true
		}
	}

	return Candidate{}, false
}

func coverFromSelectors(p *page) (Candidate, bool) {
	for _, sel := range p.rules.CoverSelectors {
		var found Candidate
		ok := false
		p.doc.Find(sel).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			attrs := attributesOf(el)
			for _, raw := range selectorSources(el) {
				u := resolve(p.baseURL, raw)
				if p.rules.IsValidCandidate(u) && !p.rules.attrsTooSmall(attrs) {
					found = Candidate{URL: u, Stage: StageSelector, Score: p.rules.Score(u, attrs)}
					ok = true
					return false
				}
			}
			return true
		})
		if ok {
			return found, true
		}
	}

	return Candidate{}, false
}

// selectorSources lists the image URLs an element matched by a cover
// selector may carry, most authoritative first.
func selectorSources(el *goquery.Selection) []string {
	var out []string
	add := func(v string) {
		if v = strings.TrimSpace(v); v != "" && !strings.HasPrefix(strings.ToLower(v), "data:") {
			out = append(out, v)
		}
	}

	add(el.AttrOr("src", ""))
	for _, k := range lazyAttrs {
		add(el.AttrOr(k, ""))
	}
	add(firstSrcset(el.AttrOr("srcset", "")))
	add(backgroundURL(el))

	return out
}

func coverFromScan(p *page) (Candidate, bool) {
	sc := newImageScanner(p.rules, p.baseURL)
	sc.ScanIMGTags(p.doc)

	return sc.Best()
}

func (p *page) synopsis() string {
	for _, sel := range p.rules.SynopsisSelectors {
		text := ""
		p.doc.Find(sel).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			t := strings.Join(strings.Fields(el.Text()), " ")
			if len([]rune(t)) > p.rules.MinSynopsis {
				text = t
				return false
			}
			return true
		})
		if text != "" {
			return truncateRunes(text, providers.MaxSynopsis)
		}
	}

	return ""
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return strings.TrimSpace(string(r[:n]))
}

// SourceLabel names the site a page belongs to, e.g. "scan-manga" for
// www.scan-manga.com.
func SourceLabel(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}

	host := strings.ToLower(u.Hostname())
	if net.ParseIP(host) != nil {
		return host
	}
	if site, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		host = site
	}
	if suffix, _ := publicsuffix.PublicSuffix(host); suffix != "" && suffix != host {
		host = strings.TrimSuffix(host, "."+suffix)
	}

	return strings.TrimPrefix(host, "www.")
}
