package generic

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/Doudousmyle42/mangatracker/internal/providers"
)

var (
	rePageExt  = regexp.MustCompile(`(?i)\.(html?|php|aspx?|jsp)$`)
	reIDSuffix = regexp.MustCompile(`_\d{4,}$`)
	reLongID   = regexp.MustCompile(`-\d{5,}$`)
	reChapMark = regexp.MustCompile(`(?i)(?:^|[-_ .])(?:chapitre|chapter|chap|ch|episode|ep)[-_ .]?(\d+)(\.\d+)?`)
	reLangTag  = regexp.MustCompile(`(?i)^[-_ .]*(?:fr|vf|vo|va|vus|en|eng|es|raw)(?:[-_ .]|$)`)
	reSep      = regexp.MustCompile(`[-_\s]+`)
)

// segmentInfo is the last meaningful path segment split into its parts.
type segmentInfo struct {
	title   string
	chapter string
}

func parseSegment(raw string) segmentInfo {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u == nil {
		return segmentInfo{}
	}

	seg := lastSegment(u.EscapedPath())
	if seg == "" {
		return segmentInfo{}
	}

	seg = rePageExt.ReplaceAllString(seg, "")
	seg = reIDSuffix.ReplaceAllString(seg, "")
	if !reChapMark.MatchString(seg) {
		seg = reLongID.ReplaceAllString(seg, "")
	}

	info := segmentInfo{title: seg}

	if loc := reChapMark.FindStringSubmatchIndex(seg); loc != nil {
		num := seg[loc[2]:loc[3]]
		if n, err := strconv.Atoi(num); err == nil {
			num = strconv.Itoa(n)
		}
		if loc[4] >= 0 {
			num += seg[loc[4]:loc[5]]
		}
		info.chapter = num

		// text after the marker is a chapter subtitle unless nothing precedes it
		info.title = seg[:loc[0]]
		if strings.Trim(info.title, "-_ .") == "" {
			info.title = reLangTag.ReplaceAllString(seg[loc[1]:], "")
		}
	}

	info.title = strings.TrimSpace(reSep.ReplaceAllString(info.title, " "))

	return info
}

func lastSegment(p string) string {
	parts := strings.Split(p, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		s := strings.TrimSpace(parts[i])
		if s == "" {
			continue
		}
		if dec, err := url.PathUnescape(s); err == nil {
			s = dec
		}

		return path.Clean(s)
	}

	return ""
}

// TitleFromURL derives a display title from the last path segment. The
// bool is false when nothing usable remains after stripping markers.
func TitleFromURL(raw string) (string, bool) {
	t := parseSegment(raw).title
	if t == "" || isNumeric(t) {
		return "", false
	}

	return t, true
}

// ChapterFromURL returns the number following a chapter marker, keeping
// any decimal part, or "1" when the URL carries none.
func ChapterFromURL(raw string) string {
	if c := parseSegment(raw).chapter; c != "" {
		return c
	}

	return providers.DefaultChapter
}

func isNumeric(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && r != ' ' && r != '.' {
			return false
		}
	}

	return true
}
