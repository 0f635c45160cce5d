package generic

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// structuredImages returns image URLs advertised by JSON-LD blocks, in
// document order. Broken blocks are skipped.
func structuredImages(doc *goquery.Document) []string {
	var out []string

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sc *goquery.Selection) {
		body := strings.TrimSpace(sc.Text())
		if body == "" {
			return
		}

		var root any
		if err := json.Unmarshal([]byte(body), &root); err != nil {
			return
		}

		out = append(out, walkStructured(root)...)
	})

	return out
}

func walkStructured(v any) []string {
	var out []string

	switch t := v.(type) {
	case []any:
		for _, x := range t {
			out = append(out, walkStructured(x)...)
		}
	case map[string]any:
		for _, k := range []string{"image", "thumbnailUrl", "thumbnail"} {
			out = append(out, imageValues(t[k])...)
		}
		if g, ok := t["@graph"]; ok {
			out = append(out, walkStructured(g)...)
		}
		for _, k := range []string{"mainEntity", "mainEntityOfPage", "isPartOf", "itemReviewed"} {
			if nested, ok := t[k].(map[string]any); ok {
				out = append(out, walkStructured(nested)...)
			}
		}
	}

	return out
}

// imageValues accepts the shapes schema.org allows for an image: a URL,
// an ImageObject, or a list of either.
func imageValues(v any) []string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	case []any:
		var out []string
		for _, x := range t {
			out = append(out, imageValues(x)...)
		}
		return out
	case map[string]any:
		for _, k := range []string{"url", "contentUrl", "@id"} {
			if s, ok := t[k].(string); ok && strings.TrimSpace(s) != "" {
				return []string{strings.TrimSpace(s)}
			}
		}
	}

	return nil
}
