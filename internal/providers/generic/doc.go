// Package generic extracts manga metadata (title, latest chapter, cover
// image, synopsis) from arbitrary reader pages. Title and chapter come
// from the page URL; the cover is found by an ordered list of strategies
// from meta tags down to a scored scan of every image element. A
// headless-browser Renderer re-runs the same extraction on the rendered
// DOM for pages that hide their images behind scripts.
package generic
