package providers

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached memoizes successful extractions by URL.
type Cached struct {
	inner Extractor
	cache *lru.Cache[string, Result]
}

func NewCached(inner Extractor, size int) (*Cached, error) {
	if size <= 0 {
		size = 128
	}

	c, err := lru.New[string, Result](size)
	if err != nil {
		return nil, err
	}

	return &Cached{inner: inner, cache: c}, nil
}

func (c *Cached) Extract(ctx context.Context, url string) (Result, error) {
	if res, ok := c.cache.Get(url); ok {
		return res, nil
	}

	res, err := c.inner.Extract(ctx, url)
	if err != nil {
		return Result{}, err
	}

	c.cache.Add(url, res)

	return res, nil
}

// Forget drops a cached entry so the next call re-extracts.
func (c *Cached) Forget(url string) {
	c.cache.Remove(url)
}
