package providers

import (
	"context"
	"errors"

	"github.com/Doudousmyle42/mangatracker/internal/util"
)

type debugLogger interface {
	Debugf(string, ...any)
}

type fallback struct {
	primary   Extractor
	secondary Extractor
	log       debugLogger
}

// WithFallback returns an Extractor that tries primary first and consults
// secondary when primary produced no cover or was blocked by the site.
func WithFallback(primary, secondary Extractor, log debugLogger) Extractor {
	if secondary == nil {
		return primary
	}

	return &fallback{primary: primary, secondary: secondary, log: log}
}

func (f *fallback) Extract(ctx context.Context, url string) (Result, error) {
	res, err := f.primary.Extract(ctx, url)
	if err != nil {
		var fe *util.FetchError
		if !errors.As(err, &fe) || !fe.Blocked() {
			return Result{}, err
		}

		f.debugf("plain fetch blocked (%d), trying rendered page for %s\n", fe.StatusCode, url)
		alt, aerr := f.secondary.Extract(ctx, url)
		if aerr == nil && alt.HasCover() {
			return alt, nil
		}

		return Result{}, err
	}

	if res.HasCover() {
		return res, nil
	}

	f.debugf("no cover found, trying rendered page for %s\n", url)
	alt, aerr := f.secondary.Extract(ctx, url)
	if aerr != nil || !alt.HasCover() {
		return res, nil
	}

	return alt, nil
}

func (f *fallback) debugf(format string, args ...any) {
	if f.log != nil {
		f.log.Debugf(format, args...)
	}
}
