package library

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Doudousmyle42/mangatracker/internal/chapters"
	"github.com/Doudousmyle42/mangatracker/internal/providers"
	"github.com/Doudousmyle42/mangatracker/internal/util"
)

type Logger interface {
	Debugf(string, ...any)
	Infof(string, ...any)
	Warnf(string, ...any)
}

// Recorder receives refresh outcomes. *metrics.Metrics implements it.
type Recorder interface {
	ObserveRefresh(outcome string)
}

// Service ties the extractor to the store.
type Service struct {
	store     *Store
	extractor providers.Extractor
	log       Logger
	metrics   Recorder
}

func NewService(store *Store, extractor providers.Extractor, log Logger, metrics Recorder) *Service {
	return &Service{store: store, extractor: extractor, log: log, metrics: metrics}
}

func (s *Service) Extractor() providers.Extractor { return s.extractor }

func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyURL
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrInvalidURL
	}

	return raw, nil
}

// Add extracts metadata for pageURL and stores a new entry.
func (s *Service) Add(ctx context.Context, pageURL string) (Entry, error) {
	pageURL, err := validateURL(pageURL)
	if err != nil {
		return Entry{}, err
	}

	res, err := s.extractor.Extract(ctx, pageURL)
	if err != nil {
		return Entry{}, fmt.Errorf("extract %s: %w", pageURL, err)
	}

	e := Entry{
		Title:      res.Title,
		Chapter:    res.Chapter,
		URL:        pageURL,
		CoverImage: res.CoverImage,
		Synopsis:   res.Synopsis,
		Source:     res.Source,
	}
	if err := s.store.Create(ctx, &e); err != nil {
		return Entry{}, err
	}

	s.infof("added %q (chapter %s) from %s\n", e.Title, e.Chapter, e.Source)

	return e, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Entry, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, query string) ([]Entry, error) {
	return s.store.List(ctx, query)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}

// SetChapter records a chapter typed by the user. No ordering check is
// applied: manual edits may move backwards.
func (s *Service) SetChapter(ctx context.Context, id int64, chapter string) (Entry, error) {
	chapter = strings.TrimSpace(chapter)
	if chapter == "" {
		return Entry{}, ErrEmptyChapter
	}

	if err := s.store.SetChapter(ctx, id, chapter); err != nil {
		return Entry{}, err
	}

	return s.store.Get(ctx, id)
}

// Refresh re-extracts the entry's page and merges the result. The boolean
// reports whether a newer chapter was recorded.
func (s *Service) Refresh(ctx context.Context, id int64) (Entry, bool, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return Entry{}, false, err
	}

	res, err := s.extractOnceMore(ctx, e.URL)
	if err != nil {
		s.observe("failed")
		return Entry{}, false, fmt.Errorf("refresh %d: %w", id, err)
	}

	newer := merge(&e, res)
	if err := s.store.Update(ctx, &e); err != nil {
		s.observe("failed")
		return Entry{}, false, err
	}

	if newer {
		s.observe("updated")
		s.infof("%q: new chapter %s\n", e.Title, e.Chapter)
	} else {
		s.observe("unchanged")
	}

	return e, newer, nil
}

// extractOnceMore re-invokes the extractor a single time after a fetch
// failure.
func (s *Service) extractOnceMore(ctx context.Context, pageURL string) (providers.Result, error) {
	res, err := s.extractor.Extract(ctx, pageURL)

	var fe *util.FetchError
	if err != nil && errors.As(err, &fe) && ctx.Err() == nil {
		if s.log != nil {
			s.log.Debugf("retrying %s after %v\n", pageURL, err)
		}
		res, err = s.extractor.Extract(ctx, pageURL)
	}

	return res, err
}

// merge applies a fresh extraction to e. Defaults never overwrite stored
// values and the chapter only moves forward.
func merge(e *Entry, res providers.Result) bool {
	if res.Title != "" && res.Title != providers.UnknownTitle {
		e.Title = res.Title
	}
	if res.HasCover() || e.CoverImage == "" {
		e.CoverImage = res.CoverImage
	}
	if res.Synopsis != "" {
		e.Synopsis = res.Synopsis
	}
	if res.Source != "" {
		e.Source = res.Source
	}

	if chapters.IsNewer(e.Chapter, res.Chapter) {
		e.Chapter = res.Chapter
		return true
	}

	return false
}

func (s *Service) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveRefresh(outcome)
	}
}

func (s *Service) infof(format string, args ...any) {
	if s.log != nil {
		s.log.Infof(format, args...)
	}
}
