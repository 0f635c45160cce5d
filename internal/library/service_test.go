package library

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Doudousmyle42/mangatracker/internal/providers"
	"github.com/Doudousmyle42/mangatracker/internal/util"
)

// fakeExtractor returns queued results per URL, repeating the last one.
type fakeExtractor struct {
	mu      sync.Mutex
	results map[string][]fakeResult
	calls   map[string]int
}

type fakeResult struct {
	res providers.Result
	err error
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{results: map[string][]fakeResult{}, calls: map[string]int{}}
}

func (f *fakeExtractor) on(url string, res providers.Result, err error) *fakeExtractor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[url] = append(f.results[url], fakeResult{res, err})
	return f
}

func (f *fakeExtractor) Extract(_ context.Context, url string) (providers.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := f.calls[url]
	f.calls[url]++

	queue := f.results[url]
	if len(queue) == 0 {
		return providers.Result{}, &util.FetchError{URL: url, StatusCode: http.StatusNotFound, Err: errors.New("404")}
	}
	if n >= len(queue) {
		n = len(queue) - 1
	}

	return queue[n].res, queue[n].err
}

func (f *fakeExtractor) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

const elecURL = "https://www.scan-manga.com/lecture-en-ligne/Eleceed-Chapitre-363-FR_498341.html"

func elecResult(chapter string) providers.Result {
	return providers.Result{
		Title:      "Eleceed",
		Chapter:    chapter,
		CoverImage: "https://www.scan-manga.com/img/eleceed.jpg",
		Synopsis:   "Jiwoo is a kind-hearted young man with cat-like reflexes.",
		Source:     "scan-manga",
	}
}

func newTestService(t *testing.T, ex providers.Extractor) *Service {
	t.Helper()
	return NewService(newTestStore(t), ex, nil, nil)
}

func TestServiceAdd(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newFakeExtractor().on(elecURL, elecResult("363"), nil))

	e, err := svc.Add(ctx, "  "+elecURL+" ")
	require.NoError(t, err)
	assert.Equal(t, "Eleceed", e.Title)
	assert.Equal(t, "363", e.Chapter)
	assert.Equal(t, elecURL, e.URL)
	assert.Equal(t, "scan-manga", e.Source)

	stored, err := svc.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Synopsis, stored.Synopsis)
}

func TestServiceAddRejectsBadInput(t *testing.T) {
	svc := newTestService(t, newFakeExtractor())

	_, err := svc.Add(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyURL)

	_, err = svc.Add(context.Background(), "ftp://example.com/x")
	assert.ErrorIs(t, err, ErrInvalidURL)

	_, err = svc.Add(context.Background(), "/relative/path")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestServiceAddSurfacesFetchError(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newFakeExtractor())

	_, err := svc.Add(ctx, "https://example.com/gone")
	var fe *util.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestServiceRefreshChapterOnlyMovesForward(t *testing.T) {
	ctx := context.Background()
	ex := newFakeExtractor().
		on(elecURL, elecResult("363"), nil).
		on(elecURL, elecResult("364"), nil).
		on(elecURL, elecResult("12"), nil)
	svc := newTestService(t, ex)

	e, err := svc.Add(ctx, elecURL)
	require.NoError(t, err)

	e, newer, err := svc.Refresh(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, newer)
	assert.Equal(t, "364", e.Chapter)

	e, newer, err = svc.Refresh(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, newer)
	assert.Equal(t, "364", e.Chapter)
}

func TestServiceRefreshKeepsKnownValues(t *testing.T) {
	ctx := context.Background()
	degraded := providers.Result{
		Title:      providers.UnknownTitle,
		Chapter:    "1",
		CoverImage: providers.Placeholder,
		Source:     "scan-manga",
	}
	ex := newFakeExtractor().on(elecURL, elecResult("363"), nil).on(elecURL, degraded, nil)
	svc := newTestService(t, ex)

	e, err := svc.Add(ctx, elecURL)
	require.NoError(t, err)

	got, newer, err := svc.Refresh(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, newer)
	assert.Equal(t, "Eleceed", got.Title)
	assert.Equal(t, "363", got.Chapter)
	assert.Equal(t, e.CoverImage, got.CoverImage)
	assert.Equal(t, e.Synopsis, got.Synopsis)
}

func TestServiceRefreshRetriesOnceOnFetchError(t *testing.T) {
	ctx := context.Background()
	flaky := &util.FetchError{URL: elecURL, StatusCode: http.StatusBadGateway, Err: errors.New("502")}
	ex := newFakeExtractor().
		on(elecURL, elecResult("363"), nil).
		on(elecURL, providers.Result{}, flaky).
		on(elecURL, elecResult("365"), nil)
	svc := newTestService(t, ex)

	e, err := svc.Add(ctx, elecURL)
	require.NoError(t, err)

	e, newer, err := svc.Refresh(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, newer)
	assert.Equal(t, "365", e.Chapter)
	assert.Equal(t, 3, ex.count(elecURL))
}

func TestServiceRefreshGivesUpAfterSecondFailure(t *testing.T) {
	ctx := context.Background()
	down := &util.FetchError{URL: elecURL, Err: errors.New("connection refused")}
	ex := newFakeExtractor().on(elecURL, elecResult("363"), nil).on(elecURL, providers.Result{}, down)
	svc := newTestService(t, ex)

	e, err := svc.Add(ctx, elecURL)
	require.NoError(t, err)

	_, _, err = svc.Refresh(ctx, e.ID)
	require.ErrorIs(t, err, down)
	assert.Equal(t, 3, ex.count(elecURL))

	stored, err := svc.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "363", stored.Chapter)
}

func TestServiceRefreshUnknownID(t *testing.T) {
	svc := newTestService(t, newFakeExtractor())

	_, _, err := svc.Refresh(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceSetChapter(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newFakeExtractor().on(elecURL, elecResult("363"), nil))

	e, err := svc.Add(ctx, elecURL)
	require.NoError(t, err)

	_, err = svc.SetChapter(ctx, e.ID, "  ")
	assert.ErrorIs(t, err, ErrEmptyChapter)

	got, err := svc.SetChapter(ctx, e.ID, " 100 ")
	require.NoError(t, err)
	assert.Equal(t, "100", got.Chapter, "manual edits may go backwards")

	_, err = svc.SetChapter(ctx, 999, "1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceRefreshAll(t *testing.T) {
	ctx := context.Background()
	const soloURL = "https://example.com/manga/Solo-Leveling-Chapter-110"
	const goneURL = "https://example.com/manga/Gone-Chapter-1"

	ex := newFakeExtractor().
		on(elecURL, elecResult("363"), nil).
		on(elecURL, elecResult("364"), nil).
		on(soloURL, providers.Result{Title: "Solo Leveling", Chapter: "110", CoverImage: providers.Placeholder}, nil).
		on(goneURL, providers.Result{Title: "Gone", Chapter: "1", CoverImage: providers.Placeholder}, nil).
		on(goneURL, providers.Result{}, &util.FetchError{URL: goneURL, StatusCode: http.StatusNotFound, Err: errors.New("404")})
	svc := newTestService(t, ex)

	for _, u := range []string{elecURL, soloURL, goneURL} {
		_, err := svc.Add(ctx, u)
		require.NoError(t, err)
	}

	report, err := svc.RefreshAll(ctx, nil, 4, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(2), report.Stats.Refreshed.Load())
	assert.Equal(t, int64(1), report.Stats.NewChapters.Load())
	assert.Equal(t, int64(1), report.Stats.Failed.Load())
	require.Len(t, report.Updated, 1)
	assert.Equal(t, "364", report.Updated[0].Chapter)
	require.Len(t, report.Failures, 1)
	assert.Contains(t, report.Failures[0].String(), "404")
}

func TestServiceRefreshAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := newTestService(t, newFakeExtractor().on(elecURL, elecResult("363"), nil))

	e, err := svc.Add(context.Background(), elecURL)
	require.NoError(t, err)

	cancel()
	_, err = svc.RefreshAll(ctx, []int64{e.ID, e.ID, e.ID}, 1, nil)
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}
