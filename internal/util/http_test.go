package util

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageURL = "https://manga.example.com/read/Eleceed-Chapitre-363-FR_498341.html"

func mockSession(t *testing.T, responder httpmock.Responder) *Session {
	t.Helper()

	mock := httpmock.NewMockTransport()
	mock.RegisterResponder(http.MethodGet, pageURL, responder)

	s, err := NewSession(HTTPClientOptions{Timeout: 5 * time.Second, Transport: mock})
	require.NoError(t, err)

	return s
}

func TestFetchSendsBrowserHeaders(t *testing.T) {
	var got http.Header
	s := mockSession(t, func(req *http.Request) (*http.Response, error) {
		got = req.Header.Clone()
		return httpmock.NewStringResponse(http.StatusOK, "<html></html>"), nil
	})

	page, err := s.Fetch(context.Background(), pageURL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.Status)
	assert.Equal(t, pageURL, page.URL)

	assert.Equal(t, PickUserAgent(""), got.Get("User-Agent"))
	assert.Contains(t, got.Get("Accept"), "text/html")
	assert.NotEmpty(t, got.Get("Accept-Language"))
	assert.Contains(t, got.Get("Accept-Encoding"), "br")
	assert.Equal(t, "navigate", got.Get("Sec-Fetch-Mode"))
	assert.Empty(t, got.Get("Cookie"))
}

func TestFetchCustomUserAgent(t *testing.T) {
	var ua string
	mock := httpmock.NewMockTransport()
	mock.RegisterResponder(http.MethodGet, pageURL, func(req *http.Request) (*http.Response, error) {
		ua = req.Header.Get("User-Agent")
		return httpmock.NewStringResponse(http.StatusOK, ""), nil
	})

	s, err := NewSession(HTTPClientOptions{UserAgent: "mangatracker-test/1.0", Transport: mock})
	require.NoError(t, err)

	_, err = s.Fetch(context.Background(), pageURL)
	require.NoError(t, err)
	assert.Equal(t, "mangatracker-test/1.0", ua)
}

func TestFetchNon2xx(t *testing.T) {
	tests := []struct {
		status  int
		blocked bool
	}{
		{http.StatusNotFound, false},
		{http.StatusInternalServerError, false},
		{http.StatusForbidden, true},
		{http.StatusTooManyRequests, true},
		{http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			s := mockSession(t, httpmock.NewStringResponder(tt.status, "nope"))

			page, err := s.Fetch(context.Background(), pageURL)
			require.Error(t, err)
			assert.Nil(t, page)

			var fe *FetchError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.status, fe.StatusCode)
			assert.Equal(t, pageURL, fe.URL)
			assert.Equal(t, tt.blocked, fe.Blocked())
			assert.Contains(t, fe.Error(), "HTTP")
		})
	}
}

func TestFetchUnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	s, err := NewSession(HTTPClientOptions{Timeout: 2 * time.Second})
	require.NoError(t, err)

	_, err = s.Fetch(context.Background(), addr+"/manga")
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Zero(t, fe.StatusCode)
	assert.False(t, fe.Blocked())
	assert.NotNil(t, errors.Unwrap(fe))
}

func TestFetchDecodesBodies(t *testing.T) {
	const html = "<html><body><h1>Eleceed</h1></body></html>"

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	_, _ = bw.Write([]byte(html))
	require.NoError(t, bw.Close())

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write([]byte(html))
	require.NoError(t, gw.Close())

	tests := []struct {
		name     string
		encoding string
		body     []byte
	}{
		{"identity", "", []byte(html)},
		{"brotli", "br", br.Bytes()},
		{"gzip", "gzip", gz.Bytes()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mockSession(t, func(*http.Request) (*http.Response, error) {
				resp := httpmock.NewBytesResponse(http.StatusOK, tt.body)
				resp.Header.Set("Content-Type", "text/html; charset=utf-8")
				if tt.encoding != "" {
					resp.Header.Set("Content-Encoding", tt.encoding)
				}
				return resp, nil
			})

			page, err := s.Fetch(context.Background(), pageURL)
			require.NoError(t, err)
			assert.Equal(t, html, page.HTML)
		})
	}
}

func TestFetchConvertsCharset(t *testing.T) {
	s := mockSession(t, func(*http.Request) (*http.Response, error) {
		resp := httpmock.NewBytesResponse(http.StatusOK, []byte("<p>caf\xe9</p>"))
		resp.Header.Set("Content-Type", "text/html; charset=iso-8859-1")
		return resp, nil
	})

	page, err := s.Fetch(context.Background(), pageURL)
	require.NoError(t, err)
	assert.Equal(t, "<p>café</p>", page.HTML)
}

func TestFetchRecordsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>moved</html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s, err := NewSession(HTTPClientOptions{})
	require.NoError(t, err)

	page, err := s.Fetch(context.Background(), srv.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/new", page.FinalURL)
	assert.Equal(t, []string{srv.URL + "/new"}, page.Redirects)
	assert.Equal(t, "<html>moved</html>", page.HTML)
}

func TestFetchTooManyRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	s, err := NewSession(HTTPClientOptions{})
	require.NoError(t, err)

	_, err = s.Fetch(context.Background(), srv.URL+"/a")
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "512 B", HumanBytes(512))
	assert.Equal(t, "1.50 KB", HumanBytes(1536))
	assert.Equal(t, "2.00 MB", HumanBytes(2<<20))
}
