package util

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
)

const (
	DefaultTimeout   = 30 * time.Second
	MaxRedirects     = 10
	MaxBodyBytes     = 10 << 20
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

type HTTPClientOptions struct {
	Timeout          time.Duration
	UserAgent        string
	CloudflareBypass bool
	Transport        http.RoundTripper
	DebugLogger      interface {
		Debugf(string, ...any)
	}
}

// FetchError reports a page that could not be retrieved: a transport
// failure (StatusCode 0) or a non-2xx response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}

	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Blocked reports statuses sites use to turn away non-browser clients.
func (e *FetchError) Blocked() bool {
	switch e.StatusCode {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}

	return false
}

// Page is a decoded HTML document and where it was finally served from.
type Page struct {
	URL       string
	FinalURL  string
	Status    int
	HTML      string
	Redirects []string
}

// Session issues browser-like GET requests. It holds no per-request state
// and is safe for concurrent use.
type Session struct {
	client *http.Client
	log    interface{ Debugf(string, ...any) }
}

func NewSession(opts HTTPClientOptions) (*Session, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	var baseTransport http.RoundTripper
	if opts.Transport != nil {
		baseTransport = opts.Transport
	} else {
		baseTransport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxConnsPerHost:     16,
			MaxIdleConnsPerHost: 16,
			ForceAttemptHTTP2:   true,
		}
	}

	if opts.CloudflareBypass {
		baseTransport = cloudflarebp.AddCloudFlareByPass(baseTransport)
	}

	client := &http.Client{
		Timeout: opts.Timeout,
		Transport: roundTripper{
			base: baseTransport,
			ua:   PickUserAgent(opts.UserAgent),
			log:  opts.DebugLogger,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", MaxRedirects)
			}

			return nil
		},
	}

	if opts.DebugLogger != nil {
		opts.DebugLogger.Debugf("HTTP session initialized (timeout=%s, cloudflare=%t)\n",
			opts.Timeout, opts.CloudflareBypass)
	}

	return &Session{client: client, log: opts.DebugLogger}, nil
}

type roundTripper struct {
	base http.RoundTripper
	ua   string
	log  interface{ Debugf(string, ...any) }
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range browserHeaders(rt.ua) {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}

	if rt.log != nil {
		rt.log.Debugf("HTTP %s %s\n", req.Method, req.URL.String())
	}

	return rt.base.RoundTrip(req)
}

func browserHeaders(ua string) map[string]string {
	return map[string]string{
		"User-Agent":                ua,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language":           "fr-FR,fr;q=0.9,en-US;q=0.8,en;q=0.7",
		"Accept-Encoding":           "gzip, deflate, br",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
		"Cache-Control":             "max-age=0",
	}
}

// Fetch retrieves url once. Any transport failure or non-2xx status is
// returned as *FetchError; there is no retry.
func (s *Session) Fetch(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	var hops []string
	client := *s.client
	client.CheckRedirect = func(r *http.Request, via []*http.Request) error {
		hops = append(hops, r.URL.String())
		return s.client.CheckRedirect(r, via)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        errors.New(resp.Status),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: err}
	}

	body, err := decodeBody(raw, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: err}
	}

	html, err := toUTF8(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: err}
	}

	if s.log != nil {
		s.log.Debugf("fetched %s (%d, %s, %d redirects)\n",
			url, resp.StatusCode, HumanBytes(int64(len(html))), len(hops))
	}

	final := url
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}

	return &Page{
		URL:       url,
		FinalURL:  final,
		Status:    resp.StatusCode,
		HTML:      html,
		Redirects: hops,
	}, nil
}

func decodeBody(body []byte, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip":
		r, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer r.Close()

		return io.ReadAll(io.LimitReader(r, MaxBodyBytes))

	case "deflate":
		r := flate.NewReader(bytes.NewReader(body))
		defer r.Close()

		return io.ReadAll(io.LimitReader(r, MaxBodyBytes))

	case "br":
		return io.ReadAll(io.LimitReader(brotli.NewReader(bytes.NewReader(body)), MaxBodyBytes))

	default:
		return body, nil
	}
}

func toUTF8(body []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		// unknown label: keep the raw bytes
		return string(body), nil
	}

	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("charset: %w", err)
	}

	return string(out), nil
}

func PickUserAgent(override string) string {
	if override != "" {
		return override
	}

	return defaultUserAgent
}
