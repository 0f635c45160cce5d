package generic

import (
	"context"
	"time"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/Doudousmyle42/mangatracker/internal/providers"
	"github.com/Doudousmyle42/mangatracker/internal/util"
)

const hideWebdriver = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

type RenderOptions struct {
	ExecPath  string
	Headless  bool
	UserAgent string
	Timeout   time.Duration
	Settle    time.Duration
}

// Renderer extracts metadata from a page after a headless browser has
// run its scripts. Each call starts and tears down its own browser.
type Renderer struct {
	scraper *Scraper
	opts    RenderOptions
	log     Logger
}

func NewRenderer(scraper *Scraper, opts RenderOptions, log Logger) *Renderer {
	if opts.Timeout <= 0 {
		opts.Timeout = 45 * time.Second
	}
	if opts.Settle < 0 {
		opts.Settle = 0
	}

	return &Renderer{scraper: scraper, opts: opts, log: log}
}

// Extract never fails: when the browser cannot be started or the page
// does not load, the URL-derived title and chapter are returned with the
// placeholder cover.
func (r *Renderer) Extract(ctx context.Context, pageURL string) (providers.Result, error) {
	html, final, err := r.render(ctx, pageURL)
	if err != nil {
		if r.log != nil {
			r.log.Warnf("rendered fetch of %s failed: %v\n", pageURL, err)
		}
		return r.heuristic(pageURL), nil
	}

	return r.scraper.extract(pageURL, final, html), nil
}

func (r *Renderer) render(ctx context.Context, pageURL string) (string, string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", r.opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.NoSandbox,
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(util.PickUserAgent(r.opts.UserAgent)),
	)
	if r.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...any) {}))
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, r.opts.Timeout)
	defer cancelRun()

	var html, final string
	err := chromedp.Run(runCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := cdppage.AddScriptToEvaluateOnNewDocument(hideWebdriver).Do(ctx)
			return err
		}),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(r.opts.Settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&final),
	)
	if err != nil {
		return "", "", err
	}

	return html, final, nil
}

func (r *Renderer) heuristic(pageURL string) providers.Result {
	res := providers.Result{
		Title:      providers.UnknownTitle,
		Chapter:    ChapterFromURL(pageURL),
		CoverImage: providers.Placeholder,
		Source:     SourceLabel(pageURL),
	}
	if t, ok := TitleFromURL(pageURL); ok {
		res.Title = t
	}

	return res
}
