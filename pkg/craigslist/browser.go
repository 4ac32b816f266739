package craigslist

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/dealio/dealio/internal/logger"
)

// BrowserFetcher renders search pages in headless Chrome and returns the
// resulting HTML. Newer result pages only fill in their list client-side.
type BrowserFetcher struct {
	opts      fetcherOptions
	chromeBin string
	logger    logger.Logger
}

// NewBrowserFetcher creates a fetcher that launches Chrome once per page.
// chromeBin may be empty to let chromedp locate the browser.
func NewBrowserFetcher(log logger.Logger, chromeBin string, opts ...FetcherOption) *BrowserFetcher {
	return &BrowserFetcher{
		opts:      buildOptions(opts),
		chromeBin: chromeBin,
		logger:    log,
	}
}

func (b *BrowserFetcher) Fetch(ctx context.Context, market, code string) (string, error) {
	url := b.opts.urlFor(market, code)
	b.logger.Info("rendering search page",
		logger.String("market", market),
		logger.String("code", code),
		logger.String("url", url))

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(b.opts.userAgent),
	)
	if b.chromeBin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(b.chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, b.opts.timeout)
	defer cancelRun()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}

	if err := b.opts.pacer.Wait(ctx); err != nil {
		return "", fmt.Errorf("pace after %s: %w", url, err)
	}

	return html, nil
}

var (
	_ Fetcher = (*HTTPFetcher)(nil)
	_ Fetcher = (*BrowserFetcher)(nil)
)
