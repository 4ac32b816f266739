package craigslist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dealio/dealio/internal/logger"
	"github.com/dealio/dealio/internal/pacer"
)

// DefaultTimeout bounds a single page request.
const DefaultTimeout = 15 * time.Second

const maxBodyBytes = 10 << 20

// ErrUnexpectedStatus is returned for non-2xx responses.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Fetcher retrieves one page of search results for a market and category code.
type Fetcher interface {
	Fetch(ctx context.Context, market, code string) (string, error)
}

// HTTPFetcher issues a single GET per page. It is not retried.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	urlFor    func(market, code string) string
	pacer     pacer.Pacer
	logger    logger.Logger
}

// FetcherOption customizes an HTTPFetcher or BrowserFetcher.
type FetcherOption func(*fetcherOptions)

type fetcherOptions struct {
	timeout   time.Duration
	userAgent string
	urlFor    func(market, code string) string
	pacer     pacer.Pacer
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(o *fetcherOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) FetcherOption {
	return func(o *fetcherOptions) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// WithURLBuilder replaces SearchURL, e.g. with FeedURL or a test server.
func WithURLBuilder(fn func(market, code string) string) FetcherOption {
	return func(o *fetcherOptions) {
		if fn != nil {
			o.urlFor = fn
		}
	}
}

// WithPacer sets the delay taken after every successful fetch.
func WithPacer(p pacer.Pacer) FetcherOption {
	return func(o *fetcherOptions) {
		if p != nil {
			o.pacer = p
		}
	}
}

func buildOptions(opts []FetcherOption) fetcherOptions {
	o := fetcherOptions{
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
		urlFor:    SearchURL,
		pacer:     pacer.NewRandom(time.Second, 3*time.Second),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewHTTPFetcher creates a fetcher with a 15s timeout and a 1-3s politeness delay.
func NewHTTPFetcher(log logger.Logger, opts ...FetcherOption) *HTTPFetcher {
	o := buildOptions(opts)
	return &HTTPFetcher{
		client:    &http.Client{Timeout: o.timeout},
		userAgent: o.userAgent,
		urlFor:    o.urlFor,
		pacer:     o.pacer,
		logger:    log,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, market, code string) (string, error) {
	url := f.urlFor(market, code)
	f.logger.Info("fetching search page",
		logger.String("market", market),
		logger.String("code", code),
		logger.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request %s: %w", url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: %w %d", url, ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body %s: %w", url, err)
	}

	if err := f.pacer.Wait(ctx); err != nil {
		return "", fmt.Errorf("pace after %s: %w", url, err)
	}

	return string(body), nil
}
