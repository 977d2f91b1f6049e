package indexer

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"

	"github.com/kbcrew/kbcrew/internal/knowledge"
	"github.com/kbcrew/kbcrew/internal/security"
)

// Page is the extracted content of one web page.
type Page struct {
	URL   string
	Title string
	Text  string
}

// Fetcher retrieves and extracts a web page. Defined here by the consumer;
// *CollyFetcher is the production implementation.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// AddURL fetches a web page, extracts its readable text, and indexes it,
// replacing chunks previously indexed from the same URL. Returns the
// number of chunks stored.
func (idx *Indexer) AddURL(ctx context.Context, fetcher Fetcher, rawURL string) (int, error) {
	if fetcher == nil {
		return 0, fmt.Errorf("no fetcher configured")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return 0, fmt.Errorf("invalid URL %q: must be http or https", rawURL)
	}

	unlock, err := idx.acquireLock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	page, err := fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return 0, fmt.Errorf("fetching %s: %w", rawURL, err)
	}

	return idx.indexContent(ctx, rawURL, page.Text, map[string]string{
		"source_type": knowledge.SourceTypeWeb,
		"title":       page.Title,
	})
}

// ScraperConfig bounds the web fetcher. Zero values are replaced by
// defaults.
type ScraperConfig struct {
	// Parallelism caps concurrent requests per domain.
	Parallelism int

	// Delay is the minimum wait between requests to one domain.
	Delay time.Duration

	// Timeout bounds one fetch.
	Timeout time.Duration

	// MaxBodySize caps the response body, in bytes.
	MaxBodySize int

	// UserAgent is sent with every request.
	UserAgent string
}

func (c ScraperConfig) withDefaults() ScraperConfig {
	if c.Parallelism <= 0 {
		c.Parallelism = 2
	}
	if c.Delay <= 0 {
		c.Delay = time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = 10 << 20
	}
	if c.UserAgent == "" {
		c.UserAgent = "kbcrew/1.0"
	}
	return c
}

// CollyFetcher fetches pages with colly and extracts readable article text
// with readability, falling back to plain DOM text for pages readability
// cannot parse. Every fetch goes through the SSRF guard, statically and
// again at dial time.
type CollyFetcher struct {
	cfg   ScraperConfig
	guard *security.URLGuard
}

// NewCollyFetcher creates a CollyFetcher.
func NewCollyFetcher(cfg ScraperConfig) *CollyFetcher {
	return &CollyFetcher{cfg: cfg.withDefaults(), guard: security.NewURLGuard()}
}

func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	if err := f.guard.Check(rawURL); err != nil {
		return Page{}, err
	}

	c := colly.NewCollector(
		colly.UserAgent(f.cfg.UserAgent),
		colly.MaxBodySize(f.cfg.MaxBodySize),
	)
	c.WithTransport(f.guard.Transport())
	c.SetRequestTimeout(f.cfg.Timeout)
	c.SetRedirectHandler(f.guard.CheckRedirect)
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: f.cfg.Parallelism,
		Delay:       f.cfg.Delay,
	}); err != nil {
		return Page{}, fmt.Errorf("configuring rate limit: %w", err)
	}

	var body []byte
	var fetchErr error
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(rawURL); err != nil {
		return Page{}, err
	}
	c.Wait()

	if fetchErr != nil {
		return Page{}, fetchErr
	}
	if len(body) == 0 {
		return Page{}, fmt.Errorf("empty response from %s", rawURL)
	}

	return extractPage(rawURL, body)
}

// extractPage pulls title and readable text out of an HTML body.
func extractPage(rawURL string, body []byte) (Page, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return Page{}, fmt.Errorf("parsing URL: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return Page{
			URL:   rawURL,
			Title: article.Title,
			Text:  strings.TrimSpace(article.TextContent),
		}, nil
	}

	// Readability gave up; fall back to raw DOM text.
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Page{}, fmt.Errorf("parsing HTML: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	text := strings.TrimSpace(doc.Find("body").Text())
	if text == "" {
		return Page{}, fmt.Errorf("no extractable text at %s", rawURL)
	}

	return Page{
		URL:   rawURL,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		Text:  text,
	}, nil
}
