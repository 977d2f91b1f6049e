package indexer

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// mockFetcher implements Fetcher for testing.
type mockFetcher struct {
	page Page
	err  error

	lastURL string
}

func (m *mockFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	m.lastURL = rawURL
	if m.err != nil {
		return Page{}, m.err
	}
	return m.page, nil
}

func TestAddURL(t *testing.T) {
	store := &mockStore{}
	idx := New(store, Config{}, testLogger())

	fetcher := &mockFetcher{
		page: Page{
			URL:   "https://example.com/report",
			Title: "Annual Report",
			Text:  "Revenue grew twelve percent year over year.",
		},
	}

	chunks, err := idx.AddURL(context.Background(), fetcher, "https://example.com/report")
	if err != nil {
		t.Fatalf("AddURL failed: %v", err)
	}
	if chunks != 1 {
		t.Errorf("expected 1 chunk, got %d", chunks)
	}
	if fetcher.lastURL != "https://example.com/report" {
		t.Errorf("fetcher got %q", fetcher.lastURL)
	}

	doc := store.added[0]
	if doc.Metadata["source_type"] != "web" {
		t.Errorf("source_type = %q", doc.Metadata["source_type"])
	}
	if doc.Metadata["source"] != "https://example.com/report" {
		t.Errorf("source = %q", doc.Metadata["source"])
	}
	if doc.Metadata["title"] != "Annual Report" {
		t.Errorf("title = %q", doc.Metadata["title"])
	}
}

func TestAddURLValidation(t *testing.T) {
	idx := New(&mockStore{}, Config{}, testLogger())
	fetcher := &mockFetcher{}

	tests := []string{
		"ftp://example.com/file",
		"not a url",
		"file:///etc/passwd",
		"",
	}
	for _, rawURL := range tests {
		if _, err := idx.AddURL(context.Background(), fetcher, rawURL); err == nil {
			t.Errorf("AddURL(%q) should fail", rawURL)
		}
	}
	if fetcher.lastURL != "" {
		t.Error("fetcher must not be called for invalid URLs")
	}
}

func TestAddURLFetchError(t *testing.T) {
	idx := New(&mockStore{}, Config{}, testLogger())
	fetcher := &mockFetcher{err: errors.New("connection refused")}

	_, err := idx.AddURL(context.Background(), fetcher, "https://example.com")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("error should wrap fetch error: %v", err)
	}
}

func TestAddURLNilFetcher(t *testing.T) {
	idx := New(&mockStore{}, Config{}, testLogger())
	if _, err := idx.AddURL(context.Background(), nil, "https://example.com"); err == nil {
		t.Fatal("expected error for nil fetcher")
	}
}

func TestExtractPageReadable(t *testing.T) {
	html := `<!DOCTYPE html>
<html>
<head><title>Quarterly Report</title></head>
<body>
<article>
<h1>Quarterly Report</h1>
<p>Revenue grew twelve percent year over year, driven by subscription
renewals across all regions. Operating margin held steady at twenty one
percent despite increased infrastructure spending.</p>
<p>The board approved a continued investment plan for the research
division, citing strong pipeline results from the previous fiscal year.</p>
</article>
</body>
</html>`

	page, err := extractPage("https://example.com/report", []byte(html))
	if err != nil {
		t.Fatalf("extractPage failed: %v", err)
	}
	if !strings.Contains(page.Text, "Revenue grew twelve percent") {
		t.Errorf("article text not extracted: %q", page.Text)
	}
	if strings.Contains(page.Text, "<p>") {
		t.Error("extracted text should not contain HTML tags")
	}
}

func TestExtractPageFallback(t *testing.T) {
	// No article structure; the goquery fallback should still pull the
	// body text and strip scripts.
	html := `<html><head><title>Bare Page</title>
<script>var tracked = true;</script></head>
<body><div>Minimal page content here.</div>
<script>console.log("noise")</script></body></html>`

	page, err := extractPage("https://example.com/bare", []byte(html))
	if err != nil {
		t.Fatalf("extractPage failed: %v", err)
	}
	if !strings.Contains(page.Text, "Minimal page content here.") {
		t.Errorf("body text not extracted: %q", page.Text)
	}
	if strings.Contains(page.Text, "tracked") || strings.Contains(page.Text, "noise") {
		t.Errorf("script content leaked into text: %q", page.Text)
	}
}

func TestExtractPageEmpty(t *testing.T) {
	if _, err := extractPage("https://example.com", []byte("<html><body></body></html>")); err == nil {
		t.Error("expected error for page with no text")
	}
}

func TestScraperConfigDefaults(t *testing.T) {
	cfg := ScraperConfig{}.withDefaults()
	if cfg.Parallelism != 2 {
		t.Errorf("Parallelism = %d", cfg.Parallelism)
	}
	if cfg.MaxBodySize != 10<<20 {
		t.Errorf("MaxBodySize = %d", cfg.MaxBodySize)
	}
	if cfg.UserAgent == "" {
		t.Error("UserAgent should have a default")
	}
}

func TestCollyFetcherBlocksUnsafeTargets(t *testing.T) {
	fetcher := NewCollyFetcher(ScraperConfig{})
	for _, u := range []string{
		"http://127.0.0.1/admin",
		"http://169.254.169.254/latest/meta-data/",
		"http://localhost:8080/",
	} {
		if _, err := fetcher.Fetch(context.Background(), u); err == nil {
			t.Errorf("Fetch(%q) should be blocked", u)
		}
	}
}
