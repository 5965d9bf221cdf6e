package scraper_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"blogcast/internal/services"
	"blogcast/internal/services/scraper"
	"blogcast/internal/testsupport"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
<title>A Sample Post</title>
<style>body { color: red; }</style>
<script>console.log("noise");</script>
</head>
<body>
<nav>Home | About</nav>
<article>
<h1>A Sample Post</h1>
<p>First paragraph of the article.</p>
<p>Second paragraph with more detail.</p>
</article>
<footer>Copyright</footer>
</body>
</html>`

func TestFetchExtractsTitleAndText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected User-Agent header")
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	s := scraper.New(testsupport.NewConfig(t))
	article, err := s.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if article.Title != "A Sample Post" {
		t.Fatalf("unexpected title: %q", article.Title)
	}
	if !strings.Contains(article.Text, "First paragraph of the article.") {
		t.Fatalf("body text missing: %q", article.Text)
	}
	if strings.Contains(article.Text, "console.log") {
		t.Fatalf("script content leaked into text: %q", article.Text)
	}
	if strings.Contains(article.Text, "Home | About") {
		t.Fatalf("navigation leaked into text: %q", article.Text)
	}
}

func TestFetchNonOKStatusIsFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	s := scraper.New(testsupport.NewConfig(t))
	_, err := s.Fetch(context.Background(), server.URL)
	if !errors.Is(err, services.ErrFetch) {
		t.Fatalf("expected fetch error, got %v", err)
	}
}

func TestFetchEmptyPageIsFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><head><script>only();</script></head><body></body></html>"))
	}))
	defer server.Close()

	s := scraper.New(testsupport.NewConfig(t))
	_, err := s.Fetch(context.Background(), server.URL)
	if !errors.Is(err, services.ErrFetch) {
		t.Fatalf("expected fetch error for empty page, got %v", err)
	}
}

func TestFetchInvalidURLIsValidationError(t *testing.T) {
	s := scraper.New(testsupport.NewConfig(t))
	_, err := s.Fetch(context.Background(), "://not-a-url")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseFallsBackToFirstLineForTitle(t *testing.T) {
	page := "<html><body><p>Lead sentence here.</p><p>Another one.</p></body></html>"
	article, err := scraper.Parse("https://example.com/post", strings.NewReader(page))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if article.Title != "Lead sentence here." {
		t.Fatalf("unexpected fallback title: %q", article.Title)
	}
}
