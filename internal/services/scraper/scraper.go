// Package scraper fetches blog articles and reduces them to plain text.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"blogcast/internal/config"
	"blogcast/internal/services"
	"blogcast/internal/textutil"
)

// Article is the readable content extracted from a blog page.
type Article struct {
	URL   string
	Title string
	Text  string
}

// Scraper downloads pages and extracts readable article text.
type Scraper struct {
	client    *http.Client
	userAgent string
}

// New constructs a Scraper from configuration.
func New(cfg *config.Config) *Scraper {
	return &Scraper{
		client: &http.Client{
			Timeout: time.Duration(cfg.Scraper.TimeoutSeconds) * time.Second,
		},
		userAgent: cfg.Scraper.UserAgent,
	}
}

// Fetch downloads a page and extracts its title and readable body text.
// An unreachable page, a non-2xx response, or a page with no extractable
// text all classify as fetch failures.
func (s *Scraper) Fetch(ctx context.Context, pageURL string) (*Article, error) {
	const op = "fetch"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "extract", op, "invalid URL", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrFetch, "extract", op, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, services.Wrap(services.ErrFetch, "extract", op,
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrFetch, "extract", op, "parse HTML", err)
	}

	article := extract(doc)
	article.URL = pageURL
	if article.Text == "" {
		return nil, services.Wrap(services.ErrFetch, "extract", op, "no readable text in page", nil)
	}
	return article, nil
}

// Parse extracts an article from already-downloaded HTML. Exposed for the
// CLI's offline mode and for tests.
func Parse(pageURL string, body io.Reader) (*Article, error) {
	doc, err := html.Parse(body)
	if err != nil {
		return nil, services.Wrap(services.ErrFetch, "extract", "parse", "parse HTML", err)
	}
	article := extract(doc)
	article.URL = pageURL
	if article.Text == "" {
		return nil, services.Wrap(services.ErrFetch, "extract", "parse", "no readable text in page", nil)
	}
	return article, nil
}

// Elements whose subtree never contributes readable article text.
var skippedElements = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"head":     {},
	"nav":      {},
	"header":   {},
	"footer":   {},
	"aside":    {},
	"form":     {},
	"iframe":   {},
	"svg":      {},
}

func extract(doc *html.Node) *Article {
	article := &Article{}
	var builder strings.Builder

	var walk func(node *html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			if node.Data == "title" && article.Title == "" {
				article.Title = strings.TrimSpace(textContent(node))
				return
			}
			if _, skip := skippedElements[node.Data]; skip {
				return
			}
		}
		if node.Type == html.TextNode {
			builder.WriteString(node.Data)
			builder.WriteString("\n")
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if node.Type == html.ElementNode && isBlockElement(node.Data) {
			builder.WriteString("\n")
		}
	}
	walk(doc)

	article.Text = textutil.CollapseWhitespace(norm.NFC.String(builder.String()))
	article.Title = norm.NFC.String(article.Title)
	if article.Title == "" {
		article.Title = firstLine(article.Text)
	}
	return article
}

func isBlockElement(name string) bool {
	switch name {
	case "p", "div", "section", "article", "li", "br",
		"h1", "h2", "h3", "h4", "h5", "h6", "blockquote", "pre":
		return true
	}
	return false
}

func textContent(node *html.Node) string {
	var builder strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			builder.WriteString(child.Data)
		}
	}
	return builder.String()
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}
