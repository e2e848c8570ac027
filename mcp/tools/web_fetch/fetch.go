// Package web_fetch: page fetch + readability extraction.
package web_fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

// Result is one fetched document. Text holds the readable extraction for HTML
// pages and the body as-is otherwise (or when raw content was requested).
type Result struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Text        string `json:"text"`
	ContentType string `json:"content_type"`
	Status      int    `json:"status"`
	RenderMS    int    `json:"render_ms"`
	// Simplified is false when the content could not be reduced to readable text.
	Simplified bool `json:"simplified"`
}

// Fetcher retrieves a single URL.
type Fetcher interface {
	Fetch(ctx context.Context, link string, raw bool) (Result, error)
	Close()
}

// Options shared by all fetchers.
type Options struct {
	Timeout   time.Duration
	MaxChars  int
	UserAgent string
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.MaxChars <= 0 {
		o.MaxChars = 20000
	}
	if o.UserAgent == "" {
		o.UserAgent = "itinerary-fetch/1.0"
	}
	return o
}

// New selects a fetcher by name: "http" (default) or "chromedp".
func New(kind string, opts Options) (Fetcher, error) {
	switch kind {
	case "", "http":
		return NewHTTPFetcher(opts, nil), nil
	case "chromedp":
		return NewChromeFetcher(opts)
	default:
		return nil, fmt.Errorf("unknown fetcher %q", kind)
	}
}

var errInvalidURL = errors.New("invalid url: only absolute http(s) URLs are supported")

func parseLink(link string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errInvalidURL
	}
	return stripTracking(u), nil
}

func isHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return true
	}
	head := body
	if len(head) > 100 {
		head = head[:100]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<html"))
}

// extract runs readability over an HTML document and bounds the result.
func extract(html []byte, u *url.URL, maxChars int) (title, text string, ok bool) {
	article, err := readability.FromReader(bytes.NewReader(html), u)
	if err != nil {
		return "", "", false
	}
	text = strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", "", false
	}
	return strings.TrimSpace(article.Title), truncateRunes(text, maxChars), true
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
