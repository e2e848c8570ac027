package web_fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxBodyBytes = 5 << 20

// HTTPFetcher fetches pages with a plain HTTP GET.
type HTTPFetcher struct {
	client *http.Client
	opts   Options
}

// NewHTTPFetcher uses client when non-nil, otherwise a client with the configured timeout.
func NewHTTPFetcher(opts Options, client *http.Client) *HTTPFetcher {
	opts = opts.withDefaults()
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &HTTPFetcher{client: client, opts: opts}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, link string, raw bool) (Result, error) {
	u, err := parseLink(link)
	if err != nil {
		return Result{}, err
	}
	t0 := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to fetch %s: %w", link, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Result{}, fmt.Errorf("failed to fetch %s - status code %d", link, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Result{}, fmt.Errorf("read body: %w", err)
	}

	res := Result{
		URL:         link,
		ContentType: resp.Header.Get("Content-Type"),
		Status:      resp.StatusCode,
	}
	if !raw && isHTML(res.ContentType, body) {
		if title, text, ok := extract(body, u, f.opts.MaxChars); ok {
			res.Title, res.Text, res.Simplified = title, text, true
		}
	}
	if !res.Simplified {
		res.Text = truncateRunes(string(body), f.opts.MaxChars)
	}
	res.RenderMS = int(time.Since(t0) / time.Millisecond)
	return res, nil
}

func (f *HTTPFetcher) Close() {}
