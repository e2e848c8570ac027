package web_fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const articleHTML = `<!doctype html>
<html><head><title>Kyoto Temples Guide</title></head>
<body>
<nav>Home | Destinations | Contact</nav>
<article>
<h1>Kyoto Temples Guide</h1>
<p>Kinkaku-ji, the Golden Pavilion, is best visited right at opening time at 9am to avoid the crowds that arrive with tour buses later in the morning.</p>
<p>Fushimi Inari Taisha is open around the clock; hiking the full torii gate trail to the summit takes about two to three hours at a relaxed pace.</p>
<p>Kiyomizu-dera offers sweeping views over the city and is especially beautiful during the autumn illumination season in November.</p>
</article>
<footer>Copyright</footer>
</body></html>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articleHTML))
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("just text"))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPFetcherExtractsReadableText(t *testing.T) {
	srv := newTestServer(t)
	f := NewHTTPFetcher(Options{UserAgent: "test-agent"}, srv.Client())

	res, err := f.Fetch(context.Background(), srv.URL+"/article", false)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !res.Simplified {
		t.Fatalf("expected readable extraction")
	}
	if !strings.Contains(res.Text, "Golden Pavilion") {
		t.Fatalf("article text missing: %q", res.Text)
	}
	if strings.Contains(res.Text, "<p>") {
		t.Fatalf("extraction should strip markup")
	}
}

func TestHTTPFetcherRaw(t *testing.T) {
	srv := newTestServer(t)
	f := NewHTTPFetcher(Options{UserAgent: "test-agent"}, srv.Client())

	res, err := f.Fetch(context.Background(), srv.URL+"/article", true)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.Simplified || !strings.Contains(res.Text, "<article>") {
		t.Fatalf("raw fetch should return markup")
	}
}

func TestHTTPFetcherNonHTML(t *testing.T) {
	srv := newTestServer(t)
	res, err := NewHTTPFetcher(Options{}, srv.Client()).Fetch(context.Background(), srv.URL+"/plain", false)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.Simplified || res.Text != "just text" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestHTTPFetcherErrors(t *testing.T) {
	srv := newTestServer(t)
	f := NewHTTPFetcher(Options{}, srv.Client())
	if _, err := f.Fetch(context.Background(), srv.URL+"/missing", false); err == nil || !strings.Contains(err.Error(), "status code 404") {
		t.Fatalf("expected status error, got %v", err)
	}
	if _, err := f.Fetch(context.Background(), "ftp://example.com/file", false); err == nil {
		t.Fatalf("expected invalid url error")
	}
}

func TestHTTPFetcherBoundsText(t *testing.T) {
	srv := newTestServer(t)
	res, err := NewHTTPFetcher(Options{MaxChars: 4}, srv.Client()).Fetch(context.Background(), srv.URL+"/plain", false)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.Text != "just" {
		t.Fatalf("expected bounded text, got %q", res.Text)
	}
}

func TestNewSelectsFetcher(t *testing.T) {
	f, err := New("http", Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := f.(*HTTPFetcher); !ok {
		t.Fatalf("expected HTTPFetcher, got %T", f)
	}
	if _, err := New("carrier-pigeon", Options{}); err == nil {
		t.Fatalf("expected error for unknown fetcher")
	}
}
