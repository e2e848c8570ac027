package web_fetch

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeFetcher owns a long-lived Chrome context for performance.
// Construct once; call Fetch per URL. Call Close() on shutdown.
type ChromeFetcher struct {
	allocCtx  context.Context
	cancelAll context.CancelFunc
	brCtx     context.Context
	cancelBr  context.CancelFunc
	opts      Options
}

// NewChromeFetcher starts a reusable headless browser.
func NewChromeFetcher(opts Options) (*ChromeFetcher, error) {
	opts = opts.withDefaults()
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(opts.UserAgent),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	bctx, cancelBr := chromedp.NewContext(actx)
	// start the browser now so the first call does not pay for it
	if err := chromedp.Run(bctx); err != nil {
		cancelBr()
		cancelAlloc()
		return nil, err
	}
	return &ChromeFetcher{
		allocCtx:  actx,
		cancelAll: cancelAlloc,
		brCtx:     bctx,
		cancelBr:  cancelBr,
		opts:      opts,
	}, nil
}

// Close tears down Chrome resources.
func (f *ChromeFetcher) Close() {
	if f.cancelBr != nil {
		f.cancelBr()
	}
	if f.cancelAll != nil {
		f.cancelAll()
	}
}

// Fetch renders the page in a fresh tab and extracts the readable content.
func (f *ChromeFetcher) Fetch(ctx context.Context, link string, raw bool) (Result, error) {
	u, err := parseLink(link)
	if err != nil {
		return Result{}, err
	}
	t0 := time.Now()
	html, err := f.outerHTML(ctx, u.String())
	if err != nil {
		return Result{}, err
	}

	res := Result{URL: link, ContentType: "text/html", Status: 200}
	if !raw {
		if title, text, ok := extract([]byte(html), u, f.opts.MaxChars); ok {
			res.Title, res.Text, res.Simplified = title, text, true
		}
	}
	if !res.Simplified {
		res.Text = truncateRunes(html, f.opts.MaxChars)
	}
	res.RenderMS = int(time.Since(t0) / time.Millisecond)
	return res, nil
}

func (f *ChromeFetcher) outerHTML(ctx context.Context, link string) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(f.brCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.opts.Timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(link),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}
