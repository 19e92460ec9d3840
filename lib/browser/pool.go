// Package browser maintains a fixed-size pool of headless chrome tabs for
// rendering javascript-heavy pages that plain HTTP fetches come back empty
// from.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("lib/browser")

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// settle time after navigation so client-side rendering can finish
const renderWait = 5 * time.Second

type Pool struct {
	size        int
	contexts    chan context.Context
	cancels     map[context.Context]context.CancelFunc
	mu          sync.Mutex
	allocCtx    context.Context
	allocCancel context.CancelFunc
	initialized bool
}

func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		size:     size,
		contexts: make(chan context.Context, size),
		cancels:  map[context.Context]context.CancelFunc{},
	}
}

// Initialize starts the chrome instances. Tabs that fail to start are
// skipped; at least one must come up.
func (p *Pool) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(userAgent),
	)
	p.allocCtx, p.allocCancel = chromedp.NewExecAllocator(ctx, opts...)

	started := 0
	for i := 0; i < p.size; i++ {
		tabCtx, cancel := chromedp.NewContext(p.allocCtx,
			chromedp.WithLogf(func(string, ...interface{}) {}))
		if err := chromedp.Run(tabCtx, chromedp.Navigate("about:blank")); err != nil {
			slog.Warn("failed to start browser tab", "err", err)
			cancel()
			continue
		}
		p.contexts <- tabCtx
		p.cancels[tabCtx] = cancel
		started++
	}
	if started == 0 {
		p.allocCancel()
		return fmt.Errorf("no browser tabs could be started")
	}

	slog.Info("browser pool ready", "tabs", started)
	p.initialized = true
	return nil
}

func (p *Pool) acquire(ctx context.Context) (context.Context, error) {
	select {
	case tabCtx := <-p.contexts:
		return tabCtx, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pool) release(tabCtx context.Context) {
	// clear state so the next page starts from a clean slate
	refreshCtx, cancel := context.WithTimeout(tabCtx, 3*time.Second)
	defer cancel()
	_ = chromedp.Run(refreshCtx,
		network.ClearBrowserCookies(),
		chromedp.Navigate("about:blank"),
	)
	p.contexts <- tabCtx
}

// FetchURL renders url in a pooled tab and returns the post-render HTML.
func (p *Pool) FetchURL(ctx context.Context, url string, timeout time.Duration) (string, error) {
	ctx, span := tracer.Start(ctx, "FetchURL")
	defer span.End()

	tabCtx, err := p.acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to acquire browser tab: %w", err)
	}
	defer p.release(tabCtx)

	runCtx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()

	var html string
	err = chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(renderWait),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", url, err)
	}
	return html, nil
}

func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return
	}
	for tabCtx, cancel := range p.cancels {
		cancel()
		delete(p.cancels, tabCtx)
	}
	if p.allocCancel != nil {
		p.allocCancel()
	}
	for len(p.contexts) > 0 {
		<-p.contexts
	}
	p.initialized = false
}
