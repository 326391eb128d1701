package exportchromium

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/chromedp"
)

// Browser is a lazily started headless Chromium shared by every export.
type Browser struct {
	BrowserPath string
	Headless    bool
	Args        []string

	mu            sync.Mutex
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewTab opens a fresh tab. Cancelling the returned func closes it.
// chromedp ties the browser and the tab target to the context of their first
// Run, so both are started here on contexts that outlive any single call.
func (b *Browser) NewTab() (context.Context, context.CancelFunc, error) {
	if b == nil {
		return nil, nil, errors.New("chromium browser is nil")
	}
	browserCtx, err := b.ensure()
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := chromedp.NewContext(browserCtx)
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("open chromium tab: %w", err)
	}
	return ctx, cancel, nil
}

// Close releases Chromium resources if they have been initialized.
func (b *Browser) Close() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shutdownLocked()
	return nil
}

// ensure starts the shared browser once. A failed start is retried on the next call.
func (b *Browser) ensure() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browserCtx != nil && b.browserCtx.Err() == nil {
		return b.browserCtx, nil
	}
	b.shutdownLocked()

	options := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if b.BrowserPath != "" {
		options = append(options, chromedp.ExecPath(b.BrowserPath))
	}
	options = append(options, chromedp.Flag("headless", b.Headless))
	options = append(options, allocatorOptionsFromArgs(b.Args)...)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), options...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start chromium: %w", err)
	}
	b.allocCtx, b.allocCancel = allocCtx, allocCancel
	b.browserCtx, b.browserCancel = browserCtx, browserCancel
	return browserCtx, nil
}

func (b *Browser) shutdownLocked() {
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	b.allocCtx, b.allocCancel = nil, nil
	b.browserCtx, b.browserCancel = nil, nil
}

func allocatorOptionsFromArgs(args []string) []chromedp.ExecAllocatorOption {
	options := make([]chromedp.ExecAllocatorOption, 0, len(args))
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		arg = strings.TrimPrefix(arg, "--")
		if arg == "" {
			continue
		}
		if name, value, ok := strings.Cut(arg, "="); ok {
			options = append(options, chromedp.Flag(name, value))
			continue
		}
		options = append(options, chromedp.Flag(arg, true))
	}
	return options
}

// linkContext returns a context derived from tabCtx that also ends when ctx ends.
func linkContext(tabCtx, ctx context.Context) (context.Context, context.CancelFunc) {
	execCtx, cancel := context.WithCancel(tabCtx)
	if ctx == nil {
		return execCtx, cancel
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-execCtx.Done():
		}
	}()
	return execCtx, cancel
}
