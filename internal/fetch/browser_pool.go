package fetch

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const (
	pageLoadTimeout = 300 * time.Second
	scriptTimeout   = 300 * time.Second
)

// BrowserInstance is one pooled headless Chrome tab plus the download
// directory chromedp has been told to use for it.
type BrowserInstance struct {
	ctx         context.Context
	cancel      context.CancelFunc
	downloadDir string
}

// Context returns the chromedp-ready context for this instance, bounded
// by the spec's 300s page-load/script timeout.
func (b *BrowserInstance) Context() context.Context {
	ctx, _ := context.WithTimeout(b.ctx, pageLoadTimeout)
	return ctx
}

func (b *BrowserInstance) DownloadDir() string {
	return b.downloadDir
}

// BrowserPool is a bounded pool of M headless instances, acquired via a
// semaphore-backed queue, matching the "get_driver" scope from the
// source: acquire for the duration of a parse, release on every exit
// path, clearing the download directory on release.
type BrowserPool struct {
	slots chan struct{}
}

func NewBrowserPool(size int) *BrowserPool {
	if size < 1 {
		size = 1
	}
	return &BrowserPool{slots: make(chan struct{}, size)}
}

// Acquire blocks until a pool slot is free or ctx is done, then starts
// a fresh headless Chrome instance with its own download directory.
func (p *BrowserPool) Acquire(ctx context.Context) (*BrowserInstance, error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	downloadDir, err := os.MkdirTemp("", "fetchdl-")
	if err != nil {
		<-p.slots
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", true))...,
	)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx, page.SetDownloadBehavior(page.SetDownloadBehaviorBehaviorAllow).WithDownloadPath(downloadDir)); err != nil {
		browserCancel()
		allocCancel()
		os.RemoveAll(downloadDir)
		<-p.slots
		return nil, fmt.Errorf("configure download behavior: %w", err)
	}

	return &BrowserInstance{
		ctx: browserCtx,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
		downloadDir: downloadDir,
	}, nil
}

// Release tears the instance down and clears its download directory,
// then frees the pool slot. Safe to call on every exit path, including
// after an acquire failure further up the call chain never happened
// (nil instance is a no-op).
func (p *BrowserPool) Release(instance *BrowserInstance) {
	if instance == nil {
		return
	}
	instance.cancel()
	os.RemoveAll(instance.downloadDir)
	<-p.slots
}
