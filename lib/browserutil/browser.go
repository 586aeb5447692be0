package browserutil

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

type Options struct {
	Headless  bool          `json:"headless"`
	UserAgent string        `json:"user_agent"`
	NavWait   time.Duration `json:"-"`
}

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

func (o Options) userAgent() string {
	if o.UserAgent == "" {
		return defaultUserAgent
	}
	return o.UserAgent
}

// NewAllocator creates a Chrome exec allocator context from the given Options.
func NewAllocator(parent context.Context, opts Options) (context.Context, context.CancelFunc) {
	flags := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(opts.userAgent()),
		chromedp.WindowSize(1440, 900),
	)
	return chromedp.NewExecAllocator(parent, flags...)
}

// Session owns a single browser tab. Sessions are never shared between
// workers, each worker creates and tears down its own.
type Session struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	navWait     time.Duration
}

func NewSession(parent context.Context, opts Options) *Session {
	allocCtx, cancelAlloc := NewAllocator(parent, opts)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	navWait := opts.NavWait
	if navWait <= 0 {
		navWait = time.Second * 2
	}
	return &Session{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		navWait:     navWait,
	}
}

func (s *Session) Close() {
	s.cancelTab()
	s.cancelAlloc()
}

// ListingHTML navigates to the given url, waits for the selector to become
// visible and returns the rendered document markup.
func (s *Session) ListingHTML(ctx context.Context, url, waitSelector string) (string, error) {
	runCtx, cancel := mergeDeadline(s.ctx, ctx)
	defer cancel()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitVisible(waitSelector, chromedp.ByQuery),
		chromedp.Sleep(s.navWait),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}
	return html, nil
}

// CurrentHTML reads the markup of whatever page the tab is on. Used for
// failure diagnostics, so it must not navigate.
func (s *Session) CurrentHTML(ctx context.Context) (string, error) {
	runCtx, cancel := mergeDeadline(s.ctx, ctx)
	defer cancel()

	var html string
	err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	if err != nil {
		return "", err
	}
	return html, nil
}

// chromedp actions must run on the tab context, but cancellation and
// timeouts arrive on the caller's context.
func mergeDeadline(tab, caller context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := caller.Deadline(); ok {
		return context.WithDeadline(tab, deadline)
	}
	ctx, cancel := context.WithCancel(tab)
	stop := context.AfterFunc(caller, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
