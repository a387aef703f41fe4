// Package browser launches one Chrome process per profile and exposes the
// page handle a session drives: navigate, evaluate JS, dispatch trusted
// clicks. Each Page owns its own allocator so killing one profile's browser
// never touches another's.
package browser

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/chromedp/chromedp"
)

// LaunchOptions configure one profile browser.
type LaunchOptions struct {
	UserDataDir string
	Proxy       string
	Headless    bool
	WindowSize  string
	EvalTimeout int // milliseconds, per Eval call
}

// Launch starts a dedicated Chrome for the profile and returns its Page.
// ctx gates entry only; the browser's lifetime is bound to Close and Kill,
// not to ctx, so a cooperative stop cannot tear the process down mid-step.
func Launch(ctx context.Context, opts LaunchOptions) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewError(CodeCancelled, "launch cancelled", err)
	}

	w, h := parseWindowSize(opts.WindowSize)

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.UserDataDir(opts.UserDataDir),
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(w, h),
	)
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Force the browser process to start now so launch failures surface
	// here instead of on the first protocol step.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, NewError(CodeCDPUnavailable, "browser launch failed", err)
	}

	slog.Info("browser launched",
		"user_data_dir", opts.UserDataDir, "headless", opts.Headless, "proxy", opts.Proxy != "")

	return &Page{
		ctx:         tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		evalTimeout: opts.EvalTimeout,
	}, nil
}

func parseWindowSize(s string) (int, int) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) == 2 {
		w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
		h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errW == nil && errH == nil && w > 0 && h > 0 {
			return w, h
		}
	}
	return 1920, 1080
}
