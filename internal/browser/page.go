package browser

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
)

type evalEnvelope struct {
	OK           bool            `json:"ok"`
	Data         json.RawMessage `json:"data,omitempty"`
	ErrorCode    string          `json:"error_code,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// Page is the handle to one profile's browser tab. It is owned by exactly
// one goroutine; none of its methods are safe for concurrent use.
type Page struct {
	ctx         context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	evalTimeout int
}

// Navigate loads a URL and blocks until the load event. Cancellation is
// cooperative: the caller's context is checked on entry, and a forced Kill
// aborts an in-flight load.
func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return NewError(CodeCancelled, "navigation cancelled", err)
	}
	if err := chromedp.Run(p.ctx, chromedp.Navigate(url)); err != nil {
		return NewError(CodeNavigationFailed, "navigate to "+url, err)
	}
	return nil
}

// Eval runs a JS expression that returns a JSON.stringify'd envelope
// {ok,data,error_code,error_message} and decodes data into out. Envelope
// failures come back as CodedErrors carrying the in-page error code.
func (p *Page) Eval(ctx context.Context, js string, out any) error {
	timeout := time.Duration(p.evalTimeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if err := ctx.Err(); err != nil {
		return NewError(CodeCancelled, "evaluation cancelled", err)
	}
	evalCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()

	var raw string
	if err := chromedp.Run(evalCtx, chromedp.Evaluate(js, &raw)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(evalCtx.Err(), context.DeadlineExceeded) {
			return NewError(CodeEvalTimeout, "evaluation timed out", err)
		}
		return NewError(CodeEvalFailure, "evaluation failed", err)
	}

	return decodeEnvelope(raw, out)
}

func decodeEnvelope(raw string, out any) error {
	var env evalEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return NewError(CodeEvalFailure, "invalid evaluation envelope", err)
	}
	if !env.OK {
		code := env.ErrorCode
		if code == "" {
			code = CodeEvalFailure
		}
		return NewError(code, env.ErrorMessage, nil)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return NewError(CodeEvalFailure, "invalid evaluation data", err)
	}
	return nil
}

// ClickXY dispatches a trusted mousePressed+mouseReleased pair at viewport
// coordinates. Trusted events pass the page's isTrusted checks, unlike
// element.click() from injected JS.
func (p *Page) ClickXY(ctx context.Context, x, y float64) error {
	if err := ctx.Err(); err != nil {
		return NewError(CodeCancelled, "click cancelled", err)
	}
	err := chromedp.Run(p.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := input.DispatchMouseEvent(input.MousePressed, x, y).
			WithButton(input.Left).
			WithClickCount(1).
			Do(ctx); err != nil {
			return err
		}
		return input.DispatchMouseEvent(input.MouseReleased, x, y).
			WithButton(input.Left).
			WithClickCount(1).
			Do(ctx)
	}))
	if err != nil {
		return NewError(CodeEvalFailure, "mouse click dispatch failed", err)
	}
	return nil
}

// Close shuts the tab down and then releases the browser process.
func (p *Page) Close() {
	p.tabCancel()
	p.allocCancel()
}

// Kill tears down the allocator context directly, which terminates the
// child browser process without waiting for the tab to cooperate.
func (p *Page) Kill() {
	slog.Warn("browser force killed")
	p.allocCancel()
	p.tabCancel()
}
