package dompick

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hyskdev/mexc_runner/internal/browser"
)

func TestClickOnceDispatchesExactlyOneClick(t *testing.T) {
	f := &fakeEvaluator{evals: []func(string, any) error{
		handleResponse(Handle{Text: "Open Long", X: 55, Y: 66}),
	}}
	r := newTestResolver(f)

	h, err := r.ClickOnce(context.Background(), OpenLong, time.Second)
	if err != nil {
		t.Fatalf("ClickOnce() = %v", err)
	}
	if h.Text != "Open Long" {
		t.Fatalf("Text = %q", h.Text)
	}
	if len(f.clicks) != 1 {
		t.Fatalf("clicks = %d, want exactly 1", len(f.clicks))
	}
	if f.clicks[0].x != 55 || f.clicks[0].y != 66 {
		t.Fatalf("click at %v, want 55,66", f.clicks[0])
	}
}

func TestClickOnceDoesNotRetryAfterDispatchError(t *testing.T) {
	f := &fakeEvaluator{
		evals:    []func(string, any) error{handleResponse(Handle{X: 1, Y: 2})},
		clickErr: errors.New("connection lost"),
	}
	r := newTestResolver(f)

	_, err := r.ClickOnce(context.Background(), OpenLong, time.Second)
	if err == nil {
		t.Fatal("ClickOnce() should propagate dispatch error")
	}
	if len(f.clicks) != 1 {
		t.Fatalf("clicks = %d, want exactly 1 even on failure", len(f.clicks))
	}
}

func TestClickOnceSkipsClickWhenResolveFails(t *testing.T) {
	f := &fakeEvaluator{evals: []func(string, any) error{notFound()}}
	r := newTestResolver(f)

	_, err := r.ClickOnce(context.Background(), ConfirmButton, time.Millisecond)
	if browser.ErrCode(err) != browser.CodeResolveNotFound {
		t.Fatalf("err = %v, want RESOLVE_NOT_FOUND", err)
	}
	if len(f.clicks) != 0 {
		t.Fatalf("clicks = %d, want 0", len(f.clicks))
	}
}

func TestEnsureActiveOnActiveTabTouchesNothing(t *testing.T) {
	var seen string
	f := &fakeEvaluator{evals: []func(string, any) error{func(js string, out any) error {
		seen = js
		return handleResponse(Handle{Text: "Limit", Active: true, X: 5, Y: 6})(js, out)
	}}}
	r := newTestResolver(f)

	state, err := r.EnsureActive(context.Background(), LimitTab, time.Second)
	if err != nil {
		t.Fatalf("EnsureActive() = %v", err)
	}
	if state != AlreadyActive {
		t.Fatalf("state = %v, want AlreadyActive", state)
	}
	if len(f.clicks) != 0 {
		t.Fatalf("clicks = %d, want 0 on an already-active tab", len(f.clicks))
	}
	if strings.Contains(seen, "setAttribute") {
		t.Fatalf("already-active check must not write to the DOM:\n%s", seen)
	}
}

func TestEnsureActiveIdempotent(t *testing.T) {
	f := &fakeEvaluator{evals: []func(string, any) error{
		handleResponse(Handle{Text: "Limit", Active: false, X: 5, Y: 6}),
		handleResponse(Handle{Text: "Limit", Active: true, X: 5, Y: 6}),
	}}
	r := newTestResolver(f)

	state, err := r.EnsureActive(context.Background(), LimitTab, time.Second)
	if err != nil {
		t.Fatalf("EnsureActive() = %v", err)
	}
	if state != Activated {
		t.Fatalf("state = %v, want Activated", state)
	}
	if len(f.clicks) != 1 {
		t.Fatalf("clicks = %d, want 1", len(f.clicks))
	}

	state, err = r.EnsureActive(context.Background(), LimitTab, time.Second)
	if err != nil {
		t.Fatalf("EnsureActive() second call = %v", err)
	}
	if state != AlreadyActive {
		t.Fatalf("state = %v, want AlreadyActive", state)
	}
	if len(f.clicks) != 1 {
		t.Fatalf("clicks = %d, second call must not click", len(f.clicks))
	}
}
