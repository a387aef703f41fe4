package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyskdev/mexc_runner/internal/browser"
	"github.com/hyskdev/mexc_runner/internal/profile"
	"github.com/hyskdev/mexc_runner/internal/status"
	"github.com/hyskdev/mexc_runner/internal/trade"
)

type fakeDriver struct {
	closed  atomic.Int32
	killed  atomic.Int32
	unstick chan struct{}
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{unstick: make(chan struct{})}
}

func (d *fakeDriver) Navigate(context.Context, string) error          { return nil }
func (d *fakeDriver) Eval(context.Context, string, any) error         { return nil }
func (d *fakeDriver) ClickXY(context.Context, float64, float64) error { return nil }
func (d *fakeDriver) Close()                                          { d.closed.Add(1) }
func (d *fakeDriver) Kill() {
	if d.killed.Add(1) == 1 {
		close(d.unstick)
	}
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
	}
}

func newTestSession(mode Mode, drv *fakeDriver, flow func(ctx context.Context, drv Driver, onState func(trade.State)) error) (*Session, *status.Reporter) {
	rep := status.NewReporter(64)
	req := Request{
		Profile: profile.Profile{Name: "p1"},
		Mode:    mode,
		RunID:   "run-1",
	}
	s := New(req, Deps{
		Reporter: rep,
		Launch:   func(context.Context) (Driver, error) { return drv, nil },
		RunFlow:  flow,
	})
	return s, rep
}

func lastTerminal(t *testing.T, rep *status.Reporter) status.Event {
	t.Helper()
	for {
		select {
		case ev := <-rep.Events():
			if ev.Kind == status.KindTerminal {
				return ev
			}
		default:
			t.Fatal("no terminal event published")
		}
	}
}

func TestTradeSessionSucceeds(t *testing.T) {
	drv := newFakeDriver()
	s, rep := newTestSession(ModeTrade, drv, func(ctx context.Context, _ Driver, onState func(trade.State)) error {
		onState(trade.StateNavigate)
		onState(trade.StateDone)
		return nil
	})
	s.Start()
	waitDone(t, s)

	if got := s.Result(); got.Outcome != status.OutcomeSucceeded {
		t.Fatalf("result = %+v, want succeeded", got)
	}
	if drv.closed.Load() != 1 {
		t.Fatalf("driver closed %d times, want 1", drv.closed.Load())
	}
	if drv.killed.Load() != 0 {
		t.Fatal("driver killed on clean finish")
	}
	ev := lastTerminal(t, rep)
	if ev.Outcome != status.OutcomeSucceeded || ev.ProfileID != "p1" {
		t.Fatalf("terminal event = %+v", ev)
	}
}

func TestTradeSessionFailureCarriesReason(t *testing.T) {
	drv := newFakeDriver()
	s, _ := newTestSession(ModeTrade, drv, func(context.Context, Driver, func(trade.State)) error {
		return browser.NewError(browser.CodeResolveNotFound, "control not found within timeout: confirm button", nil)
	})
	s.Start()
	waitDone(t, s)

	got := s.Result()
	if got.Outcome != status.OutcomeFailed {
		t.Fatalf("outcome = %v, want failed", got.Outcome)
	}
	if got.Reason == "" {
		t.Fatal("failed result must carry a reason")
	}
	if drv.closed.Load() != 1 {
		t.Fatal("browser must be released on failure")
	}
}

func TestStopIsCooperative(t *testing.T) {
	drv := newFakeDriver()
	started := make(chan struct{})
	s, _ := newTestSession(ModeTrade, drv, func(ctx context.Context, _ Driver, _ func(trade.State)) error {
		close(started)
		<-ctx.Done()
		return browser.NewError(browser.CodeCancelled, "stopped between steps", ctx.Err())
	})
	s.Start()
	<-started
	s.Stop()
	waitDone(t, s)

	if got := s.Result(); got.Outcome != status.OutcomeCancelled {
		t.Fatalf("result = %+v, want cancelled", got)
	}
	if drv.killed.Load() != 0 {
		t.Fatal("cooperative stop must not kill the browser")
	}
	if drv.closed.Load() != 1 {
		t.Fatal("browser must be released after stop")
	}
}

func TestKillUnsticksStuckFlow(t *testing.T) {
	drv := newFakeDriver()
	started := make(chan struct{})
	s, _ := newTestSession(ModeTrade, drv, func(_ context.Context, d Driver, _ func(trade.State)) error {
		close(started)
		// Ignores the context, as a hung CDP call would; only the process
		// teardown unblocks it.
		<-d.(*fakeDriver).unstick
		return browser.NewError(browser.CodeEvalFailure, "connection torn down", nil)
	})
	s.Start()
	<-started
	s.Kill()
	waitDone(t, s)

	if drv.killed.Load() == 0 {
		t.Fatal("kill must reach the driver")
	}
	if got := s.Result(); got.Outcome != status.OutcomeCancelled {
		t.Fatalf("result = %+v, want cancelled after kill", got)
	}
}

func TestOpenModeParksUntilReleased(t *testing.T) {
	drv := newFakeDriver()
	s, rep := newTestSession(ModeOpen, drv, nil)
	s.Start()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-rep.Events():
			if ev.Kind == status.KindStatus && ev.State == "Ready" {
				if ev.Color != status.ColorIdle {
					t.Fatalf("Ready color = %q, want idle", ev.Color)
				}
				goto ready
			}
		case <-deadline:
			t.Fatal("session never reported Ready")
		}
	}
ready:
	s.Stop()
	waitDone(t, s)

	got := s.Result()
	if got.Outcome != status.OutcomeSucceeded || got.Reason != "released" {
		t.Fatalf("result = %+v, want succeeded/released", got)
	}
	if drv.closed.Load() != 1 {
		t.Fatal("browser must be released")
	}
}

func TestLaunchFailureFailsSession(t *testing.T) {
	rep := status.NewReporter(64)
	s := New(Request{Profile: profile.Profile{Name: "p1"}, Mode: ModeTrade}, Deps{
		Reporter: rep,
		Launch: func(context.Context) (Driver, error) {
			return nil, browser.NewError(browser.CodeCDPUnavailable, "browser launch failed", nil)
		},
	})
	s.Start()
	waitDone(t, s)

	if got := s.Result(); got.Outcome != status.OutcomeFailed {
		t.Fatalf("result = %+v, want failed", got)
	}
}
