// Package session runs one profile's browser automation on one goroutine.
// The goroutine creates the browser, drives the flow, and tears the
// browser down; no other goroutine ever touches the page handle. Stop is
// cooperative and takes effect between protocol steps; Kill terminates
// the browser process outright.
package session

import (
	"context"
	"sync"

	"github.com/hyskdev/mexc_runner/internal/browser"
	"github.com/hyskdev/mexc_runner/internal/profile"
	"github.com/hyskdev/mexc_runner/internal/status"
	"github.com/hyskdev/mexc_runner/internal/trade"
)

// Mode selects what the session does once its browser is up.
type Mode string

const (
	// ModeTrade runs the order submission flow and exits.
	ModeTrade Mode = "trade"
	// ModeOpen opens the profile browser, reports ready, and parks until
	// released. Used for manual work inside an automated profile.
	ModeOpen Mode = "open"
)

// Request describes one session to run.
type Request struct {
	Profile profile.Profile
	Mode    Mode
	Trade   trade.Config
	RunID   string
}

// Result is the session's terminal status.
type Result struct {
	Outcome status.Outcome
	Reason  string
}

// Driver is the browser handle a session owns. *browser.Page satisfies
// it; tests substitute fakes.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Eval(ctx context.Context, js string, out any) error
	ClickXY(ctx context.Context, x, y float64) error
	Close()
	Kill()
}

// Deps are the injected capabilities: how to launch a browser for the
// profile and how to run the flow on it.
type Deps struct {
	Reporter *status.Reporter
	Launch   func(ctx context.Context) (Driver, error)
	RunFlow  func(ctx context.Context, drv Driver, onState func(trade.State)) error
}

// Session is one profile's worker. Start spawns the owning goroutine;
// Done closes when it has fully cleaned up.
type Session struct {
	req  Request
	deps Deps

	stopCtx context.Context
	stop    context.CancelFunc
	done    chan struct{}

	mu     sync.Mutex
	drv    Driver
	killed bool
	result Result
}

func New(req Request, deps Deps) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		req:     req,
		deps:    deps,
		stopCtx: ctx,
		stop:    cancel,
		done:    make(chan struct{}),
	}
}

// Profile returns the profile name this session runs.
func (s *Session) Profile() string {
	return s.req.Profile.Name
}

// Start launches the session goroutine.
func (s *Session) Start() {
	go s.run()
}

// Stop requests a cooperative shutdown. The session finishes or aborts at
// the next step boundary.
func (s *Session) Stop() {
	s.stop()
}

// Kill terminates the browser process without waiting for cooperation.
// Safe to call from any goroutine; the page teardown functions only
// cancel contexts.
func (s *Session) Kill() {
	s.mu.Lock()
	s.killed = true
	drv := s.drv
	s.mu.Unlock()

	s.stop()
	if drv != nil {
		drv.Kill()
	}
}

// Done closes once the session goroutine has exited and released its
// browser.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Result is valid once Done is closed.
func (s *Session) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

func (s *Session) run() {
	defer close(s.done)

	name := s.req.Profile.Name
	rep := s.deps.Reporter

	rep.Status(s.req.RunID, name, "Launching browser", status.ColorWorking)
	drv, err := s.deps.Launch(s.stopCtx)
	if err != nil {
		s.finish(status.OutcomeFailed, err.Error())
		rep.Status(s.req.RunID, name, "Launch failed", status.ColorError)
		return
	}

	s.mu.Lock()
	s.drv = drv
	wasKilled := s.killed
	s.mu.Unlock()
	if wasKilled {
		// Kill raced the launch; the handle exists but the run is over.
		drv.Kill()
		s.finish(status.OutcomeCancelled, "force killed during launch")
		return
	}
	defer drv.Close()

	switch s.req.Mode {
	case ModeOpen:
		rep.Status(s.req.RunID, name, "Ready", status.ColorIdle)
		<-s.stopCtx.Done()
		s.finish(status.OutcomeSucceeded, "released")
		rep.Status(s.req.RunID, name, "Released", status.ColorSuccess)
	default:
		err := s.deps.RunFlow(s.stopCtx, drv, func(st trade.State) {
			rep.Status(s.req.RunID, name, st.String(), status.ColorWorking)
		})
		switch {
		case err == nil:
			s.finish(status.OutcomeSucceeded, "")
			rep.Status(s.req.RunID, name, "Order submitted", status.ColorSuccess)
		case browser.ErrCode(err) == browser.CodeCancelled || s.wasKilled():
			s.finish(status.OutcomeCancelled, err.Error())
			rep.Status(s.req.RunID, name, "Cancelled", status.ColorIdle)
		default:
			s.finish(status.OutcomeFailed, err.Error())
			rep.Status(s.req.RunID, name, "Failed", status.ColorError)
		}
	}
}

func (s *Session) wasKilled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.killed
}

func (s *Session) finish(outcome status.Outcome, reason string) {
	s.mu.Lock()
	s.result = Result{Outcome: outcome, Reason: reason}
	s.mu.Unlock()
	s.deps.Reporter.Terminal(s.req.RunID, s.req.Profile.Name, outcome, reason)
}
