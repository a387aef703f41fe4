package trade

import (
	"context"
	"log/slog"
	"time"

	"github.com/hyskdev/mexc_runner/internal/browser"
	"github.com/hyskdev/mexc_runner/internal/dompick"
)

// State is the protocol's position in the submission flow.
type State int

const (
	StateInit State = iota
	StateNavigate
	StateSelectOrderKind
	StateEnterLimitPrice
	StateSelectPositionSize
	StateSubmit
	StateConfirm
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateNavigate:
		return "navigate"
	case StateSelectOrderKind:
		return "select-order-kind"
	case StateEnterLimitPrice:
		return "enter-limit-price"
	case StateSelectPositionSize:
		return "select-position-size"
	case StateSubmit:
		return "submit"
	case StateConfirm:
		return "confirm"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Navigator is the page capability the protocol needs beyond picking.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// Picker is the control-driving capability. *dompick.Resolver satisfies
// it; tests use scripted fakes.
type Picker interface {
	ClickOnce(ctx context.Context, set dompick.CandidateTextSet, timeout time.Duration) (dompick.Handle, error)
	EnsureActive(ctx context.Context, set dompick.CandidateTextSet, timeout time.Duration) (dompick.TabState, error)
	CommitValue(ctx context.Context, set dompick.CandidateTextSet, value string, timeout time.Duration) error
}

// Timeouts are the pacing knobs for one protocol run.
type Timeouts struct {
	PageSettle  time.Duration
	ClickSettle time.Duration
	Resolve     time.Duration
	Confirm     time.Duration
}

// Protocol executes one order submission as a linear state machine. Any
// step error moves it to Failed; the caller's context is checked between
// steps so a cooperative stop never interrupts a half-dispatched click.
type Protocol struct {
	nav     Navigator
	picker  Picker
	cfg     Config
	tmo     Timeouts
	state   State
	onState func(State)
	log     *slog.Logger
}

// NewProtocol builds a protocol run. onState may be nil; when set it is
// called on every state transition, including Done and Failed.
func NewProtocol(nav Navigator, picker Picker, cfg Config, tmo Timeouts, onState func(State)) *Protocol {
	return &Protocol{
		nav:     nav,
		picker:  picker,
		cfg:     cfg,
		tmo:     tmo,
		state:   StateInit,
		onState: onState,
		log:     slog.With("flow", "trade"),
	}
}

// State reports the current protocol state.
func (p *Protocol) State() State {
	return p.state
}

func (p *Protocol) transition(s State) {
	p.state = s
	p.log.Debug("protocol state", "state", s.String())
	if p.onState != nil {
		p.onState(s)
	}
}

func (p *Protocol) fail(err error) error {
	p.transition(StateFailed)
	return err
}

func (p *Protocol) checkStop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return browser.NewError(browser.CodeCancelled, "stopped between steps at "+p.state.String(), err)
	}
	return nil
}

// settle sleeps for the interval unless the context ends first. The sleep
// absorbs re-renders the page does after navigation and clicks.
func (p *Protocol) settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// Run drives the flow to Done or Failed. It validates first so a bad
// config never touches the page.
func (p *Protocol) Run(ctx context.Context) error {
	if err := p.cfg.Validate(); err != nil {
		return p.fail(err)
	}

	p.transition(StateNavigate)
	if err := p.nav.Navigate(ctx, FixURL(p.cfg.TargetURL)); err != nil {
		return p.fail(err)
	}
	p.settle(ctx, p.tmo.PageSettle)
	if err := p.checkStop(ctx); err != nil {
		return p.fail(err)
	}

	p.transition(StateSelectOrderKind)
	tab := dompick.MarketTab
	if p.cfg.Kind == KindLimit {
		tab = dompick.LimitTab
	}
	tabState, err := p.picker.EnsureActive(ctx, tab, p.tmo.Resolve)
	if err != nil {
		return p.fail(err)
	}
	if tabState == dompick.Activated {
		p.settle(ctx, p.tmo.ClickSettle)
	}
	if err := p.checkStop(ctx); err != nil {
		return p.fail(err)
	}

	if p.cfg.Kind == KindLimit {
		p.transition(StateEnterLimitPrice)
		if err := p.picker.CommitValue(ctx, dompick.PriceInput, formatAmount(p.cfg.LimitPrice), p.tmo.Resolve); err != nil {
			return p.fail(err)
		}
		if err := p.checkStop(ctx); err != nil {
			return p.fail(err)
		}
	}

	p.transition(StateSelectPositionSize)
	if p.cfg.Preset != 0 {
		if _, err := p.picker.ClickOnce(ctx, dompick.PresetSet(p.cfg.Preset), p.tmo.Resolve); err != nil {
			return p.fail(err)
		}
		p.settle(ctx, p.tmo.ClickSettle)
	} else {
		if err := p.picker.CommitValue(ctx, dompick.SizeInput, formatAmount(p.cfg.Percent), p.tmo.Resolve); err != nil {
			return p.fail(err)
		}
	}
	if err := p.checkStop(ctx); err != nil {
		return p.fail(err)
	}

	p.transition(StateSubmit)
	submit := dompick.OpenLong
	if p.cfg.Side == SideShort {
		submit = dompick.OpenShort
	}
	if _, err := p.picker.ClickOnce(ctx, submit, p.tmo.Resolve); err != nil {
		return p.fail(err)
	}
	p.settle(ctx, p.tmo.ClickSettle)
	if err := p.checkStop(ctx); err != nil {
		return p.fail(err)
	}

	// Some accounts have the confirmation dialog disabled; its absence
	// within the short window means the order went straight through.
	p.transition(StateConfirm)
	if _, err := p.picker.ClickOnce(ctx, dompick.ConfirmButton, p.tmo.Confirm); err != nil {
		if browser.ErrCode(err) != browser.CodeResolveNotFound {
			return p.fail(err)
		}
		p.log.Debug("no confirmation dialog, order submitted directly")
	}

	p.transition(StateDone)
	return nil
}
