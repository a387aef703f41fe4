package dompick

import (
	"context"
	"time"
)

// TabState is the outcome of an EnsureActive call.
type TabState int

const (
	// AlreadyActive means the tab was selected before the call; no click
	// was dispatched.
	AlreadyActive TabState = iota
	// Activated means the tab was found inactive and one click was
	// dispatched to select it.
	Activated
)

func (s TabState) String() string {
	switch s {
	case AlreadyActive:
		return "already-active"
	case Activated:
		return "activated"
	default:
		return "unknown"
	}
}

// EnsureActive makes a tab-like control the selected one, clicking only
// when it is not selected yet. Activity is read from aria-selected or an
// active/selected class on the control or a near ancestor. Calling it on
// an already-active tab is a no-op, so the operation is idempotent.
func (r *Resolver) EnsureActive(ctx context.Context, set CandidateTextSet, timeout time.Duration) (TabState, error) {
	h, err := r.Resolve(ctx, set, timeout)
	if err != nil {
		return AlreadyActive, err
	}
	if h.Active {
		return AlreadyActive, nil
	}
	if err := r.ev.ClickXY(ctx, h.X, h.Y); err != nil {
		return AlreadyActive, err
	}
	return Activated, nil
}
