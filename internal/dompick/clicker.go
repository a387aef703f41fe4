package dompick

import (
	"context"
	"log/slog"
	"time"
)

// ClickOnce resolves a control and dispatches exactly one trusted click at
// its center. A resolve may be retried by the polling loop; a click never
// is. If the dispatch itself errors the caller cannot know whether the
// page observed the click, so the error propagates and the step fails
// rather than clicking again.
func (r *Resolver) ClickOnce(ctx context.Context, set CandidateTextSet, timeout time.Duration) (Handle, error) {
	h, err := r.Resolve(ctx, set, timeout)
	if err != nil {
		return Handle{}, err
	}
	if err := r.ev.ClickXY(ctx, h.X, h.Y); err != nil {
		return Handle{}, err
	}
	slog.Debug("control clicked", "control", set.Name, "text", h.Text, "x", h.X, "y", h.Y)
	return h, nil
}
