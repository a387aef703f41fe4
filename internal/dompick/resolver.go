package dompick

import (
	"context"
	"log/slog"
	"time"

	"github.com/hyskdev/mexc_runner/internal/browser"
)

// Handle is a resolved control: a freshly scanned position plus identity
// fields for logging. Coordinates are viewport-relative and only valid
// until the next layout change, which is why a resolve is always paired
// immediately with its click.
type Handle struct {
	Tag            string  `json:"tag"`
	Text           string  `json:"text"`
	CandidateIndex int     `json:"candidate_index"`
	Active         bool    `json:"active"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
}

// Resolver finds controls by candidate text, polling the live DOM until
// the control renders or the timeout elapses.
type Resolver struct {
	ev   Evaluator
	poll time.Duration
}

func NewResolver(ev Evaluator) *Resolver {
	return &Resolver{ev: ev, poll: 250 * time.Millisecond}
}

// Resolve scans the page once per poll tick for the best visible match:
// lowest candidate index first, document order as the tie-break. The
// winning element is scrolled to viewport center before its coordinates
// are read. Exhausting the timeout yields RESOLVE_NOT_FOUND.
//
// The script only reads the DOM. A resolve with no follow-up click, like
// the already-active tab check, must leave zero mutations behind.
func (r *Resolver) Resolve(ctx context.Context, set CandidateTextSet, timeout time.Duration) (Handle, error) {
	js := buildIIFE(jsDomHelpers + `
var candidates = ` + jsJSON(set.Texts) + `;
var best = _scan(candidates);
if (!best) {
  return JSON.stringify({ok:false,error_code:` + jsString(browser.CodeResolveNotFound) + `,error_message:"no visible candidate for " + ` + jsString(set.Name) + `});
}
var active = false;
var p = best.el;
for (var d = 0; p && d < 4; d++) {
  if (p.getAttribute && p.getAttribute("aria-selected") === "true") { active = true; break; }
  if (p.classList && (p.classList.contains("active") || p.classList.contains("selected"))) { active = true; break; }
  p = p.parentElement;
}
var c = _center(best.el);
return JSON.stringify({ok:true,data:{tag:best.el.tagName.toLowerCase(),text:_ownText(best.el),candidate_index:best.ci,active:active,x:c.x,y:c.y}});
`)

	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return Handle{}, browser.NewError(browser.CodeCancelled, "resolve cancelled: "+set.Name, err)
		}

		var h Handle
		err := r.ev.Eval(ctx, js, &h)
		if err == nil {
			slog.Debug("control resolved",
				"control", set.Name, "text", h.Text, "candidate_index", h.CandidateIndex, "x", h.X, "y", h.Y)
			return h, nil
		}
		if browser.ErrCode(err) != browser.CodeResolveNotFound {
			return Handle{}, err
		}
		if time.Now().Add(r.poll).After(deadline) {
			return Handle{}, browser.NewError(browser.CodeResolveNotFound,
				"control not found within timeout: "+set.Name, nil)
		}

		select {
		case <-ctx.Done():
			return Handle{}, browser.NewError(browser.CodeCancelled, "resolve cancelled: "+set.Name, ctx.Err())
		case <-time.After(r.poll):
		}
	}
}
