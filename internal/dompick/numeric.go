package dompick

import (
	"context"
	"log/slog"
	"time"

	"github.com/hyskdev/mexc_runner/internal/browser"
)

// commitResult is the read-back after a value commit.
type commitResult struct {
	Value string `json:"value"`
}

// CommitValue writes a numeric string into an input field and verifies it
// stuck. The field is matched by placeholder, aria-label, name, or title
// against the candidate texts. The write path goes through the native
// value setter plus synthetic input and change events, which is what the
// page's framework listens to; assigning el.value directly leaves the
// bound model stale. Any pre-populated content is select-all cleared
// first. A read-back that differs from the requested value is a
// COMMIT_FAILED.
func (r *Resolver) CommitValue(ctx context.Context, set CandidateTextSet, value string, timeout time.Duration) error {
	js := buildIIFE(jsDomHelpers + `
var candidates = ` + jsJSON(set.Texts) + `;
function _attrMatch(el) {
  var attrs = ["placeholder", "aria-label", "name", "title"];
  for (var a = 0; a < attrs.length; a++) {
    var v = _norm(el.getAttribute(attrs[a]));
    if (!v) continue;
    for (var c = 0; c < candidates.length; c++) {
      if (v === candidates[c] || v.indexOf(candidates[c]) === 0) return c;
    }
  }
  return -1;
}
var best = null;
var inputs = document.querySelectorAll("input");
for (var i = 0; i < inputs.length; i++) {
  var el = inputs[i];
  if (el.type === "hidden" || el.disabled || el.readOnly) continue;
  if (!_visible(el)) continue;
  var ci = _attrMatch(el);
  if (ci < 0) continue;
  if (best === null || ci < best.ci) best = {el: el, ci: ci};
}
if (!best) {
  return JSON.stringify({ok:false,error_code:` + jsString(browser.CodeResolveNotFound) + `,error_message:"no visible input for " + ` + jsString(set.Name) + `});
}
var el = best.el;
el.focus();
el.select();
var setter = Object.getOwnPropertyDescriptor(window.HTMLInputElement.prototype, "value").set;
setter.call(el, ` + jsString(value) + `);
el.dispatchEvent(new Event("input", {bubbles: true}));
el.dispatchEvent(new Event("change", {bubbles: true}));
return JSON.stringify({ok:true,data:{value: el.value}});
`)

	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return browser.NewError(browser.CodeCancelled, "commit cancelled: "+set.Name, err)
		}

		var res commitResult
		err := r.ev.Eval(ctx, js, &res)
		if err == nil {
			if res.Value != value {
				return browser.NewError(browser.CodeCommitFailed,
					"read-back mismatch for "+set.Name+": wrote "+value+", field holds "+res.Value, nil)
			}
			slog.Debug("value committed", "control", set.Name, "value", value)
			return nil
		}
		if browser.ErrCode(err) != browser.CodeResolveNotFound {
			return err
		}
		if time.Now().Add(r.poll).After(deadline) {
			return browser.NewError(browser.CodeResolveNotFound,
				"input not found within timeout: "+set.Name, nil)
		}

		select {
		case <-ctx.Done():
			return browser.NewError(browser.CodeCancelled, "commit cancelled: "+set.Name, ctx.Err())
		case <-time.After(r.poll):
		}
	}
}
