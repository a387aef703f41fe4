package dompick

import (
	"context"
	"encoding/json"

	"github.com/hyskdev/mexc_runner/internal/browser"
)

// Evaluator is the page capability dompick consumes. browser.Page
// satisfies it; tests use scripted fakes.
type Evaluator interface {
	Eval(ctx context.Context, js string, out any) error
	ClickXY(ctx context.Context, x, y float64) error
}

// Shared in-page helpers. Matching is against an element's OWN text nodes
// so a label span wins over every ancestor container that also contains
// the text. A candidate matches when the own text contains it, which keeps
// decorated labels like "Open Long 10x" resolvable; per element the lowest
// candidate index wins.
const jsDomHelpers = `
function _norm(s) { return String(s || "").replace(/\s+/g, " ").trim(); }
function _ownText(el) {
  var t = "";
  for (var n = el.firstChild; n; n = n.nextSibling) {
    if (n.nodeType === 3) t += n.textContent;
  }
  return _norm(t);
}
function _visible(el) {
  var r = el.getBoundingClientRect();
  if (r.width <= 0 || r.height <= 0) return false;
  var st = window.getComputedStyle(el);
  if (st.display === "none" || st.visibility === "hidden") return false;
  if (parseFloat(st.opacity) === 0) return false;
  return true;
}
function _scan(candidates) {
  var best = null;
  var all = document.querySelectorAll("body *");
  for (var i = 0; i < all.length; i++) {
    var el = all[i];
    var t = _ownText(el);
    if (!t) continue;
    var ci = -1;
    for (var c = 0; c < candidates.length; c++) {
      if (t.indexOf(candidates[c]) !== -1) { ci = c; break; }
    }
    if (ci < 0) continue;
    if (!_visible(el)) continue;
    if (best === null || ci < best.ci) best = {el: el, ci: ci};
  }
  return best;
}
function _center(el) {
  el.scrollIntoView({block: "center", inline: "center"});
  var r = el.getBoundingClientRect();
  return {x: r.left + r.width / 2, y: r.top + r.height / 2};
}
`

func jsString(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func jsJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func buildIIFE(body string) string {
	return `(function(){
try {
` + body + `
} catch (err) {
return JSON.stringify({ok:false,error_code:"` + browser.CodeEvalFailure + `",error_message:String(err && err.message || err)});
}
})()`
}
