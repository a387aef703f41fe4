package dompick

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyskdev/mexc_runner/internal/browser"
)

func commitResponse(readBack string) func(string, any) error {
	return func(_ string, out any) error {
		b, _ := json.Marshal(commitResult{Value: readBack})
		return json.Unmarshal(b, out)
	}
}

func TestCommitValueVerifiesReadBack(t *testing.T) {
	f := &fakeEvaluator{evals: []func(string, any) error{commitResponse("45000")}}
	r := newTestResolver(f)

	if err := r.CommitValue(context.Background(), PriceInput, "45000", time.Second); err != nil {
		t.Fatalf("CommitValue() = %v", err)
	}
}

func TestCommitValueOverwritesStaleContent(t *testing.T) {
	// A field pre-populated with 12312 must end up holding exactly the
	// requested 45000; the committed script select-all clears first, so a
	// truthful read-back equals the new value.
	var seen string
	f := &fakeEvaluator{evals: []func(string, any) error{func(js string, out any) error {
		seen = js
		return commitResponse("45000")(js, out)
	}}}
	r := newTestResolver(f)

	if err := r.CommitValue(context.Background(), PriceInput, "45000", time.Second); err != nil {
		t.Fatalf("CommitValue() = %v", err)
	}
	for _, fragment := range []string{"el.select()", "HTMLInputElement.prototype", `new Event("input"`, `new Event("change"`} {
		if !strings.Contains(seen, fragment) {
			t.Fatalf("commit script missing %q:\n%s", fragment, seen)
		}
	}
}

func TestCommitValueMismatchIsCommitFailed(t *testing.T) {
	f := &fakeEvaluator{evals: []func(string, any) error{commitResponse("12312")}}
	r := newTestResolver(f)

	err := r.CommitValue(context.Background(), SizeInput, "37.5", time.Second)
	if browser.ErrCode(err) != browser.CodeCommitFailed {
		t.Fatalf("err = %v, want COMMIT_FAILED", err)
	}
}

func TestCommitValuePollsWhileInputMissing(t *testing.T) {
	f := &fakeEvaluator{evals: []func(string, any) error{
		notFound(),
		commitResponse("75"),
	}}
	r := newTestResolver(f)

	if err := r.CommitValue(context.Background(), SizeInput, "75", time.Second); err != nil {
		t.Fatalf("CommitValue() = %v", err)
	}
	if f.call != 2 {
		t.Fatalf("eval calls = %d, want 2", f.call)
	}
}

func TestCommitValueTimesOut(t *testing.T) {
	f := &fakeEvaluator{evals: []func(string, any) error{
		notFound(), notFound(), notFound(), notFound(), notFound(),
		notFound(), notFound(), notFound(), notFound(), notFound(),
	}}
	r := newTestResolver(f)

	err := r.CommitValue(context.Background(), PriceInput, "1", 5*time.Millisecond)
	if browser.ErrCode(err) != browser.CodeResolveNotFound {
		t.Fatalf("err = %v, want RESOLVE_NOT_FOUND", err)
	}
}
