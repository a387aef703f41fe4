package orchestrator

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyskdev/mexc_runner/internal/profile"
	"github.com/hyskdev/mexc_runner/internal/session"
	"github.com/hyskdev/mexc_runner/internal/status"
)

type fakeWorker struct {
	name    string
	started atomic.Bool
	stopped atomic.Bool
	killed  atomic.Bool
	// cooperative workers finish on Stop; stuck ones only on Kill
	cooperative bool
	done        chan struct{}
	finish      func(*fakeWorker)
}

func newFakeWorker(name string, cooperative bool) *fakeWorker {
	w := &fakeWorker{name: name, cooperative: cooperative, done: make(chan struct{})}
	w.finish = func(w *fakeWorker) { close(w.done) }
	return w
}

func (w *fakeWorker) Profile() string { return w.name }
func (w *fakeWorker) Start()          { w.started.Store(true) }
func (w *fakeWorker) Stop() {
	if w.stopped.CompareAndSwap(false, true) && w.cooperative {
		w.finish(w)
	}
}
func (w *fakeWorker) Kill() {
	if w.killed.CompareAndSwap(false, true) {
		w.finish(w)
	}
}
func (w *fakeWorker) Done() <-chan struct{}  { return w.done }
func (w *fakeWorker) Result() session.Result { return session.Result{} }
func (w *fakeWorker) complete()              { w.finish(w) }

type workerSet struct {
	workers map[string]*fakeWorker
	coop    bool
}

func (s *workerSet) factory(req session.Request) Worker {
	w := newFakeWorker(req.Profile.Name, s.coop)
	s.workers[req.Profile.Name] = w
	return w
}

func requests(names ...string) []session.Request {
	out := make([]session.Request, 0, len(names))
	for _, n := range names {
		out = append(out, session.Request{Profile: profile.Profile{Name: n}, Mode: session.ModeTrade})
	}
	return out
}

func TestSubmitStartsAllEntriesConcurrently(t *testing.T) {
	set := &workerSet{workers: make(map[string]*fakeWorker), coop: true}
	o := New(set.factory, status.NewReporter(64))

	res := o.Submit("run-1", requests("p1", "p2", "p3"))
	if len(res.Started) != 3 || len(res.Rejected) != 0 {
		t.Fatalf("result = %+v, want 3 started", res)
	}
	for name, w := range set.workers {
		if !w.started.Load() {
			t.Fatalf("worker %s not started", name)
		}
	}
	if got := len(o.Live()); got != 3 {
		t.Fatalf("Live() = %d, want 3", got)
	}

	for _, w := range set.workers {
		w.complete()
	}
	o.Wait("run-1")
	if got := len(o.Live()); got != 0 {
		t.Fatalf("Live() after completion = %d, want 0", got)
	}
}

func TestSubmitRejectsLiveProfile(t *testing.T) {
	set := &workerSet{workers: make(map[string]*fakeWorker), coop: true}
	o := New(set.factory, status.NewReporter(64))

	o.Submit("run-1", requests("p1"))
	res := o.Submit("run-2", requests("p1", "p2"))
	if len(res.Started) != 1 || res.Started[0] != "p2" {
		t.Fatalf("Started = %v, want [p2]", res.Started)
	}
	if len(res.Rejected) != 1 || res.Rejected[0] != "p1" {
		t.Fatalf("Rejected = %v, want [p1]", res.Rejected)
	}

	set.workers["p1"].complete()
	set.workers["p2"].complete()
	o.Wait("run-1")
	o.Wait("run-2")
}

func TestShutdownCooperativeSessionsAreNotKilled(t *testing.T) {
	set := &workerSet{workers: make(map[string]*fakeWorker), coop: true}
	o := New(set.factory, status.NewReporter(64))
	o.Submit("run-1", requests("p1", "p2"))

	leaked := o.Shutdown(time.Second)
	if leaked != 0 {
		t.Fatalf("leaked = %d, want 0", leaked)
	}
	for name, w := range set.workers {
		if !w.stopped.Load() {
			t.Fatalf("worker %s not stopped", name)
		}
		if w.killed.Load() {
			t.Fatalf("worker %s killed despite cooperating", name)
		}
	}
	o.Wait("run-1")
	if len(o.Live()) != 0 {
		t.Fatal("registry not drained after shutdown")
	}
}

func TestShutdownForceKillsStuckSession(t *testing.T) {
	set := &workerSet{workers: make(map[string]*fakeWorker), coop: false}
	o := New(set.factory, status.NewReporter(64))
	o.Submit("run-1", requests("stuck"))

	leaked := o.Shutdown(10 * time.Millisecond)
	if leaked != 1 {
		t.Fatalf("leaked = %d, want 1", leaked)
	}
	w := set.workers["stuck"]
	if !w.stopped.Load() {
		t.Fatal("cooperative stop must be attempted first")
	}
	if !w.killed.Load() {
		t.Fatal("stuck worker must be force killed")
	}
	if o.Leaked() != 1 {
		t.Fatalf("Leaked() = %d, want 1", o.Leaked())
	}
}

func TestShutdownMixedWorkers(t *testing.T) {
	workers := make(map[string]*fakeWorker)
	factory := func(req session.Request) Worker {
		coop := req.Profile.Name != "stuck"
		w := newFakeWorker(req.Profile.Name, coop)
		workers[req.Profile.Name] = w
		return w
	}
	o := New(factory, status.NewReporter(64))
	o.Submit("run-1", requests("ok1", "stuck", "ok2"))

	leaked := o.Shutdown(10 * time.Millisecond)
	if leaked != 1 {
		t.Fatalf("leaked = %d, want only the stuck one", leaked)
	}
	if workers["ok1"].killed.Load() || workers["ok2"].killed.Load() {
		t.Fatal("cooperative workers must not be killed")
	}
}

func TestStopSingleProfile(t *testing.T) {
	set := &workerSet{workers: make(map[string]*fakeWorker), coop: true}
	o := New(set.factory, status.NewReporter(64))
	o.Submit("run-1", requests("p1"))

	if !o.Stop("p1") {
		t.Fatal("Stop(p1) = false, want true")
	}
	if o.Stop("ghost") {
		t.Fatal("Stop(ghost) = true, want false")
	}
	o.Wait("run-1")
}
