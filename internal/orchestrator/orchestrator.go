// Package orchestrator fans a batch out to one session per profile and
// owns the live registry. Registry mutation happens only here; sessions
// report in through the status reporter and are reaped when their Done
// channel closes.
package orchestrator

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hyskdev/mexc_runner/internal/session"
	"github.com/hyskdev/mexc_runner/internal/status"
)

// Worker is the orchestrator's view of a session. *session.Session
// satisfies it; tests inject fakes.
type Worker interface {
	Profile() string
	Start()
	Stop()
	Kill()
	Done() <-chan struct{}
	Result() session.Result
}

// Factory builds a worker for one request.
type Factory func(req session.Request) Worker

// Info describes one live session.
type Info struct {
	Profile   string    `json:"profile"`
	RunID     string    `json:"run_id"`
	Mode      string    `json:"mode"`
	StartedAt time.Time `json:"started_at"`
}

// BatchResult reports which batch entries started.
type BatchResult struct {
	RunID    string   `json:"run_id"`
	Started  []string `json:"started"`
	Rejected []string `json:"rejected,omitempty"`
}

type entry struct {
	worker Worker
	info   Info
}

// Orchestrator runs batches of concurrent sessions, at most one live
// session per profile.
type Orchestrator struct {
	factory  Factory
	reporter *status.Reporter

	mu     sync.Mutex
	live   map[string]*entry
	runs   map[string]*sync.WaitGroup
	leaked int
}

func New(factory Factory, reporter *status.Reporter) *Orchestrator {
	return &Orchestrator{
		factory:  factory,
		reporter: reporter,
		live:     make(map[string]*entry),
		runs:     make(map[string]*sync.WaitGroup),
	}
}

// Submit starts every entry of the batch concurrently. A profile that
// already has a live session is rejected; the rest start regardless.
func (o *Orchestrator) Submit(runID string, reqs []session.Request) BatchResult {
	res := BatchResult{RunID: runID}

	o.mu.Lock()
	wg := o.runs[runID]
	if wg == nil {
		wg = &sync.WaitGroup{}
		o.runs[runID] = wg
	}

	var started []*entry
	for _, req := range reqs {
		req.RunID = runID
		name := req.Profile.Name
		if _, exists := o.live[name]; exists {
			res.Rejected = append(res.Rejected, name)
			o.reporter.Log(runID, name, "rejected: session already live for profile")
			continue
		}
		e := &entry{
			worker: o.factory(req),
			info:   Info{Profile: name, RunID: runID, Mode: string(req.Mode), StartedAt: time.Now()},
		}
		o.live[name] = e
		started = append(started, e)
		res.Started = append(res.Started, name)
	}
	o.mu.Unlock()

	for _, e := range started {
		wg.Add(1)
		e.worker.Start()
		go o.reap(e, wg)
	}

	slog.Info("batch submitted", "run_id", runID, "started", len(res.Started), "rejected", len(res.Rejected))
	return res
}

func (o *Orchestrator) reap(e *entry, wg *sync.WaitGroup) {
	<-e.worker.Done()
	o.mu.Lock()
	if cur, ok := o.live[e.info.Profile]; ok && cur == e {
		delete(o.live, e.info.Profile)
	}
	o.mu.Unlock()
	wg.Done()
}

// Wait blocks until every session of a run has finished. Unknown run ids
// return immediately.
func (o *Orchestrator) Wait(runID string) {
	o.mu.Lock()
	wg := o.runs[runID]
	o.mu.Unlock()
	if wg != nil {
		wg.Wait()
	}
}

// Live lists the running sessions sorted by profile.
func (o *Orchestrator) Live() []Info {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]Info, 0, len(o.live))
	for _, e := range o.live {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Profile < out[j].Profile })
	return out
}

// Stop requests a cooperative stop for one profile's session.
func (o *Orchestrator) Stop(profileName string) bool {
	o.mu.Lock()
	e, ok := o.live[profileName]
	o.mu.Unlock()
	if !ok {
		return false
	}
	e.worker.Stop()
	return true
}

// Leaked reports how many browser handles were force-killed so far.
func (o *Orchestrator) Leaked() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.leaked
}

// Shutdown stops every live session cooperatively and waits up to
// perSessionTimeout for each. A session still running after its window is
// force-killed and its browser handle counted as leaked. Returns the
// number of leaked handles from this shutdown.
func (o *Orchestrator) Shutdown(perSessionTimeout time.Duration) int {
	o.mu.Lock()
	entries := make([]*entry, 0, len(o.live))
	for _, e := range o.live {
		entries = append(entries, e)
	}
	o.mu.Unlock()

	var leakedNow sync.Map
	g := new(errgroup.Group)
	for _, e := range entries {
		g.Go(func() error {
			e.worker.Stop()
			select {
			case <-e.worker.Done():
				return nil
			case <-time.After(perSessionTimeout):
			}

			slog.Warn("session did not stop in time, force killing",
				"profile", e.info.Profile, "run_id", e.info.RunID)
			e.worker.Kill()
			leakedNow.Store(e.info.Profile, true)
			<-e.worker.Done()
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	leakedNow.Range(func(key, _ any) bool {
		n++
		slog.Warn("browser handle leaked", "profile", key)
		return true
	})

	o.mu.Lock()
	o.leaked += n
	o.mu.Unlock()

	slog.Info("orchestrator shutdown complete", "sessions", len(entries), "leaked", n)
	return n
}
