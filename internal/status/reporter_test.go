package status

import (
	"sync"
	"testing"
)

func TestPublishDeliversInOrder(t *testing.T) {
	r := NewReporter(8)
	r.Log("run", "p1", "first")
	r.Status("run", "p1", "Opening Short...", ColorWorking)
	r.Terminal("run", "p1", OutcomeSucceeded, "")

	ev := <-r.Events()
	if ev.Kind != KindLog || ev.Line != "first" {
		t.Fatalf("event 1 = %+v, want log/first", ev)
	}
	ev = <-r.Events()
	if ev.Kind != KindStatus || ev.Color != ColorWorking {
		t.Fatalf("event 2 = %+v, want status/working", ev)
	}
	ev = <-r.Events()
	if ev.Kind != KindTerminal || ev.Outcome != OutcomeSucceeded {
		t.Fatalf("event 3 = %+v, want terminal/succeeded", ev)
	}
	if ev.At.IsZero() {
		t.Fatal("terminal event missing timestamp")
	}
}

func TestPublishNeverBlocksOnFullBuffer(t *testing.T) {
	r := NewReporter(2)
	if !r.Publish(Event{Kind: KindLog, Line: "a"}) {
		t.Fatal("publish 1 dropped unexpectedly")
	}
	if !r.Publish(Event{Kind: KindLog, Line: "b"}) {
		t.Fatal("publish 2 dropped unexpectedly")
	}
	// Buffer is full and nobody is consuming; this must return, not block.
	if r.Publish(Event{Kind: KindLog, Line: "c"}) {
		t.Fatal("publish 3 should report a drop")
	}
	if got := r.Dropped(); got != 1 {
		t.Fatalf("Dropped() = %d, want 1", got)
	}
}

func TestEventsAreAtomicUnderConcurrentPublishers(t *testing.T) {
	const workers = 8
	const perWorker = 50

	r := NewReporter(workers * perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				r.Log("run", "p", "line")
			}
		}(w)
	}
	wg.Wait()

	for i := 0; i < workers*perWorker; i++ {
		ev := <-r.Events()
		if ev.Kind != KindLog || ev.Line != "line" || ev.ProfileID != "p" {
			t.Fatalf("event %d corrupted: %+v", i, ev)
		}
	}
	if r.Dropped() != 0 {
		t.Fatalf("Dropped() = %d, want 0", r.Dropped())
	}
}
