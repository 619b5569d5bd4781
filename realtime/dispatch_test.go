package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	block  chan struct{}
}

func (r *recordingPublisher) Publish(ctx context.Context, projectID, event string, payload any) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Project: projectID, Event: event, Payload: payload})
	return nil
}

func (r *recordingPublisher) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func TestDispatcherDeliversAsync(t *testing.T) {
	pub := &recordingPublisher{}
	logger, _ := test.NewNullLogger()
	d := NewDispatcher(pub, logger, DispatcherConfig{Workers: 2, Buffer: 8})

	if err := d.Publish(context.Background(), "p1", "taskCreated", "t1"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	d.Close()

	events := pub.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 delivered event, got %d", len(events))
	}
	if events[0].Project != "p1" || events[0].Event != "taskCreated" {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}

func TestDispatcherPublishAfterCloseDoesNotPanic(t *testing.T) {
	pub := &recordingPublisher{}
	logger, _ := test.NewNullLogger()
	d := NewDispatcher(pub, logger, DispatcherConfig{Workers: 1, Buffer: 1})
	d.Close()

	if err := d.Publish(context.Background(), "p1", "taskCreated", nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
	// The guarded send paths must also absorb a send that slipped past the
	// closed check.
	if sendNonBlocking(d.jobs, publishJob{project: "p1"}) {
		t.Fatal("send on closed channel reported success")
	}
	timer := time.NewTimer(10 * time.Millisecond)
	defer timer.Stop()
	if sendWithTimer(d.jobs, publishJob{project: "p1"}, timer.C, d.closed) {
		t.Fatal("timed send on closed channel reported success")
	}
}

func TestDispatcherNeverBlocksCaller(t *testing.T) {
	block := make(chan struct{})
	pub := &recordingPublisher{block: block}
	logger, hook := test.NewNullLogger()
	d := NewDispatcher(pub, logger, DispatcherConfig{Workers: 1, Buffer: 1})

	done := make(chan struct{})
	go func() {
		// First fills the worker, second fills the buffer, the rest must
		// drop instead of blocking.
		for i := 0; i < 8; i++ {
			_ = d.Publish(context.Background(), "p1", "taskUpdated", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked while workers were saturated")
	}

	close(block)
	d.Close()

	if len(pub.Events()) == 8 {
		t.Fatal("expected saturated events to be dropped")
	}
	dropped := false
	for _, e := range hook.AllEntries() {
		if e.Message == "dispatch buffer saturated; event dropped" {
			dropped = true
		}
	}
	if !dropped {
		t.Fatal("expected a saturation warning to be logged")
	}
}
