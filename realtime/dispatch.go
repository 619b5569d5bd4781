package realtime

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type publishJob struct {
	project string
	event   string
	payload any
}

// DispatcherConfig tunes the async publish workers.
type DispatcherConfig struct {
	Workers        int
	Buffer         int
	PublishTimeout time.Duration
	HandoffTimeout time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.Workers <= 0 {
		c.Workers = 8
	}
	if c.Buffer <= 0 {
		c.Buffer = 1024
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 10 * time.Second
	}
	if c.HandoffTimeout < 0 {
		c.HandoffTimeout = 0
	}
	return c
}

// Dispatcher decouples mutation requests from event delivery: Publish hands
// the event to a bounded worker pool and returns immediately. When the
// buffer is saturated past the handoff window the event is dropped with a
// log line; fan-out is best-effort and must never block or fail the
// originating request.
type Dispatcher struct {
	jobs    chan publishJob
	pub     Publisher
	logger  *log.Logger
	cfg     DispatcherConfig
	wg      sync.WaitGroup
	bg      context.Context
	closed  chan struct{}
	closeMu sync.Once
}

// NewDispatcher starts the worker pool around the given publisher.
func NewDispatcher(pub Publisher, logger *log.Logger, cfg DispatcherConfig) *Dispatcher {
	cfg = cfg.withDefaults()
	d := &Dispatcher{
		jobs:   make(chan publishJob, cfg.Buffer),
		pub:    pub,
		logger: logger,
		cfg:    cfg,
		bg:     context.Background(),
		closed: make(chan struct{}),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	logger.Infof("event dispatcher started, workers: %d, buffer: %d", cfg.Workers, cfg.Buffer)
	return d
}

// Publish queues the event for delivery. It never returns an error to the
// caller; delivery failures are logged by the workers.
func (d *Dispatcher) Publish(_ context.Context, projectID, event string, payload any) error {
	job := publishJob{project: projectID, event: event, payload: payload}
	if d.trySend(job) {
		return nil
	}
	d.logger.WithFields(log.Fields{
		"project": projectID,
		"event":   event,
	}).Warn("dispatch buffer saturated; event dropped")
	return nil
}

// Close stops the workers after draining queued events.
func (d *Dispatcher) Close() {
	d.closeMu.Do(func() {
		close(d.closed)
		close(d.jobs)
	})
	d.wg.Wait()
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for j := range d.jobs {
		ctx, cancel := context.WithTimeout(d.bg, d.cfg.PublishTimeout)
		err := d.pub.Publish(ctx, j.project, j.event, j.payload)
		cancel()
		if err != nil {
			d.logger.Errorf("publish failed, err: %v, project: %s, event: %s, worker: %d", err, j.project, j.event, id)
		}
	}
}

func (d *Dispatcher) trySend(job publishJob) bool {
	select {
	case <-d.closed:
		return false
	default:
	}

	if sendNonBlocking(d.jobs, job) {
		return true
	}

	if d.cfg.HandoffTimeout <= 0 {
		return false
	}

	timer := time.NewTimer(d.cfg.HandoffTimeout)
	defer timer.Stop()
	return sendWithTimer(d.jobs, job, timer.C, d.closed)
}

// The closed check above races Close between the check and the send, so
// both send paths recover from a send on the closed jobs channel.

func sendNonBlocking(ch chan publishJob, job publishJob) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	select {
	case ch <- job:
		return true
	default:
		return false
	}
}

func sendWithTimer(ch chan publishJob, job publishJob, timer <-chan time.Time, closed <-chan struct{}) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	select {
	case ch <- job:
		return true
	case <-timer:
		return false
	case <-closed:
		return false
	}
}
