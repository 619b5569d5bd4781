package api

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// listRequestMetrics collects per-request timings for the paginated list
// endpoints, flushed as one structured log line when the request finishes.
type listRequestMetrics struct {
	logger         *log.Logger
	resource       string
	start          time.Time
	authDuration   time.Duration
	fetchDuration  time.Duration
	expandDuration time.Duration
	filterKeys     int
	recordsFound   int
	errorStage     string
}

func newListRequestMetrics(logger *log.Logger, resource string) *listRequestMetrics {
	return &listRequestMetrics{
		logger:   logger,
		resource: resource,
		start:    time.Now(),
	}
}

func (m *listRequestMetrics) ObserveAuth(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.authDuration = duration
}

func (m *listRequestMetrics) ObserveFetch(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.fetchDuration = duration
}

func (m *listRequestMetrics) ObserveExpand(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.expandDuration = duration
}

func (m *listRequestMetrics) SetFilterKeys(count int) {
	if count < 0 {
		count = 0
	}
	m.filterKeys = count
}

func (m *listRequestMetrics) SetRecordsFound(count int) {
	if count < 0 {
		count = 0
	}
	m.recordsFound = count
}

func (m *listRequestMetrics) SetErrorStage(stage string) {
	if m.errorStage != "" {
		return
	}
	m.errorStage = stage
}

func (m *listRequestMetrics) Log(status int, err error) {
	fields := log.Fields{
		"resource":    m.resource,
		"status":      status,
		"duration_ms": time.Since(m.start).Milliseconds(),
		"auth_ms":     m.authDuration.Milliseconds(),
		"fetch_ms":    m.fetchDuration.Milliseconds(),
		"expand_ms":   m.expandDuration.Milliseconds(),
		"filter_keys": m.filterKeys,
		"records":     m.recordsFound,
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	entry := m.logger.WithFields(fields)
	if err != nil {
		entry.WithError(err).Warn("list request")
		return
	}
	entry.Info("list request")
}
