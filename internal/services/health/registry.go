// Package health tracks per-job run outcomes for operator visibility and
// alerting. The registry is the in-memory source of truth; every completed
// run is also appended as a durable metric row.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fiscus/internal/interfaces"
	"github.com/ternarybob/fiscus/internal/models"
)

// DefaultAlertThreshold is the consecutive-failure count that flips a job
// into the alerting state.
const DefaultAlertThreshold = 3

// JobRecord is the tracked state for one named job.
type JobRecord struct {
	Name                string     `json:"name"`
	Paused              bool       `json:"paused"`
	Running             bool       `json:"running"`
	TotalRuns           int        `json:"total_runs"`
	TotalFailures       int        `json:"total_failures"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastStarted         *time.Time `json:"last_started,omitempty"`
	LastSuccess         *time.Time `json:"last_success,omitempty"`
	LastFailure         *time.Time `json:"last_failure,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
	LastRows            int        `json:"last_rows"`
	AvgDuration         string     `json:"avg_duration"`

	// Average inputs. Only successful runs count; a hung-then-failed run
	// would otherwise distort the published duration.
	successRuns     int
	successDuration time.Duration
}

// Registry is a mutex-guarded map of job records.
type Registry struct {
	mu             sync.Mutex
	jobs           metricsMap
	metricStorage  interfaces.MetricStorage
	logger         arbor.ILogger
	alertThreshold int
}

type metricsMap map[string]*JobRecord

// NewRegistry creates a registry. metricStorage may be nil in tests; metric
// persistence is best-effort either way.
func NewRegistry(metricStorage interfaces.MetricStorage, alertThreshold int, logger arbor.ILogger) *Registry {
	if alertThreshold <= 0 {
		alertThreshold = DefaultAlertThreshold
	}
	return &Registry{
		jobs:           make(metricsMap),
		metricStorage:  metricStorage,
		logger:         logger,
		alertThreshold: alertThreshold,
	}
}

// record returns the entry for name, creating it on first touch.
// Caller holds r.mu.
func (r *Registry) record(name string) *JobRecord {
	rec, ok := r.jobs[name]
	if !ok {
		rec = &JobRecord{Name: name}
		r.jobs[name] = rec
	}
	return rec
}

// MarkStarted records a run starting.
func (r *Registry) MarkStarted(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.record(name)
	now := time.Now()
	rec.Running = true
	rec.LastStarted = &now
}

// MarkSuccess records a successful run: resets the consecutive-failure
// counter, recomputes the average duration over successful runs, and
// appends a durable metric row.
func (r *Registry) MarkSuccess(name string, duration time.Duration, rows int) {
	r.mu.Lock()
	rec := r.record(name)
	now := time.Now()
	rec.Running = false
	rec.TotalRuns++
	rec.ConsecutiveFailures = 0
	rec.LastSuccess = &now
	rec.LastError = ""
	rec.LastRows = rows
	rec.successRuns++
	rec.successDuration += duration
	rec.AvgDuration = (rec.successDuration / time.Duration(rec.successRuns)).String()
	started := now.Add(-duration)
	r.mu.Unlock()

	r.persistMetric(&models.JobMetric{
		JobName:   name,
		StartedAt: started,
		Duration:  duration,
		Success:   true,
		Rows:      rows,
	})
}

// MarkFailure records a failed run. Failures never block future runs; the
// consecutive counter only drives alerting.
func (r *Registry) MarkFailure(name string, runErr error, duration time.Duration) {
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}

	r.mu.Lock()
	rec := r.record(name)
	now := time.Now()
	rec.Running = false
	rec.TotalRuns++
	rec.TotalFailures++
	rec.ConsecutiveFailures++
	rec.LastFailure = &now
	rec.LastError = errMsg
	consecutive := rec.ConsecutiveFailures
	started := now.Add(-duration)
	r.mu.Unlock()

	if consecutive >= r.alertThreshold {
		r.logger.Error().
			Str("job_name", name).
			Int("consecutive_failures", consecutive).
			Str("error", errMsg).
			Msg("🚨 Job failing repeatedly")
	}

	r.persistMetric(&models.JobMetric{
		JobName:   name,
		StartedAt: started,
		Duration:  duration,
		Success:   false,
		Error:     errMsg,
	})
}

// persistMetric appends the durable row. Persistence failures are logged
// and swallowed; health tracking must never take a job down.
func (r *Registry) persistMetric(metric *models.JobMetric) {
	if r.metricStorage == nil {
		return
	}
	if err := r.metricStorage.Append(context.Background(), metric); err != nil {
		r.logger.Warn().Err(err).Str("job_name", metric.JobName).Msg("Failed to persist job metric")
	}
}

// Pause marks a job paused. The scheduler skips paused jobs at fire time.
func (r *Registry) Pause(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(name).Paused = true
}

// Resume clears the paused flag and the consecutive-failure counter, so a
// freshly resumed job is not immediately alerting.
func (r *Registry) Resume(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.record(name)
	rec.Paused = false
	rec.ConsecutiveFailures = 0
}

// IsPaused reports whether a job is paused.
func (r *Registry) IsPaused(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.jobs[name]; ok {
		return rec.Paused
	}
	return false
}

// ConsecutiveFailures returns the current consecutive-failure count.
func (r *Registry) ConsecutiveFailures(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.jobs[name]; ok {
		return rec.ConsecutiveFailures
	}
	return 0
}

// ShouldAlert reports whether a job has crossed the alert threshold.
func (r *Registry) ShouldAlert(name string) bool {
	return r.ConsecutiveFailures(name) >= r.alertThreshold
}

// Snapshot returns a copy of one job's record.
func (r *Registry) Snapshot(name string) (JobRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.jobs[name]
	if !ok {
		return JobRecord{}, fmt.Errorf("job %s not tracked", name)
	}
	return *rec, nil
}

// SnapshotAll returns copies of every tracked record keyed by job name.
func (r *Registry) SnapshotAll() map[string]JobRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]JobRecord, len(r.jobs))
	for name, rec := range r.jobs {
		out[name] = *rec
	}
	return out
}
