package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fiscus/internal/interfaces"
	"github.com/ternarybob/fiscus/internal/models"
	"github.com/ternarybob/fiscus/internal/services/health"
)

// JobFunc is the body of a recurring job. It returns the number of rows it
// affected. Bodies must be idempotent: the scheduler never serializes
// firings, so an overlapping run has to be harmless.
type JobFunc func(ctx context.Context) (int, error)

// jobEntry represents a registered job with metadata
type jobEntry struct {
	name        string
	schedule    string
	description string
	body        JobFunc
	cronID      cron.EntryID
}

// JobStatus is the operator-facing view of one job.
type JobStatus struct {
	Name        string           `json:"name"`
	Schedule    string           `json:"schedule"`
	Description string           `json:"description"`
	NextRun     *time.Time       `json:"next_run,omitempty"`
	Health      health.JobRecord `json:"health"`
}

// Service drives recurring jobs via cron and reports their health through
// the registry. There is deliberately no global execution lock: a slow
// candle sync must not delay a live price tick, and a failed run never
// cancels future runs.
type Service struct {
	cron     *cron.Cron
	registry *health.Registry
	metrics  interfaces.MetricStorage
	logger   arbor.ILogger

	jobMu   sync.Mutex
	jobs    map[string]*jobEntry
	running bool
}

// NewService creates a new scheduler service. The seconds-enabled parser is
// required for the live price tick.
func NewService(registry *health.Registry, metrics interfaces.MetricStorage, logger arbor.ILogger) *Service {
	return &Service{
		cron:     cron.New(cron.WithSeconds()),
		registry: registry,
		metrics:  metrics,
		logger:   logger,
		jobs:     make(map[string]*jobEntry),
	}
}

// RegisterJob registers a new job with the scheduler
func (s *Service) RegisterJob(name, schedule, description string, body JobFunc) error {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	entry := &jobEntry{
		name:        name,
		schedule:    schedule,
		description: description,
		body:        body,
	}

	cronID, err := s.cron.AddFunc(schedule, func() {
		s.executeJob(name)
	})
	if err != nil {
		return fmt.Errorf("failed to add job to cron: %w", err)
	}

	entry.cronID = cronID
	s.jobs[name] = entry

	s.logger.Info().
		Str("job_name", name).
		Str("schedule", schedule).
		Msg("Job registered")

	return nil
}

// Start begins the cron loop
func (s *Service) Start() error {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().Int("jobs", len(s.jobs)).Msg("Scheduler started")
	return nil
}

// Stop halts the cron loop and waits for in-flight runs
func (s *Service) Stop() error {
	s.jobMu.Lock()
	if !s.running {
		s.jobMu.Unlock()
		return nil
	}
	s.running = false
	s.jobMu.Unlock()

	ctx := s.cron.Stop()

	// Wait up to 30 seconds for running jobs to finish
	select {
	case <-ctx.Done():
		s.logger.Info().Msg("Scheduler stopped")
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Scheduler stop timed out with jobs still running")
	}

	return nil
}

// IsRunning returns true if the scheduler is active
func (s *Service) IsRunning() bool {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	return s.running
}

// TriggerJob runs a job immediately, off-schedule. The run goes through the
// same execution path as a cron firing, including the paused check.
func (s *Service) TriggerJob(name string) error {
	s.jobMu.Lock()
	_, exists := s.jobs[name]
	s.jobMu.Unlock()

	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	s.logger.Info().Str("job_name", name).Msg("Manual job trigger requested")
	go s.executeJob(name)
	return nil
}

// PauseJob marks a job paused. Cron keeps firing; fires are skipped.
func (s *Service) PauseJob(name string) error {
	s.jobMu.Lock()
	_, exists := s.jobs[name]
	s.jobMu.Unlock()

	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	s.registry.Pause(name)
	s.logger.Info().Str("job_name", name).Msg("Job paused")
	return nil
}

// ResumeJob clears the paused state
func (s *Service) ResumeJob(name string) error {
	s.jobMu.Lock()
	_, exists := s.jobs[name]
	s.jobMu.Unlock()

	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	s.registry.Resume(name)
	s.logger.Info().Str("job_name", name).Msg("Job resumed")
	return nil
}

// executeJob runs one firing of a named job
func (s *Service) executeJob(name string) {
	s.jobMu.Lock()
	entry, exists := s.jobs[name]
	s.jobMu.Unlock()

	if !exists {
		s.logger.Warn().Str("job_name", name).Msg("Fired job is not registered")
		return
	}

	if s.registry.IsPaused(name) {
		s.logger.Debug().Str("job_name", name).Msg("Skipping paused job")
		return
	}

	s.logger.Debug().Str("job_name", name).Msg("🚀 Job execution started")
	s.registry.MarkStarted(name)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			s.registry.MarkFailure(name, err, time.Since(start))
			s.logger.Error().
				Str("job_name", name).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("❌ Job panicked")
		}
	}()

	rows, err := entry.body(context.Background())
	duration := time.Since(start)

	if err != nil {
		s.registry.MarkFailure(name, err, duration)
		s.logger.Error().
			Str("job_name", name).
			Err(err).
			Dur("duration", duration).
			Msg("❌ Job execution failed")
		return
	}

	s.registry.MarkSuccess(name, duration, rows)
	s.logger.Info().
		Str("job_name", name).
		Int("rows", rows).
		Dur("duration", duration).
		Msg("✅ Job execution completed successfully")
}

// JobStatuses returns the operator view of every registered job
func (s *Service) JobStatuses() []JobStatus {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	entries := s.cron.Entries()
	nextRuns := make(map[cron.EntryID]time.Time, len(entries))
	for _, e := range entries {
		nextRuns[e.ID] = e.Next
	}

	statuses := make([]JobStatus, 0, len(s.jobs))
	for _, entry := range s.jobs {
		status := JobStatus{
			Name:        entry.name,
			Schedule:    entry.schedule,
			Description: entry.description,
		}
		if next, ok := nextRuns[entry.cronID]; ok && !next.IsZero() {
			status.NextRun = &next
		}
		if record, err := s.registry.Snapshot(entry.name); err == nil {
			status.Health = record
		} else {
			status.Health = health.JobRecord{Name: entry.name}
		}
		statuses = append(statuses, status)
	}

	return statuses
}

// RecentFailures returns the most recent failed runs from durable metrics
func (s *Service) RecentFailures(ctx context.Context, limit int) ([]*models.JobMetric, error) {
	if s.metrics == nil {
		return nil, nil
	}
	return s.metrics.RecentFailures(ctx, limit)
}
