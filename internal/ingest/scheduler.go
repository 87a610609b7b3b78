// Package ingest runs the daily data-collection pipeline: scrape the
// consensus inputs after the close, persist them, and keep the instrument
// snapshot fresh. Collection is a collaborator of the simulation, never part
// of it; a run only ever reads what ingest wrote on earlier days.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tianji-quant/tianji/pkg/logger"
)

// Job is one schedulable unit of collection work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
	// Schedule is a cron expression with a seconds field,
	// e.g. "0 30 17 * * MON-FRI" for 17:30 on trading days.
	Schedule() string
}

// Scheduler drives jobs on their cron schedules with retry.
type Scheduler struct {
	cron   *cron.Cron
	logger *logger.Logger
	jobs   map[string]Job
	mu     sync.RWMutex

	maxRetries int
	retryDelay time.Duration
}

// NewScheduler creates a scheduler.
func NewScheduler(log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		logger:     log,
		jobs:       make(map[string]Job),
		maxRetries: 3,
		retryDelay: 1 * time.Minute,
	}
}

// AddJob registers a job on its schedule.
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	if _, err := s.cron.AddFunc(job.Schedule(), func() {
		s.runJob(job)
	}); err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = job
	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": job.Schedule(),
	}).Info("Job added to scheduler")
	return nil
}

// Start begins schedule evaluation.
func (s *Scheduler) Start() {
	s.logger.Info("Starting ingest scheduler")
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping ingest scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Ingest scheduler stopped")
}

// RunJob triggers a job immediately, outside its schedule.
func (s *Scheduler) RunJob(name string) error {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}
	go s.runJob(job)
	return nil
}

func (s *Scheduler) runJob(job Job) {
	name := job.Name()
	start := time.Now()
	s.logger.WithField("job", name).Info("Job started")

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err := job.Run(context.Background()); err != nil {
			lastErr = err
			s.logger.WithFields(map[string]interface{}{
				"job":     name,
				"attempt": attempt + 1,
				"error":   err.Error(),
			}).Warn("Job execution failed, retrying")
			if attempt < s.maxRetries {
				time.Sleep(s.retryDelay)
			}
			continue
		}
		lastErr = nil
		break
	}

	if lastErr != nil {
		s.logger.WithFields(map[string]interface{}{
			"job":      name,
			"duration": time.Since(start),
			"error":    lastErr.Error(),
		}).Error("Job failed after all retries")
		return
	}
	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"duration": time.Since(start),
	}).Info("Job completed")
}
