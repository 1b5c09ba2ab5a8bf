// Package scheduler runs the background jobs (periodic shell refresh,
// expense sync) on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"
)

// JobStatus represents the status of a job.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusScheduled JobStatus = "scheduled"
)

// JobInfo contains information about a scheduled job.
type JobInfo struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Status     JobStatus  `json:"status"`
	LastRun    time.Time  `json:"lastRun"`
	NextRun    time.Time  `json:"nextRun"`
	Schedule   string     `json:"schedule"`
	RunCount   int        `json:"runCount"`
	ErrorCount int        `json:"errorCount"`
	LastError  string     `json:"lastError,omitempty"`
	job        gocron.Job
}

// JobFunc represents a function that can be scheduled.
type JobFunc func(ctx context.Context) error

// Scheduler manages the cron jobs.
type Scheduler struct {
	gocron gocron.Scheduler
	jobs   map[string]*JobInfo
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new scheduler.
func New() (*Scheduler, error) {
	gocronScheduler, err := gocron.NewScheduler(gocron.WithLogger(newLogger()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		gocron: gocronScheduler,
		jobs:   make(map[string]*JobInfo),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// AddJob registers a job under a cron schedule. Jobs run in singleton mode
// so a slow run is never overlapped by the next trigger.
func (s *Scheduler) AddJob(id, name, schedule string, jobFunc JobFunc) error {
	info := &JobInfo{
		ID:       id,
		Name:     name,
		Status:   JobStatusScheduled,
		Schedule: schedule,
	}

	job, err := s.gocron.NewJob(
		gocron.CronJob(schedule, false),
		gocron.NewTask(s.wrapJobFunc(id, jobFunc)),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", id, err)
	}
	info.job = job

	s.jobs[id] = info
	log.Info("Added job to scheduler", "id", id, "name", name, "schedule", schedule)
	return nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.gocron.Start()
	log.Info("Job scheduler started")

	for id, info := range s.jobs {
		if nextRun, err := info.job.NextRun(); err == nil {
			info.NextRun = nextRun
			log.Debug("Next run time for job", "id", id, "nextRun", nextRun)
		}
	}
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() error {
	log.Info("Stopping job scheduler")
	s.cancel()
	return s.gocron.Shutdown()
}

// RunJobNow manually triggers a job to run immediately.
func (s *Scheduler) RunJobNow(id string) error {
	info, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job %s not found", id)
	}

	log.Info("Manually triggering job", "id", id, "name", info.Name)
	if err := info.job.RunNow(); err != nil {
		return fmt.Errorf("failed to trigger job %s: %w", id, err)
	}
	return nil
}

// Jobs returns all job information.
func (s *Scheduler) Jobs() map[string]*JobInfo {
	return s.jobs
}

// wrapJobFunc wraps a job function to track run statistics.
func (s *Scheduler) wrapJobFunc(id string, jobFunc JobFunc) func() {
	return func() {
		info := s.jobs[id]
		if info == nil {
			log.Error("Job info not found", "id", id)
			return
		}

		log.Info("Starting job", "id", id, "name", info.Name)
		info.Status = JobStatusRunning
		info.LastRun = time.Now()
		if nextRun, err := info.job.NextRun(); err == nil {
			info.NextRun = nextRun
		}
		info.RunCount++

		if err := jobFunc(s.ctx); err != nil {
			log.Error("Job failed", "id", id, "name", info.Name, "error", err)
			info.Status = JobStatusFailed
			info.ErrorCount++
			info.LastError = err.Error()
			return
		}
		log.Info("Job completed successfully", "id", id, "name", info.Name)
		info.Status = JobStatusCompleted
		info.LastError = ""
	}
}
