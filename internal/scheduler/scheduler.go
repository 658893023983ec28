package scheduler

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/samber/lo"
)

// JobStatus represents the status of a housekeeping job.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusScheduled JobStatus = "scheduled"
)

// JobInfo contains information about a scheduled job.
type JobInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      JobStatus  `json:"status"`
	Schedule    string     `json:"schedule"`
	LastRun     *time.Time `json:"last_run,omitempty"`
	NextRun     *time.Time `json:"next_run,omitempty"`
	RunCount    int        `json:"run_count"`
	ErrorCount  int        `json:"error_count"`
	LastError   string     `json:"last_error,omitempty"`

	job          gocron.Job
	runAfterBoot bool
}

// JobFunc represents a function that can be scheduled.
type JobFunc func(ctx context.Context) error

// Scheduler runs the periodic housekeeping jobs of the bot.
// Every job is a singleton, a run that is still busy is rescheduled instead of overlapping.
type Scheduler struct {
	gocron gocron.Scheduler
	logger *logger

	mu      sync.RWMutex
	jobs    map[string]*JobInfo
	started bool

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new scheduler. Jobs receive a context derived from ctx.
func New(ctx context.Context) (*Scheduler, error) {
	l := newLogger()
	gocronScheduler, err := gocron.NewScheduler(gocron.WithLogger(l))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Scheduler{
		gocron: gocronScheduler,
		logger: l,
		jobs:   make(map[string]*JobInfo),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start starts the scheduler and runs the jobs flagged to run right away.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.logger.Info("Starting job scheduler")
	s.gocron.Start()

	var boot []string
	for id, info := range s.jobs {
		s.refreshNextRun(info)
		if info.runAfterBoot {
			boot = append(boot, id)
		}
	}
	s.mu.Unlock()

	for _, id := range boot {
		if err := s.RunJobNow(id); err != nil {
			s.logger.Error("Failed to run job after start", "id", id, "error", err)
		}
	}
}

// Stop stops the scheduler and cancels running jobs.
func (s *Scheduler) Stop() error {
	s.cancel()

	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()
	if !started {
		return nil
	}

	s.logger.Info("Stopping job scheduler")
	return s.gocron.Shutdown()
}

// AddCronJob adds a singleton job that runs on a 5 field cron schedule.
func (s *Scheduler) AddCronJob(id, name, description, schedule string, fn JobFunc, runAfterBoot bool) error {
	if len(strings.Fields(schedule)) != 5 {
		return fmt.Errorf("invalid cron schedule %q for job %s", schedule, id)
	}
	return s.addJob(id, name, description, schedule, gocron.CronJob(schedule, false), fn, runAfterBoot)
}

// AddIntervalJob adds a singleton job that runs every interval.
func (s *Scheduler) AddIntervalJob(id, name, description string, interval time.Duration, fn JobFunc, runAfterBoot bool) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval %s for job %s", interval, id)
	}
	return s.addJob(id, name, description, "every "+interval.String(), gocron.DurationJob(interval), fn, runAfterBoot)
}

func (s *Scheduler) addJob(id, name, description, schedule string, def gocron.JobDefinition, fn JobFunc, runAfterBoot bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		return fmt.Errorf("job %s already exists", id)
	}

	info := &JobInfo{
		ID:           id,
		Name:         name,
		Description:  description,
		Status:       JobStatusScheduled,
		Schedule:     schedule,
		runAfterBoot: runAfterBoot,
	}

	job, err := s.gocron.NewJob(
		def,
		gocron.NewTask(s.wrapJobFunc(id, fn)),
		gocron.WithName(id),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", id, err)
	}
	info.job = job
	s.jobs[id] = info

	s.logger.Info("Added job to scheduler", "id", id, "schedule", schedule)
	return nil
}

// RunJobNow manually triggers a job to run immediately.
func (s *Scheduler) RunJobNow(id string) error {
	s.mu.RLock()
	info, exists := s.jobs[id]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("job %s not found", id)
	}

	s.logger.Debug("Manually triggering job", "id", id)
	if err := info.job.RunNow(); err != nil {
		return fmt.Errorf("failed to trigger job %s: %w", id, err)
	}
	return nil
}

// GetJobs returns a snapshot of all jobs sorted by id.
func (s *Scheduler) GetJobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := lo.MapToSlice(s.jobs, func(_ string, info *JobInfo) JobInfo { return *info })
	slices.SortFunc(jobs, func(a, b JobInfo) int { return strings.Compare(a.ID, b.ID) })
	return jobs
}

// GetJob returns a snapshot of a single job.
func (s *Scheduler) GetJob(id string) (JobInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, exists := s.jobs[id]
	if !exists {
		return JobInfo{}, false
	}
	return *info, true
}

// refreshNextRun must be called with s.mu held.
func (s *Scheduler) refreshNextRun(info *JobInfo) {
	if info.job == nil {
		return
	}
	if next, err := info.job.NextRun(); err == nil && !next.IsZero() {
		info.NextRun = lo.ToPtr(next)
	}
}

// wrapJobFunc wraps a job function to update job statistics.
func (s *Scheduler) wrapJobFunc(id string, fn JobFunc) func() {
	return func() {
		s.mu.Lock()
		info := s.jobs[id]
		if info == nil {
			s.mu.Unlock()
			s.logger.Error("Job info not found", "id", id)
			return
		}
		info.Status = JobStatusRunning
		info.LastRun = lo.ToPtr(time.Now())
		info.RunCount++
		s.refreshNextRun(info)
		s.mu.Unlock()

		s.logger.Debug("Starting job", "id", id)
		err := fn(s.ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.logger.Error("Job failed", "id", id, "error", err)
			info.Status = JobStatusFailed
			info.ErrorCount++
			info.LastError = err.Error()
			return
		}
		s.logger.Debug("Job completed", "id", id)
		info.Status = JobStatusCompleted
		info.LastError = ""
	}
}
