package convert

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
)

const historySize = 50

// JobInfo is the public view of a job, served by the status API.
type JobInfo struct {
	ID         string     `json:"id"`
	UserID     int64      `json:"user_id"`
	FileName   string     `json:"file_name"`
	Stage      Stage      `json:"stage"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Pages      int        `json:"pages,omitempty"`
	FailedAt   Stage      `json:"failed_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Stats are the counters of the orchestrator since start.
type Stats struct {
	Started       int64           `json:"started"`
	Succeeded     int64           `json:"succeeded"`
	Failed        int64           `json:"failed"`
	FailedByStage map[Stage]int64 `json:"failed_by_stage"`
	Active        int64           `json:"active"`
	Pages         int64           `json:"pages"`
}

// Tracker keeps the running jobs and a short history of finished ones.
type Tracker struct {
	mu      sync.RWMutex
	active  map[string]*JobInfo
	history []JobInfo
	stats   Stats
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		active: make(map[string]*JobInfo),
		stats:  Stats{FailedByStage: make(map[Stage]int64)},
	}
}

func (t *Tracker) start(job *Job) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.active[job.ID] = &JobInfo{
		ID:        job.ID,
		UserID:    job.UserID,
		FileName:  job.Source.FileName,
		Stage:     StageReceived,
		StartedAt: time.Now(),
	}
	t.stats.Started++
	t.stats.Active++
}

func (t *Tracker) stage(job *Job, stage Stage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if info, ok := t.active[job.ID]; ok {
		info.Stage = stage
	}
}

func (t *Tracker) finish(job *Job, pages int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	info, ok := t.active[job.ID]
	if !ok {
		return
	}
	delete(t.active, job.ID)
	t.stats.Active--

	info.FinishedAt = lo.ToPtr(time.Now())
	if err != nil {
		t.stats.Failed++
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			info.FailedAt = stageErr.Stage
			t.stats.FailedByStage[stageErr.Stage]++
		}
		info.Error = err.Error()
	} else {
		t.stats.Succeeded++
		t.stats.Pages += int64(pages)
		info.Stage = StageDone
		info.Pages = pages
	}

	t.history = append(t.history, *info)
	if len(t.history) > historySize {
		t.history = t.history[len(t.history)-historySize:]
	}
}

// Failed records a job that failed before it reached the orchestrator,
// like an interactive request that timed out.
func (t *Tracker) Failed(stage Stage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.Failed++
	t.stats.FailedByStage[stage]++
}

// Stats returns a copy of the counters.
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := t.stats
	s.FailedByStage = make(map[Stage]int64, len(t.stats.FailedByStage))
	for k, v := range t.stats.FailedByStage {
		s.FailedByStage[k] = v
	}
	return s
}

// Active returns the running jobs, oldest first.
func (t *Tracker) Active() []JobInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	jobs := lo.MapToSlice(t.active, func(_ string, info *JobInfo) JobInfo { return *info })
	slices.SortFunc(jobs, func(a, b JobInfo) int { return a.StartedAt.Compare(b.StartedAt) })
	return jobs
}

// History returns the most recently finished jobs, newest first.
func (t *Tracker) History() []JobInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	h := slices.Clone(t.history)
	slices.Reverse(h)
	return h
}
