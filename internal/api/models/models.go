package models

import (
	"time"

	"github.com/zippdf/zippdf/internal/scheduler"
)

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Bot    string `json:"bot,omitempty"`
	Uptime string `json:"uptime"`
}

// ConversionStats are the orchestrator counters.
type ConversionStats struct {
	Started       int64            `json:"started"`
	Succeeded     int64            `json:"succeeded"`
	Failed        int64            `json:"failed"`
	FailedByStage map[string]int64 `json:"failed_by_stage"`
	Active        int64            `json:"active"`
	Pages         int64            `json:"pages"`
}

// CacheStats are the counters of a cache.
type CacheStats struct {
	Name      string `json:"name"`
	Hits      int    `json:"hits"`
	Misses    int    `json:"misses"`
	SetErrors int    `json:"set_errors"`
}

// StatsResponse is returned by the stats endpoint.
type StatsResponse struct {
	StartedAt  time.Time           `json:"started_at"`
	Conversion ConversionStats     `json:"conversion"`
	Cache      *CacheStats         `json:"cache,omitempty"`
	Jobs       []scheduler.JobInfo `json:"jobs"`
}

// JobItem is a conversion job as shown by the jobs endpoint.
type JobItem struct {
	ID         string     `json:"id"`
	UserID     int64      `json:"user_id"`
	FileName   string     `json:"file_name"`
	Stage      string     `json:"stage"`
	StartedAt  time.Time  `json:"started_at"`
	Started    string     `json:"started"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Duration   string     `json:"duration,omitempty"`
	Pages      int        `json:"pages,omitempty"`
	FailedAt   string     `json:"failed_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// JobsResponse is returned by the jobs endpoint.
type JobsResponse struct {
	Active  []JobItem `json:"active"`
	History []JobItem `json:"history"`
}
