package models

import (
	"time"

	"github.com/mergestat/timediff"
	"github.com/samber/lo"
	"github.com/zippdf/zippdf/internal/cache"
	"github.com/zippdf/zippdf/internal/convert"
)

// ToJobItem converts a tracked job to its API representation.
func ToJobItem(j convert.JobInfo) JobItem {
	item := JobItem{
		ID:         j.ID,
		UserID:     j.UserID,
		FileName:   j.FileName,
		Stage:      string(j.Stage),
		StartedAt:  j.StartedAt,
		Started:    timediff.TimeDiff(j.StartedAt),
		FinishedAt: j.FinishedAt,
		Pages:      j.Pages,
		FailedAt:   string(j.FailedAt),
		Error:      j.Error,
	}
	if j.FinishedAt != nil {
		item.Duration = j.FinishedAt.Sub(j.StartedAt).Round(time.Millisecond).String()
	}
	return item
}

// ToJobItems converts a list of tracked jobs. It never returns nil.
func ToJobItems(jobs []convert.JobInfo) []JobItem {
	return lo.Map(jobs, func(j convert.JobInfo, _ int) JobItem { return ToJobItem(j) })
}

// ToConversionStats converts the orchestrator counters.
func ToConversionStats(s convert.Stats) ConversionStats {
	return ConversionStats{
		Started:   s.Started,
		Succeeded: s.Succeeded,
		Failed:    s.Failed,
		FailedByStage: lo.MapKeys(s.FailedByStage, func(_ int64, stage convert.Stage) string {
			return string(stage)
		}),
		Active: s.Active,
		Pages:  s.Pages,
	}
}

// ToCacheStats converts cache statistics. Nil stats yield nil.
func ToCacheStats(s *cache.Stats) *CacheStats {
	if s == nil || s.Stats == nil {
		return nil
	}
	return &CacheStats{
		Name:      s.CacheName,
		Hits:      s.Hits,
		Misses:    s.Miss,
		SetErrors: s.SetError,
	}
}
