package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/assert"
)

func fakeUsage(free uint64, err error) func(context.Context, string) (*disk.UsageStat, error) {
	return func(context.Context, string) (*disk.UsageStat, error) {
		if err != nil {
			return nil, err
		}
		return &disk.UsageStat{Free: free, UsedPercent: 50}, nil
	}
}

func TestArchiveSize(t *testing.T) {
	tests := []struct {
		name    string
		limit   int64
		size    int64
		wantErr bool
	}{
		{name: "below limit", limit: 100, size: 99},
		{name: "at limit", limit: 100, size: 100},
		{name: "above limit", limit: 100, size: 101, wantErr: true},
		{name: "unknown size", limit: 100, size: 0},
		{name: "no limit", limit: 0, size: 1 << 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewArchiveSize(tt.limit).Check(context.Background(), Request{Size: tt.size})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrArchiveTooLarge)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDiskSpace(t *testing.T) {
	tests := []struct {
		name    string
		minFree uint64
		free    uint64
		size    int64
		statErr error
		wantErr bool
	}{
		{name: "enough space", minFree: 100, free: 1000, size: 10},
		{name: "archive pushes over threshold", minFree: 100, free: 150, size: 60, wantErr: true},
		{name: "below threshold", minFree: 100, free: 50, wantErr: true},
		{name: "disabled", minFree: 0, free: 0},
		{name: "stat error is ignored", minFree: 100, statErr: errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewDiskSpace(tt.minFree)
			p.usage = fakeUsage(tt.free, tt.statErr)
			err := p.Check(context.Background(), Request{Size: tt.size, WorkDir: "/tmp"})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrLowDiskSpace)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEngineCheckAll(t *testing.T) {
	ds := NewDiskSpace(100)
	ds.usage = fakeUsage(10, nil)

	e := NewEngine(NewArchiveSize(50), ds)
	assert.ErrorIs(t, e.CheckAll(context.Background(), Request{Size: 60}), ErrArchiveTooLarge)
	assert.ErrorIs(t, e.CheckAll(context.Background(), Request{Size: 10}), ErrLowDiskSpace)

	e.SetPolicies(NewArchiveSize(50))
	assert.NoError(t, e.CheckAll(context.Background(), Request{Size: 10}))

	var nilEngine *Engine
	assert.NoError(t, nilEngine.CheckAll(context.Background(), Request{}))
}
