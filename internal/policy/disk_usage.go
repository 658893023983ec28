package policy

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/disk"
)

// DiskSpace refuses jobs when the work dir runs low on free space.
type DiskSpace struct {
	minFree uint64
	usage   func(ctx context.Context, path string) (*disk.UsageStat, error)
}

var _ Policy = (*DiskSpace)(nil)

// NewDiskSpace creates a new instance of DiskSpace.
// The archive size of the request is added to minFree when known.
func NewDiskSpace(minFree uint64) *DiskSpace {
	return &DiskSpace{
		minFree: minFree,
		usage:   disk.UsageWithContext,
	}
}

func (p *DiskSpace) Name() string { return "disk-space" }

// Check compares the free space of the request's work dir with the threshold.
func (p *DiskSpace) Check(ctx context.Context, req Request) error {
	if p.minFree == 0 {
		return nil
	}

	usage, err := p.usage(ctx, req.WorkDir)
	if err != nil {
		// an unknown disk state doesn't block conversions
		log.Warn("failed to get disk usage", "path", req.WorkDir, "error", err)
		return nil
	}

	need := p.minFree
	if req.Size > 0 {
		need += uint64(req.Size) //nolint:gosec
	}
	if usage.Free < need {
		log.Warn("Refusing job, disk space below threshold",
			"path", req.WorkDir,
			"free", humanize.IBytes(usage.Free),
			"required", humanize.IBytes(need),
			"usedPercent", usage.UsedPercent,
		)
		return fmt.Errorf("%w: %s free, %s required", ErrLowDiskSpace, humanize.IBytes(usage.Free), humanize.IBytes(need))
	}

	log.Debug("Disk space check passed",
		"path", req.WorkDir,
		"free", humanize.IBytes(usage.Free),
		"required", humanize.IBytes(need),
	)
	return nil
}
