package policy

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
)

// ArchiveSize refuses uploads bigger than a fixed limit.
type ArchiveSize struct {
	limit int64
}

var _ Policy = (*ArchiveSize)(nil)

// NewArchiveSize creates a new instance of ArchiveSize. A limit of 0 allows everything.
func NewArchiveSize(limit int64) *ArchiveSize {
	return &ArchiveSize{limit: limit}
}

func (p *ArchiveSize) Name() string { return "archive-size" }

func (p *ArchiveSize) Check(_ context.Context, req Request) error {
	if p.limit <= 0 || req.Size <= 0 {
		return nil
	}
	if req.Size > p.limit {
		return fmt.Errorf("%w: %s is larger than %s", ErrArchiveTooLarge, humanize.IBytes(uint64(req.Size)), humanize.IBytes(uint64(p.limit))) //nolint:gosec
	}
	return nil
}
