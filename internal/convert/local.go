package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// localFetcher reads archives from the local filesystem, Source.FileID is the path.
type localFetcher struct{}

func (localFetcher) Fetch(_ context.Context, src Source, path string) error {
	return copyFile(src.FileID, path)
}

// localDeliverer copies the finished PDF to a fixed path.
type localDeliverer struct {
	out string
}

func (d localDeliverer) Deliver(_ context.Context, _ *Job, pdfPath string) error {
	if dir := filepath.Dir(d.out); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	return copyFile(pdfPath, d.out)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close() //nolint:errcheck

	out, err := os.Create(dst) //nolint:gosec
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
