package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ccoveille/go-safecast"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
)

var (
	// ErrBadArchive is returned when the input is not a readable ZIP archive.
	ErrBadArchive = errors.New("invalid archive")
	// ErrPathTraversal is returned for entries that would be written outside the extraction root.
	ErrPathTraversal = errors.New("path escapes root")
	// ErrTooLarge is returned when the uncompressed content exceeds the configured limit.
	ErrTooLarge = errors.New("archive too large")
)

// ExtractOptions controls Extract.
type ExtractOptions struct {
	// MaxSize is the maximum total uncompressed size in bytes. 0 means unlimited.
	MaxSize int64
}

// ExtractResult describes what Extract wrote.
type ExtractResult struct {
	Files int
	Bytes int64
}

// Extract unpacks the ZIP archive at src into dst.
// Directory entries are recreated, symlinks are skipped.
func Extract(ctx context.Context, src, dst string, opts ExtractOptions) (*ExtractResult, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadArchive, err)
	}
	defer r.Close() //nolint:errcheck

	r.RegisterDecompressor(zip.Deflate, flate.NewReader)
	r.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())

	if err := os.MkdirAll(dst, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create extraction dir: %w", err)
	}

	if opts.MaxSize > 0 {
		var declared uint64
		for _, f := range r.File {
			declared += f.UncompressedSize64
		}
		limit, err := safecast.Convert[uint64](opts.MaxSize)
		if err != nil {
			return nil, err
		}
		if declared > limit {
			return nil, fmt.Errorf("%w: %s exceeds %s", ErrTooLarge, humanize.IBytes(declared), humanize.IBytes(limit))
		}
	}

	res := &ExtractResult{}
	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		target, err := resolveWithinRoot(dst, f.Name)
		if err != nil {
			log.Warn("refusing archive entry", "name", f.Name, "error", err)
			return nil, fmt.Errorf("%w: %s", ErrPathTraversal, f.Name)
		}

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create directory %s: %w", f.Name, err)
			}
			continue
		case mode&os.ModeSymlink != 0:
			log.Debug("skipping symlink in archive", "name", f.Name)
			continue
		case !mode.IsRegular():
			log.Debug("skipping special file in archive", "name", f.Name, "mode", mode)
			continue
		}

		remaining := int64(-1)
		if opts.MaxSize > 0 {
			remaining = opts.MaxSize - res.Bytes
		}
		n, err := extractFile(f, target, remaining)
		if err != nil {
			return nil, err
		}
		res.Files++
		res.Bytes += n
	}

	log.Debug("extracted archive", "src", filepath.Base(src), "files", res.Files, "size", humanize.IBytes(uint64(res.Bytes))) //nolint:gosec
	return res, nil
}

// extractFile writes a single entry to target. A negative limit disables the size check.
func extractFile(f *zip.File, target string, limit int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return 0, fmt.Errorf("failed to create directory for %s: %w", f.Name, err)
	}

	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrBadArchive, f.Name, err)
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640) //nolint:gosec
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", f.Name, err)
	}
	defer out.Close() //nolint:errcheck

	var reader io.Reader = rc
	if limit >= 0 {
		// declared sizes are not trusted
		reader = io.LimitReader(rc, limit+1)
	}

	n, err := io.Copy(out, reader)
	if err != nil {
		return n, fmt.Errorf("%w: %s: %w", ErrBadArchive, f.Name, err)
	}
	if limit >= 0 && n > limit {
		return n, fmt.Errorf("%w: %s", ErrTooLarge, f.Name)
	}
	return n, out.Close()
}

// resolveWithinRoot maps an archive entry name to a path below root.
func resolveWithinRoot(root, name string) (string, error) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	rootAbs = filepath.Clean(rootAbs)

	name = strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(name, "/") || filepath.VolumeName(name) != "" {
		return "", ErrPathTraversal
	}
	joined := filepath.Clean(filepath.Join(rootAbs, filepath.FromSlash(name)))
	if !isWithin(rootAbs, joined) {
		return "", ErrPathTraversal
	}
	return joined, nil
}

func isWithin(root, candidate string) bool {
	root = filepath.Clean(root)
	candidate = filepath.Clean(candidate)
	if root == candidate {
		return true
	}
	sep := string(filepath.Separator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(candidate, root)
}
