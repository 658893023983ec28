package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
)

// ErrEmptyArchive is returned when no image survives filtering and deduplication.
var ErrEmptyArchive = errors.New("no images found")

// ImageExtensions are the file extensions treated as images, lower case with the dot.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".webp", ".bmp", ".gif", ".tiff", ".img"}

var numberedName = regexp.MustCompile(`^(\d+)([a-zA-Z]?)$`)

// NormalizeOptions controls Normalize.
type NormalizeOptions struct {
	// KeepUnnumbered lets images whose name is not a page number through unchanged.
	KeepUnnumbered bool
}

// Normalize returns the image files of an extracted archive in page order.
//
// Only the top level of dir is considered. If it holds no images and exactly
// one directory, that directory is used instead.
//
// Images named like page numbers (1.jpg, 2a.png, ...) are deduplicated so that
// each number yields a single page, preferring the bare number over a lettered
// variant. Other images are dropped unless opts.KeepUnnumbered is set.
func Normalize(dir string, opts NormalizeOptions) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var (
		images []string
		dirs   []string
	)
	for _, e := range entries {
		if isIgnored(e.Name()) {
			continue
		}
		switch {
		case e.IsDir():
			dirs = append(dirs, e.Name())
		case e.Type().IsRegular() && IsImage(e.Name()):
			images = append(images, e.Name())
		}
	}

	if len(images) == 0 && len(dirs) == 1 {
		log.Debug("descending into single archive folder", "folder", dirs[0])
		return Normalize(filepath.Join(dir, dirs[0]), opts)
	}

	kept := dedupe(images, opts.KeepUnnumbered)
	if len(kept) == 0 {
		return nil, ErrEmptyArchive
	}

	slices.SortStableFunc(kept, naturalCompare)

	return lo.Map(kept, func(name string, _ int) string {
		return filepath.Join(dir, name)
	}), nil
}

// IsImage reports whether name has one of the ImageExtensions, ignoring case.
func IsImage(name string) bool {
	return lo.Contains(ImageExtensions, strings.ToLower(filepath.Ext(name)))
}

// isIgnored skips metadata entries added by archivers.
func isIgnored(name string) bool {
	return name == "__MACOSX" || strings.HasPrefix(name, ".")
}

// dedupe keeps one image per page number.
// For a number with several lettered variants and no bare name, the last
// variant in natural order wins, except that a "t" (thumbnail) variant never
// replaces another variant.
func dedupe(names []string, keepUnnumbered bool) []string {
	sorted := slices.Clone(names)
	slices.SortStableFunc(sorted, naturalCompare)

	type pick struct {
		name   string
		suffix string
	}
	picks := make(map[string]pick)
	var order []string
	var out []string

	for _, name := range sorted {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		m := numberedName.FindStringSubmatch(stem)
		if m == nil {
			if keepUnnumbered {
				out = append(out, name)
			}
			continue
		}
		base, suffix := m[1], m[2]
		cur, ok := picks[base]
		if !ok {
			picks[base] = pick{name: name, suffix: suffix}
			order = append(order, base)
			continue
		}
		if better(suffix, cur.suffix) {
			picks[base] = pick{name: name, suffix: suffix}
		}
	}

	for _, base := range order {
		out = append(out, picks[base].name)
	}
	return out
}

// better reports whether a later variant with suffix next replaces the current one.
func better(next, cur string) bool {
	switch {
	case cur == "":
		return false
	case next == "":
		return true
	case strings.EqualFold(next, "t"):
		return false
	default:
		return true
	}
}
