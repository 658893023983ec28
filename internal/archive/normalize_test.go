package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(name), 0o600))
	}
}

func baseNames(paths []string) []string {
	return lo.Map(paths, func(p string, _ int) string { return filepath.Base(p) })
}

func TestNaturalLess(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"img2", "img10", true},
		{"img10", "img2", false},
		{"2.jpg", "10.jpg", true},
		{"IMG1", "img2", true},
		{"a", "B", true},
		{"007", "7", false},
		{"7", "007", false},
		{"1a", "1b", true},
		{"1", "1a", true},
		{"99999999999999999999999", "100000000000000000000000", true},
		{"", "a", true},
	}
	for _, tt := range tests {
		t.Run(tt.a+"<"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, NaturalLess(tt.a, tt.b))
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		files   []string
		opts    NormalizeOptions
		want    []string
		wantErr error
	}{
		{
			name:  "numeric order",
			files: []string{"10.jpg", "2.jpg", "1.jpg"},
			want:  []string{"1.jpg", "2.jpg", "10.jpg"},
		},
		{
			name:  "bare name wins over thumbnail",
			files: []string{"1.jpg", "1t.jpg", "2.jpg"},
			want:  []string{"1.jpg", "2.jpg"},
		},
		{
			name:  "bare name wins regardless of order",
			files: []string{"3a.png", "3.png"},
			want:  []string{"3.png"},
		},
		{
			name:  "one survivor per base without bare name",
			files: []string{"4a.jpg", "4b.jpg", "4t.jpg"},
			want:  []string{"4b.jpg"},
		},
		{
			name:  "extension filter is case insensitive",
			files: []string{"1.JPG", "2.Png", "3.txt", "4.pdf", "5.WEBP"},
			want:  []string{"1.JPG", "2.Png", "5.WEBP"},
		},
		{
			name:  "unnumbered names are dropped",
			files: []string{"cover.jpg", "1.jpg", "img2.jpg"},
			want:  []string{"1.jpg"},
		},
		{
			name:  "unnumbered names kept on request",
			files: []string{"img10.jpg", "img2.jpg", "1.jpg"},
			opts:  NormalizeOptions{KeepUnnumbered: true},
			want:  []string{"1.jpg", "img2.jpg", "img10.jpg"},
		},
		{
			name:  "single folder is descended",
			files: []string{"chapter/2.jpg", "chapter/1.jpg", "__MACOSX/._1.jpg"},
			want:  []string{"1.jpg", "2.jpg"},
		},
		{
			name:  "subfolders are not walked when top level has images",
			files: []string{"1.jpg", "extra/2.jpg"},
			want:  []string{"1.jpg"},
		},
		{
			name:    "no images",
			files:   []string{"readme.txt"},
			wantErr: ErrEmptyArchive,
		},
		{
			name:    "only unnumbered images",
			files:   []string{"cover.jpg", "back.png"},
			wantErr: ErrEmptyArchive,
		},
		{
			name:    "empty dir",
			wantErr: ErrEmptyArchive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			touch(t, dir, tt.files...)

			got, err := Normalize(dir, tt.opts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, baseNames(got))
			for _, p := range got {
				assert.FileExists(t, p)
			}
		})
	}
}

func TestNormalizeMissingDir(t *testing.T) {
	_, err := Normalize(filepath.Join(t.TempDir(), "missing"), NormalizeOptions{})
	assert.Error(t, err)
}
