package archive

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type zipEntry struct {
	name   string
	body   string
	method uint16
}

func writeZip(t *testing.T, entries []zipEntry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	w.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())
	for _, e := range entries {
		method := e.method
		if method == 0 && !strings.HasSuffix(e.name, "/") {
			method = zip.Deflate
		}
		fw, err := w.CreateHeader(&zip.FileHeader{Name: e.name, Method: method})
		require.NoError(t, err)
		if e.body != "" {
			_, err = fw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, w.Close())
	return path
}

func TestExtract(t *testing.T) {
	src := writeZip(t, []zipEntry{
		{name: "pages/"},
		{name: "pages/1.jpg", body: "one"},
		{name: "pages/2.jpg", body: "two", method: zip.Store},
		{name: "3.png", body: "three", method: zstd.ZipMethodWinZip},
	})
	dst := filepath.Join(t.TempDir(), "out")

	res, err := Extract(context.Background(), src, dst, ExtractOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Files)
	assert.Equal(t, int64(len("one")+len("two")+len("three")), res.Bytes)

	for name, want := range map[string]string{
		"pages/1.jpg": "one",
		"pages/2.jpg": "two",
		"3.png":       "three",
	} {
		got, err := os.ReadFile(filepath.Join(dst, filepath.FromSlash(name)))
		require.NoError(t, err, name)
		assert.Equal(t, want, string(got), name)
	}
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     func(t *testing.T) string
		opts    ExtractOptions
		wantErr error
	}{
		{
			name: "not a zip",
			src: func(t *testing.T) string {
				p := filepath.Join(t.TempDir(), "fake.zip")
				require.NoError(t, os.WriteFile(p, []byte("definitely not a zip"), 0o600))
				return p
			},
			wantErr: ErrBadArchive,
		},
		{
			name: "parent traversal",
			src: func(t *testing.T) string {
				return writeZip(t, []zipEntry{{name: "../evil.jpg", body: "x"}})
			},
			wantErr: ErrPathTraversal,
		},
		{
			name: "nested traversal",
			src: func(t *testing.T) string {
				return writeZip(t, []zipEntry{{name: "a/../../evil.jpg", body: "x"}})
			},
			wantErr: ErrPathTraversal,
		},
		{
			name: "absolute path",
			src: func(t *testing.T) string {
				return writeZip(t, []zipEntry{{name: "/etc/evil.jpg", body: "x"}})
			},
			wantErr: ErrPathTraversal,
		},
		{
			name: "too large",
			src: func(t *testing.T) string {
				return writeZip(t, []zipEntry{{name: "1.jpg", body: strings.Repeat("a", 1024)}})
			},
			opts:    ExtractOptions{MaxSize: 100},
			wantErr: ErrTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := filepath.Join(t.TempDir(), "out")
			_, err := Extract(context.Background(), tt.src(t), dst, tt.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExtractTraversalWritesNothingOutside(t *testing.T) {
	base := t.TempDir()
	dst := filepath.Join(base, "out")
	src := writeZip(t, []zipEntry{{name: "../evil.jpg", body: "x"}})

	_, err := Extract(context.Background(), src, dst, ExtractOptions{})
	require.ErrorIs(t, err, ErrPathTraversal)

	_, err = os.Stat(filepath.Join(base, "evil.jpg"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractCanceled(t *testing.T) {
	src := writeZip(t, []zipEntry{{name: "1.jpg", body: "x"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Extract(ctx, src, t.TempDir(), ExtractOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
