package convert

import (
	"archive/zip"
	"context"
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zippdf/zippdf/internal/archive"
	"github.com/zippdf/zippdf/internal/pdf"
	"github.com/zippdf/zippdf/internal/policy"
)

type recordingDeliverer struct {
	mu    sync.Mutex
	err   error
	pages int
	dims  [][2]float64
	jobs  []*Job
	names []string
}

func (d *recordingDeliverer) Deliver(_ context.Context, job *Job, pdfPath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	n, err := api.PageCountFile(pdfPath)
	if err != nil {
		return err
	}
	dims, err := api.PageDimsFile(pdfPath)
	if err != nil {
		return err
	}
	d.pages = n
	for _, dim := range dims {
		d.dims = append(d.dims, [2]float64{dim.Width, dim.Height})
	}
	d.jobs = append(d.jobs, job)
	d.names = append(d.names, filepath.Base(pdfPath))
	return nil
}

type failingFetcher struct{ err error }

func (f failingFetcher) Fetch(context.Context, Source, string) error { return f.err }

type stageRecorder struct {
	mu     sync.Mutex
	stages []Stage
}

func (r *stageRecorder) OnStage(_ context.Context, _ *Job, stage Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

// zipEntries maps entry names to either a png size or raw content.
type zipEntry struct {
	name string
	w, h int
	raw  string
}

func buildZip(t *testing.T, entries ...zipEntry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "photos.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		if e.raw != "" || e.w == 0 {
			_, err = w.Write([]byte(e.raw))
			require.NoError(t, err)
			continue
		}
		require.NoError(t, png.Encode(w, imaging.New(e.w, e.h, color.NRGBA{G: 128, A: 255})))
	}
	require.NoError(t, zw.Close())
	return path
}

func newTestOrchestrator(t *testing.T, f Fetcher, d Deliverer, policies *policy.Engine) (*Orchestrator, string) {
	t.Helper()
	work := t.TempDir()
	return New(Config{WorkDir: work, MaxConcurrentJobs: 2}, f, d, policies), work
}

func assertNoJobDirs(t *testing.T, work string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(work, JobDirPrefix+"*"))
	require.NoError(t, err)
	assert.Empty(t, matches, "job directories must be removed")
}

func TestRunSuccess(t *testing.T) {
	src := buildZip(t,
		zipEntry{name: "10.png", w: 10, h: 11},
		zipEntry{name: "2.png", w: 20, h: 21},
		zipEntry{name: "1.png", w: 30, h: 31},
		zipEntry{name: "1t.png", w: 5, h: 5},
		zipEntry{name: "notes.txt", raw: "hello"},
	)
	d := &recordingDeliverer{}
	o, work := newTestOrchestrator(t, localFetcher{}, d, nil)
	rec := &stageRecorder{}

	job := &Job{UserID: 42, ChatID: 7, Source: Source{FileID: src, FileName: "photos.zip"}}
	res, err := o.Run(context.Background(), job, rec)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Pages)
	assert.NotEmpty(t, res.JobID)

	assert.Equal(t, 3, d.pages)
	assert.Equal(t, [][2]float64{{30, 31}, {20, 21}, {10, 11}}, d.dims)
	assert.Equal(t, []string{"photos.pdf"}, d.names)

	assert.Equal(t, []Stage{
		StageReceived, StageDownload, StageExtract, StageNormalize, StageAssemble, StageUpload, StageDone,
	}, rec.stages)

	assertNoJobDirs(t, work)

	stats := o.Tracker().Stats()
	assert.Equal(t, int64(1), stats.Started)
	assert.Equal(t, int64(1), stats.Succeeded)
	assert.Equal(t, int64(0), stats.Active)
	assert.Equal(t, int64(3), stats.Pages)

	history := o.Tracker().History()
	require.Len(t, history, 1)
	assert.Equal(t, StageDone, history[0].Stage)
	assert.Equal(t, 3, history[0].Pages)
	assert.Empty(t, o.Tracker().Active())
}

func TestRunFailures(t *testing.T) {
	validZip := func(t *testing.T) string { return buildZip(t, zipEntry{name: "1.png", w: 4, h: 4}) }

	tests := []struct {
		name       string
		src        func(t *testing.T) string
		fetcher    Fetcher
		deliverErr error
		policies   *policy.Engine
		size       int64
		wantStage  Stage
		wantReason string
		wantIs     error
	}{
		{
			name:      "download fails",
			src:       validZip,
			fetcher:   failingFetcher{err: errors.New("network down")},
			wantStage: StageDownload,
		},
		{
			name:      "archive too large for policy",
			src:       validZip,
			policies:  policy.NewEngine(policy.NewArchiveSize(10)),
			size:      1000,
			wantStage: StageDownload,
			wantIs:    policy.ErrArchiveTooLarge,
		},
		{
			name: "not a zip",
			src: func(t *testing.T) string {
				p := filepath.Join(t.TempDir(), "broken.zip")
				require.NoError(t, os.WriteFile(p, []byte("garbage"), 0o600))
				return p
			},
			wantStage:  StageExtract,
			wantReason: "invalid archive",
			wantIs:     archive.ErrBadArchive,
		},
		{
			name:       "no images",
			src:        func(t *testing.T) string { return buildZip(t, zipEntry{name: "readme.txt", raw: "hi"}) },
			wantStage:  StageNormalize,
			wantReason: "no images found",
			wantIs:     archive.ErrEmptyArchive,
		},
		{
			name:       "only unnumbered images",
			src:        func(t *testing.T) string { return buildZip(t, zipEntry{name: "cover.png", w: 4, h: 4}) },
			wantStage:  StageNormalize,
			wantReason: "no images found",
			wantIs:     archive.ErrEmptyArchive,
		},
		{
			name:      "corrupt image",
			src:       func(t *testing.T) string { return buildZip(t, zipEntry{name: "1.jpg", raw: "not a jpeg"}) },
			wantStage: StageAssemble,
		},
		{
			name:       "upload fails",
			src:        validZip,
			deliverErr: errors.New("telegram said no"),
			wantStage:  StageUpload,
			wantReason: "telegram said no",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f Fetcher = localFetcher{}
			if tt.fetcher != nil {
				f = tt.fetcher
			}
			d := &recordingDeliverer{err: tt.deliverErr}
			o, work := newTestOrchestrator(t, f, d, tt.policies)

			job := &Job{Source: Source{FileID: tt.src(t), FileName: "input.zip", Size: tt.size}}
			res, err := o.Run(context.Background(), job, nil)
			require.Error(t, err)
			assert.Nil(t, res)

			var stageErr *StageError
			require.True(t, errors.As(err, &stageErr))
			assert.Equal(t, tt.wantStage, stageErr.Stage)
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, stageErr.Reason)
			}
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}

			assertNoJobDirs(t, work)
			stats := o.Tracker().Stats()
			assert.Equal(t, int64(1), stats.Failed)
			assert.Equal(t, int64(1), stats.FailedByStage[tt.wantStage])
			assert.Equal(t, int64(0), stats.Active)
		})
	}
}

func TestRunDecodeErrorIsExposed(t *testing.T) {
	src := buildZip(t, zipEntry{name: "1.png", raw: "broken"})
	o, _ := newTestOrchestrator(t, localFetcher{}, &recordingDeliverer{}, nil)

	_, err := o.Run(context.Background(), &Job{Source: Source{FileID: src, FileName: "a.zip"}}, nil)
	var decodeErr *pdf.DecodeError
	assert.True(t, errors.As(err, &decodeErr))
}

func TestRunCanceled(t *testing.T) {
	src := buildZip(t, zipEntry{name: "1.png", w: 4, h: 4})
	o, work := newTestOrchestrator(t, localFetcher{}, &recordingDeliverer{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Run(ctx, &Job{Source: Source{FileID: src, FileName: "a.zip"}}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assertNoJobDirs(t, work)
}

func TestRunLocal(t *testing.T) {
	src := buildZip(t, zipEntry{name: "1.png", w: 8, h: 9}, zipEntry{name: "2.png", w: 8, h: 9})
	out := filepath.Join(t.TempDir(), "out", "book.pdf")

	res, err := RunLocal(context.Background(), Config{WorkDir: t.TempDir()}, src, out, pdf.Options{Title: "Book"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)

	n, err := api.PageCountFile(out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestJobNames(t *testing.T) {
	tests := []struct {
		fileName string
		want     string
	}{
		{"photos.zip", "photos.pdf"},
		{"My Chapter.ZIP", "My Chapter.pdf"},
		{"../../etc/passwd.zip", "passwd.pdf"},
		{"", "archive.pdf"},
		{"noext", "noext.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.fileName, func(t *testing.T) {
			j := &Job{Source: Source{FileName: tt.fileName}}
			assert.Equal(t, tt.want, j.PDFName())
		})
	}
}

func TestStageErrorMessage(t *testing.T) {
	err := &StageError{Stage: StageExtract, Reason: "invalid archive", Err: archive.ErrBadArchive}
	assert.Equal(t, "extract: invalid archive", err.Error())
	assert.ErrorIs(t, err, archive.ErrBadArchive)

	err = &StageError{Stage: StageAwaitUpload, Reason: "timeout", Err: ErrAwaitTimeout}
	assert.Equal(t, "await-upload: timeout", err.Error())
}
