package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/zippdf/zippdf/internal/archive"
	"github.com/zippdf/zippdf/internal/config"
	"github.com/zippdf/zippdf/internal/pdf"
	"github.com/zippdf/zippdf/internal/policy"
	"golang.org/x/sync/semaphore"
)

// JobDirPrefix is the name prefix of the per-job temporary directories.
const JobDirPrefix = "zippdf-job-"

// Config holds the settings of the orchestrator.
type Config struct {
	// WorkDir is the parent of the job directories. Defaults to os.TempDir().
	WorkDir string
	// MaxExtractedSize caps the uncompressed size of an archive, 0 disables it.
	MaxExtractedSize int64
	// MaxConcurrentJobs bounds parallel jobs. Values below 1 mean 1.
	MaxConcurrentJobs int64
	// KeepUnnumbered keeps images that aren't named like page numbers.
	KeepUnnumbered bool
}

// ConfigFrom builds the orchestrator settings from the application config.
func ConfigFrom(cfg *config.ConversionConfig) Config {
	return Config{
		WorkDir:           cfg.WorkDir,
		MaxExtractedSize:  cfg.MaxExtractedSize,
		MaxConcurrentJobs: cfg.MaxConcurrentJobs,
		KeepUnnumbered:    cfg.KeepUnnumbered,
	}
}

// PoliciesFrom builds the admission policies from the application config.
func PoliciesFrom(cfg *config.ConversionConfig) *policy.Engine {
	return policy.NewEngine(
		policy.NewArchiveSize(cfg.MaxArchiveSize),
		policy.NewDiskSpace(uint64(max(cfg.MinFreeSpace, 0))), //nolint:gosec
	)
}

// Orchestrator runs conversion jobs from download to upload.
// Every job gets its own temporary directory which is removed when the job ends.
type Orchestrator struct {
	cfg       Config
	fetcher   Fetcher
	deliverer Deliverer
	policy    *policy.Engine
	sem       *semaphore.Weighted
	tracker   *Tracker
}

// New creates a new Orchestrator. policies may be nil.
func New(cfg Config, fetcher Fetcher, deliverer Deliverer, policies *policy.Engine) *Orchestrator {
	if cfg.MaxConcurrentJobs < 1 {
		cfg.MaxConcurrentJobs = 1
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	return &Orchestrator{
		cfg:       cfg,
		fetcher:   fetcher,
		deliverer: deliverer,
		policy:    policies,
		sem:       semaphore.NewWeighted(cfg.MaxConcurrentJobs),
		tracker:   NewTracker(),
	}
}

// Tracker returns the job tracker for status reporting.
func (o *Orchestrator) Tracker() *Tracker {
	return o.tracker
}

// WorkDir returns the directory the job directories are created in.
func (o *Orchestrator) WorkDir() string {
	return o.cfg.WorkDir
}

// Run executes job. On failure the returned error is a *StageError.
// obs may be nil.
func (o *Orchestrator) Run(ctx context.Context, job *Job, obs Observer) (*Result, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	logger := log.With("job", job.ID, "user", job.UserID, "file", job.Source.FileName)
	start := time.Now()

	o.tracker.start(job)
	notify := func(stage Stage) {
		o.tracker.stage(job, stage)
		logger.Debug("job stage", "stage", stage)
		if obs != nil {
			obs.OnStage(ctx, job, stage)
		}
	}
	notify(StageReceived)

	pages, err := o.run(ctx, job, notify)
	o.tracker.finish(job, pages, err)
	if err != nil {
		logger.Warn("conversion failed", "error", err, "duration", time.Since(start))
		return nil, err
	}

	notify(StageDone)
	res := &Result{JobID: job.ID, Pages: pages, Duration: time.Since(start)}
	logger.Info("conversion done", "pages", pages, "duration", res.Duration)
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, job *Job, notify func(Stage)) (int, error) {
	if err := o.sem.Acquire(ctx, 1); err != nil {
		return 0, fail(StageReceived, "canceled", err)
	}
	defer o.sem.Release(1)

	if err := o.policy.CheckAll(ctx, policy.Request{
		FileName: job.Source.FileName,
		Size:     job.Source.Size,
		WorkDir:  o.cfg.WorkDir,
	}); err != nil {
		return 0, fail(StageDownload, reason(err), err)
	}

	if err := os.MkdirAll(o.cfg.WorkDir, 0o750); err != nil {
		return 0, fail(StageReceived, "no work directory", err)
	}
	dir, err := os.MkdirTemp(o.cfg.WorkDir, JobDirPrefix+"*")
	if err != nil {
		return 0, fail(StageReceived, "no work directory", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Error("failed to remove job directory", "dir", dir, "error", err)
		}
	}()

	base := job.BaseName()
	job.Dir = dir
	job.ArchivePath = filepath.Join(dir, base+".zip")
	job.ExtractDir = filepath.Join(dir, base+"_extracted")
	job.OutputPath = filepath.Join(dir, job.PDFName())

	notify(StageDownload)
	if err := o.fetcher.Fetch(ctx, job.Source, job.ArchivePath); err != nil {
		return 0, fail(StageDownload, reason(err), err)
	}

	notify(StageExtract)
	if _, err := archive.Extract(ctx, job.ArchivePath, job.ExtractDir, archive.ExtractOptions{
		MaxSize: o.cfg.MaxExtractedSize,
	}); err != nil {
		return 0, fail(StageExtract, extractReason(err), err)
	}

	notify(StageNormalize)
	images, err := archive.Normalize(job.ExtractDir, archive.NormalizeOptions{
		KeepUnnumbered: o.cfg.KeepUnnumbered,
	})
	if err != nil {
		if errors.Is(err, archive.ErrEmptyArchive) {
			return 0, fail(StageNormalize, "no images found", err)
		}
		return 0, fail(StageNormalize, reason(err), err)
	}
	job.Images = images

	notify(StageAssemble)
	res, err := pdf.Assemble(ctx, images, job.OutputPath, pdf.Options{
		Title:   job.Title,
		Author:  job.Author,
		TempDir: dir,
	})
	if err != nil {
		return 0, fail(StageAssemble, reason(err), err)
	}

	notify(StageUpload)
	if err := o.deliverer.Deliver(ctx, job, job.OutputPath); err != nil {
		return 0, fail(StageUpload, reason(err), err)
	}

	return res.Pages, nil
}

func extractReason(err error) string {
	switch {
	case errors.Is(err, archive.ErrTooLarge):
		return "archive too large"
	case errors.Is(err, archive.ErrPathTraversal):
		return "unsafe path in archive"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "invalid archive"
	}
}

func reason(err error) string {
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return err.Error()
}

// RunLocal converts the archive at src without a transport and copies the PDF to out.
func RunLocal(ctx context.Context, cfg Config, src, out string, opts pdf.Options) (*Result, error) {
	info, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", src, err)
	}
	o := New(cfg, localFetcher{}, localDeliverer{out: out}, nil)
	job := &Job{
		Source: Source{FileID: src, FileName: filepath.Base(src), Size: info.Size()},
		Title:  opts.Title,
		Author: opts.Author,
	}
	return o.Run(ctx, job, nil)
}
