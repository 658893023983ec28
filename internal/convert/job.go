package convert

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Stage is a step of a conversion job.
type Stage string

const (
	StageReceived    Stage = "received"
	StageAwaitUpload Stage = "await-upload"
	StageDownload    Stage = "download"
	StageExtract     Stage = "extract"
	StageNormalize   Stage = "normalize"
	StageAssemble    Stage = "assemble"
	StageUpload      Stage = "upload"
	StageDone        Stage = "done"
)

// ErrAwaitTimeout is returned when no archive arrived before the deadline.
var ErrAwaitTimeout = errors.New("timeout")

// StageError is the error of a failed job. Reason is short and user facing.
type StageError struct {
	Stage  Stage
	Reason string
	Err    error
}

func (e *StageError) Error() string {
	if e.Err == nil || e.Err.Error() == e.Reason {
		return fmt.Sprintf("%s: %s", e.Stage, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Reason, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func fail(stage Stage, reason string, err error) *StageError {
	return &StageError{Stage: stage, Reason: reason, Err: err}
}

// Source identifies the uploaded archive on the transport.
type Source struct {
	FileID   string
	FileName string
	// Size in bytes as announced by the transport, 0 if unknown.
	Size int64
}

// Job is a single ZIP to PDF conversion.
type Job struct {
	ID      string
	UserID  int64
	ChatID  int64
	ReplyTo int
	Source  Source
	// Title and Author are stamped into the PDF when set.
	Title  string
	Author string

	// set while the job runs, all below Dir
	Dir         string
	ArchivePath string
	ExtractDir  string
	OutputPath  string
	Images      []string
}

// BaseName is the archive name without its extension.
func (j *Job) BaseName() string {
	name := filepath.Base(j.Source.FileName)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "archive"
	}
	return name
}

// PDFName is the file name of the generated document.
func (j *Job) PDFName() string {
	return j.BaseName() + ".pdf"
}

// Fetcher downloads the archive of a job to path.
type Fetcher interface {
	Fetch(ctx context.Context, src Source, path string) error
}

// Deliverer sends the finished PDF back to the requester.
type Deliverer interface {
	Deliver(ctx context.Context, job *Job, pdfPath string) error
}

// Observer is notified about every stage a job enters.
type Observer interface {
	OnStage(ctx context.Context, job *Job, stage Stage)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, job *Job, stage Stage)

func (f ObserverFunc) OnStage(ctx context.Context, job *Job, stage Stage) { f(ctx, job, stage) }

// Result is the outcome of a successful job.
type Result struct {
	JobID    string
	Pages    int
	Duration time.Duration
}
