package policy

import (
	"context"
	"errors"
)

var (
	// ErrArchiveTooLarge is returned when an upload is bigger than allowed.
	ErrArchiveTooLarge = errors.New("archive too large")
	// ErrLowDiskSpace is returned when the work dir doesn't have enough free space.
	ErrLowDiskSpace = errors.New("not enough free disk space")
)

// Request describes a conversion job before anything is downloaded.
type Request struct {
	FileName string
	// Size is the size announced by the transport. 0 means unknown.
	Size    int64
	WorkDir string
}

// Policy is the interface for all admission policies.
type Policy interface {
	Name() string
	Check(ctx context.Context, req Request) error
}

// Engine is the policy engine that runs all available policies against a request.
type Engine struct {
	policies []Policy
}

// NewEngine creates a new policy engine.
func NewEngine(policies ...Policy) *Engine {
	return &Engine{
		policies: policies,
	}
}

// SetPolicies sets the policies for the engine, replacing any existing ones.
func (e *Engine) SetPolicies(policies ...Policy) {
	e.policies = policies
}

// CheckAll runs every policy and returns the first rejection.
func (e *Engine) CheckAll(ctx context.Context, req Request) error {
	if e == nil {
		return nil
	}
	for _, policy := range e.policies {
		if err := policy.Check(ctx, req); err != nil {
			return err
		}
	}
	return nil
}
