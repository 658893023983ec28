package scheduler

import (
	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"
)

var _ gocron.Logger = (*logger)(nil)

// logger adapts charmbracelet/log to gocron.Logger.
type logger struct {
	*log.Logger
}

func newLogger() *logger {
	return &logger{Logger: log.Default().WithPrefix("scheduler")}
}

func (l *logger) Debug(msg string, args ...any) { l.Logger.Debug(msg, args...) }

func (l *logger) Error(msg string, args ...any) { l.Logger.Error(msg, args...) }

func (l *logger) Info(msg string, args ...any) { l.Logger.Info(msg, args...) }

func (l *logger) Warn(msg string, args ...any) { l.Logger.Warn(msg, args...) }
