package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/zippdf/zippdf/internal/bot"
	"github.com/zippdf/zippdf/internal/cache"
	"github.com/zippdf/zippdf/internal/config"
	"github.com/zippdf/zippdf/internal/convert"
	"github.com/zippdf/zippdf/internal/database"
	"github.com/zippdf/zippdf/internal/scheduler"
	"golang.org/x/sync/errgroup"
)

// ErrUpdatesClosed is returned by Run when the transport stops delivering updates on its own.
var ErrUpdatesClosed = errors.New("update channel closed")

// Transport is the chat transport the engine runs on.
type Transport interface {
	bot.Messenger
	convert.Fetcher
	convert.Deliverer
	Updates() tgbotapi.UpdatesChannel
	StopUpdates()
	Username() string
}

// Engine wires the bot, the conversion orchestrator and the housekeeping jobs together.
type Engine struct {
	cfg       *config.Config
	db        database.DB
	transport Transport
	pending   *cache.PendingCache
	conv      *convert.Orchestrator
	bot       *bot.Bot
	scheduler *scheduler.Scheduler

	startedAt time.Time
}

// New creates a new Engine. The database stays owned by the caller.
func New(ctx context.Context, cfg *config.Config, db database.DB, transport Transport) (*Engine, error) {
	sched, err := scheduler.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	pending, err := cache.NewPendingCache(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to create pending cache: %w", err)
	}

	conv := convert.New(
		convert.ConfigFrom(cfg.Conversion),
		transport,
		transport,
		convert.PoliciesFrom(cfg.Conversion),
	)

	engine := &Engine{
		cfg:       cfg,
		db:        db,
		transport: transport,
		pending:   pending,
		conv:      conv,
		bot:       bot.New(cfg, db, pending, conv, transport),
		scheduler: sched,
		startedAt: time.Now(),
	}

	if err := engine.setupJobs(); err != nil {
		_ = pending.Close()
		return nil, fmt.Errorf("failed to setup jobs: %w", err)
	}

	return engine, nil
}

// Run starts the scheduler and handles updates until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	e.scheduler.Start()

	updates := e.transport.Updates()
	log.Info("Listening for telegram updates", "bot", e.transport.Username())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e.bot.Run(ctx, updates)
		if ctx.Err() == nil {
			return ErrUpdatesClosed
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		e.transport.StopUpdates()
		return nil
	})
	return g.Wait()
}

// Close stops the engine and cleans up resources.
func (e *Engine) Close() error {
	return errors.Join(
		e.scheduler.Stop(),
		e.pending.Close(),
	)
}

// GetScheduler returns the scheduler instance for API access.
func (e *Engine) GetScheduler() *scheduler.Scheduler {
	return e.scheduler
}

// Tracker returns the conversion job tracker.
func (e *Engine) Tracker() *convert.Tracker {
	return e.conv.Tracker()
}

// PendingStats returns the statistics of the pending request cache.
func (e *Engine) PendingStats() *cache.Stats {
	return e.pending.GetStats()
}

// StartedAt returns when the engine was created.
func (e *Engine) StartedAt() time.Time {
	return e.startedAt
}

// BotUsername returns the username of the bot account.
func (e *Engine) BotUsername() string {
	return e.transport.Username()
}
