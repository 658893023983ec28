package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zippdf/zippdf/internal/bot"
	"github.com/zippdf/zippdf/internal/config"
	"github.com/zippdf/zippdf/internal/convert"
	"github.com/zippdf/zippdf/internal/database/mock"
	"github.com/zippdf/zippdf/internal/scheduler"
)

type fakeTransport struct {
	updates chan tgbotapi.Update

	mu      sync.Mutex
	sent    []string
	stopped bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{updates: make(chan tgbotapi.Update, 4)}
}

func (f *fakeTransport) Send(_ context.Context, _ int64, _ int, text string, _ ...bot.Button) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return len(f.sent), nil
}

func (f *fakeTransport) Edit(context.Context, int64, int, string) error { return nil }

func (f *fakeTransport) Delete(context.Context, int64, int) error { return nil }

func (f *fakeTransport) AnswerCallback(context.Context, string, string, bool) error { return nil }

func (f *fakeTransport) Fetch(context.Context, convert.Source, string) error {
	return errors.New("not implemented")
}

func (f *fakeTransport) Deliver(context.Context, *convert.Job, string) error {
	return errors.New("not implemented")
}

func (f *fakeTransport) Updates() tgbotapi.UpdatesChannel { return f.updates }

func (f *fakeTransport) StopUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.stopped {
		f.stopped = true
		close(f.updates)
	}
}

func (f *fakeTransport) Username() string { return "zippdf_test_bot" }

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		SweepSchedule: "*/15 * * * *",
		Cache: &config.CacheConfig{
			Type:       config.CacheTypeMemory,
			PendingTTL: time.Hour,
		},
		Conversion: &config.ConversionConfig{
			WorkDir:           t.TempDir(),
			AwaitTimeout:      time.Second,
			MaxConcurrentJobs: 1,
			StaleAfter:        time.Hour,
		},
	}
}

func createTestEngine(t *testing.T, cfg *config.Config, tr *fakeTransport) *Engine {
	t.Helper()
	e, err := New(context.Background(), cfg, mock.NewMockDB(), tr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestNewRegistersJobs(t *testing.T) {
	e := createTestEngine(t, testConfig(t), newFakeTransport())

	jobs := e.GetScheduler().GetJobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, JobPurgePending, jobs[0].ID)
	assert.Equal(t, "every 10m0s", jobs[0].Schedule)
	assert.Equal(t, JobSweepJobDirs, jobs[1].ID)
	assert.Equal(t, "*/15 * * * *", jobs[1].Schedule)

	assert.Equal(t, "zippdf_test_bot", e.BotUsername())
	assert.NotNil(t, e.Tracker())
	assert.Equal(t, "pending", e.PendingStats().CacheName)
	assert.False(t, e.StartedAt().IsZero())
}

func TestNewWithoutSweepSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.SweepSchedule = ""
	e := createTestEngine(t, cfg, newFakeTransport())

	_, ok := e.GetScheduler().GetJob(JobSweepJobDirs)
	assert.False(t, ok)
}

func TestRunHandlesUpdatesUntilCanceled(t *testing.T) {
	tr := newFakeTransport()
	e := createTestEngine(t, testConfig(t), tr)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- e.Run(ctx) }()

	tr.updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: 42},
		Chat:      &tgbotapi.Chat{ID: 42, Type: "private"},
		Text:      "/help",
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Length: 5}},
	}}
	require.Eventually(t, func() bool { return tr.sentCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop")
	}
	assert.True(t, tr.stopped)
}

func TestRunFailsWhenUpdatesClose(t *testing.T) {
	tr := newFakeTransport()
	e := createTestEngine(t, testConfig(t), tr)

	tr.StopUpdates()
	err := e.Run(context.Background())
	require.ErrorIs(t, err, ErrUpdatesClosed)
}

func TestSweepJobRemovesStaleDirs(t *testing.T) {
	cfg := testConfig(t)
	work := cfg.Conversion.WorkDir

	stale := filepath.Join(work, convert.JobDirPrefix+"stale")
	require.NoError(t, os.MkdirAll(stale, 0o750))
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, past, past))

	e := createTestEngine(t, cfg, newFakeTransport())
	e.GetScheduler().Start()

	// the sweep runs once right after start
	require.Eventually(t, func() bool {
		info, ok := e.GetScheduler().GetJob(JobSweepJobDirs)
		return ok && info.Status == scheduler.JobStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)
	assert.NoDirExists(t, stale)
}
