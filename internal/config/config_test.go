package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: " 123:abc "
admin_ids: [1234567890, 1234567890]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, 60, cfg.Telegram.PollTimeout)
	assert.Equal(t, []int64{1234567890}, cfg.AdminIDs)
	assert.True(t, cfg.IsAdmin(1234567890))
	assert.False(t, cfg.IsAdmin(42))

	assert.Equal(t, DatabaseDriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "./data/zippdf.db", cfg.Database.Path)
	assert.Equal(t, CacheTypeMemory, cfg.Cache.Type)
	assert.Equal(t, 24*time.Hour, cfg.Cache.PendingTTL)
	assert.Equal(t, 30*time.Second, cfg.Conversion.AwaitTimeout)
	assert.EqualValues(t, 4, cfg.Conversion.MaxConcurrentJobs)
	assert.EqualValues(t, 20<<20, cfg.Conversion.MaxArchiveSize)
	assert.Equal(t, "*/15 * * * *", cfg.SweepSchedule)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
conversion:
  await_timeout: 10s
  keep_unnumbered: true
cache:
  type: redis
  redis_url: redis://localhost:6379/0
`)
	t.Setenv("ZIPPDF_TELEGRAM_TOKEN", "456:def")
	t.Setenv("ZIPPDF_SUPPORT_CHAT", "@help")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "456:def", cfg.Telegram.Token)
	assert.Equal(t, "@help", cfg.SupportChat)
	assert.Equal(t, 10*time.Second, cfg.Conversion.AwaitTimeout)
	assert.True(t, cfg.Conversion.KeepUnnumbered)
	assert.Equal(t, CacheTypeRedis, cfg.Cache.Type)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing token",
			content: `listen: ":8080"`,
			wantErr: "telegram token is required",
		},
		{
			name: "redis without url",
			content: `
telegram: {token: "1:a"}
cache: {type: redis}
`,
			wantErr: "Redis URL is required",
		},
		{
			name: "bad cron",
			content: `
telegram: {token: "1:a"}
sweep_schedule: "every hour"
`,
			wantErr: "sweep schedule must be a valid cron expression",
		},
		{
			name: "unknown driver",
			content: `
telegram: {token: "1:a"}
database: {driver: postgres}
`,
			wantErr: `unknown database driver "postgres"`,
		},
		{
			name: "mongo without uri",
			content: `
telegram: {token: "1:a"}
database: {driver: mongo, uri: ""}
`,
			wantErr: "database uri is required",
		},
		{
			name: "no concurrency",
			content: `
telegram: {token: "1:a"}
conversion: {max_concurrent_jobs: 0}
`,
			wantErr: "max concurrent jobs must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDatabase(t *testing.T) {
	// no telegram token needed
	path := writeConfig(t, `
database:
  driver: sqlite
  path: /tmp/zippdf-test.db
`)

	db, err := LoadDatabase(path)
	require.NoError(t, err)
	assert.Equal(t, DatabaseDriverSQLite, db.Driver)
	assert.Equal(t, "/tmp/zippdf-test.db", db.Path)
}
