package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

type CacheType string

const (
	CacheTypeMemory CacheType = "memory"
	CacheTypeRedis  CacheType = "redis"
)

type DatabaseDriver string

const (
	DatabaseDriverMongo  DatabaseDriver = "mongo"
	DatabaseDriverSQLite DatabaseDriver = "sqlite"
)

// Config holds the configuration for the zippdf bot and its dependencies.
type Config struct {
	// Listen is the address the status API listens on. Empty disables the API.
	Listen string `yaml:"listen" mapstructure:"listen"`
	// LogLevel is the default log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	// Telegram holds the bot transport configuration.
	Telegram *TelegramConfig `yaml:"telegram" mapstructure:"telegram"`
	// AdminIDs are the Telegram user IDs allowed to run admin commands.
	AdminIDs []int64 `yaml:"admin_ids" mapstructure:"admin_ids"`
	// SupportChat is the contact shown to users who are not authorized.
	SupportChat string `yaml:"support_chat" mapstructure:"support_chat"`
	// Database holds the database configuration.
	Database *DatabaseConfig `yaml:"database" mapstructure:"database"`
	// Cache holds the pending request cache configuration.
	Cache *CacheConfig `yaml:"cache" mapstructure:"cache"`
	// Conversion holds the ZIP to PDF pipeline configuration.
	Conversion *ConversionConfig `yaml:"conversion" mapstructure:"conversion"`
	// SweepSchedule is the cron schedule for removing orphaned job directories.
	SweepSchedule string `yaml:"sweep_schedule" mapstructure:"sweep_schedule"`
}

// TelegramConfig holds the Telegram bot configuration.
type TelegramConfig struct {
	// Token is the bot token issued by BotFather.
	Token string `yaml:"token" mapstructure:"token"`
	// APIEndpoint overrides the Bot API endpoint, e.g. for a local bot API server.
	APIEndpoint string `yaml:"api_endpoint" mapstructure:"api_endpoint"`
	// PollTimeout is the long polling timeout in seconds.
	PollTimeout int `yaml:"poll_timeout" mapstructure:"poll_timeout"`
	// Debug enables request logging in the Telegram client.
	Debug bool `yaml:"debug" mapstructure:"debug"`
}

// DatabaseConfig holds the database configuration.
type DatabaseConfig struct {
	// Driver selects the backend, "mongo" or "sqlite".
	Driver DatabaseDriver `yaml:"driver" mapstructure:"driver"`
	// URI is the MongoDB connection string.
	URI string `yaml:"uri" mapstructure:"uri"`
	// Name is the MongoDB database name.
	Name string `yaml:"name" mapstructure:"name"`
	// Path is the path to the SQLite database file.
	Path string `yaml:"path" mapstructure:"path"`
}

// CacheConfig holds the configuration for the cache engine.
type CacheConfig struct {
	// Type is the type of cache engine to use (e.g., "memory", "redis").
	Type CacheType `yaml:"type" mapstructure:"type"`
	// RedisURL is the URL for the Redis cache if using Redis.
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
	// PendingTTL is how long a "Zip to PDF" button stays valid.
	PendingTTL time.Duration `yaml:"pending_ttl" mapstructure:"pending_ttl"`
}

// ConversionConfig holds the configuration of the ZIP to PDF pipeline.
type ConversionConfig struct {
	// WorkDir is the parent directory of the per-job temporary directories.
	WorkDir string `yaml:"work_dir" mapstructure:"work_dir"`
	// AwaitTimeout is how long /pdf waits for a ZIP upload.
	AwaitTimeout time.Duration `yaml:"await_timeout" mapstructure:"await_timeout"`
	// MaxArchiveSize is the largest accepted archive in bytes. 0 disables the check.
	MaxArchiveSize int64 `yaml:"max_archive_size" mapstructure:"max_archive_size"`
	// MaxExtractedSize caps the total uncompressed size of an archive in bytes. 0 disables the check.
	MaxExtractedSize int64 `yaml:"max_extracted_size" mapstructure:"max_extracted_size"`
	// MinFreeSpace is the free space in bytes required on the work dir before a job starts. 0 disables the check.
	MinFreeSpace int64 `yaml:"min_free_space" mapstructure:"min_free_space"`
	// MaxConcurrentJobs bounds the number of conversions running at the same time.
	MaxConcurrentJobs int64 `yaml:"max_concurrent_jobs" mapstructure:"max_concurrent_jobs"`
	// KeepUnnumbered keeps images whose names are not purely numeric.
	KeepUnnumbered bool `yaml:"keep_unnumbered" mapstructure:"keep_unnumbered"`
	// StaleAfter is the age after which a leftover job directory is swept.
	StaleAfter time.Duration `yaml:"stale_after" mapstructure:"stale_after"`
}

// IsAdmin reports whether userID is one of the configured admins.
func (c *Config) IsAdmin(userID int64) bool {
	return lo.Contains(c.AdminIDs, userID)
}

// Load reads the configuration from the specified path and returns a Config struct.
// If path is empty, it will use default search paths for config files.
func Load(path string) (*Config, error) {
	v := viper.New()

	// bind some weirdly unsupported nested env vars
	bindNestedEnv(v)

	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("ZIPPDF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var configFileFound bool
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.zippdf")
		v.AddConfigPath("/etc/zippdf")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		configFileFound = true
	}

	if configFileFound {
		log.Debug("Using config file", "file", v.ConfigFileUsed())
		log.Debug("Some environment variables can be set with the ZIPPDF_ prefix to override config file values")
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	sanitizeConfig(&c)

	if err := validateConfig(&c); err != nil {
		return nil, err
	}

	return &c, nil
}

// setDefaults sets default values for the configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", "127.0.0.1:3003")
	v.SetDefault("log_level", "info")
	v.SetDefault("support_chat", "@admin")
	v.SetDefault("sweep_schedule", "*/15 * * * *")

	// Telegram defaults
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.api_endpoint", "")
	v.SetDefault("telegram.poll_timeout", 60)
	v.SetDefault("telegram.debug", false)

	// Database defaults
	v.SetDefault("database.driver", DatabaseDriverSQLite)
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "zippdf")
	v.SetDefault("database.path", "./data/zippdf.db")

	// Cache defaults
	v.SetDefault("cache.type", CacheTypeMemory)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.pending_ttl", 24*time.Hour)

	// Conversion defaults
	v.SetDefault("conversion.work_dir", "")
	v.SetDefault("conversion.await_timeout", 30*time.Second)
	v.SetDefault("conversion.max_archive_size", 20<<20) // the Bot API download limit
	v.SetDefault("conversion.max_extracted_size", 1<<30)
	v.SetDefault("conversion.min_free_space", 256<<20)
	v.SetDefault("conversion.max_concurrent_jobs", 4)
	v.SetDefault("conversion.keep_unnumbered", false)
	v.SetDefault("conversion.stale_after", time.Hour)
}

// admin ids are a list, viper doesn't pick them up from the environment without an explicit binding.
func bindNestedEnv(v *viper.Viper) {
	v.MustBindEnv("admin_ids", "ZIPPDF_ADMIN_IDS")
	v.MustBindEnv("telegram.token", "ZIPPDF_TELEGRAM_TOKEN")
}

func sanitizeConfig(c *Config) {
	c.SupportChat = strings.TrimSpace(c.SupportChat)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.Telegram != nil {
		c.Telegram.Token = strings.TrimSpace(c.Telegram.Token)
	}
	c.AdminIDs = lo.Uniq(c.AdminIDs)
}

// validateConfig validates the configuration.
func validateConfig(c *Config) error {
	if c == nil {
		return fmt.Errorf("missing zippdf config")
	}

	if c.Telegram == nil || c.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}
	if c.Telegram.PollTimeout <= 0 {
		return fmt.Errorf("telegram poll timeout must be greater than 0")
	}

	if len(c.AdminIDs) == 0 {
		log.Warn("no admin ids configured, admin commands will be unavailable")
	}

	if err := validateDatabase(c.Database); err != nil {
		return err
	}

	if c.Cache != nil {
		if c.Cache.Type == "" {
			return fmt.Errorf("cache type is required when cache is enabled")
		}
		if c.Cache.Type == CacheTypeRedis && c.Cache.RedisURL == "" {
			return fmt.Errorf("Redis URL is required when Redis cache is enabled") //nolint:staticcheck
		}
	} else {
		c.Cache = &CacheConfig{
			Type:       CacheTypeMemory,
			PendingTTL: 24 * time.Hour,
		}
	}

	if c.Conversion == nil {
		return fmt.Errorf("missing conversion config")
	}
	if c.Conversion.AwaitTimeout <= 0 {
		return fmt.Errorf("conversion await timeout must be greater than 0")
	}
	if c.Conversion.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("conversion max concurrent jobs must be greater than 0")
	}
	if c.Conversion.MaxArchiveSize < 0 || c.Conversion.MaxExtractedSize < 0 || c.Conversion.MinFreeSpace < 0 {
		return fmt.Errorf("conversion size limits must not be negative")
	}

	if c.SweepSchedule != "" && len(strings.Fields(c.SweepSchedule)) != 5 {
		return fmt.Errorf("sweep schedule must be a valid cron expression with 5 fields (minute hour day month weekday)")
	}

	return nil
}

// LoadDatabase loads only the settings needed to open the database.
// It is used by the maintenance commands that don't talk to Telegram.
func LoadDatabase(path string) (*DatabaseConfig, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ZIPPDF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.zippdf")
		v.AddConfigPath("/etc/zippdf")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateDatabase(c.Database); err != nil {
		return nil, err
	}
	return c.Database, nil
}

func validateDatabase(db *DatabaseConfig) error {
	if db == nil {
		return fmt.Errorf("missing database config")
	}
	switch db.Driver {
	case DatabaseDriverMongo:
		if db.URI == "" {
			return fmt.Errorf("database uri is required for the mongo driver")
		}
		if db.Name == "" {
			return fmt.Errorf("database name is required for the mongo driver")
		}
	case DatabaseDriverSQLite:
		if db.Path == "" {
			return fmt.Errorf("database path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", db.Driver)
	}
	return nil
}
