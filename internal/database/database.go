package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// ErrUnknownSetting is returned when a setting field is not one of the known fields.
var ErrUnknownSetting = errors.New("unknown setting")

// DB is the store for authorized users and per-user settings.
type DB interface {
	// Authorization
	AddAuthorizedUser(ctx context.Context, userID int64) error
	RemoveAuthorizedUser(ctx context.Context, userID int64) error
	IsAuthorizedUser(ctx context.Context, userID int64) (bool, error)
	GetAuthorizedUsers(ctx context.Context) ([]AuthorizedUser, error)

	// Preferences
	GetSetting(ctx context.Context, userID int64, field SettingField) (string, error)
	SetSetting(ctx context.Context, userID int64, field SettingField, value string) error
	GetUserSettings(ctx context.Context, userID int64) (*UserSettings, error)

	Close() error
}

var _ DB = (*Client)(nil) // Ensure Client implements DB

// Client wraps the gorm.DB instance.
type Client struct {
	db *gorm.DB
}

// New creates a new database connection and performs migrations.
func New(dbpath string) (*Client, error) {
	if dir := filepath.Dir(dbpath); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbpath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := db.AutoMigrate(
		&AuthorizedUser{},
		&UserSettings{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Client{db: db}, nil
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
