package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingField names a single per-user preference.
// The value doubles as the column name in SQLite and the field name in MongoDB.
type SettingField string

const (
	SettingFormatTemplate  SettingField = "format_template"
	SettingMediaPreference SettingField = "media_preference"
	SettingTitle           SettingField = "title"
	SettingAuthor          SettingField = "author"
	SettingArtist          SettingField = "artist"
	SettingAudio           SettingField = "audio"
	SettingSubtitle        SettingField = "subtitle"
	SettingVideo           SettingField = "video"
)

const (
	DefaultFormatTemplate  = "default_format"
	DefaultMediaPreference = "default"
)

// TagFields are the metadata tags a user can set with a bot command.
var TagFields = []SettingField{
	SettingTitle,
	SettingAuthor,
	SettingArtist,
	SettingAudio,
	SettingSubtitle,
	SettingVideo,
}

var allSettingFields = append([]SettingField{SettingFormatTemplate, SettingMediaPreference}, TagFields...)

// Valid reports whether f is a known setting.
func (f SettingField) Valid() bool {
	return lo.Contains(allSettingFields, f)
}

// Default returns the value reported when the setting was never stored.
func (f SettingField) Default() string {
	switch f {
	case SettingFormatTemplate:
		return DefaultFormatTemplate
	case SettingMediaPreference:
		return DefaultMediaPreference
	default:
		return ""
	}
}

// UserSettings holds all settings specific to a user.
// Unset fields are nil and read back as their default.
type UserSettings struct {
	UserID          int64   `gorm:"primaryKey;autoIncrement:false" bson:"user_id" json:"user_id"`
	FormatTemplate  *string `bson:"format_template,omitempty" json:"format_template,omitempty"`
	MediaPreference *string `bson:"media_preference,omitempty" json:"media_preference,omitempty"`
	Title           *string `bson:"title,omitempty" json:"title,omitempty"`
	Author          *string `bson:"author,omitempty" json:"author,omitempty"`
	Artist          *string `bson:"artist,omitempty" json:"artist,omitempty"`
	Audio           *string `bson:"audio,omitempty" json:"audio,omitempty"`
	Subtitle        *string `bson:"subtitle,omitempty" json:"subtitle,omitempty"`
	Video           *string `bson:"video,omitempty" json:"video,omitempty"`
}

func (s *UserSettings) ptr(field SettingField) **string {
	switch field {
	case SettingFormatTemplate:
		return &s.FormatTemplate
	case SettingMediaPreference:
		return &s.MediaPreference
	case SettingTitle:
		return &s.Title
	case SettingAuthor:
		return &s.Author
	case SettingArtist:
		return &s.Artist
	case SettingAudio:
		return &s.Audio
	case SettingSubtitle:
		return &s.Subtitle
	case SettingVideo:
		return &s.Video
	}
	return nil
}

// Get returns the value of field, or its default when unset.
func (s *UserSettings) Get(field SettingField) string {
	if s == nil {
		return field.Default()
	}
	p := s.ptr(field)
	if p == nil || *p == nil {
		return field.Default()
	}
	return **p
}

// Set stores value in field. Unknown fields are ignored.
func (s *UserSettings) Set(field SettingField, value string) {
	if p := s.ptr(field); p != nil {
		*p = lo.ToPtr(value)
	}
}

// WithDefaults returns a copy with every unset field filled with its default.
func (s *UserSettings) WithDefaults() *UserSettings {
	out := &UserSettings{}
	if s != nil {
		out.UserID = s.UserID
	}
	for _, f := range allSettingFields {
		out.Set(f, s.Get(f))
	}
	return out
}

func (c *Client) GetSetting(ctx context.Context, userID int64, field SettingField) (string, error) {
	if !field.Valid() {
		return "", fmt.Errorf("%w: %s", ErrUnknownSetting, field)
	}
	settings, err := c.getUserSettings(ctx, userID)
	if err != nil {
		return "", err
	}
	return settings.Get(field), nil
}

func (c *Client) SetSetting(ctx context.Context, userID int64, field SettingField, value string) error {
	if !field.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, field)
	}
	settings := UserSettings{UserID: userID}
	settings.Set(field, value)

	// only the given column is touched on an existing row
	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{string(field)}),
	}).Create(&settings).Error
	if err != nil {
		log.Error("failed to set user setting", "user_id", userID, "field", field, "error", err)
		return err
	}
	return nil
}

func (c *Client) GetUserSettings(ctx context.Context, userID int64) (*UserSettings, error) {
	settings, err := c.getUserSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := settings.WithDefaults()
	out.UserID = userID
	return out, nil
}

// getUserSettings returns the stored record, or nil when the user has none.
func (c *Client) getUserSettings(ctx context.Context, userID int64) (*UserSettings, error) {
	var settings UserSettings
	if err := c.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		log.Error("failed to get user settings", "user_id", userID, "error", err)
		return nil, err
	}
	return &settings, nil
}
