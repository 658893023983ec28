package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "data", "zippdf.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestAuthorizedUsers(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	ok, err := c.IsAuthorizedUser(ctx, 1234567890)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.AddAuthorizedUser(ctx, 1234567890))
	ok, err = c.IsAuthorizedUser(ctx, 1234567890)
	require.NoError(t, err)
	assert.True(t, ok)

	users, err := c.GetAuthorizedUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	first := users[0].AddedAt

	// adding twice is a no-op and keeps the first added_at
	require.NoError(t, c.AddAuthorizedUser(ctx, 1234567890))
	users, err = c.GetAuthorizedUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.True(t, first.Equal(users[0].AddedAt))

	require.NoError(t, c.AddAuthorizedUser(ctx, 9876543210))
	users, err = c.GetAuthorizedUsers(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1234567890, 9876543210}, lo.Map(users, func(u AuthorizedUser, _ int) int64 { return u.UserID }))

	require.NoError(t, c.RemoveAuthorizedUser(ctx, 1234567890))
	ok, err = c.IsAuthorizedUser(ctx, 1234567890)
	require.NoError(t, err)
	assert.False(t, ok)

	// removing an absent user is not an error
	require.NoError(t, c.RemoveAuthorizedUser(ctx, 1234567890))
}

func TestSettingsDefaults(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	tests := []struct {
		field SettingField
		want  string
	}{
		{SettingFormatTemplate, "default_format"},
		{SettingMediaPreference, "default"},
		{SettingTitle, ""},
		{SettingVideo, ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.field), func(t *testing.T) {
			got, err := c.GetSetting(ctx, 42, tt.field)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := c.GetSetting(ctx, 42, SettingField("nope"))
	assert.ErrorIs(t, err, ErrUnknownSetting)
}

func TestSetSettingTouchesOneField(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	require.NoError(t, c.SetSetting(ctx, 42, SettingTitle, "My Book"))
	require.NoError(t, c.SetSetting(ctx, 42, SettingAuthor, "Jane Doe"))
	require.NoError(t, c.SetSetting(ctx, 42, SettingTitle, "My Book, 2nd ed."))

	title, err := c.GetSetting(ctx, 42, SettingTitle)
	require.NoError(t, err)
	assert.Equal(t, "My Book, 2nd ed.", title)

	author, err := c.GetSetting(ctx, 42, SettingAuthor)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", author)

	// unset fields still read their defaults once a record exists
	format, err := c.GetSetting(ctx, 42, SettingFormatTemplate)
	require.NoError(t, err)
	assert.Equal(t, DefaultFormatTemplate, format)

	settings, err := c.GetUserSettings(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), settings.UserID)
	assert.Equal(t, "My Book, 2nd ed.", settings.Get(SettingTitle))
	assert.Equal(t, "Jane Doe", settings.Get(SettingAuthor))
	assert.Equal(t, "", settings.Get(SettingArtist))
	assert.Equal(t, DefaultMediaPreference, settings.Get(SettingMediaPreference))

	// other users are unaffected
	other, err := c.GetUserSettings(ctx, 43)
	require.NoError(t, err)
	assert.Equal(t, "", other.Get(SettingTitle))

	assert.ErrorIs(t, c.SetSetting(ctx, 42, SettingField("nope"), "x"), ErrUnknownSetting)
}

func TestUserSettingsNil(t *testing.T) {
	var s *UserSettings
	assert.Equal(t, DefaultFormatTemplate, s.Get(SettingFormatTemplate))
	assert.Equal(t, "", s.Get(SettingTitle))

	filled := s.WithDefaults()
	require.NotNil(t, filled.FormatTemplate)
	assert.Equal(t, DefaultFormatTemplate, *filled.FormatTemplate)
}
