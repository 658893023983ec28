package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zippdf/zippdf/internal/database"
)

var _ database.DB = (*MockDB)(nil)

// MockDB is a mock implementation of database.DB for testing.
type MockDB struct {
	mu sync.RWMutex

	users    map[int64]database.AuthorizedUser
	settings map[int64]*database.UserSettings

	// Error simulation
	AddAuthorizedUserError    error
	RemoveAuthorizedUserError error
	IsAuthorizedUserError     error
	GetAuthorizedUsersError   error
	GetSettingError           error
	SetSettingError           error
	GetUserSettingsError      error

	// Writes counts the store writes.
	Writes int
}

// NewMockDB creates a new MockDB instance.
func NewMockDB() *MockDB {
	return &MockDB{
		users:    make(map[int64]database.AuthorizedUser),
		settings: make(map[int64]*database.UserSettings),
	}
}

// Reset clears all data and errors from the mock database.
func (m *MockDB) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users = make(map[int64]database.AuthorizedUser)
	m.settings = make(map[int64]*database.UserSettings)
	m.Writes = 0

	m.AddAuthorizedUserError = nil
	m.RemoveAuthorizedUserError = nil
	m.IsAuthorizedUserError = nil
	m.GetAuthorizedUsersError = nil
	m.GetSettingError = nil
	m.SetSettingError = nil
	m.GetUserSettingsError = nil
}

func (m *MockDB) AddAuthorizedUser(ctx context.Context, userID int64) error {
	if m.AddAuthorizedUserError != nil {
		return m.AddAuthorizedUserError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Writes++
	if _, ok := m.users[userID]; ok {
		return nil
	}
	m.users[userID] = database.AuthorizedUser{UserID: userID, AddedAt: time.Now().UTC()}
	return nil
}

func (m *MockDB) RemoveAuthorizedUser(ctx context.Context, userID int64) error {
	if m.RemoveAuthorizedUserError != nil {
		return m.RemoveAuthorizedUserError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Writes++
	delete(m.users, userID)
	return nil
}

func (m *MockDB) IsAuthorizedUser(ctx context.Context, userID int64) (bool, error) {
	if m.IsAuthorizedUserError != nil {
		return false, m.IsAuthorizedUserError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.users[userID]
	return ok, nil
}

func (m *MockDB) GetAuthorizedUsers(ctx context.Context) ([]database.AuthorizedUser, error) {
	if m.GetAuthorizedUsersError != nil {
		return nil, m.GetAuthorizedUsersError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]database.AuthorizedUser, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	return users, nil
}

func (m *MockDB) GetSetting(ctx context.Context, userID int64, field database.SettingField) (string, error) {
	if m.GetSettingError != nil {
		return "", m.GetSettingError
	}
	if !field.Valid() {
		return "", fmt.Errorf("%w: %s", database.ErrUnknownSetting, field)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.settings[userID].Get(field), nil
}

func (m *MockDB) SetSetting(ctx context.Context, userID int64, field database.SettingField, value string) error {
	if m.SetSettingError != nil {
		return m.SetSettingError
	}
	if !field.Valid() {
		return fmt.Errorf("%w: %s", database.ErrUnknownSetting, field)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Writes++
	s, ok := m.settings[userID]
	if !ok {
		s = &database.UserSettings{UserID: userID}
		m.settings[userID] = s
	}
	s.Set(field, value)
	return nil
}

func (m *MockDB) GetUserSettings(ctx context.Context, userID int64) (*database.UserSettings, error) {
	if m.GetUserSettingsError != nil {
		return nil, m.GetUserSettingsError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.settings[userID].WithDefaults()
	out.UserID = userID
	return out, nil
}

func (m *MockDB) Close() error {
	return nil
}

// SetAuthorizedUsers seeds the mock with authorized users.
func (m *MockDB) SetAuthorizedUsers(ids ...int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		m.users[id] = database.AuthorizedUser{UserID: id, AddedAt: time.Now().UTC()}
	}
}

// WriteCount returns the number of store writes so far.
func (m *MockDB) WriteCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Writes
}
