// Package client — Go SDK галереи с автоматическим восстановлением
// сессии: при истёкшем access-токене клиент сам делает refresh и
// повторяет исходный запрос ровно один раз.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// State — состояние сессии. Переходы:
// Anonymous → Authenticated (логин или бутстрап),
// Authenticated → Refreshing → Authenticated (успешный refresh),
// Refreshing → LoggedOut (refresh отклонён, терминальное).
type State int32

const (
	StateAnonymous State = iota
	StateAuthenticated
	StateRefreshing
	StateLoggedOut
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	case StateLoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// Session — то, что переживает перезапуск процесса: профиль и пара токенов.
type Session struct {
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	Login        string `json:"login,omitempty"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (s Session) Empty() bool {
	return s.AccessToken == "" && s.RefreshToken == ""
}

// SessionStore — место хранения сессии между запусками.
// Аналог localStorage браузерного клиента.
type SessionStore interface {
	Load() (Session, error)
	Save(Session) error
	Clear() error
}

// FileStore хранит сессию JSON-файлом на диске.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load() (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("read session file: %w", err)
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		// Битый файл равнозначен пустой сессии
		return Session{}, nil
	}
	return s, nil
}

func (f *FileStore) Save(s Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	// Токены — секрет, файл только для владельца
	if err := os.WriteFile(f.path, raw, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// MemStore — хранилище в памяти для тестов и одноразовых сценариев.
type MemStore struct {
	mu sync.Mutex
	s  Session
	ok bool
}

func NewMemStore() *MemStore { return &MemStore{} }

func (m *MemStore) Load() (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ok {
		return Session{}, nil
	}
	return m.s, nil
}

func (m *MemStore) Save(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s, m.ok = s, true
	return nil
}

func (m *MemStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s, m.ok = Session{}, false
	return nil
}
