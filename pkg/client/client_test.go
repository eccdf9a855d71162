package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeBackend имитирует API: один валидный access, счётчики refresh
// и защищённых вызовов — по ним проверяется схема восстановления.
type fakeBackend struct {
	mu sync.Mutex

	validAccess   string
	validRefresh  string
	refreshBroken bool // refresh всегда отвечает 401

	refreshCalls int
	galleryCalls int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{validAccess: "access-1", validRefresh: "refresh-1"}
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()

		if r.Header.Get("Authorization") == "" {
			writeJSON(w, http.StatusOK, map[string]any{
				"id": "anon-1", "name": "User_0a1b2c3d",
				"accessToken": b.validAccess, "refreshToken": b.validRefresh,
			})
			return
		}
		if !b.authorized(w, r) {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "u-1", "name": "Neo"})
	})

	mux.HandleFunc("POST /user/refresh", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.refreshCalls++

		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		json.NewDecoder(r.Body).Decode(&body)

		if b.refreshBroken || body.RefreshToken != b.validRefresh {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "invalid refresh token", "code": "invalid_refresh_token",
			})
			return
		}

		// Ротация: старая пара перестаёт действовать
		b.validAccess += "+"
		b.validRefresh += "+"
		writeJSON(w, http.StatusOK, map[string]string{
			"accessToken": b.validAccess, "refreshToken": b.validRefresh,
		})
	})

	mux.HandleFunc("POST /gallery", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.galleryCalls++

		if !b.authorized(w, r) {
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": 7, "thumbnail": "t"})
	})

	return mux
}

// authorized проверяет bearer против текущего валидного access и сам
// пишет 401. Всё, что не валидный access, считается истёкшим токеном.
func (b *fakeBackend) authorized(w http.ResponseWriter, r *http.Request) bool {
	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if bearer == b.validAccess {
		return true
	}
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"error": "token expired", "code": "token_expired",
	})
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// newClientWithSession собирает клиента с заранее сохранённой сессией.
func newClientWithSession(t *testing.T, backend *httptest.Server, session Session) (*Client, *MemStore) {
	t.Helper()

	store := NewMemStore()
	if !session.Empty() {
		require.NoError(t, store.Save(session))
	}

	c, err := New(backend.URL, store)
	require.NoError(t, err)
	return c, store
}

func TestFetchUser_AnonymousBootstrap(t *testing.T) {
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	c, store := newClientWithSession(t, srv, Session{})
	require.Equal(t, StateAnonymous, c.State())

	user, err := c.FetchUser(context.Background())
	require.NoError(t, err)
	require.Equal(t, "anon-1", user.ID)
	require.Equal(t, StateAuthenticated, c.State())

	// Сессия долетела до хранилища
	saved, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "access-1", saved.AccessToken)
	require.Equal(t, "refresh-1", saved.RefreshToken)
}

func TestExpiredAccess_SingleRefreshSingleReplay(t *testing.T) {
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	// Сессия с протухшим access, но живым refresh
	c, store := newClientWithSession(t, srv, Session{
		UserID: "u-1", AccessToken: "stale", RefreshToken: "refresh-1",
	})

	g, err := c.CreateGallery(context.Background(), "thumb", nil)
	require.NoError(t, err)
	require.Equal(t, int64(7), g.ID)

	// Ровно один refresh и ровно один повтор исходного запроса
	require.Equal(t, 1, backend.refreshCalls)
	require.Equal(t, 2, backend.galleryCalls)
	require.Equal(t, StateAuthenticated, c.State())

	// Хранилище получило ротированную пару
	saved, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "access-1+", saved.AccessToken)
	require.Equal(t, "refresh-1+", saved.RefreshToken)
}

func TestDeadSession_ClearedAndLoggedOut(t *testing.T) {
	backend := newFakeBackend()
	backend.refreshBroken = true
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	c, store := newClientWithSession(t, srv, Session{
		UserID: "u-1", AccessToken: "stale", RefreshToken: "dead",
	})

	_, err := c.CreateGallery(context.Background(), "thumb", nil)
	require.ErrorIs(t, err, ErrSessionExpired)
	require.Equal(t, StateLoggedOut, c.State())

	// Хранилище очищено
	saved, loadErr := store.Load()
	require.NoError(t, loadErr)
	require.True(t, saved.Empty())

	// LoggedOut терминален: запросы отклоняются без похода в сеть
	_, err = c.CreateGallery(context.Background(), "thumb", nil)
	require.ErrorIs(t, err, ErrSessionExpired)

	// Явный Logout возвращает в Anonymous, бутстрап снова возможен
	require.NoError(t, c.Logout())
	user, err := c.FetchUser(context.Background())
	require.NoError(t, err)
	require.Equal(t, "anon-1", user.ID)
	require.Equal(t, StateAuthenticated, c.State())
}

func TestNonExpiryError_Passthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "invalid signature", "code": "invalid_token",
		})
	}))
	defer srv.Close()

	c, _ := newClientWithSession(t, srv, Session{
		UserID: "u-1", AccessToken: "forged", RefreshToken: "refresh-1",
	})

	_, err := c.CreateGallery(context.Background(), "thumb", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, "invalid_token", apiErr.Code)
	// Не token_expired — refresh не запускался, сессия живёт
	require.Equal(t, StateAuthenticated, c.State())
}

func TestConcurrentExpiry_CoalescedRefresh(t *testing.T) {
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	c, _ := newClientWithSession(t, srv, Session{
		UserID: "u-1", AccessToken: "stale", RefreshToken: "refresh-1",
	})

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.CreateGallery(context.Background(), "thumb", nil)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "worker %d", i)
	}
	// Все воркеры разделили один refresh
	require.Equal(t, 1, backend.refreshCalls)
}

func TestFileStore_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)

	// Пустой файл — пустая сессия, не ошибка
	s, err := store.Load()
	require.NoError(t, err)
	require.True(t, s.Empty())

	want := Session{
		UserID: "u-1", Name: "Neo", Login: "neo",
		AccessToken: "a", RefreshToken: "r",
	}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, want, got)

	require.NoError(t, store.Clear())
	s, err = store.Load()
	require.NoError(t, err)
	require.True(t, s.Empty())

	// Повторный Clear по отсутствующему файлу безопасен
	require.NoError(t, store.Clear())
}

func TestAPIError_Message(t *testing.T) {
	err := apiError(http.StatusBadRequest, []byte(`{"error":"weak password","code":"weak_password","rules":["minlength"]}`))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "weak_password", apiErr.Code)
	require.Equal(t, []string{"minlength"}, apiErr.Rules)
	require.Contains(t, apiErr.Error(), "weak_password")
}
