package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrSessionExpired — refresh отклонён сервером, сессия мертва.
// Клиент в состоянии LoggedOut, дальше только новый логин или бутстрап.
var ErrSessionExpired = errors.New("session expired")

// APIError — структурированная ошибка бэкенда: статус и машинный код.
type APIError struct {
	Status  int      `json:"-"`
	Code    string   `json:"code"`
	Message string   `json:"error"`
	Rules   []string `json:"rules,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
}

// User — профиль в ответах API.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Login     string `json:"login,omitempty"`
	Email     string `json:"email,omitempty"`
	Version   int    `json:"version"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type userWithTokens struct {
	User
	tokenPair
}

// Gallery и GalleryPage — записи галереи в ответах API.
type Gallery struct {
	ID        int64             `json:"id"`
	UserID    string            `json:"user_id"`
	Thumbnail string            `json:"thumbnail"`
	Props     map[string]string `json:"props"`
	Likes     []string          `json:"likes"`
	CreatedAt int64             `json:"created_at"`
}

type GalleryPage struct {
	Records    []Gallery `json:"records"`
	Pagination struct {
		Page  int   `json:"page"`
		Limit int   `json:"limit"`
		Total int64 `json:"total"`
		Pages int64 `json:"pages"`
	} `json:"pagination"`
}

// UpdateUserRequest — тело PATCH /user/{id}. Password — текущий пароль,
// NewPassword проходит серверную политику сложности.
type UpdateUserRequest struct {
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Login       string `json:"login,omitempty"`
	Password    string `json:"password,omitempty"`
	NewPassword string `json:"newPassword,omitempty"`
}

// RegisterRequest — тело POST /user.
type RegisterRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Login    string `json:"login,omitempty"`
	Password string `json:"password,omitempty"`
}

// Client — клиент API с восстановлением сессии. Безопасен для
// конкурентного использования: одновременные запросы с истёкшим
// access делят один in-flight refresh.
type Client struct {
	baseURL string
	http    *http.Client
	store   SessionStore
	logger  *zap.Logger

	mu      sync.Mutex
	session Session
	state   State

	// Сериализует refresh: первый вошедший обновляет пару,
	// остальные дожидаются и забирают готовую
	refreshMu sync.Mutex
}

type Option func(*Client)

// WithHTTPClient подменяет транспорт, поверх него всё равно
// навешивается контур надёжности.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func New(baseURL string, store SessionStore, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: baseURL,
		store:   store,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  zap.NewNop(),
		state:   StateAnonymous,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.Transport = newReliableTransport(c.http.Transport)

	session, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	c.session = session
	if !session.Empty() {
		c.state = StateAuthenticated
	}
	return c, nil
}

// State — текущее состояние сессии.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session — копия текущей сессии.
func (c *Client) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// FetchUser возвращает профиль текущего пользователя. Пустая сессия
// бутстрапит анонима: сервер создаёт пользователя и выдаёт пару токенов.
func (c *Client) FetchUser(ctx context.Context) (*User, error) {
	c.mu.Lock()
	empty := c.session.Empty()
	c.mu.Unlock()

	if empty {
		var resp userWithTokens
		if err := c.do(ctx, http.MethodGet, "/user", nil, &resp, false); err != nil {
			return nil, err
		}
		c.adoptSession(resp)
		return &resp.User, nil
	}

	var user User
	if err := c.do(ctx, http.MethodGet, "/user", nil, &user, true); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login аутентифицирует по логину и паролю и сохраняет новую сессию.
func (c *Client) Login(ctx context.Context, login, password string) (*User, error) {
	var resp userWithTokens
	err := c.do(ctx, http.MethodPost, "/user/login",
		map[string]string{"login": login, "password": password}, &resp, false)
	if err != nil {
		return nil, err
	}
	c.adoptSession(resp)
	return &resp.User, nil
}

// Register создаёт пользователя. Сессию не меняет — логин отдельным шагом.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodPost, "/user", req, &user, false); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout стирает сессию. Клиент возвращается в Anonymous и может
// бутстрапнуть нового анонима через FetchUser.
func (c *Client) Logout() error {
	c.mu.Lock()
	c.session = Session{}
	c.state = StateAnonymous
	c.mu.Unlock()
	return c.store.Clear()
}

// UpdateUser — PATCH профиля текущего пользователя.
func (c *Client) UpdateUser(ctx context.Context, req UpdateUserRequest) (*User, error) {
	c.mu.Lock()
	id := c.session.UserID
	c.mu.Unlock()
	if id == "" {
		return nil, ErrSessionExpired
	}

	var user User
	if err := c.do(ctx, http.MethodPatch, "/user/"+id, req, &user, true); err != nil {
		return nil, err
	}
	return &user, nil
}

// Gallery возвращает страницу записей.
func (c *Client) Gallery(ctx context.Context, page, limit int) (*GalleryPage, error) {
	path := "/gallery?page=" + strconv.Itoa(page) + "&limit=" + strconv.Itoa(limit)
	var result GalleryPage
	if err := c.do(ctx, http.MethodGet, path, nil, &result, false); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateGallery публикует снимок фрактала.
func (c *Client) CreateGallery(ctx context.Context, thumbnail string, props map[string]string) (*Gallery, error) {
	var g Gallery
	err := c.do(ctx, http.MethodPost, "/gallery",
		map[string]any{"thumbnail": thumbnail, "props": props}, &g, true)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// LikeGallery ставит или снимает лайк.
func (c *Client) LikeGallery(ctx context.Context, id int64) (*Gallery, error) {
	var g Gallery
	err := c.do(ctx, http.MethodPost,
		"/gallery/"+strconv.FormatInt(id, 10)+"/like", nil, &g, true)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// adoptSession фиксирует новую пару токенов и профиль.
func (c *Client) adoptSession(resp userWithTokens) {
	session := Session{
		UserID:       resp.ID,
		Name:         resp.Name,
		Login:        resp.Login,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}

	c.mu.Lock()
	c.session = session
	c.state = StateAuthenticated
	c.mu.Unlock()

	if err := c.store.Save(session); err != nil {
		c.logger.Warn("save session failed", zap.Error(err))
	}
}

// do — центральный исполнитель запросов. Схема восстановления:
// запрос → 401 token_expired → один refresh (возможно чужой, уже
// идущий) → один повтор. Повторный 401 после повтора отдаётся как есть.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	c.mu.Lock()
	access := c.session.AccessToken
	state := c.state
	c.mu.Unlock()

	if state == StateLoggedOut {
		return ErrSessionExpired
	}

	resp, raw, err := c.exec(ctx, method, path, body, access)
	if err != nil {
		return err
	}

	if authed && resp.StatusCode == http.StatusUnauthorized && isTokenExpired(raw) && access != "" {
		newAccess, refreshErr := c.refreshSession(ctx, access)
		if refreshErr != nil {
			return refreshErr
		}

		c.logger.Debug("access token refreshed, replaying request",
			zap.String("method", method), zap.String("path", path))

		resp, raw, err = c.exec(ctx, method, path, body, newAccess)
		if err != nil {
			return err
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp.StatusCode, raw)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// exec выполняет один HTTP-запрос без какой-либо логики восстановления.
func (c *Client) exec(ctx context.Context, method, path string, body any, access string) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	return resp, raw, nil
}

// refreshSession ротирует пару токенов. Конкурентные вызовы
// сериализуются: пока идёт refresh, остальные ждут на мьютексе, а
// войдя, видят уже сменившийся access и уходят без второго refresh.
func (c *Client) refreshSession(ctx context.Context, usedAccess string) (string, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.mu.Lock()
	current := c.session
	state := c.state
	c.mu.Unlock()

	if state == StateLoggedOut {
		return "", ErrSessionExpired
	}
	if current.AccessToken != usedAccess && current.AccessToken != "" {
		return current.AccessToken, nil
	}
	if current.RefreshToken == "" {
		return "", c.dropSession(errors.New("no refresh token"))
	}

	c.mu.Lock()
	c.state = StateRefreshing
	c.mu.Unlock()

	resp, raw, err := c.exec(ctx, http.MethodPost, "/user/refresh",
		map[string]string{"refreshToken": current.RefreshToken}, "")
	if err != nil {
		// Сетевой сбой не хоронит сессию, refresh можно повторить
		c.mu.Lock()
		c.state = StateAuthenticated
		c.mu.Unlock()
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", c.dropSession(apiError(resp.StatusCode, raw))
	}

	var pair tokenPair
	if err := json.Unmarshal(raw, &pair); err != nil {
		return "", c.dropSession(fmt.Errorf("decode token pair: %w", err))
	}

	c.mu.Lock()
	c.session.AccessToken = pair.AccessToken
	c.session.RefreshToken = pair.RefreshToken
	session := c.session
	c.state = StateAuthenticated
	c.mu.Unlock()

	if err := c.store.Save(session); err != nil {
		c.logger.Warn("save session failed", zap.Error(err))
	}
	return pair.AccessToken, nil
}

// dropSession — терминальный отказ: сессия стирается, клиент в LoggedOut.
func (c *Client) dropSession(cause error) error {
	c.mu.Lock()
	c.session = Session{}
	c.state = StateLoggedOut
	c.mu.Unlock()

	if err := c.store.Clear(); err != nil {
		c.logger.Warn("clear session failed", zap.Error(err))
	}
	c.logger.Info("session expired, logged out", zap.Error(cause))
	return fmt.Errorf("%w: %w", ErrSessionExpired, cause)
}

func isTokenExpired(raw []byte) bool {
	var body struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return false
	}
	return body.Code == "token_expired"
}

func apiError(status int, raw []byte) error {
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "unknown"
		apiErr.Message = string(raw)
	}
	return apiErr
}
