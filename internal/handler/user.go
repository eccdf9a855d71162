package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xela07ax/fractal-gallery/internal/auth"
	"github.com/xela07ax/fractal-gallery/internal/domain"
	"github.com/xela07ax/fractal-gallery/internal/repository"
)

// UserService — срез auth.Service, нужный HTTP-слою.
// Интерфейс здесь, чтобы тесты обработчиков не тянули bcrypt и БД.
type UserService interface {
	BootstrapAnonymous(ctx context.Context) (*domain.User, domain.TokenPair, error)
	Login(ctx context.Context, creds domain.Credentials) (*domain.User, domain.TokenPair, error)
	Register(ctx context.Context, dto domain.CreateUserDTO) (*domain.User, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.User, domain.TokenPair, error)
	UserByAccessToken(ctx context.Context, raw string) (*domain.User, error)
	Update(ctx context.Context, id string, dto domain.UpdateUserDTO) (*domain.User, error)
	UpdateByToken(ctx context.Context, raw string, dto domain.UpdateUserDTO) (*domain.User, error)
}

// UserRepo — прямой доступ к хранилищу для ручек, которым сервис
// не нужен: чтение профиля по id и dev-операции.
type UserRepo interface {
	ByID(ctx context.Context, id string) (*domain.User, error)
	All(ctx context.Context) ([]domain.User, error)
	Delete(ctx context.Context, id string) error
}

type UserHandler struct {
	svc     UserService
	repo    UserRepo
	logger  *zap.Logger
	devMode bool
}

func NewUserHandler(svc UserService, repo UserRepo, logger *zap.Logger, devMode bool) *UserHandler {
	return &UserHandler{svc: svc, repo: repo, logger: logger, devMode: devMode}
}

// userWithTokens — ответ тех ручек, которые выдают пару токенов вместе
// с профилем (бутстрап анонима, логин).
type userWithTokens struct {
	*domain.User
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Me обслуживает GET /user: без заголовка — создаётся анонимный
// пользователь и выдаётся пара токенов, с заголовком — профиль по access.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") == "" {
		user, pair, err := h.svc.BootstrapAnonymous(r.Context())
		if err != nil {
			h.logger.Error("anonymous bootstrap failed", zap.Error(err))
			respondAuthError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, userWithTokens{
			User:         user,
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		})
		return
	}

	raw, err := auth.BearerToken(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, auth.CodeUnauthorized, err.Error())
		return
	}

	user, err := h.svc.UserByAccessToken(r.Context(), raw)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// Login обслуживает POST /user/login.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondError(w, http.StatusBadRequest, auth.CodeBadRequest, "invalid request body")
		return
	}

	user, pair, err := h.svc.Login(r.Context(), creds)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, userWithTokens{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Create обслуживает POST /user. Пустое тело допустимо — получится аноним.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var dto domain.CreateUserDTO
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			respondError(w, http.StatusBadRequest, auth.CodeBadRequest, "invalid request body")
			return
		}
	}

	user, err := h.svc.Register(r.Context(), dto)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

// Refresh обслуживает POST /user/refresh: ротация пары по refresh-токену.
func (h *UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RefreshToken == "" {
		respondError(w, http.StatusBadRequest, auth.CodeBadRequest, "refresh token is required")
		return
	}

	_, pair, err := h.svc.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		h.logger.Warn("refresh rejected", zap.Error(err))
		respondAuthError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pair)
}

// Update обслуживает PATCH /user/{id}. Два режима, как в исходном API:
// с bearer-токеном id берётся из клеймов, без токена — легаси-режим
// с подтверждением текущим паролем в теле.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var dto domain.UpdateUserDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		respondError(w, http.StatusBadRequest, auth.CodeBadRequest, "invalid request body")
		return
	}

	var (
		user *domain.User
		err  error
	)
	if r.Header.Get("Authorization") != "" {
		var raw string
		raw, err = auth.BearerToken(r)
		if err != nil {
			respondError(w, http.StatusUnauthorized, auth.CodeUnauthorized, err.Error())
			return
		}
		user, err = h.svc.UpdateByToken(r.Context(), raw, dto)
	} else {
		user, err = h.svc.Update(r.Context(), chi.URLParam(r, "id"), dto)
	}
	if err != nil {
		respondAuthError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// FindOne обслуживает GET /user/{id}.
func (h *UserHandler) FindOne(w http.ResponseWriter, r *http.Request) {
	user, err := h.repo.ByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, auth.CodeNotFound, "user not found")
			return
		}
		h.logger.Error("find user failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, auth.CodeInternal, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// All обслуживает GET /user/all — только в dev-режиме.
func (h *UserHandler) All(w http.ResponseWriter, r *http.Request) {
	if !h.devMode {
		respondError(w, http.StatusForbidden, auth.CodeUnauthorized, "dev mode only")
		return
	}
	users, err := h.repo.All(r.Context())
	if err != nil {
		h.logger.Error("list users failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, auth.CodeInternal, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// Remove обслуживает DELETE /user/{id} — только в dev-режиме.
func (h *UserHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if !h.devMode {
		respondError(w, http.StatusForbidden, auth.CodeUnauthorized, "dev mode only")
		return
	}
	if err := h.repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, auth.CodeNotFound, "user not found")
			return
		}
		h.logger.Error("delete user failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, auth.CodeInternal, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
