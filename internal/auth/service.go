// Package auth — ядро аутентификации: выпуск и проверка пар токенов,
// политика паролей, анонимный bootstrap и ротация refresh-токенов.
// Секреты и TTL передаются явно через Config при сборке — внутри
// обработки запросов никакого чтения окружения нет.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/xela07ax/fractal-gallery/internal/domain"
	"github.com/xela07ax/fractal-gallery/internal/repository"
	"github.com/xela07ax/fractal-gallery/internal/token"
)

// Config — иммутабельный срез конфигурации, который нужен ядру.
// Оба секрета обязательны и проверяются на старте процесса.
type Config struct {
	TokenKey   string // секрет access-токенов
	RefreshKey string // секрет refresh-токенов, всегда отличный от TokenKey
	TokenTTL   string // например "1h"
	RefreshTTL string // например "7d"
	BcryptCost int
}

// UserRepo — внешний коллаборатор-хранилище. Реализация отвечает
// за атомарность обновления строки (version = version + 1).
type UserRepo interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	ByID(ctx context.Context, id string) (*domain.User, error)
	ByLogin(ctx context.Context, login string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
}

type Service struct {
	users UserRepo
	codec *token.Codec
	cfg   Config
}

func NewService(users UserRepo, codec *token.Codec, cfg Config) *Service {
	return &Service{users: users, codec: codec, cfg: cfg}
}

// IssueTokens выпускает свежую пару для уже сохранённого пользователя.
// Клейм login добавляется только зарегистрированным.
func (s *Service) IssueTokens(user *domain.User) (domain.TokenPair, error) {
	payload := token.Payload{ID: user.ID}
	if user.Login != nil {
		payload.Login = *user.Login
	}

	access, err := s.codec.Sign(payload, s.cfg.TokenKey, s.cfg.TokenTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.codec.Sign(payload, s.cfg.RefreshKey, s.cfg.RefreshTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// BootstrapAnonymous создаёт пользователя без логина и пароля и сразу
// выдаёт ему пару токенов. Токены выпускаются только после того,
// как запись долетела до хранилища.
func (s *Service) BootstrapAnonymous(ctx context.Context) (*domain.User, domain.TokenPair, error) {
	user, err := s.users.Create(ctx, &domain.User{Name: generatedName()})
	if err != nil {
		return nil, domain.TokenPair{}, fmt.Errorf("create anonymous user: %w", err)
	}

	pair, err := s.IssueTokens(user)
	if err != nil {
		return nil, domain.TokenPair{}, err
	}
	return user, pair, nil
}

// Login проверяет креды и выпускает пару. Причину отказа наружу
// не уточняем — и неизвестный логин, и неверный пароль дают один ответ.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (*domain.User, domain.TokenPair, error) {
	if creds.Login == "" || creds.Password == "" {
		return nil, domain.TokenPair{}, ErrUnauthorized
	}

	user, err := s.users.ByLogin(ctx, creds.Login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.TokenPair{}, ErrUnauthorized
		}
		return nil, domain.TokenPair{}, fmt.Errorf("lookup by login: %w", err)
	}

	if !user.HasPassword() || !checkPassword(user.PasswordHash, creds.Password) {
		return nil, domain.TokenPair{}, ErrUnauthorized
	}

	pair, err := s.IssueTokens(user)
	if err != nil {
		return nil, domain.TokenPair{}, err
	}
	return user, pair, nil
}

// Register создаёт пользователя по DTO. Пароль, когда он есть,
// проходит политику сложности и хэшируется до записи.
func (s *Service) Register(ctx context.Context, dto domain.CreateUserDTO) (*domain.User, error) {
	user := &domain.User{Name: dto.Name}
	if user.Name == "" {
		user.Name = generatedName()
	}
	if dto.Login != "" {
		user.Login = &dto.Login
	}
	if dto.Email != "" {
		user.Email = &dto.Email
	}

	if dto.Password != "" {
		if err := ValidatePassword(dto.Password); err != nil {
			return nil, err
		}
		hash, err := hashPassword(dto.Password, s.cfg.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrLoginTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

// VerifyAccess проверяет access-токен и возвращает его клеймы.
// Ошибки кодека отдаются как есть: транспорт различает Expired
// от остальных по виду ошибки.
func (s *Service) VerifyAccess(raw string) (token.Payload, error) {
	return s.codec.Verify(raw, s.cfg.TokenKey)
}

// UserByAccessToken — проверка токена плюс подъём субъекта из хранилища.
func (s *Service) UserByAccessToken(ctx context.Context, raw string) (*domain.User, error) {
	payload, err := s.VerifyAccess(raw)
	if err != nil {
		return nil, err
	}

	user, err := s.users.ByID(ctx, payload.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup by id: %w", err)
	}
	return user, nil
}

// Update применяет частичное обновление профиля. Смена пароля требует
// два условия: новый пароль проходит политику, а текущий подтверждён
// против сохранённого хэша. Любая мутация двигает version.
func (s *Service) Update(ctx context.Context, id string, dto domain.UpdateUserDTO) (*domain.User, error) {
	if dto.NewPassword != "" {
		if err := ValidatePassword(dto.NewPassword); err != nil {
			return nil, err
		}
	}

	if dto.Login != "" {
		existing, err := s.users.ByLogin(ctx, dto.Login)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("check login uniqueness: %w", err)
		}
		if existing != nil && existing.ID != id {
			return nil, ErrLoginTaken
		}
	}

	user, err := s.users.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup by id: %w", err)
	}

	// У пользователя с паролем любое изменение профиля подтверждается
	// текущим паролем. Хэш остаётся нетронутым при неверном подтверждении.
	if user.HasPassword() && !checkPassword(user.PasswordHash, dto.Password) {
		return nil, ErrUnauthorized
	}

	if dto.Name != "" {
		user.Name = dto.Name
	}
	if dto.Login != "" {
		user.Login = &dto.Login
	}
	if dto.Email != "" {
		user.Email = &dto.Email
	}
	if dto.NewPassword != "" {
		hash, err := hashPassword(dto.NewPassword, s.cfg.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrLoginTaken
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return updated, nil
}

// UpdateByToken — PATCH с bearer-токеном: субъект берётся из клеймов,
// а не из URL.
func (s *Service) UpdateByToken(ctx context.Context, raw string, dto domain.UpdateUserDTO) (*domain.User, error) {
	payload, err := s.VerifyAccess(raw)
	if err != nil {
		return nil, err
	}
	return s.Update(ctx, payload.ID, dto)
}

// generatedName — псевдослучайное имя анонима вида User_3f9c02ab.
func generatedName() string {
	return "User_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
