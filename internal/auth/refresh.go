package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/xela07ax/fractal-gallery/internal/domain"
	"github.com/xela07ax/fractal-gallery/internal/repository"
)

// Refresh проверяет refresh-токен и выпускает полностью новую пару —
// ротация: старый refresh после успешного обмена больше не предъявляют.
// Любой отказ кодека сворачивается в ErrInvalidRefreshToken, исходная
// причина сохраняется в цепочке для логов.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*domain.User, domain.TokenPair, error) {
	payload, err := s.codec.Verify(refreshToken, s.cfg.RefreshKey)
	if err != nil {
		return nil, domain.TokenPair{}, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, err)
	}

	// Пользователь мог быть удалён после выпуска токена.
	user, err := s.users.ByID(ctx, payload.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.TokenPair{}, ErrUserNotFound
		}
		return nil, domain.TokenPair{}, fmt.Errorf("lookup by id: %w", err)
	}

	pair, err := s.IssueTokens(user)
	if err != nil {
		return nil, domain.TokenPair{}, err
	}
	return user, pair, nil
}
