// Package gallery — лента снимков фрактала: страницы, публикация,
// лайки. Авторизация здесь не решается: обработчики передают уже
// проверенный id пользователя из клеймов access-токена.
package gallery

import (
	"context"
	"fmt"

	"github.com/xela07ax/fractal-gallery/internal/domain"
)

// Repo — хранилище записей галереи.
type Repo interface {
	ByID(ctx context.Context, id int64) (*domain.Gallery, error)
	List(ctx context.Context, page, limit int, userID string) ([]domain.Gallery, int64, error)
	Create(ctx context.Context, g *domain.Gallery) (*domain.Gallery, error)
	Delete(ctx context.Context, id int64, userID string) error
	ToggleLike(ctx context.Context, id int64, userID string) (*domain.Gallery, error)
}

type Service struct {
	repo  Repo
	cache *Cache // nil, если Redis не сконфигурирован
}

func NewService(repo Repo, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

func (s *Service) ByID(ctx context.Context, id int64) (*domain.Gallery, error) {
	return s.repo.ByID(ctx, id)
}

// List отдаёт страницу, при возможности из кэша.
func (s *Service) List(ctx context.Context, page, limit int, userID string) (*domain.GalleryPage, error) {
	if cached := s.cache.GetPage(ctx, page, limit, userID); cached != nil {
		return cached, nil
	}

	records, total, err := s.repo.List(ctx, page, limit, userID)
	if err != nil {
		return nil, fmt.Errorf("list gallery: %w", err)
	}
	if records == nil {
		records = []domain.Gallery{}
	}

	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}

	result := &domain.GalleryPage{
		Records: records,
		Pagination: domain.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: pages,
		},
	}

	s.cache.PutPage(ctx, page, limit, userID, result)
	return result, nil
}

func (s *Service) Create(ctx context.Context, userID, thumbnail string, props map[string]string) (*domain.Gallery, error) {
	created, err := s.repo.Create(ctx, &domain.Gallery{
		UserID:    userID,
		Thumbnail: thumbnail,
		Props:     props,
	})
	if err != nil {
		return nil, fmt.Errorf("create gallery record: %w", err)
	}

	s.cache.Invalidate(ctx)
	return created, nil
}

func (s *Service) Delete(ctx context.Context, id int64, userID string) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	return nil
}

func (s *Service) ToggleLike(ctx context.Context, id int64, userID string) (*domain.Gallery, error) {
	g, err := s.repo.ToggleLike(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	return g, nil
}
