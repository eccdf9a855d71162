// Package memory — in-memory реализация репозиториев. Используется
// юнит-тестами и локальным запуском без базы; контракт (включая
// сигнальные ошибки) совпадает с postgres-реализацией.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xela07ax/fractal-gallery/internal/domain"
	"github.com/xela07ax/fractal-gallery/internal/repository"
)

type UserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[string]*domain.User)}
}

func (r *UserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.Login != nil {
		for _, u := range r.users {
			if u.Login != nil && *u.Login == *user.Login {
				return nil, repository.ErrConflict
			}
		}
	}

	stored := *user
	stored.ID = uuid.NewString()
	stored.Version = 1
	now := time.Now().Unix()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.users[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (r *UserRepo) ByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r *UserRepo) ByLogin(_ context.Context, login string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Login != nil && *u.Login == login {
			out := *u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepo) Update(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[user.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}

	if user.Login != nil {
		for id, u := range r.users {
			if id != user.ID && u.Login != nil && *u.Login == *user.Login {
				return nil, repository.ErrConflict
			}
		}
	}

	updated := *user
	updated.Version = stored.Version + 1
	updated.UpdatedAt = time.Now().Unix()
	r.users[user.ID] = &updated

	out := updated
	return &out, nil
}

func (r *UserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *UserRepo) All(_ context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

type GalleryRepo struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]*domain.Gallery
}

func NewGalleryRepo() *GalleryRepo {
	return &GalleryRepo{nextID: 1, records: make(map[int64]*domain.Gallery)}
}

func (r *GalleryRepo) ByID(_ context.Context, id int64) (*domain.Gallery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *g
	return &out, nil
}

func (r *GalleryRepo) sorted(userID string) []domain.Gallery {
	var out []domain.Gallery
	for _, g := range r.records {
		if userID != "" && g.UserID != userID {
			continue
		}
		out = append(out, *g)
	}
	// свежие первыми, как ORDER BY created_at DESC
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *GalleryRepo) List(_ context.Context, page, limit int, userID string) ([]domain.Gallery, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := r.sorted(userID)
	total := int64(len(all))

	offset := (page - 1) * limit
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *GalleryRepo) Create(_ context.Context, g *domain.Gallery) (*domain.Gallery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *g
	stored.ID = r.nextID
	r.nextID++
	stored.CreatedAt = time.Now().Unix()
	if stored.Props == nil {
		stored.Props = map[string]string{}
	}
	stored.Likes = []string{}

	r.records[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (r *GalleryRepo) Delete(_ context.Context, id int64, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.records[id]
	if !ok || g.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *GalleryRepo) ToggleLike(_ context.Context, id int64, userID string) (*domain.Gallery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	liked := -1
	for i, uid := range g.Likes {
		if uid == userID {
			liked = i
			break
		}
	}
	if liked >= 0 {
		g.Likes = append(g.Likes[:liked], g.Likes[liked+1:]...)
	} else {
		g.Likes = append(g.Likes, userID)
	}

	out := *g
	return &out, nil
}
