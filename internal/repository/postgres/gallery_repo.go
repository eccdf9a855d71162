package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/fractal-gallery/internal/domain"
	"github.com/xela07ax/fractal-gallery/internal/repository"
)

const galleryColumns = `id, user_id, thumbnail, props, likes, created_at`

type GalleryRepo struct {
	pool *pgxpool.Pool
}

func NewGalleryRepo(pool *pgxpool.Pool) *GalleryRepo {
	return &GalleryRepo{pool: pool}
}

func scanGallery(row pgx.Row) (*domain.Gallery, error) {
	g := &domain.Gallery{}
	err := row.Scan(&g.ID, &g.UserID, &g.Thumbnail, &g.Props, &g.Likes, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return g, nil
}

func (r *GalleryRepo) ByID(ctx context.Context, id int64) (*domain.Gallery, error) {
	g, err := scanGallery(r.pool.QueryRow(ctx,
		`SELECT `+galleryColumns+` FROM gallery WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("postgres: gallery by id: %w", err)
	}
	return g, nil
}

// List возвращает страницу записей (свежие первыми) и общее число строк.
// userID сужает выборку до одного автора.
func (r *GalleryRepo) List(ctx context.Context, page, limit int, userID string) ([]domain.Gallery, int64, error) {
	offset := (page - 1) * limit

	where := ""
	listArgs := []any{limit, offset}
	var countArgs []any
	if userID != "" {
		where = "WHERE user_id = $3"
		listArgs = append(listArgs, userID)
		countArgs = append(countArgs, userID)
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM gallery
		%s
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, galleryColumns, where), listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: list gallery: %w", err)
	}
	defer rows.Close()

	var records []domain.Gallery
	for rows.Next() {
		g, err := scanGallery(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres: scan gallery: %w", err)
		}
		records = append(records, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countWhere := ""
	if userID != "" {
		countWhere = "WHERE user_id = $1"
	}
	var total int64
	if err := r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM gallery %s`, countWhere), countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres: count gallery: %w", err)
	}

	return records, total, nil
}

func (r *GalleryRepo) Create(ctx context.Context, g *domain.Gallery) (*domain.Gallery, error) {
	props := g.Props
	if props == nil {
		props = map[string]string{}
	}

	created, err := scanGallery(r.pool.QueryRow(ctx, `
		INSERT INTO gallery (user_id, thumbnail, props, likes, created_at)
		VALUES ($1, $2, $3, '{}', EXTRACT(EPOCH FROM NOW())::bigint)
		RETURNING `+galleryColumns,
		g.UserID, g.Thumbnail, props))
	if err != nil {
		return nil, fmt.Errorf("postgres: create gallery: %w", err)
	}
	return created, nil
}

// Delete удаляет запись только вместе с проверкой владельца.
func (r *GalleryRepo) Delete(ctx context.Context, id int64, userID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM gallery WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("postgres: delete gallery: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ToggleLike атомарно ставит или снимает лайк одним UPDATE —
// без чтения и гонки между двумя кликами.
func (r *GalleryRepo) ToggleLike(ctx context.Context, id int64, userID string) (*domain.Gallery, error) {
	g, err := scanGallery(r.pool.QueryRow(ctx, `
		UPDATE gallery
		SET likes = CASE
			WHEN $2 = ANY(likes) THEN array_remove(likes, $2)
			ELSE array_append(likes, $2)
		END
		WHERE id = $1
		RETURNING `+galleryColumns,
		id, userID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("postgres: toggle like: %w", err)
	}
	return g, nil
}
