package gallery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/fractal-gallery/internal/repository"
	"github.com/xela07ax/fractal-gallery/internal/repository/memory"
)

func newTestService() *Service {
	// кэш nil — сервис обязан работать и без Redis
	return NewService(memory.NewGalleryRepo(), nil)
}

func TestListPagination(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := svc.Create(ctx, "author-1", "data:image/png;base64,xxx", map[string]string{"zoom": "2"})
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, 1, 10, "")
	require.NoError(t, err)
	assert.Len(t, page.Records, 10)
	assert.Equal(t, int64(25), page.Pagination.Total)
	assert.Equal(t, int64(3), page.Pagination.Pages)

	last, err := svc.List(ctx, 3, 10, "")
	require.NoError(t, err)
	assert.Len(t, last.Records, 5)

	empty, err := svc.List(ctx, 4, 10, "")
	require.NoError(t, err)
	assert.Empty(t, empty.Records)
	assert.NotNil(t, empty.Records)
}

func TestListByAuthor(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "author-1", "thumb-a", nil)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "author-2", "thumb-b", nil)
	require.NoError(t, err)

	page, err := svc.List(ctx, 1, 10, "author-2")
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "author-2", page.Records[0].UserID)
}

func TestToggleLike(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, "author-1", "thumb", nil)
	require.NoError(t, err)

	liked, err := svc.ToggleLike(ctx, created.ID, "fan-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"fan-1"}, liked.Likes)

	// повторный лайк снимает отметку
	unliked, err := svc.ToggleLike(ctx, created.ID, "fan-1")
	require.NoError(t, err)
	assert.Empty(t, unliked.Likes)

	_, err = svc.ToggleLike(ctx, 9999, "fan-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDelete_OwnerOnly(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, "author-1", "thumb", nil)
	require.NoError(t, err)

	// чужую запись удалить нельзя
	err = svc.Delete(ctx, created.ID, "author-2")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, created.ID, "author-1"))
	_, err = svc.ByID(ctx, created.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
