package gallery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/fractal-gallery/internal/domain"
)

const (
	genKey  = "gallery:gen"
	pageTTL = 5 * time.Minute
)

// Cache — кэш страниц галереи в Redis. Работает по принципу generation key:
// любая мутация двигает gallery:gen, и все старые страницы мгновенно
// перестают находиться, дотлевая по TTL. Кэш строго best-effort —
// ошибка Redis никогда не роняет запрос, источник правды всегда Postgres.
type Cache struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewCache(rdb *redis.Client, logger *zap.Logger) *Cache {
	return &Cache{rdb: rdb, logger: logger.Named("gallery-cache")}
}

func (c *Cache) pageKey(ctx context.Context, page, limit int, userID string) string {
	gen, err := c.rdb.Get(ctx, genKey).Int64()
	if err != nil && err != redis.Nil {
		return ""
	}
	return fmt.Sprintf("gallery:page:%d:%d:%d:%s", gen, page, limit, userID)
}

// GetPage возвращает страницу из кэша; nil-ресивер и любая ошибка — промах.
func (c *Cache) GetPage(ctx context.Context, page, limit int, userID string) *domain.GalleryPage {
	if c == nil {
		return nil
	}

	key := c.pageKey(ctx, page, limit, userID)
	if key == "" {
		return nil
	}

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache get failed", zap.Error(err))
		}
		return nil
	}

	var cached domain.GalleryPage
	if err := json.Unmarshal(raw, &cached); err != nil {
		c.logger.Warn("cache entry corrupted", zap.Error(err))
		return nil
	}
	return &cached
}

func (c *Cache) PutPage(ctx context.Context, page, limit int, userID string, value *domain.GalleryPage) {
	if c == nil {
		return
	}

	key := c.pageKey(ctx, page, limit, userID)
	if key == "" {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, pageTTL).Err(); err != nil {
		c.logger.Warn("cache set failed", zap.Error(err))
	}
}

// Invalidate сбрасывает все страницы одним INCR.
func (c *Cache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.rdb.Incr(ctx, genKey).Err(); err != nil {
		c.logger.Warn("cache invalidate failed", zap.Error(err))
	}
}
