package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"peregovorka/internal/models"
)

const snapshotKey = "peregovorka:bookings:snapshot"

// SnapshotCache - короткоживущий кеш снимка таблицы бронирований.
// TTL в единицы секунд срезает повторные чтения таблицы при
// перелистывании расписания. Любая запись обязана вызвать Invalidate.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewSnapshotCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *SnapshotCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &SnapshotCache{client: client, ttl: ttl, logger: logger}
}

// Get возвращает закешированный снимок, если он еще жив.
// Ошибки Redis не фатальны - просто идем читать таблицу.
func (c *SnapshotCache) Get(ctx context.Context) ([]models.Booking, bool) {
	data, err := c.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Msg("snapshot cache read failed")
		}
		return nil, false
	}

	var bookings []models.Booking
	if err := json.Unmarshal(data, &bookings); err != nil {
		c.logger.Warn().Err(err).Msg("snapshot cache decode failed, dropping entry")
		c.Invalidate(ctx)
		return nil, false
	}
	return bookings, true
}

func (c *SnapshotCache) Set(ctx context.Context, bookings []models.Booking) {
	data, err := json.Marshal(bookings)
	if err != nil {
		c.logger.Warn().Err(err).Msg("snapshot cache encode failed")
		return
	}
	if err := c.client.Set(ctx, snapshotKey, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("snapshot cache write failed")
	}
}

// Invalidate сбрасывает снимок сразу после успешной записи таблицы,
// чтобы следующая проверка конфликтов видела свежие данные.
func (c *SnapshotCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, snapshotKey).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("snapshot cache invalidate failed")
	}
}
