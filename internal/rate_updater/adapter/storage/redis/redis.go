package redis

import (
	"context"
	"log/slog"

	"github.com/langowen/ratepresence/internal/entities"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const lastLabelKey = "rate:last_label"

type Storage struct {
	rdb     redis.UniversalClient
	channel string
}

func NewStorage(client redis.UniversalClient, channel string) *Storage {
	return &Storage{
		rdb:     client,
		channel: channel,
	}
}

func InitStorage(ctx context.Context, options *redis.Options, channel string) (*Storage, error) {
	const op = "storage.redis.InitStorage"

	redisClient := redis.NewClient(options)

	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		_ = redisClient.Close()
		return nil, errors.Wrap(err, op)
	}

	storage := NewStorage(redisClient, channel)

	return storage, nil
}

// Publish keeps the label under a well-known key and announces it on the channel.
func (s *Storage) Publish(ctx context.Context, label string) error {
	const op = "storage.redis.Publish"

	if err := s.rdb.Set(ctx, lastLabelKey, label, 0).Err(); err != nil {
		return errors.Wrap(entities.Mark(entities.ErrPublish, err), op)
	}

	receivers, err := s.rdb.Publish(ctx, s.channel, label).Result()
	if err != nil {
		return errors.Wrap(entities.Mark(entities.ErrPublish, err), op)
	}

	slog.Debug("label announced", "channel", s.channel, "receivers", receivers)

	return nil
}

func (s *Storage) Close() error {
	return s.rdb.Close()
}
