package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"vital-monitor/internal/models"
)

// RedisSink publishes alerts to a Redis stream and refreshes a
// latest-alert cache key consumers can poll for display.
type RedisSink struct {
	client   *redis.Client
	stream   string
	cacheKey string
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewRedisSink creates a redis stream sink.
func NewRedisSink(client *redis.Client, stream, cacheKey string, cacheTTL time.Duration, logger *zap.Logger) *RedisSink {
	return &RedisSink{
		client:   client,
		stream:   stream,
		cacheKey: cacheKey,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

func (s *RedisSink) Name() string {
	return "redis"
}

// Notify appends the alert to the stream via XADD, then updates the cache
// key with TTL.
func (s *RedisSink) Notify(ctx context.Context, alert models.Alert) error {
	jsonData, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	id, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"data":      string(jsonData),
			"timestamp": alert.Timestamp.Unix(),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish alert to stream: %w", err)
	}

	if err := s.client.Set(ctx, s.cacheKey, jsonData, s.cacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set alert cache: %w", err)
	}

	s.logger.Debug("Alert published to redis",
		zap.String("stream", s.stream),
		zap.String("stream_id", id),
		zap.String("alert_id", alert.AlertID),
	)

	return nil
}
