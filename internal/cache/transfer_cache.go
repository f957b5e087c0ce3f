package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/dataset-relay/internal/config"
	"github.com/andresuchdata/dataset-relay/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	transferLatestKeyPrefix = "relay:transfer:latest:"
	transferScanBatchSize   = 100
)

// TransferCache keeps the most recent run per competition.
type TransferCache interface {
	GetLatest(ctx context.Context, competition string) (*domain.TransferRun, bool, error)
	SetLatest(ctx context.Context, run *domain.TransferRun) error
	// InvalidateAll drops every cached run and reports how many were removed.
	InvalidateAll(ctx context.Context) (int, error)
	Record(ctx context.Context, outcome domain.Outcome) error
	Close() error
}

type redisTransferCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopTransferCache struct{}

func NewTransferCache(ctx context.Context, cfg config.CacheConfig) (TransferCache, error) {
	if !cfg.Enabled {
		return &noopTransferCache{}, nil
	}

	client, ttl, err := newRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &redisTransferCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopTransferCache() TransferCache {
	return &noopTransferCache{}
}

func (c *redisTransferCache) GetLatest(ctx context.Context, competition string) (*domain.TransferRun, bool, error) {
	payload, err := c.client.Get(ctx, latestKey(competition)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var run domain.TransferRun
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, false, fmt.Errorf("decode transfer cache: %w", err)
	}

	return &run, true, nil
}

func (c *redisTransferCache) SetLatest(ctx context.Context, run *domain.TransferRun) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode transfer cache: %w", err)
	}

	if err := c.client.Set(ctx, latestKey(run.Competition), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisTransferCache) InvalidateAll(ctx context.Context) (int, error) {
	return unlinkKeysWithPrefix(ctx, c.client, transferLatestKeyPrefix, transferScanBatchSize)
}

func (c *redisTransferCache) Record(ctx context.Context, outcome domain.Outcome) error {
	return c.SetLatest(ctx, domain.NewTransferRun(outcome))
}

func (c *redisTransferCache) Close() error {
	return c.client.Close()
}

func (*noopTransferCache) GetLatest(context.Context, string) (*domain.TransferRun, bool, error) {
	return nil, false, nil
}

func (*noopTransferCache) SetLatest(context.Context, *domain.TransferRun) error { return nil }

func (*noopTransferCache) InvalidateAll(context.Context) (int, error) { return 0, nil }

func (*noopTransferCache) Record(context.Context, domain.Outcome) error { return nil }

func (*noopTransferCache) Close() error { return nil }

func latestKey(competition string) string {
	return transferLatestKeyPrefix + strings.ToLower(strings.TrimSpace(competition))
}
