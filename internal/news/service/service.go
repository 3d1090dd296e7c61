// Package service serves disaster updates with a Redis cache in front of the
// upstream feed.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"reliefhub/internal/news/models"
	platformredis "reliefhub/internal/platform/redis"
	dErrors "reliefhub/pkg/domain-errors"
)

// Provider fetches the current feed from upstream.
type Provider interface {
	Fetch(ctx context.Context) ([]models.Article, error)
}

const cacheKey = "news:articles"

// Service reads articles cache-aside: Redis hit wins, miss falls through to
// the provider and repopulates the cache. A nil Redis client disables
// caching; every read hits the provider.
type Service struct {
	provider Provider
	cache    *platformredis.Client
	ttl      time.Duration
	logger   *slog.Logger
}

func New(provider Provider, cache *platformredis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{
		provider: provider,
		cache:    cache,
		ttl:      ttl,
		logger:   logger,
	}
}

// Latest returns the current disaster updates.
func (s *Service) Latest(ctx context.Context) ([]models.Article, error) {
	if articles, ok := s.fromCache(ctx); ok {
		return articles, nil
	}

	articles, err := s.provider.Fetch(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "news feed unavailable")
	}

	s.toCache(ctx, articles)
	return articles, nil
}

func (s *Service) fromCache(ctx context.Context) ([]models.Article, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.WarnContext(ctx, "news cache read failed", "error", err)
		}
		return nil, false
	}

	var articles []models.Article
	if err := json.Unmarshal(raw, &articles); err != nil {
		s.logger.WarnContext(ctx, "news cache entry corrupt, discarding", "error", err)
		s.cache.Del(ctx, cacheKey)
		return nil, false
	}
	return articles, true
}

func (s *Service) toCache(ctx context.Context, articles []models.Article) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(articles)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey, raw, s.ttl).Err(); err != nil {
		// Cache failures never block the feed.
		s.logger.WarnContext(ctx, "news cache write failed", "error", err)
	}
}
