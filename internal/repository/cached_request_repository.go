package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// CacheObserver receives cache hit and miss notifications.
type CacheObserver interface {
	CacheHit(cache string)
	CacheMiss(cache string)
}

const (
	requestCacheName = "request"
	// generationTTL outlives any in-flight read-through.
	generationTTL = 24 * time.Hour
)

// CachedRequestRepository decorates a RequestRepository with a Redis read-through cache on Get.
// Cache failures degrade to the inner repository and are only logged.
// Every write bumps a per-request generation; a read-through only fills the cache when the
// generation it saw before reading is still current, so a slow miss cannot cache a stale document.
type CachedRequestRepository struct {
	RequestRepository
	client   *redis.Client
	ttl      time.Duration
	observer CacheObserver
	logger   *zap.Logger
}

// NewCachedRequestRepository wraps inner. A nil client disables caching.
func NewCachedRequestRepository(inner RequestRepository, client *redis.Client, ttl time.Duration, observer CacheObserver, logger *zap.Logger) *CachedRequestRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedRequestRepository{
		RequestRepository: inner,
		client:            client,
		ttl:               ttl,
		observer:          observer,
		logger:            logger,
	}
}

func requestCacheKey(id string) string {
	return fmt.Sprintf("maintenance:request:%s", id)
}

func requestGenerationKey(id string) string {
	return fmt.Sprintf("maintenance:request:%s:gen", id)
}

func (r *CachedRequestRepository) Get(ctx context.Context, id string) (*domain.MaintenanceRequest, error) {
	if r.client == nil {
		return r.RequestRepository.Get(ctx, id)
	}

	raw, err := r.client.Get(ctx, requestCacheKey(id)).Bytes()
	switch {
	case err == nil:
		var req domain.MaintenanceRequest
		if jsonErr := json.Unmarshal(raw, &req); jsonErr == nil {
			r.hit()
			return &req, nil
		}
		r.logger.Warn("discarding undecodable cache entry", zap.String("request_id", id))
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("request cache read failed", zap.String("request_id", id), zap.Error(err))
	}
	r.miss()

	generation, genErr := r.generation(ctx, r.client, id)
	req, err := r.RequestRepository.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if genErr == nil {
		r.store(ctx, req, generation)
	}
	return req, nil
}

func (r *CachedRequestRepository) CreateWithHistory(ctx context.Context, req *domain.MaintenanceRequest, entry domain.RequestHistory) error {
	if err := r.RequestRepository.CreateWithHistory(ctx, req, entry); err != nil {
		return err
	}
	r.invalidate(ctx, req.ID)
	return nil
}

func (r *CachedRequestRepository) UpdateWithHistory(ctx context.Context, req *domain.MaintenanceRequest, rows []domain.RequestHistory) error {
	r.invalidate(ctx, req.ID)
	if err := r.RequestRepository.UpdateWithHistory(ctx, req, rows); err != nil {
		return err
	}
	r.invalidate(ctx, req.ID)
	return nil
}

func (r *CachedRequestRepository) Delete(ctx context.Context, id string) error {
	r.invalidate(ctx, id)
	return r.RequestRepository.Delete(ctx, id)
}

var errStaleRead = errors.New("request changed during read-through")

// stringGetter is satisfied by both *redis.Client and *redis.Tx.
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *CachedRequestRepository) generation(ctx context.Context, cmd stringGetter, id string) (int64, error) {
	gen, err := cmd.Get(ctx, requestGenerationKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (r *CachedRequestRepository) store(ctx context.Context, req *domain.MaintenanceRequest, generation int64) {
	payload, err := json.Marshal(req)
	if err != nil {
		r.logger.Warn("marshal request for cache", zap.String("request_id", req.ID), zap.Error(err))
		return
	}
	genKey := requestGenerationKey(req.ID)
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := r.generation(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		if current != generation {
			return errStaleRead
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, requestCacheKey(req.ID), payload, r.ttl)
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil:
	case errors.Is(err, errStaleRead), errors.Is(err, redis.TxFailedErr):
		r.logger.Debug("skipping stale cache fill", zap.String("request_id", req.ID))
	default:
		r.logger.Warn("request cache write failed", zap.String("request_id", req.ID), zap.Error(err))
	}
}

func (r *CachedRequestRepository) invalidate(ctx context.Context, id string) {
	if r.client == nil {
		return
	}
	genKey := requestGenerationKey(id)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, requestCacheKey(id))
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		return nil
	})
	if err != nil {
		r.logger.Warn("request cache invalidation failed", zap.String("request_id", id), zap.Error(err))
	}
}

func (r *CachedRequestRepository) hit() {
	if r.observer != nil {
		r.observer.CacheHit(requestCacheName)
	}
}

func (r *CachedRequestRepository) miss() {
	if r.observer != nil {
		r.observer.CacheMiss(requestCacheName)
	}
}
