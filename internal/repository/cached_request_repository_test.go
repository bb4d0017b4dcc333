package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/internal/repository/memory"
)

type countingObserver struct {
	hits, misses int
}

func (c *countingObserver) CacheHit(string)  { c.hits++ }
func (c *countingObserver) CacheMiss(string) { c.misses++ }

func newCachedRepo(t *testing.T) (*repository.CachedRequestRepository, *memory.Store, *miniredis.Miniredis, *countingObserver) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := memory.NewStore()
	store.PutRequest(&domain.MaintenanceRequest{
		ID:          "req-1",
		Title:       "Broken light",
		Status:      domain.StatusNew,
		Category:    domain.CategoryElectrical,
		Priority:    domain.PriorityMedium,
		RequesterID: "u1",
		CreatedAt:   time.Now().UTC(),
	})
	observer := &countingObserver{}
	return repository.NewCachedRequestRepository(store.Requests(), client, time.Minute, observer, nil), store, mr, observer
}

func TestCachedGetReadsThrough(t *testing.T) {
	repo, _, mr, observer := newCachedRepo(t)
	ctx := context.Background()

	first, err := repo.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("maintenance:request:req-1"))

	second, err := repo.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, first.Title, second.Title)
	assert.Equal(t, 1, observer.hits)
	assert.Equal(t, 1, observer.misses)
}

func TestCachedUpdateInvalidates(t *testing.T) {
	repo, _, mr, _ := newCachedRepo(t)
	ctx := context.Background()

	req, err := repo.Get(ctx, "req-1")
	require.NoError(t, err)
	req.Title = "Broken lamp"
	require.NoError(t, repo.UpdateWithHistory(ctx, req, nil))
	assert.False(t, mr.Exists("maintenance:request:req-1"))

	fresh, err := repo.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, "Broken lamp", fresh.Title)
}

// racingRequests runs onGet after the inner read, before the decorator fills the cache.
type racingRequests struct {
	repository.RequestRepository
	onGet func()
}

func (r *racingRequests) Get(ctx context.Context, id string) (*domain.MaintenanceRequest, error) {
	req, err := r.RequestRepository.Get(ctx, id)
	if r.onGet != nil {
		hook := r.onGet
		r.onGet = nil
		hook()
	}
	return req, err
}

func TestCachedGetDoesNotCacheDocumentUpdatedMidRead(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	store := memory.NewStore()
	store.PutRequest(&domain.MaintenanceRequest{ID: "req-1", Title: "Broken light", Status: domain.StatusNew, RequesterID: "u1"})
	inner := &racingRequests{RequestRepository: store.Requests()}
	repo := repository.NewCachedRequestRepository(inner, client, time.Minute, nil, nil)

	inner.onGet = func() {
		updated := &domain.MaintenanceRequest{ID: "req-1", Title: "Broken lamp", Status: domain.StatusNew, RequesterID: "u1"}
		require.NoError(t, repo.UpdateWithHistory(ctx, updated, nil))
	}
	stale, err := repo.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, "Broken light", stale.Title)
	assert.False(t, mr.Exists("maintenance:request:req-1"))

	fresh, err := repo.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, "Broken lamp", fresh.Title)
	assert.True(t, mr.Exists("maintenance:request:req-1"))
}

func TestCachedGetSurvivesRedisOutage(t *testing.T) {
	repo, _, mr, _ := newCachedRepo(t)
	mr.Close()

	req, err := repo.Get(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, "Broken light", req.Title)
}

func TestCachedGetMissingRequest(t *testing.T) {
	repo, _, _, _ := newCachedRepo(t)
	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
