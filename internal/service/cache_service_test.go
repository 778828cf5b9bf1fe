package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/resource-allocator/pkg/errors"
)

type cacheRepoStub struct {
	values  map[string][]byte
	ttls    map[string]time.Duration
	deleted []string
	getErr  error
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{values: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (r *cacheRepoStub) Get(_ context.Context, key string, dest interface{}) error {
	if r.getErr != nil {
		return r.getErr
	}
	raw, ok := r.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *cacheRepoStub) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.values[key] = raw
	r.ttls[key] = ttl
	return nil
}

func (r *cacheRepoStub) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(r.values, key)
	}
	r.deleted = append(r.deleted, keys...)
	return nil
}

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := newCacheRepoStub()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)

	var out map[string]int
	assert.False(t, svc.Get(context.Background(), "k", &out))

	svc.Set(context.Background(), "k", map[string]int{"a": 1}, 0)
	assert.Equal(t, time.Minute, repo.ttls["k"])
	require.True(t, svc.Get(context.Background(), "k", &out))
	assert.Equal(t, 1, out["a"])

	svc.Invalidate(context.Background(), "k")
	assert.Equal(t, []string{"k"}, repo.deleted)
	assert.False(t, svc.Get(context.Background(), "k", &out))

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(2), snapshot.CacheMisses)
}

func TestCacheServiceDisabledAndFailing(t *testing.T) {
	repo := newCacheRepoStub()
	disabled := NewCacheService(repo, nil, 0, nil, false)
	disabled.Set(context.Background(), "k", 1, time.Second)
	assert.Empty(t, repo.values)
	assert.False(t, disabled.Enabled())

	var nilService *CacheService
	assert.False(t, nilService.Enabled())

	repo.getErr = errors.New("connection refused")
	failing := NewCacheService(repo, nil, 0, nil, true)
	var out int
	assert.False(t, failing.Get(context.Background(), "k", &out))
}
