package sqlstore

import (
	"context"
	"fmt"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/maskia-arch/esimconnect/core"
)

const statsSnapshotCacheKey = "esimconnect::stats_snapshot::v1"

// SnapshotSource produces the aggregate stats view; satisfied by
// FulfillmentEventStore.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (core.StatsSnapshot, error)
}

// CachedSnapshotStore serves the operator dashboard's snapshot reads from the
// cache and invalidates after every recorded outcome, so the dashboard never
// aggregates the event table on each refresh.
type CachedSnapshotStore struct {
	base  SnapshotSource
	cache repositorycache.CacheService
}

func NewCachedSnapshotStore(base SnapshotSource, cacheService repositorycache.CacheService) (*CachedSnapshotStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base snapshot source is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: snapshot cache service is required")
	}
	return &CachedSnapshotStore{base: base, cache: cacheService}, nil
}

func (s *CachedSnapshotStore) Snapshot(ctx context.Context) (core.StatsSnapshot, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.StatsSnapshot{}, fmt.Errorf("sqlstore: cached snapshot store is not configured")
	}
	snapshot, err := repositorycache.GetOrFetch(ctx, s.cache, statsSnapshotCacheKey, func(ctx context.Context) (core.StatsSnapshot, error) {
		return s.base.Snapshot(ctx)
	})
	if err != nil {
		return core.StatsSnapshot{}, err
	}
	return cloneSnapshot(snapshot), nil
}

// Invalidate drops the cached snapshot; callers invoke it after appending
// outcome rows.
func (s *CachedSnapshotStore) Invalidate(ctx context.Context) error {
	if s == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached snapshot store is not configured")
	}
	return s.cache.Delete(ctx, statsSnapshotCacheKey)
}

func cloneSnapshot(snapshot core.StatsSnapshot) core.StatsSnapshot {
	cloned := snapshot
	if snapshot.LastOrderAt != nil {
		at := *snapshot.LastOrderAt
		cloned.LastOrderAt = &at
	}
	return cloned
}

// NewSnapshotCacheService builds the cache backing snapshot reads.
func NewSnapshotCacheService(ttl time.Duration) (repositorycache.CacheService, error) {
	config := repositorycache.DefaultConfig()
	if ttl > 0 {
		config.TTL = ttl
	}
	return repositorycache.NewCacheService(config)
}
