package refdata

import (
	"context"
	"fmt"
	"log"
	"time"

	"stockdesk/backend/internal/upstream"
)

const snapshotKey = "refdata:snapshot:v1"

// Loader assembles snapshots from the upstream service, short-circuiting
// through the cache. Cache failures degrade to a live fetch and are logged,
// never surfaced.
type Loader struct {
	api   upstream.API
	cache SnapshotCache
	ttl   time.Duration
}

func NewLoader(api upstream.API, cache SnapshotCache, ttl time.Duration) *Loader {
	if cache == nil {
		cache = NoopSnapshotCache{}
	}
	return &Loader{api: api, cache: cache, ttl: ttl}
}

// Load returns the current reference-data snapshot, fetching from upstream on
// a cache miss. The four collections are pulled in one pass so a snapshot is
// internally consistent.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	if cached, ok, err := l.cache.Get(ctx, snapshotKey); err != nil {
		log.Printf("[refdata] cache read failed: %v", err)
	} else if ok {
		return cached, nil
	}

	snapshot, err := l.fetch(ctx)
	if err != nil {
		return nil, err
	}

	if err := l.cache.Set(ctx, snapshotKey, snapshot, l.ttl); err != nil {
		log.Printf("[refdata] cache write failed: %v", err)
	}
	return snapshot, nil
}

// Refresh bypasses the cache and replaces its entry.
func (l *Loader) Refresh(ctx context.Context) (*Snapshot, error) {
	snapshot, err := l.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := l.cache.Set(ctx, snapshotKey, snapshot, l.ttl); err != nil {
		log.Printf("[refdata] cache write failed: %v", err)
	}
	return snapshot, nil
}

func (l *Loader) fetch(ctx context.Context) (*Snapshot, error) {
	categories, err := l.api.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	warehouses, err := l.api.WarehouseDetails(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch warehouses: %w", err)
	}
	clients, err := l.api.Clients(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch clients: %w", err)
	}
	items, err := l.api.InventoryItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch items: %w", err)
	}

	return &Snapshot{
		Categories: categories,
		Warehouses: warehouses,
		Clients:    clients,
		Items:      items,
		FetchedAt:  time.Now().UTC(),
	}, nil
}
