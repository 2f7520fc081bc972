// Package refdata loads and caches the reference data behind the order form:
// categories, warehouses with stock, client firms, and the item register.
package refdata

import (
	"context"
	"time"

	"stockdesk/backend/internal/domain"
)

// Snapshot is one consistent pull of upstream reference data. The order form
// computes eligible items and warehouses against a snapshot, never against
// live upstream calls.
type Snapshot struct {
	Categories []domain.Category  `json:"categories"`
	Warehouses []domain.Warehouse `json:"warehouses"`
	Clients    []domain.Client    `json:"clients"`
	Items      []domain.Item      `json:"items"`
	FetchedAt  time.Time          `json:"fetched_at"`
}

type SnapshotCache interface {
	Get(ctx context.Context, key string) (*Snapshot, bool, error)
	Set(ctx context.Context, key string, value *Snapshot, ttl time.Duration) error
}

type NoopSnapshotCache struct{}

func (NoopSnapshotCache) Get(_ context.Context, _ string) (*Snapshot, bool, error) {
	return nil, false, nil
}

func (NoopSnapshotCache) Set(_ context.Context, _ string, _ *Snapshot, _ time.Duration) error {
	return nil
}
