package cache

import (
	"context"
	"time"

	"kedaipos/backend/internal/domain"
)

// SummaryCache keeps computed daily summaries hot between report requests.
// A miss is never an error condition; the service recomputes from the log.
type SummaryCache interface {
	Get(ctx context.Context, key string) (*domain.TodaySummary, bool, error)
	Set(ctx context.Context, key string, value *domain.TodaySummary, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type NoopSummaryCache struct{}

func (NoopSummaryCache) Get(_ context.Context, _ string) (*domain.TodaySummary, bool, error) {
	return nil, false, nil
}

func (NoopSummaryCache) Set(_ context.Context, _ string, _ *domain.TodaySummary, _ time.Duration) error {
	return nil
}

func (NoopSummaryCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
