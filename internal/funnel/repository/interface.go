package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FunnelRepository is the persistence contract consumed by the funnel service
// and the analytics aggregations.
type FunnelRepository interface {
	Create(ctx context.Context, params CreateParams) (Record, error)
	GetByLeadID(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) (Record, error)
	Update(ctx context.Context, params UpdateParams) (Record, error)
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Record, error)
	ListByTenantSince(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]Record, error)
}
