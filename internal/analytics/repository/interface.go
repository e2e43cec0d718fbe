package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DealsRepository is the revenue read model consumed by the analytics service.
type DealsRepository interface {
	ListWonDeals(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]Deal, error)
	ListWonDealsByCustomer(ctx context.Context, customerID uuid.UUID, tenantID uuid.UUID) ([]Deal, error)
}
