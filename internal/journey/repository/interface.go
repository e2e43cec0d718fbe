package repository

import (
	"context"

	"github.com/google/uuid"
)

// JourneyRepository is the persistence contract consumed by the orchestrator.
type JourneyRepository interface {
	CreateCustomer(ctx context.Context, params CreateCustomerParams) (Customer, error)
	GetCustomerByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (Customer, error)
	CreateSyncLog(ctx context.Context, params CreateSyncLogParams) (SyncLog, error)
	ListSyncLogsByLead(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) ([]SyncLog, error)
}
