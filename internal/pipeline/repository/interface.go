package repository

import (
	"context"

	"github.com/google/uuid"
)

// PipelineRepository is the persistence contract consumed by the pipeline
// service, the prediction engine, and the SLA sweep.
type PipelineRepository interface {
	Create(ctx context.Context, params CreateOpportunityParams) (Opportunity, error)
	GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (Opportunity, error)
	GetByLeadID(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) (Opportunity, error)
	ListByStage(ctx context.Context, tenantID uuid.UUID, stage string, limit int) ([]Opportunity, error)
	ListOpen(ctx context.Context, limit int) ([]Opportunity, error)
	UpdateStage(ctx context.Context, params UpdateStageParams) (Opportunity, error)
	LinkCustomer(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, customerID uuid.UUID) error

	CreateActivity(ctx context.Context, params CreateActivityParams) (Activity, error)
	ListActivities(ctx context.Context, opportunityID uuid.UUID, tenantID uuid.UUID) ([]Activity, error)
}
