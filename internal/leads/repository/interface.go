package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LeadsRepository is the persistence contract consumed by the leads service,
// the scoring engine, and the journey orchestrator.
type LeadsRepository interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (Lead, error)
	ListByStatus(ctx context.Context, tenantID uuid.UUID, status string, limit int) ([]Lead, error)
	ListRecentlyTouched(ctx context.Context, tenantID uuid.UUID, since time.Time, limit int) ([]Lead, error)
	ListTenantsTouchedSince(ctx context.Context, since time.Time) ([]uuid.UUID, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, expectedStatus, newStatus string) (Lead, error)
	UpdateScore(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, score, probability float64) error
	SoftDelete(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error

	CreateInteraction(ctx context.Context, params CreateInteractionParams) (Interaction, error)
	ListInteractions(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) ([]Interaction, error)
	ListDueFollowUps(ctx context.Context, due time.Time, limit int) ([]Interaction, error)
	CompleteFollowUp(ctx context.Context, interactionID uuid.UUID, tenantID uuid.UUID) error
}
