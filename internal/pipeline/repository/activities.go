package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Activity is an append-only audit record of everything that happened to an
// opportunity: stage moves, SLA breaches, notes.
type Activity struct {
	ID            uuid.UUID
	OpportunityID uuid.UUID
	TenantID      uuid.UUID
	Type          string
	FromStage     *string
	ToStage       *string
	Actor         string
	Notes         *string
	CreatedAt     time.Time
}

type CreateActivityParams struct {
	OpportunityID uuid.UUID
	TenantID      uuid.UUID
	Type          string
	FromStage     *string
	ToStage       *string
	Actor         string
	Notes         *string
}

const activityColumns = `id, opportunity_id, tenant_id, type, from_stage, to_stage, actor, notes, created_at`

func (r *Repository) CreateActivity(ctx context.Context, params CreateActivityParams) (Activity, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO opportunity_activities (
			opportunity_id, tenant_id, type, from_stage, to_stage, actor, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+activityColumns,
		params.OpportunityID, params.TenantID, params.Type, params.FromStage, params.ToStage, params.Actor, params.Notes,
	)
	var a Activity
	err := row.Scan(&a.ID, &a.OpportunityID, &a.TenantID, &a.Type, &a.FromStage, &a.ToStage, &a.Actor, &a.Notes, &a.CreatedAt)
	return a, err
}

func (r *Repository) ListActivities(ctx context.Context, opportunityID uuid.UUID, tenantID uuid.UUID) ([]Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+activityColumns+`
		FROM opportunity_activities
		WHERE opportunity_id = $1 AND tenant_id = $2
		ORDER BY created_at ASC
	`, opportunityID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]Activity, 0)
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.OpportunityID, &a.TenantID, &a.Type, &a.FromStage, &a.ToStage, &a.Actor, &a.Notes, &a.CreatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				break
			}
			return nil, err
		}
		activities = append(activities, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return activities, nil
}
