package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Interaction struct {
	ID               uuid.UUID
	LeadID           uuid.UUID
	TenantID         uuid.UUID
	Type             string
	Direction        string
	Sentiment        *float64
	DurationSeconds  *int
	Notes            *string
	FollowUpRequired bool
	FollowUpAt       *time.Time
	FollowUpDone     bool
	CreatedAt        time.Time
}

type CreateInteractionParams struct {
	LeadID           uuid.UUID
	TenantID         uuid.UUID
	Type             string
	Direction        string
	Sentiment        *float64
	DurationSeconds  *int
	Notes            *string
	FollowUpRequired bool
	FollowUpAt       *time.Time
}

const interactionColumns = `id, lead_id, tenant_id, type, direction, sentiment,
	duration_seconds, notes, follow_up_required, follow_up_at, follow_up_done, created_at`

func scanInteraction(row pgx.Row) (Interaction, error) {
	var in Interaction
	err := row.Scan(
		&in.ID, &in.LeadID, &in.TenantID, &in.Type, &in.Direction, &in.Sentiment,
		&in.DurationSeconds, &in.Notes, &in.FollowUpRequired, &in.FollowUpAt, &in.FollowUpDone, &in.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Interaction{}, ErrNotFound
	}
	return in, err
}

func (r *Repository) CreateInteraction(ctx context.Context, params CreateInteractionParams) (Interaction, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO interactions (
			lead_id, tenant_id, type, direction, sentiment,
			duration_seconds, notes, follow_up_required, follow_up_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+interactionColumns,
		params.LeadID, params.TenantID, params.Type, params.Direction, params.Sentiment,
		params.DurationSeconds, params.Notes, params.FollowUpRequired, params.FollowUpAt,
	)
	return scanInteraction(row)
}

func (r *Repository) ListInteractions(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) ([]Interaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+interactionColumns+`
		FROM interactions
		WHERE lead_id = $1 AND tenant_id = $2
		ORDER BY created_at ASC
	`, leadID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	interactions := make([]Interaction, 0)
	for rows.Next() {
		in, err := scanInteraction(rows)
		if err != nil {
			return nil, err
		}
		interactions = append(interactions, in)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return interactions, nil
}

// ListDueFollowUps returns interactions whose follow-up is due and not yet
// completed, across all tenants. Consumed by the follow-up sweep job.
func (r *Repository) ListDueFollowUps(ctx context.Context, due time.Time, limit int) ([]Interaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+interactionColumns+`
		FROM interactions
		WHERE follow_up_required AND NOT follow_up_done AND follow_up_at <= $1
		ORDER BY follow_up_at ASC
		LIMIT $2
	`, due, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	interactions := make([]Interaction, 0)
	for rows.Next() {
		in, err := scanInteraction(rows)
		if err != nil {
			return nil, err
		}
		interactions = append(interactions, in)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return interactions, nil
}

func (r *Repository) CompleteFollowUp(ctx context.Context, interactionID uuid.UUID, tenantID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE interactions SET follow_up_done = true
		WHERE id = $1 AND tenant_id = $2
	`, interactionID, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
