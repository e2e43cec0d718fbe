package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("follow-up sequence not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Sequence struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	CustomerID uuid.UUID
	Trigger    string
	Draft      string
	Model      string
	Status     string
	CreatedAt  time.Time
}

type CreateParams struct {
	TenantID   uuid.UUID
	CustomerID uuid.UUID
	Trigger    string
	Draft      string
	Model      string
}

func (r *Repository) Create(ctx context.Context, params CreateParams) (Sequence, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO followup_sequences (tenant_id, customer_id, trigger, draft, model, status)
		VALUES ($1, $2, $3, $4, $5, 'active')
		RETURNING id, tenant_id, customer_id, trigger, draft, model, status, created_at
	`, params.TenantID, params.CustomerID, params.Trigger, params.Draft, params.Model)

	var seq Sequence
	err := row.Scan(&seq.ID, &seq.TenantID, &seq.CustomerID, &seq.Trigger, &seq.Draft, &seq.Model, &seq.Status, &seq.CreatedAt)
	if err != nil {
		return Sequence{}, err
	}
	return seq, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (Sequence, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, customer_id, trigger, draft, model, status, created_at
		FROM followup_sequences WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)

	var seq Sequence
	err := row.Scan(&seq.ID, &seq.TenantID, &seq.CustomerID, &seq.Trigger, &seq.Draft, &seq.Model, &seq.Status, &seq.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sequence{}, ErrNotFound
	}
	if err != nil {
		return Sequence{}, err
	}
	return seq, nil
}
