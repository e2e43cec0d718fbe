package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("opportunity not found")

// ErrStageConflict is returned when a compare-and-swap stage update loses the
// race against a concurrent writer.
var ErrStageConflict = errors.New("opportunity stage changed concurrently")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Opportunity struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	LeadID          uuid.UUID
	CustomerID      *uuid.UUID
	Title           string
	Template        string
	CurrentStage    string
	Probability     float64
	EstimatedValue  float64
	ActualValue     *float64
	OwnerID         *uuid.UUID
	StageEnteredAt  time.Time
	ExpectedCloseAt *time.Time
	ClosedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DaysInCurrentStage measures dwell time in the active stage. It resets on
// every transition because StageEnteredAt is rewritten.
func (o Opportunity) DaysInCurrentStage(now time.Time) float64 {
	return now.Sub(o.StageEnteredAt).Hours() / 24
}

type CreateOpportunityParams struct {
	TenantID        uuid.UUID
	LeadID          uuid.UUID
	Title           string
	Template        string
	CurrentStage    string
	Probability     float64
	EstimatedValue  float64
	OwnerID         *uuid.UUID
	ExpectedCloseAt *time.Time
}

type UpdateStageParams struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	ExpectedStage string
	NewStage      string
	Probability   float64
	ActualValue   *float64
	Terminal      bool
}

const opportunityColumns = `id, tenant_id, lead_id, customer_id, title, template, current_stage,
	probability, estimated_value, actual_value, owner_id,
	stage_entered_at, expected_close_at, closed_at, created_at, updated_at`

func scanOpportunity(row pgx.Row) (Opportunity, error) {
	var opp Opportunity
	err := row.Scan(
		&opp.ID, &opp.TenantID, &opp.LeadID, &opp.CustomerID, &opp.Title, &opp.Template, &opp.CurrentStage,
		&opp.Probability, &opp.EstimatedValue, &opp.ActualValue, &opp.OwnerID,
		&opp.StageEnteredAt, &opp.ExpectedCloseAt, &opp.ClosedAt, &opp.CreatedAt, &opp.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Opportunity{}, ErrNotFound
	}
	return opp, err
}

func (r *Repository) Create(ctx context.Context, params CreateOpportunityParams) (Opportunity, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO sales_opportunities (
			tenant_id, lead_id, title, template, current_stage, probability,
			estimated_value, owner_id, expected_close_at, stage_entered_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		RETURNING `+opportunityColumns,
		params.TenantID, params.LeadID, params.Title, params.Template, params.CurrentStage,
		params.Probability, params.EstimatedValue, params.OwnerID, params.ExpectedCloseAt,
	)
	return scanOpportunity(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (Opportunity, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+opportunityColumns+`
		FROM sales_opportunities WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)
	return scanOpportunity(row)
}

func (r *Repository) GetByLeadID(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) (Opportunity, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+opportunityColumns+`
		FROM sales_opportunities
		WHERE lead_id = $1 AND tenant_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, leadID, tenantID)
	return scanOpportunity(row)
}

func (r *Repository) ListByStage(ctx context.Context, tenantID uuid.UUID, stage string, limit int) ([]Opportunity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+opportunityColumns+`
		FROM sales_opportunities
		WHERE tenant_id = $1 AND current_stage = $2
		ORDER BY stage_entered_at ASC
		LIMIT $3
	`, tenantID, stage, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOpportunities(rows)
}

// ListOpen returns non-terminal opportunities across all tenants, oldest
// stage entry first. Consumed by the SLA sweep and prediction refresh jobs.
func (r *Repository) ListOpen(ctx context.Context, limit int) ([]Opportunity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+opportunityColumns+`
		FROM sales_opportunities
		WHERE current_stage NOT IN ('closed_won', 'closed_lost')
		ORDER BY stage_entered_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOpportunities(rows)
}

func collectOpportunities(rows pgx.Rows) ([]Opportunity, error) {
	opportunities := make([]Opportunity, 0)
	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		opportunities = append(opportunities, opp)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return opportunities, nil
}

// UpdateStage performs the stage transition with a compare-and-swap on
// current_stage. The row is written only when the stage still matches what
// the caller read; otherwise ErrStageConflict is returned so the service can
// re-read and retry.
func (r *Repository) UpdateStage(ctx context.Context, params UpdateStageParams) (Opportunity, error) {
	query := `
		UPDATE sales_opportunities
		SET current_stage = $4, probability = $5, actual_value = COALESCE($6, actual_value),
			stage_entered_at = now(), updated_at = now()`
	if params.Terminal {
		query += `, closed_at = now()`
	}
	query += `
		WHERE id = $1 AND tenant_id = $2 AND current_stage = $3
		RETURNING ` + opportunityColumns

	row := r.pool.QueryRow(ctx, query,
		params.ID, params.TenantID, params.ExpectedStage, params.NewStage, params.Probability, params.ActualValue,
	)
	opp, err := scanOpportunity(row)
	if errors.Is(err, ErrNotFound) {
		if _, getErr := r.GetByID(ctx, params.ID, params.TenantID); getErr == nil {
			return Opportunity{}, ErrStageConflict
		}
		return Opportunity{}, ErrNotFound
	}
	return opp, err
}

// LinkCustomer attaches the customer created at conversion time.
func (r *Repository) LinkCustomer(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, customerID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sales_opportunities SET customer_id = $3, updated_at = now()
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID, customerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
