package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Deal is a closed-won opportunity projected down to what the revenue
// aggregations need.
type Deal struct {
	CustomerID *uuid.UUID
	LeadID     uuid.UUID
	Value      float64
	ClosedAt   time.Time
}

// ListWonDeals returns closed-won deals for a tenant since the cutoff,
// ordered by close time.
func (r *Repository) ListWonDeals(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]Deal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT customer_id, lead_id, COALESCE(actual_value, estimated_value), closed_at
		FROM sales_opportunities
		WHERE tenant_id = $1 AND current_stage = 'closed_won' AND closed_at >= $2
		ORDER BY closed_at ASC
	`, tenantID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deals := make([]Deal, 0)
	for rows.Next() {
		var d Deal
		if err := rows.Scan(&d.CustomerID, &d.LeadID, &d.Value, &d.ClosedAt); err != nil {
			return nil, err
		}
		deals = append(deals, d)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return deals, nil
}

// ListWonDealsByCustomer returns every closed-won deal linked to a customer,
// ordered by close time. Feeds the lifetime value projection.
func (r *Repository) ListWonDealsByCustomer(ctx context.Context, customerID uuid.UUID, tenantID uuid.UUID) ([]Deal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT customer_id, lead_id, COALESCE(actual_value, estimated_value), closed_at
		FROM sales_opportunities
		WHERE tenant_id = $1 AND customer_id = $2 AND current_stage = 'closed_won'
		ORDER BY closed_at ASC
	`, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deals := make([]Deal, 0)
	for rows.Next() {
		var d Deal
		if err := rows.Scan(&d.CustomerID, &d.LeadID, &d.Value, &d.ClosedAt); err != nil {
			return nil, err
		}
		deals = append(deals, d)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return deals, nil
}
