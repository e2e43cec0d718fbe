package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

// ErrStatusConflict is returned when a compare-and-swap status update loses
// the race against a concurrent writer.
var ErrStatusConflict = errors.New("lead status changed concurrently")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID                    uuid.UUID
	TenantID              uuid.UUID
	FirstName             string
	LastName              string
	Email                 *string
	Phone                 string
	Company               *string
	Channel               string
	Source                *string
	Status                string
	LeadScore             float64
	ConversionProbability float64
	EstimatedValue        *float64
	UTMSource             *string
	UTMMedium             *string
	UTMCampaign           *string
	AssignedAgentID       *uuid.UUID
	CustomerType          string
	Country               *string
	Interests             []string
	TourPreferences       *string
	BudgetRange           *string
	Priority              string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type CreateLeadParams struct {
	TenantID        uuid.UUID
	FirstName       string
	LastName        string
	Email           *string
	Phone           string
	Company         *string
	Channel         string
	Source          *string
	EstimatedValue  *float64
	UTMSource       *string
	UTMMedium       *string
	UTMCampaign     *string
	AssignedAgentID *uuid.UUID
	CustomerType    string
	Country         *string
	Interests       []string
	TourPreferences *string
	BudgetRange     *string
	Priority        string
}

const leadColumns = `id, tenant_id, first_name, last_name, email, phone, company, channel, source,
	status, lead_score, conversion_probability, estimated_value,
	utm_source, utm_medium, utm_campaign, assigned_agent_id,
	customer_type, country, interests, tour_preferences, budget_range, priority,
	created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.TenantID, &lead.FirstName, &lead.LastName, &lead.Email, &lead.Phone,
		&lead.Company, &lead.Channel, &lead.Source,
		&lead.Status, &lead.LeadScore, &lead.ConversionProbability, &lead.EstimatedValue,
		&lead.UTMSource, &lead.UTMMedium, &lead.UTMCampaign, &lead.AssignedAgentID,
		&lead.CustomerType, &lead.Country, &lead.Interests, &lead.TourPreferences, &lead.BudgetRange, &lead.Priority,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			tenant_id, first_name, last_name, email, phone, company, channel, source,
			estimated_value, utm_source, utm_medium, utm_campaign, assigned_agent_id,
			customer_type, country, interests, tour_preferences, budget_range, priority
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING `+leadColumns,
		params.TenantID, params.FirstName, params.LastName, params.Email, params.Phone,
		params.Company, params.Channel, params.Source,
		params.EstimatedValue, params.UTMSource, params.UTMMedium, params.UTMCampaign, params.AssignedAgentID,
		params.CustomerType, params.Country, params.Interests, params.TourPreferences, params.BudgetRange, params.Priority,
	)
	return scanLead(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
	`, id, tenantID)
	return scanLead(row)
}

func (r *Repository) ListByStatus(ctx context.Context, tenantID uuid.UUID, status string, limit int) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE tenant_id = $1 AND status = $2 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $3
	`, tenantID, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLeads(rows)
}

// ListRecentlyTouched returns leads whose interactions or own row changed
// since the cutoff. Used by the periodic score refresh sweep in small batches.
func (r *Repository) ListRecentlyTouched(ctx context.Context, tenantID uuid.UUID, since time.Time, limit int) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT ON (l.id) `+prefixedLeadColumns("l")+`
		FROM leads l
		LEFT JOIN interactions i ON i.lead_id = l.id
		WHERE l.tenant_id = $1 AND l.deleted_at IS NULL
			AND (l.updated_at >= $2 OR i.created_at >= $2)
		ORDER BY l.id
		LIMIT $3
	`, tenantID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLeads(rows)
}

// ListTenantsTouchedSince returns the tenants with lead or interaction
// activity after the cutoff, so sweeps can stay tenant-scoped.
func (r *Repository) ListTenantsTouchedSince(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT l.tenant_id
		FROM leads l
		LEFT JOIN interactions i ON i.lead_id = l.id
		WHERE l.deleted_at IS NULL AND (l.updated_at >= $1 OR i.created_at >= $1)
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tenants := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		tenants = append(tenants, id)
	}
	return tenants, rows.Err()
}

func collectLeads(rows pgx.Rows) ([]Lead, error) {
	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return leads, nil
}

func prefixedLeadColumns(alias string) string {
	return alias + `.id, ` + alias + `.tenant_id, ` + alias + `.first_name, ` + alias + `.last_name, ` +
		alias + `.email, ` + alias + `.phone, ` + alias + `.company, ` + alias + `.channel, ` + alias + `.source, ` +
		alias + `.status, ` + alias + `.lead_score, ` + alias + `.conversion_probability, ` + alias + `.estimated_value, ` +
		alias + `.utm_source, ` + alias + `.utm_medium, ` + alias + `.utm_campaign, ` + alias + `.assigned_agent_id, ` +
		alias + `.customer_type, ` + alias + `.country, ` + alias + `.interests, ` + alias + `.tour_preferences, ` +
		alias + `.budget_range, ` + alias + `.priority, ` + alias + `.created_at, ` + alias + `.updated_at`
}

// UpdateStatus performs a compare-and-swap status change: the row is written
// only if its status still matches expectedStatus. Returns ErrStatusConflict
// when a concurrent writer got there first.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, expectedStatus, newStatus string) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET status = $4, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND status = $3 AND deleted_at IS NULL
		RETURNING `+leadColumns,
		id, tenantID, expectedStatus, newStatus,
	)
	lead, err := scanLead(row)
	if errors.Is(err, ErrNotFound) {
		// Distinguish a missing lead from a lost CAS race.
		if _, getErr := r.GetByID(ctx, id, tenantID); getErr == nil {
			return Lead{}, ErrStatusConflict
		}
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// UpdateScore persists a recomputed score and conversion probability.
func (r *Repository) UpdateScore(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, score, probability float64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET lead_score = $3, conversion_probability = $4, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
	`, id, tenantID, score, probability)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete marks a lead deleted. Leads are never hard-deleted.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
	`, id, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
