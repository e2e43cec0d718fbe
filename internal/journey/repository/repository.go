package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("customer not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Customer struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	LeadID    uuid.UUID
	Name      string
	Email     *string
	Phone     string
	Address   *string
	CreatedAt time.Time
}

type CreateCustomerParams struct {
	TenantID uuid.UUID
	LeadID   uuid.UUID
	Name     string
	Email    *string
	Phone    string
	Address  *string
}

func (r *Repository) CreateCustomer(ctx context.Context, params CreateCustomerParams) (Customer, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO customers (tenant_id, lead_id, name, email, phone, address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, tenant_id, lead_id, name, email, phone, address, created_at
	`, params.TenantID, params.LeadID, params.Name, params.Email, params.Phone, params.Address)
	return scanCustomer(row)
}

func (r *Repository) GetCustomerByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (Customer, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, lead_id, name, email, phone, address, created_at
		FROM customers WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)
	return scanCustomer(row)
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.TenantID, &c.LeadID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	if err != nil {
		return Customer{}, err
	}
	return c, nil
}

// StepResult is the per-step outcome persisted with every journey run.
type StepResult struct {
	Step   string `json:"step"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
	RefID  string `json:"refId,omitempty"`
}

type SyncLog struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	LeadID      uuid.UUID
	JourneyType string
	Status      string
	Steps       []StepResult
	CreatedAt   time.Time
}

type CreateSyncLogParams struct {
	TenantID    uuid.UUID
	LeadID      uuid.UUID
	JourneyType string
	Status      string
	Steps       []StepResult
}

func (r *Repository) CreateSyncLog(ctx context.Context, params CreateSyncLogParams) (SyncLog, error) {
	steps, err := json.Marshal(params.Steps)
	if err != nil {
		return SyncLog{}, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO journey_sync_logs (tenant_id, lead_id, journey_type, status, steps)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, tenant_id, lead_id, journey_type, status, steps, created_at
	`, params.TenantID, params.LeadID, params.JourneyType, params.Status, steps)
	return scanSyncLog(row)
}

func (r *Repository) ListSyncLogsByLead(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) ([]SyncLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, lead_id, journey_type, status, steps, created_at
		FROM journey_sync_logs
		WHERE lead_id = $1 AND tenant_id = $2
		ORDER BY created_at ASC
	`, leadID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]SyncLog, 0)
	for rows.Next() {
		entry, err := scanSyncLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return logs, nil
}

func scanSyncLog(row pgx.Row) (SyncLog, error) {
	var entry SyncLog
	var steps []byte
	err := row.Scan(&entry.ID, &entry.TenantID, &entry.LeadID, &entry.JourneyType, &entry.Status, &steps, &entry.CreatedAt)
	if err != nil {
		return SyncLog{}, err
	}
	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &entry.Steps); err != nil {
			return SyncLog{}, err
		}
	}
	return entry, nil
}
