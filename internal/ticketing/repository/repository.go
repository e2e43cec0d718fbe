package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("ticket not found")

const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Ticket struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	LeadID      uuid.UUID
	Title       string
	Priority    string
	Status      string
	CloseReason *string
	CreatedAt   time.Time
	ClosedAt    *time.Time
}

const ticketColumns = `id, tenant_id, lead_id, title, priority, status, close_reason, created_at, closed_at`

func scanTicket(row pgx.Row) (Ticket, error) {
	var t Ticket
	err := row.Scan(&t.ID, &t.TenantID, &t.LeadID, &t.Title, &t.Priority, &t.Status, &t.CloseReason, &t.CreatedAt, &t.ClosedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Ticket{}, ErrNotFound
	}
	if err != nil {
		return Ticket{}, err
	}
	return t, nil
}

type CreateParams struct {
	TenantID uuid.UUID
	LeadID   uuid.UUID
	Title    string
	Priority string
}

func (r *Repository) Create(ctx context.Context, params CreateParams) (Ticket, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tickets (tenant_id, lead_id, title, priority, status)
		VALUES ($1, $2, $3, $4, 'open')
		RETURNING `+ticketColumns,
		params.TenantID, params.LeadID, params.Title, params.Priority,
	)
	return scanTicket(row)
}

func (r *Repository) Close(ctx context.Context, ticketID uuid.UUID, tenantID uuid.UUID, reason string) (Ticket, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tickets
		SET status = 'closed', close_reason = $3, closed_at = now()
		WHERE id = $1 AND tenant_id = $2 AND status = 'open'
		RETURNING `+ticketColumns,
		ticketID, tenantID, reason,
	)
	return scanTicket(row)
}

func (r *Repository) ListOpenByLead(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) ([]Ticket, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE lead_id = $1 AND tenant_id = $2 AND status = 'open'
		ORDER BY created_at ASC
	`, leadID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return tickets, nil
}
