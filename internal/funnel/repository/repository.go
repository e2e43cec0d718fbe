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

var (
	ErrNotFound    = errors.New("funnel record not found")
	ErrStaleRecord = errors.New("funnel record changed since read")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// StageEvent is one append-only entry in a record's stage history.
type StageEvent struct {
	Stage string    `json:"stage"`
	At    time.Time `json:"at"`
	Value float64   `json:"value,omitempty"`
}

// Touchpoint is one marketing contact, kept in order for attribution.
type Touchpoint struct {
	Channel string    `json:"channel"`
	At      time.Time `json:"at"`
	Cost    float64   `json:"cost,omitempty"`
}

type Record struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	LeadID          uuid.UUID
	Channel         string
	CurrentStage    string
	StageHistory    []StageEvent
	Touchpoints     []Touchpoint
	ConversionValue float64
	AcquisitionCost float64
	IsConverted     bool
	LeadCapturedAt  time.Time
	ContactedAt     *time.Time
	QualifiedAt     *time.Time
	ProposalSentAt  *time.Time
	ClosedWonAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

const recordColumns = `id, tenant_id, lead_id, channel, current_stage, stage_history, touchpoints,
	conversion_value, acquisition_cost, is_converted,
	lead_captured_at, contacted_at, qualified_at, proposal_sent_at, closed_won_at,
	created_at, updated_at`

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var history, touchpoints []byte
	err := row.Scan(
		&rec.ID, &rec.TenantID, &rec.LeadID, &rec.Channel, &rec.CurrentStage, &history, &touchpoints,
		&rec.ConversionValue, &rec.AcquisitionCost, &rec.IsConverted,
		&rec.LeadCapturedAt, &rec.ContactedAt, &rec.QualifiedAt, &rec.ProposalSentAt, &rec.ClosedWonAt,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &rec.StageHistory); err != nil {
			return Record{}, err
		}
	}
	if len(touchpoints) > 0 {
		if err := json.Unmarshal(touchpoints, &rec.Touchpoints); err != nil {
			return Record{}, err
		}
	}
	return rec, nil
}

type CreateParams struct {
	TenantID       uuid.UUID
	LeadID         uuid.UUID
	Channel        string
	LeadCapturedAt time.Time
	InitialHistory []StageEvent
	Touchpoints    []Touchpoint
}

func (r *Repository) Create(ctx context.Context, params CreateParams) (Record, error) {
	history, err := json.Marshal(params.InitialHistory)
	if err != nil {
		return Record{}, err
	}
	touchpoints, err := json.Marshal(params.Touchpoints)
	if err != nil {
		return Record{}, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO conversion_funnels (
			tenant_id, lead_id, channel, current_stage, stage_history, touchpoints, lead_captured_at
		) VALUES ($1, $2, $3, 'lead_captured', $4, $5, $6)
		RETURNING `+recordColumns,
		params.TenantID, params.LeadID, params.Channel, history, touchpoints, params.LeadCapturedAt,
	)
	return scanRecord(row)
}

func (r *Repository) GetByLeadID(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) (Record, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM conversion_funnels WHERE lead_id = $1 AND tenant_id = $2
	`, leadID, tenantID)
	return scanRecord(row)
}

type UpdateParams struct {
	LeadID            uuid.UUID
	TenantID          uuid.UUID
	ExpectedUpdatedAt time.Time
	CurrentStage      string
	StageHistory      []StageEvent
	Touchpoints       []Touchpoint
	ConversionValue   float64
	IsConverted       bool
	ContactedAt       *time.Time
	QualifiedAt       *time.Time
	ProposalSentAt    *time.Time
	ClosedWonAt       *time.Time
}

// Update rewrites the mutable funnel fields with a compare-and-swap on
// updated_at. The row is written only when it still matches what the caller
// read; otherwise ErrStaleRecord is returned so the service can re-read and
// replay its append.
func (r *Repository) Update(ctx context.Context, params UpdateParams) (Record, error) {
	history, err := json.Marshal(params.StageHistory)
	if err != nil {
		return Record{}, err
	}
	touchpoints, err := json.Marshal(params.Touchpoints)
	if err != nil {
		return Record{}, err
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE conversion_funnels
		SET current_stage = $4, stage_history = $5, touchpoints = $6,
			conversion_value = $7, is_converted = $8,
			contacted_at = $9, qualified_at = $10, proposal_sent_at = $11, closed_won_at = $12,
			updated_at = now()
		WHERE lead_id = $1 AND tenant_id = $2 AND updated_at = $3
		RETURNING `+recordColumns,
		params.LeadID, params.TenantID, params.ExpectedUpdatedAt, params.CurrentStage, history, touchpoints,
		params.ConversionValue, params.IsConverted,
		params.ContactedAt, params.QualifiedAt, params.ProposalSentAt, params.ClosedWonAt,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, ErrNotFound) {
		if _, getErr := r.GetByLeadID(ctx, params.LeadID, params.TenantID); getErr == nil {
			return Record{}, ErrStaleRecord
		}
		return Record{}, ErrNotFound
	}
	return rec, err
}

// ListStale returns records whose last update predates the cutoff and that
// have not converted, across all tenants. Consumed by the stale sweep.
func (r *Repository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM conversion_funnels
		WHERE NOT is_converted AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ListByTenantSince returns funnel records captured in a window, for the
// analytics aggregations.
func (r *Repository) ListByTenantSince(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM conversion_funnels
		WHERE tenant_id = $1 AND lead_captured_at >= $2
		ORDER BY lead_captured_at ASC
	`, tenantID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

func collectRecords(rows pgx.Rows) ([]Record, error) {
	records := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}
