package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs
type CreateOpportunityRequest struct {
	LeadID          uuid.UUID  `json:"leadId" validate:"required"`
	Title           string     `json:"title" validate:"required,min=1,max=300"`
	Template        string     `json:"template" validate:"required,oneof=b2c_individual b2b_corporate"`
	Stage           string     `json:"stage,omitempty" validate:"omitempty,oneof=lead_capture qualification discovery presentation proposal negotiation closing"`
	EstimatedValue  float64    `json:"estimatedValue" validate:"gte=0"`
	OwnerID         *uuid.UUID `json:"ownerId,omitempty"`
	ExpectedCloseAt *time.Time `json:"expectedCloseAt,omitempty"`
	Actor           string     `json:"-"`
}

type AdvanceStageRequest struct {
	Stage       string   `json:"stage" validate:"required,oneof=lead_capture qualification discovery presentation proposal negotiation closing closed_won closed_lost"`
	ActualValue *float64 `json:"actualValue,omitempty" validate:"omitempty,gte=0"`
	Notes       *string  `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Actor       string   `json:"-"`
}

type ListOpportunitiesRequest struct {
	Stage string `form:"stage" validate:"required,oneof=lead_capture qualification discovery presentation proposal negotiation closing closed_won closed_lost"`
	Limit int    `form:"limit" validate:"omitempty,min=1,max=200"`
}

// Response DTOs
type OpportunityResponse struct {
	ID                 uuid.UUID  `json:"id"`
	LeadID             uuid.UUID  `json:"leadId"`
	CustomerID         *uuid.UUID `json:"customerId,omitempty"`
	Title              string     `json:"title"`
	Template           string     `json:"template"`
	CurrentStage       string     `json:"currentStage"`
	Probability        float64    `json:"probability"`
	EstimatedValue     float64    `json:"estimatedValue"`
	ActualValue        *float64   `json:"actualValue,omitempty"`
	OwnerID            *uuid.UUID `json:"ownerId,omitempty"`
	DaysInCurrentStage float64    `json:"daysInCurrentStage"`
	SLAHours           int        `json:"slaHours"`
	StageEnteredAt     time.Time  `json:"stageEnteredAt"`
	ExpectedCloseAt    *time.Time `json:"expectedCloseAt,omitempty"`
	ClosedAt           *time.Time `json:"closedAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

type ActivityResponse struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	FromStage *string   `json:"fromStage,omitempty"`
	ToStage   *string   `json:"toStage,omitempty"`
	Actor     string    `json:"actor"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type PredictionResponse struct {
	OpportunityID      uuid.UUID `json:"opportunityId"`
	WinProbability     float64   `json:"winProbability"`
	Confidence         float64   `json:"confidence"`
	DealSizeBucket     string    `json:"dealSizeBucket"`
	DealSizeConfidence float64   `json:"dealSizeConfidence"`
	ClosingDays        int       `json:"closingDays"`
	ClosingConfidence  float64   `json:"closingConfidence"`
	ChurnRiskScore     float64   `json:"churnRiskScore"`
	ChurnConfidence    float64   `json:"churnConfidence"`
	ModelVersion       string    `json:"modelVersion"`
	Advisory           bool      `json:"advisory"`
	ComputedAt         time.Time `json:"computedAt"`
}
