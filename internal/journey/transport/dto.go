package transport

import (
	"time"

	leadstransport "tourcrm_backend/internal/leads/transport"

	"github.com/google/uuid"
)

// Journey run statuses.
const (
	StatusCompleted      = "completed"
	StatusPartialSuccess = "partial_success"
	StatusFailed         = "failed"
)

// Request DTOs
type ProcessJourneyRequest struct {
	Lead            leadstransport.CaptureLeadRequest `json:"lead" validate:"required"`
	TouchpointCost  float64                           `json:"touchpointCost,omitempty" validate:"gte=0"`
	TicketTitle     string                            `json:"ticketTitle,omitempty" validate:"max=300"`
	TicketPriority  string                            `json:"ticketPriority,omitempty" validate:"omitempty,oneof=low normal high urgent"`
	StartFollowUp   bool                              `json:"startFollowUp"`
	FollowUpContext map[string]string                 `json:"followUpContext,omitempty"`
}

type PaymentDetails struct {
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Currency    string  `json:"currency,omitempty" validate:"omitempty,len=3"`
	MethodToken string  `json:"methodToken" validate:"required"`
}

type ConvertLeadRequest struct {
	CustomerName    string          `json:"customerName,omitempty" validate:"max=200"`
	CustomerEmail   string          `json:"customerEmail,omitempty" validate:"omitempty,email"`
	CustomerAddress string          `json:"customerAddress,omitempty" validate:"max=500"`
	Title           string          `json:"title" validate:"required,min=1,max=300"`
	Value           float64         `json:"value" validate:"required,gt=0"`
	Payment         *PaymentDetails `json:"payment,omitempty"`
	StartFollowUp   bool            `json:"startFollowUp"`
	Actor           string          `json:"-"`
}

// Response DTOs
type StepStatus struct {
	Step   string `json:"step"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type JourneyResponse struct {
	JourneyID           uuid.UUID    `json:"journeyId"`
	LeadID              uuid.UUID    `json:"leadId"`
	TicketID            *uuid.UUID   `json:"ticketId,omitempty"`
	FollowUpExecutionID string       `json:"followUpExecutionId,omitempty"`
	Status              string       `json:"status"`
	LeadCreated         bool         `json:"leadCreated"`
	AttributionRecorded bool         `json:"attributionRecorded"`
	TicketCreated       bool         `json:"ticketCreated"`
	NotificationSent    bool         `json:"notificationSent"`
	FollowUpStarted     bool         `json:"followUpStarted"`
	Steps               []StepStatus `json:"steps"`
	CompletedAt         time.Time    `json:"completedAt"`
}

type ConversionResponse struct {
	CustomerID           uuid.UUID    `json:"customerId"`
	OpportunityID        uuid.UUID    `json:"opportunityId"`
	LeadID               uuid.UUID    `json:"leadId"`
	LeadStatus           string       `json:"leadStatus"`
	PaymentStatus        string       `json:"paymentStatus"`
	PaymentTransactionID string       `json:"paymentTransactionId,omitempty"`
	PaymentFailureReason string       `json:"paymentFailureReason,omitempty"`
	TicketsClosed        int          `json:"ticketsClosed"`
	FollowUpExecutionID  string       `json:"followUpExecutionId,omitempty"`
	Status               string       `json:"status"`
	Steps                []StepStatus `json:"steps"`
	CompletedAt          time.Time    `json:"completedAt"`
}

type SyncLogResponse struct {
	ID          uuid.UUID    `json:"id"`
	LeadID      uuid.UUID    `json:"leadId"`
	JourneyType string       `json:"journeyType"`
	Status      string       `json:"status"`
	Steps       []StepStatus `json:"steps"`
	CreatedAt   time.Time    `json:"createdAt"`
}
