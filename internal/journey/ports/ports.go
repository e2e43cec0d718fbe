// Package ports defines the consumer-driven contracts the journey
// orchestrator needs from the rest of the system. Each interface is shaped
// by what the journey calls, not by what the providing module offers, so
// tests can swap in fakes per collaborator.
package ports

import (
	"context"

	funnelrepo "tourcrm_backend/internal/funnel/repository"
	funnelsvc "tourcrm_backend/internal/funnel/service"
	leadstransport "tourcrm_backend/internal/leads/transport"
	"tourcrm_backend/internal/notification"
	"tourcrm_backend/internal/payments"
	pipetransport "tourcrm_backend/internal/pipeline/transport"

	"github.com/google/uuid"
)

// Leads covers the lead lifecycle operations the journey drives.
type Leads interface {
	Capture(ctx context.Context, tenantID uuid.UUID, req leadstransport.CaptureLeadRequest) (leadstransport.LeadResponse, error)
	Get(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) (leadstransport.LeadResponse, error)
	ChangeStatus(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID, newStatus string) (leadstransport.LeadResponse, error)
}

// Pipeline covers opportunity creation and stage movement during conversion.
type Pipeline interface {
	CreateOpportunity(ctx context.Context, tenantID uuid.UUID, req pipetransport.CreateOpportunityRequest) (pipetransport.OpportunityResponse, error)
	AdvanceStage(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, req pipetransport.AdvanceStageRequest) (pipetransport.OpportunityResponse, error)
	LinkCustomer(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, customerID uuid.UUID) error
}

// Attribution records funnel progress and marketing touches.
type Attribution interface {
	RecordStageEvent(ctx context.Context, params funnelsvc.StageEventParams) (funnelrepo.Record, error)
	RecordTouchpoint(ctx context.Context, tenantID uuid.UUID, leadID uuid.UUID, channel string, cost float64) error
}

// Ticketing opens and closes tracking tickets for leads.
type Ticketing interface {
	Create(ctx context.Context, tenantID uuid.UUID, leadID uuid.UUID, title string, priority string) (uuid.UUID, error)
	CloseOpenForLead(ctx context.Context, tenantID uuid.UUID, leadID uuid.UUID, reason string) (int, error)
}

// Notifier delivers a message to the sales team.
type Notifier interface {
	Notify(ctx context.Context, msg notification.Message) (notification.Delivery, error)
}

// PaymentGateway charges a customer. A declined charge is a Result, not an
// error.
type PaymentGateway interface {
	ProcessPayment(ctx context.Context, req payments.Request) (payments.Result, error)
}

// FollowUp starts an AI follow-up sequence.
type FollowUp interface {
	StartSequence(ctx context.Context, tenantID uuid.UUID, customerID uuid.UUID, trigger string, contextData map[string]string) (string, error)
}
