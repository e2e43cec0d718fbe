// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"tourcrm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCaptured is published when a new lead is created.
type LeadCaptured struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	TenantID     uuid.UUID `json:"tenantId"`
	Channel      string    `json:"channel"`
	Source       string    `json:"source,omitempty"`
	ContactName  string    `json:"contactName"`
	ContactPhone string    `json:"contactPhone"`
	ContactEmail string    `json:"contactEmail,omitempty"`
	UTMCampaign  string    `json:"utmCampaign,omitempty"`
}

func (e LeadCaptured) EventName() string { return "leads.lead.captured" }

// LeadInteractionRecorded is published when a contact event is logged against
// a lead. Scoring subscribes to this to recompute the lead score.
type LeadInteractionRecorded struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	InteractionID uuid.UUID `json:"interactionId"`
	TenantID      uuid.UUID `json:"tenantId"`
	Type          string    `json:"type"`
	Direction     string    `json:"direction"`
	Sentiment     float64   `json:"sentiment"`
}

func (e LeadInteractionRecorded) EventName() string { return "leads.interaction.recorded" }

// LeadStatusChanged is published when a lead's lifecycle status changes.
type LeadStatusChanged struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	TenantID  uuid.UUID `json:"tenantId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
}

func (e LeadStatusChanged) EventName() string { return "leads.status.changed" }

// LeadScoreUpdated is published after the scoring engine persists a new score.
type LeadScoreUpdated struct {
	BaseEvent
	LeadID                uuid.UUID `json:"leadId"`
	TenantID              uuid.UUID `json:"tenantId"`
	Score                 float64   `json:"score"`
	ConversionProbability float64   `json:"conversionProbability"`
}

func (e LeadScoreUpdated) EventName() string { return "leads.score.updated" }

// LeadFollowUpDue is published by the follow-up sweep when an interaction's
// scheduled follow-up time has passed without being completed.
type LeadFollowUpDue struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	InteractionID uuid.UUID `json:"interactionId"`
	TenantID      uuid.UUID `json:"tenantId"`
	Notes         string    `json:"notes,omitempty"`
}

func (e LeadFollowUpDue) EventName() string { return "leads.followup.due" }

// LeadConverted is published when a lead becomes a paying customer.
type LeadConverted struct {
	BaseEvent
	LeadID          uuid.UUID `json:"leadId"`
	CustomerID      uuid.UUID `json:"customerId"`
	TenantID        uuid.UUID `json:"tenantId"`
	ConversionValue float64   `json:"conversionValue"`
}

func (e LeadConverted) EventName() string { return "leads.lead.converted" }

// =============================================================================
// Pipeline Domain Events
// =============================================================================

// OpportunityCreated is published when a lead is promoted into the pipeline.
type OpportunityCreated struct {
	BaseEvent
	OpportunityID uuid.UUID `json:"opportunityId"`
	LeadID        uuid.UUID `json:"leadId"`
	TenantID      uuid.UUID `json:"tenantId"`
	Template      string    `json:"template"`
	Stage         string    `json:"stage"`
}

func (e OpportunityCreated) EventName() string { return "pipeline.opportunity.created" }

// OpportunityStageChanged is published on every successful stage transition.
// Automations (follow-up scheduling, prediction refresh) subscribe to this.
type OpportunityStageChanged struct {
	BaseEvent
	OpportunityID uuid.UUID `json:"opportunityId"`
	LeadID        uuid.UUID `json:"leadId"`
	TenantID      uuid.UUID `json:"tenantId"`
	OldStage      string    `json:"oldStage"`
	NewStage      string    `json:"newStage"`
	Probability   float64   `json:"probability"`
	DaysInStage   float64   `json:"daysInStage"`
	Actor         string    `json:"actor"`
}

func (e OpportunityStageChanged) EventName() string { return "pipeline.stage.changed" }

// OpportunitySLABreached is published by the periodic SLA sweep when an
// opportunity has sat in its stage longer than the template allows.
type OpportunitySLABreached struct {
	BaseEvent
	OpportunityID uuid.UUID `json:"opportunityId"`
	TenantID      uuid.UUID `json:"tenantId"`
	Stage         string    `json:"stage"`
	HoursInStage  float64   `json:"hoursInStage"`
	SLAHours      float64   `json:"slaHours"`
}

func (e OpportunitySLABreached) EventName() string { return "pipeline.sla.breached" }

// =============================================================================
// Funnel Domain Events
// =============================================================================

// FunnelStageRecorded is published when a funnel stage event is appended.
type FunnelStageRecorded struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	TenantID uuid.UUID `json:"tenantId"`
	Stage    string    `json:"stage"`
	Value    float64   `json:"value"`
}

func (e FunnelStageRecorded) EventName() string { return "funnel.stage.recorded" }

// FunnelStale is published by the stale-funnel sweep for records with no
// stage movement beyond the allowed window.
type FunnelStale struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	TenantID     uuid.UUID `json:"tenantId"`
	CurrentStage string    `json:"currentStage"`
	IdleHours    float64   `json:"idleHours"`
}

func (e FunnelStale) EventName() string { return "funnel.record.stale" }

// =============================================================================
// Journey Domain Events
// =============================================================================

// JourneyCompleted is published after a full lead journey run, including
// partial successes. Notification handlers fan this out to the sales team.
type JourneyCompleted struct {
	BaseEvent
	JourneyID   uuid.UUID `json:"journeyId"`
	LeadID      uuid.UUID `json:"leadId"`
	TenantID    uuid.UUID `json:"tenantId"`
	Status      string    `json:"status"`
	FailedSteps []string  `json:"failedSteps,omitempty"`
}

func (e JourneyCompleted) EventName() string { return "journey.completed" }
