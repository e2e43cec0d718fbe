// Package notification delivers operational messages to the sales team.
// Delivery is always best-effort: the dispatcher logs failures and never
// surfaces them to the caller.
package notification

import "context"

const (
	TypeLeadCaptured       = "lead_captured"
	TypeJourneyCompleted   = "journey_completed"
	TypeStageChanged       = "stage_changed"
	TypeSLABreach          = "sla_breach"
	TypeStaleFunnel        = "stale_funnel"
	TypeConversionComplete = "conversion_complete"
	TypeFollowUpDue        = "followup_due"
)

const (
	StatusSent    = "sent"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Message is one notification to deliver.
type Message struct {
	Type      string
	Recipient string
	Subject   string
	Body      string
}

// Delivery reports what happened to a message.
type Delivery struct {
	Status   string
	Provider string
}

// Sender delivers a single message over one channel.
type Sender interface {
	Send(ctx context.Context, msg Message) (Delivery, error)
}
