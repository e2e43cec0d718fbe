package notification

import (
	"context"
	"fmt"
	"strings"

	"tourcrm_backend/internal/events"
	"tourcrm_backend/platform/config"
	"tourcrm_backend/platform/logger"
)

// Module wires the notification dispatcher into the event bus. It has no
// HTTP surface; everything it does is reactive.
type Module struct {
	dispatcher *Dispatcher
}

func NewModule(cfg config.EmailConfig, log *logger.Logger) *Module {
	var sender Sender = NoopSender{}
	if cfg.GetEmailEnabled() && cfg.GetSMTPHost() != "" {
		sender = NewSMTPSender(cfg)
	}
	return &Module{
		dispatcher: NewDispatcher(sender, cfg.GetSalesTeamAddress(), log),
	}
}

func (m *Module) Name() string {
	return "notification"
}

// Dispatcher returns the dispatcher for direct use by the journey.
func (m *Module) Dispatcher() *Dispatcher {
	return m.dispatcher
}

// RegisterHandlers subscribes the sales-team notifications to domain events.
func (m *Module) RegisterHandlers(bus events.Bus) {
	handler := events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		switch e := event.(type) {
		case events.OpportunitySLABreached:
			m.dispatcher.NotifyAsync(Message{
				Type:    TypeSLABreach,
				Subject: fmt.Sprintf("Opportunity stuck in %s", e.Stage),
				Body: fmt.Sprintf("Opportunity %s has been in stage %s for %.0f hours (SLA %.0f hours). It needs attention.",
					e.OpportunityID, e.Stage, e.HoursInStage, e.SLAHours),
			})
		case events.FunnelStale:
			m.dispatcher.NotifyAsync(Message{
				Type:    TypeStaleFunnel,
				Subject: "Lead funnel has gone quiet",
				Body: fmt.Sprintf("Lead %s has shown no funnel movement for %.0f hours (current stage: %s).",
					e.LeadID, e.IdleHours, e.CurrentStage),
			})
		case events.JourneyCompleted:
			if e.Status == "completed" {
				return nil
			}
			m.dispatcher.NotifyAsync(Message{
				Type:    TypeJourneyCompleted,
				Subject: fmt.Sprintf("Lead journey finished with status %s", e.Status),
				Body: fmt.Sprintf("Journey %s for lead %s finished with status %s. Failed steps: %s.",
					e.JourneyID, e.LeadID, e.Status, strings.Join(e.FailedSteps, ", ")),
			})
		case events.LeadFollowUpDue:
			m.dispatcher.NotifyAsync(Message{
				Type:    TypeFollowUpDue,
				Subject: "Lead follow-up is due",
				Body: fmt.Sprintf("The scheduled follow-up for lead %s is due. Notes: %s",
					e.LeadID, e.Notes),
			})
		case events.LeadConverted:
			m.dispatcher.NotifyAsync(Message{
				Type:    TypeConversionComplete,
				Subject: "Lead converted to customer",
				Body: fmt.Sprintf("Lead %s converted to customer %s with value %.2f.",
					e.LeadID, e.CustomerID, e.ConversionValue),
			})
		}
		return nil
	})

	bus.Subscribe(events.OpportunitySLABreached{}.EventName(), handler)
	bus.Subscribe(events.FunnelStale{}.EventName(), handler)
	bus.Subscribe(events.JourneyCompleted{}.EventName(), handler)
	bus.Subscribe(events.LeadFollowUpDue{}.EventName(), handler)
	bus.Subscribe(events.LeadConverted{}.EventName(), handler)
}
