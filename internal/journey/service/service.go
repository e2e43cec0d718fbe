// Package service implements the lead journey orchestrator. It drives the
// full capture-to-conversion flow across the lead, funnel, pipeline and
// collaborator modules. Lead creation and attribution are load-bearing;
// everything downstream is best-effort and lands in the sync log instead of
// failing the journey.
package service

import (
	"context"
	"time"

	"tourcrm_backend/internal/events"
	funneldomain "tourcrm_backend/internal/funnel/domain"
	funnelsvc "tourcrm_backend/internal/funnel/service"
	"tourcrm_backend/internal/journey/ports"
	"tourcrm_backend/internal/journey/repository"
	"tourcrm_backend/internal/journey/transport"
	"tourcrm_backend/internal/leads/domain"
	"tourcrm_backend/internal/notification"
	"tourcrm_backend/internal/payments"
	pipedomain "tourcrm_backend/internal/pipeline/domain"
	pipetransport "tourcrm_backend/internal/pipeline/transport"
	"tourcrm_backend/platform/config"
	"tourcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// Journey step names, persisted in sync logs.
const (
	StepLeadCreated         = "lead_created"
	StepAttributionRecorded = "attribution_recorded"
	StepTicketCreated       = "ticket_created"
	StepNotificationSent    = "notification_sent"
	StepFollowUpStarted     = "followup_started"

	StepCustomerCreated     = "customer_created"
	StepOpportunityClosed   = "opportunity_closed"
	StepPaymentProcessed    = "payment_processed"
	StepFunnelClosedWon     = "funnel_closed_won"
	StepLeadMarkedConverted = "lead_marked_converted"
	StepTicketsClosed       = "tickets_closed"
)

const (
	journeyTypeCapture    = "lead_capture"
	journeyTypeConversion = "lead_conversion"

	stepSuccess = "success"
	stepFailed  = "failed"
	stepSkipped = "skipped"

	defaultCollaboratorTimeout = 10 * time.Second
)

type Service struct {
	leads    ports.Leads
	pipeline ports.Pipeline
	funnel   ports.Attribution
	tickets  ports.Ticketing
	notifier ports.Notifier
	payments ports.PaymentGateway
	followup ports.FollowUp
	repo     repository.JourneyRepository
	bus      events.Bus
	log      *logger.Logger
	timeout  time.Duration
	now      func() time.Time
}

func New(
	leads ports.Leads,
	pipeline ports.Pipeline,
	funnelPort ports.Attribution,
	tickets ports.Ticketing,
	notifier ports.Notifier,
	paymentGateway ports.PaymentGateway,
	followUp ports.FollowUp,
	repo repository.JourneyRepository,
	bus events.Bus,
	cfg config.CollaboratorConfig,
	log *logger.Logger,
) *Service {
	timeout := cfg.GetCollaboratorTimeout()
	if timeout <= 0 {
		timeout = defaultCollaboratorTimeout
	}
	return &Service{
		leads:    leads,
		pipeline: pipeline,
		funnel:   funnelPort,
		tickets:  tickets,
		notifier: notifier,
		payments: paymentGateway,
		followup: followUp,
		repo:     repo,
		bus:      bus,
		log:      log,
		timeout:  timeout,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// tracker accumulates per-step outcomes for the sync log and the response.
type tracker struct {
	steps  []repository.StepResult
	failed []string
}

func (t *tracker) ok(step, refID string) {
	t.steps = append(t.steps, repository.StepResult{Step: step, Status: stepSuccess, RefID: refID})
}

func (t *tracker) fail(step string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	t.steps = append(t.steps, repository.StepResult{Step: step, Status: stepFailed, Detail: detail})
	t.failed = append(t.failed, step)
}

func (t *tracker) skip(step string) {
	t.steps = append(t.steps, repository.StepResult{Step: step, Status: stepSkipped})
}

func (t *tracker) succeeded(step string) bool {
	for _, s := range t.steps {
		if s.Step == step {
			return s.Status == stepSuccess
		}
	}
	return false
}

func (t *tracker) status() string {
	if len(t.failed) == 0 {
		return transport.StatusCompleted
	}
	return transport.StatusPartialSuccess
}

// ProcessCompleteLeadJourney runs the full intake flow for a new lead.
// A failure creating the lead or its attribution record aborts and surfaces;
// ticket, notification and follow-up failures are caught, logged and
// reported per step while the journey continues.
func (s *Service) ProcessCompleteLeadJourney(ctx context.Context, tenantID uuid.UUID, req transport.ProcessJourneyRequest) (transport.JourneyResponse, error) {
	journeyID := uuid.New()
	t := &tracker{}

	lead, err := s.leads.Capture(ctx, tenantID, req.Lead)
	if err != nil {
		s.log.JourneyStep(journeyID.String(), StepLeadCreated, false, err)
		t.fail(StepLeadCreated, err)
		s.persistSyncLog(ctx, tenantID, uuid.Nil, journeyTypeCapture, transport.StatusFailed, t.steps)
		return transport.JourneyResponse{JourneyID: journeyID, Status: transport.StatusFailed, Steps: toStepStatuses(t.steps)}, err
	}
	t.ok(StepLeadCreated, lead.ID.String())
	s.log.JourneyStep(journeyID.String(), StepLeadCreated, true, nil)

	if _, err := s.funnel.RecordStageEvent(ctx, funnelsvc.StageEventParams{
		TenantID: tenantID,
		LeadID:   lead.ID,
		Stage:    funneldomain.StageLeadCaptured,
		Channel:  req.Lead.Channel,
	}); err != nil {
		s.log.JourneyStep(journeyID.String(), StepAttributionRecorded, false, err)
		t.fail(StepAttributionRecorded, err)
		s.persistSyncLog(ctx, tenantID, lead.ID, journeyTypeCapture, transport.StatusFailed, t.steps)
		return transport.JourneyResponse{JourneyID: journeyID, LeadID: lead.ID, LeadCreated: true, Status: transport.StatusFailed, Steps: toStepStatuses(t.steps)}, err
	}
	if req.TouchpointCost > 0 {
		if err := s.funnel.RecordTouchpoint(ctx, tenantID, lead.ID, req.Lead.Channel, req.TouchpointCost); err != nil {
			s.log.Warn("touchpoint cost write failed", "error", err, "leadId", lead.ID)
		}
	}
	t.ok(StepAttributionRecorded, "")
	s.log.JourneyStep(journeyID.String(), StepAttributionRecorded, true, nil)

	var ticketID *uuid.UUID
	title := req.TicketTitle
	if title == "" {
		title = "Follow up new lead " + lead.FirstName + " " + lead.LastName
	}
	if id, err := s.callTicketCreate(ctx, tenantID, lead.ID, title, req.TicketPriority); err != nil {
		s.log.CollaboratorFailure("ticketing", "create", err)
		t.fail(StepTicketCreated, err)
	} else {
		ticketID = &id
		t.ok(StepTicketCreated, id.String())
	}

	if err := s.notifySalesTeam(ctx, lead.FirstName+" "+lead.LastName, lead.Channel, lead.Phone); err != nil {
		s.log.CollaboratorFailure("notification", "send", err)
		t.fail(StepNotificationSent, err)
	} else {
		t.ok(StepNotificationSent, "")
	}

	var executionID string
	if req.StartFollowUp {
		executionID, err = s.callFollowUp(ctx, tenantID, lead.ID, "lead_captured", req.FollowUpContext)
		if err != nil {
			s.log.CollaboratorFailure("followup", "start_sequence", err)
			t.fail(StepFollowUpStarted, err)
		} else {
			t.ok(StepFollowUpStarted, executionID)
		}
	} else {
		t.skip(StepFollowUpStarted)
	}

	status := t.status()
	s.persistSyncLog(ctx, tenantID, lead.ID, journeyTypeCapture, status, t.steps)
	s.bus.Publish(ctx, events.JourneyCompleted{
		BaseEvent:   events.NewBaseEvent(),
		JourneyID:   journeyID,
		LeadID:      lead.ID,
		TenantID:    tenantID,
		Status:      status,
		FailedSteps: t.failed,
	})

	return transport.JourneyResponse{
		JourneyID:           journeyID,
		LeadID:              lead.ID,
		TicketID:            ticketID,
		FollowUpExecutionID: executionID,
		Status:              status,
		LeadCreated:         true,
		AttributionRecorded: true,
		TicketCreated:       t.succeeded(StepTicketCreated),
		NotificationSent:    t.succeeded(StepNotificationSent),
		FollowUpStarted:     t.succeeded(StepFollowUpStarted),
		Steps:               toStepStatuses(t.steps),
		CompletedAt:         s.now(),
	}, nil
}

// ConvertLeadToCustomer closes out a winning lead: customer record and a won
// opportunity are load-bearing, the payment outcome is surfaced distinctly
// without rolling anything back, and the cleanup steps are best-effort.
func (s *Service) ConvertLeadToCustomer(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID, req transport.ConvertLeadRequest) (transport.ConversionResponse, error) {
	t := &tracker{}

	lead, err := s.leads.Get(ctx, leadID, tenantID)
	if err != nil {
		return transport.ConversionResponse{}, err
	}

	name := req.CustomerName
	if name == "" {
		name = lead.FirstName + " " + lead.LastName
	}
	email := lead.Email
	if req.CustomerEmail != "" {
		email = &req.CustomerEmail
	}
	var address *string
	if req.CustomerAddress != "" {
		address = &req.CustomerAddress
	}

	customer, err := s.repo.CreateCustomer(ctx, repository.CreateCustomerParams{
		TenantID: tenantID,
		LeadID:   leadID,
		Name:     name,
		Email:    email,
		Phone:    lead.Phone,
		Address:  address,
	})
	if err != nil {
		t.fail(StepCustomerCreated, err)
		s.persistSyncLog(ctx, tenantID, leadID, journeyTypeConversion, transport.StatusFailed, t.steps)
		return transport.ConversionResponse{}, err
	}
	t.ok(StepCustomerCreated, customer.ID.String())

	opp, err := s.closeOpportunity(ctx, tenantID, leadID, customer.ID, lead.CustomerType, req)
	if err != nil {
		t.fail(StepOpportunityClosed, err)
		s.persistSyncLog(ctx, tenantID, leadID, journeyTypeConversion, transport.StatusFailed, t.steps)
		return transport.ConversionResponse{}, err
	}
	t.ok(StepOpportunityClosed, opp.ID.String())

	result := transport.ConversionResponse{
		CustomerID:    customer.ID,
		OpportunityID: opp.ID,
		LeadID:        leadID,
		PaymentStatus: payments.StatusSkipped,
	}

	if req.Payment != nil {
		payment, err := s.callPayment(ctx, tenantID, customer.ID, req)
		switch {
		case err != nil:
			// Transport failure: everything created above stays committed.
			s.log.CollaboratorFailure("payments", "process_payment", err)
			result.PaymentStatus = "failed"
			result.PaymentFailureReason = err.Error()
			t.fail(StepPaymentProcessed, err)
		case payment.Status != payments.StatusSucceeded:
			result.PaymentStatus = payment.Status
			result.PaymentTransactionID = payment.TransactionID
			result.PaymentFailureReason = payment.FailureReason
			t.fail(StepPaymentProcessed, nil)
		default:
			result.PaymentStatus = payment.Status
			result.PaymentTransactionID = payment.TransactionID
			t.ok(StepPaymentProcessed, payment.TransactionID)
		}
	} else {
		t.skip(StepPaymentProcessed)
	}

	if _, err := s.funnel.RecordStageEvent(ctx, funnelsvc.StageEventParams{
		TenantID: tenantID,
		LeadID:   leadID,
		Stage:    funneldomain.StageClosedWon,
		Value:    req.Value,
	}); err != nil {
		s.log.Error("conversion funnel event failed", "error", err, "leadId", leadID)
		t.fail(StepFunnelClosedWon, err)
	} else {
		t.ok(StepFunnelClosedWon, "")
	}

	if updated, err := s.leads.ChangeStatus(ctx, leadID, tenantID, domain.StatusConverted); err != nil {
		s.log.Error("lead conversion status change failed", "error", err, "leadId", leadID)
		t.fail(StepLeadMarkedConverted, err)
		result.LeadStatus = lead.Status
	} else {
		t.ok(StepLeadMarkedConverted, "")
		result.LeadStatus = updated.Status
	}

	if closed, err := s.callTicketClose(ctx, tenantID, leadID); err != nil {
		s.log.CollaboratorFailure("ticketing", "close_open_for_lead", err)
		t.fail(StepTicketsClosed, err)
	} else {
		result.TicketsClosed = closed
		t.ok(StepTicketsClosed, "")
	}

	if req.StartFollowUp {
		executionID, err := s.callFollowUp(ctx, tenantID, customer.ID, "post_purchase", map[string]string{
			"customer": name,
			"trip":     req.Title,
		})
		if err != nil {
			s.log.CollaboratorFailure("followup", "start_sequence", err)
			t.fail(StepFollowUpStarted, err)
		} else {
			result.FollowUpExecutionID = executionID
			t.ok(StepFollowUpStarted, executionID)
		}
	} else {
		t.skip(StepFollowUpStarted)
	}

	result.Status = t.status()
	result.Steps = toStepStatuses(t.steps)
	result.CompletedAt = s.now()

	s.persistSyncLog(ctx, tenantID, leadID, journeyTypeConversion, result.Status, t.steps)
	s.bus.Publish(ctx, events.LeadConverted{
		BaseEvent:       events.NewBaseEvent(),
		LeadID:          leadID,
		CustomerID:      customer.ID,
		TenantID:        tenantID,
		ConversionValue: req.Value,
	})

	return result, nil
}

// closeOpportunity promotes the lead into the pipeline late-stage and walks
// it through closing to closed_won. The stage machine rules still apply on
// every hop, so the won probability comes from the template's closing stage.
func (s *Service) closeOpportunity(ctx context.Context, tenantID uuid.UUID, leadID uuid.UUID, customerID uuid.UUID, customerType string, req transport.ConvertLeadRequest) (pipetransport.OpportunityResponse, error) {
	opp, err := s.pipeline.CreateOpportunity(ctx, tenantID, pipetransport.CreateOpportunityRequest{
		LeadID:         leadID,
		Title:          req.Title,
		Template:       templateForCustomerType(customerType),
		Stage:          pipedomain.StageNegotiation,
		EstimatedValue: req.Value,
		Actor:          req.Actor,
	})
	if err != nil {
		return pipetransport.OpportunityResponse{}, err
	}

	if err := s.pipeline.LinkCustomer(ctx, opp.ID, tenantID, customerID); err != nil {
		s.log.Error("customer link failed", "error", err, "opportunityId", opp.ID)
	}

	if _, err := s.pipeline.AdvanceStage(ctx, opp.ID, tenantID, pipetransport.AdvanceStageRequest{
		Stage: pipedomain.StageClosing,
		Actor: req.Actor,
	}); err != nil {
		return pipetransport.OpportunityResponse{}, err
	}

	value := req.Value
	won, err := s.pipeline.AdvanceStage(ctx, opp.ID, tenantID, pipetransport.AdvanceStageRequest{
		Stage:       pipedomain.StageClosedWon,
		ActualValue: &value,
		Actor:       req.Actor,
	})
	if err != nil {
		return pipetransport.OpportunityResponse{}, err
	}
	return won, nil
}

// SyncLogs returns the journey history for a lead.
func (s *Service) SyncLogs(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) ([]transport.SyncLogResponse, error) {
	logs, err := s.repo.ListSyncLogsByLead(ctx, leadID, tenantID)
	if err != nil {
		return nil, err
	}
	responses := make([]transport.SyncLogResponse, 0, len(logs))
	for _, entry := range logs {
		responses = append(responses, transport.SyncLogResponse{
			ID:          entry.ID,
			LeadID:      entry.LeadID,
			JourneyType: entry.JourneyType,
			Status:      entry.Status,
			Steps:       toStepStatuses(entry.Steps),
			CreatedAt:   entry.CreatedAt,
		})
	}
	return responses, nil
}

func (s *Service) callTicketCreate(ctx context.Context, tenantID uuid.UUID, leadID uuid.UUID, title, priority string) (uuid.UUID, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.tickets.Create(callCtx, tenantID, leadID, title, priority)
}

func (s *Service) callTicketClose(ctx context.Context, tenantID uuid.UUID, leadID uuid.UUID) (int, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.tickets.CloseOpenForLead(callCtx, tenantID, leadID, "lead converted")
}

func (s *Service) notifySalesTeam(ctx context.Context, leadName, channel, phone string) error {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err := s.notifier.Notify(callCtx, notification.Message{
		Type:    notification.TypeLeadCaptured,
		Subject: "New lead captured: " + leadName,
		Body:    "A new lead came in via " + channel + ". Contact: " + leadName + " (" + phone + ").",
	})
	return err
}

func (s *Service) callFollowUp(ctx context.Context, tenantID uuid.UUID, subjectID uuid.UUID, trigger string, contextData map[string]string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.followup.StartSequence(callCtx, tenantID, subjectID, trigger, contextData)
}

func (s *Service) callPayment(ctx context.Context, tenantID uuid.UUID, customerID uuid.UUID, req transport.ConvertLeadRequest) (payments.Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.payments.ProcessPayment(callCtx, payments.Request{
		TenantID:    tenantID,
		CustomerID:  customerID,
		Amount:      req.Payment.Amount,
		Currency:    req.Payment.Currency,
		MethodToken: req.Payment.MethodToken,
		Description: req.Title,
	})
}

func (s *Service) persistSyncLog(ctx context.Context, tenantID uuid.UUID, leadID uuid.UUID, journeyType, status string, steps []repository.StepResult) {
	if _, err := s.repo.CreateSyncLog(ctx, repository.CreateSyncLogParams{
		TenantID:    tenantID,
		LeadID:      leadID,
		JourneyType: journeyType,
		Status:      status,
		Steps:       steps,
	}); err != nil {
		s.log.Error("journey sync log write failed", "error", err, "leadId", leadID)
	}
}

func templateForCustomerType(customerType string) string {
	if customerType == "b2b_corporate" {
		return "b2b_corporate"
	}
	return "b2c_individual"
}

func toStepStatuses(steps []repository.StepResult) []transport.StepStatus {
	out := make([]transport.StepStatus, 0, len(steps))
	for _, step := range steps {
		out = append(out, transport.StepStatus{Step: step.Step, Status: step.Status, Detail: step.Detail})
	}
	return out
}
