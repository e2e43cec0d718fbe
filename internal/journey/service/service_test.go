package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"tourcrm_backend/internal/events"
	funneldomain "tourcrm_backend/internal/funnel/domain"
	funnelrepo "tourcrm_backend/internal/funnel/repository"
	funnelsvc "tourcrm_backend/internal/funnel/service"
	"tourcrm_backend/internal/journey/ports"
	"tourcrm_backend/internal/journey/repository"
	"tourcrm_backend/internal/journey/transport"
	leadstransport "tourcrm_backend/internal/leads/transport"
	"tourcrm_backend/internal/notification"
	"tourcrm_backend/internal/payments"
	pipedomain "tourcrm_backend/internal/pipeline/domain"
	pipetransport "tourcrm_backend/internal/pipeline/transport"
	"tourcrm_backend/platform/logger"
)

type fakeLeads struct {
	mu          sync.Mutex
	failCapture bool
	leads       map[uuid.UUID]leadstransport.LeadResponse
}

func newFakeLeads() *fakeLeads {
	return &fakeLeads{leads: make(map[uuid.UUID]leadstransport.LeadResponse)}
}

func (f *fakeLeads) Capture(_ context.Context, _ uuid.UUID, req leadstransport.CaptureLeadRequest) (leadstransport.LeadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCapture {
		return leadstransport.LeadResponse{}, errors.New("lead insert failed")
	}
	lead := leadstransport.LeadResponse{
		ID:           uuid.New(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Channel:      req.Channel,
		CustomerType: string(req.CustomerType),
		Status:       "new",
	}
	f.leads[lead.ID] = lead
	return lead, nil
}

func (f *fakeLeads) Get(_ context.Context, leadID uuid.UUID, _ uuid.UUID) (leadstransport.LeadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[leadID]
	if !ok {
		return leadstransport.LeadResponse{}, errors.New("lead not found")
	}
	return lead, nil
}

func (f *fakeLeads) ChangeStatus(_ context.Context, leadID uuid.UUID, _ uuid.UUID, newStatus string) (leadstransport.LeadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[leadID]
	if !ok {
		return leadstransport.LeadResponse{}, errors.New("lead not found")
	}
	lead.Status = newStatus
	f.leads[leadID] = lead
	return lead, nil
}

// fakePipeline enforces the real transition table so the orchestrator cannot
// cheat its way to closed_won.
type fakePipeline struct {
	mu           sync.Mutex
	currentStage string
	transitions  []string
	linked       []uuid.UUID
	oppID        uuid.UUID
}

func (f *fakePipeline) CreateOpportunity(_ context.Context, _ uuid.UUID, req pipetransport.CreateOpportunityRequest) (pipetransport.OpportunityResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stage := req.Stage
	if stage == "" {
		stage = pipedomain.StageLeadCapture
	}
	f.oppID = uuid.New()
	f.currentStage = stage
	return pipetransport.OpportunityResponse{ID: f.oppID, LeadID: req.LeadID, CurrentStage: stage}, nil
}

func (f *fakePipeline) AdvanceStage(_ context.Context, id uuid.UUID, _ uuid.UUID, req pipetransport.AdvanceStageRequest) (pipetransport.OpportunityResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !pipedomain.CanTransition(f.currentStage, req.Stage) {
		return pipetransport.OpportunityResponse{}, errors.New("invalid transition " + f.currentStage + " -> " + req.Stage)
	}
	f.currentStage = req.Stage
	f.transitions = append(f.transitions, req.Stage)
	return pipetransport.OpportunityResponse{ID: id, CurrentStage: req.Stage, ActualValue: req.ActualValue}, nil
}

func (f *fakePipeline) LinkCustomer(_ context.Context, _ uuid.UUID, _ uuid.UUID, customerID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.linked = append(f.linked, customerID)
	return nil
}

type fakeFunnel struct {
	mu        sync.Mutex
	failStage bool
	stages    []funnelsvc.StageEventParams
	touches   []float64
}

func (f *fakeFunnel) RecordStageEvent(_ context.Context, params funnelsvc.StageEventParams) (funnelrepo.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStage {
		return funnelrepo.Record{}, errors.New("funnel write failed")
	}
	f.stages = append(f.stages, params)
	return funnelrepo.Record{LeadID: params.LeadID, CurrentStage: params.Stage}, nil
}

func (f *fakeFunnel) RecordTouchpoint(_ context.Context, _ uuid.UUID, _ uuid.UUID, _ string, cost float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touches = append(f.touches, cost)
	return nil
}

type fakeTickets struct {
	mu         sync.Mutex
	failCreate bool
	created    []uuid.UUID
	closed     int
}

func (f *fakeTickets) Create(_ context.Context, _ uuid.UUID, _ uuid.UUID, _ string, _ string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return uuid.Nil, errors.New("ticket service down")
	}
	id := uuid.New()
	f.created = append(f.created, id)
	return id, nil
}

func (f *fakeTickets) CloseOpenForLead(_ context.Context, _ uuid.UUID, _ uuid.UUID, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = len(f.created)
	return f.closed, nil
}

type okNotifier struct{}

func (okNotifier) Notify(context.Context, notification.Message) (notification.Delivery, error) {
	return notification.Delivery{Status: notification.StatusSent}, nil
}

// slowNotifier blocks until the call context expires, like an SMTP server
// that accepts the connection and then hangs.
type slowNotifier struct{}

func (slowNotifier) Notify(ctx context.Context, _ notification.Message) (notification.Delivery, error) {
	<-ctx.Done()
	return notification.Delivery{Status: notification.StatusFailed}, ctx.Err()
}

type fakePayments struct {
	result payments.Result
	err    error
}

func (f *fakePayments) ProcessPayment(context.Context, payments.Request) (payments.Result, error) {
	return f.result, f.err
}

type fakeFollowUp struct {
	executionID string
	err         error
}

func (f *fakeFollowUp) StartSequence(context.Context, uuid.UUID, uuid.UUID, string, map[string]string) (string, error) {
	return f.executionID, f.err
}

type fakeJourneyRepo struct {
	mu        sync.Mutex
	customers []repository.Customer
	logs      []repository.SyncLog
}

func (f *fakeJourneyRepo) CreateCustomer(_ context.Context, params repository.CreateCustomerParams) (repository.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	customer := repository.Customer{
		ID:       uuid.New(),
		TenantID: params.TenantID,
		LeadID:   params.LeadID,
		Name:     params.Name,
		Email:    params.Email,
		Phone:    params.Phone,
	}
	f.customers = append(f.customers, customer)
	return customer, nil
}

func (f *fakeJourneyRepo) GetCustomerByID(_ context.Context, id uuid.UUID, _ uuid.UUID) (repository.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return repository.Customer{}, repository.ErrNotFound
}

func (f *fakeJourneyRepo) CreateSyncLog(_ context.Context, params repository.CreateSyncLogParams) (repository.SyncLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry := repository.SyncLog{
		ID:          uuid.New(),
		TenantID:    params.TenantID,
		LeadID:      params.LeadID,
		JourneyType: params.JourneyType,
		Status:      params.Status,
		Steps:       params.Steps,
	}
	f.logs = append(f.logs, entry)
	return entry, nil
}

func (f *fakeJourneyRepo) ListSyncLogsByLead(_ context.Context, leadID uuid.UUID, _ uuid.UUID) ([]repository.SyncLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.SyncLog, 0)
	for _, entry := range f.logs {
		if entry.LeadID == leadID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type collabCfg time.Duration

func (c collabCfg) GetCollaboratorTimeout() time.Duration { return time.Duration(c) }

type journeyFixture struct {
	svc      *Service
	leads    *fakeLeads
	pipeline *fakePipeline
	funnel   *fakeFunnel
	tickets  *fakeTickets
	payments *fakePayments
	followup *fakeFollowUp
	repo     *fakeJourneyRepo
}

func newFixture(t *testing.T, notifier ports.Notifier) *journeyFixture {
	t.Helper()
	log := logger.New("development")
	fx := &journeyFixture{
		leads:    newFakeLeads(),
		pipeline: &fakePipeline{},
		funnel:   &fakeFunnel{},
		tickets:  &fakeTickets{},
		payments: &fakePayments{result: payments.Result{Status: payments.StatusSucceeded, TransactionID: "txn-1"}},
		followup: &fakeFollowUp{executionID: "seq-1"},
		repo:     &fakeJourneyRepo{},
	}
	fx.svc = New(fx.leads, fx.pipeline, fx.funnel, fx.tickets, notifier, fx.payments, fx.followup,
		fx.repo, events.NewInMemoryBus(log), collabCfg(100*time.Millisecond), log)
	return fx
}

func captureRequest() transport.ProcessJourneyRequest {
	return transport.ProcessJourneyRequest{
		Lead: leadstransport.CaptureLeadRequest{
			FirstName:    "Nina",
			LastName:     "Okafor",
			Phone:        "+14155550100",
			Channel:      "website_direct",
			CustomerType: leadstransport.CustomerTypeIndividual,
		},
		TouchpointCost: 12.5,
		StartFollowUp:  true,
	}
}

func TestProcessJourneyAllStepsSucceed(t *testing.T) {
	fx := newFixture(t, okNotifier{})

	result, err := fx.svc.ProcessCompleteLeadJourney(context.Background(), uuid.New(), captureRequest())
	if err != nil {
		t.Fatalf("journey: %v", err)
	}
	if result.Status != transport.StatusCompleted {
		t.Fatalf("status = %s, want completed", result.Status)
	}
	if !result.LeadCreated || !result.AttributionRecorded || !result.TicketCreated || !result.NotificationSent || !result.FollowUpStarted {
		t.Fatalf("expected every step flag set, got %+v", result)
	}
	if result.TicketID == nil {
		t.Fatal("expected ticket id")
	}
	if result.FollowUpExecutionID != "seq-1" {
		t.Fatalf("execution id = %s", result.FollowUpExecutionID)
	}
	if len(fx.funnel.stages) != 1 || fx.funnel.stages[0].Stage != funneldomain.StageLeadCaptured {
		t.Fatalf("expected one lead_captured funnel event, got %+v", fx.funnel.stages)
	}
	if len(fx.funnel.touches) != 1 || fx.funnel.touches[0] != 12.5 {
		t.Fatalf("expected touchpoint cost recorded, got %v", fx.funnel.touches)
	}
	if len(fx.repo.logs) != 1 || fx.repo.logs[0].Status != transport.StatusCompleted {
		t.Fatalf("expected completed sync log, got %+v", fx.repo.logs)
	}
	if len(fx.repo.logs[0].Steps) != 5 {
		t.Fatalf("expected 5 step results, got %d", len(fx.repo.logs[0].Steps))
	}
}

func TestProcessJourneyTimingOutNotifierIsPartialSuccess(t *testing.T) {
	fx := newFixture(t, slowNotifier{})

	start := time.Now()
	result, err := fx.svc.ProcessCompleteLeadJourney(context.Background(), uuid.New(), captureRequest())
	if err != nil {
		t.Fatalf("a hanging notifier must not fail the journey: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("journey did not respect the collaborator timeout, took %v", elapsed)
	}
	if result.Status != transport.StatusPartialSuccess {
		t.Fatalf("status = %s, want partial_success", result.Status)
	}
	if result.NotificationSent {
		t.Fatal("notification step must be reported failed")
	}
	if !result.LeadCreated || !result.TicketCreated || !result.FollowUpStarted {
		t.Fatalf("other steps should still run, got %+v", result)
	}
	if len(fx.repo.logs) != 1 || fx.repo.logs[0].Status != transport.StatusPartialSuccess {
		t.Fatalf("sync log should record partial_success, got %+v", fx.repo.logs)
	}
}

func TestProcessJourneyLeadFailureAborts(t *testing.T) {
	fx := newFixture(t, okNotifier{})
	fx.leads.failCapture = true

	result, err := fx.svc.ProcessCompleteLeadJourney(context.Background(), uuid.New(), captureRequest())
	if err == nil {
		t.Fatal("expected lead creation failure to surface")
	}
	if result.Status != transport.StatusFailed {
		t.Fatalf("status = %s, want failed", result.Status)
	}
	if len(fx.tickets.created) != 0 {
		t.Fatal("no downstream step should run after a load-bearing failure")
	}
	if len(fx.repo.logs) != 1 || fx.repo.logs[0].Status != transport.StatusFailed {
		t.Fatalf("failed run must still leave a sync log, got %+v", fx.repo.logs)
	}
}

func TestProcessJourneyAttributionFailureAborts(t *testing.T) {
	fx := newFixture(t, okNotifier{})
	fx.funnel.failStage = true

	_, err := fx.svc.ProcessCompleteLeadJourney(context.Background(), uuid.New(), captureRequest())
	if err == nil {
		t.Fatal("expected attribution failure to surface")
	}
	if len(fx.tickets.created) != 0 {
		t.Fatal("ticket step must not run after attribution fails")
	}
}

func TestProcessJourneyTicketFailureContinues(t *testing.T) {
	fx := newFixture(t, okNotifier{})
	fx.tickets.failCreate = true

	result, err := fx.svc.ProcessCompleteLeadJourney(context.Background(), uuid.New(), captureRequest())
	if err != nil {
		t.Fatalf("journey: %v", err)
	}
	if result.Status != transport.StatusPartialSuccess {
		t.Fatalf("status = %s, want partial_success", result.Status)
	}
	if result.TicketCreated {
		t.Fatal("ticket step must be reported failed")
	}
	if !result.NotificationSent || !result.FollowUpStarted {
		t.Fatalf("later steps should still run, got %+v", result)
	}
}

func (fx *journeyFixture) captureLead(t *testing.T) uuid.UUID {
	t.Helper()
	lead, err := fx.leads.Capture(context.Background(), uuid.New(), captureRequest().Lead)
	if err != nil {
		t.Fatalf("seed lead: %v", err)
	}
	return lead.ID
}

func TestConvertLeadWalksPipelineToWon(t *testing.T) {
	fx := newFixture(t, okNotifier{})
	leadID := fx.captureLead(t)

	result, err := fx.svc.ConvertLeadToCustomer(context.Background(), leadID, uuid.New(), transport.ConvertLeadRequest{
		Title: "Serengeti safari package",
		Value: 8400,
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if result.Status != transport.StatusCompleted {
		t.Fatalf("status = %s, want completed", result.Status)
	}

	want := []string{pipedomain.StageClosing, pipedomain.StageClosedWon}
	if len(fx.pipeline.transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", fx.pipeline.transitions, want)
	}
	for i, stage := range want {
		if fx.pipeline.transitions[i] != stage {
			t.Fatalf("transition %d = %s, want %s", i, fx.pipeline.transitions[i], stage)
		}
	}
	if len(fx.pipeline.linked) != 1 || fx.pipeline.linked[0] != result.CustomerID {
		t.Fatalf("expected customer linked to opportunity, got %v", fx.pipeline.linked)
	}
	if result.LeadStatus != "converted" {
		t.Fatalf("lead status = %s, want converted", result.LeadStatus)
	}

	var closedWon bool
	for _, stage := range fx.funnel.stages {
		if stage.Stage == funneldomain.StageClosedWon && stage.Value == 8400 {
			closedWon = true
		}
	}
	if !closedWon {
		t.Fatal("expected closed_won funnel event with the conversion value")
	}
}

func TestConvertLeadPaymentDeclinedKeepsRecords(t *testing.T) {
	fx := newFixture(t, okNotifier{})
	fx.payments.result = payments.Result{Status: payments.StatusDeclined, FailureReason: "insufficient_funds"}
	leadID := fx.captureLead(t)

	result, err := fx.svc.ConvertLeadToCustomer(context.Background(), leadID, uuid.New(), transport.ConvertLeadRequest{
		Title:   "Kyoto food tour",
		Value:   2100,
		Payment: &transport.PaymentDetails{Amount: 2100, MethodToken: "tok_visa"},
	})
	if err != nil {
		t.Fatalf("a declined payment is not an error: %v", err)
	}
	if result.PaymentStatus != payments.StatusDeclined {
		t.Fatalf("payment status = %s, want declined", result.PaymentStatus)
	}
	if result.PaymentFailureReason != "insufficient_funds" {
		t.Fatalf("failure reason = %s", result.PaymentFailureReason)
	}
	if result.Status != transport.StatusPartialSuccess {
		t.Fatalf("status = %s, want partial_success", result.Status)
	}
	// Everything else stays committed.
	if len(fx.repo.customers) != 1 {
		t.Fatal("customer record must survive a declined payment")
	}
	if result.LeadStatus != "converted" {
		t.Fatalf("lead status = %s, want converted", result.LeadStatus)
	}
	if fx.pipeline.currentStage != pipedomain.StageClosedWon {
		t.Fatalf("opportunity stage = %s, want closed_won", fx.pipeline.currentStage)
	}
}

func TestConvertLeadClosesOpenTickets(t *testing.T) {
	fx := newFixture(t, okNotifier{})
	leadID := fx.captureLead(t)
	if _, err := fx.tickets.Create(context.Background(), uuid.New(), leadID, "follow up", "normal"); err != nil {
		t.Fatalf("seed ticket: %v", err)
	}

	result, err := fx.svc.ConvertLeadToCustomer(context.Background(), leadID, uuid.New(), transport.ConvertLeadRequest{
		Title:         "Alps hiking week",
		Value:         3200,
		StartFollowUp: true,
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if result.TicketsClosed != 1 {
		t.Fatalf("tickets closed = %d, want 1", result.TicketsClosed)
	}
	if result.FollowUpExecutionID != "seq-1" {
		t.Fatalf("follow-up execution id = %s", result.FollowUpExecutionID)
	}
}
