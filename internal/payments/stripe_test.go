package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"tourcrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
)

func testGateway(create intentCreator) *Gateway {
	return &Gateway{enabled: true, timeout: 5 * time.Second, create: create, log: logger.New("test")}
}

func TestProcessPaymentDisabledSkips(t *testing.T) {
	g := &Gateway{enabled: false, log: logger.New("test")}

	result, err := g.ProcessPayment(context.Background(), Request{Amount: 100})
	if err != nil {
		t.Fatalf("ProcessPayment failed: %v", err)
	}
	if result.Status != StatusSkipped {
		t.Fatalf("status = %s, want skipped", result.Status)
	}
}

func TestProcessPaymentSucceeded(t *testing.T) {
	g := testGateway(func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		if *params.Amount != 84_00 {
			t.Fatalf("amount = %d cents, want 8400", *params.Amount)
		}
		if *params.Currency != "eur" {
			t.Fatalf("currency = %s, want eur", *params.Currency)
		}
		return &stripe.PaymentIntent{ID: "pi_123", Status: stripe.PaymentIntentStatusSucceeded}, nil
	})

	result, err := g.ProcessPayment(context.Background(), Request{
		TenantID:    uuid.New(),
		CustomerID:  uuid.New(),
		Amount:      84,
		MethodToken: "pm_card",
	})
	if err != nil {
		t.Fatalf("ProcessPayment failed: %v", err)
	}
	if result.Status != StatusSucceeded || result.TransactionID != "pi_123" {
		t.Fatalf("result = %+v, want succeeded pi_123", result)
	}
}

func TestProcessPaymentCardDeclineIsNotAnError(t *testing.T) {
	g := testGateway(func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		return nil, &stripe.Error{
			Type:          stripe.ErrorTypeCard,
			Code:          stripe.ErrorCodeCardDeclined,
			DeclineCode:   "insufficient_funds",
			PaymentIntent: &stripe.PaymentIntent{ID: "pi_declined"},
		}
	})

	result, err := g.ProcessPayment(context.Background(), Request{Amount: 100, MethodToken: "pm_card"})
	if err != nil {
		t.Fatalf("a declined card must not surface as an error, got %v", err)
	}
	if result.Status != StatusDeclined {
		t.Fatalf("status = %s, want declined", result.Status)
	}
	if result.FailureReason != "insufficient_funds" {
		t.Fatalf("failure reason = %s, want insufficient_funds", result.FailureReason)
	}
	if result.TransactionID != "pi_declined" {
		t.Fatalf("transaction id = %s, want pi_declined", result.TransactionID)
	}
}

func TestProcessPaymentTransportFailureErrors(t *testing.T) {
	g := testGateway(func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		return nil, errors.New("connection refused")
	})

	if _, err := g.ProcessPayment(context.Background(), Request{Amount: 100}); err == nil {
		t.Fatal("transport failure must surface as an error")
	}
}

func TestProcessPaymentIncompleteIntentIsDeclined(t *testing.T) {
	g := testGateway(func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		return &stripe.PaymentIntent{ID: "pi_rpm", Status: stripe.PaymentIntentStatusRequiresPaymentMethod}, nil
	})

	result, err := g.ProcessPayment(context.Background(), Request{Amount: 100})
	if err != nil {
		t.Fatalf("ProcessPayment failed: %v", err)
	}
	if result.Status != StatusDeclined {
		t.Fatalf("status = %s, want declined", result.Status)
	}
}
