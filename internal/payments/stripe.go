// Package payments charges customers through Stripe. A declined card is a
// normal business outcome here, not an error; only transport failures and
// unexpected API errors error out.
package payments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"tourcrm_backend/platform/config"
	"tourcrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

const (
	StatusSucceeded = "succeeded"
	StatusDeclined  = "declined"
	StatusSkipped   = "skipped"
)

type Request struct {
	TenantID    uuid.UUID
	CustomerID  uuid.UUID
	Amount      float64
	Currency    string
	MethodToken string
	Description string
}

type Result struct {
	Status        string
	TransactionID string
	FailureReason string
}

// intentCreator matches paymentintent.New so tests can stand in for Stripe.
type intentCreator func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)

type Gateway struct {
	enabled bool
	timeout time.Duration
	create  intentCreator
	log     *logger.Logger
}

func NewGateway(cfg config.PaymentConfig, log *logger.Logger) *Gateway {
	stripe.Key = cfg.GetPaymentGatewayAPIKey()
	if url := cfg.GetPaymentGatewayURL(); url != "" {
		// Local development points at stripe-mock.
		stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL: stripe.String(url),
		}))
	}

	timeout := cfg.GetPaymentTimeout()
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Gateway{
		enabled: cfg.IsPaymentEnabled(),
		timeout: timeout,
		create:  paymentintent.New,
		log:     log,
	}
}

// ProcessPayment confirms a payment intent for the customer's saved method.
// Declines come back as a Result with status declined and a nil error; the
// error path is reserved for Stripe being unreachable or rejecting the call
// outright.
func (g *Gateway) ProcessPayment(ctx context.Context, req Request) (Result, error) {
	if !g.enabled {
		return Result{Status: StatusSkipped}, nil
	}
	currency := req.Currency
	if currency == "" {
		currency = "eur"
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(int64(math.Round(req.Amount * 100))),
		Currency:      stripe.String(strings.ToLower(currency)),
		PaymentMethod: stripe.String(req.MethodToken),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	params.Context = ctx
	params.AddMetadata("tenant_id", req.TenantID.String())
	params.AddMetadata("customer_id", req.CustomerID.String())

	intent, err := g.create(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			reason := stripeErr.DeclineCode
			if reason == "" {
				reason = stripe.DeclineCode(stripeErr.Code)
			}
			g.log.Warn("payment declined", "customerId", req.CustomerID, "reason", reason)
			result := Result{Status: StatusDeclined, FailureReason: string(reason)}
			if stripeErr.PaymentIntent != nil {
				result.TransactionID = stripeErr.PaymentIntent.ID
			}
			return result, nil
		}
		return Result{}, fmt.Errorf("stripe payment intent: %w", err)
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusProcessing:
		return Result{Status: StatusSucceeded, TransactionID: intent.ID}, nil
	default:
		g.log.Warn("payment not completed", "customerId", req.CustomerID, "intentStatus", intent.Status)
		return Result{Status: StatusDeclined, TransactionID: intent.ID, FailureReason: string(intent.Status)}, nil
	}
}
