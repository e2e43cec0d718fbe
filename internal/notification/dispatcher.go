package notification

import (
	"context"
	"time"

	"tourcrm_backend/platform/logger"
)

const sendTimeout = 20 * time.Second

// Dispatcher fans messages out to the configured sender. Failures are logged
// and swallowed so callers on the hot path never wait on or fail with email.
type Dispatcher struct {
	sender    Sender
	salesTeam string
	log       *logger.Logger
}

func NewDispatcher(sender Sender, salesTeamAddress string, log *logger.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, salesTeam: salesTeamAddress, log: log}
}

// Notify sends a message and reports the delivery outcome. A transport error
// is returned so callers that track per-step status (the journey) can record
// it, but delivery failure is never fatal to anything.
func (d *Dispatcher) Notify(ctx context.Context, msg Message) (Delivery, error) {
	if msg.Recipient == "" {
		msg.Recipient = d.salesTeam
	}
	if msg.Recipient == "" {
		return Delivery{Status: StatusSkipped}, nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	delivery, err := d.sender.Send(sendCtx, msg)
	if err != nil {
		d.log.Error("notification delivery failed", "error", err, "type", msg.Type, "recipient", msg.Recipient)
		return delivery, err
	}
	return delivery, nil
}

// NotifyAsync fires a notification without waiting. Used by event handlers.
func (d *Dispatcher) NotifyAsync(msg Message) {
	if msg.Recipient == "" {
		msg.Recipient = d.salesTeam
	}
	if msg.Recipient == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if _, err := d.sender.Send(ctx, msg); err != nil {
			d.log.Error("notification delivery failed", "error", err, "type", msg.Type)
		}
	}()
}
