// Bus infrastructure lives in platform/events; modules import this
// package for both the typed events and the bus.
package events

import (
	platformevents "tourcrm_backend/platform/events"
	"tourcrm_backend/platform/logger"
)

// InMemoryBus aliases the platform implementation.
type InMemoryBus = platformevents.InMemoryBus

// NewInMemoryBus creates a process-local event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
