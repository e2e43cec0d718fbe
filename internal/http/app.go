// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"

	"tourcrm_backend/internal/events"
	"tourcrm_backend/platform/config"
	"tourcrm_backend/platform/logger"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App carries the wired application dependencies from the composition
// root in cmd/api into the router.
type App struct {
	// Config holds the router configuration (HTTP and JWT settings only).
	Config RouterConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health is used for readiness/health checks (e.g., DB ping).
	Health HealthChecker
	// EventBus is the domain event bus for cross-module communication.
	EventBus events.Bus
	// Modules lists every domain module that registers HTTP routes.
	Modules []Module
}
