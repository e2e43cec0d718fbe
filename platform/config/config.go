// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq background worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// EmailConfig provides settings for the SMTP notification sender.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetSalesTeamAddress() string
}

// PaymentConfig provides settings for the payment gateway client.
type PaymentConfig interface {
	GetPaymentGatewayURL() string
	GetPaymentGatewayAPIKey() string
	GetPaymentTimeout() time.Duration
	IsPaymentEnabled() bool
}

// FollowUpConfig provides settings for the AI follow-up sequencer.
type FollowUpConfig interface {
	GetFollowUpAPIURL() string
	GetFollowUpAPIKey() string
	GetFollowUpModel() string
	GetFollowUpTimeout() time.Duration
	IsFollowUpEnabled() bool
}

// PipelineConfig provides pipeline template settings.
type PipelineConfig interface {
	GetPipelineTemplatesFile() string
	GetPredictionWorkers() int
}

// ScoringConfig provides scoring weight settings.
type ScoringConfig interface {
	GetScoringWeightsFile() string
	GetScoreCacheTTL() time.Duration
}

// CollaboratorConfig provides timeout bounds for best-effort collaborator calls.
type CollaboratorConfig interface {
	GetCollaboratorTimeout() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	JWTAccessSecret       string
	CORSAllowAll          bool
	CORSOrigins           []string
	CORSAllowCreds        bool
	RedisURL              string
	RedisTLSInsecure      bool
	AsynqQueueName        string
	AsynqConcurrency      int
	EmailEnabled          bool
	SMTPHost              string
	SMTPPort              int
	SMTPUsername          string
	SMTPPassword          string
	EmailFromName         string
	EmailFromAddress      string
	SalesTeamAddress      string
	PaymentGatewayURL     string
	PaymentGatewayAPIKey  string
	PaymentTimeout        time.Duration
	FollowUpAPIURL        string
	FollowUpAPIKey        string
	FollowUpModel         string
	FollowUpTimeout       time.Duration
	PipelineTemplatesFile string
	PredictionWorkers     int
	ScoringWeightsFile    string
	ScoreCacheTTL         time.Duration
	CollaboratorTimeout   time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetSalesTeamAddress() string { return c.SalesTeamAddress }

// PaymentConfig implementation
func (c *Config) GetPaymentGatewayURL() string    { return c.PaymentGatewayURL }
func (c *Config) GetPaymentGatewayAPIKey() string { return c.PaymentGatewayAPIKey }
func (c *Config) GetPaymentTimeout() time.Duration {
	return c.PaymentTimeout
}
func (c *Config) IsPaymentEnabled() bool { return c.PaymentGatewayAPIKey != "" }

// FollowUpConfig implementation
func (c *Config) GetFollowUpAPIURL() string { return c.FollowUpAPIURL }
func (c *Config) GetFollowUpAPIKey() string { return c.FollowUpAPIKey }
func (c *Config) GetFollowUpModel() string  { return c.FollowUpModel }
func (c *Config) GetFollowUpTimeout() time.Duration {
	return c.FollowUpTimeout
}
func (c *Config) IsFollowUpEnabled() bool { return c.FollowUpAPIURL != "" }

// PipelineConfig implementation
func (c *Config) GetPipelineTemplatesFile() string { return c.PipelineTemplatesFile }
func (c *Config) GetPredictionWorkers() int        { return c.PredictionWorkers }

// ScoringConfig implementation
func (c *Config) GetScoringWeightsFile() string   { return c.ScoringWeightsFile }
func (c *Config) GetScoreCacheTTL() time.Duration { return c.ScoreCacheTTL }

// CollaboratorConfig implementation
func (c *Config) GetCollaboratorTimeout() time.Duration { return c.CollaboratorTimeout }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		JWTAccessSecret:       getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:          corsAllowAll,
		CORSOrigins:           corsOrigins,
		CORSAllowCreds:        strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:              getEnv("REDIS_URL", ""),
		RedisTLSInsecure:      strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:      getIntEnv("ASYNQ_CONCURRENCY", 10),
		EmailEnabled:          strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true"),
		SMTPHost:              getEnv("SMTP_HOST", ""),
		SMTPPort:              getIntEnv("SMTP_PORT", 587),
		SMTPUsername:          getEnv("SMTP_USERNAME", ""),
		SMTPPassword:          getEnv("SMTP_PASSWORD", ""),
		EmailFromName:         getEnv("EMAIL_FROM_NAME", "Tour CRM"),
		EmailFromAddress:      getEnv("EMAIL_FROM_ADDRESS", ""),
		SalesTeamAddress:      getEnv("SALES_TEAM_ADDRESS", ""),
		PaymentGatewayURL:     getEnv("PAYMENT_GATEWAY_URL", ""),
		PaymentGatewayAPIKey:  getEnv("PAYMENT_GATEWAY_API_KEY", ""),
		PaymentTimeout:        mustDuration(getEnv("PAYMENT_TIMEOUT", "20s")),
		FollowUpAPIURL:        getEnv("FOLLOWUP_API_URL", ""),
		FollowUpAPIKey:        getEnv("FOLLOWUP_API_KEY", ""),
		FollowUpModel:         getEnv("FOLLOWUP_MODEL", "kimi-k2-turbo-preview"),
		FollowUpTimeout:       mustDuration(getEnv("FOLLOWUP_TIMEOUT", "30s")),
		PipelineTemplatesFile: getEnv("PIPELINE_TEMPLATES_FILE", ""),
		PredictionWorkers:     getIntEnv("PREDICTION_WORKERS", 4),
		ScoringWeightsFile:    getEnv("SCORING_WEIGHTS_FILE", ""),
		ScoreCacheTTL:         mustDuration(getEnv("SCORE_CACHE_TTL", "5m")),
		CollaboratorTimeout:   mustDuration(getEnv("COLLABORATOR_TIMEOUT", "10s")),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustDuration(value string) time.Duration {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return parsed
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
