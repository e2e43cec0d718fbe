package transport

import (
	"time"

	"github.com/google/uuid"
)

// Enum values
type CustomerType string

const (
	CustomerTypeIndividual CustomerType = "b2c_individual"
	CustomerTypeCorporate  CustomerType = "b2b_corporate"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type InteractionType string

const (
	InteractionTypeCall    InteractionType = "call"
	InteractionTypeEmail   InteractionType = "email"
	InteractionTypeMeeting InteractionType = "meeting"
	InteractionTypeChat    InteractionType = "chat"
	InteractionTypeNote    InteractionType = "note"
)

// Request DTOs
type CaptureLeadRequest struct {
	FirstName       string       `json:"firstName" validate:"required,min=1,max=100"`
	LastName        string       `json:"lastName" validate:"required,min=1,max=100"`
	Phone           string       `json:"phone" validate:"required,min=5,max=20"`
	Email           string       `json:"email,omitempty" validate:"omitempty,email"`
	Company         string       `json:"company,omitempty" validate:"max=200"`
	Channel         string       `json:"channel" validate:"required,min=1,max=100"`
	Source          string       `json:"source,omitempty" validate:"max=100"`
	CustomerType    CustomerType `json:"customerType" validate:"required,oneof=b2c_individual b2b_corporate"`
	Country         string       `json:"country,omitempty" validate:"omitempty,len=2"`
	Interests       []string     `json:"interests,omitempty" validate:"max=20,dive,max=100"`
	TourPreferences string       `json:"tourPreferences,omitempty" validate:"max=2000"`
	BudgetRange     string       `json:"budgetRange,omitempty" validate:"max=50"`
	EstimatedValue  *float64     `json:"estimatedValue,omitempty" validate:"omitempty,gte=0"`
	Priority        Priority     `json:"priority,omitempty" validate:"omitempty,oneof=low normal high urgent"`
	UTMSource       string       `json:"utmSource,omitempty" validate:"max=200"`
	UTMMedium       string       `json:"utmMedium,omitempty" validate:"max=200"`
	UTMCampaign     string       `json:"utmCampaign,omitempty" validate:"max=200"`
	AssignedAgentID *uuid.UUID   `json:"assignedAgentId,omitempty"`
}

type RecordInteractionRequest struct {
	Type             InteractionType `json:"type" validate:"required,oneof=call email meeting chat note"`
	Direction        string          `json:"direction" validate:"required,oneof=inbound outbound"`
	Sentiment        *float64        `json:"sentiment,omitempty" validate:"omitempty,gte=-1,lte=1"`
	DurationSeconds  *int            `json:"durationSeconds,omitempty" validate:"omitempty,gte=0"`
	Notes            string          `json:"notes,omitempty" validate:"max=5000"`
	FollowUpRequired bool            `json:"followUpRequired"`
	FollowUpAt       *time.Time      `json:"followUpAt,omitempty"`
}

type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new contacted qualified proposal_sent negotiating won lost nurturing unqualified converted"`
}

type ListLeadsRequest struct {
	Status string `form:"status" validate:"omitempty,oneof=new contacted qualified proposal_sent negotiating won lost nurturing unqualified converted"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=200"`
}

// Response DTOs
type LeadResponse struct {
	ID                    uuid.UUID  `json:"id"`
	FirstName             string     `json:"firstName"`
	LastName              string     `json:"lastName"`
	Phone                 string     `json:"phone"`
	Email                 *string    `json:"email,omitempty"`
	Company               *string    `json:"company,omitempty"`
	Channel               string     `json:"channel"`
	Source                *string    `json:"source,omitempty"`
	Status                string     `json:"status"`
	LeadScore             float64    `json:"leadScore"`
	ConversionProbability float64    `json:"conversionProbability"`
	EstimatedValue        *float64   `json:"estimatedValue,omitempty"`
	CustomerType          string     `json:"customerType"`
	Country               *string    `json:"country,omitempty"`
	Interests             []string   `json:"interests,omitempty"`
	TourPreferences       *string    `json:"tourPreferences,omitempty"`
	BudgetRange           *string    `json:"budgetRange,omitempty"`
	Priority              string     `json:"priority"`
	AssignedAgentID       *uuid.UUID `json:"assignedAgentId,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

type InteractionResponse struct {
	ID               uuid.UUID  `json:"id"`
	LeadID           uuid.UUID  `json:"leadId"`
	Type             string     `json:"type"`
	Direction        string     `json:"direction"`
	Sentiment        *float64   `json:"sentiment,omitempty"`
	DurationSeconds  *int       `json:"durationSeconds,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	FollowUpRequired bool       `json:"followUpRequired"`
	FollowUpAt       *time.Time `json:"followUpAt,omitempty"`
	FollowUpDone     bool       `json:"followUpDone"`
	CreatedAt        time.Time  `json:"createdAt"`
}

type ScoreResponse struct {
	LeadID                uuid.UUID          `json:"leadId"`
	Score                 float64            `json:"score"`
	ConversionProbability float64            `json:"conversionProbability"`
	Factors               map[string]float64 `json:"factors"`
	Version               string             `json:"version"`
	UpdatedAt             time.Time          `json:"updatedAt"`
}
