package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs
type WindowRequest struct {
	Days int `form:"days" validate:"omitempty,min=1,max=730"`
}

type AttributionRequest struct {
	Model string `form:"model" validate:"required,oneof=first_touch last_touch linear time_decay position_based"`
}

// Response DTOs
type FunnelStageMetrics struct {
	Stage          string  `json:"stage"`
	Count          int     `json:"count"`
	ConversionRate float64 `json:"conversionRate"`
	AvgHoursToNext float64 `json:"avgHoursToNext,omitempty"`
}

type FunnelAnalysisResponse struct {
	Stages            []FunnelStageMetrics `json:"stages"`
	OverallConversion float64              `json:"overallConversion"`
	TotalLeads        int                  `json:"totalLeads"`
	WindowDays        int                  `json:"windowDays"`
}

type ChannelMetrics struct {
	Channel            string  `json:"channel"`
	Leads              int     `json:"leads"`
	Qualified          int     `json:"qualified"`
	Conversions        int     `json:"conversions"`
	QualificationRate  float64 `json:"qualificationRate"`
	ConversionRate     float64 `json:"conversionRate"`
	Revenue            float64 `json:"revenue"`
	Cost               float64 `json:"cost"`
	CostPerLead        float64 `json:"costPerLead"`
	CostPerAcquisition float64 `json:"costPerAcquisition"`
	RevenuePerLead     float64 `json:"revenuePerLead"`
	ROIPercent         float64 `json:"roiPercent"`
	ROAS               float64 `json:"roas"`
	AvgHoursToContact  float64 `json:"avgHoursToContact,omitempty"`
	AvgHoursToQualify  float64 `json:"avgHoursToQualify,omitempty"`
	AvgHoursToConvert  float64 `json:"avgHoursToConvert,omitempty"`
}

type ChannelPerformanceResponse struct {
	Channels   []ChannelMetrics `json:"channels"`
	WindowDays int              `json:"windowDays"`
}

type AttributionCredit struct {
	Channel string  `json:"channel"`
	Credit  float64 `json:"credit"`
	Weight  float64 `json:"weight"`
}

type AttributionResponse struct {
	LeadID          uuid.UUID           `json:"leadId"`
	Model           string              `json:"model"`
	ConversionValue float64             `json:"conversionValue"`
	Credits         []AttributionCredit `json:"credits"`
}

type CohortRetentionPoint struct {
	MonthOffset int     `json:"monthOffset"`
	Retention   float64 `json:"retention"`
	Projected   bool    `json:"projected"`
}

type CohortMetrics struct {
	Cohort    string                 `json:"cohort"`
	Size      int                    `json:"size"`
	Revenue   float64                `json:"revenue"`
	Retention []CohortRetentionPoint `json:"retention"`
}

type CohortAnalysisResponse struct {
	Cohorts       []CohortMetrics `json:"cohorts"`
	Period        string          `json:"period"`
	Method        string          `json:"method"`
	HorizonMonths int             `json:"horizonMonths"`
}

type CLVResponse struct {
	CustomerID       uuid.UUID `json:"customerId"`
	AvgOrderValue    float64   `json:"avgOrderValue"`
	MonthlyFrequency float64   `json:"monthlyFrequency"`
	AnnualValue      float64   `json:"annualValue"`
	ThreeYearValue   float64   `json:"threeYearValue"`
	Method           string    `json:"method"`
	ComputedAt       time.Time `json:"computedAt"`
}
