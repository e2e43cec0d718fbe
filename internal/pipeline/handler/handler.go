package handler

import (
	"errors"
	"net/http"

	"tourcrm_backend/internal/pipeline/prediction"
	"tourcrm_backend/internal/pipeline/service"
	"tourcrm_backend/internal/pipeline/transport"
	"tourcrm_backend/platform/httpkit"
	"tourcrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc       *service.Service
	predictor *prediction.Engine
	val       *validator.Validator
}

func New(svc *service.Service, predictor *prediction.Engine, val *validator.Validator) *Handler {
	return &Handler{svc: svc, predictor: predictor, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.POST("/:id/advance", h.AdvanceStage)
	rg.GET("/:id/activities", h.ListActivities)
	rg.GET("/:id/prediction", h.Prediction)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateOpportunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	req.Actor = identity.UserID().String()

	opp, err := h.svc.CreateOpportunity(c.Request.Context(), identity.TenantID(), req)
	if err != nil {
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	httpkit.Created(c, opp)
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListOpportunitiesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	opportunities, err := h.svc.ListByStage(c.Request.Context(), httpkit.MustGetIdentity(c).TenantID(), req.Stage, req.Limit)
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	httpkit.OK(c, opportunities)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	opp, err := h.svc.Get(c.Request.Context(), id, httpkit.MustGetIdentity(c).TenantID())
	if err != nil {
		if errors.Is(err, service.ErrOpportunityNotFound) {
			httpkit.Error(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	httpkit.OK(c, opp)
}

func (h *Handler) AdvanceStage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.AdvanceStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	req.Actor = identity.UserID().String()

	opp, err := h.svc.AdvanceStage(c.Request.Context(), id, identity.TenantID(), req)
	if err != nil {
		if errors.Is(err, service.ErrOpportunityNotFound) {
			httpkit.Error(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	httpkit.OK(c, opp)
}

func (h *Handler) ListActivities(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	activities, err := h.svc.ListActivities(c.Request.Context(), id, httpkit.MustGetIdentity(c).TenantID())
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	httpkit.OK(c, activities)
}

// Prediction serves the advisory win estimate. It never blocks a workflow:
// failures map to 503 and clients fall back to the template probability.
func (h *Handler) Prediction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.predictor.Predict(c.Request.Context(), id, httpkit.MustGetIdentity(c).TenantID())
	if err != nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "prediction unavailable", nil)
		return
	}

	httpkit.OK(c, transport.PredictionResponse{
		OpportunityID:      result.OpportunityID,
		WinProbability:     result.WinProbability,
		Confidence:         result.Confidence,
		DealSizeBucket:     result.DealSize.Bucket,
		DealSizeConfidence: result.DealSize.Confidence,
		ClosingDays:        result.ClosingTime.Days,
		ClosingConfidence:  result.ClosingTime.Confidence,
		ChurnRiskScore:     result.ChurnRisk.Score,
		ChurnConfidence:    result.ChurnRisk.Confidence,
		ModelVersion:       result.ModelVersion,
		Advisory:           true,
		ComputedAt:         result.ComputedAt,
	})
}
