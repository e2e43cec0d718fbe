package handler

import (
	"errors"
	"net/http"

	"tourcrm_backend/internal/journey/service"
	"tourcrm_backend/internal/journey/transport"
	leadssvc "tourcrm_backend/internal/leads/service"
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
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Process)
	rg.POST("/:leadId/convert", h.Convert)
	rg.GET("/:leadId/logs", h.SyncLogs)
}

// Process runs the complete lead journey. Partial successes come back 200
// with per-step statuses; only a load-bearing failure errors out.
func (h *Handler) Process(c *gin.Context) {
	var req transport.ProcessJourneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.ProcessCompleteLeadJourney(c.Request.Context(), httpkit.MustGetIdentity(c).TenantID(), req)
	if err != nil {
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	httpkit.Created(c, result)
}

func (h *Handler) Convert(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.ConvertLeadRequest
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

	result, err := h.svc.ConvertLeadToCustomer(c.Request.Context(), leadID, identity.TenantID(), req)
	if err != nil {
		if errors.Is(err, leadssvc.ErrLeadNotFound) {
			httpkit.Error(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) SyncLogs(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	logs, err := h.svc.SyncLogs(c.Request.Context(), leadID, httpkit.MustGetIdentity(c).TenantID())
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	httpkit.OK(c, logs)
}
