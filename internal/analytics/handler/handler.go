package handler

import (
	"errors"
	"net/http"

	"tourcrm_backend/internal/analytics/service"
	"tourcrm_backend/internal/analytics/transport"
	funnelrepo "tourcrm_backend/internal/funnel/repository"
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
	rg.GET("/funnel", h.FunnelReport)
	rg.GET("/channels", h.ChannelReport)
	rg.GET("/attribution/:leadId", h.Attribution)
	rg.GET("/cohorts", h.CohortReport)
	rg.GET("/clv/:customerId", h.CLV)
}

func (h *Handler) FunnelReport(c *gin.Context) {
	var req transport.WindowRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	report, err := h.svc.FunnelReport(c.Request.Context(), httpkit.MustGetIdentity(c).TenantID(), req.Days)
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	httpkit.OK(c, report)
}

func (h *Handler) ChannelReport(c *gin.Context) {
	var req transport.WindowRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	report, err := h.svc.ChannelReport(c.Request.Context(), httpkit.MustGetIdentity(c).TenantID(), req.Days)
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	httpkit.OK(c, report)
}

func (h *Handler) Attribution(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.AttributionRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	report, err := h.svc.Attribution(c.Request.Context(), httpkit.MustGetIdentity(c).TenantID(), leadID, req.Model)
	if err != nil {
		if errors.Is(err, funnelrepo.ErrNotFound) {
			httpkit.Error(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	httpkit.OK(c, report)
}

func (h *Handler) CohortReport(c *gin.Context) {
	report, err := h.svc.CohortReport(c.Request.Context(), httpkit.MustGetIdentity(c).TenantID(), c.Query("period"))
	if err != nil {
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	httpkit.OK(c, report)
}

func (h *Handler) CLV(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("customerId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	clv, err := h.svc.CLV(c.Request.Context(), httpkit.MustGetIdentity(c).TenantID(), customerID)
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	httpkit.OK(c, clv)
}
