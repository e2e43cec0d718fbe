package handler

import (
	"errors"
	"net/http"

	"tourcrm_backend/internal/leads/service"
	"tourcrm_backend/internal/leads/transport"
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

// RegisterPublicRoutes mounts the unauthenticated intake endpoint. The tenant
// is addressed by path because capture forms are embedded on operator sites.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/capture/:tenantId", h.Capture)
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.DELETE("/:id", h.Delete)
	rg.PATCH("/:id/status", h.ChangeStatus)
	rg.GET("/:id/score", h.Score)
	rg.GET("/:id/interactions", h.ListInteractions)
	rg.POST("/:id/interactions", h.RecordInteraction)
}

func (h *Handler) Capture(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenantId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	h.capture(c, tenantID)
}

// Create is the authenticated variant of Capture used by agents entering
// leads manually. The tenant comes from the caller's token.
func (h *Handler) Create(c *gin.Context) {
	h.capture(c, httpkit.MustGetIdentity(c).TenantID())
}

func (h *Handler) capture(c *gin.Context, tenantID uuid.UUID) {
	var req transport.CaptureLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.svc.Capture(c.Request.Context(), tenantID, req)
	if err != nil {
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	httpkit.Created(c, lead)
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	leads, err := h.svc.List(c.Request.Context(), httpkit.MustGetIdentity(c).TenantID(), req)
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	httpkit.OK(c, leads)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), id, httpkit.MustGetIdentity(c).TenantID())
	if err != nil {
		if errors.Is(err, service.ErrLeadNotFound) {
			httpkit.Error(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id, httpkit.MustGetIdentity(c).TenantID()); err != nil {
		if errors.Is(err, service.ErrLeadNotFound) {
			httpkit.Error(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ChangeStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.svc.ChangeStatus(c.Request.Context(), id, httpkit.MustGetIdentity(c).TenantID(), req.Status)
	if err != nil {
		if errors.Is(err, service.ErrLeadNotFound) {
			httpkit.Error(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) Score(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	score, err := h.svc.Score(c.Request.Context(), id, httpkit.MustGetIdentity(c).TenantID())
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	httpkit.OK(c, score)
}

func (h *Handler) ListInteractions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	interactions, err := h.svc.ListInteractions(c.Request.Context(), id, httpkit.MustGetIdentity(c).TenantID())
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	httpkit.OK(c, interactions)
}

func (h *Handler) RecordInteraction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.RecordInteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	interaction, err := h.svc.RecordInteraction(c.Request.Context(), id, httpkit.MustGetIdentity(c).TenantID(), req)
	if err != nil {
		if errors.Is(err, service.ErrLeadNotFound) {
			httpkit.Error(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	httpkit.Created(c, interaction)
}
