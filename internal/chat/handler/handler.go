package handler

import (
	"io"
	"net/http"

	"leadchat_backend/internal/chat/service"
	"leadchat_backend/internal/chat/transport"
	"leadchat_backend/platform/apperr"
	"leadchat_backend/platform/httpkit"
	"leadchat_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	maxSubmissionBytes  = 16 << 10
)

// Handler serves the chat widget and the strict intake form.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the conversation routes on rg.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Start)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/messages", h.Turn)
	rg.POST("/:id/estimate", h.Estimate)

	intake := rg.Group("/:id/intake")
	intake.POST("/submit", h.SubmitPhase)
	intake.POST("/back", h.BackPhase)
	intake.POST("/reset", h.ResetGate)
}

// Start handles POST /api/v1/conversations
func (h *Handler) Start(c *gin.Context) {
	result, err := h.svc.Start(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// Get handles GET /api/v1/conversations/:id
func (h *Handler) Get(c *gin.Context) {
	result, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Turn handles POST /api/v1/conversations/:id/messages
func (h *Handler) Turn(c *gin.Context) {
	var req transport.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgValidationFailed).WithDetails(validator.FieldNames(err)))
		return
	}

	result, err := h.svc.HandleTurn(c.Request.Context(), c.Param("id"), req.Message)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Estimate handles POST /api/v1/conversations/:id/estimate
func (h *Handler) Estimate(c *gin.Context) {
	result, err := h.svc.Estimate(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SubmitPhase handles POST /api/v1/conversations/:id/intake/submit. The body
// is the form for the gate's current phase.
func (h *Handler) SubmitPhase(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSubmissionBytes))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.SubmitPhase(c.Request.Context(), c.Param("id"), raw)
	if httpkit.HandleError(c, err) {
		return
	}
	if len(result.Errors) > 0 {
		httpkit.JSON(c, http.StatusUnprocessableEntity, result)
		return
	}
	httpkit.OK(c, result)
}

// BackPhase handles POST /api/v1/conversations/:id/intake/back
func (h *Handler) BackPhase(c *gin.Context) {
	result, err := h.svc.BackPhase(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ResetGate handles POST /api/v1/conversations/:id/intake/reset
func (h *Handler) ResetGate(c *gin.Context) {
	result, err := h.svc.ResetGate(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
