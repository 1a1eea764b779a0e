package api

import (
	"net/http"

	"campus-support/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// EscalationHandler hands conversations over to human staff
type EscalationHandler struct {
	escalations *service.EscalationService
}

// NewEscalationHandler creates a new escalation handler
func NewEscalationHandler(escalations *service.EscalationService) *EscalationHandler {
	return &EscalationHandler{escalations: escalations}
}

// RegisterRoutes mounts POST /escalate behind the given guards
func (h *EscalationHandler) RegisterRoutes(rg *gin.RouterGroup, guards ...gin.HandlerFunc) {
	rg.POST("/escalate", withGuards(guards, h.Escalate)...)
}

type escalateRequest struct {
	ConversationID string `json:"conversation_id"`
	Category       string `json:"category"`
	Priority       string `json:"priority"`
	Subject        string `json:"subject"`
	Description    string `json:"description"`
}

// Escalate opens a support ticket
func (h *EscalationHandler) Escalate(c *gin.Context) {
	var req escalateRequest
	if !bindJSON(c, &req) {
		return
	}

	ticket, err := h.escalations.Escalate(c.Request.Context(), service.EscalateRequest{
		ConversationID: req.ConversationID,
		Category:       req.Category,
		Priority:       req.Priority,
		Subject:        req.Subject,
		Description:    req.Description,
		Requester:      actorFrom(c),
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ticket": ticket, "success": true})
}
