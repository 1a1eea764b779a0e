package api

import (
	"net/http"

	"campus-support/backend/internal/models"
	"campus-support/backend/internal/service"
	"campus-support/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// TicketHandler serves the ticket endpoints. Every route requires a user.
type TicketHandler struct {
	tickets *service.TicketService
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(tickets *service.TicketService) *TicketHandler {
	return &TicketHandler{tickets: tickets}
}

// RegisterRoutes mounts the ticket routes
func (h *TicketHandler) RegisterRoutes(rg *gin.RouterGroup) {
	tickets := rg.Group("/tickets")
	tickets.Use(middleware.RequireAuth())
	{
		tickets.GET("", h.List)
		tickets.GET("/:id", h.Get)
		tickets.POST("/:id/reply", h.Reply)
		tickets.PATCH("/:id/status", middleware.RequireStaff(), h.UpdateStatus)
		tickets.POST("/:id/attachments", h.AddAttachment)
	}
}

// List pages through the caller's tickets, or all tickets for staff
func (h *TicketHandler) List(c *gin.Context) {
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	offset, ok := intQuery(c, "offset")
	if !ok {
		return
	}

	page, err := h.tickets.List(c.Request.Context(), actorFrom(c), service.TicketQuery{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Category: c.Query("category"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *TicketHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ticket, err := h.tickets.Get(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

type replyRequest struct {
	Message string `json:"message"`
	IsStaff bool   `json:"is_staff"`
}

// Reply posts a message on a ticket thread
func (h *TicketHandler) Reply(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req replyRequest
	if !bindJSON(c, &req) {
		return
	}

	msg, err := h.tickets.Reply(c.Request.Context(), id, actorFrom(c), req.Message, req.IsStaff)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

type statusRequest struct {
	Status models.TicketStatus `json:"status"`
}

func (h *TicketHandler) UpdateStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}

	ticket, err := h.tickets.UpdateStatus(c.Request.Context(), id, actorFrom(c), req.Status)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

type attachmentRequest struct {
	TicketMessageID *uint  `json:"ticket_message_id"`
	FileName        string `json:"file_name"`
	FileURL         string `json:"file_url"`
	ContentType     string `json:"content_type"`
	SizeBytes       int64  `json:"size_bytes"`
}

// AddAttachment records metadata for a file already uploaded to storage
func (h *TicketHandler) AddAttachment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req attachmentRequest
	if !bindJSON(c, &req) {
		return
	}

	attachment, err := h.tickets.AddAttachment(c.Request.Context(), id, actorFrom(c), service.AttachmentInput{
		TicketMessageID: req.TicketMessageID,
		FileName:        req.FileName,
		FileURL:         req.FileURL,
		ContentType:     req.ContentType,
		SizeBytes:       req.SizeBytes,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"attachment": attachment})
}
