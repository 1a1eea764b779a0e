package api

import (
	"net/http"

	"campus-support/backend/internal/service"
	"campus-support/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

// FAQHandler serves knowledge-base lookups
type FAQHandler struct {
	faqs *service.FAQService
}

// NewFAQHandler creates a new FAQ handler
func NewFAQHandler(faqs *service.FAQService) *FAQHandler {
	return &FAQHandler{faqs: faqs}
}

// RegisterRoutes mounts the FAQ routes
func (h *FAQHandler) RegisterRoutes(rg *gin.RouterGroup) {
	faq := rg.Group("/faq")
	{
		faq.GET("", h.List)
		faq.GET("/search", h.Search)
		faq.GET("/categories", h.Categories)
		faq.POST("/feedback", h.Feedback)
	}
}

// Search ranks FAQs for ?q= within an optional ?category=
func (h *FAQHandler) Search(c *gin.Context) {
	query := c.Query("q")
	ranked, err := h.faqs.Search(c.Request.Context(), query, c.Query("category"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"faqs":  ranked,
		"count": len(ranked),
		"query": query,
	})
}

func (h *FAQHandler) List(c *gin.Context) {
	faqs, err := h.faqs.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"faqs": faqs, "count": len(faqs)})
}

func (h *FAQHandler) Categories(c *gin.Context) {
	categories, err := h.faqs.Categories(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	if categories == nil {
		categories = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

type feedbackRequest struct {
	FAQID   uint  `json:"faqId"`
	Helpful *bool `json:"helpful"`
}

// Feedback records whether an FAQ helped
func (h *FAQHandler) Feedback(c *gin.Context) {
	var req feedbackRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Helpful == nil {
		c.Error(errors.InvalidArgument("helpful is required"))
		return
	}
	if err := h.faqs.RecordFeedback(c.Request.Context(), req.FAQID, *req.Helpful); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
