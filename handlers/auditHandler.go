package handlers

import (
	"Meduroam/middlewares"
	"Meduroam/models"
	"Meduroam/repositories"
	"strconv"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditRepo *repositories.AuditRepository
}

func NewAuditHandler(auditRepo *repositories.AuditRepository) *AuditHandler {
	return &AuditHandler{auditRepo: auditRepo}
}

// GetConsultAuditTrail returns the full audit trail for one consult.
func (h *AuditHandler) GetConsultAuditTrail(c *gin.Context) {
	entries, err := h.auditRepo.ListByConsult(c.Request.Context(), c.Param("consult_id"))
	if err != nil {
		middlewares.HttpError(c, "Failed to load audit trail", 500, err)
		return
	}
	c.JSON(200, gin.H{"entries": entries})
}

// GetEventsByType returns recent audit entries of one event type.
func (h *AuditHandler) GetEventsByType(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		c.JSON(400, gin.H{"error": "Invalid limit"})
		return
	}
	entries, err := h.auditRepo.ListByEventType(c.Request.Context(), models.AuditEventType(c.Param("event_type")), limit)
	if err != nil {
		middlewares.HttpError(c, "Failed to load audit entries", 500, err)
		return
	}
	c.JSON(200, gin.H{"entries": entries})
}
