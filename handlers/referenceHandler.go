package handlers

import (
	"Meduroam/models"
	"Meduroam/services"

	"github.com/gin-gonic/gin"
)

// ReferenceHandler serves the static policy tables: who may move the
// workflow where, and how care options are scored. Clients render these
// instead of hardcoding the rules.
type ReferenceHandler struct{}

func NewReferenceHandler() *ReferenceHandler {
	return &ReferenceHandler{}
}

func (h *ReferenceHandler) GetTransitionPolicy(c *gin.Context) {
	c.JSON(200, gin.H{
		"transitions":    models.StateTransitionPolicy,
		"provider_types": models.AllProviderTypes,
	})
}

func (h *ReferenceHandler) GetScoringRubric(c *gin.Context) {
	c.JSON(200, services.ScoringRubric())
}

func (h *ReferenceHandler) GetReviewGuide(c *gin.Context) {
	c.JSON(200, services.StudentReviewGuide())
}
