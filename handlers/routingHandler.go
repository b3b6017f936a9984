package handlers

import (
	"Meduroam/repositories"
	"Meduroam/services"

	"github.com/gin-gonic/gin"
)

type RoutingHandler struct {
	orchestrator *services.Orchestrator
	consultRepo  *repositories.ConsultationRepository
}

func NewRoutingHandler(orchestrator *services.Orchestrator, consultRepo *repositories.ConsultationRepository) *RoutingHandler {
	return &RoutingHandler{orchestrator: orchestrator, consultRepo: consultRepo}
}

// GenerateRoutingPlan runs care routing for a consult in CARE_ROUTING
// and completes the workflow.
func (h *RoutingHandler) GenerateRoutingPlan(c *gin.Context) {
	plan, err := h.orchestrator.CompleteRouting(c.Request.Context(), c.Param("consult_id"))
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(201, plan)
}

// GetRoutingPlan returns the generated plan for a completed consult.
func (h *RoutingHandler) GetRoutingPlan(c *gin.Context) {
	consult, err := h.orchestrator.GetConsultation(c.Request.Context(), c.Param("consult_id"))
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	if consult.RoutingPlanID == "" {
		c.JSON(404, gin.H{"error": "No routing plan generated for this consultation"})
		return
	}
	plan, err := h.consultRepo.GetRoutingPlan(c.Request.Context(), consult.RoutingPlanID)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, plan)
}
