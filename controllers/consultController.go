package controllers

import (
	"Meduroam/handlers"
	"Meduroam/middlewares"
	"Meduroam/models"

	"github.com/gin-gonic/gin"
)

// SetupConsultRoutes registers the consultation workflow routes. The
// route-level role gates are a first filter; the workflow engine applies
// the full transition policy on every state change.
func SetupConsultRoutes(
	router *gin.Engine,
	consultHandler *handlers.ConsultationHandler,
	routingHandler *handlers.RoutingHandler,
	auditHandler *handlers.AuditHandler,
	referenceHandler *handlers.ReferenceHandler,
) {
	consults := router.Group("/consultations").Use(middlewares.TokenAuthMiddleware())
	{
		consults.POST("", middlewares.RoleAuthMiddleware(models.RolePatient), consultHandler.StartConsultation)
		consults.GET("",
			middlewares.RoleAuthMiddleware(models.RoleMedicalStudent, models.RoleResident, models.RoleAttendingPhysician, models.RoleAdmin),
			consultHandler.ListConsultations)
		consults.GET("/:consult_id", consultHandler.GetConsultation)
		consults.GET("/:consult_id/actions", consultHandler.GetNextActions)

		consults.POST("/:consult_id/review",
			middlewares.RoleAuthMiddleware(models.RoleMedicalStudent),
			consultHandler.SubmitStudentReview)
		consults.POST("/:consult_id/response",
			middlewares.RoleAuthMiddleware(models.RolePatient),
			consultHandler.SubmitPatientResponse)
		consults.POST("/:consult_id/answers",
			middlewares.RoleAuthMiddleware(models.RoleMedicalStudent),
			consultHandler.AnswerPatientQuestions)
		consults.POST("/:consult_id/escalation",
			middlewares.RoleAuthMiddleware(models.RoleResident, models.RoleAttendingPhysician),
			consultHandler.SubmitResidentDecision)

		consults.POST("/:consult_id/routing",
			middlewares.RoleAuthMiddleware(models.RoleMedicalStudent, models.RoleResident, models.RoleAttendingPhysician),
			routingHandler.GenerateRoutingPlan)
		consults.GET("/:consult_id/routing", routingHandler.GetRoutingPlan)

		consults.GET("/:consult_id/audit",
			middlewares.RoleAuthMiddleware(models.RoleAdmin, models.RoleAttendingPhysician),
			auditHandler.GetConsultAuditTrail)
	}

	auditGroup := router.Group("/audit").Use(
		middlewares.TokenAuthMiddleware(),
		middlewares.RoleAuthMiddleware(models.RoleAdmin),
	)
	{
		auditGroup.GET("/events/:event_type", auditHandler.GetEventsByType)
	}

	// Policy tables are public reference data.
	router.GET("/reference/transitions", referenceHandler.GetTransitionPolicy)
	router.GET("/reference/scoring-rubric", referenceHandler.GetScoringRubric)
	router.GET("/reference/review-guide", referenceHandler.GetReviewGuide)
}
