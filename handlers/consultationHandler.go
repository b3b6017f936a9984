package handlers

import (
	"Meduroam/middlewares"
	"Meduroam/models"
	"Meduroam/repositories"
	"Meduroam/services"
	"errors"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type ConsultationHandler struct {
	orchestrator *services.Orchestrator
}

func NewConsultationHandler(orchestrator *services.Orchestrator) *ConsultationHandler {
	return &ConsultationHandler{orchestrator: orchestrator}
}

// respondWorkflowError maps domain errors to HTTP statuses. Validation
// failures return the full field-keyed violation map in one response.
func respondWorkflowError(c *gin.Context, err error) {
	var fieldErrors validation.Errors
	switch {
	case errors.As(err, &fieldErrors):
		c.JSON(422, gin.H{"error": "validation failed", "fields": fieldErrors})
	case errors.Is(err, services.ErrPermissionDenied):
		c.JSON(403, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(409, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrRoutingNotPending):
		c.JSON(409, gin.H{"error": err.Error()})
	case errors.Is(err, repositories.ErrConsultationNotFound):
		c.JSON(404, gin.H{"error": err.Error()})
	default:
		c.JSON(500, gin.H{"error": err.Error()})
	}
}

type startConsultationRequest struct {
	Patient    models.Patient    `json:"patient"`
	Transcript models.Transcript `json:"transcript"`
}

func (h *ConsultationHandler) StartConsultation(c *gin.Context) {
	var req startConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	consult, err := h.orchestrator.StartConsultation(c.Request.Context(), req.Patient, req.Transcript)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(201, consult)
}

// ListConsultations serves the clinician review queue. Filter with
// ?state= for a workstate queue or ?patient_id= for a patient's
// history; exactly one filter is required.
func (h *ConsultationHandler) ListConsultations(c *gin.Context) {
	state := c.Query("state")
	patientID := c.Query("patient_id")
	switch {
	case state != "" && patientID != "":
		c.JSON(400, gin.H{"error": "filter by state or patient_id, not both"})
	case state != "":
		consults, err := h.orchestrator.ReviewQueue(c.Request.Context(), models.WorkflowState(state))
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"consultations": consults})
	case patientID != "":
		consults, err := h.orchestrator.ConsultationsForPatient(c.Request.Context(), patientID)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(200, gin.H{"consultations": consults})
	default:
		c.JSON(400, gin.H{"error": "state or patient_id query parameter is required"})
	}
}

func (h *ConsultationHandler) GetConsultation(c *gin.Context) {
	consult, err := h.orchestrator.GetConsultation(c.Request.Context(), c.Param("consult_id"))
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(200, consult)
}

// GetNextActions lists what the authenticated role may do next.
func (h *ConsultationHandler) GetNextActions(c *gin.Context) {
	role, err := middlewares.ExtractUserRoleFromContext(c.Request.Context())
	if err != nil {
		c.JSON(401, gin.H{"error": "User role not found in context"})
		return
	}
	actions, err := h.orchestrator.NextActions(c.Request.Context(), c.Param("consult_id"), role)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(200, gin.H{"actions": actions})
}

func (h *ConsultationHandler) SubmitStudentReview(c *gin.Context) {
	var review models.StudentReview
	if err := c.ShouldBindJSON(&review); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	consult, err := h.orchestrator.SubmitStudentReview(c.Request.Context(), c.Param("consult_id"), review)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(200, consult)
}

func (h *ConsultationHandler) SubmitPatientResponse(c *gin.Context) {
	var response models.PatientResponse
	if err := c.ShouldBindJSON(&response); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	consult, err := h.orchestrator.SubmitPatientResponse(c.Request.Context(), c.Param("consult_id"), response)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(200, consult)
}

type answerQuestionsRequest struct {
	StudentID string `json:"student_id"`
	Answer    string `json:"answer"`
}

func (h *ConsultationHandler) AnswerPatientQuestions(c *gin.Context) {
	var req answerQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	consult, err := h.orchestrator.AnswerPatientQuestions(c.Request.Context(), c.Param("consult_id"), req.StudentID, req.Answer)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(200, consult)
}

// SubmitResidentDecision finalizes an escalated consult. The acting role
// comes from the authenticated token, not the request body, so a student
// cannot sign by posting a crafted payload.
func (h *ConsultationHandler) SubmitResidentDecision(c *gin.Context) {
	role, err := middlewares.ExtractUserRoleFromContext(c.Request.Context())
	if err != nil {
		c.JSON(401, gin.H{"error": "User role not found in context"})
		return
	}
	var review models.ResidentReview
	if err := c.ShouldBindJSON(&review); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	consult, err := h.orchestrator.SubmitResidentDecision(c.Request.Context(), c.Param("consult_id"), role, review)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(200, consult)
}
