package services

import (
	"Meduroam/models"
	"context"

	"github.com/google/uuid"
)

// NoteGenerator is the AI collaborator producing structured consult
// output from a symptom transcript. Implementations must return the
// typed bundle directly; prose parsing stays behind this boundary.
type NoteGenerator interface {
	GenerateNote(ctx context.Context, transcript models.Transcript, patient models.Patient) (*models.AIConsultOutput, error)
}

// FallbackConsultOutput builds the conservative canned note used when
// the generator is unavailable. It is a degraded but valid AI output:
// the workflow proceeds to human review as usual. The preliminary
// urgency defaults to URGENT, the more cautious of ROUTINE/URGENT, and
// never EMERGENCY without a human decision.
func FallbackConsultOutput(consultID string, transcript models.Transcript) *models.AIConsultOutput {
	return &models.AIConsultOutput{
		ID:           uuid.New().String(),
		ConsultID:    consultID,
		PatientID:    transcript.PatientID,
		TranscriptID: transcript.ID,
		SOAP: models.SOAPNote{
			Subjective: "Patient reports: " + transcript.ChiefComplaint + ". " + transcript.SymptomDescription,
			Objective:  "No objective findings available. Automated assessment was unavailable for this consult.",
			Assessment: "Assessment pending human review. The automated generator could not be reached, so no differential has been proposed.",
			Plan:       "Refer to the reviewing medical student for a full manual assessment. Treat timing conservatively until reviewed.",
		},
		Reasoning: models.AIReasoning{
			DifferentialDiagnosis: []string{"Pending human review", "Insufficient automated analysis"},
			RedFlagsAssessed:      []string{"Not assessed automatically - reviewer must screen for red flags"},
			ClinicalReasoning:     "The note generator was unavailable; this is a conservative placeholder pending mandatory human review.",
			ConfidenceLevel:       0,
			SupportingEvidence:    nil,
			RuledOutConditions:    nil,
		},
		PreliminaryUrgency: models.UrgencyUrgent,
		SuggestedProviders: []models.ProviderType{models.ProviderGP, models.ProviderUrgentCare},
		ModelVersion:       "fallback",
		IsFallback:         true,
	}
}
