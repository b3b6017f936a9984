package utils

import (
	"Meduroam/models"
	"strings"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func validReview() models.StudentReview {
	return models.StudentReview{
		ConsultID:          "consult-1",
		StudentID:          "student-1",
		AssessmentDecision: models.DecisionAgree,
		ValidatedUrgency:   models.UrgencyRoutine,
		SelectedProviders:  []models.ProviderType{models.ProviderGP, models.ProviderNP},
		ClinicalReasoningSummary: "Presentation is consistent with a viral upper respiratory infection " +
			"given gradual onset, low-grade fever, and absence of red flags.",
		KeyDifferentials: []string{"Viral URI", "Streptococcal pharyngitis", "Allergic rhinitis"},
		RedFlagsAssessment: "No dyspnea, no neck stiffness, no drooling or stridor on review.",
		ProviderSelectionRationale: "Routine presentation appropriate for primary care follow-up within days.",
	}
}

func fieldErrors(t *testing.T, err error) validation.Errors {
	t.Helper()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	errs, ok := err.(validation.Errors)
	if !ok {
		t.Fatalf("expected validation.Errors, got %T", err)
	}
	return errs
}

func TestValidateStudentReviewValid(t *testing.T) {
	if err := ValidateStudentReview(validReview()); err != nil {
		t.Errorf("expected valid review to pass, got: %v", err)
	}
}

func TestValidateStudentReviewShortReasoning(t *testing.T) {
	review := validReview()
	review.ClinicalReasoningSummary = "Looks fine."

	errs := fieldErrors(t, ValidateStudentReview(review))
	if _, ok := errs["clinical_reasoning_summary"]; !ok {
		t.Errorf("expected clinical_reasoning_summary violation, got: %v", errs)
	}
}

func TestValidateStudentReviewReasoningBoundary(t *testing.T) {
	review := validReview()

	review.ClinicalReasoningSummary = strings.Repeat("a", MinReasoningSummaryLen-1)
	errs := fieldErrors(t, ValidateStudentReview(review))
	if _, ok := errs["clinical_reasoning_summary"]; !ok {
		t.Errorf("expected violation one character under the minimum, got: %v", errs)
	}

	review.ClinicalReasoningSummary = strings.Repeat("a", MinReasoningSummaryLen)
	if err := ValidateStudentReview(review); err != nil {
		t.Errorf("expected review at the minimum length to pass, got: %v", err)
	}
}

func TestValidateStudentReviewCollectsAllViolations(t *testing.T) {
	review := models.StudentReview{
		ConsultID:          "consult-2",
		AssessmentDecision: "MAYBE",
		ValidatedUrgency:   models.UrgencyRoutine,
	}

	errs := fieldErrors(t, ValidateStudentReview(review))
	for _, field := range []string{
		"assessment_decision",
		"clinical_reasoning_summary",
		"red_flags_assessment",
		"provider_selection_rationale",
		"key_differentials",
		"selected_providers",
	} {
		if _, ok := errs[field]; !ok {
			t.Errorf("expected %s violation, got: %v", field, errs)
		}
	}
}

func TestValidateStudentReviewDisagreeNeedsModifications(t *testing.T) {
	review := validReview()
	review.AssessmentDecision = models.DecisionDisagree

	errs := fieldErrors(t, ValidateStudentReview(review))
	if _, ok := errs["modifications"]; !ok {
		t.Errorf("expected modifications violation, got: %v", errs)
	}

	review.AssessmentModifications = "Downgraded the suspected diagnosis based on symptom duration."
	if err := ValidateStudentReview(review); err != nil {
		t.Errorf("expected DISAGREE with modifications to pass, got: %v", err)
	}
}

func TestValidateStudentReviewEscalationNeedsReason(t *testing.T) {
	review := validReview()
	review.RequiresEscalation = true

	errs := fieldErrors(t, ValidateStudentReview(review))
	if _, ok := errs["escalation"]; !ok {
		t.Errorf("expected escalation violation, got: %v", errs)
	}

	review.EscalationReason = "Possible cardiac etiology, beyond my scope."
	if err := ValidateStudentReview(review); err != nil {
		t.Errorf("expected escalation with reason to pass, got: %v", err)
	}
}

func TestValidateStudentReviewEmergencyNeedsED(t *testing.T) {
	review := validReview()
	review.ValidatedUrgency = models.UrgencyEmergency

	errs := fieldErrors(t, ValidateStudentReview(review))
	if _, ok := errs["urgency_mismatch"]; !ok {
		t.Errorf("expected urgency_mismatch violation, got: %v", errs)
	}
	if !strings.Contains(errs["urgency_mismatch"].Error(), "ED") {
		t.Errorf("expected message to mention ED, got: %v", errs["urgency_mismatch"])
	}

	review.SelectedProviders = append(review.SelectedProviders, models.ProviderED)
	if err := ValidateStudentReview(review); err != nil {
		t.Errorf("expected EMERGENCY with ED to pass, got: %v", err)
	}
}

func TestValidateStudentReviewUnknownProvider(t *testing.T) {
	review := validReview()
	review.SelectedProviders = []models.ProviderType{"CHIROPRACTOR"}

	errs := fieldErrors(t, ValidateStudentReview(review))
	if _, ok := errs["selected_providers"]; !ok {
		t.Errorf("expected selected_providers violation, got: %v", errs)
	}
}
