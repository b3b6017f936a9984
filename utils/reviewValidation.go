package utils

import (
	"Meduroam/models"
	"errors"
	"log"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Minimum lengths for the structured reasoning fields of a student review.
const (
	MinReasoningSummaryLen  = 50
	MinRedFlagsLen          = 30
	MinProviderRationaleLen = 30
	MinDifferentials        = 2
)

// ValidateStudentReview checks every structural invariant of a student
// review in one pass and returns a field-keyed validation.Errors map so
// the submitting client can surface all problems at once. A nil result
// means the review is valid.
func ValidateStudentReview(review models.StudentReview) error {
	errs := validation.Errors{
		"assessment_decision": validation.Validate(string(review.AssessmentDecision),
			validation.Required,
			validation.In(string(models.DecisionAgree), string(models.DecisionModify), string(models.DecisionDisagree)).
				Error("assessment decision must be AGREE, MODIFY, or DISAGREE")),
		"validated_urgency": validation.Validate(string(review.ValidatedUrgency),
			validation.Required,
			validation.In(string(models.UrgencyRoutine), string(models.UrgencyUrgent), string(models.UrgencyEmergency)).
				Error("validated urgency must be ROUTINE, URGENT, or EMERGENCY")),
		"clinical_reasoning_summary": validation.Validate(review.ClinicalReasoningSummary,
			validation.Required,
			validation.Length(MinReasoningSummaryLen, 0).
				Error("clinical reasoning too brief - minimum 50 characters required")),
		"red_flags_assessment": validation.Validate(review.RedFlagsAssessment,
			validation.Required,
			validation.Length(MinRedFlagsLen, 0).
				Error("red flags assessment insufficient - minimum 30 characters required")),
		"provider_selection_rationale": validation.Validate(review.ProviderSelectionRationale,
			validation.Required,
			validation.Length(MinProviderRationaleLen, 0).
				Error("provider selection rationale insufficient - minimum 30 characters required")),
		"key_differentials": validation.Validate(review.KeyDifferentials,
			validation.Required.Error("must consider at least 2 differential diagnoses"),
			validation.Length(MinDifferentials, 0).
				Error("must consider at least 2 differential diagnoses")),
		"selected_providers": validation.Validate(review.SelectedProviders,
			validation.Required.Error("must select at least one provider type"),
			validation.By(validateProviderTypes)),
	}

	if review.AssessmentDecision == models.DecisionDisagree &&
		review.ModifiedSOAP == nil && review.AssessmentModifications == "" {
		errs["modifications"] = errors.New("DISAGREE decision requires a modified SOAP note or assessment modifications")
	}

	if review.RequiresEscalation && review.EscalationReason == "" {
		errs["escalation"] = errors.New("escalation requires an explanation")
	}

	if review.ValidatedUrgency == models.UrgencyEmergency && !HasProvider(review.SelectedProviders, models.ProviderED) {
		errs["urgency_mismatch"] = errors.New("EMERGENCY urgency should include ED as a provider option")
	}

	err := errs.Filter()
	if err != nil {
		log.Printf("Student review validation failed for consult %s: %v", review.ConsultID, err)
	}
	return err
}

// validateProviderTypes rejects provider values outside the closed
// enumeration.
func validateProviderTypes(value interface{}) error {
	providers, _ := value.([]models.ProviderType)
	for _, p := range providers {
		if !p.Valid() {
			return errors.New("unknown provider type: " + string(p))
		}
	}
	return nil
}

// HasProvider reports whether the provider list contains the given type.
func HasProvider(providers []models.ProviderType, want models.ProviderType) bool {
	for _, p := range providers {
		if p == want {
			return true
		}
	}
	return false
}
