package models

import (
	"time"
)

// StudentDecision is the medical student's verdict on the AI assessment.
type StudentDecision string

const (
	DecisionAgree    StudentDecision = "AGREE"
	DecisionModify   StudentDecision = "MODIFY"
	DecisionDisagree StudentDecision = "DISAGREE"
)

// ResidentDecision is the supervising physician's verdict on escalation.
type ResidentDecision string

const (
	ResidentApprove  ResidentDecision = "APPROVE"
	ResidentModify   ResidentDecision = "MODIFY"
	ResidentOverride ResidentDecision = "OVERRIDE"
)

// PatientAction is the patient's response to a communication.
type PatientAction string

const (
	PatientAccept   PatientAction = "ACCEPT"
	PatientQuestion PatientAction = "QUESTION"
	PatientEscalate PatientAction = "ESCALATE"
)

// StudentReview is the mandatory human validation of an AI assessment.
// Submission is gated by utils.ValidateStudentReview.
type StudentReview struct {
	ID          string `gorm:"primaryKey;column:id" json:"id"`
	ConsultID   string `gorm:"column:consult_id;not null;index" json:"consult_id"`
	StudentID   string `gorm:"column:student_id;not null" json:"student_id"`
	StudentName string `gorm:"column:student_name" json:"student_name"`

	AssessmentDecision StudentDecision `gorm:"column:assessment_decision;not null" json:"assessment_decision"`
	ValidatedUrgency   Urgency         `gorm:"column:validated_urgency;not null" json:"validated_urgency"`
	SelectedProviders  []ProviderType  `gorm:"column:selected_providers;serializer:json" json:"selected_providers"`

	ClinicalReasoningSummary   string   `gorm:"column:clinical_reasoning_summary;type:text" json:"clinical_reasoning_summary"`
	KeyDifferentials           []string `gorm:"column:key_differentials;serializer:json" json:"key_differentials"`
	RedFlagsAssessment         string   `gorm:"column:red_flags_assessment;type:text" json:"red_flags_assessment"`
	ProviderSelectionRationale string   `gorm:"column:provider_selection_rationale;type:text" json:"provider_selection_rationale"`

	ModifiedSOAP            *SOAPNote `gorm:"column:modified_soap;serializer:json" json:"modified_soap,omitempty"`
	AssessmentModifications string    `gorm:"column:assessment_modifications;type:text" json:"assessment_modifications,omitempty"`
	PlanModifications       string    `gorm:"column:plan_modifications;type:text" json:"plan_modifications,omitempty"`

	RequiresEscalation bool   `gorm:"column:requires_escalation;not null;default:false" json:"requires_escalation"`
	EscalationReason   string `gorm:"column:escalation_reason;type:text" json:"escalation_reason,omitempty"`

	TimeSpentMinutes float64   `gorm:"column:time_spent_minutes" json:"time_spent_minutes"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (StudentReview) TableName() string {
	return "student_review"
}

// ResidentReview is the supervising physician's escalation decision. The
// license number is required for the physician-of-record signature.
type ResidentReview struct {
	ID            string `gorm:"primaryKey;column:id" json:"id"`
	ConsultID     string `gorm:"column:consult_id;not null;index" json:"consult_id"`
	ResidentID    string `gorm:"column:resident_id;not null" json:"resident_id"`
	ResidentName  string `gorm:"column:resident_name;not null" json:"resident_name"`
	LicenseNumber string `gorm:"column:license_number;not null" json:"license_number"`

	Decision ResidentDecision `gorm:"column:decision;not null" json:"decision"`

	FinalSOAP      SOAPNote       `gorm:"column:final_soap;serializer:json" json:"final_soap"`
	FinalUrgency   Urgency        `gorm:"column:final_urgency;not null" json:"final_urgency"`
	FinalProviders []ProviderType `gorm:"column:final_providers;serializer:json" json:"final_providers"`

	ClinicalRationale string `gorm:"column:clinical_rationale;type:text" json:"clinical_rationale"`
	ModificationsMade string `gorm:"column:modifications_made;type:text" json:"modifications_made,omitempty"`
	TeachingPoints    string `gorm:"column:teaching_points;type:text" json:"teaching_points,omitempty"`

	TimeSpentMinutes float64   `gorm:"column:time_spent_minutes" json:"time_spent_minutes"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ResidentReview) TableName() string {
	return "resident_review"
}

// PatientResponse records how the patient answered a communication.
type PatientResponse struct {
	ID                string        `gorm:"primaryKey;column:id" json:"id"`
	ConsultID         string        `gorm:"column:consult_id;not null;index" json:"consult_id"`
	PatientID         string        `gorm:"column:patient_id;not null" json:"patient_id"`
	Action            PatientAction `gorm:"column:action;not null" json:"action"`
	Questions         []string      `gorm:"column:questions;serializer:json" json:"questions,omitempty"`
	EscalationConcern string        `gorm:"column:escalation_concern;type:text" json:"escalation_concern,omitempty"`
	CreatedAt         time.Time     `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (PatientResponse) TableName() string {
	return "patient_response"
}

// FinalRecord is the signed patient-visible record with attribution.
type FinalRecord struct {
	ID        string `gorm:"primaryKey;column:id" json:"id"`
	ConsultID string `gorm:"column:consult_id;not null;index" json:"consult_id"`
	PatientID string `gorm:"column:patient_id;not null" json:"patient_id"`

	FinalSOAP      SOAPNote       `gorm:"column:final_soap;serializer:json" json:"final_soap"`
	FinalUrgency   Urgency        `gorm:"column:final_urgency;not null" json:"final_urgency"`
	FinalProviders []ProviderType `gorm:"column:final_providers;serializer:json" json:"final_providers"`

	AIOutputID       string `gorm:"column:ai_output_id" json:"ai_output_id"`
	StudentReviewID  string `gorm:"column:student_review_id" json:"student_review_id"`
	ResidentReviewID string `gorm:"column:resident_review_id" json:"resident_review_id,omitempty"`

	SupervisingPhysicianID   string `gorm:"column:supervising_physician_id" json:"supervising_physician_id,omitempty"`
	SupervisingPhysicianName string `gorm:"column:supervising_physician_name" json:"supervising_physician_name,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (FinalRecord) TableName() string {
	return "final_record"
}

// RequiresPhysicianSignature applies the physician-of-record rule: every
// escalated consult and any URGENT or EMERGENCY urgency needs a signing
// physician. Routine un-escalated consults proceed with async oversight.
func RequiresPhysicianSignature(urgency Urgency, isEscalated bool) bool {
	if isEscalated {
		return true
	}
	return urgency == UrgencyEmergency || urgency == UrgencyUrgent
}
