package models

import (
	"time"
)

// Urgency is the triage severity classification driving routing.
type Urgency string

const (
	UrgencyRoutine   Urgency = "ROUTINE"
	UrgencyUrgent    Urgency = "URGENT"
	UrgencyEmergency Urgency = "EMERGENCY"
)

// Severity orders urgency levels: ROUTINE < URGENT < EMERGENCY.
func (u Urgency) Severity() int {
	switch u {
	case UrgencyRoutine:
		return 0
	case UrgencyUrgent:
		return 1
	case UrgencyEmergency:
		return 2
	}
	return -1
}

// Valid reports whether u is one of the three known levels.
func (u Urgency) Valid() bool {
	return u.Severity() >= 0
}

// ProviderType enumerates healthcare provider categories in the Canadian
// system.
type ProviderType string

const (
	ProviderGP         ProviderType = "GP"
	ProviderNP         ProviderType = "NP"
	ProviderRN         ProviderType = "RN"
	ProviderPSW        ProviderType = "PSW"
	ProviderSpecialist ProviderType = "SPECIALIST"
	ProviderUrgentCare ProviderType = "URGENT_CARE"
	ProviderED         ProviderType = "ED"
)

// AllProviderTypes lists every known provider type.
var AllProviderTypes = []ProviderType{
	ProviderGP, ProviderNP, ProviderRN, ProviderPSW,
	ProviderSpecialist, ProviderUrgentCare, ProviderED,
}

// RequiresReferral reports whether the provider type is referral-gated.
// Only specialists require a referral under the reference policy.
func (p ProviderType) RequiresReferral() bool {
	return p == ProviderSpecialist
}

// Valid reports whether p is a known provider type.
func (p ProviderType) Valid() bool {
	for _, known := range AllProviderTypes {
		if p == known {
			return true
		}
	}
	return false
}

// Patient holds demographic data relevant to routing decisions.
type Patient struct {
	ID              string    `gorm:"primaryKey;column:id" json:"id"`
	Age             int       `gorm:"column:age;not null" json:"age"`
	Sex             string    `gorm:"column:sex;not null" json:"sex"`
	Province        string    `gorm:"column:province;not null" json:"province"`
	PostalCode      string    `gorm:"column:postal_code;not null" json:"postal_code"`
	HasFamilyDoctor bool      `gorm:"column:has_family_doctor;not null" json:"has_family_doctor"`
	HealthCardNo    string    `gorm:"column:health_card_no" json:"health_card_no,omitempty"`
	Phone           string    `gorm:"column:phone" json:"phone,omitempty"`
	Email           string    `gorm:"column:email" json:"email,omitempty"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Patient) TableName() string {
	return "patient"
}

// Transcript is the structured symptom narrative a patient submits.
type Transcript struct {
	ID                 string    `gorm:"primaryKey;column:id" json:"id"`
	PatientID          string    `gorm:"column:patient_id;not null;index" json:"patient_id"`
	ChiefComplaint     string    `gorm:"column:chief_complaint;not null" json:"chief_complaint"`
	SymptomDescription string    `gorm:"column:symptom_description;not null" json:"symptom_description"`
	Duration           string    `gorm:"column:duration" json:"duration"`
	Severity           string    `gorm:"column:severity" json:"severity"`
	AssociatedSymptoms []string  `gorm:"column:associated_symptoms;serializer:json" json:"associated_symptoms"`
	MedicalHistory     []string  `gorm:"column:medical_history;serializer:json" json:"medical_history"`
	Medications        []string  `gorm:"column:medications;serializer:json" json:"medications"`
	Allergies          []string  `gorm:"column:allergies;serializer:json" json:"allergies"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Transcript) TableName() string {
	return "transcript"
}

// SOAPNote is a structured Subjective/Objective/Assessment/Plan note.
type SOAPNote struct {
	Subjective string `json:"subjective"`
	Objective  string `json:"objective"`
	Assessment string `json:"assessment"`
	Plan       string `json:"plan"`
}

// AIReasoning is the reasoning bundle attached to generated notes.
type AIReasoning struct {
	DifferentialDiagnosis []string `json:"differential_diagnosis"`
	RedFlagsAssessed      []string `json:"red_flags_assessed"`
	ClinicalReasoning     string   `json:"clinical_reasoning"`
	ConfidenceLevel       float64  `json:"confidence_level"`
	SupportingEvidence    []string `json:"supporting_evidence"`
	RuledOutConditions    []string `json:"ruled_out_conditions"`
}

// AIConsultOutput is the structured result of the note generator
// collaborator. The workflow consumes this typed bundle only; it never
// parses model prose.
type AIConsultOutput struct {
	ID                 string         `gorm:"primaryKey;column:id" json:"id"`
	ConsultID          string         `gorm:"column:consult_id;not null;index" json:"consult_id"`
	PatientID          string         `gorm:"column:patient_id;not null" json:"patient_id"`
	TranscriptID       string         `gorm:"column:transcript_id;not null" json:"transcript_id"`
	SOAP               SOAPNote       `gorm:"column:soap;serializer:json" json:"soap_note"`
	Reasoning          AIReasoning    `gorm:"column:reasoning;serializer:json" json:"reasoning"`
	PreliminaryUrgency Urgency        `gorm:"column:preliminary_urgency;not null" json:"preliminary_urgency"`
	SuggestedProviders []ProviderType `gorm:"column:suggested_providers;serializer:json" json:"suggested_providers"`
	ModelVersion       string         `gorm:"column:model_version" json:"model_version"`
	IsFallback         bool           `gorm:"column:is_fallback;not null;default:false" json:"is_fallback"`
	CreatedAt          time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (AIConsultOutput) TableName() string {
	return "ai_consult_output"
}
