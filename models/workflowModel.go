package models

import (
	"time"
)

// WorkflowState is the consultation workflow state machine position.
type WorkflowState string

const (
	StateInitial              WorkflowState = "INITIAL"
	StateAIProcessing         WorkflowState = "AI_PROCESSING"
	StateStudentReview        WorkflowState = "STUDENT_REVIEW"
	StatePatientCommunication WorkflowState = "PATIENT_COMMUNICATION"
	StatePatientQuestions     WorkflowState = "PATIENT_QUESTIONS"
	StatePatientAccepted      WorkflowState = "PATIENT_ACCEPTED"
	StateResidentEscalation   WorkflowState = "RESIDENT_ESCALATION"
	StateFinalApproved        WorkflowState = "FINAL_APPROVED"
	StateCareRouting          WorkflowState = "CARE_ROUTING"
	StateComplete             WorkflowState = "COMPLETE"
)

// AllWorkflowStates lists every workflow state in order of progression.
var AllWorkflowStates = []WorkflowState{
	StateInitial, StateAIProcessing, StateStudentReview,
	StatePatientCommunication, StatePatientQuestions, StatePatientAccepted,
	StateResidentEscalation, StateFinalApproved, StateCareRouting,
	StateComplete,
}

// Valid reports whether s is a known workflow state.
func (s WorkflowState) Valid() bool {
	for _, known := range AllWorkflowStates {
		if s == known {
			return true
		}
	}
	return false
}

// StateTransition is one append-only history entry on a consultation.
type StateTransition struct {
	ID          uint              `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	ConsultID   string            `gorm:"column:consult_id;not null;index" json:"consult_id"`
	State       WorkflowState     `gorm:"column:state;not null" json:"state"`
	TriggeredBy string            `gorm:"column:triggered_by;not null" json:"triggered_by"`
	ActorRole   string            `gorm:"column:actor_role;not null" json:"actor_role"`
	Metadata    map[string]string `gorm:"column:metadata;serializer:json" json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (StateTransition) TableName() string {
	return "state_transition"
}

// Consultation tracks one consult from intake to completion. The current
// state must always equal the state of the last history entry.
type Consultation struct {
	ID           string        `gorm:"primaryKey;column:id" json:"id"`
	PatientID    string        `gorm:"column:patient_id;not null;index" json:"patient_id"`
	TranscriptID string        `gorm:"column:transcript_id;not null" json:"transcript_id"`
	CurrentState WorkflowState `gorm:"column:current_state;not null;index" json:"current_state"`

	// References recorded as the workflow advances. Entry preconditions on
	// later states check these.
	AIOutputID        string `gorm:"column:ai_output_id" json:"ai_output_id,omitempty"`
	StudentReviewID   string `gorm:"column:student_review_id" json:"student_review_id,omitempty"`
	CommunicationID   string `gorm:"column:communication_id" json:"communication_id,omitempty"`
	PatientResponseID string `gorm:"column:patient_response_id" json:"patient_response_id,omitempty"`
	ResidentReviewID  string `gorm:"column:resident_review_id" json:"resident_review_id,omitempty"`
	FinalRecordID     string `gorm:"column:final_record_id" json:"final_record_id,omitempty"`
	RoutingPlanID     string `gorm:"column:routing_plan_id" json:"routing_plan_id,omitempty"`

	IsEscalated bool `gorm:"column:is_escalated;not null;default:false" json:"is_escalated"`

	StateHistory []StateTransition `gorm:"foreignKey:ConsultID;references:ID" json:"state_history"`

	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (Consultation) TableName() string {
	return "consultation"
}

// LastTransition returns the most recent history entry, or nil for a
// consultation with no history (which should not occur after creation).
func (c *Consultation) LastTransition() *StateTransition {
	if len(c.StateHistory) == 0 {
		return nil
	}
	return &c.StateHistory[len(c.StateHistory)-1]
}
