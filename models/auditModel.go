package models

import (
	"time"
)

// AuditEventType classifies auditable events.
type AuditEventType string

const (
	AuditConsultInitiated    AuditEventType = "PATIENT_CONSULT_INITIATED"
	AuditAINoteGenerated     AuditEventType = "AI_SOAP_GENERATED"
	AuditAIFallbackUsed      AuditEventType = "AI_FALLBACK_USED"
	AuditStudentReviewDone   AuditEventType = "STUDENT_REVIEW_COMPLETED"
	AuditStudentEscalated    AuditEventType = "STUDENT_ESCALATED"
	AuditPatientResponded    AuditEventType = "PATIENT_RESPONSE_SUBMITTED"
	AuditPhysicianReviewDone AuditEventType = "PHYSICIAN_REVIEW_COMPLETED"
	AuditPhysicianOverride   AuditEventType = "PHYSICIAN_OVERRIDE"
	AuditPhysicianSignature  AuditEventType = "PHYSICIAN_SIGNATURE"
	AuditStateTransition     AuditEventType = "STATE_TRANSITION"
	AuditWorkflowCompleted   AuditEventType = "WORKFLOW_COMPLETED"
	AuditCarePlanGenerated   AuditEventType = "CARE_PLAN_GENERATED"
	AuditReferralCreated     AuditEventType = "REFERRAL_CREATED"
	AuditPermissionDenied    AuditEventType = "PERMISSION_DENIED"
	AuditValidationFailed    AuditEventType = "VALIDATION_FAILED"
)

// AuditSeverity grades audit events.
type AuditSeverity string

const (
	AuditInfo     AuditSeverity = "INFO"
	AuditWarning  AuditSeverity = "WARNING"
	AuditError    AuditSeverity = "ERROR"
	AuditCritical AuditSeverity = "CRITICAL"
)

// AuditEntry is one immutable compliance log record.
type AuditEntry struct {
	ID        uint              `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	EventType AuditEventType    `gorm:"column:event_type;not null;index" json:"event_type"`
	Severity  AuditSeverity     `gorm:"column:severity;not null" json:"severity"`
	UserID    string            `gorm:"column:user_id;index" json:"user_id,omitempty"`
	UserRole  string            `gorm:"column:user_role" json:"user_role,omitempty"`
	ConsultID string            `gorm:"column:consult_id;index" json:"consult_id,omitempty"`
	PatientID string            `gorm:"column:patient_id;index" json:"patient_id,omitempty"`
	Action    string            `gorm:"column:action;not null" json:"action"`
	Details   map[string]string `gorm:"column:details;serializer:json" json:"details,omitempty"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
}

func (AuditEntry) TableName() string {
	return "audit_entry"
}
