package models

import (
	"time"

	"gorm.io/gorm"
)

// UserRole enumerates system actors.
type UserRole string

const (
	RolePatient            UserRole = "PATIENT"
	RoleMedicalStudent     UserRole = "MEDICAL_STUDENT"
	RoleResident           UserRole = "RESIDENT"
	RoleAttendingPhysician UserRole = "ATTENDING_PHYSICIAN"
	RoleAdmin              UserRole = "ADMIN"
	RoleSystem             UserRole = "SYSTEM"
)

// Valid reports whether r is a known human-assignable role.
func (r UserRole) Valid() bool {
	switch r {
	case RolePatient, RoleMedicalStudent, RoleResident, RoleAttendingPhysician, RoleAdmin:
		return true
	}
	return false
}

// StateTransitionPolicy maps, per current state, each role to the set of
// states it may move the workflow to. Transitions absent from this table
// are denied; states absent entirely advance only through auto
// transitions.
var StateTransitionPolicy = map[WorkflowState]map[UserRole][]WorkflowState{
	StateInitial: {
		RolePatient: {StateAIProcessing},
	},
	StateStudentReview: {
		RoleMedicalStudent: {StatePatientCommunication, StateResidentEscalation},
	},
	StatePatientCommunication: {
		RolePatient: {StatePatientAccepted, StatePatientQuestions, StateResidentEscalation},
	},
	StatePatientQuestions: {
		RoleMedicalStudent: {StatePatientCommunication, StateResidentEscalation},
	},
	StateResidentEscalation: {
		RoleResident:           {StateFinalApproved},
		RoleAttendingPhysician: {StateFinalApproved},
	},
}

// AllowedTransitions returns the states the role may move to from the
// given state.
func AllowedTransitions(role UserRole, from WorkflowState) []WorkflowState {
	return StateTransitionPolicy[from][role]
}

// CanTransition reports whether the role is authorized for the edge.
func CanTransition(role UserRole, from, to WorkflowState) bool {
	for _, allowed := range AllowedTransitions(role, from) {
		if allowed == to {
			return true
		}
	}
	return false
}

// Role represents a user role
type Role struct {
	ID          int64        `gorm:"primaryKey;column:id" json:"id"`
	Name        string       `gorm:"size:50;not null;unique;index;column:name" json:"name"`
	Description string       `gorm:"type:text;column:description" json:"description"`
	CreatedAt   time.Time    `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions"`
}

func (Role) TableName() string {
	return "roles"
}

// SeedRoles inserts initial roles into the database
func SeedRoles(db *gorm.DB) error {
	initialRoles := []Role{
		{Name: string(RolePatient), Description: "Submits symptoms and responds to communications"},
		{Name: string(RoleMedicalStudent), Description: "Validates AI assessments and communicates with patients"},
		{Name: string(RoleResident), Description: "Reviews escalations and signs as physician of record"},
		{Name: string(RoleAttendingPhysician), Description: "Supervising physician with full escalation oversight"},
		{Name: string(RoleAdmin), Description: "System administration and audit access"},
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, role := range initialRoles {
			if err := tx.FirstOrCreate(&role, Role{Name: role.Name}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// User represents a user in the system
type User struct {
	ID        int64     `gorm:"primaryKey;column:id" json:"id"`
	Username  string    `gorm:"size:100;not null;unique;index;column:username" json:"username"`
	Email     string    `gorm:"size:255;not null;unique;index;column:email" json:"email"`
	Password  string    `gorm:"size:255;not null;column:password" json:"password"`
	RoleID    int64     `gorm:"index;not null;column:role_id" json:"role_id"`
	Role      Role      `gorm:"foreignKey:RoleID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

// Permission represents a permission in the system
type Permission struct {
	ID          int64  `gorm:"primaryKey;column:id" json:"id"`
	Name        string `gorm:"size:100;not null;unique;index;column:name" json:"name"`
	Description string `gorm:"type:text;column:description" json:"description"`
}

func (Permission) TableName() string {
	return "permissions"
}

// SeedPermissions inserts initial permissions into the database
func SeedPermissions(db *gorm.DB) error {
	initialPermissions := []Permission{
		{Name: "view_own_consult", Description: "View own consultations"},
		{Name: "submit_symptoms", Description: "Submit a symptom transcript"},
		{Name: "respond_to_communication", Description: "Respond to a care communication"},
		{Name: "request_escalation", Description: "Request physician review"},
		{Name: "view_assigned_consults", Description: "View consults assigned for review"},
		{Name: "view_ai_reasoning", Description: "View AI reasoning bundles"},
		{Name: "validate_assessment", Description: "Validate or modify AI assessments"},
		{Name: "communicate_with_patient", Description: "Send plain-language summaries to patients"},
		{Name: "escalate_to_resident", Description: "Escalate a consult to a resident"},
		{Name: "override_assessment", Description: "Override student or AI assessments"},
		{Name: "finalize_record", Description: "Finalize and sign the patient record"},
		{Name: "view_audit_logs", Description: "View the audit trail"},
		{Name: "manage_users", Description: "Create, update, or delete users"},
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, permission := range initialPermissions {
			if err := tx.FirstOrCreate(&permission, Permission{Name: permission.Name}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// RolePermission represents the association between roles and permissions
type RolePermission struct {
	ID           int64 `gorm:"primaryKey;column:id" json:"id"`
	RoleID       int64 `gorm:"index;column:role_id" json:"role_id"`
	PermissionID int64 `gorm:"index;column:permission_id" json:"permission_id"`
}

func (RolePermission) TableName() string {
	return "role_permissions"
}

// SeedRolePermissions inserts initial role permissions into the database
func SeedRolePermissions(db *gorm.DB) error {
	initialRolePermissions := []RolePermission{
		{RoleID: 1, PermissionID: 1},  // Patient: view_own_consult
		{RoleID: 1, PermissionID: 2},  // Patient: submit_symptoms
		{RoleID: 1, PermissionID: 3},  // Patient: respond_to_communication
		{RoleID: 1, PermissionID: 4},  // Patient: request_escalation
		{RoleID: 2, PermissionID: 5},  // Student: view_assigned_consults
		{RoleID: 2, PermissionID: 6},  // Student: view_ai_reasoning
		{RoleID: 2, PermissionID: 7},  // Student: validate_assessment
		{RoleID: 2, PermissionID: 8},  // Student: communicate_with_patient
		{RoleID: 2, PermissionID: 9},  // Student: escalate_to_resident
		{RoleID: 3, PermissionID: 5},  // Resident: view_assigned_consults
		{RoleID: 3, PermissionID: 6},  // Resident: view_ai_reasoning
		{RoleID: 3, PermissionID: 10}, // Resident: override_assessment
		{RoleID: 3, PermissionID: 11}, // Resident: finalize_record
		{RoleID: 4, PermissionID: 5},  // Attending: view_assigned_consults
		{RoleID: 4, PermissionID: 6},  // Attending: view_ai_reasoning
		{RoleID: 4, PermissionID: 10}, // Attending: override_assessment
		{RoleID: 4, PermissionID: 11}, // Attending: finalize_record
		{RoleID: 5, PermissionID: 12}, // Admin: view_audit_logs
		{RoleID: 5, PermissionID: 13}, // Admin: manage_users
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, rolePermission := range initialRolePermissions {
			if err := tx.FirstOrCreate(&rolePermission, RolePermission{RoleID: rolePermission.RoleID, PermissionID: rolePermission.PermissionID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
