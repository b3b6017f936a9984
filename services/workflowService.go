package services

import (
	"Meduroam/models"
	"errors"
	"fmt"
	"time"
)

// Workflow error taxonomy. Callers distinguish these with errors.Is.
var (
	// ErrPermissionDenied means the actor role is not authorized for the
	// requested state edge. The consultation is left unchanged.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidTransition means a state-entry precondition is unmet,
	// which indicates a caller-sequencing bug. State is unchanged.
	ErrInvalidTransition = errors.New("invalid transition")
)

// SystemActor stamps history entries for system-driven transitions.
const (
	SystemActor     = "system"
	SystemAutoActor = "system_auto"
)

// Action describes one available workflow move for an actor, with the
// data the caller must supply to execute it.
type Action struct {
	ActionID    string               `json:"action"`
	Label       string               `json:"label"`
	TargetState models.WorkflowState `json:"target_state"`
	Requires    []string             `json:"requires"`
}

type stateEdge struct {
	from models.WorkflowState
	to   models.WorkflowState
}

// actionCatalog translates permitted state edges into user-facing actions.
var actionCatalog = map[stateEdge]Action{
	{models.StateInitial, models.StateAIProcessing}: {
		ActionID: "submit_symptoms",
		Label:    "Submit Symptoms for Assessment",
		Requires: []string{"transcript"},
	},
	{models.StateStudentReview, models.StatePatientCommunication}: {
		ActionID: "approve_and_communicate",
		Label:    "Approve and Send to Patient",
		Requires: []string{"student_review_complete"},
	},
	{models.StateStudentReview, models.StateResidentEscalation}: {
		ActionID: "escalate_to_resident",
		Label:    "Escalate to Supervising Physician",
		Requires: []string{"escalation_reason"},
	},
	{models.StatePatientCommunication, models.StatePatientAccepted}: {
		ActionID: "accept_plan",
		Label:    "Accept Recommendation",
		Requires: []string{},
	},
	{models.StatePatientCommunication, models.StatePatientQuestions}: {
		ActionID: "ask_questions",
		Label:    "Ask Questions",
		Requires: []string{"question_text"},
	},
	{models.StatePatientCommunication, models.StateResidentEscalation}: {
		ActionID: "request_physician",
		Label:    "Request Physician Review",
		Requires: []string{"concern_description"},
	},
	{models.StatePatientQuestions, models.StatePatientCommunication}: {
		ActionID: "answer_questions",
		Label:    "Answer and Re-send to Patient",
		Requires: []string{"answer_text"},
	},
	{models.StatePatientQuestions, models.StateResidentEscalation}: {
		ActionID: "escalate_to_resident",
		Label:    "Escalate to Supervising Physician",
		Requires: []string{"escalation_reason"},
	},
	{models.StateResidentEscalation, models.StateFinalApproved}: {
		ActionID: "finalize_decision",
		Label:    "Finalize and Sign",
		Requires: []string{"resident_review_complete", "physician_signature"},
	},
}

// WorkflowEngine applies and validates consultation state transitions.
// It operates on in-memory consultations; persistence and per-consult
// locking belong to the orchestrator and its store.
type WorkflowEngine struct{}

func NewWorkflowEngine() *WorkflowEngine {
	return &WorkflowEngine{}
}

// Create initializes a consultation in INITIAL with a single
// system-stamped history entry.
func (e *WorkflowEngine) Create(consultID, patientID, transcriptID string) *models.Consultation {
	return &models.Consultation{
		ID:           consultID,
		PatientID:    patientID,
		TranscriptID: transcriptID,
		CurrentState: models.StateInitial,
		StateHistory: []models.StateTransition{{
			ConsultID:   consultID,
			State:       models.StateInitial,
			TriggeredBy: SystemActor,
			ActorRole:   string(models.RoleSystem),
			CreatedAt:   time.Now(),
		}},
	}
}

// Transition moves the consultation to targetState on behalf of an
// actor. The role must be authorized for the (current, target) edge per
// the static policy table, and the target state's entry precondition
// must hold. On success the history gains one entry and the current
// state is updated.
func (e *WorkflowEngine) Transition(
	c *models.Consultation,
	targetState models.WorkflowState,
	role models.UserRole,
	actorID string,
	metadata map[string]string,
) error {
	if !models.CanTransition(role, c.CurrentState, targetState) {
		return fmt.Errorf("%w: %s cannot transition from %s to %s",
			ErrPermissionDenied, role, c.CurrentState, targetState)
	}

	if err := e.checkEntryPrecondition(c, targetState); err != nil {
		return err
	}

	e.apply(c, targetState, actorID, string(role), metadata)
	return nil
}

// AutoTransition performs a system-driven advance. Entry preconditions
// still apply; actor-role authorization does not.
func (e *WorkflowEngine) AutoTransition(c *models.Consultation, targetState models.WorkflowState) error {
	if err := e.checkEntryPrecondition(c, targetState); err != nil {
		return err
	}
	e.apply(c, targetState, SystemAutoActor, string(models.RoleSystem), nil)
	return nil
}

// NextActions derives the actions the role may take from the current
// state.
func (e *WorkflowEngine) NextActions(c *models.Consultation, role models.UserRole) []Action {
	var actions []Action
	for _, target := range models.AllowedTransitions(role, c.CurrentState) {
		if action, ok := actionCatalog[stateEdge{c.CurrentState, target}]; ok {
			action.TargetState = target
			actions = append(actions, action)
		}
	}
	return actions
}

func (e *WorkflowEngine) apply(
	c *models.Consultation,
	targetState models.WorkflowState,
	actorID, actorRole string,
	metadata map[string]string,
) {
	now := time.Now()
	c.CurrentState = targetState
	c.StateHistory = append(c.StateHistory, models.StateTransition{
		ConsultID:   c.ID,
		State:       targetState,
		TriggeredBy: actorID,
		ActorRole:   actorRole,
		Metadata:    metadata,
		CreatedAt:   now,
	})
	if targetState == models.StateComplete {
		c.CompletedAt = &now
	}
}

// checkEntryPrecondition verifies the consultation carries the upstream
// references the target state depends on.
func (e *WorkflowEngine) checkEntryPrecondition(c *models.Consultation, targetState models.WorkflowState) error {
	switch targetState {
	case models.StateStudentReview:
		if c.AIOutputID == "" {
			return fmt.Errorf("%w: AI output required before student review", ErrInvalidTransition)
		}
	case models.StatePatientCommunication:
		if c.StudentReviewID == "" {
			return fmt.Errorf("%w: student review required before patient communication", ErrInvalidTransition)
		}
	case models.StateResidentEscalation:
		if c.StudentReviewID == "" && c.PatientResponseID == "" {
			return fmt.Errorf("%w: escalation requires a student review or patient response", ErrInvalidTransition)
		}
	case models.StateFinalApproved:
		if c.PatientResponseID == "" && c.ResidentReviewID == "" {
			return fmt.Errorf("%w: final approval requires patient acceptance or a resident decision", ErrInvalidTransition)
		}
	case models.StateCareRouting:
		if c.FinalRecordID == "" {
			return fmt.Errorf("%w: final signed record required before care routing", ErrInvalidTransition)
		}
	}
	return nil
}
