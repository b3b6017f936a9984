package services

import (
	"Meduroam/models"
	"Meduroam/utils"
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
)

// ConsultationStore owns consultation persistence. Implementations must
// make WithConsultLock exclusive per consult id so a read-validate-append
// transition is atomic against that consultation's record.
type ConsultationStore interface {
	CreateConsultation(ctx context.Context, c *models.Consultation) error
	GetConsultation(ctx context.Context, id string) (*models.Consultation, error)
	SaveConsultation(ctx context.Context, c *models.Consultation) error
	ListConsultationsByState(ctx context.Context, state models.WorkflowState) ([]models.Consultation, error)
	ListConsultationsByPatient(ctx context.Context, patientID string) ([]models.Consultation, error)
	WithConsultLock(ctx context.Context, consultID string, fn func(ctx context.Context) error) error

	SavePatient(ctx context.Context, patient *models.Patient) error
	GetPatient(ctx context.Context, id string) (*models.Patient, error)
	SaveTranscript(ctx context.Context, transcript *models.Transcript) error

	SaveAIOutput(ctx context.Context, output *models.AIConsultOutput) error
	GetAIOutput(ctx context.Context, id string) (*models.AIConsultOutput, error)
	SaveStudentReview(ctx context.Context, review *models.StudentReview) error
	GetStudentReview(ctx context.Context, id string) (*models.StudentReview, error)
	SaveResidentReview(ctx context.Context, review *models.ResidentReview) error
	SavePatientResponse(ctx context.Context, response *models.PatientResponse) error
	SaveFinalRecord(ctx context.Context, record *models.FinalRecord) error
	GetFinalRecord(ctx context.Context, id string) (*models.FinalRecord, error)
	SaveRoutingPlan(ctx context.Context, plan *models.CareRoutingPlan) error
	GetRoutingPlan(ctx context.Context, id string) (*models.CareRoutingPlan, error)
}

// AuditSink records compliance events. Sink failures must never block
// clinical flow; implementations log and move on.
type AuditSink interface {
	Record(ctx context.Context, entry models.AuditEntry)
}

// EscalationNotifier alerts the on-call physician when a consult enters
// escalation.
type EscalationNotifier interface {
	NotifyEscalation(ctx context.Context, consultID, reason string, urgency models.Urgency)
}

// ErrRoutingNotPending is returned when plan generation is requested for
// a consult that is not in CARE_ROUTING.
var ErrRoutingNotPending = errors.New("consultation is not awaiting care routing")

// Orchestrator composes workflow primitives into the domain-level events
// callers issue. Collaborator I/O happens before the per-consultation
// lock is taken; only the read-validate-append step runs under it.
type Orchestrator struct {
	engine    *WorkflowEngine
	store     ConsultationStore
	audit     AuditSink
	generator NoteGenerator
	routing   *CareRoutingEngine
	notifier  EscalationNotifier
}

func NewOrchestrator(
	engine *WorkflowEngine,
	store ConsultationStore,
	audit AuditSink,
	generator NoteGenerator,
	routing *CareRoutingEngine,
	notifier EscalationNotifier,
) *Orchestrator {
	return &Orchestrator{
		engine:    engine,
		store:     store,
		audit:     audit,
		generator: generator,
		routing:   routing,
		notifier:  notifier,
	}
}

// StartConsultation takes a patient intake, creates the workflow, runs
// the note generator (falling back to the conservative canned note when
// it fails), and advances to STUDENT_REVIEW. No transition is skipped:
// INITIAL -> AI_PROCESSING is the patient's own action and
// AI_PROCESSING -> STUDENT_REVIEW is the automatic advance once AI
// output exists.
func (o *Orchestrator) StartConsultation(ctx context.Context, patient models.Patient, transcript models.Transcript) (*models.Consultation, error) {
	if transcript.ID == "" {
		transcript.ID = uuid.New().String()
	}
	transcript.PatientID = patient.ID
	if err := o.store.SavePatient(ctx, &patient); err != nil {
		return nil, fmt.Errorf("failed to save patient: %w", err)
	}
	if err := o.store.SaveTranscript(ctx, &transcript); err != nil {
		return nil, fmt.Errorf("failed to save transcript: %w", err)
	}

	consult := o.engine.Create(uuid.New().String(), patient.ID, transcript.ID)
	if err := o.store.CreateConsultation(ctx, consult); err != nil {
		return nil, fmt.Errorf("failed to create consultation: %w", err)
	}
	o.audit.Record(ctx, models.AuditEntry{
		EventType: models.AuditConsultInitiated,
		Severity:  models.AuditInfo,
		UserID:    patient.ID,
		UserRole:  string(models.RolePatient),
		ConsultID: consult.ID,
		PatientID: patient.ID,
		Action:    "consultation created from symptom intake",
	})

	if err := o.engine.Transition(consult, models.StateAIProcessing, models.RolePatient, patient.ID, nil); err != nil {
		return nil, err
	}
	if err := o.store.SaveConsultation(ctx, consult); err != nil {
		return nil, fmt.Errorf("failed to save consultation: %w", err)
	}

	// Blocking collaborator call, deliberately outside the consult lock.
	aiOutput, err := o.generator.GenerateNote(ctx, transcript, patient)
	if err != nil {
		log.Printf("Note generator unavailable for consult %s, using fallback: %v", consult.ID, err)
		aiOutput = FallbackConsultOutput(consult.ID, transcript)
		o.audit.Record(ctx, models.AuditEntry{
			EventType: models.AuditAIFallbackUsed,
			Severity:  models.AuditWarning,
			ConsultID: consult.ID,
			PatientID: patient.ID,
			Action:    "note generator unavailable, conservative fallback note recorded",
		})
	}
	if aiOutput.ID == "" {
		aiOutput.ID = uuid.New().String()
	}
	aiOutput.ConsultID = consult.ID
	if err := o.store.SaveAIOutput(ctx, aiOutput); err != nil {
		return nil, fmt.Errorf("failed to save AI output: %w", err)
	}
	o.audit.Record(ctx, models.AuditEntry{
		EventType: models.AuditAINoteGenerated,
		Severity:  models.AuditInfo,
		ConsultID: consult.ID,
		PatientID: patient.ID,
		Action:    "structured note recorded",
		Details:   map[string]string{"preliminary_urgency": string(aiOutput.PreliminaryUrgency), "model_version": aiOutput.ModelVersion},
	})

	err = o.applyLocked(ctx, consult.ID, func(c *models.Consultation) error {
		c.AIOutputID = aiOutput.ID
		return o.engine.AutoTransition(c, models.StateStudentReview)
	})
	if err != nil {
		return nil, err
	}
	return o.store.GetConsultation(ctx, consult.ID)
}

// SubmitStudentReview validates and records a student review, then
// branches the workflow to escalation or patient communication.
// Validation failures return the full field-keyed violation list.
func (o *Orchestrator) SubmitStudentReview(ctx context.Context, consultID string, review models.StudentReview) (*models.Consultation, error) {
	review.ConsultID = consultID
	if err := utils.ValidateStudentReview(review); err != nil {
		o.audit.Record(ctx, models.AuditEntry{
			EventType: models.AuditValidationFailed,
			Severity:  models.AuditWarning,
			UserID:    review.StudentID,
			UserRole:  string(models.RoleMedicalStudent),
			ConsultID: consultID,
			Action:    "student review rejected by validation",
			Details:   map[string]string{"error": err.Error()},
		})
		return nil, err
	}

	if review.ID == "" {
		review.ID = uuid.New().String()
	}

	// The review row is persisted inside the locked step so a rejected
	// transition leaves nothing behind.
	err := o.applyLocked(ctx, consultID, func(c *models.Consultation) error {
		c.StudentReviewID = review.ID
		if review.RequiresEscalation {
			c.IsEscalated = true
			if err := o.engine.Transition(c, models.StateResidentEscalation, models.RoleMedicalStudent, review.StudentID,
				map[string]string{"reason": "student_escalation"}); err != nil {
				return err
			}
		} else if err := o.engine.Transition(c, models.StatePatientCommunication, models.RoleMedicalStudent, review.StudentID, nil); err != nil {
			return err
		}
		if err := o.store.SaveStudentReview(ctx, &review); err != nil {
			return fmt.Errorf("failed to save student review: %w", err)
		}
		return nil
	})
	if err != nil {
		o.recordDenied(ctx, consultID, review.StudentID, models.RoleMedicalStudent, err)
		return nil, err
	}

	if review.RequiresEscalation {
		o.audit.Record(ctx, models.AuditEntry{
			EventType: models.AuditStudentEscalated,
			Severity:  models.AuditWarning,
			UserID:    review.StudentID,
			UserRole:  string(models.RoleMedicalStudent),
			ConsultID: consultID,
			Action:    "student escalated consult to supervising physician",
			Details:   map[string]string{"reason": review.EscalationReason},
		})
		o.notifier.NotifyEscalation(ctx, consultID, review.EscalationReason, review.ValidatedUrgency)
	} else {
		o.audit.Record(ctx, models.AuditEntry{
			EventType: models.AuditStudentReviewDone,
			Severity:  models.AuditInfo,
			UserID:    review.StudentID,
			UserRole:  string(models.RoleMedicalStudent),
			ConsultID: consultID,
			Action:    "student review completed and sent to patient",
			Details:   map[string]string{"decision": string(review.AssessmentDecision), "validated_urgency": string(review.ValidatedUrgency)},
		})
	}
	return o.store.GetConsultation(ctx, consultID)
}

// SubmitPatientResponse applies the patient's answer to a communication.
// ACCEPT finalizes the record from the student review and advances
// through FINAL_APPROVED into CARE_ROUTING automatically.
func (o *Orchestrator) SubmitPatientResponse(ctx context.Context, consultID string, response models.PatientResponse) (*models.Consultation, error) {
	consult, err := o.store.GetConsultation(ctx, consultID)
	if err != nil {
		return nil, err
	}
	if response.ID == "" {
		response.ID = uuid.New().String()
	}
	response.ConsultID = consultID

	switch response.Action {
	case models.PatientAccept:
		// Build the signed record before taking the lock.
		record, err := o.finalRecordFromStudentReview(ctx, consult)
		if err != nil {
			return nil, err
		}
		err = o.applyLocked(ctx, consultID, func(c *models.Consultation) error {
			c.PatientResponseID = response.ID
			if err := o.engine.Transition(c, models.StatePatientAccepted, models.RolePatient, response.PatientID, nil); err != nil {
				return err
			}
			if err := o.engine.AutoTransition(c, models.StateFinalApproved); err != nil {
				return err
			}
			c.FinalRecordID = record.ID
			if err := o.engine.AutoTransition(c, models.StateCareRouting); err != nil {
				return err
			}
			if err := o.store.SavePatientResponse(ctx, &response); err != nil {
				return fmt.Errorf("failed to save patient response: %w", err)
			}
			if err := o.store.SaveFinalRecord(ctx, record); err != nil {
				return fmt.Errorf("failed to save final record: %w", err)
			}
			return nil
		})
		if err != nil {
			o.recordDenied(ctx, consultID, response.PatientID, models.RolePatient, err)
			return nil, err
		}
		o.recordPatientResponded(ctx, consultID, response)
		if models.RequiresPhysicianSignature(record.FinalUrgency, consult.IsEscalated) {
			o.audit.Record(ctx, models.AuditEntry{
				EventType: models.AuditPhysicianSignature,
				Severity:  models.AuditWarning,
				ConsultID: consultID,
				PatientID: response.PatientID,
				Action:    "record finalized via patient acceptance; asynchronous physician sign-off required",
				Details:   map[string]string{"final_urgency": string(record.FinalUrgency)},
			})
		}

	case models.PatientQuestion:
		err = o.applyLocked(ctx, consultID, func(c *models.Consultation) error {
			c.PatientResponseID = response.ID
			if err := o.engine.Transition(c, models.StatePatientQuestions, models.RolePatient, response.PatientID,
				map[string]string{"questions": fmt.Sprintf("%d question(s) submitted", len(response.Questions))}); err != nil {
				return err
			}
			return o.store.SavePatientResponse(ctx, &response)
		})
		if err != nil {
			o.recordDenied(ctx, consultID, response.PatientID, models.RolePatient, err)
			return nil, err
		}
		o.recordPatientResponded(ctx, consultID, response)

	case models.PatientEscalate:
		err = o.applyLocked(ctx, consultID, func(c *models.Consultation) error {
			c.PatientResponseID = response.ID
			c.IsEscalated = true
			if err := o.engine.Transition(c, models.StateResidentEscalation, models.RolePatient, response.PatientID,
				map[string]string{"reason": "patient_request"}); err != nil {
				return err
			}
			return o.store.SavePatientResponse(ctx, &response)
		})
		if err != nil {
			o.recordDenied(ctx, consultID, response.PatientID, models.RolePatient, err)
			return nil, err
		}
		o.recordPatientResponded(ctx, consultID, response)
		o.notifier.NotifyEscalation(ctx, consultID, response.EscalationConcern, models.Urgency(""))

	default:
		return nil, fmt.Errorf("invalid patient action: %s", response.Action)
	}

	return o.store.GetConsultation(ctx, consultID)
}

// AnswerPatientQuestions lets the reviewing student answer and re-send
// the communication, returning the workflow to PATIENT_COMMUNICATION.
func (o *Orchestrator) AnswerPatientQuestions(ctx context.Context, consultID, studentID, answer string) (*models.Consultation, error) {
	err := o.applyLocked(ctx, consultID, func(c *models.Consultation) error {
		return o.engine.Transition(c, models.StatePatientCommunication, models.RoleMedicalStudent, studentID,
			map[string]string{"answer": answer})
	})
	if err != nil {
		o.recordDenied(ctx, consultID, studentID, models.RoleMedicalStudent, err)
		return nil, err
	}
	return o.store.GetConsultation(ctx, consultID)
}

// SubmitResidentDecision records the physician's escalation decision,
// creates the signed final record, and advances through FINAL_APPROVED
// into CARE_ROUTING. The resident may override urgency and providers
// without constraint; the override is preserved in the audit trail.
func (o *Orchestrator) SubmitResidentDecision(ctx context.Context, consultID string, actorRole models.UserRole, review models.ResidentReview) (*models.Consultation, error) {
	consult, err := o.store.GetConsultation(ctx, consultID)
	if err != nil {
		return nil, err
	}

	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	review.ConsultID = consultID

	record := &models.FinalRecord{
		ID:                       uuid.New().String(),
		ConsultID:                consultID,
		PatientID:                consult.PatientID,
		FinalSOAP:                review.FinalSOAP,
		FinalUrgency:             review.FinalUrgency,
		FinalProviders:           review.FinalProviders,
		AIOutputID:               consult.AIOutputID,
		StudentReviewID:          consult.StudentReviewID,
		ResidentReviewID:         review.ID,
		SupervisingPhysicianID:   review.ResidentID,
		SupervisingPhysicianName: review.ResidentName,
	}

	err = o.applyLocked(ctx, consultID, func(c *models.Consultation) error {
		c.ResidentReviewID = review.ID
		if err := o.engine.Transition(c, models.StateFinalApproved, actorRole, review.ResidentID, nil); err != nil {
			return err
		}
		c.FinalRecordID = record.ID
		if err := o.engine.AutoTransition(c, models.StateCareRouting); err != nil {
			return err
		}
		if err := o.store.SaveResidentReview(ctx, &review); err != nil {
			return fmt.Errorf("failed to save resident review: %w", err)
		}
		if err := o.store.SaveFinalRecord(ctx, record); err != nil {
			return fmt.Errorf("failed to save final record: %w", err)
		}
		return nil
	})
	if err != nil {
		o.recordDenied(ctx, consultID, review.ResidentID, actorRole, err)
		return nil, err
	}

	eventType := models.AuditPhysicianReviewDone
	if review.Decision == models.ResidentOverride {
		eventType = models.AuditPhysicianOverride
	}
	o.audit.Record(ctx, models.AuditEntry{
		EventType: eventType,
		Severity:  models.AuditInfo,
		UserID:    review.ResidentID,
		UserRole:  string(actorRole),
		ConsultID: consultID,
		Action:    "physician finalized and signed escalated consult",
		Details: map[string]string{
			"decision":       string(review.Decision),
			"final_urgency":  string(review.FinalUrgency),
			"license_number": review.LicenseNumber,
		},
	})
	o.audit.Record(ctx, models.AuditEntry{
		EventType: models.AuditPhysicianSignature,
		Severity:  models.AuditInfo,
		UserID:    review.ResidentID,
		UserRole:  string(actorRole),
		ConsultID: consultID,
		Action:    "physician of record signed the final record",
		Details:   map[string]string{"license_number": review.LicenseNumber, "record_id": record.ID},
	})
	return o.store.GetConsultation(ctx, consultID)
}

// CompleteRouting generates the routing plan for a consult waiting in
// CARE_ROUTING and advances the workflow to COMPLETE.
func (o *Orchestrator) CompleteRouting(ctx context.Context, consultID string) (*models.CareRoutingPlan, error) {
	consult, err := o.store.GetConsultation(ctx, consultID)
	if err != nil {
		return nil, err
	}
	if consult.CurrentState != models.StateCareRouting {
		return nil, fmt.Errorf("%w: consult %s is in %s", ErrRoutingNotPending, consultID, consult.CurrentState)
	}

	record, err := o.store.GetFinalRecord(ctx, consult.FinalRecordID)
	if err != nil {
		return nil, fmt.Errorf("failed to load final record: %w", err)
	}
	patient, err := o.store.GetPatient(ctx, consult.PatientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load patient: %w", err)
	}

	// Directory queries and scoring happen outside the consult lock.
	plan, err := o.routing.GenerateRoutingPlan(ctx, consultID, *patient, record.FinalUrgency, record.FinalProviders, record.FinalSOAP.Assessment)
	if err != nil {
		return nil, err
	}

	err = o.applyLocked(ctx, consultID, func(c *models.Consultation) error {
		// The pre-lock state check raced against other callers; only the
		// one holding the lock on a consult still in CARE_ROUTING may
		// complete it and persist its plan.
		if c.CurrentState != models.StateCareRouting {
			return fmt.Errorf("%w: consult %s is in %s", ErrRoutingNotPending, consultID, c.CurrentState)
		}
		if err := o.engine.AutoTransition(c, models.StateComplete); err != nil {
			return err
		}
		c.RoutingPlanID = plan.ID
		return o.store.SaveRoutingPlan(ctx, plan)
	})
	if err != nil {
		return nil, err
	}

	o.audit.Record(ctx, models.AuditEntry{
		EventType: models.AuditCarePlanGenerated,
		Severity:  models.AuditInfo,
		ConsultID: consultID,
		PatientID: consult.PatientID,
		Action:    "care routing plan generated",
		Details:   map[string]string{"options": fmt.Sprintf("%d", len(plan.RecommendedOptions)), "urgency": string(plan.UrgencyLevel)},
	})
	if plan.ReferralNote != "" {
		o.audit.Record(ctx, models.AuditEntry{
			EventType: models.AuditReferralCreated,
			Severity:  models.AuditInfo,
			ConsultID: consultID,
			PatientID: consult.PatientID,
			Action:    "specialist referral note attached to routing plan",
		})
	}
	o.audit.Record(ctx, models.AuditEntry{
		EventType: models.AuditWorkflowCompleted,
		Severity:  models.AuditInfo,
		ConsultID: consultID,
		PatientID: consult.PatientID,
		Action:    "consultation workflow completed",
	})
	return plan, nil
}

// NextActions lists the moves available to a role on a consult.
func (o *Orchestrator) NextActions(ctx context.Context, consultID string, role models.UserRole) ([]Action, error) {
	consult, err := o.store.GetConsultation(ctx, consultID)
	if err != nil {
		return nil, err
	}
	return o.engine.NextActions(consult, role), nil
}

// GetConsultation exposes a consultation snapshot to callers.
func (o *Orchestrator) GetConsultation(ctx context.Context, consultID string) (*models.Consultation, error) {
	return o.store.GetConsultation(ctx, consultID)
}

// ReviewQueue lists consultations waiting in a given state, oldest
// first, so clinicians can work their queues in arrival order.
func (o *Orchestrator) ReviewQueue(ctx context.Context, state models.WorkflowState) ([]models.Consultation, error) {
	if !state.Valid() {
		return nil, fmt.Errorf("unknown workflow state: %s", state)
	}
	return o.store.ListConsultationsByState(ctx, state)
}

// ConsultationsForPatient lists a patient's consultations, newest first.
func (o *Orchestrator) ConsultationsForPatient(ctx context.Context, patientID string) ([]models.Consultation, error) {
	return o.store.ListConsultationsByPatient(ctx, patientID)
}

// applyLocked runs the read-validate-append step as one indivisible
// operation against the consultation's record.
func (o *Orchestrator) applyLocked(ctx context.Context, consultID string, mutate func(c *models.Consultation) error) error {
	return o.store.WithConsultLock(ctx, consultID, func(ctx context.Context) error {
		consult, err := o.store.GetConsultation(ctx, consultID)
		if err != nil {
			return err
		}
		if err := mutate(consult); err != nil {
			return err
		}
		return o.store.SaveConsultation(ctx, consult)
	})
}

func (o *Orchestrator) recordPatientResponded(ctx context.Context, consultID string, response models.PatientResponse) {
	o.audit.Record(ctx, models.AuditEntry{
		EventType: models.AuditPatientResponded,
		Severity:  models.AuditInfo,
		UserID:    response.PatientID,
		UserRole:  string(models.RolePatient),
		ConsultID: consultID,
		PatientID: response.PatientID,
		Action:    "patient responded to communication",
		Details:   map[string]string{"action": string(response.Action)},
	})
}

func (o *Orchestrator) recordDenied(ctx context.Context, consultID, userID string, role models.UserRole, err error) {
	if !errors.Is(err, ErrPermissionDenied) {
		return
	}
	o.audit.Record(ctx, models.AuditEntry{
		EventType: models.AuditPermissionDenied,
		Severity:  models.AuditWarning,
		UserID:    userID,
		UserRole:  string(role),
		ConsultID: consultID,
		Action:    "state transition rejected",
		Details:   map[string]string{"error": err.Error()},
	})
}

func (o *Orchestrator) finalRecordFromStudentReview(ctx context.Context, consult *models.Consultation) (*models.FinalRecord, error) {
	review, err := o.store.GetStudentReview(ctx, consult.StudentReviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to load student review: %w", err)
	}

	finalSOAP := review.ModifiedSOAP
	if finalSOAP == nil {
		aiOutput, err := o.store.GetAIOutput(ctx, consult.AIOutputID)
		if err != nil {
			return nil, fmt.Errorf("failed to load AI output: %w", err)
		}
		finalSOAP = &aiOutput.SOAP
	}

	return &models.FinalRecord{
		ID:              uuid.New().String(),
		ConsultID:       consult.ID,
		PatientID:       consult.PatientID,
		FinalSOAP:       *finalSOAP,
		FinalUrgency:    review.ValidatedUrgency,
		FinalProviders:  review.SelectedProviders,
		AIOutputID:      consult.AIOutputID,
		StudentReviewID: review.ID,
	}, nil
}
