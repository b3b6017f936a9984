package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"Meduroam/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// memoryStore is an in-memory ConsultationStore. Reads return copies so
// mutations only land through Save, mirroring the database-backed store.
// WithConsultLock is backed by a real mutex so concurrent callers
// serialize the way the redis-locked store does.
type memoryStore struct {
	mu              sync.Mutex
	lockMu          sync.Mutex
	consults        map[string]*models.Consultation
	consultOrder    []string
	patients        map[string]*models.Patient
	transcripts     map[string]*models.Transcript
	aiOutputs       map[string]*models.AIConsultOutput
	studentReviews  map[string]*models.StudentReview
	residentReviews map[string]*models.ResidentReview
	responses       map[string]*models.PatientResponse
	records         map[string]*models.FinalRecord
	plans           map[string]*models.CareRoutingPlan
	lockCount       int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		consults:        make(map[string]*models.Consultation),
		patients:        make(map[string]*models.Patient),
		transcripts:     make(map[string]*models.Transcript),
		aiOutputs:       make(map[string]*models.AIConsultOutput),
		studentReviews:  make(map[string]*models.StudentReview),
		residentReviews: make(map[string]*models.ResidentReview),
		responses:       make(map[string]*models.PatientResponse),
		records:         make(map[string]*models.FinalRecord),
		plans:           make(map[string]*models.CareRoutingPlan),
	}
}

func copyConsult(c *models.Consultation) *models.Consultation {
	clone := *c
	clone.StateHistory = append([]models.StateTransition(nil), c.StateHistory...)
	return &clone
}

func (s *memoryStore) CreateConsultation(ctx context.Context, c *models.Consultation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consults[c.ID] = copyConsult(c)
	s.consultOrder = append(s.consultOrder, c.ID)
	return nil
}

func (s *memoryStore) GetConsultation(ctx context.Context, id string) (*models.Consultation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.consults[id]
	if !ok {
		return nil, errors.New("consultation not found")
	}
	return copyConsult(c), nil
}

func (s *memoryStore) SaveConsultation(ctx context.Context, c *models.Consultation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consults[c.ID] = copyConsult(c)
	return nil
}

func (s *memoryStore) ListConsultationsByState(ctx context.Context, state models.WorkflowState) ([]models.Consultation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Consultation
	for _, id := range s.consultOrder {
		if c := s.consults[id]; c.CurrentState == state {
			out = append(out, *copyConsult(c))
		}
	}
	return out, nil
}

func (s *memoryStore) ListConsultationsByPatient(ctx context.Context, patientID string) ([]models.Consultation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Consultation
	for i := len(s.consultOrder) - 1; i >= 0; i-- {
		if c := s.consults[s.consultOrder[i]]; c.PatientID == patientID {
			out = append(out, *copyConsult(c))
		}
	}
	return out, nil
}

func (s *memoryStore) WithConsultLock(ctx context.Context, consultID string, fn func(ctx context.Context) error) error {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	s.mu.Lock()
	s.lockCount++
	s.mu.Unlock()
	return fn(ctx)
}

func (s *memoryStore) SavePatient(ctx context.Context, patient *models.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients[patient.ID] = patient
	return nil
}

func (s *memoryStore) GetPatient(ctx context.Context, id string) (*models.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, errors.New("patient not found")
	}
	return p, nil
}

func (s *memoryStore) SaveTranscript(ctx context.Context, transcript *models.Transcript) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts[transcript.ID] = transcript
	return nil
}

func (s *memoryStore) SaveAIOutput(ctx context.Context, output *models.AIConsultOutput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aiOutputs[output.ID] = output
	return nil
}

func (s *memoryStore) GetAIOutput(ctx context.Context, id string) (*models.AIConsultOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.aiOutputs[id]
	if !ok {
		return nil, errors.New("AI output not found")
	}
	return o, nil
}

func (s *memoryStore) SaveStudentReview(ctx context.Context, review *models.StudentReview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.studentReviews[review.ID] = review
	return nil
}

func (s *memoryStore) GetStudentReview(ctx context.Context, id string) (*models.StudentReview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.studentReviews[id]
	if !ok {
		return nil, errors.New("student review not found")
	}
	return r, nil
}

func (s *memoryStore) SaveResidentReview(ctx context.Context, review *models.ResidentReview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.residentReviews[review.ID] = review
	return nil
}

func (s *memoryStore) SavePatientResponse(ctx context.Context, response *models.PatientResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[response.ID] = response
	return nil
}

func (s *memoryStore) SaveFinalRecord(ctx context.Context, record *models.FinalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
	return nil
}

func (s *memoryStore) GetFinalRecord(ctx context.Context, id string) (*models.FinalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, errors.New("final record not found")
	}
	return r, nil
}

func (s *memoryStore) SaveRoutingPlan(ctx context.Context, plan *models.CareRoutingPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[plan.ID] = plan
	return nil
}

func (s *memoryStore) GetRoutingPlan(ctx context.Context, id string) (*models.CareRoutingPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, errors.New("routing plan not found")
	}
	return p, nil
}

type memoryAudit struct {
	entries []models.AuditEntry
}

func (a *memoryAudit) Record(ctx context.Context, entry models.AuditEntry) {
	a.entries = append(a.entries, entry)
}

func (a *memoryAudit) has(eventType models.AuditEventType) bool {
	for _, entry := range a.entries {
		if entry.EventType == eventType {
			return true
		}
	}
	return false
}

type memoryNotifier struct {
	consultIDs []string
	reasons    []string
}

func (n *memoryNotifier) NotifyEscalation(ctx context.Context, consultID, reason string, urgency models.Urgency) {
	n.consultIDs = append(n.consultIDs, consultID)
	n.reasons = append(n.reasons, reason)
}

// stubGenerator returns a fixed structured note, or fails on demand.
type stubGenerator struct {
	output *models.AIConsultOutput
	err    error
}

func (g *stubGenerator) GenerateNote(ctx context.Context, transcript models.Transcript, patient models.Patient) (*models.AIConsultOutput, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.output, nil
}

type testHarness struct {
	orchestrator *Orchestrator
	store        *memoryStore
	audit        *memoryAudit
	notifier     *memoryNotifier
}

func defaultDirectory() *stubDirectory {
	return &stubDirectory{
		facilities: map[models.ProviderType][]models.Facility{
			models.ProviderGP: {
				{ID: "gp_1", Name: "Riverside Family Practice", DistanceKM: 2.0, WaitTime: "2-3 days", BookingURL: "https://book.example.com"},
			},
			models.ProviderNP: {
				{ID: "np_1", Name: "Community NP Clinic", DistanceKM: 1.0, WaitTime: "24 hours", AcceptsWalkIns: true},
			},
			models.ProviderED: {
				{ID: "ed_1", Name: "General Hospital ED", DistanceKM: 4.0, WaitTime: "30 minutes"},
			},
		},
	}
}

// gatedDirectory holds every facility lookup at a gate until the test
// releases it, letting a test line up concurrent routing calls past
// their pre-lock state checks.
type gatedDirectory struct {
	inner   FacilityDirectory
	entered chan struct{}
	release chan struct{}
}

func (d *gatedDirectory) GetFacilities(ctx context.Context, providerType models.ProviderType, postalCode, province string, urgency models.Urgency) ([]models.Facility, error) {
	d.entered <- struct{}{}
	<-d.release
	return d.inner.GetFacilities(ctx, providerType, postalCode, province, urgency)
}

func (d *gatedDirectory) DataSources() []string {
	return d.inner.DataSources()
}

func newTestHarness(generator NoteGenerator) *testHarness {
	return newHarnessWithDirectory(generator, defaultDirectory())
}

func newHarnessWithDirectory(generator NoteGenerator, directory FacilityDirectory) *testHarness {
	store := newMemoryStore()
	audit := &memoryAudit{}
	notifier := &memoryNotifier{}
	return &testHarness{
		orchestrator: NewOrchestrator(NewWorkflowEngine(), store, audit,
			generator, NewCareRoutingEngine(directory), notifier),
		store:    store,
		audit:    audit,
		notifier: notifier,
	}
}

func workingGenerator() *stubGenerator {
	return &stubGenerator{
		output: &models.AIConsultOutput{
			SOAP: models.SOAPNote{
				Subjective: "Patient reports a pruritic rash on both forearms for five days.",
				Objective:  "No objective findings available from remote intake.",
				Assessment: "Likely contact dermatitis. Low suspicion of systemic involvement.",
				Plan:       "Topical corticosteroid and follow-up with primary care within a week.",
			},
			Reasoning: models.AIReasoning{
				DifferentialDiagnosis: []string{"Contact dermatitis", "Atopic dermatitis"},
				ClinicalReasoning:     "Localized pruritic rash without systemic symptoms.",
				ConfidenceLevel:       0.82,
			},
			PreliminaryUrgency: models.UrgencyRoutine,
			SuggestedProviders: []models.ProviderType{models.ProviderGP, models.ProviderNP},
			ModelVersion:       "stub-1",
		},
	}
}

func intakePatient() models.Patient {
	return models.Patient{
		ID:              "patient_1",
		Age:             29,
		Sex:             "F",
		Province:        "ON",
		PostalCode:      "M5V 2T6",
		HasFamilyDoctor: true,
	}
}

func intakeTranscript() models.Transcript {
	return models.Transcript{
		PatientID:          "patient_1",
		ChiefComplaint:     "Itchy rash on forearms",
		SymptomDescription: "Red raised patches on both forearms, itchy, worse at night.",
		Duration:           "5 days",
	}
}

func passingReview() models.StudentReview {
	return models.StudentReview{
		StudentID:                  "student_1",
		StudentName:                "A. Reviewer",
		AssessmentDecision:         models.DecisionAgree,
		ValidatedUrgency:           models.UrgencyRoutine,
		SelectedProviders:          []models.ProviderType{models.ProviderGP, models.ProviderNP},
		ClinicalReasoningSummary:   "Presentation is consistent with contact dermatitis; no systemic features or red flags identified on review.",
		KeyDifferentials:           []string{"Contact dermatitis", "Atopic dermatitis", "Scabies"},
		RedFlagsAssessment:         "No fever, no mucosal involvement, no rapid progression.",
		ProviderSelectionRationale: "Routine dermatologic complaint suited to primary care follow-up.",
	}
}

func historyStates(c *models.Consultation) []models.WorkflowState {
	states := make([]models.WorkflowState, 0, len(c.StateHistory))
	for _, entry := range c.StateHistory {
		states = append(states, entry.State)
	}
	return states
}

func TestStartConsultationReachesStudentReview(t *testing.T) {
	h := newTestHarness(workingGenerator())
	ctx := context.Background()

	consult, err := h.orchestrator.StartConsultation(ctx, intakePatient(), intakeTranscript())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if consult.CurrentState != models.StateStudentReview {
		t.Errorf("expected state %s, got %s", models.StateStudentReview, consult.CurrentState)
	}
	if consult.AIOutputID == "" {
		t.Error("expected AI output reference to be recorded")
	}
	want := []models.WorkflowState{models.StateInitial, models.StateAIProcessing, models.StateStudentReview}
	got := historyStates(consult)
	if len(got) != len(want) {
		t.Fatalf("expected history %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected history %v, got %v", want, got)
		}
	}
	if !h.audit.has(models.AuditConsultInitiated) || !h.audit.has(models.AuditAINoteGenerated) {
		t.Error("expected intake and note-generation audit entries")
	}
	if h.audit.has(models.AuditAIFallbackUsed) {
		t.Error("fallback audit recorded for a healthy generator")
	}
}

func TestStartConsultationFallsBackWhenGeneratorFails(t *testing.T) {
	h := newTestHarness(&stubGenerator{err: errors.New("upstream timeout")})
	ctx := context.Background()

	consult, err := h.orchestrator.StartConsultation(ctx, intakePatient(), intakeTranscript())
	if err != nil {
		t.Fatalf("generator failure must not fail intake: %v", err)
	}

	if consult.CurrentState != models.StateStudentReview {
		t.Errorf("expected state %s, got %s", models.StateStudentReview, consult.CurrentState)
	}
	if !h.audit.has(models.AuditAIFallbackUsed) {
		t.Error("expected fallback audit entry")
	}

	output, err := h.store.GetAIOutput(ctx, consult.AIOutputID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !output.IsFallback {
		t.Error("stored output should be marked as fallback")
	}
	if output.PreliminaryUrgency != models.UrgencyUrgent {
		t.Errorf("fallback urgency should default to URGENT, got %s", output.PreliminaryUrgency)
	}
}

func TestSubmitStudentReviewRejectsInvalid(t *testing.T) {
	h := newTestHarness(workingGenerator())
	ctx := context.Background()

	consult, err := h.orchestrator.StartConsultation(ctx, intakePatient(), intakeTranscript())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	review := passingReview()
	review.ClinicalReasoningSummary = "too short"
	_, err = h.orchestrator.SubmitStudentReview(ctx, consult.ID, review)

	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		t.Fatalf("expected validation.Errors, got %v", err)
	}
	if _, ok := fieldErrs["clinical_reasoning_summary"]; !ok {
		t.Error("expected violation keyed by clinical_reasoning_summary")
	}
	if !h.audit.has(models.AuditValidationFailed) {
		t.Error("expected validation-failure audit entry")
	}

	after, err := h.orchestrator.GetConsultation(ctx, consult.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if after.CurrentState != models.StateStudentReview {
		t.Errorf("rejected review must not advance the workflow, state is %s", after.CurrentState)
	}
}

func TestAcceptancePathCompletesWorkflow(t *testing.T) {
	h := newTestHarness(workingGenerator())
	ctx := context.Background()

	consult, err := h.orchestrator.StartConsultation(ctx, intakePatient(), intakeTranscript())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	consult, err = h.orchestrator.SubmitStudentReview(ctx, consult.ID, passingReview())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if consult.CurrentState != models.StatePatientCommunication {
		t.Fatalf("expected %s after review, got %s", models.StatePatientCommunication, consult.CurrentState)
	}

	consult, err = h.orchestrator.SubmitPatientResponse(ctx, consult.ID, models.PatientResponse{
		PatientID: "patient_1",
		Action:    models.PatientAccept,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if consult.CurrentState != models.StateCareRouting {
		t.Fatalf("expected %s after acceptance, got %s", models.StateCareRouting, consult.CurrentState)
	}
	if consult.FinalRecordID == "" {
		t.Fatal("expected final record reference after acceptance")
	}
	if consult.IsEscalated {
		t.Error("acceptance path should not mark the consult escalated")
	}

	record, err := h.store.GetFinalRecord(ctx, consult.FinalRecordID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.FinalUrgency != models.UrgencyRoutine {
		t.Errorf("final urgency should come from the student review, got %s", record.FinalUrgency)
	}
	if record.ResidentReviewID != "" {
		t.Error("unescalated record should carry no resident review")
	}

	plan, err := h.orchestrator.CompleteRouting(ctx, consult.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.RecommendedOptions) == 0 {
		t.Fatal("expected ranked options in the plan")
	}

	final, err := h.orchestrator.GetConsultation(ctx, consult.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if final.CurrentState != models.StateComplete {
		t.Errorf("expected %s, got %s", models.StateComplete, final.CurrentState)
	}
	if final.CompletedAt == nil {
		t.Error("expected completion timestamp")
	}
	if final.RoutingPlanID != plan.ID {
		t.Errorf("consult should reference plan %s, got %s", plan.ID, final.RoutingPlanID)
	}
	if !h.audit.has(models.AuditCarePlanGenerated) || !h.audit.has(models.AuditWorkflowCompleted) {
		t.Error("expected routing and completion audit entries")
	}
	if len(h.notifier.consultIDs) != 0 {
		t.Error("no escalation notification expected on the acceptance path")
	}
}

func TestUrgentAcceptanceFlagsPendingSignature(t *testing.T) {
	h := newTestHarness(workingGenerator())
	ctx := context.Background()

	consult, err := h.orchestrator.StartConsultation(ctx, intakePatient(), intakeTranscript())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	review := passingReview()
	review.ValidatedUrgency = models.UrgencyUrgent
	if _, err = h.orchestrator.SubmitStudentReview(ctx, consult.ID, review); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err = h.orchestrator.SubmitPatientResponse(ctx, consult.ID, models.PatientResponse{
		PatientID: "patient_1",
		Action:    models.PatientAccept,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !h.audit.has(models.AuditPhysicianSignature) {
		t.Error("expected pending-signature audit entry for accepted urgent consult")
	}
}

func TestQuestionLoopReturnsToCommunication(t *testing.T) {
	h := newTestHarness(workingGenerator())
	ctx := context.Background()

	consult, err := h.orchestrator.StartConsultation(ctx, intakePatient(), intakeTranscript())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err = h.orchestrator.SubmitStudentReview(ctx, consult.ID, passingReview()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	consult, err = h.orchestrator.SubmitPatientResponse(ctx, consult.ID, models.PatientResponse{
		PatientID: "patient_1",
		Action:    models.PatientQuestion,
		Questions: []string{"Can I keep using my current moisturizer?"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if consult.CurrentState != models.StatePatientQuestions {
		t.Fatalf("expected %s, got %s", models.StatePatientQuestions, consult.CurrentState)
	}

	consult, err = h.orchestrator.AnswerPatientQuestions(ctx, consult.ID, "student_1",
		"Yes, a fragrance-free moisturizer is fine alongside the prescribed cream.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if consult.CurrentState != models.StatePatientCommunication {
		t.Errorf("expected %s after answering, got %s", models.StatePatientCommunication, consult.CurrentState)
	}
	last := consult.StateHistory[len(consult.StateHistory)-1]
	if last.Metadata["answer"] == "" {
		t.Error("expected the answer recorded in transition metadata")
	}
}

func TestEscalationPathWithPhysicianOverride(t *testing.T) {
	h := newTestHarness(workingGenerator())
	ctx := context.Background()

	consult, err := h.orchestrator.StartConsultation(ctx, intakePatient(), intakeTranscript())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	review := passingReview()
	review.RequiresEscalation = true
	review.EscalationReason = "Rash morphology is atypical and spreading despite treatment."
	consult, err = h.orchestrator.SubmitStudentReview(ctx, consult.ID, review)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if consult.CurrentState != models.StateResidentEscalation {
		t.Fatalf("expected %s, got %s", models.StateResidentEscalation, consult.CurrentState)
	}
	if !consult.IsEscalated {
		t.Error("expected consult marked escalated")
	}
	if len(h.notifier.consultIDs) != 1 {
		t.Fatalf("expected 1 escalation notification, got %d", len(h.notifier.consultIDs))
	}
	if !h.audit.has(models.AuditStudentEscalated) {
		t.Error("expected student-escalation audit entry")
	}

	decision := models.ResidentReview{
		ResidentID:    "resident_1",
		ResidentName:  "Dr. R. Oncall",
		LicenseNumber: "CPSO-123456",
		Decision:      models.ResidentOverride,
		FinalSOAP: models.SOAPNote{
			Subjective: "Spreading pruritic rash despite topical treatment.",
			Objective:  "Remote review of patient-submitted photos.",
			Assessment: "Possible drug eruption; urgency raised over the preliminary assessment.",
			Plan:       "Urgent in-person assessment within 48 hours.",
		},
		FinalUrgency:      models.UrgencyUrgent,
		FinalProviders:    []models.ProviderType{models.ProviderGP, models.ProviderNP},
		ClinicalRationale: "Progression on treatment warrants escalation of urgency.",
	}
	consult, err = h.orchestrator.SubmitResidentDecision(ctx, consult.ID, models.RoleResident, decision)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if consult.CurrentState != models.StateCareRouting {
		t.Fatalf("expected %s after physician sign-off, got %s", models.StateCareRouting, consult.CurrentState)
	}
	if !h.audit.has(models.AuditPhysicianOverride) {
		t.Error("expected physician-override audit entry")
	}

	record, err := h.store.GetFinalRecord(ctx, consult.FinalRecordID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.FinalUrgency != models.UrgencyUrgent {
		t.Errorf("override urgency not preserved, got %s", record.FinalUrgency)
	}
	if record.SupervisingPhysicianID != "resident_1" {
		t.Errorf("expected supervising physician attribution, got %q", record.SupervisingPhysicianID)
	}
}

func TestPatientEscalationNotifiesPhysician(t *testing.T) {
	h := newTestHarness(workingGenerator())
	ctx := context.Background()

	consult, err := h.orchestrator.StartConsultation(ctx, intakePatient(), intakeTranscript())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err = h.orchestrator.SubmitStudentReview(ctx, consult.ID, passingReview()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	consult, err = h.orchestrator.SubmitPatientResponse(ctx, consult.ID, models.PatientResponse{
		PatientID:         "patient_1",
		Action:            models.PatientEscalate,
		EscalationConcern: "I would like a doctor to look at this directly.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if consult.CurrentState != models.StateResidentEscalation {
		t.Fatalf("expected %s, got %s", models.StateResidentEscalation, consult.CurrentState)
	}
	if !consult.IsEscalated {
		t.Error("expected consult marked escalated")
	}
	if len(h.notifier.reasons) != 1 || h.notifier.reasons[0] == "" {
		t.Error("expected escalation notification carrying the patient concern")
	}
	last := consult.StateHistory[len(consult.StateHistory)-1]
	if last.Metadata["reason"] != "patient_request" {
		t.Errorf("expected patient_request metadata, got %q", last.Metadata["reason"])
	}
}

func TestCompleteRoutingRequiresCareRoutingState(t *testing.T) {
	h := newTestHarness(workingGenerator())
	ctx := context.Background()

	consult, err := h.orchestrator.StartConsultation(ctx, intakePatient(), intakeTranscript())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = h.orchestrator.CompleteRouting(ctx, consult.ID)
	if !errors.Is(err, ErrRoutingNotPending) {
		t.Fatalf("expected ErrRoutingNotPending, got %v", err)
	}
}

func TestConcurrentCompleteRoutingRunsOnce(t *testing.T) {
	directory := &gatedDirectory{
		inner:   defaultDirectory(),
		entered: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
	h := newHarnessWithDirectory(workingGenerator(), directory)
	ctx := context.Background()

	consult, err := h.orchestrator.StartConsultation(ctx, intakePatient(), intakeTranscript())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err = h.orchestrator.SubmitStudentReview(ctx, consult.ID, passingReview()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err = h.orchestrator.SubmitPatientResponse(ctx, consult.ID, models.PatientResponse{
		PatientID: "patient_1",
		Action:    models.PatientAccept,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := h.orchestrator.CompleteRouting(ctx, consult.ID)
			errs <- err
		}()
	}

	// Both callers have passed the pre-lock state check once both are
	// inside a facility lookup; only then open the gate.
	<-directory.entered
	<-directory.entered
	close(directory.release)

	var failures []error
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			failures = append(failures, err)
		}
	}
	if len(failures) != 1 || !errors.Is(failures[0], ErrRoutingNotPending) {
		t.Fatalf("expected exactly one caller rejected with ErrRoutingNotPending, got %v", failures)
	}

	final, err := h.orchestrator.GetConsultation(ctx, consult.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	completions := 0
	for _, entry := range final.StateHistory {
		if entry.State == models.StateComplete {
			completions++
		}
	}
	if completions != 1 {
		t.Errorf("expected exactly 1 COMPLETE history entry, got %d", completions)
	}
	if len(h.store.plans) != 1 {
		t.Errorf("expected exactly 1 persisted routing plan, got %d", len(h.store.plans))
	}
}

func TestRejectedResponseLeavesNoOrphans(t *testing.T) {
	h := newTestHarness(workingGenerator())
	ctx := context.Background()

	consult, err := h.orchestrator.StartConsultation(ctx, intakePatient(), intakeTranscript())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err = h.orchestrator.SubmitStudentReview(ctx, consult.ID, passingReview()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err = h.orchestrator.SubmitPatientResponse(ctx, consult.ID, models.PatientResponse{
		PatientID: "patient_1",
		Action:    models.PatientAccept,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The consult is now in CARE_ROUTING; a second acceptance must be
	// rejected without persisting another response or record.
	_, err = h.orchestrator.SubmitPatientResponse(ctx, consult.ID, models.PatientResponse{
		PatientID: "patient_1",
		Action:    models.PatientAccept,
	})
	if err == nil {
		t.Fatal("expected the repeated acceptance to be rejected")
	}
	if len(h.store.responses) != 1 {
		t.Errorf("rejected response must not be persisted, found %d", len(h.store.responses))
	}
	if len(h.store.records) != 1 {
		t.Errorf("rejected acceptance must not persist a second final record, found %d", len(h.store.records))
	}
}

func TestReviewQueueListsByStateInArrivalOrder(t *testing.T) {
	h := newTestHarness(workingGenerator())
	ctx := context.Background()

	first, err := h.orchestrator.StartConsultation(ctx, intakePatient(), intakeTranscript())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := h.orchestrator.StartConsultation(ctx, intakePatient(), intakeTranscript())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	queue, err := h.orchestrator.ReviewQueue(ctx, models.StateStudentReview)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queue) != 2 {
		t.Fatalf("expected 2 queued consults, got %d", len(queue))
	}
	if queue[0].ID != first.ID || queue[1].ID != second.ID {
		t.Errorf("expected arrival order [%s %s], got [%s %s]", first.ID, second.ID, queue[0].ID, queue[1].ID)
	}

	if _, err := h.orchestrator.ReviewQueue(ctx, models.WorkflowState("NOT_A_STATE")); err == nil {
		t.Error("expected an error for an unknown state filter")
	}

	mine, err := h.orchestrator.ConsultationsForPatient(ctx, "patient_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 consults for patient, got %d", len(mine))
	}
	if mine[0].ID != second.ID {
		t.Errorf("expected newest consult first, got %s", mine[0].ID)
	}
}

func TestInvalidPatientActionRejected(t *testing.T) {
	h := newTestHarness(workingGenerator())
	ctx := context.Background()

	consult, err := h.orchestrator.StartConsultation(ctx, intakePatient(), intakeTranscript())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err = h.orchestrator.SubmitStudentReview(ctx, consult.ID, passingReview()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = h.orchestrator.SubmitPatientResponse(ctx, consult.ID, models.PatientResponse{
		PatientID: "patient_1",
		Action:    models.PatientAction("SHRUG"),
	})
	if err == nil {
		t.Fatal("expected an error for an unknown patient action")
	}
}

func TestNextActionsReflectRoleAndState(t *testing.T) {
	h := newTestHarness(workingGenerator())
	ctx := context.Background()

	consult, err := h.orchestrator.StartConsultation(ctx, intakePatient(), intakeTranscript())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	studentActions, err := h.orchestrator.NextActions(ctx, consult.ID, models.RoleMedicalStudent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(studentActions) != 2 {
		t.Errorf("expected 2 student actions during review, got %d", len(studentActions))
	}

	patientActions, err := h.orchestrator.NextActions(ctx, consult.ID, models.RolePatient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patientActions) != 0 {
		t.Errorf("expected no patient actions during review, got %d", len(patientActions))
	}
}
