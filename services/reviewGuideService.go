package services

import (
	"Meduroam/models"
)

// UrgencyCriterion describes the clinical criteria for one urgency level.
type UrgencyCriterion struct {
	Definition     string   `json:"definition"`
	Examples       []string `json:"examples"`
	Timeframe      string   `json:"timeframe"`
	RedFlags       []string `json:"red_flags,omitempty"`
	Considerations []string `json:"considerations,omitempty"`
}

// ProviderGuidance describes when a provider type is the right choice.
type ProviderGuidance struct {
	Description     string   `json:"description"`
	AppropriateFor  []string `json:"appropriate_for"`
	Limitations     []string `json:"limitations"`
	CanadianContext string   `json:"canadian_context"`
}

// ReviewGuide is the static clinical reference served to reviewing
// students: what each assessment decision means, how urgency is
// classified, which provider types fit, and when escalation to the
// supervising physician is mandatory.
type ReviewGuide struct {
	AssessmentGuidelines map[models.StudentDecision][]string      `json:"assessment_guidelines"`
	UrgencyCriteria      map[models.Urgency]UrgencyCriterion      `json:"urgency_criteria"`
	ProviderGuide        map[models.ProviderType]ProviderGuidance `json:"provider_guide"`
	EscalationTriggers   []string                                 `json:"escalation_triggers"`
}

// StudentReviewGuide returns the reviewing rubric. The data is static;
// clients render it instead of hardcoding the clinical policy.
func StudentReviewGuide() ReviewGuide {
	return ReviewGuide{
		AssessmentGuidelines: assessmentGuidelines,
		UrgencyCriteria:      urgencyCriteria,
		ProviderGuide:        providerGuide,
		EscalationTriggers:   escalationTriggers,
	}
}

var assessmentGuidelines = map[models.StudentDecision][]string{
	models.DecisionAgree: {
		"AI differential diagnosis is comprehensive",
		"No critical diagnoses were missed",
		"Red flags were appropriately assessed",
		"Urgency level matches clinical picture",
		"Reasoning is sound and evidence-based",
	},
	models.DecisionModify: {
		"Core assessment is correct but incomplete",
		"Need to add/remove differential diagnoses",
		"Urgency level needs adjustment",
		"Plan needs refinement but direction is right",
		"Minor clinical reasoning gaps to address",
	},
	models.DecisionDisagree: {
		"Missed critical diagnosis",
		"Inappropriate urgency classification",
		"Dangerous oversight or error",
		"Reasoning is flawed or unsupported",
		"Plan could cause patient harm",
	},
}

var urgencyCriteria = map[models.Urgency]UrgencyCriterion{
	models.UrgencyEmergency: {
		Definition: "Life or limb threatening, requires immediate ED evaluation",
		Examples: []string{
			"Chest pain concerning for MI/PE",
			"Acute stroke symptoms",
			"Severe shortness of breath",
			"Severe trauma or bleeding",
			"Altered mental status",
			"Severe abdominal pain with peritoneal signs",
		},
		Timeframe: "Immediate (call 911 or go to ED now)",
		RedFlags: []string{
			"Hemodynamic instability",
			"Airway compromise",
			"Acute neurological deficit",
			"Uncontrolled bleeding",
		},
	},
	models.UrgencyUrgent: {
		Definition: "Needs medical attention soon, could worsen if delayed",
		Examples: []string{
			"Suspected UTI with fever",
			"Worsening cellulitis",
			"Moderate pain or discomfort",
			"Persistent vomiting/diarrhea",
			"Medication side effects",
		},
		Timeframe: "24-48 hours",
		Considerations: []string{
			"Could progress if untreated",
			"Significant impact on function",
			"Requires timely intervention",
		},
	},
	models.UrgencyRoutine: {
		Definition: "Can be addressed in routine care setting",
		Examples: []string{
			"Chronic disease management",
			"Preventive care needs",
			"Minor skin issues",
			"Mild stable symptoms",
			"Follow-up care",
		},
		Timeframe: "Days to weeks",
		Considerations: []string{
			"Stable condition",
			"No immediate risk",
			"Can wait for appropriate provider",
		},
	},
}

var providerGuide = map[models.ProviderType]ProviderGuidance{
	models.ProviderGP: {
		Description: "Family physician / General practitioner",
		AppropriateFor: []string{
			"Chronic disease management",
			"Complex medical history",
			"Requires continuity of care",
			"Multiple comorbidities",
			"Needs comprehensive assessment",
		},
		Limitations: []string{
			"May have long wait times",
			"Often requires an established patient relationship",
			"Not always available for acute issues",
		},
		CanadianContext: "Primary gatekeeper in Canadian system",
	},
	models.ProviderNP: {
		Description: "Nurse practitioner",
		AppropriateFor: []string{
			"Minor acute illnesses",
			"Routine chronic disease management",
			"Prescriptions and referrals",
			"Patient education",
		},
		Limitations: []string{
			"Scope of practice varies by province",
			"May need physician consultation for complex cases",
		},
		CanadianContext: "Increasing role in primary care, good for access",
	},
	models.ProviderRN: {
		Description: "Registered nurse",
		AppropriateFor: []string{
			"Health education",
			"Wound care",
			"Chronic disease education",
			"Triage and assessment",
		},
		Limitations: []string{
			"Cannot prescribe medications in most provinces",
			"Cannot make diagnoses",
		},
		CanadianContext: "Often first point of contact in clinics",
	},
	models.ProviderUrgentCare: {
		Description: "Walk-in urgent care clinic",
		AppropriateFor: []string{
			"Minor injuries",
			"Acute illnesses",
			"After-hours needs",
			"No family doctor available",
		},
		Limitations: []string{
			"No continuity of care",
			"May have limited diagnostic capabilities",
			"Can have long wait times",
		},
		CanadianContext: "Good option for urgent but non-emergent issues",
	},
	models.ProviderED: {
		Description: "Emergency department",
		AppropriateFor: []string{
			"Life-threatening emergencies",
			"Severe acute conditions",
			"When other options exhausted",
		},
		Limitations: []string{
			"Very long wait times for non-emergent issues",
			"No continuity of care",
			"Resource-intensive",
		},
		CanadianContext: "Only for true emergencies - significant strain on system",
	},
	models.ProviderSpecialist: {
		Description: "Medical specialist",
		AppropriateFor: []string{
			"Complex or rare conditions",
			"Failed treatment by primary care",
			"Requires specialized expertise",
		},
		Limitations: []string{
			"Requires referral from GP/NP",
			"Long wait times, often months",
			"Geographic barriers",
		},
		CanadianContext: "Gatekeeper system - must have referral",
	},
}

var escalationTriggers = []string{
	"Any disagreement with AI urgency classification",
	"Consideration of ED referral",
	"Unusual or rare diagnosis suspected",
	"Patient has multiple complex comorbidities",
	"Student uncertainty about clinical decision",
	"Patient requesting physician review",
	"Medicolegal concerns",
	"Diagnosis has significant consequences (e.g., cancer)",
	"Requires controlled substance prescription",
	"Student lacks confidence in assessment",
}
