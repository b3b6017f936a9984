package services

import (
	"Meduroam/models"
	"Meduroam/utils"
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
)

// FacilityDirectory is the collaborator that returns candidate
// facilities for a provider type near a patient. A failing directory for
// one provider type only omits that type's candidates from the ranking.
type FacilityDirectory interface {
	GetFacilities(ctx context.Context, providerType models.ProviderType, postalCode, province string, urgency models.Urgency) ([]models.Facility, error)
	DataSources() []string
}

// maxRecommendedOptions caps the ranked list returned in a plan.
const maxRecommendedOptions = 5

// acuityScores is the fixed (urgency, provider) acuity-fit table,
// 0-40 points. It encodes routing to the least-intensive-appropriate
// setting; pairs absent from the table score zero.
var acuityScores = map[models.Urgency]map[models.ProviderType]float64{
	models.UrgencyEmergency: {
		models.ProviderED:         40,
		models.ProviderUrgentCare: 20,
	},
	models.UrgencyUrgent: {
		models.ProviderUrgentCare: 40,
		models.ProviderGP:         35,
		models.ProviderNP:         35,
		models.ProviderSpecialist: 25,
		models.ProviderRN:         20,
		models.ProviderED:         15, // ED is penalized, not rewarded, for non-emergencies
	},
	models.UrgencyRoutine: {
		models.ProviderGP:         40,
		models.ProviderNP:         38,
		models.ProviderSpecialist: 35,
		models.ProviderRN:         30,
		models.ProviderUrgentCare: 20,
		models.ProviderED:         0,
	},
}

// idealWaitHours is the urgency-specific ideal-wait ceiling in hours.
var idealWaitHours = map[models.Urgency]float64{
	models.UrgencyEmergency: 2,
	models.UrgencyUrgent:    48,
	models.UrgencyRoutine:   336, // two weeks
}

// CareRoutingEngine ranks care options for a validated urgency and
// provider set. Scoring is pure and per-call; nothing is cached between
// ranking passes.
type CareRoutingEngine struct {
	directory FacilityDirectory
}

func NewCareRoutingEngine(directory FacilityDirectory) *CareRoutingEngine {
	return &CareRoutingEngine{directory: directory}
}

// GenerateRoutingPlan queries the facility directory for every approved
// provider type, scores each candidate, and returns the top options
// sorted by descending priority score. Ties keep input order.
func (e *CareRoutingEngine) GenerateRoutingPlan(
	ctx context.Context,
	consultID string,
	patient models.Patient,
	urgency models.Urgency,
	approvedProviders []models.ProviderType,
	clinicalSummary string,
) (*models.CareRoutingPlan, error) {
	options := e.collectOptions(ctx, patient, approvedProviders, urgency)

	for i := range options {
		options[i].PriorityScore = e.scoreOption(options[i], urgency, patient)
	}
	sort.SliceStable(options, func(i, j int) bool {
		return options[i].PriorityScore > options[j].PriorityScore
	})
	if len(options) > maxRecommendedOptions {
		options = options[:maxRecommendedOptions]
	}

	plan := &models.CareRoutingPlan{
		ID:                       fmt.Sprintf("route_%s", uuid.New().String()),
		ConsultID:                consultID,
		PatientID:                patient.ID,
		RecommendedOptions:       options,
		UrgencyLevel:             urgency,
		DataSourcesUsed:          e.directory.DataSources(),
		DataFreshness:            time.Now(),
		PatientSummary:           clinicalSummary,
		EstablishPrimaryCareFlag: RecommendPrimaryCareFirst(patient, urgency),
	}

	if utils.HasProvider(approvedProviders, models.ProviderSpecialist) {
		plan.ReferralNote = generateReferralNote(patient, clinicalSummary)
	}

	return plan, nil
}

func (e *CareRoutingEngine) collectOptions(
	ctx context.Context,
	patient models.Patient,
	approvedProviders []models.ProviderType,
	urgency models.Urgency,
) []models.CareOption {
	var options []models.CareOption
	for _, providerType := range approvedProviders {
		facilities, err := e.directory.GetFacilities(ctx, providerType, patient.PostalCode, patient.Province, urgency)
		if err != nil {
			// Directory failure for one provider type omits its candidates
			// rather than aborting the whole plan.
			log.Printf("Facility directory unavailable for %s: %v", providerType, err)
			continue
		}
		for _, facility := range facilities {
			options = append(options, models.CareOption{
				OptionID:          fmt.Sprintf("opt_%s", facility.ID),
				ProviderType:      providerType,
				FacilityName:      facility.Name,
				Address:           facility.Address,
				DistanceKM:        facility.DistanceKM,
				EstimatedWaitTime: facility.WaitTime,
				AcceptsWalkIns:    facility.AcceptsWalkIns,
				BookingURL:        facility.BookingURL,
				Phone:             facility.Phone,
				RequiresReferral:  providerType.RequiresReferral(),
			})
		}
	}
	return options
}

// scoreOption sums the four capped components. The composite can exceed
// 100 when a candidate scores near-max on every component; that observed
// behavior is preserved rather than clamped.
func (e *CareRoutingEngine) scoreOption(option models.CareOption, urgency models.Urgency, patient models.Patient) float64 {
	return scoreAcuity(option.ProviderType, urgency) +
		scoreWaitTime(option.EstimatedWaitTime, urgency) +
		scoreDistance(option.DistanceKM) +
		scoreAccess(option, patient)
}

// scoreAcuity returns the acuity-fit component, 0-40 points.
func scoreAcuity(providerType models.ProviderType, urgency models.Urgency) float64 {
	return acuityScores[urgency][providerType]
}

// scoreWaitTime returns the wait-fit component, 0-30 points. Unknown or
// unparsable waits score a neutral 15.
func scoreWaitTime(waitTime string, urgency models.Urgency) float64 {
	if waitTime == "" {
		return 15
	}

	waitHours, ok := utils.ParseWaitTime(waitTime)
	if !ok {
		return 15
	}

	ceiling, found := idealWaitHours[urgency]
	if !found {
		ceiling = idealWaitHours[models.UrgencyUrgent]
	}

	switch {
	case waitHours <= ceiling*0.5:
		return 30
	case waitHours <= ceiling:
		return 25
	case waitHours <= ceiling*2:
		return 15
	default:
		return 5
	}
}

// scoreDistance returns the proximity component, 2-20 points. Even
// distant options keep nonzero value against acuity or wait mismatches.
func scoreDistance(distanceKM float64) float64 {
	switch {
	case distanceKM <= 5:
		return 20
	case distanceKM <= 10:
		return 15
	case distanceKM <= 20:
		return 10
	case distanceKM <= 50:
		return 5
	default:
		return 2
	}
}

// scoreAccess returns the access component, clamped to >= 0 after the
// referral penalty.
func scoreAccess(option models.CareOption, patient models.Patient) float64 {
	score := 0.0

	if option.AcceptsWalkIns {
		score += 5
	}
	if option.BookingURL != "" {
		score += 3
	}
	// Continuity bonus for patients with an established GP relationship.
	if patient.HasFamilyDoctor && option.ProviderType == models.ProviderGP {
		score += 7
	}
	if option.RequiresReferral && !patient.HasFamilyDoctor {
		score -= 5
	}

	if score < 0 {
		return 0
	}
	return score
}

// CanAccessSpecialist applies the gatekeeper rule for specialist access.
// Returns the reason when access is denied.
func CanAccessSpecialist(patient models.Patient, hasReferral bool) (bool, string) {
	if hasReferral {
		return true, ""
	}
	if !patient.HasFamilyDoctor {
		return false, "Requires referral from GP or NP. Patient needs to establish care with a family doctor first."
	}
	return false, "Requires referral from primary care provider"
}

// RecommendPrimaryCareFirst flags patients without a family doctor and
// ROUTINE urgency to establish primary care instead of defaulting to
// specialist or ED use. Emergencies always bypass gatekeeping.
func RecommendPrimaryCareFirst(patient models.Patient, urgency models.Urgency) bool {
	if urgency == models.UrgencyEmergency {
		return false
	}
	return !patient.HasFamilyDoctor && urgency == models.UrgencyRoutine
}

func generateReferralNote(patient models.Patient, clinicalSummary string) string {
	return fmt.Sprintf(`REFERRAL REQUEST

Patient: %s
Age: %d | Sex: %s
Province: %s

REASON FOR REFERRAL:
%s

CLINICAL SUMMARY:
Patient requires specialist evaluation based on clinical decision support assessment.

This referral was generated through the Meduroam clinical decision support platform
and has been reviewed by a medical professional.

For questions, please contact the referring provider through the Meduroam platform.
`, patient.ID, patient.Age, patient.Sex, patient.Province, clinicalSummary)
}

// RoutingRubric is the static scoring policy, exposed so clients can
// display how rankings are computed.
type RoutingRubric struct {
	AcuityScores     map[models.Urgency]map[models.ProviderType]float64 `json:"acuity_scores"`
	IdealWaitHours   map[models.Urgency]float64                         `json:"ideal_wait_hours"`
	MaxRecommended   int                                                `json:"max_recommended_options"`
	ReferralRequired []models.ProviderType                              `json:"referral_required"`
}

// ScoringRubric returns the routing policy tables.
func ScoringRubric() RoutingRubric {
	var referralRequired []models.ProviderType
	for _, provider := range models.AllProviderTypes {
		if provider.RequiresReferral() {
			referralRequired = append(referralRequired, provider)
		}
	}
	return RoutingRubric{
		AcuityScores:     acuityScores,
		IdealWaitHours:   idealWaitHours,
		MaxRecommended:   maxRecommendedOptions,
		ReferralRequired: referralRequired,
	}
}
