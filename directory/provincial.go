package directory

import (
	"Meduroam/models"
	"context"
	"strings"
)

// ProvincialDirectory is a stand-in for provincial health system
// facility APIs (Ontario Health Data Platform, HealthLink BC, AHS Wait
// Times). It serves a fixed Kingston dataset for K7L postal codes and a
// Toronto dataset otherwise. It satisfies services.FacilityDirectory.
type ProvincialDirectory struct{}

func NewProvincialDirectory() *ProvincialDirectory {
	return &ProvincialDirectory{}
}

func (d *ProvincialDirectory) GetFacilities(ctx context.Context, providerType models.ProviderType, postalCode, province string, urgency models.Urgency) ([]models.Facility, error) {
	if strings.HasPrefix(strings.ToUpper(postalCode), "K7L") {
		return kingstonFacilities[providerType], nil
	}
	return torontoFacilities[providerType], nil
}

func (d *ProvincialDirectory) DataSources() []string {
	return []string{
		"Mock Provincial Health Database",
		"Mock Wait Times API",
		"Mock Facility Registry",
	}
}

var kingstonFacilities = map[models.ProviderType][]models.Facility{
	models.ProviderGP: {
		{
			ID:         "gp_k001",
			Name:       "Queen's Family Health Team",
			Address:    "220 Bagot Street, Kingston, ON K7L 5E9",
			DistanceKM: 0.5,
			WaitTime:   "2-3 days",
			Phone:      "613-544-3400",
		},
		{
			ID:         "gp_k002",
			Name:       "Kingston Community Health Centre",
			Address:    "263 Weller Avenue, Kingston, ON K7K 7E8",
			DistanceKM: 2.1,
			WaitTime:   "1 week",
			Phone:      "613-542-2949",
		},
		{
			ID:         "gp_k003",
			Name:       "Princess Family Health Team",
			Address:    "752 King Street West, Kingston, ON K7L 1G5",
			DistanceKM: 1.8,
			WaitTime:   "3-5 days",
			Phone:      "613-544-3310",
		},
	},
	models.ProviderNP: {
		{
			ID:             "np_k001",
			Name:           "Queen's University Student Wellness Services",
			Address:        "146 Stuart Street, Kingston, ON K7L 3N6",
			DistanceKM:     0.3,
			WaitTime:       "Same day - 2 days",
			AcceptsWalkIns: true,
			Phone:          "613-533-2506",
		},
	},
	models.ProviderUrgentCare: {
		{
			ID:             "uc_k001",
			Name:           "Appletree Medical Group - Kingston",
			Address:        "1471 John Counter Boulevard, Kingston, ON K7M 8S8",
			DistanceKM:     4.2,
			WaitTime:       "1-2 hours",
			AcceptsWalkIns: true,
			Phone:          "613-384-2524",
		},
		{
			ID:             "uc_k002",
			Name:           "Kingston After Hours Clinic",
			Address:        "752 King Street West, Kingston, ON K7L 1G5",
			DistanceKM:     1.8,
			WaitTime:       "2-3 hours",
			AcceptsWalkIns: true,
			Phone:          "613-544-3310",
		},
	},
	models.ProviderED: {
		{
			ID:             "ed_k001",
			Name:           "Kingston Health Sciences Centre - Emergency",
			Address:        "76 Stuart Street, Kingston, ON K7L 2V7",
			DistanceKM:     0.4,
			WaitTime:       "Check online for current wait times",
			AcceptsWalkIns: true,
			BookingURL:     "https://kingstonhsc.ca/patients-families-and-visitors/wait-times",
			Phone:          "613-548-3232",
		},
	},
	models.ProviderSpecialist: {
		{
			ID:         "spec_k001",
			Name:       "Hotel Dieu Hospital Specialty Clinics",
			Address:    "166 Brock Street, Kingston, ON K7L 5G2",
			DistanceKM: 0.8,
			WaitTime:   "4-8 weeks (referral required)",
			Phone:      "613-544-3310",
		},
		{
			ID:         "spec_k002",
			Name:       "Kingston Health Sciences Centre Specialists",
			Address:    "76 Stuart Street, Kingston, ON K7L 2V7",
			DistanceKM: 0.4,
			WaitTime:   "6-12 weeks (referral required)",
			Phone:      "613-548-3232",
		},
	},
}

var torontoFacilities = map[models.ProviderType][]models.Facility{
	models.ProviderGP: {
		{
			ID:         "gp_001",
			Name:       "University Family Health Team",
			Address:    "123 College St, Toronto, ON",
			DistanceKM: 2.5,
			WaitTime:   "3 days",
			BookingURL: "https://example.com/book",
			Phone:      "416-555-0100",
		},
		{
			ID:         "gp_002",
			Name:       "Downtown Medical Centre",
			Address:    "456 Queen St, Toronto, ON",
			DistanceKM: 4.1,
			WaitTime:   "1 week",
			BookingURL: "https://example.com/book2",
			Phone:      "416-555-0101",
		},
	},
	models.ProviderNP: {
		{
			ID:             "np_001",
			Name:           "Nurse Practitioner Led Clinic",
			Address:        "789 Dundas St, Toronto, ON",
			DistanceKM:     3.2,
			WaitTime:       "24 hours",
			AcceptsWalkIns: true,
			Phone:          "416-555-0200",
		},
	},
	models.ProviderUrgentCare: {
		{
			ID:             "uc_001",
			Name:           "Appletree Medical Walk-In",
			Address:        "321 Yonge St, Toronto, ON",
			DistanceKM:     1.8,
			WaitTime:       "2 hours",
			AcceptsWalkIns: true,
			Phone:          "416-555-0300",
		},
		{
			ID:             "uc_002",
			Name:           "East Toronto Urgent Care",
			Address:        "555 Pape Ave, Toronto, ON",
			DistanceKM:     6.5,
			WaitTime:       "90 minutes",
			AcceptsWalkIns: true,
			Phone:          "416-555-0301",
		},
	},
	models.ProviderED: {
		{
			ID:             "ed_001",
			Name:           "Toronto General Hospital ED",
			Address:        "200 Elizabeth St, Toronto, ON",
			DistanceKM:     3.5,
			WaitTime:       "4 hours",
			AcceptsWalkIns: true,
			Phone:          "416-340-3155",
		},
	},
	models.ProviderSpecialist: {
		{
			ID:         "spec_001",
			Name:       "Specialty Medical Centre",
			Address:    "100 Medical Blvd, Toronto, ON",
			DistanceKM: 5.0,
			WaitTime:   "6 weeks",
			BookingURL: "https://example.com/specialist",
			Phone:      "416-555-0400",
		},
	},
}
