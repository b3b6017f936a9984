package models

import (
	"time"
)

// Facility is a raw candidate record returned by the facility directory
// collaborator. The routing engine does all scoring itself.
type Facility struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Address        string  `json:"address"`
	DistanceKM     float64 `json:"distance_km"`
	WaitTime       string  `json:"wait_time,omitempty"`
	AcceptsWalkIns bool    `json:"walk_in"`
	BookingURL     string  `json:"booking_url,omitempty"`
	Phone          string  `json:"phone,omitempty"`
}

// CareOption is one ranked candidate in a routing plan. The priority
// score is recomputed on every ranking pass, never persisted on its own.
type CareOption struct {
	OptionID     string       `json:"option_id"`
	ProviderType ProviderType `json:"provider_type"`
	FacilityName string       `json:"facility_name"`
	Address      string       `json:"address"`
	DistanceKM   float64      `json:"distance_km"`

	EstimatedWaitTime string `json:"estimated_wait_time,omitempty"`
	AcceptsWalkIns    bool   `json:"accepts_walk_ins"`
	BookingURL        string `json:"booking_url,omitempty"`
	Phone             string `json:"phone,omitempty"`

	RequiresReferral      bool `json:"requires_referral"`
	ReferralNoteGenerated bool `json:"referral_note_generated"`

	PriorityScore float64 `json:"priority_score"`
}

// CareRoutingPlan is the output of one routing run, best option first.
type CareRoutingPlan struct {
	ID        string `gorm:"primaryKey;column:id" json:"routing_id"`
	ConsultID string `gorm:"column:consult_id;not null;index" json:"consult_id"`
	PatientID string `gorm:"column:patient_id;not null" json:"patient_id"`

	RecommendedOptions []CareOption `gorm:"column:recommended_options;serializer:json" json:"recommended_options"`
	UrgencyLevel       Urgency      `gorm:"column:urgency_level;not null" json:"urgency_level"`

	DataSourcesUsed []string  `gorm:"column:data_sources_used;serializer:json" json:"data_sources_used"`
	DataFreshness   time.Time `gorm:"column:data_freshness" json:"data_freshness"`

	ReferralNote             string `gorm:"column:referral_note;type:text" json:"referral_note,omitempty"`
	PatientSummary           string `gorm:"column:patient_summary;type:text" json:"patient_summary"`
	EstablishPrimaryCareFlag bool   `gorm:"column:establish_primary_care_flag;not null;default:false" json:"establish_primary_care_flag"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"generated_at"`
}

func (CareRoutingPlan) TableName() string {
	return "care_routing_plan"
}
