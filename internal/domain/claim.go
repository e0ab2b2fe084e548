package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Core domain models. The HTTP adapter reuses these directly; keep them free
// of transport concerns.

type ClaimType string

const (
	ClaimMangroveRestoration  ClaimType = "mangrove_restoration"
	ClaimSolarInstallation    ClaimType = "solar_installation"
	ClaimWindInstallation     ClaimType = "wind_installation"
	ClaimReforestation        ClaimType = "reforestation"
	ClaimWetlandRestoration   ClaimType = "wetland_restoration"
	ClaimAvoidedDeforestation ClaimType = "avoided_deforestation"
	ClaimOther                ClaimType = "other"
)

// ClaimStatus is the lifecycle status of a claim. Transitions are owned
// exclusively by the lifecycle state machine:
//
//	submitted → ai_analysis_pending → ai_analysis_in_progress
//	          → {ai_analyzed | ai_rejected}
//	ai_analyzed → authority_reviewed → community_reviewed → approved → minted
//
// rejected is reachable from either review stage. minted, rejected and
// ai_rejected are terminal.
type ClaimStatus string

const (
	StatusSubmitted            ClaimStatus = "submitted"
	StatusAIAnalysisPending    ClaimStatus = "ai_analysis_pending"
	StatusAIAnalysisInProgress ClaimStatus = "ai_analysis_in_progress"
	StatusAIAnalyzed           ClaimStatus = "ai_analyzed"
	StatusAIRejected           ClaimStatus = "ai_rejected"
	StatusAuthorityReviewed    ClaimStatus = "authority_reviewed"
	StatusCommunityReviewed    ClaimStatus = "community_reviewed"
	StatusApproved             ClaimStatus = "approved"
	StatusMinted               ClaimStatus = "minted"
	StatusRejected             ClaimStatus = "rejected"
)

// Terminal reports whether no further transition can leave s.
func (s ClaimStatus) Terminal() bool {
	return s == StatusMinted || s == StatusRejected || s == StatusAIRejected
}

type GeometryType string

const (
	GeometryPoint   GeometryType = "point"
	GeometryBuffer  GeometryType = "buffer"
	GeometryPolygon GeometryType = "polygon"
)

// GeometrySource records who or what defined a geometry version.
type GeometrySource string

const (
	GeometryUserPoint        GeometrySource = "user_point"
	GeometryUserDrawn        GeometrySource = "user_drawn"
	GeometryAuthorityDefined GeometrySource = "authority_defined"
)

type GeoPoint struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	LocationName string  `json:"location_name,omitempty"`
}

// Geometry is one immutable version of a claim's site geometry. Authority
// corrections append a new version; earlier versions are retained for audit.
type Geometry struct {
	Version   int             `json:"version"`
	Type      GeometryType    `json:"type"`
	Source    GeometrySource  `json:"source"`
	GeoJSON   json.RawMessage `json:"geojson"`
	CreatedAt time.Time       `json:"created_at"`
}

// CarbonImpactEstimate is the claimant's self-reported impact range in
// tonnes CO2e. Impact is always a range, never a point value.
type CarbonImpactEstimate struct {
	MinTonnesCO2e    float64 `json:"min_tonnes_co2e"`
	MaxTonnesCO2e    float64 `json:"max_tonnes_co2e"`
	Methodology      string  `json:"estimation_methodology,omitempty"`
	TimeHorizonYears int     `json:"time_horizon_years"`
}

// Midpoint of the claimed range.
func (c CarbonImpactEstimate) Midpoint() float64 {
	return (c.MinTonnesCO2e + c.MaxTonnesCO2e) / 2
}

// Validate enforces the claimed-range invariant: max >= min > 0.
func (c CarbonImpactEstimate) Validate() error {
	if c.MinTonnesCO2e <= 0 {
		return fmt.Errorf("%w: min_tonnes_co2e must be positive, got %v", ErrValidation, c.MinTonnesCO2e)
	}
	if c.MaxTonnesCO2e < c.MinTonnesCO2e {
		return fmt.Errorf("%w: max_tonnes_co2e (%v) below min_tonnes_co2e (%v)", ErrValidation, c.MaxTonnesCO2e, c.MinTonnesCO2e)
	}
	return nil
}

// ClaimSubmission is the payload a claimant provides when registering an
// action. System fields (id, status, timestamps) are absent by design.
type ClaimSubmission struct {
	ClaimType         ClaimType            `json:"claim_type"`
	Title             string               `json:"title"`
	Description       string               `json:"description"`
	Location          *GeoPoint            `json:"location,omitempty"`
	GeometryGeoJSON   json.RawMessage      `json:"geometry_geojson,omitempty"`
	AreaHectares      *float64             `json:"area_hectares,omitempty"`
	ClaimedImpact     CarbonImpactEstimate `json:"carbon_impact_estimate"`
	ActionStartDate   time.Time            `json:"action_start_date"`
	ActionEndDate     *time.Time           `json:"action_end_date,omitempty"`
	StatedAssumptions []string             `json:"stated_assumptions,omitempty"`
	KnownLimitations  []string             `json:"known_limitations,omitempty"`
	SubmitterName     string               `json:"submitter_name"`
	SubmitterContact  string               `json:"submitter_contact,omitempty"`
}

// Claim is a full climate-action claim record.
type Claim struct {
	ID                uuid.UUID            `json:"id"`
	ClaimType         ClaimType            `json:"claim_type"`
	Title             string               `json:"title"`
	Description       string               `json:"description"`
	Location          *GeoPoint            `json:"location,omitempty"`
	GeometryVersions  []Geometry           `json:"geometry_versions"`
	AreaHectares      *float64             `json:"area_hectares,omitempty"`
	ClaimedImpact     CarbonImpactEstimate `json:"carbon_impact_estimate"`
	ActionStartDate   time.Time            `json:"action_start_date"`
	ActionEndDate     *time.Time           `json:"action_end_date,omitempty"`
	StatedAssumptions []string             `json:"stated_assumptions,omitempty"`
	KnownLimitations  []string             `json:"known_limitations,omitempty"`
	SubmitterName     string               `json:"submitter_name"`
	SubmitterContact  string               `json:"submitter_contact,omitempty"`
	Status            ClaimStatus          `json:"status"`
	VerificationID    *uuid.UUID           `json:"verification_id,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// Geometry returns the current (latest) geometry version, or nil when none
// has been recorded.
func (c *Claim) Geometry() *Geometry {
	if len(c.GeometryVersions) == 0 {
		return nil
	}
	return &c.GeometryVersions[len(c.GeometryVersions)-1]
}
