// Package claims handles intake: validation, geometry derivation and claim
// registration up to the point where MRV analysis is queued.
package claims

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"carbonchain/internal/domain"
	"carbonchain/internal/ports"
	"carbonchain/internal/services/lifecycle"
)

type Service struct {
	store   ports.Store
	machine *lifecycle.Machine
}

func New(store ports.Store, machine *lifecycle.Machine) *Service {
	return &Service{store: store, machine: machine}
}

var validClaimTypes = map[domain.ClaimType]bool{
	domain.ClaimMangroveRestoration:  true,
	domain.ClaimSolarInstallation:    true,
	domain.ClaimWindInstallation:     true,
	domain.ClaimReforestation:        true,
	domain.ClaimWetlandRestoration:   true,
	domain.ClaimAvoidedDeforestation: true,
	domain.ClaimOther:                true,
}

// Submit validates the submission, derives the site geometry and registers
// the claim. The claim leaves intake already queued for MRV analysis.
func (s *Service) Submit(ctx context.Context, sub domain.ClaimSubmission) (*domain.Claim, error) {
	if err := validateSubmission(sub); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	geometry, location, err := deriveGeometry(sub, now)
	if err != nil {
		return nil, err
	}

	claim := &domain.Claim{
		ID:                uuid.New(),
		ClaimType:         sub.ClaimType,
		Title:             strings.TrimSpace(sub.Title),
		Description:       strings.TrimSpace(sub.Description),
		Location:          location,
		GeometryVersions:  []domain.Geometry{geometry},
		AreaHectares:      sub.AreaHectares,
		ClaimedImpact:     sub.ClaimedImpact,
		ActionStartDate:   sub.ActionStartDate,
		ActionEndDate:     sub.ActionEndDate,
		StatedAssumptions: sub.StatedAssumptions,
		KnownLimitations:  sub.KnownLimitations,
		SubmitterName:     strings.TrimSpace(sub.SubmitterName),
		SubmitterContact:  strings.TrimSpace(sub.SubmitterContact),
		Status:            domain.StatusSubmitted,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.CreateClaim(ctx, claim); err != nil {
		return nil, fmt.Errorf("create claim: %w", err)
	}
	if err := s.machine.ScheduleAnalysis(ctx, claim.ID); err != nil {
		return nil, err
	}
	claim.Status = domain.StatusAIAnalysisPending
	return claim, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	return s.store.GetClaim(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]domain.Claim, error) {
	return s.store.ListClaims(ctx)
}

// ReplaceGeometryAuthority appends an authority-corrected geometry version.
// Earlier versions stay on record; the derived location moves to the new
// polygon's centroid. Terminal claims are closed to correction.
func (s *Service) ReplaceGeometryAuthority(ctx context.Context, id uuid.UUID, geojson json.RawMessage) (*domain.Claim, error) {
	claim, err := s.store.GetClaim(ctx, id)
	if err != nil {
		return nil, err
	}
	if claim.Status.Terminal() {
		return nil, fmt.Errorf("%w: claim %s is %s and closed to geometry changes", domain.ErrInvalidStage, id, claim.Status)
	}

	poly, err := validatePolygon(geojson)
	if err != nil {
		return nil, err
	}
	center := centroid(poly)

	g := domain.Geometry{
		Type:      domain.GeometryPolygon,
		Source:    domain.GeometryAuthorityDefined,
		GeoJSON:   geojson,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AppendGeometry(ctx, id, g, &center); err != nil {
		return nil, err
	}
	return s.store.GetClaim(ctx, id)
}

func validateSubmission(sub domain.ClaimSubmission) error {
	if !validClaimTypes[sub.ClaimType] {
		return fmt.Errorf("%w: unknown claim type %q", domain.ErrValidation, sub.ClaimType)
	}
	if strings.TrimSpace(sub.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if strings.TrimSpace(sub.SubmitterName) == "" {
		return fmt.Errorf("%w: submitter_name is required", domain.ErrValidation)
	}
	if err := sub.ClaimedImpact.Validate(); err != nil {
		return err
	}
	if sub.ActionStartDate.IsZero() {
		return fmt.Errorf("%w: action_start_date is required", domain.ErrValidation)
	}
	if sub.ActionEndDate != nil && sub.ActionEndDate.Before(sub.ActionStartDate) {
		return fmt.Errorf("%w: action_end_date precedes action_start_date", domain.ErrValidation)
	}
	if sub.AreaHectares != nil && *sub.AreaHectares <= 0 {
		return fmt.Errorf("%w: area_hectares must be positive", domain.ErrValidation)
	}
	if sub.Location == nil && len(sub.GeometryGeoJSON) == 0 {
		return fmt.Errorf("%w: either location or geometry_geojson is required", domain.ErrValidation)
	}
	return nil
}

// deriveGeometry builds version 1 of the site geometry: either the polygon
// the claimant drew, or a claim-type-sized buffer around their point.
func deriveGeometry(sub domain.ClaimSubmission, now time.Time) (domain.Geometry, *domain.GeoPoint, error) {
	if len(sub.GeometryGeoJSON) > 0 {
		poly, err := validatePolygon(sub.GeometryGeoJSON)
		if err != nil {
			return domain.Geometry{}, nil, err
		}
		location := sub.Location
		if location == nil {
			c := centroid(poly)
			location = &c
		} else if err := validatePoint(*location); err != nil {
			return domain.Geometry{}, nil, err
		}
		return domain.Geometry{
			Version:   1,
			Type:      domain.GeometryPolygon,
			Source:    domain.GeometryUserDrawn,
			GeoJSON:   sub.GeometryGeoJSON,
			CreatedAt: now,
		}, location, nil
	}

	if err := validatePoint(*sub.Location); err != nil {
		return domain.Geometry{}, nil, err
	}
	buffered, err := bufferPolygon(*sub.Location, bufferRadiusKm(sub.ClaimType))
	if err != nil {
		return domain.Geometry{}, nil, err
	}
	loc := *sub.Location
	return domain.Geometry{
		Version:   1,
		Type:      domain.GeometryBuffer,
		Source:    domain.GeometryUserPoint,
		GeoJSON:   buffered,
		CreatedAt: now,
	}, &loc, nil
}
