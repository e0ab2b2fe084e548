package mrv

import (
	"encoding/json"
	"math"

	"carbonchain/internal/domain"
)

// Methodology identifies the estimation pipeline version recorded on every
// verified impact. Bump it when any constant below changes.
const Methodology = "ndvi-differencing/v1"

// Biomass response to one full unit of NDVI change, in tonnes dry matter per
// hectare. The spread reflects ecosystem variability.
const (
	biomassPerNDVIMin = 5.0
	biomassPerNDVIMax = 15.0

	carbonFraction = 0.47      // IPCC default carbon content of dry biomass
	co2ePerCarbon  = 44.0 / 12 // molecular weight ratio CO2:C

	// Verified impact is discounted below the raw satellite estimate.
	conservativenessFactor = 0.9
)

// carbonEstimate converts an observed NDVI delta over an area into a CO2e
// range. Negative deltas yield negative raw values; clamping to zero happens
// in the verified impact, not here, so the raw signal stays visible.
type carbonEstimate struct {
	MinTonnesCO2e float64
	MaxTonnesCO2e float64
	PointEstimate float64
	Confidence    domain.ConfidenceTier
}

func estimateCarbon(ndviDelta, areaHectares float64) carbonEstimate {
	perHectare := ndviDelta * carbonFraction * co2ePerCarbon
	min := perHectare * biomassPerNDVIMin * areaHectares
	max := perHectare * biomassPerNDVIMax * areaHectares
	if min > max {
		min, max = max, min
	}
	return carbonEstimate{
		MinTonnesCO2e: min,
		MaxTonnesCO2e: max,
		PointEstimate: (min + max) / 2,
		Confidence:    confidenceFromDelta(ndviDelta),
	}
}

// confidenceFromDelta grades the estimate by signal strength: a large NDVI
// change is hard to mistake for sensor noise.
func confidenceFromDelta(delta float64) domain.ConfidenceTier {
	switch mag := math.Abs(delta); {
	case mag > 0.15:
		return domain.ConfidenceHigh
	case mag > 0.05:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// verifiedImpact applies the conservativeness discount and clamps at zero.
func (e carbonEstimate) verifiedImpact() domain.VerifiedCarbonImpact {
	clamp := func(v float64) float64 { return math.Max(0, v*conservativenessFactor) }
	return domain.VerifiedCarbonImpact{
		MinTonnesCO2e:   clamp(e.MinTonnesCO2e),
		MaxTonnesCO2e:   clamp(e.MaxTonnesCO2e),
		PointEstimate:   clamp(e.PointEstimate),
		Confidence:      e.Confidence,
		MethodologyUsed: Methodology,
	}
}

// siteArea prefers the claimant's stated area and falls back to the polygon
// footprint.
func siteArea(c *domain.Claim) float64 {
	if c.AreaHectares != nil && *c.AreaHectares > 0 {
		return *c.AreaHectares
	}
	if g := c.Geometry(); g != nil {
		if ha := polygonAreaHectares(g.GeoJSON); ha > 0 {
			return ha
		}
	}
	return 0
}

// polygonAreaHectares computes the shoelace area of the outer ring, scaled
// from degrees to hectares at the ring's mean latitude. Good enough for
// site-sized polygons; this is not a geodesy library.
func polygonAreaHectares(raw json.RawMessage) float64 {
	var poly struct {
		Type        string         `json:"type"`
		Coordinates [][][2]float64 `json:"coordinates"`
	}
	if err := json.Unmarshal(raw, &poly); err != nil || poly.Type != "Polygon" || len(poly.Coordinates) == 0 {
		return 0
	}
	ring := poly.Coordinates[0]
	if len(ring) < 4 {
		return 0
	}

	var sum, meanLat float64
	n := len(ring) - 1
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += ring[i][0]*ring[j][1] - ring[j][0]*ring[i][1]
		meanLat += ring[i][1]
	}
	meanLat /= float64(n)

	kmPerDegLat := 110.574
	kmPerDegLon := 111.320 * math.Cos(meanLat*math.Pi/180)
	areaKm2 := math.Abs(sum) / 2 * kmPerDegLat * kmPerDegLon
	return areaKm2 * 100
}
