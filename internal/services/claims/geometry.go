package claims

import (
	"encoding/json"
	"fmt"
	"math"

	"carbonchain/internal/domain"
)

// polygonGeoJSON is the subset of GeoJSON the intake accepts.
type polygonGeoJSON struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

const bufferSegments = 16

// bufferRadiusKm picks the analysis footprint for a point-only submission.
// Forest-type actions affect a wider area than a fixed installation.
func bufferRadiusKm(t domain.ClaimType) float64 {
	switch t {
	case domain.ClaimMangroveRestoration, domain.ClaimReforestation,
		domain.ClaimWetlandRestoration, domain.ClaimAvoidedDeforestation:
		return 2.0
	case domain.ClaimSolarInstallation, domain.ClaimWindInstallation:
		return 1.0
	default:
		return 3.0
	}
}

// bufferPolygon approximates a circle of the given radius around the point
// as a closed 16-gon in GeoJSON.
func bufferPolygon(p domain.GeoPoint, radiusKm float64) (json.RawMessage, error) {
	// Degrees per km, longitude shrinking with latitude.
	dLat := radiusKm / 110.574
	dLon := radiusKm / (111.320 * math.Cos(p.Latitude*math.Pi/180))

	ring := make([][2]float64, 0, bufferSegments+1)
	for i := 0; i < bufferSegments; i++ {
		angle := 2 * math.Pi * float64(i) / bufferSegments
		ring = append(ring, [2]float64{
			p.Longitude + dLon*math.Cos(angle),
			p.Latitude + dLat*math.Sin(angle),
		})
	}
	ring = append(ring, ring[0])

	return json.Marshal(polygonGeoJSON{Type: "Polygon", Coordinates: [][][2]float64{ring}})
}

// validatePolygon checks the GeoJSON the claimant or authority drew: a
// single closed ring with at least four positions, all within bounds.
func validatePolygon(raw json.RawMessage) (*polygonGeoJSON, error) {
	var poly polygonGeoJSON
	if err := json.Unmarshal(raw, &poly); err != nil {
		return nil, fmt.Errorf("%w: malformed geometry: %v", domain.ErrValidation, err)
	}
	if poly.Type != "Polygon" {
		return nil, fmt.Errorf("%w: geometry type must be Polygon, got %q", domain.ErrValidation, poly.Type)
	}
	if len(poly.Coordinates) == 0 {
		return nil, fmt.Errorf("%w: polygon has no rings", domain.ErrValidation)
	}
	ring := poly.Coordinates[0]
	if len(ring) < 4 {
		return nil, fmt.Errorf("%w: polygon ring needs at least 4 positions, got %d", domain.ErrValidation, len(ring))
	}
	if ring[0] != ring[len(ring)-1] {
		return nil, fmt.Errorf("%w: polygon ring is not closed", domain.ErrValidation)
	}
	for _, pos := range ring {
		lon, lat := pos[0], pos[1]
		if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
			return nil, fmt.Errorf("%w: coordinate out of range: [%v, %v]", domain.ErrValidation, lon, lat)
		}
	}
	return &poly, nil
}

// centroid averages the ring vertices (excluding the closing one) into a
// representative point.
func centroid(poly *polygonGeoJSON) domain.GeoPoint {
	ring := poly.Coordinates[0]
	n := len(ring) - 1
	var lon, lat float64
	for _, pos := range ring[:n] {
		lon += pos[0]
		lat += pos[1]
	}
	return domain.GeoPoint{Longitude: lon / float64(n), Latitude: lat / float64(n)}
}

func validatePoint(p domain.GeoPoint) error {
	if p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("%w: latitude out of range: %v", domain.ErrValidation, p.Latitude)
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("%w: longitude out of range: %v", domain.ErrValidation, p.Longitude)
	}
	return nil
}
