package sentinel

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"time"

	"carbonchain/internal/ports"
)

// Simulated is a deterministic stand-in for the satellite service, used when
// no SENTINEL_URL is configured. Values are derived from a hash of the
// geometry so the same site always reads the same, which keeps local runs
// and demos reproducible.
type Simulated struct{}

func NewSimulated() *Simulated { return &Simulated{} }

func (s *Simulated) NDVIChange(_ context.Context, geometry json.RawMessage, _, _, _, monitoringEnd time.Time) (ports.IndexSample, error) {
	baseline := 0.25 + 0.3*fraction(geometry, "baseline")
	// Simulated sites show modest greening over the action period.
	delta := 0.02 + 0.18*fraction(geometry, "delta")
	return ports.IndexSample{
		BaselineNDVI:   baseline,
		MonitoringNDVI: baseline + delta,
		DeltaNDVI:      delta,
	}, nil
}

func (s *Simulated) CurrentNDVI(_ context.Context, geometry json.RawMessage) (float64, error) {
	baseline := 0.25 + 0.3*fraction(geometry, "baseline")
	delta := 0.02 + 0.18*fraction(geometry, "delta")
	// Drift the post-mint reading slightly below the monitoring peak.
	drift := 0.08 * fraction(geometry, "drift")
	return baseline + delta - drift, nil
}

// fraction hashes the geometry with a salt into [0, 1).
func fraction(geometry json.RawMessage, salt string) float64 {
	h := sha256.New()
	h.Write(geometry)
	h.Write([]byte(salt))
	sum := h.Sum(nil)
	v := binary.BigEndian.Uint64(sum[:8])
	return float64(v) / float64(^uint64(0))
}
