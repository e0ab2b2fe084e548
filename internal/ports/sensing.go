package ports

import (
	"context"
	"encoding/json"
	"time"
)

// IndexSample is a baseline/monitoring vegetation-index pair for a site.
type IndexSample struct {
	BaselineNDVI   float64
	MonitoringNDVI float64
	DeltaNDVI      float64
}

// IndexProvider is the opaque external remote-sensing service. Calls are
// long-running; callers must not hold per-claim locks across them.
type IndexProvider interface {
	// NDVIChange compares the baseline window against the monitoring window
	// over the given GeoJSON geometry.
	NDVIChange(ctx context.Context, geometry json.RawMessage, baselineStart, baselineEnd, monitoringStart, monitoringEnd time.Time) (IndexSample, error)

	// CurrentNDVI reads the present vegetation index over the geometry.
	CurrentNDVI(ctx context.Context, geometry json.RawMessage) (float64, error)
}

// BlobStore is content-addressed, append-only payload storage for evidence.
type BlobStore interface {
	// Put stores content and returns an opaque reference plus the SHA-256
	// hex digest of the content.
	Put(content []byte) (ref string, hash string, err error)
	Get(ref string) ([]byte, error)
}
