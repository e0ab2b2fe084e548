// Package sentinel talks to the external satellite index service. The
// service is opaque; this adapter only shapes requests, retries transient
// failures and maps everything unexpected to domain.ErrExternalService.
package sentinel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"carbonchain/internal/domain"
	"carbonchain/internal/ports"
)

const dateLayout = "2006-01-02"

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type ndviChangeRequest struct {
	Geometry        json.RawMessage `json:"geometry"`
	BaselineStart   string          `json:"baseline_start"`
	BaselineEnd     string          `json:"baseline_end"`
	MonitoringStart string          `json:"monitoring_start"`
	MonitoringEnd   string          `json:"monitoring_end"`
}

type ndviChangeResponse struct {
	BaselineNDVI   *float64 `json:"baseline_ndvi"`
	MonitoringNDVI *float64 `json:"monitoring_ndvi"`
	DeltaNDVI      *float64 `json:"delta_ndvi"`
}

type currentNDVIRequest struct {
	Geometry json.RawMessage `json:"geometry"`
}

type currentNDVIResponse struct {
	NDVI *float64 `json:"ndvi"`
}

// NDVIChange compares baseline and monitoring windows over the geometry.
func (c *Client) NDVIChange(ctx context.Context, geometry json.RawMessage, baselineStart, baselineEnd, monitoringStart, monitoringEnd time.Time) (ports.IndexSample, error) {
	req := ndviChangeRequest{
		Geometry:        geometry,
		BaselineStart:   baselineStart.Format(dateLayout),
		BaselineEnd:     baselineEnd.Format(dateLayout),
		MonitoringStart: monitoringStart.Format(dateLayout),
		MonitoringEnd:   monitoringEnd.Format(dateLayout),
	}
	var resp ndviChangeResponse
	if err := c.post(ctx, "/v1/ndvi/change", req, &resp); err != nil {
		return ports.IndexSample{}, err
	}
	if resp.BaselineNDVI == nil || resp.MonitoringNDVI == nil {
		return ports.IndexSample{}, fmt.Errorf("%w: index service omitted ndvi values", domain.ErrExternalService)
	}
	sample := ports.IndexSample{
		BaselineNDVI:   *resp.BaselineNDVI,
		MonitoringNDVI: *resp.MonitoringNDVI,
	}
	if resp.DeltaNDVI != nil {
		sample.DeltaNDVI = *resp.DeltaNDVI
	} else {
		sample.DeltaNDVI = sample.MonitoringNDVI - sample.BaselineNDVI
	}
	return sample, nil
}

// CurrentNDVI reads the present vegetation index over the geometry.
func (c *Client) CurrentNDVI(ctx context.Context, geometry json.RawMessage) (float64, error) {
	var resp currentNDVIResponse
	if err := c.post(ctx, "/v1/ndvi/current", currentNDVIRequest{Geometry: geometry}, &resp); err != nil {
		return 0, err
	}
	if resp.NDVI == nil {
		return 0, fmt.Errorf("%w: index service omitted ndvi value", domain.ErrExternalService)
	}
	return *resp.NDVI, nil
}

// post sends the request with exponential backoff on network errors and 5xx
// responses. 4xx responses are not retried; the request will not get better.
func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal index request: %w", err)
	}

	backoff := retry.WithMaxRetries(3, retry.NewExponential(200*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create index request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("%w: %v", domain.ErrExternalService, err))
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("%w: index service returned %d", domain.ErrExternalService, resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: index service returned %d", domain.ErrExternalService, resp.StatusCode)
		}

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("%w: read index response: %v", domain.ErrExternalService, err))
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: malformed index response: %v", domain.ErrExternalService, err)
		}
		return nil
	})
	return err
}
