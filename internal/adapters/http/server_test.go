package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbonchain/internal/adapters/blob"
	"carbonchain/internal/adapters/memory"
	"carbonchain/internal/domain"
	"carbonchain/internal/locks"
	"carbonchain/internal/ports"
	claimsvc "carbonchain/internal/services/claims"
	evidencesvc "carbonchain/internal/services/evidence"
	governancesvc "carbonchain/internal/services/governance"
	ledgersvc "carbonchain/internal/services/ledger"
	"carbonchain/internal/services/lifecycle"
	mrvsvc "carbonchain/internal/services/mrv"
	monitorsvc "carbonchain/internal/services/monitor"
	transparencysvc "carbonchain/internal/services/transparency"
)

// scriptedProvider greens up during verification and degrades afterwards.
type scriptedProvider struct {
	current float64
}

func (p *scriptedProvider) NDVIChange(_ context.Context, _ json.RawMessage, _, _, _, _ time.Time) (ports.IndexSample, error) {
	return ports.IndexSample{BaselineNDVI: 0.40, MonitoringNDVI: 0.60, DeltaNDVI: 0.20}, nil
}

func (p *scriptedProvider) CurrentNDVI(_ context.Context, _ json.RawMessage) (float64, error) {
	return p.current, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *scriptedProvider) {
	t.Helper()
	store := memory.NewStore()
	blobs, err := blob.NewStore(t.TempDir())
	require.NoError(t, err)
	keyed := locks.NewKeyed()
	machine := lifecycle.New(store)
	provider := &scriptedProvider{current: 0.60}

	ledger := ledgersvc.New(store, machine, keyed)
	srv := New(
		claimsvc.New(store, machine),
		evidencesvc.New(store, blobs),
		mrvsvc.New(store, machine, provider, blobs, keyed),
		governancesvc.New(store, machine, keyed),
		ledger,
		monitorsvc.New(store, provider, blobs, keyed),
		transparencysvc.New(store, ledger),
	)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts, provider
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func submitBody() map[string]any {
	return map[string]any{
		"claim_type":  "mangrove_restoration",
		"title":       "Mangrove replanting, Demak coast",
		"description": "40 hectares replanted",
		"location": map[string]any{
			"latitude": -6.89, "longitude": 110.54, "location_name": "Demak",
		},
		"area_hectares": 40,
		"carbon_impact_estimate": map[string]any{
			"min_tonnes_co2e": 50, "max_tonnes_co2e": 150, "time_horizon_years": 10,
		},
		"action_start_date": "2023-03-01T00:00:00Z",
		"submitter_name":    "Yayasan Pesisir",
	}
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestFullLifecycleOverHTTP(t *testing.T) {
	ts, provider := newTestServer(t)

	// Submit.
	resp, claim := doJSON(t, http.MethodPost, ts.URL+"/claims", submitBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	claimID := claim["id"].(string)
	assert.Equal(t, string(domain.StatusAIAnalysisPending), claim["status"])

	// Upload evidence.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("files", "permit.pdf")
	require.NoError(t, err)
	fw.Write([]byte("permit content"))
	require.NoError(t, mw.Close())
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/claims/"+claimID+"/evidence/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	upResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	var uploaded struct {
		Accepted []map[string]any `json:"accepted"`
	}
	require.NoError(t, json.NewDecoder(upResp.Body).Decode(&uploaded))
	upResp.Body.Close()
	assert.Equal(t, http.StatusCreated, upResp.StatusCode)
	require.Len(t, uploaded.Accepted, 1)
	evidenceID := uploaded.Accepted[0]["id"].(string)

	// Anyone can check the evidence hash.
	resp, check := doJSON(t, http.MethodGet, ts.URL+"/evidence/"+evidenceID+"/verify", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, check["is_valid"])
	assert.Equal(t, uploaded.Accepted[0]["hash"], check["hash"])

	// Run MRV.
	resp, verification := doJSON(t, http.MethodPost, ts.URL+"/verify", map[string]any{"claim_id": claimID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(domain.OutcomeApproved), verification["outcome"])

	// Mint too early.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/mint", map[string]any{"claim_id": claimID, "amount_tonnes_co2e": 10})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Reviews in order.
	review := map[string]any{"claim_id": claimID, "reviewer_id": "gov-1", "decision": "approve", "notes": "verified report checks out"}
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/reviews/authority", review)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/reviews/community", review)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Duplicate review conflicts.
	resp, errBody := doJSON(t, http.MethodPost, ts.URL+"/reviews/community", review)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, fmt.Sprint(errBody), "duplicate_review")

	// Eligibility then mint.
	resp, eligibility := doJSON(t, http.MethodGet, ts.URL+"/claims/"+claimID+"/mint/eligibility", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, eligibility["can_mint"])

	resp, credit := doJSON(t, http.MethodPost, ts.URL+"/mint", map[string]any{"claim_id": claimID, "amount_tonnes_co2e": 100})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tokenID := credit["token_id"].(string)
	assert.Equal(t, true, credit["is_simulated"])

	// Mint retry returns the canonical credit with 200.
	resp, retry := doJSON(t, http.MethodPost, ts.URL+"/mint", map[string]any{"claim_id": claimID, "amount_tonnes_co2e": 50})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, tokenID, retry["token_id"])
	assert.Equal(t, 100.0, retry["amount_tonnes_co2e"])

	// Degradation burns on monitor.
	provider.current = 0.45
	resp, run := doJSON(t, http.MethodPost, ts.URL+"/credits/"+tokenID+"/monitor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 25.0, run["degradation_percent"].(float64), 1e-6)
	assert.InDelta(t, 25.0, run["burn_amount_tonnes_co2e"].(float64), 1e-6)

	resp, got := doJSON(t, http.MethodGet, ts.URL+"/credits/"+tokenID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 75.0, got["remaining_tonnes_co2e"].(float64), 1e-6)

	// Public aggregate shows the whole story.
	resp, view := doJSON(t, http.MethodGet, ts.URL+"/public/claims/"+claimID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(domain.StatusMinted), view["status"])
	assert.NotNil(t, view["verification"])
	assert.NotNil(t, view["minted_credit"])

	resp, report := doJSON(t, http.MethodGet, ts.URL+"/public/claims/"+claimID+"/transparency", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	timeline := report["timeline"].([]any)
	assert.GreaterOrEqual(t, len(timeline), 5)
}

func TestErrorMapping(t *testing.T) {
	ts, _ := newTestServer(t)

	// Bad payload.
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/claims", map[string]any{"title": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown claim.
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/claims/00000000-0000-0000-0000-000000000001", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Malformed id.
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/claims/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Review with no claim id.
	review := map[string]any{"reviewer_id": "gov-1", "decision": "approve", "notes": "premature"}
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/reviews/authority", review)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Review out of stage.
	resp, claim := doJSON(t, http.MethodPost, ts.URL+"/claims", submitBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	review["claim_id"] = claim["id"].(string)
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/reviews/authority", review)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestReferenceEvidenceOverHTTP(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, claim := doJSON(t, http.MethodPost, ts.URL+"/claims", submitBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	claimID := claim["id"].(string)

	body := map[string]any{
		"type":              "document",
		"source":            "land-registry",
		"title":             "Land use permit 2023/114",
		"description":       "Registry extract for the replanted parcels",
		"data_ref":          "https://registry.example/permits/2023-114",
		"confidence_weight": 0.7,
	}
	resp, created := doJSON(t, http.MethodPost, ts.URL+"/claims/"+claimID+"/evidence", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, created["hash"])
	evidenceID := created["id"].(string)

	resp, check := doJSON(t, http.MethodGet, ts.URL+"/evidence/"+evidenceID+"/verify", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, check["is_valid"])
	assert.Equal(t, created["hash"], check["hash"])

	// A body claim_id that disagrees with the path is rejected.
	body["claim_id"] = "00000000-0000-0000-0000-000000000002"
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/claims/"+claimID+"/evidence", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown evidence types never enter the record set.
	body["claim_id"] = claimID
	body["type"] = "hearsay"
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/claims/"+claimID+"/evidence", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
