package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/sepcheck/internal/eligibility"
	"github.com/ppiankov/sepcheck/internal/llm"
	"github.com/ppiankov/sepcheck/internal/metrics"
	"github.com/ppiankov/sepcheck/internal/model"
	"github.com/ppiankov/sepcheck/internal/pipeline"
	"github.com/ppiankov/sepcheck/internal/reference"
	"github.com/ppiankov/sepcheck/internal/util"
)

const record = `{
  "full_name": "Jane Doe",
  "date_of_birth": "01/15/1959",
  "contract_code": "H1234",
  "plan_type": "HMO",
  "part_a_date": "01/01/2024",
  "part_b_date": "01/01/2024",
  "state": "FL",
  "county": "Lee"
}`

type stubProvider struct {
	content string
	err     error
}

func (s stubProvider) Name() string                   { return "stub" }
func (s stubProvider) Model() string                  { return "stub-1" }
func (s stubProvider) Endpoint() string               { return "http://llm.test/v1" }
func (s stubProvider) Ping(ctx context.Context) error { return nil }

func (s stubProvider) Extract(ctx context.Context, req llm.ExtractRequest) (*llm.ExtractResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.ExtractResponse{Content: s.content}, nil
}

func newTestServer(t *testing.T, provider llm.Provider) *httptest.Server {
	t.Helper()
	logger := util.DiscardLogger()
	snapshot := reference.NewSnapshot([]model.DisasterDeclaration{
		{State: "FL", Counties: []string{"All"}, StartDate: time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)},
	})
	reg := prometheus.NewRegistry()
	p := pipeline.New(pipeline.Options{
		Engine:   eligibility.NewEngine(snapshot, logger),
		Provider: provider,
		Metrics:  metrics.New(reg),
		Logger:   logger,
	})
	srv := httptest.NewServer(New(p, reg, logger, 1<<16, time.Minute).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestEvaluate(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, out := post(t, srv.URL+"/v1/evaluate?as_of=2024-02-01", record)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	result := out["result"].(map[string]any)
	assert.Equal(t, []any{"icep_iep", "dst"}, result["qualifying"])
	assert.Equal(t, false, result["needs_fallback_guidance"])
	assert.NotEmpty(t, out["id"])
}

func TestEvaluate_BadInput(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, out := post(t, srv.URL+"/v1/evaluate", `{"full_name": `)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "bad_json", out["code"])

	resp, out = post(t, srv.URL+"/v1/evaluate?as_of=02/01/2024", record)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "bad_as_of", out["code"])

	resp, out = post(t, srv.URL+"/v1/evaluate", `{"error": "screen was blank"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "screen was blank", out["error"])
}

func TestEvaluate_AnyRecordShapeIsNot5xx(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, body := range []string{`{}`, `{"date_of_birth": "yesterday"}`, `{"contract_code": "X0001"}`, `{"recent_lis_levels": [{"level": 3, "start_date": "13/99/2024"}]}`} {
		resp, _ := post(t, srv.URL+"/v1/evaluate", body)
		assert.Less(t, resp.StatusCode, 500, body)
	}
}

func TestEvaluate_NonStringDateIsUndetermined(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, out := post(t, srv.URL+"/v1/evaluate?as_of=2024-02-01", `{"part_a_date": 20240101, "part_b_date": "01/01/2024", "contract_code": "H1234"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := out["result"].(map[string]any)
	findings := result["findings"].([]any)
	require.NotEmpty(t, findings)
	icep := findings[0].(map[string]any)
	assert.Equal(t, "icep_iep", icep["category"])
	assert.Equal(t, "undetermined", icep["status"])
}

type failingPipeline struct{}

func (failingPipeline) EvaluatePayload(ctx context.Context, data []byte, asOf time.Time) (*model.Report, error) {
	return nil, errors.New("record unreadable")
}

func (failingPipeline) ScanText(ctx context.Context, text string, asOf time.Time) (*model.Report, error) {
	return nil, errors.New("record unreadable")
}

func (failingPipeline) Engine() *eligibility.Engine { return eligibility.NewEngine(nil, util.DiscardLogger()) }

func TestEvaluate_PipelineErrorIsBadRecord(t *testing.T) {
	srv := httptest.NewServer(New(failingPipeline{}, prometheus.NewRegistry(), util.DiscardLogger(), 1<<16, time.Minute).Routes())
	t.Cleanup(srv.Close)

	resp, out := post(t, srv.URL+"/v1/evaluate", record)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "bad_record", out["code"])
	assert.Equal(t, "record unreadable", out["error"])
}

func TestExtract(t *testing.T) {
	srv := newTestServer(t, stubProvider{content: record})

	resp, out := post(t, srv.URL+"/v1/extract", `{"text": "MARX SCREEN", "as_of": "2024-02-01"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "stub", out["extraction"].(map[string]any)["provider"])

	resp, out = post(t, srv.URL+"/v1/extract", `{"text": ""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "empty_text", out["code"])
}

func TestExtract_Failures(t *testing.T) {
	resp, out := post(t, newTestServer(t, stubProvider{content: `{"error": "not a beneficiary screen"}`}).URL+"/v1/extract", `{"text": "hello"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "not a beneficiary screen", out["error"])
	assert.Equal(t, "extraction_failed", out["code"])

	resp, out = post(t, newTestServer(t, nil).URL+"/v1/extract", `{"text": "hello"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "no_provider", out["code"])

	resp, _ = post(t, newTestServer(t, stubProvider{err: assert.AnError}).URL+"/v1/extract", `{"text": "hello"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	_ = resp.Body.Close()
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, 1.0, health["declarations"])

	post(t, srv.URL+"/v1/evaluate", record)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	buf := new(strings.Builder)
	_, _ = io.Copy(buf, resp.Body)
	assert.Contains(t, buf.String(), "sepcheck_evaluations_total")
}
