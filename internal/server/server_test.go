package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/config"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/logging"
)

const scenarioTemplate = `
template_name: Scenario
template_code: scenario
file_matching_patterns: ["proforma_*.csv"]
classification:
  deny_keywords: [total, name]
primary:
  fields:
    code: {column: 0, pattern: regex, regex: '^\d{3}$'}
    name: {column: 1}
    quantity: {column: 2}
    cost: {column: 3, fallback: last}
secondary:
  fields:
    name: {column: 0}
    weight: {column: 1, fallback: last}
output:
  totals_label: Итого
`

const (
	primaryCSV   = "001,Sofa Grand,10,1500\n002,Chair Basic,5,300\n,Total,15,1800\n"
	secondaryCSV = "Sofa Grand,45.2\nChair Basic,12.0\nTable Oak,9\n"
)

func newTestServer(t *testing.T, mutate func(*config.MainConfig)) *Server {
	t.Helper()
	tmpl, err := config.ParseTemplateConfig([]byte(scenarioTemplate))
	require.NoError(t, err)

	cfg := config.DefaultMainConfig()
	if mutate != nil {
		mutate(cfg)
	}
	s, err := New(cfg, map[string]*config.TemplateConfig{"scenario": tmpl}, logging.Discard())
	require.NoError(t, err)
	return s
}

type upload struct {
	field, name, content string
}

func multipartRequest(t *testing.T, uploads []upload, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, u := range uploads {
		fw, err := mw.CreateFormFile(u.field, u.name)
		require.NoError(t, err)
		_, err = io.WriteString(fw, u.content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/reconcile", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func scenarioUploads() []upload {
	return []upload{
		{"primary", "proforma_1.csv", primaryCSV},
		{"secondary", "waybill.csv", secondaryCSV},
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestReconcileAndExport(t *testing.T) {
	s := newTestServer(t, nil)
	router := s.Router()

	req := multipartRequest(t, scenarioUploads(), nil)
	req.Header.Set(SessionHeader, "session-a")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[ReconcileResponse](t, rec)
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, "session-a", resp.SessionID)
	assert.Equal(t, "scenario", resp.Template)
	require.Len(t, resp.Table.Rows, 2)
	assert.Equal(t, "Sofa Grand", resp.Table.Rows[0].Name)
	assert.Equal(t, "45.20", *resp.Table.Rows[0].Weight)
	assert.Equal(t, "Итого", resp.Table.Totals.Name)
	assert.Equal(t, "57.20", *resp.Table.Totals.Weight)
	assert.Equal(t, "1800.00", *resp.Table.Totals.Cost)
	assert.Equal(t, 1, resp.Primary.Skipped)
	require.Len(t, resp.Issues, 1)
	assert.Equal(t, "unjoinable_record", resp.Issues[0].Kind)
	assert.Equal(t, 3, resp.Issues[0].Row)

	// Export from the same session.
	exportReq := httptest.NewRequest(http.MethodGet, "/api/runs/"+resp.RunID+"/export?format=html", nil)
	exportReq.Header.Set(SessionHeader, "session-a")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, exportReq)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), resp.RunID)
	assert.Contains(t, rec.Body.String(), "Sofa Grand")

	// Another session cannot see the run.
	exportReq = httptest.NewRequest(http.MethodGet, "/api/runs/"+resp.RunID+"/export", nil)
	exportReq.Header.Set(SessionHeader, "session-b")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, exportReq)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode[APIError](t, rec).ErrorCode)

	// Unknown export format.
	exportReq = httptest.NewRequest(http.MethodGet, "/api/runs/"+resp.RunID+"/export?format=pdf", nil)
	exportReq.Header.Set(SessionHeader, "session-a")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, exportReq)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReconcileIssuesSessionCookie(t *testing.T) {
	router := newTestServer(t, nil).Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, scenarioUploads(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	session := rec.Header().Get(SessionHeader)
	require.NotEmpty(t, session)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.Equal(t, session, cookies[0].Value)

	resp := decode[ReconcileResponse](t, rec)
	exportReq := httptest.NewRequest(http.MethodGet, "/api/runs/"+resp.RunID+"/export?format=json", nil)
	exportReq.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, exportReq)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestReconcileErrors(t *testing.T) {
	tests := []struct {
		name    string
		uploads []upload
		fields  map[string]string
		status  int
		code    string
	}{
		{
			name:    "missing secondary",
			uploads: []upload{{"primary", "p.csv", primaryCSV}},
			status:  http.StatusBadRequest,
			code:    "INVALID_INPUT",
		},
		{
			name:    "unsupported format",
			uploads: []upload{{"primary", "scan.pdf", "%PDF"}, {"secondary", "w.csv", secondaryCSV}},
			status:  http.StatusUnsupportedMediaType,
			code:    "UNSUPPORTED_FORMAT",
		},
		{
			name:    "no usable records",
			uploads: []upload{{"primary", "p.csv", "Name,Total\n"}, {"secondary", "w.csv", secondaryCSV}},
			fields:  map[string]string{"template": "scenario"},
			status:  http.StatusBadRequest,
			code:    "INVALID_INPUT",
		},
		{
			name:    "malformed secondary",
			uploads: []upload{{"primary", "p.csv", primaryCSV}, {"secondary", "w.csv", "Total,Total\n"}},
			fields:  map[string]string{"template": "scenario"},
			status:  http.StatusUnprocessableEntity,
			code:    "MALFORMED_DOCUMENT",
		},
		{
			name:    "unknown template",
			uploads: scenarioUploads(),
			fields:  map[string]string{"template": "nope"},
			status:  http.StatusBadRequest,
			code:    "UNKNOWN_TEMPLATE",
		},
	}

	router := newTestServer(t, nil).Router()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, multipartRequest(t, tt.uploads, tt.fields))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[APIError](t, rec).ErrorCode)
		})
	}
}

func TestReconcileNotMultipart(t *testing.T) {
	router := newTestServer(t, nil).Router()
	req := httptest.NewRequest(http.MethodPost, "/api/reconcile", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReconcileUploadLimit(t *testing.T) {
	router := newTestServer(t, func(cfg *config.MainConfig) {
		cfg.Server.MaxUploadBytes = 64
	}).Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, scenarioUploads(), nil))
	assert.Contains(t, []int{http.StatusBadRequest, http.StatusRequestEntityTooLarge}, rec.Code)
}

func TestRateLimit(t *testing.T) {
	router := newTestServer(t, func(cfg *config.MainConfig) {
		cfg.Server.RateLimitRPS = 0.001
		cfg.Server.RateLimitBurst = 1
	}).Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/templates", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/templates", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", decode[APIError](t, rec).ErrorCode)

	// Health checks are not limited.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTemplatesHealthAndMetrics(t *testing.T) {
	router := newTestServer(t, nil).Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/templates", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	templates := decode[[]TemplateInfo](t, rec)
	require.Len(t, templates, 2)
	assert.Equal(t, "default", templates[0].Code)
	assert.Equal(t, "scenario", templates[1].Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, scenarioUploads(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `reconciler_runs_total{status="success"} 1`)
}
