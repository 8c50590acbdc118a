package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rryowa/fra_portal/internal/client"
	"github.com/rryowa/fra_portal/internal/controller"
	"github.com/rryowa/fra_portal/internal/models"
	"github.com/rryowa/fra_portal/internal/service"
	"github.com/rryowa/fra_portal/internal/storage/memory"
	"github.com/rryowa/fra_portal/internal/testutil/fakeapi"
	"github.com/rryowa/fra_portal/internal/util"
)

type testPortal struct {
	api     *API
	backend *fakeapi.Server
	store   *memory.SessionStore
}

func newTestPortal(t *testing.T) *testPortal {
	t.Helper()

	backend := fakeapi.New(t)
	store := memory.NewSessionStore(nil)
	log := zap.NewNop().Sugar()

	c, err := client.New(&util.ClientConfig{BaseURL: backend.URL(), Timeout: 5 * time.Second}, store, log)
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	portal := service.NewPortalService(c, log)
	ctrl := controller.NewController(
		log,
		service.NewAuthService(c, store, log),
		portal,
		service.NewDSSService(c, portal, log),
		service.NewMapService(portal, log),
	)
	renderer, err := controller.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	a := NewAPI(ctrl, renderer, log, &util.ServerConfig{GracefulTimeout: time.Second})
	if err := a.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return &testPortal{api: a, backend: backend, store: store}
}

func (p *testPortal) do(t *testing.T, method, target string, body string, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	p.api.Handler().ServeHTTP(rec, req)
	return rec
}

func (p *testPortal) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	return p.do(t, http.MethodGet, target, "", "")
}

func (p *testPortal) postForm(t *testing.T, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	return p.do(t, http.MethodPost, target, form.Encode(), "application/x-www-form-urlencoded")
}

func (p *testPortal) postJSON(t *testing.T, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	return p.do(t, http.MethodPost, target, body, "application/json")
}

func (p *testPortal) login(t *testing.T, identifier, password string) {
	t.Helper()
	rec := p.postForm(t, "/login", url.Values{"identifier": {identifier}, "password": {password}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login as %s: expected redirect, got %d: %s", identifier, rec.Code, rec.Body.String())
	}
}

func assertRedirectToLogin(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != controller.LoginRoute {
		t.Fatalf("expected redirect to login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestPortal_PublicPages(t *testing.T) {
	p := newTestPortal(t)

	tests := []struct {
		target string
		want   string
	}{
		{"/", "FRA Atlas"},
		{"/about", "Backend status: <strong>ok</strong>"},
		{"/login", `name="identifier"`},
	}
	for _, tt := range tests {
		rec := p.get(t, tt.target)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", tt.target, rec.Code)
			continue
		}
		if !strings.Contains(rec.Body.String(), tt.want) {
			t.Errorf("%s: expected body to contain %q", tt.target, tt.want)
		}
	}
}

func TestPortal_ViewsRequireSession(t *testing.T) {
	p := newTestPortal(t)

	for _, target := range []string{"/map", "/dss", "/ai", "/dashboard", "/map/export.csv"} {
		assertRedirectToLogin(t, p.get(t, target))
	}
	assertRedirectToLogin(t, p.postForm(t, "/dss/score", url.Values{}))
}

func TestPortal_LoginFailure(t *testing.T) {
	p := newTestPortal(t)

	rec := p.postForm(t, "/login", url.Values{"identifier": {"admin"}, "password": {"nope"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid credentials") {
		t.Errorf("expected the error to be shown, got %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `value="admin"`) {
		t.Errorf("expected the identifier to be kept in the form")
	}
}

func TestPortal_MapFiltersClaims(t *testing.T) {
	p := newTestPortal(t)
	p.login(t, "officer", "officer123")

	rec := p.get(t, "/map?state=MH&status=approved")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, id := range []string{"CLM-2008", "CLM-2020", "CLM-2032"} {
		if !strings.Contains(body, id) {
			t.Errorf("expected %s in the filtered map", id)
		}
	}
	if strings.Contains(body, "CLM-2000") {
		t.Errorf("pending claims should be filtered out")
	}
	if !strings.Contains(body, "India Outline (opacity 0.4)") {
		t.Errorf("expected the outline layer with its opacity")
	}
}

func TestPortal_MapExports(t *testing.T) {
	p := newTestPortal(t)
	p.login(t, "officer", "officer123")

	rec := p.get(t, "/map/export.csv?state=MH&status=all")
	if rec.Code != http.StatusOK {
		t.Fatalf("csv: expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("csv: unexpected content type %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if lines[0] != "claim_id,claimant,state,status,lon,lat" {
		t.Errorf("csv: unexpected header %q", lines[0])
	}
	if len(lines) != 11 {
		t.Errorf("csv: expected 10 MH claims, got %d rows", len(lines)-1)
	}

	rec = p.get(t, "/map/export.geojson?status=rejected")
	if rec.Code != http.StatusOK {
		t.Fatalf("geojson: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "fra_claims_filtered.geojson") {
		t.Errorf("geojson: expected attachment header")
	}
	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("geojson: %v", err)
	}
	if doc.Type != "FeatureCollection" || len(doc.Features) == 0 {
		t.Fatalf("geojson: unexpected document %s", rec.Body.String())
	}
	for _, f := range doc.Features {
		if f.Properties["status"] != "rejected" {
			t.Errorf("geojson: unexpected status %v", f.Properties["status"])
		}
	}
}

func TestPortal_DecisionSupport(t *testing.T) {
	p := newTestPortal(t)
	p.login(t, "officer", "officer123")

	rec := p.get(t, "/dss")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Prioritize claims with complete documents") {
		t.Fatalf("expected recommendations, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `value="CLM-2001"`) {
		t.Errorf("expected the default claim in the form")
	}

	form := url.Values{
		"mode":              {"rules"},
		"claim_id":          {"CLM-2001"},
		"area_ha":           {"1.8"},
		"status":            {"pending"},
		"docs_complete":     {"true"},
		"community_support": {"on"},
	}
	rec = p.postForm(t, "/dss/score", form)
	if !strings.Contains(rec.Body.String(), "Score: <strong>85</strong> (high)") {
		t.Errorf("expected rule score 85, got %s", rec.Body.String())
	}

	rec = p.postForm(t, "/dss/batch", url.Values{"mode": {"ml"}})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "prob=") {
		t.Errorf("expected ML batch with probabilities, got %d", rec.Code)
	}
}

func TestPortal_InsightsShowBackendError(t *testing.T) {
	p := newTestPortal(t)
	p.login(t, "officer", "officer123")

	rec := p.get(t, "/ai")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected the page to render, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "forbidden") {
		t.Errorf("expected the backend error as text")
	}

	p.login(t, "admin", "admin123")
	rec = p.get(t, "/ai")
	if !strings.Contains(rec.Body.String(), "avg processing time days") {
		t.Errorf("expected metrics for an admin")
	}
}

func TestPortal_Dashboard(t *testing.T) {
	p := newTestPortal(t)
	p.login(t, "officer", "officer123")

	body := p.get(t, "/dashboard").Body.String()
	for _, want := range []string{"Total claims", "0-2 ha", "10+ ha", "MH"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected dashboard to contain %q", want)
		}
	}
	if strings.Index(body, "0-2 ha") > strings.Index(body, "10+ ha") {
		t.Errorf("area buckets out of order")
	}
}

func TestPortal_LostSessionRedirectsToLogin(t *testing.T) {
	p := newTestPortal(t)
	p.login(t, "officer", "officer123")

	p.backend.ExpireAccessTokens()
	p.backend.RevokeRefreshTokens()

	assertRedirectToLogin(t, p.get(t, "/dashboard"))
	if tok, _ := p.store.RefreshToken(context.Background()); tok != "" {
		t.Errorf("expected the session to be cleared")
	}
	assertRedirectToLogin(t, p.get(t, "/map"))
}

func TestPortal_Logout(t *testing.T) {
	p := newTestPortal(t)
	p.login(t, "officer", "officer123")

	assertRedirectToLogin(t, p.postForm(t, "/logout", url.Values{}))
	assertRedirectToLogin(t, p.get(t, "/dss"))
}

func TestAPI_Session(t *testing.T) {
	p := newTestPortal(t)

	var status models.SessionStatus
	rec := p.get(t, "/api/session")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil || status.Authenticated {
		t.Fatalf("expected unauthenticated status, got %s", rec.Body.String())
	}

	p.login(t, "admin", "admin123")
	rec = p.get(t, "/api/session")
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !status.Authenticated || status.Username != "admin" || status.Role != "admin" {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestAPI_ScoreValidation(t *testing.T) {
	p := newTestPortal(t)
	p.login(t, "officer", "officer123")

	tests := []struct {
		name   string
		target string
		body   string
		code   int
	}{
		{"missing claim_id", "/api/dss/score", `{"area_ha": 1}`, http.StatusBadRequest},
		{"unknown mode", "/api/dss/score?mode=magic", `{"claim_id": "CLM-1"}`, http.StatusBadRequest},
		{"negative area", "/api/dss/score", `{"claim_id": "CLM-1", "area_ha": -1}`, http.StatusBadRequest},
		{"bad limit", "/api/dss/score-batch?limit=0", ``, http.StatusBadRequest},
		{"valid", "/api/dss/score?mode=rules", `{"claim_id": "CLM-1", "docs_complete": true}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := p.postJSON(t, tt.target, tt.body)
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAPI_Score(t *testing.T) {
	p := newTestPortal(t)
	p.login(t, "officer", "officer123")

	rec := p.postJSON(t, "/api/dss/score", `{"claim_id":"CLM-2001","docs_complete":true,"area_ha":1.8,"community_support":true,"status":"pending"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.ScoreResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Result.Score != 85 || resp.Input.ClaimID != "CLM-2001" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestAPI_ScoreBatchSample(t *testing.T) {
	p := newTestPortal(t)
	p.login(t, "officer", "officer123")

	rec := p.do(t, http.MethodPost, "/api/dss/score-batch?limit=3&mode=ml", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.BatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(resp.Results))
	}
	for i := 1; i < len(resp.Results); i++ {
		if resp.Results[i-1].Result.Score < resp.Results[i].Result.Score {
			t.Errorf("results not ranked")
		}
	}
}

func TestAPI_ScoreWithoutSession(t *testing.T) {
	p := newTestPortal(t)

	rec := p.postJSON(t, "/api/dss/score", `{"claim_id":"CLM-1"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body models.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error == "" {
		t.Errorf("expected a JSON error, got %s", rec.Body.String())
	}
}
