package controller

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/rryowa/fra_portal/internal/models"
	"github.com/rryowa/fra_portal/internal/service"
)

func TestRenderer_AllPagesParse(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	for _, name := range []string{"home", "about", "login", "map", "dss", "ai", "dashboard", "error"} {
		if _, ok := r.pages[name]; !ok {
			t.Errorf("page %s not loaded", name)
		}
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, "nope", &Page{}, nil); err == nil {
		t.Error("expected an error for an unknown page")
	}
}

func TestRenderer_DSSResults(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	prob := 0.73456
	view := &dssView{
		State:     "MH",
		Mode:      models.ModeML,
		BatchSize: service.DefaultBatchSize,
		Claim:     models.DefaultClaim(),
		Score: &models.ScoreResponse{
			Result: models.ScoreResult{Score: 73, Priority: "high", Prob: &prob},
		},
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, "dss", &Page{Title: "Decision Support", Active: "dss", Data: view}, nil); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "prob=0.735") {
		t.Errorf("expected probability with 3 decimals, got %s", out)
	}
	if !strings.Contains(out, "Score first 20 claims (ml)") {
		t.Errorf("expected the batch button with the default size")
	}
}

func TestClaimFromForm(t *testing.T) {
	form := url.Values{
		"claim_id":                     {"CLM-9"},
		"area_ha":                      {"3.25"},
		"status":                       {"approved"},
		"docs_complete":                {"on"},
		"is_in_critical_wildlife_zone": {"true"},
	}
	req := httptest.NewRequest(http.MethodPost, "/dss/score", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	ctx := echo.New().NewContext(req, httptest.NewRecorder())

	got := claimFromForm(ctx)
	want := models.Claim{
		ClaimID:                  "CLM-9",
		AreaHa:                   3.25,
		Status:                   "approved",
		DocsComplete:             true,
		IsInCriticalWildlifeZone: true,
	}
	if got != want {
		t.Errorf("claimFromForm = %+v, want %+v", got, want)
	}
}

func TestGetSwagger(t *testing.T) {
	swagger, err := GetSwagger()
	if err != nil {
		t.Fatalf("GetSwagger: %v", err)
	}
	for _, path := range []string{"/api/session", "/api/dss/score", "/api/dss/score-batch"} {
		if swagger.Paths.Find(path) == nil {
			t.Errorf("path %s missing from the document", path)
		}
	}
}
