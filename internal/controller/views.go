package controller

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/paulmach/orb/geojson"

	"github.com/rryowa/fra_portal/internal/client"
	"github.com/rryowa/fra_portal/internal/models"
	"github.com/rryowa/fra_portal/internal/service"
)

const (
	LoginRoute = "/login"

	defaultRecommendationState = "MH"
)

var (
	mapStates   = []string{models.FilterAll, "MH", "MP", "OD", "TR"}
	mapStatuses = []string{models.FilterAll, models.StatusApproved, models.StatusPending, models.StatusRejected}
)

// Page is what every template receives.
type Page struct {
	Title   string
	Active  string
	Session *models.SessionStatus
	Error   string
	Data    any
}

type mapView struct {
	State      string
	Status     string
	States     []string
	Statuses   []string
	Layers     []models.LoadedLayer
	Claims     []*geojson.Feature
	LayersJSON template.JS
}

type dssView struct {
	State           string
	Mode            string
	BatchSize       int
	Claim           models.Claim
	Recommendations *models.RecommendationsResponse
	Score           *models.ScoreResponse
	Batch           *models.BatchResponse
}

func (c *Controller) page(ctx echo.Context, title, active string) *Page {
	p := &Page{Title: title, Active: active}
	status, err := c.auth.Status(ctx.Request().Context())
	if err != nil {
		c.zapLogger.Warnw("failed to read session", "error", err)
	} else {
		p.Session = status
	}
	return p
}

// render shows p, or hands a lost session to the error handler so the user
// ends up on the login page.
func (c *Controller) render(ctx echo.Context, name string, p *Page, err error) error {
	if err != nil {
		if client.IsUnauthorized(err) {
			return err
		}
		c.zapLogger.Errorw("view data failed to load", "view", name, "error", err)
		p.Error = err.Error()
	}
	return ctx.Render(http.StatusOK, name, p)
}

// (GET /).
func (c *Controller) Home(ctx echo.Context) error {
	return c.render(ctx, "home", c.page(ctx, "Home", "home"), nil)
}

// (GET /about).
func (c *Controller) About(ctx echo.Context) error {
	p := c.page(ctx, "About", "about")
	health, err := c.portal.Health(ctx.Request().Context())
	if err == nil {
		p.Data = health
	}
	return c.render(ctx, "about", p, err)
}

// (GET /login).
func (c *Controller) LoginPage(ctx echo.Context) error {
	p := c.page(ctx, "Login", "login")
	p.Data = ""
	return c.render(ctx, "login", p, nil)
}

// (POST /login).
func (c *Controller) Login(ctx echo.Context) error {
	identifier := ctx.FormValue("identifier")
	password := ctx.FormValue("password")

	if _, err := c.auth.Login(ctx.Request().Context(), identifier, password); err != nil {
		p := c.page(ctx, "Login", "login")
		p.Data = identifier
		p.Error = err.Error()
		return ctx.Render(http.StatusUnauthorized, "login", p)
	}
	return ctx.Redirect(http.StatusSeeOther, "/")
}

// (POST /logout).
func (c *Controller) Logout(ctx echo.Context) error {
	if err := c.auth.Logout(ctx.Request().Context()); err != nil {
		return err
	}
	return ctx.Redirect(http.StatusSeeOther, LoginRoute)
}

type layerScript struct {
	ID      string                     `json:"id"`
	Opacity float64                    `json:"opacity"`
	Data    *geojson.FeatureCollection `json:"data"`
}

// (GET /map).
func (c *Controller) Map(ctx echo.Context) error {
	p := c.page(ctx, "Map", "map")
	view := &mapView{
		State:      filterParam(ctx, "state"),
		Status:     filterParam(ctx, "status"),
		States:     mapStates,
		Statuses:   mapStatuses,
		LayersJSON: "[]",
	}
	p.Data = view

	layers, err := c.maps.LoadLayers(ctx.Request().Context())
	if err != nil {
		return c.render(ctx, "map", p, err)
	}

	view.Layers = layers
	view.Claims = service.FilterClaims(service.ClaimsLayer(layers), view.State, view.Status).Features

	scripts := make([]layerScript, 0, len(layers))
	for _, l := range layers {
		data := l.Features
		if l.ID == models.ClaimsLayerID {
			data = service.FilterClaims(l.Features, view.State, view.Status)
		}
		scripts = append(scripts, layerScript{ID: l.ID, Opacity: l.Opacity, Data: data})
	}
	raw, err := json.Marshal(scripts)
	if err != nil {
		return c.render(ctx, "map", p, err)
	}
	view.LayersJSON = template.JS(raw) //nolint:gosec // encoding/json escapes HTML

	return c.render(ctx, "map", p, nil)
}

// (GET /map/export.geojson).
func (c *Controller) ExportGeoJSON(ctx echo.Context) error {
	fc, err := c.maps.LoadClaims(ctx.Request().Context())
	if err != nil {
		return c.exportError(ctx, err)
	}
	filtered := service.FilterClaims(fc, filterParam(ctx, "state"), filterParam(ctx, "status"))

	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="fra_claims_filtered.geojson"`)
	ctx.Response().Header().Set(echo.HeaderContentType, "application/geo+json")
	ctx.Response().WriteHeader(http.StatusOK)
	return service.ExportGeoJSON(ctx.Response(), filtered)
}

// (GET /map/export.csv).
func (c *Controller) ExportCSV(ctx echo.Context) error {
	fc, err := c.maps.LoadClaims(ctx.Request().Context())
	if err != nil {
		return c.exportError(ctx, err)
	}
	filtered := service.FilterClaims(fc, filterParam(ctx, "state"), filterParam(ctx, "status"))

	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="fra_claims_filtered.csv"`)
	ctx.Response().Header().Set(echo.HeaderContentType, "text/csv")
	ctx.Response().WriteHeader(http.StatusOK)
	return service.ExportCSV(ctx.Response(), filtered)
}

func (c *Controller) exportError(ctx echo.Context, err error) error {
	if client.IsUnauthorized(err) {
		return err
	}
	c.zapLogger.Errorw("export failed", "error", err)
	return echo.NewHTTPError(http.StatusBadGateway, err.Error())
}

func (c *Controller) dssPage(ctx echo.Context, view *dssView) (*Page, error) {
	p := c.page(ctx, "Decision Support", "dss")
	p.Data = view
	recs, err := c.portal.Recommendations(ctx.Request().Context(), view.State)
	view.Recommendations = recs
	return p, err
}

func newDSSView(ctx echo.Context) *dssView {
	state := ctx.QueryParam("state")
	if state == "" {
		state = defaultRecommendationState
	}
	mode := ctx.FormValue("mode")
	if mode == "" {
		mode = models.ModeRules
	}
	return &dssView{
		State:     state,
		Mode:      mode,
		BatchSize: service.DefaultBatchSize,
		Claim:     models.DefaultClaim(),
	}
}

// (GET /dss).
func (c *Controller) DSS(ctx echo.Context) error {
	view := newDSSView(ctx)
	p, err := c.dssPage(ctx, view)
	return c.render(ctx, "dss", p, err)
}

// (POST /dss/score).
func (c *Controller) DSSScore(ctx echo.Context) error {
	view := newDSSView(ctx)
	view.Claim = claimFromForm(ctx)

	p, err := c.dssPage(ctx, view)
	if err != nil {
		return c.render(ctx, "dss", p, err)
	}
	view.Score, err = c.dss.Score(ctx.Request().Context(), view.Mode, view.Claim)
	return c.render(ctx, "dss", p, err)
}

// (POST /dss/batch).
func (c *Controller) DSSBatch(ctx echo.Context) error {
	view := newDSSView(ctx)

	p, err := c.dssPage(ctx, view)
	if err != nil {
		return c.render(ctx, "dss", p, err)
	}
	view.Batch, err = c.dss.SampleBatch(ctx.Request().Context(), view.Mode, view.BatchSize)
	return c.render(ctx, "dss", p, err)
}

// (GET /ai).
func (c *Controller) AI(ctx echo.Context) error {
	p := c.page(ctx, "AI Insights", "ai")
	data, err := c.portal.AIInsights(ctx.Request().Context())
	if err == nil {
		p.Data = data
	}
	return c.render(ctx, "ai", p, err)
}

// (GET /dashboard).
func (c *Controller) Dashboard(ctx echo.Context) error {
	p := c.page(ctx, "Dashboard", "dashboard")
	data, err := c.portal.Dashboard(ctx.Request().Context())
	if err == nil {
		p.Data = data
	}
	return c.render(ctx, "dashboard", p, err)
}

func filterParam(ctx echo.Context, name string) string {
	if v := ctx.QueryParam(name); v != "" {
		return v
	}
	return models.FilterAll
}

func claimFromForm(ctx echo.Context) models.Claim {
	checked := func(name string) bool {
		v := ctx.FormValue(name)
		return v == "true" || v == "on"
	}

	claim := models.Claim{
		ClaimID:                  ctx.FormValue("claim_id"),
		Status:                   ctx.FormValue("status"),
		DocsComplete:             checked("docs_complete"),
		IsDuplicate:              checked("is_duplicate"),
		IsInCriticalWildlifeZone: checked("is_in_critical_wildlife_zone"),
		CommunitySupport:         checked("community_support"),
	}
	if area, err := strconv.ParseFloat(ctx.FormValue("area_ha"), 64); err == nil {
		claim.AreaHa = area
	}
	return claim
}

// RegisterViews adds the HTML routes. Views other than home, about and login
// go through requireSession.
func RegisterViews(e *echo.Echo, c *Controller, requireSession echo.MiddlewareFunc) {
	e.GET("/", c.Home)
	e.GET("/about", c.About)
	e.GET(LoginRoute, c.LoginPage)
	e.POST(LoginRoute, c.Login)
	e.POST("/logout", c.Logout)

	e.GET("/map", c.Map, requireSession)
	e.GET("/map/export.geojson", c.ExportGeoJSON, requireSession)
	e.GET("/map/export.csv", c.ExportCSV, requireSession)
	e.GET("/dss", c.DSS, requireSession)
	e.POST("/dss/score", c.DSSScore, requireSession)
	e.POST("/dss/batch", c.DSSBatch, requireSession)
	e.GET("/ai", c.AI, requireSession)
	e.GET("/dashboard", c.Dashboard, requireSession)
}
