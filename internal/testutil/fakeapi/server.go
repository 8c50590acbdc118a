// Package fakeapi is an in-process stand-in for the FRA backend. It serves the
// same routes, issues real HS256 tokens and lets tests expire sessions, block
// refresh calls and count what was requested.
package fakeapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/rryowa/fra_portal/internal/models"
)

const (
	accessTTL  = 2 * time.Hour
	refreshTTL = 7 * 24 * time.Hour

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	roleAdmin   = "admin"
	roleOfficer = "officer"

	claimCount = 40
)

var errInvalidSigningMethod = errors.New("invalid signing method")

type demoUser struct {
	models.User
	password string
}

var demoUsers = []demoUser{
	{User: models.User{Username: "admin", Email: "admin@example.com", Phone: "+911234567890", Role: roleAdmin}, password: "admin123"},
	{User: models.User{Username: "officer", Email: "officer@example.com", Phone: "+919876543210", Role: roleOfficer}, password: "officer123"},
}

type tokenClaims struct {
	Username   string `json:"username"`
	Role       string `json:"role"`
	Type       string `json:"type"`
	Generation int    `json:"gen"`
	jwt.RegisteredClaims
}

// Server is a running fake backend. URL() is the API base to configure the
// client with.
type Server struct {
	*httptest.Server
	echo   *echo.Echo
	secret []byte

	claims []models.Claim
	layers map[string]*geojson.FeatureCollection

	mu                sync.Mutex
	accessGeneration  int
	refreshGeneration int
	refreshGate       chan struct{}
	failingLayers     map[string]bool
	hits              map[string]int
	authorization     map[string]string
	refreshCalls      int
}

func New(t testing.TB) *Server {
	t.Helper()

	claims := generateClaims(claimCount, time.Now())
	s := &Server{
		echo:   echo.New(),
		secret: []byte("fake-backend-secret"),
		claims: claims,
		layers: map[string]*geojson.FeatureCollection{
			"india":              outlineCollection("India", orb.Point{79, 22}),
			"mh":                 outlineCollection("Maharashtra", stateCentres["MH"]),
			"od":                 outlineCollection("Odisha", stateCentres["OD"]),
			models.ClaimsLayerID: claimsCollection(claims),
		},
		failingLayers: map[string]bool{},
		hits:          map[string]int{},
		authorization: map[string]string{},
	}
	s.routes()
	s.Server = httptest.NewServer(s.echo)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() {
	s.echo.Use(s.record)
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, models.Health{Status: "ok", Env: "test"})
	})

	api := s.echo.Group("/api")
	api.POST("/auth/login", s.login)
	api.POST("/auth/refresh", s.refresh)

	officer := api.Group("", s.requireRoles(roleOfficer, roleAdmin))
	officer.GET("/map/layers", s.mapLayers)
	officer.GET("/map/geojson/:id", s.layerGeoJSON)
	officer.GET("/decisions/recommendations", s.recommendations)
	officer.GET("/dashboard/summary", func(c echo.Context) error {
		return c.JSON(http.StatusOK, summary(s.claims))
	})
	officer.GET("/dashboard/aggregates", func(c echo.Context) error {
		return c.JSON(http.StatusOK, aggregates(s.claims))
	})
	officer.GET("/claims", func(c echo.Context) error {
		return c.JSON(http.StatusOK, models.ClaimsResponse{Claims: s.claims})
	})
	officer.GET("/ai/landuse-insights", func(c echo.Context) error {
		return c.JSON(http.StatusOK, models.LandUseResponse{LandUse: landUse(s.claims)})
	})
	officer.POST("/dss/score", s.score(scoreRules))
	officer.POST("/dss/score-batch", s.scoreBatch(scoreRules))
	officer.POST("/dss/ml/score", s.score(scoreML))
	officer.POST("/dss/ml/score-batch", s.scoreBatch(scoreML))

	api.GET("/ai/insights", s.insights, s.requireRoles(roleAdmin))
}

func (s *Server) URL() string {
	return s.Server.URL + "/api"
}

func (s *Server) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path
		s.mu.Lock()
		s.hits[path]++
		s.authorization[path] = c.Request().Header.Get(echo.HeaderAuthorization)
		s.mu.Unlock()
		return next(c)
	}
}

func fail(c echo.Context, status int, reason string) error {
	return c.JSON(status, models.ErrorResponse{Error: reason})
}

func (s *Server) login(c echo.Context) error {
	var body struct {
		Identifier string `json:"identifier"`
		Username   string `json:"username"`
		Email      string `json:"email"`
		Phone      string `json:"phone"`
		Password   string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return fail(c, http.StatusBadRequest, "invalid_body")
	}

	identifier := body.Identifier
	for _, alt := range []string{body.Username, body.Email, body.Phone} {
		if identifier == "" {
			identifier = alt
		}
	}
	identifier = strings.ToLower(strings.TrimSpace(identifier))

	for _, u := range demoUsers {
		known := identifier == u.Username || identifier == strings.ToLower(u.Email) || identifier == u.Phone
		if known && strings.TrimSpace(body.Password) == u.password {
			return c.JSON(http.StatusOK, models.LoginResponse{
				AccessToken:  s.IssueAccessToken(u.Username, u.Role),
				RefreshToken: s.IssueRefreshToken(u.Username, u.Role),
				User:         u.User,
			})
		}
	}
	return fail(c, http.StatusUnauthorized, "invalid_credentials")
}

func (s *Server) refresh(c echo.Context) error {
	s.mu.Lock()
	s.refreshCalls++
	gate := s.refreshGate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}

	claims, err := s.parse(c, tokenTypeRefresh)
	if err != nil {
		return fail(c, http.StatusUnauthorized, err.Error())
	}
	return c.JSON(http.StatusOK, models.RefreshResponse{AccessToken: s.IssueAccessToken(claims.Username, claims.Role)})
}

func (s *Server) requireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := s.parse(c, tokenTypeAccess)
			if err != nil {
				return fail(c, http.StatusUnauthorized, err.Error())
			}
			for _, r := range roles {
				if claims.Role == r {
					return next(c)
				}
			}
			return fail(c, http.StatusForbidden, "forbidden")
		}
	}
}

func (s *Server) mapLayers(c echo.Context) error {
	layers := []models.MapLayer{
		{ID: "india", Type: "geojson", Name: "India Outline", URL: "/api/map/geojson/india"},
		{ID: "mh", Type: "geojson", Name: "Maharashtra", URL: "/api/map/geojson/mh"},
		{ID: "od", Type: "geojson", Name: "Odisha", URL: "/api/map/geojson/od"},
		{ID: models.ClaimsLayerID, Type: "geojson", Name: "FRA Claims (sample)", URL: "/api/map/geojson/fra_claims"},
	}
	return c.JSON(http.StatusOK, models.MapLayersResponse{Layers: layers})
}

func (s *Server) layerGeoJSON(c echo.Context) error {
	id := c.Param("id")
	s.mu.Lock()
	failing := s.failingLayers[id]
	s.mu.Unlock()
	if failing {
		return fail(c, http.StatusInternalServerError, "layer_unavailable")
	}

	fc, ok := s.layers[id]
	if !ok {
		return fail(c, http.StatusNotFound, "unknown_layer")
	}
	return c.JSON(http.StatusOK, fc)
}

func (s *Server) recommendations(c echo.Context) error {
	input := map[string]string{}
	for k, v := range c.QueryParams() {
		if len(v) > 0 {
			input[k] = v[0]
		}
	}
	return c.JSON(http.StatusOK, models.RecommendationsResponse{
		Input: input,
		Recommendations: []models.Recommendation{
			{ID: "rec-1", Title: "Prioritize claims with complete documents", Impact: "high"},
			{ID: "rec-2", Title: "Flag duplicates based on claimant + parcel", Impact: "medium"},
		},
	})
}

func (s *Server) insights(c echo.Context) error {
	return c.JSON(http.StatusOK, models.InsightsResponse{Insights: []models.Insight{
		{Metric: "avg_processing_time_days", Value: 42},
		{Metric: "duplicate_claim_rate", Value: 0.07},
		{Metric: "doc_completeness_score", Value: 0.86},
	}})
}

func (s *Server) score(scorer func(models.Claim) models.ScoreResult) echo.HandlerFunc {
	return func(c echo.Context) error {
		var claim models.Claim
		if err := c.Bind(&claim); err != nil {
			return fail(c, http.StatusBadRequest, "invalid_body")
		}
		return c.JSON(http.StatusOK, models.ScoreResponse{Input: claim, Result: scorer(claim)})
	}
}

func (s *Server) scoreBatch(scorer func(models.Claim) models.ScoreResult) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body models.BatchRequest
		if err := c.Bind(&body); err != nil {
			return fail(c, http.StatusBadRequest, "invalid_body")
		}
		results := make([]models.BatchItem, 0, len(body.Claims))
		for _, claim := range body.Claims {
			results = append(results, models.BatchItem{ID: claim.ClaimID, Input: claim, Result: scorer(claim)})
		}
		return c.JSON(http.StatusOK, models.BatchResponse{Results: results, Count: len(results)})
	}
}

func (s *Server) sign(username, role, typ string, generation int, ttl time.Duration) string {
	now := time.Now()
	claims := &tokenClaims{
		Username:   username,
		Role:       role,
		Type:       typ,
		Generation: generation,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

func (s *Server) IssueAccessToken(username, role string) string {
	s.mu.Lock()
	gen := s.accessGeneration
	s.mu.Unlock()
	return s.sign(username, role, tokenTypeAccess, gen, accessTTL)
}

func (s *Server) IssueRefreshToken(username, role string) string {
	s.mu.Lock()
	gen := s.refreshGeneration
	s.mu.Unlock()
	return s.sign(username, role, tokenTypeRefresh, gen, refreshTTL)
}

func (s *Server) parse(c echo.Context, wantType string) (*tokenClaims, error) {
	raw, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	if !ok || raw == "" {
		return nil, errors.New("missing_token")
	}

	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, errInvalidSigningMethod
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.New("invalid_token")
	}
	if claims.Type != wantType {
		return nil, errors.New("wrong_token_type")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.accessGeneration
	if wantType == tokenTypeRefresh {
		current = s.refreshGeneration
	}
	if claims.Generation != current {
		return nil, errors.New("token_expired")
	}
	return claims, nil
}

// ExpireAccessTokens rejects every access token issued so far.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	s.accessGeneration++
	s.mu.Unlock()
}

// RevokeRefreshTokens rejects every refresh token issued so far.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	s.refreshGeneration++
	s.mu.Unlock()
}

// BlockRefresh holds refresh calls until the returned func is called.
func (s *Server) BlockRefresh() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.refreshGate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.refreshGate = nil
			s.mu.Unlock()
			close(gate)
		})
	}
}

// FailLayer makes the geometry of layer id answer with a server error.
func (s *Server) FailLayer(id string) {
	s.mu.Lock()
	s.failingLayers[id] = true
	s.mu.Unlock()
}

func (s *Server) RefreshCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

// Hits counts requests to an exact URL path, e.g. "/api/claims".
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// LastAuthorization is the Authorization header of the latest request to path.
func (s *Server) LastAuthorization(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authorization[path]
}

func (s *Server) Claims() []models.Claim {
	return s.claims
}
