package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rryowa/fra_portal/internal/client"
	"github.com/rryowa/fra_portal/internal/models"
)

// PortalService maps each read-only backend endpoint to one method.
type PortalService struct {
	api APIClient
	log *zap.SugaredLogger
}

func NewPortalService(api APIClient, log *zap.SugaredLogger) *PortalService {
	return &PortalService{api: api, log: log}
}

func (s *PortalService) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := s.api.Do(ctx, &client.Request{Path: path, Query: query}, out); err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	return nil
}

// Health is served outside the API base path and needs no session.
func (s *PortalService) Health(ctx context.Context) (*models.Health, error) {
	var h models.Health
	if err := s.api.Do(ctx, &client.Request{Path: client.HealthPath, Anonymous: true}, &h); err != nil {
		return nil, fmt.Errorf("health: %w", err)
	}
	return &h, nil
}

func (s *PortalService) MapLayers(ctx context.Context) ([]models.MapLayer, error) {
	var resp models.MapLayersResponse
	if err := s.get(ctx, "/map/layers", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Layers, nil
}

// LayerGeoJSON fetches the geometry a layer descriptor points at.
func (s *PortalService) LayerGeoJSON(ctx context.Context, layerURL string) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	if err := s.get(ctx, layerURL, nil, fc); err != nil {
		return nil, err
	}
	return fc, nil
}

func (s *PortalService) Recommendations(ctx context.Context, state string) (*models.RecommendationsResponse, error) {
	var query url.Values
	if state != "" {
		query = url.Values{"state": {state}}
	}
	var resp models.RecommendationsResponse
	if err := s.get(ctx, "/decisions/recommendations", query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *PortalService) Insights(ctx context.Context) ([]models.Insight, error) {
	var resp models.InsightsResponse
	if err := s.get(ctx, "/ai/insights", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Insights, nil
}

func (s *PortalService) LandUseInsights(ctx context.Context) ([]models.LandUse, error) {
	var resp models.LandUseResponse
	if err := s.get(ctx, "/ai/landuse-insights", nil, &resp); err != nil {
		return nil, err
	}
	return resp.LandUse, nil
}

func (s *PortalService) DashboardSummary(ctx context.Context) (*models.DashboardSummary, error) {
	var resp models.DashboardSummary
	if err := s.get(ctx, "/dashboard/summary", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *PortalService) DashboardAggregates(ctx context.Context) (*models.DashboardAggregates, error) {
	var resp models.DashboardAggregates
	if err := s.get(ctx, "/dashboard/aggregates", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *PortalService) ListClaims(ctx context.Context) ([]models.Claim, error) {
	var resp models.ClaimsResponse
	if err := s.get(ctx, "/claims", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Claims, nil
}

type DashboardData struct {
	Summary    *models.DashboardSummary
	Aggregates *models.DashboardAggregates
}

// Dashboard loads the summary and the aggregates concurrently.
func (s *PortalService) Dashboard(ctx context.Context) (*DashboardData, error) {
	var data DashboardData
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data.Summary, err = s.DashboardSummary(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		data.Aggregates, err = s.DashboardAggregates(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &data, nil
}

type InsightsData struct {
	Insights []models.Insight
	LandUse  []models.LandUse
}

// AIInsights loads the key metrics and the land-use suggestions concurrently.
func (s *PortalService) AIInsights(ctx context.Context) (*InsightsData, error) {
	var data InsightsData
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data.Insights, err = s.Insights(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		data.LandUse, err = s.LandUseInsights(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &data, nil
}
