package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rryowa/fra_portal/internal/client"
	"github.com/rryowa/fra_portal/internal/models"
)

const (
	outlineLayerID = "india"

	outlineOpacity = 0.4
	defaultOpacity = 0.8
)

var csvHeader = []string{"claim_id", "claimant", "state", "status", "lon", "lat"}

type MapService struct {
	portal *PortalService
	log    *zap.SugaredLogger
}

func NewMapService(portal *PortalService, log *zap.SugaredLogger) *MapService {
	return &MapService{portal: portal, log: log}
}

// LoadLayers fetches the layer list and then every layer's geometry in
// parallel. Layers that fail to load are left out; only a lost session
// fails the whole call.
func (s *MapService) LoadLayers(ctx context.Context) ([]models.LoadedLayer, error) {
	layers, err := s.portal.MapLayers(ctx)
	if err != nil {
		return nil, err
	}

	loaded := make([]*models.LoadedLayer, len(layers))
	g, gctx := errgroup.WithContext(ctx)
	for i, layer := range layers {
		i, layer := i, layer
		g.Go(func() error {
			fc, err := s.portal.LayerGeoJSON(gctx, layer.URL)
			if err != nil {
				if client.IsUnauthorized(err) {
					return err
				}
				s.log.Warnw("skipping map layer", "layer", layer.ID, "error", err)
				return nil
			}
			loaded[i] = &models.LoadedLayer{MapLayer: layer, Opacity: LayerOpacity(layer.ID), Features: fc}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]models.LoadedLayer, 0, len(loaded))
	for _, l := range loaded {
		if l != nil {
			out = append(out, *l)
		}
	}
	return out, nil
}

// LoadClaims fetches just the claims layer. The collection is empty when the
// backend lists no such layer.
func (s *MapService) LoadClaims(ctx context.Context) (*geojson.FeatureCollection, error) {
	layers, err := s.portal.MapLayers(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range layers {
		if l.ID == models.ClaimsLayerID {
			return s.portal.LayerGeoJSON(ctx, l.URL)
		}
	}
	return geojson.NewFeatureCollection(), nil
}

// LayerOpacity is the initial opacity of a layer: the country outline is
// drawn fainter than everything else.
func LayerOpacity(layerID string) float64 {
	if layerID == outlineLayerID {
		return outlineOpacity
	}
	return defaultOpacity
}

// StatusColor is the marker colour of a claim with the given status.
func StatusColor(status string) string {
	switch status {
	case models.StatusApproved:
		return "#22c55e"
	case models.StatusRejected:
		return "#ef4444"
	default:
		return "#eab308"
	}
}

// ClaimsLayer picks the claims layer out of loaded layers.
func ClaimsLayer(layers []models.LoadedLayer) *geojson.FeatureCollection {
	for _, l := range layers {
		if l.ID == models.ClaimsLayerID {
			return l.Features
		}
	}
	return nil
}

func matches(filter, value string) bool {
	return filter == "" || filter == models.FilterAll || filter == value
}

// FilterClaims keeps the features whose state and status properties match.
// An empty filter or "all" matches everything.
func FilterClaims(fc *geojson.FeatureCollection, state, status string) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	if fc == nil {
		return out
	}
	for _, f := range fc.Features {
		if matches(state, f.Properties.MustString("state", "")) &&
			matches(status, f.Properties.MustString("status", "")) {
			out.Append(f)
		}
	}
	return out
}

func ExportGeoJSON(w io.Writer, fc *geojson.FeatureCollection) error {
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		return fmt.Errorf("write geojson: %w", err)
	}
	return nil
}

// ExportCSV writes one row per feature. Features without a point geometry get
// empty coordinates.
func ExportCSV(w io.Writer, fc *geojson.FeatureCollection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	if fc != nil {
		for _, f := range fc.Features {
			lon, lat := "", ""
			if p, ok := f.Geometry.(orb.Point); ok {
				lon = strconv.FormatFloat(p.Lon(), 'f', -1, 64)
				lat = strconv.FormatFloat(p.Lat(), 'f', -1, 64)
			}
			row := []string{
				f.Properties.MustString("claim_id", ""),
				f.Properties.MustString("claimant", ""),
				f.Properties.MustString("state", ""),
				f.Properties.MustString("status", ""),
				lon,
				lat,
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
