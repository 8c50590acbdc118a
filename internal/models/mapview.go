package models

import "github.com/paulmach/orb/geojson"

// ClaimsLayerID is the layer carrying one point feature per claim.
const ClaimsLayerID = "fra_claims"

type MapLayer struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type MapLayersResponse struct {
	Layers []MapLayer `json:"layers"`
}

// LoadedLayer is a layer descriptor together with its fetched geometry.
type LoadedLayer struct {
	MapLayer
	Opacity  float64
	Features *geojson.FeatureCollection
}
