// Package overlay keeps the runtime state of rendered layers: visibility,
// feature selection, region filtering and the layer control entries.
package overlay

import (
	"context"

	"github.com/gisquick/countyview/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Overlay is a handle to a layer materialized by a Renderer.
type Overlay interface {
	ID() string
	Features() []*geojson.Feature
}

// PopupFunc renders the popup of the feature with the given index.
type PopupFunc func(feature int) domain.Popup

// Renderer is the map view capability the manager drives.
type Renderer interface {
	CreateTileOverlay(base domain.BaseMap) (Overlay, error)
	CreateFeatureOverlay(ctx context.Context, url string, style domain.Style) (Overlay, error)
	CreateGeoJSONOverlay(fc *geojson.FeatureCollection, style domain.Style) (Overlay, error)
	AddToView(o Overlay)
	RemoveFromView(o Overlay)
	SetStyle(o Overlay, style domain.Style)
	SetFeatureStyle(o Overlay, feature int, style domain.Style)
	FitBounds(b orb.Bound)
	SetView(center orb.Point, zoom int)
	BindPopup(o Overlay, content PopupFunc)
}

// Querier runs attribute-only queries against a live layer.
type Querier interface {
	QueryAttributes(ctx context.Context, layerURL, where string) ([]map[string]interface{}, error)
}

// LayerControl is the external layer toggle UI.
type LayerControl interface {
	AddOverlay(handle Overlay, label string)
}

type LegendEntry struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// Host receives the notifications meant for the end user.
type Host interface {
	Message(text string)
	FeatureSelected(layer string, attributes []domain.Attribute)
	Legend(entries []LegendEntry)
}

type nopHost struct{}

func (nopHost) Message(string)                            {}
func (nopHost) FeatureSelected(string, []domain.Attribute) {}
func (nopHost) Legend([]LegendEntry)                      {}
