// Package mapview is the server-side map view: it keeps the overlays, their
// styles and the viewport, and publishes every change on an event bus.
package mapview

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gisquick/countyview/internal/domain"
	"github.com/gisquick/countyview/internal/overlay"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

// FeatureFetcher loads the features of a live layer.
type FeatureFetcher interface {
	QueryGeoJSON(ctx context.Context, layerURL, where string) (*geojson.FeatureCollection, error)
}

type OverlayKind string

const (
	OverlayTile    OverlayKind = "tile"
	OverlayFeature OverlayKind = "feature"
	OverlayGeoJSON OverlayKind = "geojson"
)

type mapOverlay struct {
	id            string
	kind          OverlayKind
	source        string
	features      []*geojson.Feature
	style         domain.Style
	featureStyles map[int]domain.Style
	popup         overlay.PopupFunc
	onView        bool
}

func (o *mapOverlay) ID() string {
	return o.id
}

func (o *mapOverlay) Features() []*geojson.Feature {
	return o.features
}

// OverlayState is a snapshot of one overlay.
type OverlayState struct {
	ID            string               `json:"id"`
	Kind          OverlayKind          `json:"kind"`
	Source        string               `json:"source,omitempty"`
	Features      int                  `json:"features"`
	Style         domain.Style         `json:"style"`
	FeatureStyles map[int]domain.Style `json:"feature_styles,omitempty"`
	OnView        bool                 `json:"on_view"`
	Popup         bool                 `json:"popup"`
}

// State is a snapshot of the whole view.
type State struct {
	Center   orb.Point      `json:"center"`
	Zoom     int            `json:"zoom"`
	Bounds   *orb.Bound     `json:"bounds,omitempty"`
	Overlays []OverlayState `json:"overlays"`
}

type View struct {
	mu       sync.RWMutex
	log      *zap.SugaredLogger
	fetcher  FeatureFetcher
	bus      *EventBus
	live     bool
	seq      int
	overlays map[string]*mapOverlay
	order    []string
	center   orb.Point
	zoom     int
	bounds   *orb.Bound
}

// NewView creates a view. Live feature layers can only be created when
// a fetcher is given and live is true.
func NewView(log *zap.SugaredLogger, fetcher FeatureFetcher, bus *EventBus, live bool, initial domain.MapView) *View {
	return &View{
		log:      log,
		fetcher:  fetcher,
		bus:      bus,
		live:     live,
		overlays: make(map[string]*mapOverlay),
		center:   initial.CenterPoint(),
		zoom:     initial.Zoom,
	}
}

// Available reports whether live feature layers can be created.
func (v *View) Available() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.fetcher != nil && v.live
}

func (v *View) SetLive(live bool) {
	v.mu.Lock()
	v.live = live
	v.mu.Unlock()
}

func (v *View) add(kind OverlayKind, source string, features []*geojson.Feature, style domain.Style) *mapOverlay {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seq++
	o := &mapOverlay{
		id:            fmt.Sprintf("%s-%d", kind, v.seq),
		kind:          kind,
		source:        source,
		features:      features,
		style:         style,
		featureStyles: make(map[int]domain.Style),
	}
	v.overlays[o.id] = o
	v.order = append(v.order, o.id)
	return o
}

func (v *View) CreateTileOverlay(base domain.BaseMap) (overlay.Overlay, error) {
	source := base.URL
	if source == "" {
		source = base.Provider
	}
	if source == "" {
		return nil, fmt.Errorf("base map %q has neither url nor provider", base.Name)
	}
	return v.add(OverlayTile, source, nil, domain.Style{}), nil
}

func (v *View) CreateFeatureOverlay(ctx context.Context, url string, style domain.Style) (overlay.Overlay, error) {
	if !v.Available() {
		return nil, domain.ErrCapabilityMissing
	}
	fc, err := v.fetcher.QueryGeoJSON(ctx, url, domain.AllFeatures)
	if err != nil {
		return nil, err
	}
	return v.add(OverlayFeature, url, fc.Features, style), nil
}

func (v *View) CreateGeoJSONOverlay(fc *geojson.FeatureCollection, style domain.Style) (overlay.Overlay, error) {
	if fc == nil {
		return nil, fmt.Errorf("%w: nil feature collection", domain.ErrRenderFailure)
	}
	return v.add(OverlayGeoJSON, "", fc.Features, style), nil
}

func (v *View) lookup(o overlay.Overlay) *mapOverlay {
	if o == nil {
		return nil
	}
	mo, ok := v.overlays[o.ID()]
	if !ok {
		v.log.Warnw("unknown overlay", "overlay", o.ID())
		return nil
	}
	return mo
}

func (v *View) AddToView(o overlay.Overlay) {
	v.setOnView(o, true)
}

func (v *View) RemoveFromView(o overlay.Overlay) {
	v.setOnView(o, false)
}

func (v *View) setOnView(o overlay.Overlay, on bool) {
	v.mu.Lock()
	mo := v.lookup(o)
	if mo == nil || mo.onView == on {
		v.mu.Unlock()
		return
	}
	mo.onView = on
	v.mu.Unlock()

	event := EventOverlayRemoved
	if on {
		event = EventOverlayAdded
	}
	v.bus.Publish(Event{Type: event, Overlay: mo.id})
}

// SetStyle sets the overlay style and drops all per-feature styles.
func (v *View) SetStyle(o overlay.Overlay, style domain.Style) {
	v.mu.Lock()
	mo := v.lookup(o)
	if mo == nil {
		v.mu.Unlock()
		return
	}
	mo.style = style
	mo.featureStyles = make(map[int]domain.Style)
	v.mu.Unlock()

	v.bus.Publish(Event{Type: EventStyle, Overlay: mo.id, Data: style})
}

// SetFeatureStyle overrides the style of one feature. Setting the overlay
// style clears the override.
func (v *View) SetFeatureStyle(o overlay.Overlay, feature int, style domain.Style) {
	v.mu.Lock()
	mo := v.lookup(o)
	if mo == nil {
		v.mu.Unlock()
		return
	}
	if style == mo.style {
		delete(mo.featureStyles, feature)
	} else {
		mo.featureStyles[feature] = style
	}
	v.mu.Unlock()

	v.bus.Publish(Event{Type: EventFeatureStyle, Overlay: mo.id, Data: map[string]interface{}{
		"feature": feature,
		"style":   style,
	}})
}

func (v *View) FitBounds(b orb.Bound) {
	v.mu.Lock()
	v.bounds = &b
	v.center = b.Center()
	v.mu.Unlock()
	v.bus.Publish(Event{Type: EventView, Data: map[string]interface{}{"bounds": b}})
}

func (v *View) SetView(center orb.Point, zoom int) {
	v.mu.Lock()
	v.center = center
	v.zoom = zoom
	v.bounds = nil
	v.mu.Unlock()
	v.bus.Publish(Event{Type: EventView, Data: map[string]interface{}{"center": center, "zoom": zoom}})
}

func (v *View) BindPopup(o overlay.Overlay, content overlay.PopupFunc) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if mo := v.lookup(o); mo != nil {
		mo.popup = content
	}
}

// FeatureStyle returns the effective style of a feature.
func (v *View) FeatureStyle(id string, feature int) (domain.Style, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	mo, ok := v.overlays[id]
	if !ok {
		return domain.Style{}, false
	}
	if s, ok := mo.featureStyles[feature]; ok {
		return s, true
	}
	return mo.style, true
}

// FeatureCollection returns the features of an overlay with their effective
// styles in the "style" property.
func (v *View) FeatureCollection(id string) (*geojson.FeatureCollection, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	mo, ok := v.overlays[id]
	if !ok || mo.kind == OverlayTile {
		return nil, fmt.Errorf("%w: overlay %s", domain.ErrLayerNotFound, id)
	}
	fc := geojson.NewFeatureCollection()
	for i, f := range mo.features {
		style := mo.style
		if s, ok := mo.featureStyles[i]; ok {
			style = s
		}
		props := make(geojson.Properties, len(f.Properties)+1)
		for k, val := range f.Properties {
			props[k] = val
		}
		props["style"] = style
		fc.Append(&geojson.Feature{ID: f.ID, Type: f.Type, Geometry: f.Geometry, Properties: props})
	}
	return fc, nil
}

// Popup renders the bound popup of an overlay feature.
func (v *View) Popup(id string, feature int) (domain.Popup, bool) {
	v.mu.RLock()
	mo, ok := v.overlays[id]
	v.mu.RUnlock()
	if !ok || mo.popup == nil {
		return domain.Popup{}, false
	}
	return mo.popup(feature), true
}

func (v *View) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	s := State{Center: v.center, Zoom: v.zoom, Bounds: v.bounds, Overlays: make([]OverlayState, 0, len(v.order))}
	for _, id := range v.order {
		mo := v.overlays[id]
		styles := make(map[int]domain.Style, len(mo.featureStyles))
		for k, val := range mo.featureStyles {
			styles[k] = val
		}
		s.Overlays = append(s.Overlays, OverlayState{
			ID:            mo.id,
			Kind:          mo.kind,
			Source:        mo.source,
			Features:      len(mo.features),
			Style:         mo.style,
			FeatureStyles: styles,
			OnView:        mo.onView,
			Popup:         mo.popup != nil,
		})
	}
	return s
}

// OnView lists the ids of the overlays currently shown, sorted.
func (v *View) OnView() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	ids := []string{}
	for id, mo := range v.overlays {
		if mo.onView {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
