package overlay

import (
	"context"
	"fmt"
	"sync"

	"github.com/gisquick/countyview/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

type fakeOverlay struct {
	id       string
	features []*geojson.Feature
}

func (o *fakeOverlay) ID() string                   { return o.id }
func (o *fakeOverlay) Features() []*geojson.Feature { return o.features }

type fakeRenderer struct {
	mu        sync.Mutex
	n         int
	live      map[string]*geojson.FeatureCollection
	fail      map[string]bool
	visible   map[string]bool
	styles    map[string]domain.Style
	features  map[string]map[int]domain.Style
	popups    map[string]PopupFunc
	fitted    []orb.Bound
	views     []orb.Point
	tileNames []string
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		live:     make(map[string]*geojson.FeatureCollection),
		fail:     make(map[string]bool),
		visible:  make(map[string]bool),
		styles:   make(map[string]domain.Style),
		features: make(map[string]map[int]domain.Style),
		popups:   make(map[string]PopupFunc),
	}
}

func (r *fakeRenderer) next(features []*geojson.Feature) *fakeOverlay {
	r.n++
	return &fakeOverlay{id: fmt.Sprintf("o%d", r.n), features: features}
}

func (r *fakeRenderer) CreateTileOverlay(base domain.BaseMap) (Overlay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tileNames = append(r.tileNames, base.Name)
	return r.next(nil), nil
}

func (r *fakeRenderer) CreateFeatureOverlay(ctx context.Context, url string, style domain.Style) (Overlay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[url] {
		return nil, fmt.Errorf("cannot load %s", url)
	}
	fc, ok := r.live[url]
	if !ok {
		fc = geojson.NewFeatureCollection()
	}
	o := r.next(fc.Features)
	r.styles[o.id] = style
	return o, nil
}

func (r *fakeRenderer) CreateGeoJSONOverlay(fc *geojson.FeatureCollection, style domain.Style) (Overlay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.next(fc.Features)
	r.styles[o.id] = style
	return o, nil
}

func (r *fakeRenderer) AddToView(o Overlay) {
	r.mu.Lock()
	r.visible[o.ID()] = true
	r.mu.Unlock()
}

func (r *fakeRenderer) RemoveFromView(o Overlay) {
	r.mu.Lock()
	delete(r.visible, o.ID())
	r.mu.Unlock()
}

func (r *fakeRenderer) SetStyle(o Overlay, style domain.Style) {
	r.mu.Lock()
	r.styles[o.ID()] = style
	delete(r.features, o.ID())
	r.mu.Unlock()
}

func (r *fakeRenderer) SetFeatureStyle(o Overlay, feature int, style domain.Style) {
	r.mu.Lock()
	if r.features[o.ID()] == nil {
		r.features[o.ID()] = make(map[int]domain.Style)
	}
	r.features[o.ID()][feature] = style
	r.mu.Unlock()
}

func (r *fakeRenderer) FeatureStyle(o Overlay, feature int) domain.Style {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.features[o.ID()][feature]; ok {
		return s
	}
	return r.styles[o.ID()]
}

func (r *fakeRenderer) Visible(o Overlay) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visible[o.ID()]
}

func (r *fakeRenderer) FitBounds(b orb.Bound) {
	r.mu.Lock()
	r.fitted = append(r.fitted, b)
	r.mu.Unlock()
}

func (r *fakeRenderer) SetView(center orb.Point, zoom int) {
	r.mu.Lock()
	r.views = append(r.views, center)
	r.mu.Unlock()
}

func (r *fakeRenderer) BindPopup(o Overlay, content PopupFunc) {
	r.mu.Lock()
	r.popups[o.ID()] = content
	r.mu.Unlock()
}

type fakeQuerier struct {
	rows    []map[string]interface{}
	err     error
	clauses []string
}

func (q *fakeQuerier) QueryAttributes(ctx context.Context, layerURL, where string) ([]map[string]interface{}, error) {
	q.clauses = append(q.clauses, where)
	return q.rows, q.err
}

type fakeHost struct {
	messages []string
	selected []domain.Attribute
	legends  [][]LegendEntry
}

func (h *fakeHost) Message(text string) { h.messages = append(h.messages, text) }
func (h *fakeHost) FeatureSelected(layer string, attributes []domain.Attribute) {
	h.selected = attributes
}
func (h *fakeHost) Legend(entries []LegendEntry) { h.legends = append(h.legends, entries) }

type fakeControl struct {
	labels []string
}

func (c *fakeControl) AddOverlay(handle Overlay, label string) {
	c.labels = append(c.labels, label)
}

func township(name string, x float64) *geojson.Feature {
	f := geojson.NewFeature(orb.Polygon{{{x, 45}, {x + 1, 45}, {x + 1, 46}, {x, 46}, {x, 45}}})
	f.Properties["NAME"] = name
	f.Properties["OBJECTID"] = x
	return f
}

func townships(names ...string) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, n := range names {
		fc.Append(township(n, float64(i)))
	}
	return fc
}

func testViewer() domain.Viewer {
	return domain.Viewer{
		Map: domain.MapView{Center: [2]float64{45.87, -87.0}, Zoom: 9},
		Regions: domain.RegionFilter{
			Sentinel:     "all",
			LayerKeyword: "township",
			NameFields:   []string{"NAME", "TOWNSHIP"},
			QueryField:   "NAME",
		},
		UI: domain.UIFlags{ShowInfoPanel: true},
		Interaction: domain.Interaction{
			EnablePopups:     true,
			EnableSelection:  true,
			HighlightOnHover: true,
			SelectedStyle:    domain.Style{Color: "#00FFFB", Weight: 3, FillOpacity: 0.5},
		},
	}
}

const townshipsURL = "https://delta/FeatureServer/7"

func testRegistry() domain.Registry {
	return domain.Registry{
		Source: "delta_county",
		Layers: []*domain.LayerConfig{
			{
				ID:               "delta_county_7",
				Name:             "Townships",
				DisplayName:      "🏘️ Townships",
				SourceURL:        townshipsURL,
				Kind:             domain.KindLive,
				Style:            domain.Style{Color: "#2E86AB", Weight: 2, FillOpacity: 0.1},
				Popup:            domain.PopupTemplate{Title: "{NAME}", Content: "<p>{NAME}: {POPULATION}</p>"},
				VisibleByDefault: true,
			},
			{
				ID:           "delta_county_1",
				Name:         "Address_Points",
				DisplayName:  "📍 Address Points",
				SourceURL:    "https://delta/FeatureServer/1",
				Kind:         domain.KindLive,
				GeometryType: domain.GeometryPoint,
			},
			{
				ID:          "delta_fallback_2",
				Name:        "Address Points",
				DisplayName: "📄 Address Points (GeoJSON)",
				Kind:        domain.KindStaticGeoJSON,
				Features:    townships("point"),
			},
			{
				ID:          "delta_county_fallback",
				DisplayName: "⚠️ Delta County Service (Connection Failed)",
				Kind:        domain.KindPlaceholder,
				Popup:       domain.PopupTemplate{Title: "Delta", Content: "down"},
				Placeholder: &domain.PlaceholderInfo{Status: "Unable to connect"},
			},
		},
	}
}

// fakeViewer is a ViewerSource whose settings tests can change between calls.
type fakeViewer struct {
	mu     sync.Mutex
	viewer domain.Viewer
}

func (v *fakeViewer) Get() domain.Viewer {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.viewer
}

func (v *fakeViewer) update(fn func(*domain.Viewer)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn(&v.viewer)
}

type fixture struct {
	manager  *Manager
	renderer *fakeRenderer
	querier  *fakeQuerier
	host     *fakeHost
	viewer   *fakeViewer
}

func newFixture(names ...string) *fixture {
	r := newFakeRenderer()
	r.live[townshipsURL] = townships(names...)
	q := &fakeQuerier{}
	h := &fakeHost{}
	v := &fakeViewer{viewer: testViewer()}
	m := NewManager(zap.NewNop().Sugar(), r, q, h, v)
	return &fixture{manager: m, renderer: r, querier: q, host: h, viewer: v}
}

func (f *fixture) overlay(id string) Overlay {
	return f.manager.layers[id].Rendered
}
