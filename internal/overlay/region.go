package overlay

import (
	"context"
	"fmt"
	"strings"

	"github.com/gisquick/countyview/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type MatchMode string

const (
	// MatchQuery matched features by exact equality through the server query.
	MatchQuery MatchMode = "query"
	// MatchScan matched loaded features by case-insensitive substring.
	MatchScan MatchMode = "scan"
)

type RegionResult struct {
	Region   string     `json:"region"`
	Reset    bool       `json:"reset,omitempty"`
	LayerID  string     `json:"layer,omitempty"`
	Mode     MatchMode  `json:"mode,omitempty"`
	Features []int      `json:"features"`
	Bounds   *orb.Bound `json:"bounds,omitempty"`
}

// regionFilter remembers which layers were visible before filtering started.
type regionFilter struct {
	region  string
	layerID string
	visible map[string]bool
}

// SelectRegion shows only the region layer and highlights the features
// named after the region. The sentinel value resets the filter.
func (m *Manager) SelectRegion(ctx context.Context, name string) (RegionResult, error) {
	v := m.viewer.Get()
	cfg := v.Regions
	if name == "" || name == cfg.Sentinel {
		m.ResetRegion()
		return RegionResult{Region: name, Reset: true, Features: []int{}}, nil
	}

	m.mu.Lock()
	l := m.regionLayer(cfg.LayerKeyword)
	if l == nil {
		m.mu.Unlock()
		m.log.Warnw("region layer not found", "keyword", cfg.LayerKeyword, "region", name)
		m.host.Message(fmt.Sprintf("%s layer not found", cases.Title(language.Und).String(cfg.LayerKeyword)))
		return RegionResult{Region: name}, fmt.Errorf("%w: no layer matching %q", domain.ErrLayerNotFound, cfg.LayerKeyword)
	}
	if m.filter == nil {
		snapshot := make(map[string]bool)
		for id, other := range m.layers {
			if other.CurrentlyVisible {
				snapshot[id] = true
			}
		}
		m.filter = &regionFilter{visible: snapshot}
	}
	m.filter.region = name
	m.filter.layerID = l.Config.ID
	for _, id := range m.order {
		other := m.layers[id]
		if other.Rendered == nil {
			continue
		}
		m.setVisible(other, other == l)
	}
	layerCfg := l.Config
	rendered := l.Rendered
	features := rendered.Features()
	m.mu.Unlock()

	matched, mode := m.queryRegion(ctx, layerCfg, cfg.QueryField, features, name)
	if len(matched) == 0 {
		matched = scanRegion(features, cfg.NameFields, name)
		mode = MatchScan
	}

	res := RegionResult{Region: name, LayerID: layerCfg.ID, Mode: mode, Features: matched}
	m.mu.Lock()
	m.clearSelection()
	m.renderer.SetStyle(rendered, layerCfg.Style)
	if len(matched) == 0 {
		legend := m.legend()
		m.mu.Unlock()
		m.host.Legend(legend)
		m.host.Message(fmt.Sprintf("No features found for %s", name))
		return res, fmt.Errorf("%w: %s", domain.ErrEmptyResult, name)
	}
	highlight := layerCfg.Style.Merge(v.Interaction.SelectedStyle)
	for _, i := range matched {
		m.renderer.SetFeatureStyle(rendered, i, highlight)
	}
	if b, ok := boundsOf(features, matched); ok {
		m.renderer.FitBounds(b)
		res.Bounds = &b
	}
	legend := m.legend()
	m.mu.Unlock()

	m.host.Legend(legend)
	return res, nil
}

// regionLayer finds the first materialized layer whose name contains the
// region keyword.
func (m *Manager) regionLayer(keyword string) *Layer {
	keywords := domain.NameList{keyword}
	for _, id := range m.order {
		l := m.layers[id]
		if l.Rendered == nil {
			continue
		}
		if _, ok := keywords.ContainedIn(l.Config.Name); ok {
			return l
		}
		if _, ok := keywords.ContainedIn(l.Config.DisplayName); ok {
			return l
		}
	}
	return nil
}

// queryRegion asks the service for features whose query field equals the
// region name and maps them onto loaded features by exact name equality.
func (m *Manager) queryRegion(ctx context.Context, cfg *domain.LayerConfig, field string, features []*geojson.Feature, name string) ([]int, MatchMode) {
	if m.querier == nil || !cfg.Queryable() {
		return nil, MatchScan
	}
	rows, err := m.querier.QueryAttributes(ctx, cfg.SourceURL, domain.EqualsClause(field, name))
	if err != nil {
		m.log.Warnw("region query failed", "layer", cfg.ID, "region", name, zap.Error(err))
		return nil, MatchScan
	}
	names := make(map[string]bool)
	for _, row := range rows {
		if v, ok := domain.FormatValue(row[field]); ok {
			names[v] = true
		}
	}
	matched := []int{}
	for i, f := range features {
		if v, ok := domain.FormatValue(f.Properties[field]); ok && names[v] {
			matched = append(matched, i)
		}
	}
	return matched, MatchQuery
}

// scanRegion matches loaded features whose first present name field contains
// the region name, ignoring case. The looseness is intended.
func scanRegion(features []*geojson.Feature, fields []string, name string) []int {
	needle := strings.ToLower(name)
	matched := []int{}
	for i, f := range features {
		value, ok := nameOf(f, fields)
		if ok && strings.Contains(strings.ToLower(value), needle) {
			matched = append(matched, i)
		}
	}
	return matched
}

func nameOf(f *geojson.Feature, fields []string) (string, bool) {
	for _, field := range fields {
		if v, ok := domain.FormatValue(f.Properties[field]); ok {
			return v, true
		}
	}
	return "", false
}

func boundsOf(features []*geojson.Feature, indexes []int) (orb.Bound, bool) {
	var (
		b     orb.Bound
		found bool
	)
	for _, i := range indexes {
		g := features[i].Geometry
		if g == nil {
			continue
		}
		if !found {
			b = g.Bound()
			found = true
			continue
		}
		b = b.Union(g.Bound())
	}
	return b, found
}

// ResetRegion re-shows the layers that were visible before filtering,
// restores base styles and returns to the default view.
func (m *Manager) ResetRegion() {
	view := m.viewer.Get().Map
	m.mu.Lock()
	if m.filter != nil {
		for _, id := range m.order {
			l := m.layers[id]
			if l.Rendered == nil {
				continue
			}
			m.setVisible(l, m.filter.visible[id])
		}
		m.filter = nil
	}
	for _, id := range m.order {
		l := m.layers[id]
		if l.Rendered != nil {
			m.renderer.SetStyle(l.Rendered, l.Config.Style)
		}
	}
	m.selection = nil
	m.renderer.SetView(view.CenterPoint(), view.Zoom)
	legend := m.legend()
	m.mu.Unlock()

	m.host.Legend(legend)
}

// ActiveRegion returns the region currently filtered on.
func (m *Manager) ActiveRegion() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.filter == nil {
		return "", false
	}
	return m.filter.region, true
}
