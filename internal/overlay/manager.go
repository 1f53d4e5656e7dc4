package overlay

import (
	"context"
	"fmt"
	"sync"

	"github.com/gisquick/countyview/internal/domain"
	"go.uber.org/zap"
)

// Handlers lists the interactions attached to a materialized layer.
type Handlers struct {
	Hover  bool `json:"hover"`
	Select bool `json:"select"`
	Detail bool `json:"detail"`
}

// Layer is the runtime state of a registered layer. Rendered is nil until the
// layer is materialized; placeholders never are.
type Layer struct {
	Config           *domain.LayerConfig
	Rendered         Overlay
	CurrentlyVisible bool
	Handlers         Handlers
}

type Selection struct {
	LayerID string `json:"layer"`
	Feature int    `json:"feature"`
}

type LayerState struct {
	*domain.LayerConfig
	Overlay          string   `json:"overlay,omitempty"`
	Materialized     bool     `json:"materialized"`
	CurrentlyVisible bool     `json:"currently_visible"`
	Handlers         Handlers `json:"handlers"`
	Features         int      `json:"features"`
}

// ViewerSource supplies the current viewer settings. The manager reads it on
// every operation, so reloaded settings apply to the running session.
type ViewerSource interface {
	Get() domain.Viewer
}

// StaticViewer is a ViewerSource with fixed settings.
type StaticViewer domain.Viewer

func (v StaticViewer) Get() domain.Viewer {
	return domain.Viewer(v)
}

// Manager owns the overlay state of a session. All access is serialized by
// its mutex; renderer calls that may block on the network run outside it.
type Manager struct {
	mu       sync.Mutex
	log      *zap.SugaredLogger
	renderer Renderer
	querier  Querier
	host     Host
	viewer   ViewerSource

	registries []*domain.Registry
	layers     map[string]*Layer
	order      []string
	baseMaps   []Overlay
	selection  *Selection
	filter     *regionFilter
}

func NewManager(log *zap.SugaredLogger, renderer Renderer, querier Querier, host Host, viewer ViewerSource) *Manager {
	if host == nil {
		host = nopHost{}
	}
	return &Manager{
		log:      log,
		renderer: renderer,
		querier:  querier,
		host:     host,
		viewer:   viewer,
		layers:   make(map[string]*Layer),
	}
}

// AddBaseMaps creates tile overlays for the base maps and shows the default one.
func (m *Manager) AddBaseMaps(baseMaps []domain.BaseMap) error {
	if m.renderer == nil {
		return domain.ErrCapabilityMissing
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	def := 0
	for i, b := range baseMaps {
		if b.Default {
			def = i
			break
		}
	}
	for i, b := range baseMaps {
		o, err := m.renderer.CreateTileOverlay(b)
		if err != nil {
			m.log.Errorw("creating base map", "name", b.Name, zap.Error(err))
			continue
		}
		m.baseMaps = append(m.baseMaps, o)
		if i == def {
			m.renderer.AddToView(o)
		}
	}
	return nil
}

type created struct {
	config  *domain.LayerConfig
	overlay Overlay
}

// Materialize renders every non-placeholder layer of the registry and shows
// the ones visible by default. A layer that fails to render is dropped; the
// others proceed.
func (m *Manager) Materialize(ctx context.Context, reg domain.Registry) error {
	if m.renderer == nil {
		return domain.ErrCapabilityMissing
	}
	results := make([]created, 0, len(reg.Layers))
	for _, cfg := range reg.Layers {
		if cfg.IsPlaceholder() {
			continue
		}
		o, err := m.render(ctx, cfg)
		if err != nil {
			m.log.Errorw("materializing layer", "layer", cfg.ID, "name", cfg.DisplayName, zap.Error(err))
			m.host.Message(fmt.Sprintf("Layer %s failed to load", cfg.DisplayName))
			continue
		}
		results = append(results, created{config: cfg, overlay: o})
	}

	interaction := m.viewer.Get().Interaction
	m.mu.Lock()
	r := reg
	m.registries = append(m.registries, &r)
	for _, cfg := range reg.Layers {
		if _, exists := m.layers[cfg.ID]; !exists {
			m.layers[cfg.ID] = &Layer{Config: cfg}
			m.order = append(m.order, cfg.ID)
		}
	}
	handlers := Handlers{
		Hover:  interaction.HighlightOnHover,
		Select: interaction.EnableSelection,
		Detail: interaction.EnableSelection,
	}
	for _, c := range results {
		l := m.layers[c.config.ID]
		l.Rendered = c.overlay
		l.Handlers = handlers
		if interaction.EnablePopups {
			m.renderer.BindPopup(c.overlay, popupFunc(c.config, c.overlay))
		}
		if c.config.VisibleByDefault {
			m.renderer.AddToView(c.overlay)
			l.CurrentlyVisible = true
		}
	}
	legend := m.legend()
	m.mu.Unlock()

	m.host.Legend(legend)
	return nil
}

func (m *Manager) render(ctx context.Context, cfg *domain.LayerConfig) (Overlay, error) {
	var (
		o   Overlay
		err error
	)
	switch cfg.Kind {
	case domain.KindLive:
		o, err = m.renderer.CreateFeatureOverlay(ctx, cfg.SourceURL, cfg.Style)
	case domain.KindStaticGeoJSON:
		if cfg.Features == nil {
			return nil, fmt.Errorf("%w: no features", domain.ErrRenderFailure)
		}
		o, err = m.renderer.CreateGeoJSONOverlay(cfg.Features, cfg.Style)
	default:
		return nil, domain.ErrPlaceholderLayer
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRenderFailure, err)
	}
	return o, nil
}

func popupFunc(cfg *domain.LayerConfig, o Overlay) PopupFunc {
	return func(feature int) domain.Popup {
		features := o.Features()
		if feature < 0 || feature >= len(features) {
			return cfg.Popup.Render(nil)
		}
		return cfg.Popup.Render(features[feature].Properties)
	}
}

// Toggle shows or hides a materialized layer. Repeated calls with the same
// value are no-ops. VisibleByDefault is left untouched.
func (m *Manager) Toggle(id string, visible bool) error {
	m.mu.Lock()
	l, err := m.materialized(id)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	changed := m.setVisible(l, visible)
	legend := m.legend()
	m.mu.Unlock()

	if changed {
		m.host.Legend(legend)
	}
	return nil
}

func (m *Manager) setVisible(l *Layer, visible bool) bool {
	if l.CurrentlyVisible == visible {
		return false
	}
	if visible {
		m.renderer.AddToView(l.Rendered)
	} else {
		m.renderer.RemoveFromView(l.Rendered)
	}
	l.CurrentlyVisible = visible
	return true
}

func (m *Manager) materialized(id string) (*Layer, error) {
	l, ok := m.layers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrLayerNotFound, id)
	}
	if l.Config.IsPlaceholder() {
		return nil, fmt.Errorf("%w: %s", domain.ErrPlaceholderLayer, id)
	}
	if l.Rendered == nil {
		return nil, fmt.Errorf("%w: %s is not materialized", domain.ErrLayerNotFound, id)
	}
	return l, nil
}

func (m *Manager) Layers() []LayerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]LayerState, 0, len(m.order))
	for _, id := range m.order {
		l := m.layers[id]
		s := LayerState{
			LayerConfig:      l.Config,
			Materialized:     l.Rendered != nil,
			CurrentlyVisible: l.CurrentlyVisible,
			Handlers:         l.Handlers,
		}
		if l.Rendered != nil {
			s.Overlay = l.Rendered.ID()
			s.Features = len(l.Rendered.Features())
		}
		res = append(res, s)
	}
	return res
}

func (m *Manager) Layer(id string) (LayerState, error) {
	for _, s := range m.Layers() {
		if s.ID == id {
			return s, nil
		}
	}
	return LayerState{}, fmt.Errorf("%w: %s", domain.ErrLayerNotFound, id)
}

func (m *Manager) Registries() []domain.Registry {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]domain.Registry, len(m.registries))
	for i, r := range m.registries {
		res[i] = *r
	}
	return res
}

// Popup renders the popup of a feature. Placeholders render their diagnostic
// content.
func (m *Manager) Popup(id string, feature int) (domain.Popup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.layers[id]
	if !ok {
		return domain.Popup{}, fmt.Errorf("%w: %s", domain.ErrLayerNotFound, id)
	}
	if l.Config.IsPlaceholder() || l.Rendered == nil {
		return l.Config.Popup.Render(nil), nil
	}
	features := l.Rendered.Features()
	if feature < 0 || feature >= len(features) {
		return domain.Popup{}, fmt.Errorf("%w: %s/%d", domain.ErrFeatureNotFound, id, feature)
	}
	return popupFunc(l.Config, l.Rendered)(feature), nil
}

func (m *Manager) Legend() []LegendEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.legend()
}

func (m *Manager) legend() []LegendEntry {
	entries := []LegendEntry{}
	for _, id := range m.order {
		l := m.layers[id]
		if l.Rendered == nil || !l.CurrentlyVisible {
			continue
		}
		entries = append(entries, LegendEntry{
			ID:    l.Config.ID,
			Label: l.Config.DisplayName,
			Color: l.Config.Style.Stroke(),
		})
	}
	return entries
}
