package overlay

import (
	"fmt"

	"github.com/gisquick/countyview/internal/domain"
)

func (m *Manager) feature(id string, feature int) (*Layer, error) {
	l, err := m.materialized(id)
	if err != nil {
		return nil, err
	}
	if feature < 0 || feature >= len(l.Rendered.Features()) {
		return nil, fmt.Errorf("%w: %s/%d", domain.ErrFeatureNotFound, id, feature)
	}
	return l, nil
}

func (m *Manager) isSelected(id string, feature int) bool {
	return m.selection != nil && m.selection.LayerID == id && m.selection.Feature == feature
}

// Hover applies or removes the hover emphasis of a feature. A selected
// feature is emphasized on top of its selection style and gets the
// selection style back on hover-out.
func (m *Manager) Hover(id string, feature int, on bool) error {
	selected := m.viewer.Get().Interaction.SelectedStyle
	m.mu.Lock()
	defer m.mu.Unlock()
	l, err := m.feature(id, feature)
	if err != nil {
		return err
	}
	if !l.Handlers.Hover {
		return nil
	}
	style := l.Config.Style
	if m.isSelected(id, feature) {
		style = style.Merge(selected)
	}
	if on {
		style = style.Hover()
	}
	m.renderer.SetFeatureStyle(l.Rendered, feature, style)
	return nil
}

// Click selects a feature. The previous selection gets its base style back
// before the new one is highlighted, so at most one feature is selected.
func (m *Manager) Click(id string, feature int) error {
	v := m.viewer.Get()
	m.mu.Lock()
	l, err := m.feature(id, feature)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if !l.Handlers.Select {
		m.mu.Unlock()
		return nil
	}
	m.clearSelection()
	m.renderer.SetFeatureStyle(l.Rendered, feature, l.Config.Style.Merge(v.Interaction.SelectedStyle))
	m.selection = &Selection{LayerID: id, Feature: feature}
	name := l.Config.DisplayName
	attrs := domain.DisplayAttributes(l.Rendered.Features()[feature].Properties)
	detail := l.Handlers.Detail && v.UI.ShowInfoPanel
	m.mu.Unlock()

	if detail {
		m.host.FeatureSelected(name, attrs)
	}
	return nil
}

// ClickMap handles a click on an empty map area.
func (m *Manager) ClickMap() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearSelection()
}

func (m *Manager) clearSelection() {
	if m.selection == nil {
		return
	}
	if l, ok := m.layers[m.selection.LayerID]; ok && l.Rendered != nil {
		m.renderer.SetFeatureStyle(l.Rendered, m.selection.Feature, l.Config.Style)
	}
	m.selection = nil
}

func (m *Manager) Selection() (Selection, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selection == nil {
		return Selection{}, false
	}
	return *m.selection, true
}
