package application

import (
	"context"
	"testing"

	"github.com/gisquick/countyview/internal/domain"
	"github.com/gisquick/countyview/internal/overlay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testSources() []domain.Source {
	return []domain.Source{
		*deltaSource(),
		{
			ID:          "uwmadison",
			Title:       "UW-Madison Service",
			Items:       []domain.SourceItem{{ID: "one"}, {ID: "two"}},
			Placeholder: domain.PlaceholderConfig{IDPrefix: "uwmadison_placeholder"},
		},
	}
}

func TestLoaderLoadsOnce(t *testing.T) {
	svc := newFakeService()
	svc.metadata["https://delta/FeatureServer"] = domain.ServiceDescriptor{Layers: []domain.LayerDescriptor{
		{ID: 7, Name: "Townships", GeometryType: domain.GeometryPolygon},
		{ID: 0, Name: "Parcels", GeometryType: domain.GeometryPolygon},
	}}
	target := &recordingMaterializer{}
	l := NewLoader(zap.NewNop().Sugar(), newTestCoordinator(svc, &fakeCapability{available: true}, &fakeClock{}), target)
	assert.True(t, l.Loading())

	registries := l.Load(context.Background(), testSources())
	require.Len(t, registries, 2)
	assert.False(t, l.Loading())
	<-l.Done()

	require.Len(t, target.registries, 2)
	assert.Equal(t, "delta_county", target.registries[0].Source)
	assert.Equal(t, "uwmadison", target.registries[1].Source)

	status := l.Status()
	require.Len(t, status, 2)
	assert.Equal(t, 2, status[0].Live)
	assert.Equal(t, domain.StateProbingPrimary, status[0].ResolvedBy)
	assert.Equal(t, 2, status[1].Placeholder)
	assert.Equal(t, domain.StateUsingPlaceholder, status[1].ResolvedBy)
	assert.Len(t, status[1].Transitions, 3)

	requests := len(svc.Requests())
	assert.Nil(t, l.Load(context.Background(), testSources()))
	assert.Len(t, target.registries, 2)
	assert.Equal(t, requests, len(svc.Requests()))
}

type fakeOverlays struct {
	recordingMaterializer
	baseMaps   []domain.BaseMap
	registered int
}

func (f *fakeOverlays) AddBaseMaps(baseMaps []domain.BaseMap) error {
	f.baseMaps = baseMaps
	return nil
}

func (f *fakeOverlays) RegisterWithControl(control overlay.LayerControl) int {
	f.registered++
	return len(f.registries)
}

type nopControl struct{}

func (nopControl) AddOverlay(handle overlay.Overlay, label string) {}

func TestSessionStart(t *testing.T) {
	svc := newFakeService()
	viewer := domain.Viewer{
		BaseMaps: []domain.BaseMap{{Name: "Dark Theme", Provider: "CartoDB.DarkMatter", Default: true}},
		UI:       domain.UIFlags{ShowLayerControl: true},
	}
	overlays := &fakeOverlays{}
	s, err := NewSession(zap.NewNop().Sugar(), testSources(), viewer, newTestCoordinator(svc, nil, &fakeClock{}), overlays, nopControl{})
	require.NoError(t, err)
	assert.NotEqual(t, "", s.ID.String())
	assert.True(t, s.Loading())

	s.Start(context.Background())
	<-s.Done()
	assert.False(t, s.Loading())
	assert.Len(t, overlays.baseMaps, 1)
	assert.Len(t, overlays.registries, 2)
	assert.Equal(t, 1, overlays.registered)
	assert.Len(t, s.Status(), 2)
	assert.Len(t, s.Sources(), 2)
}

func TestSessionWithoutLayerControl(t *testing.T) {
	overlays := &fakeOverlays{}
	s, err := NewSession(zap.NewNop().Sugar(), testSources(), domain.Viewer{}, newTestCoordinator(newFakeService(), nil, &fakeClock{}), overlays, nopControl{})
	require.NoError(t, err)
	s.Start(context.Background())
	assert.Equal(t, 0, overlays.registered)
}
