package application

import (
	"context"
	"sync"
	"time"

	"github.com/gisquick/countyview/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type fakeService struct {
	mu       sync.Mutex
	metadata map[string]domain.ServiceDescriptor
	errs     map[string]error
	items    map[string]string
	geojson  map[string]*geojson.FeatureCollection
	requests []string
}

func newFakeService() *fakeService {
	return &fakeService{
		metadata: make(map[string]domain.ServiceDescriptor),
		errs:     make(map[string]error),
		items:    make(map[string]string),
		geojson:  make(map[string]*geojson.FeatureCollection),
	}
}

func (f *fakeService) record(u string) {
	f.mu.Lock()
	f.requests = append(f.requests, u)
	f.mu.Unlock()
}

func (f *fakeService) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.requests...)
}

func (f *fakeService) Metadata(ctx context.Context, serviceURL string) (domain.ServiceDescriptor, error) {
	f.record(serviceURL)
	if err, ok := f.errs[serviceURL]; ok {
		return domain.ServiceDescriptor{}, err
	}
	if d, ok := f.metadata[serviceURL]; ok {
		return d, nil
	}
	return domain.ServiceDescriptor{}, domain.ErrNetworkFailure
}

func (f *fakeService) ItemURL(ctx context.Context, portal, itemID string) (string, error) {
	f.record(portal + "/" + itemID)
	if u, ok := f.items[itemID]; ok {
		return u, nil
	}
	return "", domain.ErrEmptyResult
}

func (f *fakeService) QueryGeoJSON(ctx context.Context, layerURL, where string) (*geojson.FeatureCollection, error) {
	f.record(layerURL + "/query")
	if err, ok := f.errs[layerURL]; ok {
		return nil, err
	}
	if fc, ok := f.geojson[layerURL]; ok {
		return fc, nil
	}
	return geojson.NewFeatureCollection(), nil
}

type fakeCapability struct {
	mu        sync.Mutex
	available bool
}

func (c *fakeCapability) set(v bool) {
	c.mu.Lock()
	c.available = v
	c.mu.Unlock()
}

func (c *fakeCapability) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.available
}

type fakeClock struct {
	mu      sync.Mutex
	waits   []time.Duration
	onAfter func()
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	c.mu.Unlock()
	if c.onAfter != nil {
		c.onAfter()
	}
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func (c *fakeClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration{}, c.waits...)
}

func pointCollection(names ...string) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, n := range names {
		f := geojson.NewFeature(orb.Point{-87 + float64(i)*0.1, 45.8})
		f.Properties["NAME"] = n
		fc.Append(f)
	}
	return fc
}

type recordingMaterializer struct {
	mu         sync.Mutex
	registries []domain.Registry
}

func (m *recordingMaterializer) Materialize(ctx context.Context, reg domain.Registry) error {
	m.mu.Lock()
	m.registries = append(m.registries, reg)
	m.mu.Unlock()
	return nil
}
