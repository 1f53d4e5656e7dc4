package application

import (
	"context"
	"fmt"
	"time"

	"github.com/gisquick/countyview/internal/domain"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

// CapabilityWait is how long the chain waits once for a slow live-layer
// capability before leaving the primary strategy.
const CapabilityWait = 2 * time.Second

// Capability reports whether the host can render live query-backed layers.
type Capability interface {
	Available() bool
}

type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

type GeoJSONFetcher interface {
	QueryGeoJSON(ctx context.Context, layerURL, where string) (*geojson.FeatureCollection, error)
}

// FeatureService is the remote API used by the chain.
type FeatureService interface {
	MetadataFetcher
	ItemResolver
	GeoJSONFetcher
}

type Transition struct {
	From   domain.FallbackState `json:"from"`
	To     domain.FallbackState `json:"to"`
	Reason string               `json:"reason,omitempty"`
}

// Coordinator runs the fallback chain of a source:
// primary service, GeoJSON fallback, placeholder.
type Coordinator struct {
	log        *zap.SugaredLogger
	probe      *ServiceProbe
	service    FeatureService
	builder    *RegistryBuilder
	capability Capability
	metrics    *Metrics
	clock      Clock
}

func NewCoordinator(log *zap.SugaredLogger, probe *ServiceProbe, service FeatureService, builder *RegistryBuilder, capability Capability, metrics *Metrics) *Coordinator {
	return &Coordinator{
		log:        log,
		probe:      probe,
		service:    service,
		builder:    builder,
		capability: capability,
		metrics:    metrics,
		clock:      systemClock{},
	}
}

func (c *Coordinator) SetClock(clock Clock) {
	c.clock = clock
}

// Run drives the chain to Done. It always yields a registry with at least one
// layer; the worst case is placeholders.
func (c *Coordinator) Run(ctx context.Context, src *domain.Source) (domain.Registry, []Transition) {
	reg := domain.Registry{Source: src.ID, Title: src.Title}
	transitions := []Transition{}
	state := domain.StateProbingPrimary

	move := func(to domain.FallbackState, reason error) {
		t := Transition{From: state, To: to, Reason: domain.Reason(reason)}
		transitions = append(transitions, t)
		c.metrics.transition(src.ID, t)
		if to == domain.StateDone {
			reg.ResolvedBy = state
			c.log.Infow("layers resolved", "source", src.ID, "strategy", state, "layers", len(reg.Layers))
		} else {
			c.log.Warnw("falling back", "source", src.ID, "from", t.From, "to", t.To, "reason", t.Reason, zap.Error(reason))
		}
		state = to
	}

	for state != domain.StateDone {
		switch state {
		case domain.StateProbingPrimary:
			layers, serviceURL, err := c.primary(ctx, src)
			if err != nil {
				move(domain.StateProbingGeoJSONFallback, err)
				continue
			}
			reg.ServiceURL = serviceURL
			reg.Layers = layers
			move(domain.StateDone, nil)
		case domain.StateProbingGeoJSONFallback:
			layers, serviceURL, err := c.geoJSON(ctx, src)
			if err != nil {
				move(domain.StateUsingPlaceholder, err)
				continue
			}
			reg.ServiceURL = serviceURL
			reg.Layers = layers
			move(domain.StateDone, nil)
		case domain.StateUsingPlaceholder:
			reason := ""
			if n := len(transitions); n > 0 {
				reason = transitions[n-1].Reason
			}
			reg.Layers = c.builder.Placeholders(src, reason)
			move(domain.StateDone, nil)
		}
	}
	reg.State = state
	return reg, transitions
}

// waitForCapability allows one bounded wait for a capability that is still
// loading. A nil capability is absent and never waited for.
func (c *Coordinator) waitForCapability(ctx context.Context) bool {
	if c.capability == nil {
		return false
	}
	if c.capability.Available() {
		return true
	}
	c.log.Infow("live layer capability not available, waiting", "wait", CapabilityWait)
	select {
	case <-c.clock.After(CapabilityWait):
	case <-ctx.Done():
		return false
	}
	return c.capability.Available()
}

func (c *Coordinator) primary(ctx context.Context, src *domain.Source) ([]*domain.LayerConfig, string, error) {
	if !c.waitForCapability(ctx) {
		return nil, "", domain.ErrCapabilityMissing
	}
	candidates := c.probe.ResolveItems(ctx, c.service, src.ItemPortal, src.Items)
	candidates = append(candidates, src.CandidateURLs()...)
	res := c.probe.Probe(ctx, candidates)
	if !res.Found {
		return nil, "", res.Err()
	}
	return c.builder.Build(src, res.URL, res.Service), res.URL, nil
}

func (c *Coordinator) geoJSON(ctx context.Context, src *domain.Source) ([]*domain.LayerConfig, string, error) {
	serviceURL := src.FallbackServiceURL()
	if src.Fallback == nil || len(src.Fallback.Layers) == 0 || serviceURL == "" {
		return nil, "", fmt.Errorf("%w: no geojson fallback configured", domain.ErrEmptyResult)
	}
	var lastErr error
	layers := []*domain.LayerConfig{}
	for _, fl := range src.Fallback.Layers {
		layerURL := fmt.Sprintf("%s/%d", serviceURL, fl.ID)
		fc, err := c.service.QueryGeoJSON(ctx, layerURL, domain.AllFeatures)
		if err != nil {
			c.log.Warnw("loading geojson layer", "source", src.ID, "layer", fl.Name, zap.Error(err))
			lastErr = err
			continue
		}
		if len(fc.Features) == 0 {
			c.log.Infow("geojson layer has no features", "source", src.ID, "layer", fl.Name)
			lastErr = domain.ErrEmptyResult
			continue
		}
		c.log.Infow("geojson layer loaded", "source", src.ID, "layer", fl.Name, "features", len(fc.Features))
		layers = append(layers, c.builder.StaticLayer(src, fl, serviceURL, fc))
	}
	if len(layers) == 0 {
		if lastErr == nil {
			lastErr = domain.ErrEmptyResult
		}
		return nil, "", lastErr
	}
	return layers, serviceURL, nil
}
