package application

import (
	"context"
	"sync"

	"github.com/gisquick/countyview/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Materializer receives finished registries.
type Materializer interface {
	Materialize(ctx context.Context, reg domain.Registry) error
}

type SourceStatus struct {
	Source      string               `json:"source"`
	Title       string               `json:"title"`
	State       domain.FallbackState `json:"state"`
	ResolvedBy  domain.FallbackState `json:"resolved_by"`
	ServiceURL  string               `json:"service_url,omitempty"`
	Live        int                  `json:"live"`
	Static      int                  `json:"static"`
	Placeholder int                  `json:"placeholder"`
	Transitions []Transition         `json:"transitions"`
}

// Loader runs the fallback chain of every source once per session.
type Loader struct {
	log         *zap.SugaredLogger
	coordinator *Coordinator
	target      Materializer

	once   sync.Once
	mu     sync.RWMutex
	done   chan struct{}
	status []SourceStatus
}

func NewLoader(log *zap.SugaredLogger, coordinator *Coordinator, target Materializer) *Loader {
	return &Loader{
		log:         log,
		coordinator: coordinator,
		target:      target,
		done:        make(chan struct{}),
	}
}

// Load resolves all sources concurrently, each through its own sequential
// chain, then materializes the registries in source order. Only the first
// call does any work.
func (l *Loader) Load(ctx context.Context, sources []domain.Source) []domain.Registry {
	var registries []domain.Registry
	l.once.Do(func() {
		defer close(l.done)
		registries = make([]domain.Registry, len(sources))
		statuses := make([]SourceStatus, len(sources))
		g, gctx := errgroup.WithContext(ctx)
		for i := range sources {
			i := i
			g.Go(func() error {
				reg, transitions := l.coordinator.Run(gctx, &sources[i])
				registries[i] = reg
				statuses[i] = SourceStatus{
					Source:      reg.Source,
					Title:       reg.Title,
					State:       reg.State,
					ResolvedBy:  reg.ResolvedBy,
					ServiceURL:  reg.ServiceURL,
					Live:        reg.Count(domain.KindLive),
					Static:      reg.Count(domain.KindStaticGeoJSON),
					Placeholder: reg.Count(domain.KindPlaceholder),
					Transitions: transitions,
				}
				return nil
			})
		}
		g.Wait()

		for _, reg := range registries {
			if err := l.target.Materialize(ctx, reg); err != nil {
				l.log.Errorw("materializing registry", "source", reg.Source, zap.Error(err))
			}
		}
		l.mu.Lock()
		l.status = statuses
		l.mu.Unlock()
	})
	return registries
}

// Done is closed once loading has finished.
func (l *Loader) Done() <-chan struct{} {
	return l.done
}

func (l *Loader) Loading() bool {
	select {
	case <-l.done:
		return false
	default:
		return true
	}
}

func (l *Loader) Status() []SourceStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()
	res := make([]SourceStatus, len(l.status))
	copy(res, l.status)
	return res
}
