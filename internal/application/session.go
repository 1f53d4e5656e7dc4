package application

import (
	"context"
	"sync"
	"time"

	"github.com/gisquick/countyview/internal/domain"
	"github.com/gisquick/countyview/internal/overlay"
	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// OverlayManager is the part of the overlay state a session drives.
type OverlayManager interface {
	Materializer
	AddBaseMaps(baseMaps []domain.BaseMap) error
	RegisterWithControl(control overlay.LayerControl) int
}

// Session is one viewer page: its sources are loaded once and the resulting
// layers are added to the overlay manager and the layer control.
type Session struct {
	ID      uuid.UUID
	Started time.Time

	log      *zap.SugaredLogger
	sources  []domain.Source
	viewer   domain.Viewer
	loader   *Loader
	overlays OverlayManager
	control  overlay.LayerControl

	once  sync.Once
	ready chan struct{}
}

func NewSession(log *zap.SugaredLogger, sources []domain.Source, viewer domain.Viewer, coordinator *Coordinator, overlays OverlayManager, control overlay.LayerControl) (*Session, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:       id,
		Started:  time.Now(),
		log:      log.With("session", id.String()),
		sources:  sources,
		viewer:   viewer,
		loader:   NewLoader(log, coordinator, overlays),
		overlays: overlays,
		control:  control,
		ready:    make(chan struct{}),
	}, nil
}

// Start adds the base maps, loads all sources and registers the resulting
// layers with the layer control. It returns when loading has finished; later
// calls do nothing.
func (s *Session) Start(ctx context.Context) {
	s.once.Do(func() {
		defer close(s.ready)
		s.start(ctx)
	})
}

func (s *Session) start(ctx context.Context) {
	s.log.Infow("session started", "sources", len(s.sources))
	if err := s.overlays.AddBaseMaps(s.viewer.BaseMaps); err != nil {
		s.log.Errorw("adding base maps", zap.Error(err))
	}
	s.loader.Load(ctx, s.sources)
	if s.control != nil && s.viewer.UI.ShowLayerControl {
		n := s.overlays.RegisterWithControl(s.control)
		s.log.Infow("layer control ready", "entries", n)
	}
	for _, st := range s.loader.Status() {
		s.log.Infow("source loaded",
			"source", st.Source,
			"resolved_by", st.ResolvedBy,
			"live", st.Live,
			"static", st.Static,
			"placeholder", st.Placeholder,
		)
	}
}

// Loading reports whether the session is still being set up.
func (s *Session) Loading() bool {
	select {
	case <-s.ready:
		return false
	default:
		return true
	}
}

// Done is closed once Start has finished, including the layer control
// registration.
func (s *Session) Done() <-chan struct{} {
	return s.ready
}

func (s *Session) Status() []SourceStatus {
	return s.loader.Status()
}

func (s *Session) Sources() []domain.Source {
	return s.sources
}
