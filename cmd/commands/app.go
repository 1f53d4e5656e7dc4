package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/gisquick/countyview/internal/application"
	"github.com/gisquick/countyview/internal/domain"
	"github.com/gisquick/countyview/internal/featureservice"
	"github.com/gisquick/countyview/internal/infrastructure/config"
	"github.com/gisquick/countyview/internal/infrastructure/ws"
	"github.com/gisquick/countyview/internal/mapview"
	"github.com/gisquick/countyview/internal/overlay"
	"github.com/gisquick/countyview/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type AppConfig struct {
	Countyview struct {
		Debug        bool `conf:"default:false"`
		SourcesFile  string
		ViewerFile   string
		LiveLayers   bool          `conf:"default:true"`
		ProbeTimeout time.Duration `conf:"default:8s"`
		SettingsTTL  time.Duration `conf:"default:30s"`
	}
	Web struct {
		APIHost         string        `conf:"default:0.0.0.0:3000"`
		ShutdownTimeout time.Duration `conf:"default:10s"`
		Metrics         bool          `conf:"default:true"`
	}
}

// ServerHandle is a configured server with its session already loading.
type ServerHandle struct {
	Server  *server.Server
	Session *application.Session
	Close   func()
}

// CreateServer wires the application and starts loading the session sources
// in the background.
func CreateServer(log *zap.SugaredLogger, cfg AppConfig) (ServerHandle, error) {
	sources, err := config.LoadSources(cfg.Countyview.SourcesFile)
	if err != nil {
		return ServerHandle{}, fmt.Errorf("loading sources: %w", err)
	}
	settings := config.NewViewerSettings(log, cfg.Countyview.ViewerFile, cfg.Countyview.SettingsTTL)
	viewer := settings.Get()

	var reg prometheus.Registerer
	if cfg.Web.Metrics {
		reg = prometheus.DefaultRegisterer
	}
	metrics, err := application.NewMetrics(reg)
	if err != nil {
		settings.Close()
		return ServerHandle{}, fmt.Errorf("registering metrics: %w", err)
	}

	client := featureservice.NewClient(log, cfg.Countyview.ProbeTimeout)
	bus := mapview.NewEventBus()
	view := mapview.NewView(log, client, bus, cfg.Countyview.LiveLayers, viewer.Map)
	host := mapview.NewHost(log, bus)
	control := mapview.NewControl(bus)
	manager := overlay.NewManager(log, view, client, host, settings)

	probe := application.NewServiceProbe(log, client, metrics)
	builder := application.NewRegistryBuilder(domain.NewIDAllocator())
	coordinator := application.NewCoordinator(log, probe, client, builder, view, metrics)
	session, err := application.NewSession(log, sources, viewer, coordinator, manager, control)
	if err != nil {
		settings.Close()
		return ServerHandle{}, fmt.Errorf("creating session: %w", err)
	}

	s := server.NewServer(log, server.Config{Debug: cfg.Countyview.Debug, Metrics: cfg.Web.Metrics}, server.Components{
		Session:  session,
		Overlays: manager,
		View:     view,
		Control:  control,
		Host:     host,
		Viewer:   settings,
		Events:   ws.NewEventsWS(log, bus),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go session.Start(ctx)

	return ServerHandle{
		Server:  s,
		Session: session,
		Close: func() {
			cancel()
			settings.Close()
		},
	}, nil
}
