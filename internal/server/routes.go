package server

import (
	"errors"
	"net/http"

	"github.com/gisquick/countyview/internal/domain"
	"github.com/labstack/echo/v4"
)

func (s *Server) AddRoutes(e *echo.Echo) {
	Loaded := LoadedMiddleware(s.session)

	e.GET("/api/app", s.handleAppInit)
	e.GET("/api/viewer", s.handleGetViewer)
	e.GET("/api/sources", s.handleGetSources)

	e.GET("/api/layers", s.handleGetLayers)
	e.GET("/api/layers/:id", s.handleGetLayer)
	e.POST("/api/layers/:id/visibility", s.handleSetVisibility(), Loaded)
	e.GET("/api/layers/:id/popup", s.handleGetPopup)

	e.GET("/api/control", s.handleGetControl)
	e.GET("/api/legend", s.handleGetLegend)
	e.GET("/api/view", s.handleGetView)
	e.GET("/api/overlays/:id/geojson", s.handleGetOverlayGeoJSON)

	e.POST("/api/features/hover", s.handleHover(), Loaded)
	e.POST("/api/features/select", s.handleSelect(), Loaded)
	e.GET("/api/features/selected", s.handleGetSelected)
	e.POST("/api/map/click", s.handleMapClick, Loaded)

	e.POST("/api/region", s.handleSelectRegion(), Loaded)
	e.DELETE("/api/region", s.handleResetRegion, Loaded)

	e.GET("/ws/events", s.handleEventsWS)
}

// httpError maps domain errors onto HTTP errors.
func httpError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrLayerNotFound), errors.Is(err, domain.ErrFeatureNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error()).SetInternal(err)
	case errors.Is(err, domain.ErrEmptyResult):
		return echo.NewHTTPError(http.StatusNotFound, err.Error()).SetInternal(err)
	case errors.Is(err, domain.ErrPlaceholderLayer):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	case errors.Is(err, domain.ErrCapabilityMissing):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error()).SetInternal(err)
	}
	return err
}
