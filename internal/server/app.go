package server

import (
	"net/http"
	"time"

	"github.com/gisquick/countyview/internal/application"
	"github.com/gisquick/countyview/internal/domain"
	"github.com/labstack/echo/v4"
)

type SessionInfo struct {
	ID      string    `json:"id"`
	Started time.Time `json:"started"`
	Loading bool      `json:"loading"`
}

type AppPayload struct {
	Session SessionInfo                `json:"session"`
	Viewer  domain.Viewer              `json:"viewer"`
	Sources []application.SourceStatus `json:"sources"`
}

func (s *Server) handleAppInit(c echo.Context) error {
	data := AppPayload{
		Session: SessionInfo{
			ID:      s.session.ID.String(),
			Started: s.session.Started,
			Loading: s.session.Loading(),
		},
		Viewer:  s.viewer.Get(),
		Sources: s.session.Status(),
	}
	return c.JSON(http.StatusOK, data)
}

func (s *Server) handleGetViewer(c echo.Context) error {
	return c.JSON(http.StatusOK, s.viewer.Get())
}

type SourceInfo struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Candidates []string `json:"candidates"`
	Items      []string `json:"items,omitempty"`
	Fallback   bool     `json:"geojson_fallback"`
}

func (s *Server) handleGetSources(c echo.Context) error {
	sources := s.session.Sources()
	data := make([]SourceInfo, len(sources))
	for i := range sources {
		src := &sources[i]
		info := SourceInfo{
			ID:         src.ID,
			Title:      src.Title,
			Candidates: src.CandidateURLs(),
			Fallback:   src.Fallback != nil && len(src.Fallback.Layers) > 0,
		}
		for _, item := range src.Items {
			info.Items = append(info.Items, item.ID)
		}
		data[i] = info
	}
	return c.JSON(http.StatusOK, data)
}
