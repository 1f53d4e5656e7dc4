package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gisquick/countyview/internal/application"
	"github.com/gisquick/countyview/internal/domain"
	"github.com/gisquick/countyview/internal/infrastructure/ws"
	"github.com/gisquick/countyview/internal/mapview"
	"github.com/gisquick/countyview/internal/overlay"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Config struct {
	Debug   bool
	Metrics bool
}

// ViewerProvider returns the current viewer settings.
type ViewerProvider interface {
	Get() domain.Viewer
}

type Server struct {
	Config   Config
	echo     *echo.Echo
	log      *zap.SugaredLogger
	session  *application.Session
	overlays *overlay.Manager
	view     *mapview.View
	control  *mapview.Control
	host     *mapview.Host
	viewer   ViewerProvider
	events   *ws.EventsWS
}

type JSONSerializer struct{}

// Serialize converts an interface into a json and writes it to the response.
func (d JSONSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := jsoniter.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

// Deserialize reads a JSON from a request body and converts it into an interface.
func (d JSONSerializer) Deserialize(c echo.Context, i interface{}) error {
	err := jsoniter.NewDecoder(c.Request().Body).Decode(i)
	if ute, ok := err.(*json.UnmarshalTypeError); ok {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Unmarshal type error: expected=%v, got=%v, field=%v, offset=%v", ute.Type, ute.Value, ute.Field, ute.Offset)).SetInternal(err)
	} else if se, ok := err.(*json.SyntaxError); ok {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Syntax error: offset=%v, error=%v", se.Offset, se.Error())).SetInternal(err)
	} else if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return nil
}

// Components groups the session state served over HTTP.
type Components struct {
	Session  *application.Session
	Overlays *overlay.Manager
	View     *mapview.View
	Control  *mapview.Control
	Host     *mapview.Host
	Viewer   ViewerProvider
	Events   *ws.EventsWS
}

func NewServer(log *zap.SugaredLogger, cfg Config, c Components) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = !cfg.Debug
	e.JSONSerializer = JSONSerializer{}

	if cfg.Metrics {
		p := prometheus.NewPrometheus("api", nil)
		p.Use(e)
	}

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		e.DefaultHTTPErrorHandler(err, c)
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}
		if code == http.StatusInternalServerError {
			log.Error(err)
		}
	}

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	s := &Server{
		Config:   cfg,
		log:      log,
		echo:     e,
		session:  c.Session,
		overlays: c.Overlays,
		view:     c.View,
		control:  c.Control,
		host:     c.Host,
		viewer:   c.Viewer,
		events:   c.Events,
	}
	s.AddRoutes(e)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
