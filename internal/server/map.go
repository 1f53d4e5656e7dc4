package server

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func (s *Server) handleGetView(c echo.Context) error {
	return c.JSON(http.StatusOK, s.view.State())
}

func (s *Server) handleGetOverlayGeoJSON(c echo.Context) error {
	fc, err := s.view.FeatureCollection(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/geo+json", data)
}

type FeatureForm struct {
	Layer   string `json:"layer" validate:"required"`
	Feature *int   `json:"feature" validate:"required,gte=0"`
}

func (s *Server) handleHover() func(echo.Context) error {
	type Form struct {
		FeatureForm
		On bool `json:"on"`
	}
	var validate = validator.New()
	return func(c echo.Context) error {
		form := new(Form)
		if err := c.Bind(form); err != nil {
			return err
		}
		if err := validate.Struct(form); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if err := s.overlays.Hover(form.Layer, *form.Feature, form.On); err != nil {
			return httpError(err)
		}
		return c.NoContent(http.StatusOK)
	}
}

func (s *Server) handleSelect() func(echo.Context) error {
	var validate = validator.New()
	return func(c echo.Context) error {
		form := new(FeatureForm)
		if err := c.Bind(form); err != nil {
			return err
		}
		if err := validate.Struct(form); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if err := s.overlays.Click(form.Layer, *form.Feature); err != nil {
			return httpError(err)
		}
		sel, _ := s.overlays.Selection()
		return c.JSON(http.StatusOK, sel)
	}
}

type SelectedPayload struct {
	Layer      string      `json:"layer"`
	Feature    int         `json:"feature"`
	Attributes interface{} `json:"attributes,omitempty"`
}

func (s *Server) handleGetSelected(c echo.Context) error {
	sel, ok := s.overlays.Selection()
	if !ok {
		return c.NoContent(http.StatusNoContent)
	}
	data := SelectedPayload{Layer: sel.LayerID, Feature: sel.Feature}
	if info, ok := s.host.Selected(); ok {
		data.Attributes = info.Attributes
	}
	return c.JSON(http.StatusOK, data)
}

func (s *Server) handleMapClick(c echo.Context) error {
	s.overlays.ClickMap()
	return c.NoContent(http.StatusOK)
}

func (s *Server) handleSelectRegion() func(echo.Context) error {
	type Form struct {
		Name string `json:"name" validate:"required"`
	}
	var validate = validator.New()
	return func(c echo.Context) error {
		form := new(Form)
		if err := c.Bind(form); err != nil {
			return err
		}
		if err := validate.Struct(form); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		res, err := s.overlays.SelectRegion(c.Request().Context(), form.Name)
		if err != nil {
			s.log.Infow("region selection", "region", form.Name, zap.Error(err))
			return httpError(err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func (s *Server) handleResetRegion(c echo.Context) error {
	s.overlays.ResetRegion()
	return c.NoContent(http.StatusOK)
}

func (s *Server) handleEventsWS(c echo.Context) error {
	id := c.QueryParam("client")
	if id == "" {
		u, err := uuid.NewV4()
		if err != nil {
			return err
		}
		id = u.String()
	}
	initial := map[string]interface{}{
		"view":    s.view.State(),
		"legend":  s.host.LastLegend(),
		"control": s.control.Entries(),
	}
	if err := s.events.Handler(id, initial, c.Response(), c.Request()); err != nil {
		s.log.Errorw("websocket handler", "client", id, zap.Error(err))
	}
	return nil
}
