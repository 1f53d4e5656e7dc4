package server

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

func (s *Server) handleGetLayers(c echo.Context) error {
	return c.JSON(http.StatusOK, s.overlays.Layers())
}

func (s *Server) handleGetLayer(c echo.Context) error {
	layer, err := s.overlays.Layer(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, layer)
}

func (s *Server) handleSetVisibility() func(echo.Context) error {
	type Form struct {
		Visible *bool `json:"visible" validate:"required"`
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
		id := c.Param("id")
		if err := s.overlays.Toggle(id, *form.Visible); err != nil {
			return httpError(err)
		}
		layer, err := s.overlays.Layer(id)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, layer)
	}
}

func (s *Server) handleGetPopup(c echo.Context) error {
	feature := 0
	if err := echo.QueryParamsBinder(c).Int("feature", &feature).BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	popup, err := s.overlays.Popup(c.Param("id"), feature)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, popup)
}

func (s *Server) handleGetControl(c echo.Context) error {
	return c.JSON(http.StatusOK, s.control.Entries())
}

func (s *Server) handleGetLegend(c echo.Context) error {
	return c.JSON(http.StatusOK, s.overlays.Legend())
}
