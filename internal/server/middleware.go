package server

import (
	"net/http"

	"github.com/gisquick/countyview/internal/application"
	"github.com/labstack/echo/v4"
)

// LoadedMiddleware rejects requests that change the map while the session
// sources are still loading.
func LoadedMiddleware(session *application.Session) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if session.Loading() {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "Layers are still loading")
			}
			return next(c)
		}
	}
}
