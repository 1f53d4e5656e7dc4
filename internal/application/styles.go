package application

import (
	"fmt"
	"strings"

	"github.com/gisquick/countyview/internal/domain"
)

// GenericMarker prefixes display names derived from raw layer names.
const GenericMarker = "📍 "

var geometryStyles = map[domain.GeometryType]domain.Style{
	domain.GeometryPoint: {
		Radius:      6,
		FillColor:   "#ff7800",
		Color:       "#000",
		Weight:      1,
		Opacity:     1,
		FillOpacity: 0.8,
	},
	domain.GeometryPolyline: {
		Color:   "#3388ff",
		Weight:  3,
		Opacity: 0.8,
	},
	domain.GeometryPolygon: {
		FillColor:   "#fe57a1",
		Weight:      2,
		Opacity:     1,
		Color:       "white",
		FillOpacity: 0.3,
	},
}

// DefaultStyle returns the palette entry of a geometry type. Unrecognized
// types get the polyline style.
func DefaultStyle(geometry domain.GeometryType) domain.Style {
	if s, ok := geometryStyles[geometry]; ok {
		return s
	}
	return geometryStyles[domain.GeometryPolyline]
}

func StyleFor(name string, geometry domain.GeometryType, overrides domain.LayerOverrides) domain.Style {
	if s, ok := overrides.Styles[name]; ok && !s.IsZero() {
		return s
	}
	return DefaultStyle(geometry)
}

func PopupFor(name string, overrides domain.LayerOverrides) domain.PopupTemplate {
	if t, ok := overrides.Popups[name]; ok && !t.IsZero() {
		return t
	}
	return ObjectIDPopup(name)
}

// ObjectIDPopup is the generic template of layers without a dedicated one.
func ObjectIDPopup(name string) domain.PopupTemplate {
	return domain.PopupTemplate{
		Title: fmt.Sprintf("%s: {OBJECTID}", name),
		Content: fmt.Sprintf(
			"<div class=\"popup-content\"><p><strong>Layer:</strong> %s</p><p><strong>Object ID:</strong> {OBJECTID}</p></div>",
			name,
		),
	}
}

func DisplayName(name string, overrides domain.LayerOverrides) string {
	if n, ok := overrides.DisplayNames[name]; ok && n != "" {
		return n
	}
	return GenericMarker + strings.ReplaceAll(name, "_", " ")
}
