package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseGeometryType(t *testing.T) {
	assert.Equal(t, GeometryPoint, ParseGeometryType("esriGeometryPoint"))
	assert.Equal(t, GeometryPoint, ParseGeometryType("esriGeometryMultipoint"))
	assert.Equal(t, GeometryPolyline, ParseGeometryType("esriGeometryPolyline"))
	assert.Equal(t, GeometryPolygon, ParseGeometryType("esriGeometryPolygon"))
	assert.Equal(t, GeometryUnknown, ParseGeometryType("esriGeometryMultiPatch"))
	assert.Equal(t, GeometryUnknown, ParseGeometryType(""))
}

func TestStyle(t *testing.T) {
	base := Style{Color: "#2E86AB", Weight: 2, FillColor: "#A23B72", FillOpacity: 0.1, Opacity: 0.8}
	selected := base.Merge(Style{Color: "#00FFFB", Weight: 3, FillOpacity: 0.5})
	assert.Equal(t, Style{Color: "#00FFFB", Weight: 3, FillColor: "#A23B72", FillOpacity: 0.5, Opacity: 0.8}, selected)

	hover := base.Hover()
	assert.Equal(t, 3.0, hover.Weight)
	assert.Equal(t, 1.0, hover.Opacity)
	assert.InDelta(t, 0.2, hover.FillOpacity, 1e-9)

	unset := Style{}.Hover()
	assert.Equal(t, 2.0, unset.Weight)
	assert.InDelta(t, 0.3, unset.FillOpacity, 1e-9)

	assert.Equal(t, "#2E86AB", base.Stroke())
	assert.Equal(t, "#85929E", Style{FillColor: "#fff"}.Stroke())
}

func TestErrors(t *testing.T) {
	auth := &ServiceError{Code: 403, Message: "You do not have permissions to access this resource"}
	assert.True(t, errors.Is(auth, ErrServiceError))
	assert.True(t, auth.AuthRequired())
	assert.False(t, auth.InvalidURL())
	assert.True(t, (&ServiceError{Code: 400, Message: "Invalid URL"}).InvalidURL())

	assert.Equal(t, "service error", Reason(fmt.Errorf("probing: %w", auth)))
	assert.Equal(t, "network error", Reason(fmt.Errorf("%w: timeout", ErrNetworkFailure)))
	assert.Equal(t, "empty result", Reason(ErrEmptyResult))
	assert.Equal(t, "capability missing", Reason(ErrCapabilityMissing))
	assert.Equal(t, "", Reason(nil))
	assert.Equal(t, "unknown", Reason(errors.New("boom")))
}

func TestEqualsClause(t *testing.T) {
	assert.Equal(t, "NAME = 'Baldwin'", EqualsClause("NAME", "Baldwin"))
	assert.Equal(t, "NAME = 'O''Brien'", EqualsClause("NAME", "O'Brien"))
}
