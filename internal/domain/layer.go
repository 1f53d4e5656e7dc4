package domain

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb/geojson"
)

type GeometryType string

const (
	GeometryPoint    GeometryType = "Point"
	GeometryPolyline GeometryType = "Polyline"
	GeometryPolygon  GeometryType = "Polygon"
	GeometryUnknown  GeometryType = "Unknown"
)

// ParseGeometryType maps an ArcGIS geometry type name (esriGeometryPolygon, ...).
func ParseGeometryType(name string) GeometryType {
	switch strings.TrimPrefix(name, "esriGeometry") {
	case "Point", "Multipoint":
		return GeometryPoint
	case "Polyline", "Line":
		return GeometryPolyline
	case "Polygon", "Envelope":
		return GeometryPolygon
	}
	return GeometryUnknown
}

// LayerDescriptor describes one layer of a feature service as declared by its metadata.
type LayerDescriptor struct {
	ID           int          `json:"id"`
	Name         string       `json:"name"`
	GeometryType GeometryType `json:"geometryType"`
}

type ServiceDescriptor struct {
	Description string            `json:"serviceDescription,omitempty"`
	Layers      []LayerDescriptor `json:"layers"`
}

type LayerKind int

const (
	KindLive LayerKind = iota
	KindStaticGeoJSON
	KindPlaceholder
)

func (k LayerKind) String() string {
	switch k {
	case KindLive:
		return "live"
	case KindStaticGeoJSON:
		return "geojson"
	case KindPlaceholder:
		return "placeholder"
	}
	return fmt.Sprintf("LayerKind(%d)", int(k))
}

func (k LayerKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

type Contact struct {
	Email      string `json:"email" yaml:"email" validate:"omitempty,email"`
	Department string `json:"department" yaml:"department"`
}

// PlaceholderInfo is the diagnostic payload of a placeholder layer.
type PlaceholderInfo struct {
	ItemID  string  `json:"item_id,omitempty"`
	Status  string  `json:"status"`
	Contact Contact `json:"contact"`
}

// LayerConfig is a normalized layer owned by the registry that created it.
// Kind selects the payload: Live layers are queried through SourceURL,
// StaticGeoJSON layers carry Features, and Placeholder layers carry
// Placeholder and must never be queried for geometry.
type LayerConfig struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	DisplayName      string        `json:"display_name"`
	Source           string        `json:"source"`
	SourceURL        string        `json:"source_url,omitempty"`
	Kind             LayerKind     `json:"kind"`
	GeometryType     GeometryType  `json:"geometry_type"`
	Style            Style         `json:"style"`
	Popup            PopupTemplate `json:"popup"`
	VisibleByDefault bool          `json:"visible_by_default"`

	Features    *geojson.FeatureCollection `json:"-"`
	Placeholder *PlaceholderInfo           `json:"placeholder,omitempty"`
}

func (l *LayerConfig) IsPlaceholder() bool {
	return l.Kind == KindPlaceholder
}

// Queryable reports whether attribute queries can be sent to the layer's service.
func (l *LayerConfig) Queryable() bool {
	return l.Kind == KindLive && l.SourceURL != ""
}

// Registry is the set of layers produced for one source.
type Registry struct {
	Source string        `json:"source"`
	Title  string        `json:"title"`
	State  FallbackState `json:"state"`
	// ResolvedBy is the strategy whose layers the registry holds.
	ResolvedBy FallbackState  `json:"resolved_by"`
	ServiceURL string         `json:"service_url,omitempty"`
	Layers     []*LayerConfig `json:"layers"`
}

func (r *Registry) Count(kind LayerKind) int {
	n := 0
	for _, l := range r.Layers {
		if l.Kind == kind {
			n++
		}
	}
	return n
}

func (r *Registry) Layer(id string) *LayerConfig {
	for _, l := range r.Layers {
		if l.ID == id {
			return l
		}
	}
	return nil
}

type FallbackState int

const (
	StateProbingPrimary FallbackState = iota
	StateProbingGeoJSONFallback
	StateUsingPlaceholder
	StateDone
)

func (s FallbackState) String() string {
	switch s {
	case StateProbingPrimary:
		return "ProbingPrimary"
	case StateProbingGeoJSONFallback:
		return "ProbingGeoJSONFallback"
	case StateUsingPlaceholder:
		return "UsingPlaceholder"
	case StateDone:
		return "Done"
	}
	return fmt.Sprintf("FallbackState(%d)", int(s))
}

func (s FallbackState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
