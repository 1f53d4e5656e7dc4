package application

import (
	"fmt"
	"strings"

	"github.com/gisquick/countyview/internal/domain"
	"github.com/paulmach/orb/geojson"
)

// RegistryBuilder converts service descriptors and fallback results into
// normalized layer configurations.
type RegistryBuilder struct {
	ids *domain.IDAllocator
}

func NewRegistryBuilder(ids *domain.IDAllocator) *RegistryBuilder {
	return &RegistryBuilder{ids: ids}
}

// Build produces one live layer per layer declared by the service.
func (b *RegistryBuilder) Build(src *domain.Source, serviceURL string, svc domain.ServiceDescriptor) []*domain.LayerConfig {
	serviceURL = strings.TrimRight(serviceURL, "/")
	layers := make([]*domain.LayerConfig, 0, len(svc.Layers))
	for _, d := range svc.Layers {
		layers = append(layers, &domain.LayerConfig{
			ID:               b.ids.Allocate(fmt.Sprintf("%s_%d", src.LayerIDPrefix(), d.ID)),
			Name:             d.Name,
			DisplayName:      DisplayName(d.Name, src.Layers),
			Source:           src.ID,
			SourceURL:        fmt.Sprintf("%s/%d", serviceURL, d.ID),
			Kind:             domain.KindLive,
			GeometryType:     d.GeometryType,
			Style:            StyleFor(d.Name, d.GeometryType, src.Layers),
			Popup:            PopupFor(d.Name, src.Layers),
			VisibleByDefault: src.Layers.DefaultVisible.Has(d.Name),
		})
	}
	return layers
}

// StaticLayer wraps a fetched feature collection of a fallback layer.
func (b *RegistryBuilder) StaticLayer(src *domain.Source, fl domain.FallbackLayer, serviceURL string, fc *geojson.FeatureCollection) *domain.LayerConfig {
	geometry := geometryOf(fc)
	style := fl.Style
	if style.IsZero() {
		style = StyleFor(fl.Name, geometry, src.Layers)
	}
	return &domain.LayerConfig{
		ID:           b.ids.Allocate(fmt.Sprintf("%s_%d", src.FallbackIDPrefix(), fl.ID)),
		Name:         fl.Name,
		DisplayName:  fmt.Sprintf("📄 %s (GeoJSON)", fl.Name),
		Source:       src.ID,
		SourceURL:    fmt.Sprintf("%s/%d", strings.TrimRight(serviceURL, "/"), fl.ID),
		Kind:         domain.KindStaticGeoJSON,
		GeometryType: geometry,
		Style:        style,
		Popup: domain.PopupTemplate{
			Title:          fl.Name,
			Content:        fmt.Sprintf("<h4>%s</h4>", fl.Name),
			ListAttributes: true,
		},
		VisibleByDefault: fl.Visible,
		Features:         fc,
	}
}

// Placeholders builds one placeholder per configured item, or a single one
// for a source without items.
func (b *RegistryBuilder) Placeholders(src *domain.Source, reason string) []*domain.LayerConfig {
	cfg := src.Placeholder
	status := cfg.Status
	if status == "" {
		status = "Unable to connect"
	}
	style := cfg.Style
	if style.IsZero() {
		style = domain.Style{Color: "#dc3545", Weight: 2, Opacity: 0.8, FillOpacity: 0.3}
	}
	popup := cfg.Popup
	if popup.IsZero() {
		popup = domain.PopupTemplate{
			Title: src.Title,
			Content: "<p><strong>Status:</strong> {STATUS}</p>" +
				"<p><strong>Contact:</strong> {EMAIL} ({DEPARTMENT})</p>",
		}
	}
	build := func(id, name, itemID string) *domain.LayerConfig {
		attrs := map[string]interface{}{
			"ITEM_ID":     itemID,
			"STATUS":      status,
			"REASON":      reason,
			"SERVICE_URL": src.FallbackServiceURL(),
			"EMAIL":       cfg.Contact.Email,
			"DEPARTMENT":  cfg.Contact.Department,
		}
		rendered := popup.Render(attrs)
		return &domain.LayerConfig{
			ID:           b.ids.Allocate(id),
			Name:         name,
			DisplayName:  name,
			Source:       src.ID,
			Kind:         domain.KindPlaceholder,
			GeometryType: domain.GeometryUnknown,
			Style:        style,
			Popup:        domain.PopupTemplate{Title: rendered.Title, Content: rendered.Content},
			Placeholder: &domain.PlaceholderInfo{
				ItemID:  itemID,
				Status:  status,
				Contact: cfg.Contact,
			},
		}
	}

	if len(src.Items) == 0 {
		name := cfg.Name
		if name == "" {
			name = fmt.Sprintf("⚠️ %s (Connection Failed)", src.Title)
		}
		return []*domain.LayerConfig{build(src.ID+"_fallback", name, "")}
	}
	prefix := cfg.IDPrefix
	if prefix == "" {
		prefix = src.ID + "_placeholder"
	}
	layers := make([]*domain.LayerConfig, 0, len(src.Items))
	for i, item := range src.Items {
		name := item.Name
		if name == "" {
			name = fmt.Sprintf("%s %d (%s)", src.Title, i+1, status)
		}
		layers = append(layers, build(fmt.Sprintf("%s_%s", prefix, item.ID), name, item.ID))
	}
	return layers
}

func geometryOf(fc *geojson.FeatureCollection) domain.GeometryType {
	if fc == nil {
		return domain.GeometryUnknown
	}
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		switch f.Geometry.GeoJSONType() {
		case "Point", "MultiPoint":
			return domain.GeometryPoint
		case "LineString", "MultiLineString":
			return domain.GeometryPolyline
		case "Polygon", "MultiPolygon":
			return domain.GeometryPolygon
		}
	}
	return domain.GeometryUnknown
}
