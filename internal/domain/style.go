package domain

// Style holds the visual attributes of an overlay. Zero values mean "unset".
type Style struct {
	Color       string  `json:"color,omitempty" yaml:"color,omitempty"`
	Weight      float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
	Opacity     float64 `json:"opacity,omitempty" yaml:"opacity,omitempty"`
	FillColor   string  `json:"fillColor,omitempty" yaml:"fillColor,omitempty"`
	FillOpacity float64 `json:"fillOpacity,omitempty" yaml:"fillOpacity,omitempty"`
	Radius      float64 `json:"radius,omitempty" yaml:"radius,omitempty"`
}

func (s Style) IsZero() bool {
	return s == Style{}
}

// Merge returns s with every attribute set in o applied on top.
func (s Style) Merge(o Style) Style {
	if o.Color != "" {
		s.Color = o.Color
	}
	if o.Weight != 0 {
		s.Weight = o.Weight
	}
	if o.Opacity != 0 {
		s.Opacity = o.Opacity
	}
	if o.FillColor != "" {
		s.FillColor = o.FillColor
	}
	if o.FillOpacity != 0 {
		s.FillOpacity = o.FillOpacity
	}
	if o.Radius != 0 {
		s.Radius = o.Radius
	}
	return s
}

// Hover is the emphasis applied while the pointer is over a feature.
func (s Style) Hover() Style {
	weight := s.Weight
	if weight == 0 {
		weight = 1
	}
	fillOpacity := s.FillOpacity
	if fillOpacity == 0 {
		fillOpacity = 0.2
	}
	return s.Merge(Style{
		Weight:      weight + 1,
		Opacity:     1,
		FillOpacity: fillOpacity + 0.1,
	})
}

// Stroke returns the legend color of the style.
func (s Style) Stroke() string {
	if s.Color != "" {
		return s.Color
	}
	return "#85929E"
}
