package domain

import "github.com/paulmach/orb"

// Viewer holds the host page settings.
type Viewer struct {
	Map         MapView      `json:"map" yaml:"map"`
	BaseMaps    []BaseMap    `json:"base_maps" yaml:"base_maps" validate:"dive"`
	Regions     RegionFilter `json:"regions" yaml:"regions"`
	UI          UIFlags      `json:"ui" yaml:"ui"`
	Interaction Interaction  `json:"interaction" yaml:"interaction"`
	// DuplicateMarkers are phrases that make two layers the same entry in the
	// layer control when both normalized names contain one.
	DuplicateMarkers NameList `json:"duplicate_markers" yaml:"duplicate_markers"`
}

type MapView struct {
	// Center is latitude, longitude.
	Center  [2]float64 `json:"center" yaml:"center"`
	Zoom    int        `json:"zoom" yaml:"zoom" validate:"gte=0"`
	MinZoom int        `json:"min_zoom" yaml:"min_zoom" validate:"gte=0"`
	MaxZoom int        `json:"max_zoom" yaml:"max_zoom" validate:"gtefield=MinZoom"`
}

func (m MapView) CenterPoint() orb.Point {
	return orb.Point{m.Center[1], m.Center[0]}
}

type BaseMap struct {
	Name        string `json:"name" yaml:"name" validate:"required"`
	Provider    string `json:"provider,omitempty" yaml:"provider"`
	URL         string `json:"url,omitempty" yaml:"url" validate:"required_without=Provider"`
	Attribution string `json:"attribution" yaml:"attribution"`
	Default     bool   `json:"default,omitempty" yaml:"default"`
}

type RegionFilter struct {
	Sentinel     string   `json:"sentinel" yaml:"sentinel" validate:"required"`
	Names        []string `json:"names" yaml:"names"`
	LayerKeyword string   `json:"layer_keyword" yaml:"layer_keyword" validate:"required"`
	NameFields   []string `json:"name_fields" yaml:"name_fields" validate:"min=1"`
	// QueryField is compared for equality by the server side attribute query.
	QueryField string `json:"query_field" yaml:"query_field" validate:"required"`
}

type UIFlags struct {
	ShowLoadingSpinner   bool `json:"show_loading_spinner" yaml:"show_loading_spinner"`
	ShowLayerControl     bool `json:"show_layer_control" yaml:"show_layer_control"`
	ShowLegend           bool `json:"show_legend" yaml:"show_legend"`
	ShowTownshipSelector bool `json:"show_township_selector" yaml:"show_township_selector"`
	ShowInfoPanel        bool `json:"show_info_panel" yaml:"show_info_panel"`
}

type Interaction struct {
	EnablePopups     bool  `json:"enable_popups" yaml:"enable_popups"`
	EnableSelection  bool  `json:"enable_selection" yaml:"enable_selection"`
	HighlightOnHover bool  `json:"highlight_on_hover" yaml:"highlight_on_hover"`
	SelectedStyle    Style `json:"selected_style" yaml:"selected_style"`
}
