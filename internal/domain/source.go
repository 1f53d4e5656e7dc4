package domain

import (
	"fmt"
	"strings"
)

// ItemToken in a service name is replaced by each source item id.
const ItemToken = "{item}"

// Source describes one remote data provider and the strategies used to obtain
// layers from it.
type Source struct {
	ID       string `yaml:"id,omitempty" validate:"required"`
	Title    string `yaml:"title,omitempty" validate:"required"`
	IDPrefix string `yaml:"id_prefix,omitempty"`

	Candidates   []string        `yaml:"candidates,omitempty" validate:"dive,url"`
	Servers      []string        `yaml:"servers,omitempty" validate:"dive,url"`
	ServiceNames []string        `yaml:"service_names,omitempty"`
	ItemPortal   string          `yaml:"item_portal,omitempty" validate:"omitempty,url"`
	Items        []SourceItem    `yaml:"items,omitempty" validate:"dive"`
	Manual       []ManualService `yaml:"manual,omitempty" validate:"dive"`

	Layers      LayerOverrides    `yaml:"layers,omitempty"`
	Fallback    *GeoJSONFallback  `yaml:"fallback,omitempty"`
	Placeholder PlaceholderConfig `yaml:"placeholder,omitempty"`
}

type SourceItem struct {
	ID          string `yaml:"id,omitempty" validate:"required"`
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// ManualService is an administrator-provided service URL for an item.
type ManualService struct {
	ItemID      string `yaml:"item_id,omitempty"`
	Name        string `yaml:"name,omitempty"`
	ServiceURL  string `yaml:"service_url,omitempty" validate:"omitempty,url"`
	Enabled     bool   `yaml:"enabled,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Valid reports whether the service can be probed. Only enabled services
// pointing at a FeatureServer qualify.
func (m ManualService) Valid() bool {
	return m.Enabled && m.ServiceURL != "" && strings.Contains(m.ServiceURL, "FeatureServer")
}

type LayerOverrides struct {
	DisplayNames   map[string]string        `yaml:"display_names,omitempty"`
	DefaultVisible NameList                 `yaml:"default_visible,omitempty"`
	Styles         map[string]Style         `yaml:"styles,omitempty"`
	Popups         map[string]PopupTemplate `yaml:"popups,omitempty"`
}

type GeoJSONFallback struct {
	ServiceURL string          `yaml:"service_url,omitempty" validate:"omitempty,url"`
	IDPrefix   string          `yaml:"id_prefix,omitempty"`
	Layers     []FallbackLayer `yaml:"layers,omitempty" validate:"dive"`
}

type FallbackLayer struct {
	ID      int    `yaml:"id" validate:"gte=0"`
	Name    string `yaml:"name,omitempty" validate:"required"`
	Visible bool   `yaml:"visible,omitempty"`
	Style   Style  `yaml:"style,omitempty"`
}

type PlaceholderConfig struct {
	IDPrefix string        `yaml:"id_prefix,omitempty"`
	Name     string        `yaml:"name,omitempty"`
	Status   string        `yaml:"status,omitempty"`
	Style    Style         `yaml:"style,omitempty"`
	Popup    PopupTemplate `yaml:"popup,omitempty"`
	Contact  Contact       `yaml:"contact,omitempty"`
}

func (s *Source) LayerIDPrefix() string {
	if s.IDPrefix != "" {
		return s.IDPrefix
	}
	return s.ID
}

func (s *Source) FallbackIDPrefix() string {
	if s.Fallback != nil && s.Fallback.IDPrefix != "" {
		return s.Fallback.IDPrefix
	}
	return s.ID + "_geojson"
}

// FallbackServiceURL is the service the GeoJSON fallback queries: the
// configured one, else the first candidate.
func (s *Source) FallbackServiceURL() string {
	if s.Fallback != nil && s.Fallback.ServiceURL != "" {
		return s.Fallback.ServiceURL
	}
	if c := s.CandidateURLs(); len(c) > 0 {
		return c[0]
	}
	return ""
}

// CandidateURLs expands the service URLs to probe, in order: valid manual
// services, explicit candidates, then every server and service name pair.
func (s *Source) CandidateURLs() []string {
	seen := make(map[string]bool)
	res := []string{}
	add := func(u string) {
		u = strings.TrimRight(u, "/")
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		res = append(res, u)
	}
	for _, m := range s.Manual {
		if m.Valid() {
			add(m.ServiceURL)
		}
	}
	for _, c := range s.Candidates {
		add(c)
	}
	for _, server := range s.Servers {
		for _, name := range s.ServiceNames {
			for _, n := range s.expandItem(name) {
				add(fmt.Sprintf("%s/%s/FeatureServer", strings.TrimRight(server, "/"), n))
			}
		}
	}
	return res
}

// expandItem substitutes the {item} token of a service name with every
// configured item id.
func (s *Source) expandItem(name string) []string {
	if !strings.Contains(name, ItemToken) {
		return []string{name}
	}
	res := make([]string, 0, len(s.Items))
	for _, item := range s.Items {
		res = append(res, strings.ReplaceAll(name, ItemToken, item.ID))
	}
	return res
}
