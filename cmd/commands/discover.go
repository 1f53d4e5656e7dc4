package commands

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/gisquick/countyview/internal/domain"
	"github.com/gisquick/countyview/internal/featureservice"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var layerIndexPattern = regexp.MustCompile(`/(\d+)/?$`)

// Discover reads the operational layers of a web map and prints a sources
// definition for the services they come from.
func Discover() error {
	cfg := struct {
		Portal  string        `conf:"default:https://www.arcgis.com"`
		WebMap  string        `conf:"default:beb65786ab294905a231f5ae19f03069"`
		ID      string        `conf:"default:discovered"`
		Timeout time.Duration `conf:"default:15s"`
	}{}
	ok, err := parseConfig(&cfg)
	if !ok {
		return err
	}
	log, err := createLogger(zap.WarnLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	client := featureservice.NewClient(log, cfg.Timeout)
	wm, err := client.WebMap(context.Background(), cfg.Portal, cfg.WebMap)
	if err != nil {
		return fmt.Errorf("fetching web map: %w", err)
	}
	sources := SourcesFromWebMap(cfg.ID, wm)
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(sources)
}

// SourcesFromWebMap groups the operational layers by their feature service
// and returns one source per service.
func SourcesFromWebMap(id string, wm featureservice.WebMap) []domain.Source {
	var sources []domain.Source
	index := make(map[string]int)
	for _, l := range wm.OperationalLayers {
		if l.URL == "" {
			continue
		}
		serviceURL := layerIndexPattern.ReplaceAllString(l.URL, "")
		i, ok := index[serviceURL]
		if !ok {
			i = len(sources)
			index[serviceURL] = i
			src := domain.Source{
				ID:         fmt.Sprintf("%s_%d", id, i+1),
				Title:      l.Title,
				Candidates: []string{serviceURL},
			}
			sources = append(sources, src)
		}
		src := &sources[i]
		if l.Title != "" && l.Visible() {
			src.Layers.DefaultVisible = append(src.Layers.DefaultVisible, l.Title)
		}
	}
	return sources
}
