// Package config loads source definitions and viewer settings. Built-in
// defaults are used when no file is configured.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gisquick/countyview/internal/domain"
	"github.com/gisquick/countyview/internal/infrastructure/cache"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	//go:embed defaults/sources.yml
	defaultSources []byte
	//go:embed defaults/viewer.yml
	defaultViewer []byte
)

var validate = validator.New()

// ParseSources decodes and validates a YAML list of sources.
func ParseSources(content []byte) ([]domain.Source, error) {
	var sources []domain.Source
	if err := yaml.Unmarshal(content, &sources); err != nil {
		return nil, fmt.Errorf("parsing sources: %w", err)
	}
	if len(sources) == 0 {
		return nil, errors.New("no sources defined")
	}
	seen := make(map[string]bool)
	for i := range sources {
		if err := validate.Struct(&sources[i]); err != nil {
			return nil, fmt.Errorf("source %d: %w", i, err)
		}
		if seen[sources[i].ID] {
			return nil, fmt.Errorf("duplicate source id: %s", sources[i].ID)
		}
		seen[sources[i].ID] = true
	}
	return sources, nil
}

// LoadSources reads sources from filename, or the built-in ones when
// filename is empty.
func LoadSources(filename string) ([]domain.Source, error) {
	if filename == "" {
		return ParseSources(defaultSources)
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading sources file: %w", err)
	}
	return ParseSources(content)
}

// DefaultViewer returns the built-in viewer settings.
func DefaultViewer() domain.Viewer {
	var v domain.Viewer
	if err := yaml.Unmarshal(defaultViewer, &v); err != nil {
		panic(fmt.Sprintf("invalid built-in viewer settings: %v", err))
	}
	return v
}

// ViewerSettings serves the viewer settings file, reparsed when it changes.
// Keys missing in the file keep their built-in values.
type ViewerSettings struct {
	log      *zap.SugaredLogger
	filename string
	defaults domain.Viewer
	reader   *cache.FileReader[domain.Viewer]
}

func NewViewerSettings(log *zap.SugaredLogger, filename string, ttl time.Duration) *ViewerSettings {
	defaults := DefaultViewer()
	return &ViewerSettings{
		log:      log,
		filename: filename,
		defaults: defaults,
		reader:   cache.NewFileReader(ttl, cache.YAMLDecoder(defaults)),
	}
}

// Get returns the current settings. An invalid or missing file falls back
// to the built-in settings.
func (s *ViewerSettings) Get() domain.Viewer {
	if s.filename == "" {
		return s.defaults
	}
	v, err := s.reader.Get(s.filename)
	if err == nil {
		err = validate.Struct(&v)
	}
	if err != nil {
		s.log.Errorw("loading viewer settings", "path", s.filename, zap.Error(err))
		return s.defaults
	}
	return v
}

func (s *ViewerSettings) Close() {
	s.reader.Close()
}
