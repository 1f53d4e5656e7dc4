package server_tests

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gisquick/countyview/cmd/commands"
	"github.com/gisquick/countyview/internal/server"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const townshipsGeoJSON = `{"type": "FeatureCollection", "features": [
	{"type": "Feature", "geometry": {"type": "Polygon", "coordinates": [[[-87.3, 45.7], [-87.1, 45.7], [-87.1, 45.9], [-87.3, 45.9], [-87.3, 45.7]]]}, "properties": {"OBJECTID": 1, "NAME": "Baldwin", "POPULATION": 1200}},
	{"type": "Feature", "geometry": {"type": "Polygon", "coordinates": [[[-86.7, 45.7], [-86.5, 45.7], [-86.5, 45.9], [-86.7, 45.9], [-86.7, 45.7]]]}, "properties": {"OBJECTID": 2, "NAME": "Garden", "POPULATION": null}}
]}`

const parcelsGeoJSON = `{"type": "FeatureCollection", "features": [
	{"type": "Feature", "geometry": {"type": "Point", "coordinates": [-87.2, 45.8]}, "properties": {"OBJECTID": 10, "OWNER": "Delta County"}}
]}`

// newArcGIS starts a feature service stub. The delta service is public, the
// uw service requires a token.
func newArcGIS(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/delta/FeatureServer", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"layers": [
			{"id": 7, "name": "Townships", "geometryType": "esriGeometryPolygon"},
			{"id": 0, "name": "Parcels", "geometryType": "esriGeometryPoint"}
		]}`)
	})
	mux.HandleFunc("/delta/FeatureServer/7/query", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("f") == "geojson" {
			fmt.Fprint(w, townshipsGeoJSON)
			return
		}
		if q.Get("where") == "NAME = 'Garden'" {
			fmt.Fprint(w, `{"features": [{"attributes": {"OBJECTID": 2, "NAME": "Garden"}}]}`)
			return
		}
		fmt.Fprint(w, `{"features": []}`)
	})
	mux.HandleFunc("/delta/FeatureServer/0/query", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, parcelsGeoJSON)
	})
	mux.HandleFunc("/uw/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": {"code": 499, "message": "Token Required"}}`)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func writeSources(t *testing.T, arcgis string) string {
	content := strings.ReplaceAll(`
- id: delta_county
  title: Delta County Service
  candidates: ["ARCGIS/delta/FeatureServer"]
  layers:
    display_names:
      Townships: "🏘️ Townships"
      Parcels: "🏠 Parcels"
    default_visible: [Townships]
    styles:
      Townships: {color: "#2E86AB", weight: 2, fillOpacity: 0.1}
    popups:
      Townships:
        title: "🏘️ {NAME}"
        content: "<p>Population: {POPULATION}</p>"
- id: uwmadison
  title: UW-Madison Service
  servers: ["ARCGIS/uw"]
  service_names: ["{item}"]
  items:
    - id: 16a0
  placeholder:
    id_prefix: uwmadison_placeholder
    status: "🔒 Access Required"
    contact: {email: gis@geography.wisc.edu, department: UW-Madison Geography}
`, "ARCGIS", arcgis)
	filename := filepath.Join(t.TempDir(), "sources.yml")
	require.NoError(t, os.WriteFile(filename, []byte(content), 0644))
	return filename
}

// newTestServer creates a server against the feature service stub and waits
// until its session has loaded.
func newTestServer(t *testing.T) commands.ServerHandle {
	arcgis := newArcGIS(t)
	cfg := commands.AppConfig{}
	cfg.Countyview.SourcesFile = writeSources(t, arcgis.URL)
	cfg.Countyview.LiveLayers = true
	cfg.Countyview.ProbeTimeout = 2 * time.Second
	cfg.Countyview.SettingsTTL = time.Minute
	cfg.Web.Metrics = false

	handle, err := commands.CreateServer(zap.NewNop().Sugar(), cfg)
	require.NoError(t, err)
	t.Cleanup(handle.Close)

	select {
	case <-handle.Session.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("session did not finish loading")
	}
	return handle
}

func doRequest(s *server.Server, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, jsoniter.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
