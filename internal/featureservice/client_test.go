package featureservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gisquick/countyview/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const townshipsGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-87.1, 45.8]}, "properties": {"NAME": "Baldwin"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-86.5, 45.9]}, "properties": {"NAME": "Garden"}}
  ]
}`

func newTestClient() *Client {
	return NewClient(zap.NewNop().Sugar(), 2*time.Second)
}

func TestMetadata(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok/FeatureServer", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("f"))
		fmt.Fprint(w, `{"serviceDescription": "Delta", "layers": [
			{"id": 7, "name": "Townships", "geometryType": "esriGeometryPolygon"},
			{"id": 0, "name": "Site_Structure_Address_Points_Delta_County", "geometryType": "esriGeometryPoint"}
		]}`)
	})
	mux.HandleFunc("/denied/FeatureServer", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": {"code": 403, "message": "You do not have permissions to access this resource or perform this operation."}}`)
	})
	mux.HandleFunc("/empty/FeatureServer", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"layers": []}`)
	})
	mux.HandleFunc("/broken/FeatureServer", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>`)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()
	c := newTestClient()
	ctx := context.Background()

	desc, err := c.Metadata(ctx, ts.URL+"/ok/FeatureServer")
	require.NoError(t, err)
	assert.Equal(t, "Delta", desc.Description)
	assert.Equal(t, []domain.LayerDescriptor{
		{ID: 7, Name: "Townships", GeometryType: domain.GeometryPolygon},
		{ID: 0, Name: "Site_Structure_Address_Points_Delta_County", GeometryType: domain.GeometryPoint},
	}, desc.Layers)

	_, err = c.Metadata(ctx, ts.URL+"/denied/FeatureServer")
	var se *domain.ServiceError
	require.True(t, errors.As(err, &se))
	assert.True(t, se.AuthRequired())

	_, err = c.Metadata(ctx, ts.URL+"/empty/FeatureServer")
	assert.ErrorIs(t, err, domain.ErrEmptyResult)

	_, err = c.Metadata(ctx, ts.URL+"/broken/FeatureServer")
	assert.ErrorIs(t, err, ErrInvalidResponse)

	_, err = c.Metadata(ctx, ts.URL+"/missing/FeatureServer")
	var status *StatusError
	require.True(t, errors.As(err, &status))
	assert.Equal(t, http.StatusNotFound, status.Code)
	assert.ErrorIs(t, err, domain.ErrNetworkFailure)
}

func TestMetadataTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer ts.Close()
	c := NewClient(zap.NewNop().Sugar(), 50*time.Millisecond)

	_, err := c.Metadata(context.Background(), ts.URL+"/slow/FeatureServer")
	assert.ErrorIs(t, err, domain.ErrNetworkFailure)
}

func TestSharedRequestOutlivesCancelledCaller(t *testing.T) {
	var calls int32
	received := make(chan struct{}, 1)
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		received <- struct{}{}
		<-release
		fmt.Fprint(w, `{"layers": [{"id": 7, "name": "Townships"}]}`)
	}))
	defer ts.Close()
	c := newTestClient()
	serviceURL := ts.URL + "/delta/FeatureServer"

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := c.Metadata(ctx, serviceURL)
		first <- err
	}()
	<-received

	second := make(chan error, 1)
	var desc domain.ServiceDescriptor
	go func() {
		var err error
		desc, err = c.Metadata(context.Background(), serviceURL)
		second <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	err := <-first
	assert.ErrorIs(t, err, domain.ErrNetworkFailure)
	assert.Contains(t, err.Error(), context.Canceled.Error())

	close(release)
	require.NoError(t, <-second)
	assert.Len(t, desc.Layers, 1)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestQueryGeoJSON(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/svc/FeatureServer/7/query", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "1=1", q.Get("where"))
		assert.Equal(t, "*", q.Get("outFields"))
		assert.Equal(t, "geojson", q.Get("f"))
		fmt.Fprint(w, townshipsGeoJSON)
	}))
	defer ts.Close()
	c := newTestClient()

	fc, err := c.QueryGeoJSON(context.Background(), ts.URL+"/svc/FeatureServer/7", domain.AllFeatures)
	require.NoError(t, err)
	assert.Len(t, fc.Features, 2)
	assert.Equal(t, "Garden", fc.Features[1].Properties["NAME"])
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestQueryAttributes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "false", q.Get("returnGeometry"))
		assert.Equal(t, "json", q.Get("f"))
		if q.Get("where") == "NAME = 'Garden'" {
			fmt.Fprint(w, `{"features": [{"attributes": {"NAME": "Garden", "OBJECTID": 4}}]}`)
			return
		}
		fmt.Fprint(w, `{"error": {"code": 400, "message": "Unable to complete operation."}}`)
	}))
	defer ts.Close()
	c := newTestClient()
	ctx := context.Background()

	rows, err := c.QueryAttributes(ctx, ts.URL+"/svc/FeatureServer/7", domain.EqualsClause("NAME", "Garden"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Garden", rows[0]["NAME"])

	_, err = c.QueryAttributes(ctx, ts.URL+"/svc/FeatureServer/7", "bad")
	assert.ErrorIs(t, err, domain.ErrServiceError)
}

func TestItemURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sharing/rest/content/items/abc":
			fmt.Fprint(w, `{"id": "abc", "url": "https://services.example.com/arcgis/rest/services/Campus/FeatureServer"}`)
		case "/sharing/rest/content/items/nourl":
			fmt.Fprint(w, `{"id": "nourl", "type": "Web Map"}`)
		default:
			fmt.Fprint(w, `{"error": {"code": 403, "message": "You do not have permissions to access this resource"}}`)
		}
	}))
	defer ts.Close()
	c := newTestClient()
	ctx := context.Background()

	u, err := c.ItemURL(ctx, ts.URL, "abc")
	require.NoError(t, err)
	assert.Equal(t, "https://services.example.com/arcgis/rest/services/Campus/FeatureServer", u)

	_, err = c.ItemURL(ctx, ts.URL, "nourl")
	assert.ErrorIs(t, err, domain.ErrEmptyResult)

	_, err = c.ItemURL(ctx, ts.URL, "private")
	assert.ErrorIs(t, err, domain.ErrServiceError)
}

func TestWebMap(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sharing/rest/content/items/wm1/data", r.URL.Path)
		fmt.Fprint(w, `{"operationalLayers": [
			{"id": "a", "title": "Townships", "url": "https://example.com/FeatureServer/7"},
			{"id": "b", "title": "Parcels", "url": "https://example.com/FeatureServer/2", "visibility": false}
		], "baseMap": {"title": "Topographic"}}`)
	}))
	defer ts.Close()
	c := newTestClient()

	wm, err := c.WebMap(context.Background(), ts.URL, "wm1")
	require.NoError(t, err)
	require.Len(t, wm.OperationalLayers, 2)
	assert.True(t, wm.OperationalLayers[0].Visible())
	assert.False(t, wm.OperationalLayers[1].Visible())
	assert.Equal(t, "Topographic", wm.BaseMap.Title)
}
