package server_tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppInit(t *testing.T) {
	handle := newTestServer(t)

	rec := doRequest(handle.Server, http.MethodGet, "/api/app", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Session struct {
			ID      string `json:"id"`
			Loading bool   `json:"loading"`
		} `json:"session"`
		Viewer struct {
			Regions struct {
				Sentinel string   `json:"sentinel"`
				Names    []string `json:"names"`
			} `json:"regions"`
		} `json:"viewer"`
		Sources []struct {
			Source      string `json:"source"`
			ResolvedBy  string `json:"resolved_by"`
			Live        int    `json:"live"`
			Placeholder int    `json:"placeholder"`
		} `json:"sources"`
	}
	decode(t, rec, &data)
	assert.Equal(t, handle.Session.ID.String(), data.Session.ID)
	assert.False(t, data.Session.Loading)
	assert.Equal(t, "Choose a Township", data.Viewer.Regions.Sentinel)
	assert.Len(t, data.Viewer.Regions.Names, 16)

	require.Len(t, data.Sources, 2)
	assert.Equal(t, "delta_county", data.Sources[0].Source)
	assert.Equal(t, "ProbingPrimary", data.Sources[0].ResolvedBy)
	assert.Equal(t, 2, data.Sources[0].Live)
	assert.Equal(t, "uwmadison", data.Sources[1].Source)
	assert.Equal(t, "UsingPlaceholder", data.Sources[1].ResolvedBy)
	assert.Equal(t, 1, data.Sources[1].Placeholder)
}

func TestSources(t *testing.T) {
	handle := newTestServer(t)

	rec := doRequest(handle.Server, http.MethodGet, "/api/sources", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sources []struct {
		ID         string   `json:"id"`
		Candidates []string `json:"candidates"`
		Items      []string `json:"items"`
	}
	decode(t, rec, &sources)
	require.Len(t, sources, 2)
	assert.Len(t, sources[0].Candidates, 1)
	assert.Equal(t, []string{"16a0"}, sources[1].Items)
	assert.Len(t, sources[1].Candidates, 1)
}

func TestUnknownRoute(t *testing.T) {
	handle := newTestServer(t)
	rec := doRequest(handle.Server, http.MethodGet, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
