// Package featureservice talks to ArcGIS REST feature services and portals.
package featureservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gisquick/countyview/internal/domain"
	jsoniter "github.com/json-iterator/go"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrInvalidResponse = errors.New("invalid feature service response")
)

const maxResponseSize = 64 << 20

// StatusError is a non-200 HTTP response. It is classified as a network failure.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.URL)
}

func (e *StatusError) Unwrap() error {
	return domain.ErrNetworkFailure
}

type Client struct {
	log     *zap.SugaredLogger
	client  *http.Client
	timeout time.Duration
	lock    singleflight.Group
}

// NewClient creates a client whose every request is bounded by timeout.
func NewClient(log *zap.SugaredLogger, timeout time.Duration) *Client {
	return &Client{
		log:     log,
		client:  &http.Client{},
		timeout: timeout,
	}
}

func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// get issues a GET request. Identical requests in flight at the same time
// share one round trip, bounded by the client timeout rather than by any
// single caller's context. A caller whose ctx ends stops waiting without
// failing the others.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing url: %v", domain.ErrNetworkFailure, err)
	}
	q := u.Query()
	for k, v := range params {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	reqURL := u.String()

	ch := c.lock.DoChan(reqURL, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrNetworkFailure, err)
		}
		c.log.Debugw("feature service request", "url", reqURL)
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrNetworkFailure, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return nil, &StatusError{URL: reqURL, Code: resp.StatusCode}
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return nil, fmt.Errorf("%w: reading response: %v", domain.ErrNetworkFailure, err)
		}
		return data, nil
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", domain.ErrNetworkFailure, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

type errorEnvelope struct {
	Error *domain.ServiceError `json:"error"`
}

func checkServiceError(data []byte) error {
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if env.Error != nil {
		return env.Error
	}
	return nil
}

type serviceMetadata struct {
	ServiceDescription string               `json:"serviceDescription"`
	Error              *domain.ServiceError `json:"error"`
	Layers             []struct {
		ID           int    `json:"id"`
		Name         string `json:"name"`
		GeometryType string `json:"geometryType"`
	} `json:"layers"`
}

// Metadata fetches `<service>?f=json`. An error payload is returned as
// *domain.ServiceError and a service without layers as domain.ErrEmptyResult.
func (c *Client) Metadata(ctx context.Context, serviceURL string) (domain.ServiceDescriptor, error) {
	var desc domain.ServiceDescriptor
	data, err := c.get(ctx, serviceURL, url.Values{"f": {"json"}})
	if err != nil {
		return desc, err
	}
	var meta serviceMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return desc, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if meta.Error != nil {
		return desc, meta.Error
	}
	desc.Description = meta.ServiceDescription
	for _, l := range meta.Layers {
		desc.Layers = append(desc.Layers, domain.LayerDescriptor{
			ID:           l.ID,
			Name:         l.Name,
			GeometryType: domain.ParseGeometryType(l.GeometryType),
		})
	}
	if len(desc.Layers) == 0 {
		return desc, domain.ErrEmptyResult
	}
	return desc, nil
}

// QueryGeoJSON runs `<layer>/query?where=...&outFields=*&f=geojson`.
func (c *Client) QueryGeoJSON(ctx context.Context, layerURL, where string) (*geojson.FeatureCollection, error) {
	params := url.Values{
		"where":     {where},
		"outFields": {"*"},
		"f":         {"geojson"},
	}
	data, err := c.get(ctx, strings.TrimRight(layerURL, "/")+"/query", params)
	if err != nil {
		return nil, err
	}
	if err := checkServiceError(data); err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return fc, nil
}

// QueryAttributes runs an attribute-only query (f=json).
func (c *Client) QueryAttributes(ctx context.Context, layerURL, where string) ([]map[string]interface{}, error) {
	params := url.Values{
		"where":          {where},
		"outFields":      {"*"},
		"returnGeometry": {"false"},
		"f":              {"json"},
	}
	data, err := c.get(ctx, strings.TrimRight(layerURL, "/")+"/query", params)
	if err != nil {
		return nil, err
	}
	var res struct {
		Error    *domain.ServiceError `json:"error"`
		Features []struct {
			Attributes map[string]interface{} `json:"attributes"`
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if res.Error != nil {
		return nil, res.Error
	}
	attrs := make([]map[string]interface{}, 0, len(res.Features))
	for _, f := range res.Features {
		if f.Attributes != nil {
			attrs = append(attrs, f.Attributes)
		} else {
			attrs = append(attrs, f.Properties)
		}
	}
	return attrs, nil
}

// ItemURL looks up the service URL of a portal content item.
func (c *Client) ItemURL(ctx context.Context, portal, itemID string) (string, error) {
	endpoint := fmt.Sprintf("%s/sharing/rest/content/items/%s", strings.TrimRight(portal, "/"), url.PathEscape(itemID))
	data, err := c.get(ctx, endpoint, url.Values{"f": {"json"}})
	if err != nil {
		return "", err
	}
	var item struct {
		URL   string               `json:"url"`
		Error *domain.ServiceError `json:"error"`
	}
	if err := json.Unmarshal(data, &item); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if item.Error != nil {
		return "", item.Error
	}
	if item.URL == "" {
		return "", domain.ErrEmptyResult
	}
	return item.URL, nil
}
