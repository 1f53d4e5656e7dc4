package featureservice

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gisquick/countyview/internal/domain"
)

type OperationalLayer struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Visibility *bool  `json:"visibility"`
}

// Visible mirrors the web map default, where a missing flag means visible.
func (l OperationalLayer) Visible() bool {
	return l.Visibility == nil || *l.Visibility
}

type WebMap struct {
	OperationalLayers []OperationalLayer `json:"operationalLayers"`
	BaseMap           struct {
		Title string `json:"title"`
	} `json:"baseMap"`
}

// WebMap fetches the data document of a web map item.
func (c *Client) WebMap(ctx context.Context, portal, webmapID string) (WebMap, error) {
	var wm WebMap
	endpoint := fmt.Sprintf("%s/sharing/rest/content/items/%s/data", strings.TrimRight(portal, "/"), url.PathEscape(webmapID))
	data, err := c.get(ctx, endpoint, url.Values{"f": {"json"}})
	if err != nil {
		return wm, err
	}
	if err := checkServiceError(data); err != nil {
		return wm, err
	}
	if err := json.Unmarshal(data, &wm); err != nil {
		return wm, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if len(wm.OperationalLayers) == 0 {
		return wm, domain.ErrEmptyResult
	}
	return wm, nil
}
