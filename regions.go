package mypermobil

import (
	"context"
	"maps"
	"net/http"
	"strings"
)

const internalEmailDomain = "@permobil.com"

// Region is one backend deployment a user can belong to.
type Region struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Port int    `json:"port"`
	URL  string `json:"url"`
	// Icon is only filled when icons are requested.
	Icon string `json:"icon,omitempty"`
}

type regionDescriptor struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	BackendPort int    `json:"backendPort"`
	Host        string `json:"host"`
	ServerType  string `json:"serverType"`
	Flag        string `json:"flag"`
}

// RequestRegions lists the regions keyed by id. Unless includeInternal is
// set, or the session email belongs to the internal domain, only production
// regions served on port 443 are returned. The listing needs no
// authentication and is coordinated like endpoint reads. The returned map is
// the caller's own.
func (c *Client) RequestRegions(ctx context.Context, includeIcons, includeInternal bool) (map[string]Region, error) {
	if strings.HasSuffix(c.Email(), internalEmailDomain) {
		includeInternal = true
	}
	key := Key("request_regions", c.regionsURL, includeIcons, includeInternal)

	regions, err := c.regions.Do(ctx, key, func(ctx context.Context) (map[string]Region, error) {
		return c.fetchRegions(ctx, includeIcons, includeInternal)
	})
	if err != nil {
		return nil, c.waitError(ctx, "regions", c.regionsURL, err)
	}
	return maps.Clone(regions), nil
}

func (c *Client) fetchRegions(ctx context.Context, includeIcons, includeInternal bool) (map[string]Region, error) {
	resp, err := c.Request(ctx, MethodGet, c.regionsURL, nil, http.Header{})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.linkError(resp, MethodGet, c.regionsURL, apiError(resp.StatusCode, resp.Text()))
	}

	var descriptors []regionDescriptor
	if err := json.Unmarshal(resp.Body, &descriptors); err != nil {
		e := apiError(resp.StatusCode, "invalid response")
		e.Cause = err
		return nil, c.linkError(resp, MethodGet, c.regionsURL, e)
	}

	regions := make(map[string]Region, len(descriptors))
	for _, d := range descriptors {
		if !includeInternal && (d.BackendPort != 443 || d.ServerType != "Production") {
			continue
		}
		protocol := "http"
		if d.BackendPort == 443 {
			protocol = "https"
		}
		region := Region{
			ID:   d.ID,
			Name: d.Name,
			Port: d.BackendPort,
			URL:  protocol + "://" + d.Host,
		}
		if includeIcons {
			region.Icon = d.Flag
		}
		regions[d.ID] = region
	}
	return regions, nil
}

// RequestRegionNames maps region display names to their base URLs.
func (c *Client) RequestRegionNames(ctx context.Context, includeInternal bool) (map[string]string, error) {
	regions, err := c.RequestRegions(ctx, false, includeInternal)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(regions))
	for _, region := range regions {
		names[region.Name] = region.URL
	}
	return names, nil
}
