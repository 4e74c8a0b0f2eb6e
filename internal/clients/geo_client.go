package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sofiene-feki/skands-server/internal/config"
)

const geoFields = "status,message,country,regionName,city,zip"

// Location is the coarse position of a client address
type Location struct {
	Country string
	State   string
	City    string
	Zip     string
}

// Locator resolves an IP address to a Location
type Locator interface {
	Locate(ctx context.Context, ip string) (Location, error)
}

// GeoClient queries an ip-api compatible endpoint
type GeoClient struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

func NewGeoClient(cfg config.GeoConfig) *GeoClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &GeoClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type geoResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	Country    string `json:"country"`
	RegionName string `json:"regionName"`
	City       string `json:"city"`
	Zip        string `json:"zip"`
}

// Locate never waits longer than the configured timeout, whatever ctx allows
func (c *GeoClient) Locate(ctx context.Context, ip string) (Location, error) {
	if ip == "" {
		return Location{}, fmt.Errorf("geo lookup: empty address")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + "/" + url.PathEscape(ip) + "?fields=" + geoFields
	body, err := doJSON(ctx, c.httpClient, "geo", http.MethodGet, u, "", nil)
	if err != nil {
		return Location{}, err
	}

	var r geoResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return Location{}, fmt.Errorf("decode response: %w", err)
	}
	if r.Status != "success" {
		return Location{}, fmt.Errorf("geo lookup failed: %s", r.Message)
	}

	return Location{Country: r.Country, State: r.RegionName, City: r.City, Zip: r.Zip}, nil
}
