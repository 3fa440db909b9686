package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/hangr/internal/geo"
)

// DefaultGeoapifyURL is the Geoapify reverse geocoding endpoint.
const DefaultGeoapifyURL = "https://api.geoapify.com/v1/geocode/reverse"

// GeoapifyClient wraps the Geoapify reverse geocoding API.
type GeoapifyClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGeoapifyClient creates a client. An empty baseURL selects the public endpoint.
func NewGeoapifyClient(apiKey, baseURL string, timeout time.Duration) *GeoapifyClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultGeoapifyURL
	}
	return &GeoapifyClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: newHTTPClient(timeout),
	}
}

type geoapifyResponse struct {
	Features []struct {
		Properties struct {
			City    string `json:"city"`
			Town    string `json:"town"`
			Village string `json:"village"`
		} `json:"properties"`
	} `json:"features"`
}

// City implements Resolver.
func (c *GeoapifyClient) City(ctx context.Context, p geo.Point) (city string, err error) {
	if c == nil || c.apiKey == "" {
		return "", fmt.Errorf("geoapify: api key not configured")
	}
	start := time.Now()
	defer func() { logProvider(ctx, "geoapify", p, start, err) }()

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(p.Lat, 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(p.Lng, 'f', 6, 64))
	params.Set("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("geoapify: request creation failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("geoapify: network error: %w", err)
	}
	defer resp.Body.Close()

	if err = checkStatus("geoapify", resp); err != nil {
		return "", err
	}

	var body geoapifyResponse
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("geoapify: decode: %w", err)
	}
	if len(body.Features) == 0 {
		return "", ErrNoCity
	}
	props := body.Features[0].Properties
	city = firstNonEmpty(props.City, props.Town, props.Village)
	if city == "" {
		return "", ErrNoCity
	}
	return city, nil
}
