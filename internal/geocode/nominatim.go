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

// DefaultNominatimURL is the public OpenStreetMap Nominatim reverse endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org/reverse"

// NominatimClient wraps the Nominatim reverse geocoding API. The public
// instance requires an identifying User-Agent.
type NominatimClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewNominatimClient creates a client. An empty baseURL selects the public endpoint.
func NewNominatimClient(baseURL, userAgent string, timeout time.Duration) *NominatimClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultNominatimURL
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = "Hangr/1.0"
	}
	return &NominatimClient{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: newHTTPClient(timeout),
	}
}

type nominatimReverse struct {
	Error   string `json:"error"`
	Address struct {
		City         string `json:"city"`
		Town         string `json:"town"`
		Village      string `json:"village"`
		Municipality string `json:"municipality"`
	} `json:"address"`
}

// City implements Resolver.
func (c *NominatimClient) City(ctx context.Context, p geo.Point) (city string, err error) {
	if c == nil {
		return "", fmt.Errorf("nominatim: client not configured")
	}
	start := time.Now()
	defer func() { logProvider(ctx, "nominatim", p, start, err) }()

	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("zoom", "10")
	params.Set("addressdetails", "1")
	params.Set("lat", strconv.FormatFloat(p.Lat, 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(p.Lng, 'f', 6, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("nominatim: request creation failed: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("nominatim: network error: %w", err)
	}
	defer resp.Body.Close()

	if err = checkStatus("nominatim", resp); err != nil {
		return "", err
	}

	var body nominatimReverse
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("nominatim: decode: %w", err)
	}
	if body.Error != "" {
		return "", fmt.Errorf("nominatim: %s", body.Error)
	}
	city = firstNonEmpty(body.Address.City, body.Address.Town, body.Address.Village, body.Address.Municipality)
	if city == "" {
		return "", ErrNoCity
	}
	return city, nil
}
