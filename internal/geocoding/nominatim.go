package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ngmaloney/strike-log/internal/models"
)

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	DefaultUserAgent    = "StrikeLog/1.0" // Required by Nominatim ToS
)

// Geocoder converts place names to coordinates
type Geocoder struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	lastCall   time.Time
	mu         sync.Mutex
}

// NewGeocoder creates a new geocoder. Empty arguments use the public
// Nominatim endpoint and the default User-Agent.
func NewGeocoder(baseURL, userAgent string) *Geocoder {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Geocoder{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// nominatimResponse represents the Nominatim API response
type nominatimResponse struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode converts a query to a position. A query that is already a
// "lat, lon" pair is parsed locally without a network call.
func (g *Geocoder) Geocode(ctx context.Context, query string) (*models.GPSFix, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	if fix, ok := parseCoordinates(query); ok {
		fix.Source = SourceManual
		fix.At = time.Now()
		return fix, nil
	}

	params := url.Values{}
	params.Add("format", "json")
	params.Add("limit", "1")
	params.Add("q", query)

	reqURL := fmt.Sprintf("%s/search?%s", g.baseURL, params.Encode())

	// Rate limiting: Nominatim requires 1 req/sec max
	g.mu.Lock()
	if !g.lastCall.IsZero() {
		elapsed := time.Since(g.lastCall)
		if elapsed < time.Second {
			time.Sleep(time.Second - elapsed)
		}
	}
	g.lastCall = time.Now()
	g.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	// Set required User-Agent header (Nominatim ToS requirement)
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim API returned status %d", resp.StatusCode)
	}

	var results []nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("no results found for '%s'", query)
	}

	result := results[0]

	lat, err := strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing longitude: %w", err)
	}

	return &models.GPSFix{
		Lat:    lat,
		Lon:    lon,
		Source: SourceGeocoder,
		At:     time.Now(),
	}, nil
}

var coordPattern = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*[, ]\s*(-?\d+(?:\.\d+)?)$`)

// parseCoordinates accepts "41.68, -69.96" or "41.68 -69.96".
func parseCoordinates(s string) (*models.GPSFix, bool) {
	m := coordPattern.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lon, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return nil, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, false
	}
	return &models.GPSFix{Lat: lat, Lon: lon}, true
}
