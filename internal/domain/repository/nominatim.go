package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"smarttrip/internal/cache"
	"smarttrip/internal/domain/model"
)

const nominatimUserAgent = "smarttrip/1.0 (travel recommender)"

// NominatimClient resolves city names to coordinates and Overpass
// search areas. Results change rarely, so they are cached for a day.
type NominatimClient struct {
	endpoint string
	client   *http.Client
	cache    *cache.Cache
}

func NewNominatimClient(endpoint string, timeout time.Duration) *NominatimClient {
	return &NominatimClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
		cache:    cache.New(24 * time.Hour),
	}
}

type nominatimResult struct {
	Lat         string    `json:"lat"`
	Lon         string    `json:"lon"`
	OSMType     string    `json:"osm_type"`
	OSMID       int64     `json:"osm_id"`
	DisplayName string    `json:"display_name"`
	BoundingBox [4]string `json:"boundingbox"`
}

// GeocodeCity looks up a city and returns its center, display name and
// the Overpass area id derived from the OSM relation or way id. A nil
// result with nil error means the city was not found.
func (c *NominatimClient) GeocodeCity(ctx context.Context, city string) (*model.CityInfo, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, nil
	}

	key := strings.ToLower(city)
	if cached, ok := c.cache.Get(key); ok {
		if info, hit := cached.(*model.CityInfo); hit {
			return info, nil
		}
		return nil, nil
	}

	query := url.Values{}
	query.Set("format", "jsonv2")
	query.Set("q", city)
	query.Set("limit", "1")
	query.Set("addressdetails", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/search?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create geocode request: %w", err)
	}
	req.Header.Set("User-Agent", nominatimUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned status: %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if len(results) == 0 {
		// Cache the miss too so repeated bad city names stay cheap.
		c.cache.Set(key, (*model.CityInfo)(nil))
		return nil, nil
	}

	info, err := toCityInfo(city, results[0])
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, info)
	return info, nil
}

func toCityInfo(query string, raw nominatimResult) (*model.CityInfo, error) {
	lat, err := strconv.ParseFloat(raw.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid geocode latitude %q: %w", raw.Lat, err)
	}
	lon, err := strconv.ParseFloat(raw.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid geocode longitude %q: %w", raw.Lon, err)
	}

	info := &model.CityInfo{
		Query:       query,
		Lat:         lat,
		Lon:         lon,
		OSMType:     raw.OSMType,
		OSMID:       raw.OSMID,
		DisplayName: raw.DisplayName,
	}

	// Overpass area ids offset the OSM id by element kind.
	switch raw.OSMType {
	case "relation":
		info.AreaID = 3600000000 + raw.OSMID
	case "way":
		info.AreaID = 2400000000 + raw.OSMID
	}

	// Nominatim returns south, north, west, east as strings.
	var south, north, west, east float64
	ok := true
	for i, target := range []*float64{&south, &north, &west, &east} {
		v, err := strconv.ParseFloat(raw.BoundingBox[i], 64)
		if err != nil {
			ok = false
			break
		}
		*target = v
	}
	if ok {
		info.BBox = &[4]float64{south, west, north, east}
	}

	return info, nil
}
