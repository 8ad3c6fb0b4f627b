// Package geo resolves free-text locations to map centers and filters
// records by distance.
package geo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lng float64
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// LocateCenter resolves a free-text location ("Tel Aviv, Israel") to a
// center point using the OSM Nominatim API.
func LocateCenter(location string) (Point, error) {
	u := "https://nominatim.openstreetmap.org/search?" + url.Values{
		"q":      {location},
		"format": {"json"},
		"limit":  {"1"},
	}.Encode()

	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequest("GET", u, nil)
	if err != nil {
		return Point{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "mapharvest/0.1 (business listing collector)")

	resp, err := client.Do(req)
	if err != nil {
		return Point{}, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Point{}, fmt.Errorf("geocoding returned status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Point{}, fmt.Errorf("decoding geocoding response: %w", err)
	}
	if len(results) == 0 {
		return Point{}, fmt.Errorf("location %q not found", location)
	}

	lat, err1 := strconv.ParseFloat(results[0].Lat, 64)
	lng, err2 := strconv.ParseFloat(results[0].Lon, 64)
	if err1 != nil || err2 != nil {
		return Point{}, fmt.Errorf("invalid coordinates from geocoder")
	}
	return Point{Lat: lat, Lng: lng}, nil
}
