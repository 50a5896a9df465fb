// Package geo loads borough boundaries and renders per-borough choropleth
// maps.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/twpayne/go-geom/encoding/geojson"
)

// DefaultURL serves the borough boundary polygons as GeoJSON.
const DefaultURL = "https://data.cityofnewyork.us/api/geospatial/tqmj-j8zm?method=export&format=GeoJSON"

// DefaultProperty holds the borough display name on each feature.
const DefaultProperty = "boro_name"

// Source yields the boundary feature collection.
type Source interface {
	Boundaries(ctx context.Context) (*geojson.FeatureCollection, error)
}

// FetchError reports a failed boundary download.
type FetchError struct {
	URL    string
	Status int // 0 when no response was received
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch boundaries %s: http %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch boundaries %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// HTTPSource downloads the collection with one unauthenticated GET.
type HTTPSource struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

// Boundaries performs the request. It is not retried.
func (s HTTPSource) Boundaries(ctx context.Context) (*geojson.FeatureCollection, error) {
	url := s.URL
	if url == "" {
		url = DefaultURL
	}
	client := s.Client
	if client == nil {
		timeout := s.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/geo+json, application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &FetchError{URL: url, Status: resp.StatusCode}
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	fc, err := Decode(b)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	return fc, nil
}

// FileSource reads the collection from a local GeoJSON file.
type FileSource struct {
	Path string
}

func (s FileSource) Boundaries(_ context.Context) (*geojson.FeatureCollection, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read boundaries: %w", err)
	}
	fc, err := Decode(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return fc, nil
}

// Decode parses a GeoJSON FeatureCollection.
func Decode(b []byte) (*geojson.FeatureCollection, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(b, &fc); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	return &fc, nil
}
