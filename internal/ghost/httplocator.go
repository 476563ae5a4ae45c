package ghost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPLocator resolves a fix through a positioning service speaking the
// geolocation-API shape: POST with an optional key, response carrying a
// lat/lng pair and an accuracy radius in meters.
type HTTPLocator struct {
	httpClient *http.Client
	url        string
	apiKey     string
}

type HTTPLocatorConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

func NewHTTPLocator(cfg HTTPLocatorConfig) *HTTPLocator {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = LocateTimeout
	}
	return &HTTPLocator{
		httpClient: &http.Client{Timeout: timeout},
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
	}
}

type geolocateResponse struct {
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
	Accuracy float64 `json:"accuracy"`
}

func (l *HTTPLocator) Locate(ctx context.Context) (*Location, error) {
	if l.url == "" {
		return nil, fmt.Errorf("no positioning service configured")
	}

	url := l.url
	if l.apiKey != "" {
		url += "?key=" + l.apiKey
	}

	body := bytes.NewReader([]byte(`{"considerIp":true}`))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("positioning request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("positioning service returned status %d", resp.StatusCode)
	}

	var geo geolocateResponse
	if err := json.NewDecoder(resp.Body).Decode(&geo); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &Location{
		Lat:            geo.Location.Lat,
		Lng:            geo.Location.Lng,
		AccuracyMeters: geo.Accuracy,
		CapturedAtMs:   time.Now().UnixMilli(),
	}, nil
}
