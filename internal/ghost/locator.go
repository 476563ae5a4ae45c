package ghost

import "context"

// Location is a single geolocation fix.
type Location struct {
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	AccuracyMeters float64 `json:"accuracy_meters"`
	CapturedAtMs   int64   `json:"captured_at_epoch_ms"`
}

// Locator performs a single-shot, high-accuracy geolocation request. The
// device's positioning service is behind this interface; implementations must
// respect ctx for the request timeout and never retry on their own.
type Locator interface {
	Locate(ctx context.Context) (*Location, error)
}
