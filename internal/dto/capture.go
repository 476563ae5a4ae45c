package dto

type StartSessionRequest struct {
	DeviceID string `json:"device_id,omitempty"`
	Mode     string `json:"mode,omitempty"`
}

type SessionResponse struct {
	ID           string `json:"id"`
	OwnerID      string `json:"owner_id"`
	State        string `json:"state"`
	Mode         string `json:"mode"`
	DeviceID     string `json:"device_id"`
	ItemCount    int    `json:"item_count"`
	GhostEnabled bool   `json:"ghost_enabled"`
	GhostReady   bool   `json:"ghost_ready"`
}

type SwitchModeRequest struct {
	Mode string `json:"mode"`
}

type SwitchDeviceRequest struct {
	DeviceID string `json:"device_id"`
}

type CaptureRequest struct {
	Name         string `json:"name,omitempty"`
	Kind         string `json:"kind,omitempty"`
	DocumentType string `json:"document_type,omitempty"`

	// Data is the encoded media, base64.
	Data string `json:"data"`
}

type ItemResponse struct {
	ID              string `json:"id"`
	Kind            string `json:"kind"`
	Name            string `json:"name"`
	Selected        bool   `json:"selected"`
	DocumentType    string `json:"document_type,omitempty"`
	FrameCount      int    `json:"frame_count,omitempty"`
	OriginalBytes   int64  `json:"original_bytes"`
	CompressedBytes int64  `json:"compressed_bytes"`

	// Thumbnail is base64 JPEG, always present.
	Thumbnail string `json:"thumbnail"`
}

type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
}

type GhostUpdateRequest struct {
	Enabled       *bool   `json:"enabled,omitempty"`
	StoreType     string  `json:"store_type,omitempty"`
	StoreName     string  `json:"store_name,omitempty"`
	StoreAisle    string  `json:"store_aisle,omitempty"`
	ShelfPrice    float64 `json:"shelf_price,omitempty"`
	HandlingHours int     `json:"handling_hours,omitempty"`
}

type GhostResponse struct {
	Enabled       bool    `json:"enabled"`
	Ready         bool    `json:"ready"`
	HasLocation   bool    `json:"has_location"`
	LocationError string  `json:"location_error,omitempty"`
	StoreType     string  `json:"store_type,omitempty"`
	StoreName     string  `json:"store_name,omitempty"`
	StoreAisle    string  `json:"store_aisle,omitempty"`
	ShelfPrice    float64 `json:"shelf_price"`
	HandlingHours int     `json:"handling_hours,omitempty"`
}
