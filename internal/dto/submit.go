package dto

type SubmitRequest struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory,omitempty"`
}

type GhostOutcomeResponse struct {
	EstimatedMargin float64 `json:"estimated_margin"`
	MarginPercent   float64 `json:"margin_percent"`
	Velocity        string  `json:"velocity"`
}

type SubmitResponse struct {
	SubmissionID   string                `json:"submission_id"`
	EstimatedValue float64               `json:"estimated_value"`
	Confidence     float64               `json:"confidence"`
	Verdict        string                `json:"verdict"`
	Summary        string                `json:"summary,omitempty"`
	ItemCount      int                   `json:"item_count"`
	DurableURLs    []string              `json:"durable_urls"`
	FailedUploads  int                   `json:"failed_uploads,omitempty"`
	Ghost          *GhostOutcomeResponse `json:"ghost,omitempty"`
}

type HistoryEntryResponse struct {
	ID             string   `json:"id"`
	Category       string   `json:"category"`
	Subcategory    string   `json:"subcategory,omitempty"`
	ItemCount      int      `json:"item_count"`
	EstimatedValue float64  `json:"estimated_value"`
	Verdict        string   `json:"verdict"`
	DurableURLs    []string `json:"durable_urls"`
	GhostStore     string   `json:"ghost_store,omitempty"`
	GhostMargin    *float64 `json:"ghost_margin,omitempty"`
	CreatedAt      string   `json:"created_at"`
}

type HistoryListResponse struct {
	Entries []HistoryEntryResponse `json:"entries"`
	Total   int64                  `json:"total"`
}
