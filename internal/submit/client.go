package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/ghost"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/shared"
)

type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Client calls the external multi-model analysis service.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
	}
}

// analyzeItem is one submission item on the wire.
type analyzeItem struct {
	Type             string         `json:"type"`
	Name             string         `json:"name"`
	Data             string         `json:"data"`
	AdditionalFrames []string       `json:"additionalFrames,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

type analyzeGhost struct {
	ShelfPrice    float64         `json:"shelfPrice"`
	HandlingHours int             `json:"handlingHours"`
	StoreType     string          `json:"storeType"`
	StoreName     string          `json:"storeName"`
	StoreAisle    string          `json:"storeAisle,omitempty"`
	Location      *ghost.Location `json:"location"`
}

type analyzeBody struct {
	ScanType          string        `json:"scanType"`
	OriginalImageURLs []string      `json:"originalImageUrls"`
	Items             []analyzeItem `json:"items"`
	CategoryID        string        `json:"category_id"`
	SubcategoryID     string        `json:"subcategory_id,omitempty"`
	GhostMode         *analyzeGhost `json:"ghostMode,omitempty"`
}

// AnalysisResult is the typed view of the upstream response. The upstream
// contract drifts, so every field is optional and defaulted on decode rather
// than accessed dynamically.
type AnalysisResult struct {
	EstimatedValue float64     `json:"estimated_value"`
	Confidence     float64     `json:"confidence"`
	Verdict        string      `json:"verdict"`
	Summary        string      `json:"summary"`
	Votes          []ModelVote `json:"votes"`
}

type ModelVote struct {
	Model string  `json:"model"`
	Value float64 `json:"value"`
}

type rawAnalysisResult struct {
	EstimatedValue *float64    `json:"estimatedValue"`
	Confidence     *float64    `json:"confidence"`
	Verdict        *string     `json:"decision"`
	Summary        *string     `json:"summary"`
	Votes          []ModelVote `json:"votes"`
}

func (r rawAnalysisResult) normalize() *AnalysisResult {
	out := &AnalysisResult{Verdict: "UNKNOWN", Votes: r.Votes}
	if r.EstimatedValue != nil {
		out.EstimatedValue = *r.EstimatedValue
	}
	if r.Confidence != nil {
		out.Confidence = *r.Confidence
	}
	if r.Verdict != nil && *r.Verdict != "" {
		out.Verdict = *r.Verdict
	}
	if r.Summary != nil {
		out.Summary = *r.Summary
	}
	return out
}

// Analyze posts a submission. A payload-too-large response is surfaced as
// shared.ErrPayloadTooLarge so callers can tell the user to reduce item count
// or size; it is never retried here.
func (c *Client) Analyze(ctx context.Context, token string, req *Request) (*AnalysisResult, error) {
	body := requestToWire(req)

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/analyze", bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("analysis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusRequestEntityTooLarge {
		return nil, fmt.Errorf("%w: analysis service rejected %d items", shared.ErrPayloadTooLarge, len(req.Items))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("analysis service returned status %d: %s", resp.StatusCode, msg)
	}

	var raw rawAnalysisResult
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return raw.normalize(), nil
}
