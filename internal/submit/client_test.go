package submit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/shared"
)

func minimalRequest() *Request {
	return &Request{
		Items: []RequestItem{{
			Kind:    shared.ItemKindPhoto,
			Name:    "Photo 1",
			Payload: []byte("jpeg-bytes"),
		}},
		Category: "electronics",
	}
}

func TestClient_Analyze(t *testing.T) {
	var gotAuth string
	var gotBody analyzeBody

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/analyze" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"estimatedValue": 42.5,
			"confidence":     0.87,
			"decision":       "BUY",
			"summary":        "solid mid-range phone",
		})
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	res, err := c.Analyze(context.Background(), "tok-123", minimalRequest())
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	if gotAuth != "Bearer tok-123" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotBody.ScanType != "multi-modal" {
		t.Errorf("scan type = %q", gotBody.ScanType)
	}
	if len(gotBody.Items) != 1 || gotBody.Items[0].Type != "photo" {
		t.Errorf("wire items = %+v", gotBody.Items)
	}
	if res.EstimatedValue != 42.5 || res.Verdict != "BUY" {
		t.Errorf("result = %+v", res)
	}
}

func TestClient_Analyze_PayloadTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	_, err := c.Analyze(context.Background(), "tok", minimalRequest())
	if !errors.Is(err, shared.ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestClient_Analyze_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model pool exhausted", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	_, err := c.Analyze(context.Background(), "tok", minimalRequest())
	if err == nil {
		t.Fatal("expected error on 502")
	}
	if errors.Is(err, shared.ErrPayloadTooLarge) {
		t.Error("502 must not map to ErrPayloadTooLarge")
	}
}

func TestClient_Analyze_DefaultsSparseResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	res, err := c.Analyze(context.Background(), "tok", minimalRequest())
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	if res.Verdict != "UNKNOWN" {
		t.Errorf("expected UNKNOWN verdict default, got %q", res.Verdict)
	}
	if res.EstimatedValue != 0 || res.Confidence != 0 {
		t.Errorf("expected zero defaults, got %+v", res)
	}
}

func TestRequestToWire_GhostMode(t *testing.T) {
	req := minimalRequest()
	req.Ghost = readyDraft(t).Snapshot()
	req.DurableURLs = []string{"https://cdn/a.jpg"}

	body := requestToWire(req)

	if body.GhostMode == nil {
		t.Fatal("expected ghost block on wire")
	}
	if body.GhostMode.StoreName != "Goodwill" || body.GhostMode.ShelfPrice != 5 {
		t.Errorf("ghost wire = %+v", body.GhostMode)
	}
	if body.GhostMode.Location == nil {
		t.Error("expected location fix on wire")
	}
	if len(body.OriginalImageURLs) != 1 {
		t.Errorf("durable urls = %v", body.OriginalImageURLs)
	}
}
