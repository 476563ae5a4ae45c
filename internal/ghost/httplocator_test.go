package ghost

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPLocator_Locate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Query().Get("key") != "k123" {
			t.Errorf("key = %q", r.URL.Query().Get("key"))
		}
		w.Write([]byte(`{"location":{"lat":40.7128,"lng":-74.006},"accuracy":12.5}`))
	}))
	defer srv.Close()

	l := NewHTTPLocator(HTTPLocatorConfig{URL: srv.URL, APIKey: "k123"})
	loc, err := l.Locate(context.Background())
	if err != nil {
		t.Fatalf("locate failed: %v", err)
	}

	if loc.Lat != 40.7128 || loc.Lng != -74.006 {
		t.Errorf("fix = %+v", loc)
	}
	if loc.AccuracyMeters != 12.5 {
		t.Errorf("accuracy = %v", loc.AccuracyMeters)
	}
	if loc.CapturedAtMs == 0 {
		t.Error("expected capture timestamp")
	}
}

func TestHTTPLocator_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer srv.Close()

	l := NewHTTPLocator(HTTPLocatorConfig{URL: srv.URL})
	if _, err := l.Locate(context.Background()); err == nil {
		t.Fatal("expected error on 403")
	}
}

func TestHTTPLocator_Unconfigured(t *testing.T) {
	l := NewHTTPLocator(HTTPLocatorConfig{})
	if _, err := l.Locate(context.Background()); err == nil {
		t.Fatal("expected error when no service is configured")
	}
}
