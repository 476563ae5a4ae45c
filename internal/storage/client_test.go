package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestUpload(t *testing.T) {
	var gotPath, gotAuth, gotContentType string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Bucket: "scans"})
	url, err := c.Upload(context.Background(), "tok123", "owner1/123_0.jpg", []byte("jpegbytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/object/scans/owner1/123_0.jpg" {
		t.Errorf("unexpected upload path %q", gotPath)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("token should pass through, got %q", gotAuth)
	}
	if gotContentType != "image/jpeg" {
		t.Errorf("unexpected content type %q", gotContentType)
	}
	if string(gotBody) != "jpegbytes" {
		t.Errorf("unexpected body %q", gotBody)
	}
	if url != srv.URL+"/object/public/scans/owner1/123_0.jpg" {
		t.Errorf("unexpected public url %q", url)
	}
}

func TestUpload_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Bucket: "scans"})
	_, err := c.Upload(context.Background(), "tok", "p", nil, "")
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestObjectPath(t *testing.T) {
	ts := time.UnixMilli(1700000000000)
	p := ObjectPath("user_9", ts, 3)
	if p != "user_9/1700000000000_3.jpg" {
		t.Errorf("unexpected path %q", p)
	}
}
