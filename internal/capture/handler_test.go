package capture

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/auth"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/dto"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/ghost"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/shared"
	"github.com/labstack/echo/v4"
)

func newTestHandler(t *testing.T) (*Handler, *Manager) {
	t.Helper()
	m := NewManager(ManagerConfig{
		Locator: &staticLocator{loc: &ghost.Location{Lat: 40.7, Lng: -74.0}},
		Logger:  discardLogger(),
	})
	t.Cleanup(func() { _ = m.Close() })
	return NewHandler(m, nil, discardLogger()), m
}

func doRequest(t *testing.T, h echo.HandlerFunc, method, path, body, owner string, params map[string]string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	names := make([]string, 0, len(params))
	values := make([]string, 0, len(params))
	for k, v := range params {
		names = append(names, k)
		values = append(values, v)
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	if owner != "" {
		auth.SetForTest(c, "test-token", owner)
	}
	return rec, h(c)
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T: %v", err, err)
	}
	return he.Code
}

func openTestSession(t *testing.T, m *Manager) *Session {
	t.Helper()
	sess, err := m.Open(context.Background(), "user-1", "", shared.ModeImage)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	return sess
}

func TestHandler_StartSession(t *testing.T) {
	h, m := newTestHandler(t)

	rec, err := doRequest(t, h.StartSession, http.MethodPost, "/sessions",
		`{"mode":"image"}`, "user-1", nil)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp dto.SessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.State != string(StateActive) || resp.Mode != "image" {
		t.Errorf("response = %+v", resp)
	}
	if m.SessionCount() != 1 {
		t.Errorf("session count = %d", m.SessionCount())
	}
}

func TestHandler_StartSession_DeviceBusy(t *testing.T) {
	h, m := newTestHandler(t)
	openTestSession(t, m)

	_, err := doRequest(t, h.StartSession, http.MethodPost, "/sessions",
		`{"device_id":"default"}`, "user-2", nil)
	if status := httpStatus(t, err); status != http.StatusConflict {
		t.Errorf("status = %d, expected 409", status)
	}
}

func TestHandler_StartSession_InvalidMode(t *testing.T) {
	h, _ := newTestHandler(t)

	_, err := doRequest(t, h.StartSession, http.MethodPost, "/sessions",
		`{"mode":"panorama"}`, "user-1", nil)
	if status := httpStatus(t, err); status != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", status)
	}
}

func TestHandler_StartSession_Unauthorized(t *testing.T) {
	h, _ := newTestHandler(t)

	_, err := doRequest(t, h.StartSession, http.MethodPost, "/sessions", `{}`, "", nil)
	if status := httpStatus(t, err); status != http.StatusUnauthorized {
		t.Errorf("status = %d, expected 401", status)
	}
}

func TestHandler_GetSession_OwnershipEnforced(t *testing.T) {
	h, m := newTestHandler(t)
	sess := openTestSession(t, m)

	rec, err := doRequest(t, h.GetSession, http.MethodGet, "/sessions/"+sess.ID(),
		"", "user-1", map[string]string{"id": sess.ID()})
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}

	_, err = doRequest(t, h.GetSession, http.MethodGet, "/sessions/"+sess.ID(),
		"", "user-2", map[string]string{"id": sess.ID()})
	if status := httpStatus(t, err); status != http.StatusNotFound {
		t.Errorf("status = %d, expected 404 for foreign owner", status)
	}
}

func TestHandler_CapturePhoto(t *testing.T) {
	h, m := newTestHandler(t)
	sess := openTestSession(t, m)

	body, _ := json.Marshal(dto.CaptureRequest{
		Name: "Front",
		Data: base64.StdEncoding.EncodeToString(testJPEG(t)),
	})
	rec, err := doRequest(t, h.CapturePhoto, http.MethodPost, "/sessions/"+sess.ID()+"/photos",
		string(body), "user-1", map[string]string{"id": sess.ID()})
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.ItemResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Name != "Front" || !resp.Selected {
		t.Errorf("response = %+v", resp)
	}
	if resp.Thumbnail == "" {
		t.Error("expected thumbnail in response")
	}
}

func TestHandler_CapturePhoto_BadData(t *testing.T) {
	h, m := newTestHandler(t)
	sess := openTestSession(t, m)
	params := map[string]string{"id": sess.ID()}

	_, err := doRequest(t, h.CapturePhoto, http.MethodPost, "/x", `{"data":""}`, "user-1", params)
	if status := httpStatus(t, err); status != http.StatusBadRequest {
		t.Errorf("empty data: status = %d", status)
	}

	_, err = doRequest(t, h.CapturePhoto, http.MethodPost, "/x", `{"data":"%%%"}`, "user-1", params)
	if status := httpStatus(t, err); status != http.StatusBadRequest {
		t.Errorf("bad base64: status = %d", status)
	}

	junk := base64.StdEncoding.EncodeToString([]byte("not an image"))
	_, err = doRequest(t, h.CapturePhoto, http.MethodPost, "/x", `{"data":"`+junk+`"}`, "user-1", params)
	if status := httpStatus(t, err); status != http.StatusBadRequest {
		t.Errorf("undecodable image: status = %d", status)
	}
}

func TestHandler_SelectionOps(t *testing.T) {
	h, m := newTestHandler(t)
	sess := openTestSession(t, m)

	item, err := sess.CapturePhoto(context.Background(), "", shared.ItemKindPhoto, "", testJPEG(t))
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}

	rec, err := doRequest(t, h.ToggleSelect, http.MethodPost, "/x", "", "user-1",
		map[string]string{"id": sess.ID(), "itemID": item.ID})
	if err != nil {
		t.Fatalf("toggle returned error: %v", err)
	}
	var resp dto.ItemResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Selected {
		t.Error("expected item deselected")
	}

	_, err = doRequest(t, h.ToggleSelect, http.MethodPost, "/x", "", "user-1",
		map[string]string{"id": sess.ID(), "itemID": "missing"})
	if status := httpStatus(t, err); status != http.StatusNotFound {
		t.Errorf("status = %d, expected 404", status)
	}

	if _, err := doRequest(t, h.SelectAll, http.MethodPost, "/x", "", "user-1",
		map[string]string{"id": sess.ID()}); err != nil {
		t.Fatalf("select-all returned error: %v", err)
	}
	if len(sess.SelectedItems()) != 1 {
		t.Error("select-all did not select the item")
	}
}

func TestHandler_UpdateGhost(t *testing.T) {
	h, m := newTestHandler(t)
	sess := openTestSession(t, m)
	params := map[string]string{"id": sess.ID()}

	body := `{"enabled":true,"store_type":"thrift","store_name":"Goodwill","shelf_price":5,"handling_hours":24}`
	rec, err := doRequest(t, h.UpdateGhost, http.MethodPut, "/x", body, "user-1", params)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	var resp dto.GhostResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Enabled || !resp.Ready || !resp.HasLocation {
		t.Errorf("response = %+v", resp)
	}
	if resp.StoreName != "Goodwill" || resp.ShelfPrice != 5 {
		t.Errorf("store fields = %+v", resp)
	}

	// Disabling clears the store details.
	rec, err = doRequest(t, h.UpdateGhost, http.MethodPut, "/x", `{"enabled":false}`, "user-1", params)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Enabled || resp.StoreName != "" {
		t.Errorf("response after disable = %+v", resp)
	}
}

func TestHandler_UpdateGhost_InvalidStoreType(t *testing.T) {
	h, m := newTestHandler(t)
	sess := openTestSession(t, m)

	body := `{"enabled":true,"store_type":"mall"}`
	_, err := doRequest(t, h.UpdateGhost, http.MethodPut, "/x", body, "user-1",
		map[string]string{"id": sess.ID()})
	if status := httpStatus(t, err); status != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", status)
	}
}

func TestHandler_CloseSession(t *testing.T) {
	h, m := newTestHandler(t)
	sess := openTestSession(t, m)

	rec, err := doRequest(t, h.CloseSession, http.MethodDelete, "/x", "", "user-1",
		map[string]string{"id": sess.ID()})
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}
	if m.SessionCount() != 0 {
		t.Errorf("session count = %d", m.SessionCount())
	}
}
