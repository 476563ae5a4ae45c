package capture

import (
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/auth"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/dto"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/shared"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// maxUploadBytes bounds a single captured media upload.
	maxUploadBytes = 64 * 1024 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Handler struct {
	manager *Manager
	store   *Store
	logger  *slog.Logger
}

func NewHandler(manager *Manager, store *Store, logger *slog.Logger) *Handler {
	return &Handler{manager: manager, store: store, logger: logger}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/sessions", h.StartSession)
	g.GET("/sessions/:id", h.GetSession)
	g.DELETE("/sessions/:id", h.CloseSession)
	g.POST("/sessions/:id/stop", h.StopStream)
	g.PATCH("/sessions/:id/mode", h.SwitchMode)
	g.PATCH("/sessions/:id/device", h.SwitchDevice)
	g.POST("/sessions/:id/photos", h.CapturePhoto)
	g.POST("/sessions/:id/files", h.ImportFile)
	g.POST("/sessions/:id/recordings", h.StartRecording)
	g.PUT("/sessions/:id/recordings", h.StopRecording)
	g.GET("/sessions/:id/items", h.ListItems)
	g.GET("/sessions/:id/thumbnails", h.Thumbnails)
	g.PATCH("/sessions/:id/items/:itemID", h.ToggleSelect)
	g.POST("/sessions/:id/items/select-all", h.SelectAll)
	g.POST("/sessions/:id/items/deselect-all", h.DeselectAll)
	g.DELETE("/sessions/:id/items/:itemID", h.RemoveItem)
	g.DELETE("/sessions/:id/items", h.ClearItems)
	g.PUT("/sessions/:id/ghost", h.UpdateGhost)
	g.GET("/sessions/:id/events", h.Events)
}

func (h *Handler) session(c echo.Context) (*Session, error) {
	owner, err := auth.Owner(c)
	if err != nil {
		return nil, shared.Unauthorized("unauthorized", "authentication required")
	}
	sess, err := h.manager.GetOwned(c.Param("id"), owner)
	if err != nil {
		return nil, shared.NotFound("session_not_found", "session not found")
	}
	return sess, nil
}

func (h *Handler) StartSession(c echo.Context) error {
	owner, err := auth.Owner(c)
	if err != nil {
		return shared.Unauthorized("unauthorized", "authentication required")
	}

	var req dto.StartSessionRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_body", "invalid request body")
	}

	mode := shared.SessionMode(req.Mode)
	if mode == "" {
		mode = shared.ModeImage
	}
	if !mode.Valid() {
		return shared.BadRequest("invalid_mode", "unknown session mode")
	}

	sess, err := h.manager.Open(c.Request().Context(), owner, req.DeviceID, mode)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrDeviceBusy):
			return shared.Conflict("device_busy", "device is in use by another session")
		case errors.Is(err, shared.ErrDeviceAccess):
			return shared.BadRequest("device_access", "camera access failed")
		default:
			h.logger.Error("session open failed", "owner", owner, "error", err)
			return shared.InternalError("session_failed", "failed to open session")
		}
	}

	return c.JSON(http.StatusCreated, sessionToResponse(sess))
}

func (h *Handler) GetSession(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionToResponse(sess))
}

func (h *Handler) CloseSession(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	h.manager.CloseSession(c.Request().Context(), sess.ID())
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) StopStream(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	if err := sess.Stop(); err != nil {
		return h.mapSessionError(err)
	}
	h.manager.Touch(c.Request().Context(), sess)
	return c.JSON(http.StatusOK, sessionToResponse(sess))
}

func (h *Handler) SwitchMode(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	var req dto.SwitchModeRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_body", "invalid request body")
	}

	mode := shared.SessionMode(req.Mode)
	if !mode.Valid() {
		return shared.BadRequest("invalid_mode", "unknown session mode")
	}

	if err := sess.SwitchMode(c.Request().Context(), mode); err != nil {
		return h.mapSessionError(err)
	}
	h.manager.Touch(c.Request().Context(), sess)
	return c.JSON(http.StatusOK, sessionToResponse(sess))
}

func (h *Handler) SwitchDevice(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	var req dto.SwitchDeviceRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_body", "invalid request body")
	}
	if req.DeviceID == "" {
		return shared.BadRequest("missing_device", "device_id is required")
	}

	if err := sess.SwitchDevice(c.Request().Context(), req.DeviceID); err != nil {
		return h.mapSessionError(err)
	}
	h.manager.Touch(c.Request().Context(), sess)
	return c.JSON(http.StatusOK, sessionToResponse(sess))
}

func (h *Handler) CapturePhoto(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	req, data, err := decodeCaptureRequest(c)
	if err != nil {
		return err
	}

	item, err := sess.CapturePhoto(c.Request().Context(), req.Name,
		shared.ItemKind(req.Kind), shared.DocumentType(req.DocumentType), data)
	if err != nil {
		return h.mapSessionError(err)
	}

	h.cacheThumbnail(c, sess, item)
	h.manager.Touch(c.Request().Context(), sess)
	return c.JSON(http.StatusCreated, itemToResponse(item))
}

// ImportFile accepts gallery media as a multipart upload. Unlike CapturePhoto
// it does not require an active stream.
func (h *Handler) ImportFile(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	file, err := c.FormFile("file")
	if err != nil {
		return shared.BadRequest("missing_file", "file part is required")
	}
	if file.Size > maxUploadBytes {
		return shared.PayloadTooLarge("file_too_large", "uploaded file exceeds the size limit")
	}

	src, err := file.Open()
	if err != nil {
		return shared.BadRequest("unreadable_file", "could not read uploaded file")
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxUploadBytes))
	if err != nil {
		return shared.BadRequest("unreadable_file", "could not read uploaded file")
	}

	item, err := sess.ImportFile(c.Request().Context(), file.Filename,
		shared.ItemKind(c.FormValue("kind")), shared.DocumentType(c.FormValue("document_type")), data)
	if err != nil {
		return h.mapSessionError(err)
	}

	h.cacheThumbnail(c, sess, item)
	h.manager.Touch(c.Request().Context(), sess)
	return c.JSON(http.StatusCreated, itemToResponse(item))
}

func (h *Handler) StartRecording(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	if err := sess.StartRecording(); err != nil {
		return h.mapSessionError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) StopRecording(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	req, data, err := decodeCaptureRequest(c)
	if err != nil {
		return err
	}

	item, err := sess.StopRecording(c.Request().Context(), req.Name, data)
	if err != nil {
		return h.mapSessionError(err)
	}

	h.cacheThumbnail(c, sess, item)
	h.manager.Touch(c.Request().Context(), sess)
	return c.JSON(http.StatusCreated, itemToResponse(item))
}

func (h *Handler) ListItems(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	items := sess.Items()
	resp := dto.ItemListResponse{Items: make([]dto.ItemResponse, 0, len(items))}
	for _, it := range items {
		resp.Items = append(resp.Items, itemToResponse(it))
	}
	return c.JSON(http.StatusOK, resp)
}

// Thumbnails serves the redis-backed thumbnail cache, which survives process
// handoff between instances.
func (h *Handler) Thumbnails(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	if h.store == nil {
		return c.JSON(http.StatusOK, map[string]any{"thumbnails": []CachedThumbnail{}})
	}

	thumbs, err := h.store.Thumbnails(c.Request().Context(), sess.ID())
	if err != nil {
		h.logger.Error("thumbnail cache read failed", "session_id", sess.ID(), "error", err)
		return shared.InternalError("thumbnails_failed", "failed to read thumbnails")
	}
	return c.JSON(http.StatusOK, map[string]any{"thumbnails": thumbs})
}

func (h *Handler) ToggleSelect(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	item, err := sess.ToggleSelect(c.Param("itemID"))
	if err != nil {
		return h.mapSessionError(err)
	}
	return c.JSON(http.StatusOK, itemToResponse(item))
}

func (h *Handler) SelectAll(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	sess.SelectAll()
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeselectAll(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	sess.DeselectAll()
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RemoveItem(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	if err := sess.RemoveItem(c.Param("itemID")); err != nil {
		return h.mapSessionError(err)
	}
	h.manager.Touch(c.Request().Context(), sess)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ClearItems(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	sess.ClearItems()
	h.manager.Touch(c.Request().Context(), sess)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UpdateGhost(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	var req dto.GhostUpdateRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_body", "invalid request body")
	}

	if req.Enabled != nil {
		if err := sess.ToggleGhost(c.Request().Context(), *req.Enabled); err != nil {
			if errors.Is(err, shared.ErrGeolocation) {
				// Enabled but without a fix; the client shows the state and
				// lets the user retry.
				return c.JSON(http.StatusOK, ghostToResponse(sess))
			}
			return h.mapSessionError(err)
		}
	}

	if sess.Ghost().Enabled() && hasGhostFields(&req) {
		err := sess.Ghost().Update(shared.StoreType(req.StoreType), req.StoreName,
			req.StoreAisle, req.ShelfPrice, req.HandlingHours)
		if err != nil {
			return h.mapSessionError(err)
		}
	}

	h.manager.Touch(c.Request().Context(), sess)
	return c.JSON(http.StatusOK, ghostToResponse(sess))
}

func hasGhostFields(req *dto.GhostUpdateRequest) bool {
	return req.StoreType != "" || req.StoreName != "" || req.StoreAisle != "" ||
		req.ShelfPrice != 0 || req.HandlingHours != 0
}

// Events streams session events over a websocket until the client disconnects
// or the session closes.
func (h *Handler) Events(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	events, cancel := sess.Events().Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ws.SetReadLimit(512)
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
				_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
				return nil
			}
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(evt); err != nil {
				return nil
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-done:
			return nil
		}
	}
}

func (h *Handler) cacheThumbnail(c echo.Context, sess *Session, item *Item) {
	if h.store == nil {
		return
	}
	err := h.store.CacheThumbnail(c.Request().Context(), sess.ID(), item.ID,
		item.CreatedAt.UnixMilli(), item.Thumbnail)
	if err != nil {
		h.logger.Warn("thumbnail cache write failed", "item_id", item.ID, "error", err)
	}
}

func (h *Handler) mapSessionError(err error) error {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return shared.NotFound("item_not_found", "item not found")
	case errors.Is(err, shared.ErrSessionClosed):
		return shared.Conflict("session_closed", "session is closed")
	case errors.Is(err, shared.ErrDeviceBusy):
		return shared.Conflict("device_busy", "device is in use by another session")
	case errors.Is(err, shared.ErrDeviceAccess):
		return shared.BadRequest("device_access", "camera access failed")
	case errors.Is(err, shared.ErrValidation):
		return shared.BadRequest("invalid_request", err.Error())
	case errors.Is(err, shared.ErrCompression), errors.Is(err, shared.ErrFrameExtraction):
		return shared.BadRequest("unprocessable_media", "could not process the captured media")
	default:
		h.logger.Error("session operation failed", "error", err)
		return shared.InternalError("capture_failed", "capture operation failed")
	}
}

func decodeCaptureRequest(c echo.Context) (*dto.CaptureRequest, []byte, error) {
	var req dto.CaptureRequest
	if err := c.Bind(&req); err != nil {
		return nil, nil, shared.BadRequest("invalid_body", "invalid request body")
	}
	if req.Data == "" {
		return nil, nil, shared.BadRequest("missing_data", "data is required")
	}

	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return nil, nil, shared.BadRequest("invalid_data", "data must be base64")
	}
	if len(data) > maxUploadBytes {
		return nil, nil, shared.PayloadTooLarge("data_too_large", "payload exceeds the size limit")
	}
	return &req, data, nil
}

func sessionToResponse(s *Session) dto.SessionResponse {
	return dto.SessionResponse{
		ID:           s.ID(),
		OwnerID:      s.OwnerID(),
		State:        string(s.State()),
		Mode:         string(s.Mode()),
		DeviceID:     s.DeviceID(),
		ItemCount:    s.ItemCount(),
		GhostEnabled: s.Ghost().Enabled(),
		GhostReady:   s.Ghost().IsReady(),
	}
}

func itemToResponse(it *Item) dto.ItemResponse {
	return dto.ItemResponse{
		ID:              it.ID,
		Kind:            string(it.Kind),
		Name:            it.Name,
		Selected:        it.Selected,
		DocumentType:    string(it.Meta.DocumentType),
		FrameCount:      len(it.Meta.VideoFrames),
		OriginalBytes:   it.Meta.OriginalBytes,
		CompressedBytes: it.Meta.CompressedBytes,
		Thumbnail:       base64.StdEncoding.EncodeToString(it.Thumbnail),
	}
}

func ghostToResponse(s *Session) dto.GhostResponse {
	g := s.Ghost()
	listing := g.Snapshot()

	resp := dto.GhostResponse{
		Enabled:       g.Enabled(),
		Ready:         g.IsReady(),
		HasLocation:   listing.Location != nil,
		StoreType:     string(listing.StoreType),
		StoreName:     listing.StoreName,
		StoreAisle:    listing.StoreAisle,
		ShelfPrice:    listing.ShelfPrice,
		HandlingHours: listing.HandlingHours,
	}
	if err := g.LocationError(); err != nil {
		resp.LocationError = err.Error()
	}
	return resp
}
