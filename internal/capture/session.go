package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/compress"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/frames"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/ghost"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/shared"
)

type State string

const (
	StateIdle      State = "idle"
	StateAcquiring State = "acquiring"
	StateActive    State = "active"
	StateError     State = "error"
)

// Session owns the single active device stream for one capture flow, the item
// buffer, and the ghost-mode draft. All mutations are serialized under one
// mutex, which makes buffer eviction and state transitions atomic.
type Session struct {
	id        string
	ownerID   string
	provider  DeviceProvider
	extractor *frames.Extractor
	budget    compress.Options
	events    *EventHub
	logger    *slog.Logger

	mu        sync.Mutex
	state     State
	mode      shared.SessionMode
	deviceID  string
	stream    DeviceStream
	buffer    *Buffer
	ghost     *ghost.Draft
	recording bool
	closed    bool
	startedAt time.Time
}

type SessionConfig struct {
	OwnerID   string
	Provider  DeviceProvider
	Extractor *frames.Extractor
	Locator   ghost.Locator
	Budget    compress.Options
	Logger    *slog.Logger
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Budget.MaxBytes == 0 {
		cfg.Budget = DefaultCaptureBudget()
	}
	if cfg.Extractor == nil {
		cfg.Extractor = frames.NewExtractor(cfg.Logger)
	}

	id := shared.NewID("scan_")
	return &Session{
		id:        id,
		ownerID:   cfg.OwnerID,
		provider:  cfg.Provider,
		extractor: cfg.Extractor,
		budget:    cfg.Budget,
		events:    NewEventHub(),
		logger:    cfg.Logger.With("component", "capture-session", "session_id", id),
		state:     StateIdle,
		buffer:    NewBuffer(),
		ghost:     ghost.NewDraft(cfg.Locator, cfg.Logger),
		startedAt: time.Now(),
	}
}

// DefaultCaptureBudget is the compression policy applied at capture time.
func DefaultCaptureBudget() compress.Options {
	return compress.Options{
		MaxWidth:  1920,
		MaxHeight: 1920,
		MaxBytes:  2 * 1024 * 1024,
		Quality:   compress.DefaultQuality,
	}
}

func (s *Session) ID() string        { return s.id }
func (s *Session) OwnerID() string   { return s.ownerID }
func (s *Session) Events() *EventHub { return s.events }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Mode() shared.SessionMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Session) DeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceID
}

// Start acquires a device stream. Any existing stream is stopped first: two
// concurrent streams are never held. On acquisition failure the session lands
// in the error state and the caller is expected to close it.
func (s *Session) Start(ctx context.Context, deviceID string, mode shared.SessionMode) error {
	if mode == "" {
		mode = shared.ModeImage
	}
	if !mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", shared.ErrValidation, mode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return shared.ErrSessionClosed
	}

	if s.stream != nil {
		_ = s.stream.Stop()
		s.stream = nil
	}

	s.state = StateAcquiring
	w, h := TargetResolution(mode)
	stream, err := s.provider.Acquire(ctx, StreamConstraints{
		DeviceID: deviceID,
		Mode:     mode,
		Width:    w,
		Height:   h,
		Audio:    mode.NeedsAudio(),
	})
	if err != nil {
		s.state = StateError
		s.logger.Error("device acquisition failed", "device_id", deviceID, "error", err)
		if errors.Is(err, shared.ErrDeviceBusy) || errors.Is(err, shared.ErrDeviceAccess) {
			return err
		}
		return fmt.Errorf("%w: %v", shared.ErrDeviceAccess, err)
	}

	s.stream = stream
	s.deviceID = stream.DeviceID()
	s.mode = mode
	s.state = StateActive
	s.events.Publish(Event{Type: EventSessionStarted, SessionID: s.id, Detail: map[string]string{
		"device_id": s.deviceID, "mode": string(mode),
	}})
	return nil
}

// Stop releases the stream and returns the session to idle. Idempotent.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	return nil
}

func (s *Session) stopLocked() {
	if s.stream != nil {
		_ = s.stream.Stop()
		s.stream = nil
	}
	s.recording = false
	s.state = StateIdle
	s.events.Publish(Event{Type: EventSessionStopped, SessionID: s.id})
}

// SwitchDevice is stop-then-start with a new device id.
func (s *Session) SwitchDevice(ctx context.Context, deviceID string) error {
	s.mu.Lock()
	mode := s.mode
	s.mu.Unlock()
	if mode == "" {
		mode = shared.ModeImage
	}

	if err := s.Start(ctx, deviceID, mode); err != nil {
		return err
	}
	s.events.Publish(Event{Type: EventDeviceSwitched, SessionID: s.id, Detail: deviceID})
	return nil
}

// SwitchMode changes the capture mode. The stream is only reacquired when the
// audio requirement changes, since audio tracks are only requested in video
// mode.
func (s *Session) SwitchMode(ctx context.Context, mode shared.SessionMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", shared.ErrValidation, mode)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return shared.ErrSessionClosed
	}
	needsReacquire := s.stream != nil && s.mode.NeedsAudio() != mode.NeedsAudio()
	deviceID := s.deviceID
	if !needsReacquire {
		s.mode = mode
		s.mu.Unlock()
		s.events.Publish(Event{Type: EventModeChanged, SessionID: s.id, Detail: string(mode)})
		return nil
	}
	s.mu.Unlock()

	if err := s.Start(ctx, deviceID, mode); err != nil {
		return err
	}
	s.events.Publish(Event{Type: EventModeChanged, SessionID: s.id, Detail: string(mode)})
	return nil
}

// CapturePhoto compresses an encoded still and adds it to the buffer. A
// compression failure aborts only this item; the session and other items are
// unaffected.
func (s *Session) CapturePhoto(ctx context.Context, name string, kind shared.ItemKind, docType shared.DocumentType, data []byte) (*Item, error) {
	if kind == "" {
		kind = shared.ItemKindPhoto
	}
	if !kind.Valid() || kind == shared.ItemKindVideo {
		return nil, fmt.Errorf("%w: invalid item kind %q for photo capture", shared.ErrValidation, kind)
	}
	if docType != "" && !docType.Valid() {
		return nil, fmt.Errorf("%w: unknown document type %q", shared.ErrValidation, docType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, shared.ErrSessionClosed
	}
	if s.state != StateActive {
		return nil, fmt.Errorf("%w: no active stream", shared.ErrDeviceAccess)
	}

	return s.addStillLocked(name, kind, docType, data)
}

// ImportFile buffers a gallery upload, bypassing the live stream. The session
// only needs to be open, not actively streaming.
func (s *Session) ImportFile(ctx context.Context, name string, kind shared.ItemKind, docType shared.DocumentType, data []byte) (*Item, error) {
	if kind == "" {
		kind = shared.ItemKindPhoto
	}
	if !kind.Valid() || kind == shared.ItemKindVideo {
		return nil, fmt.Errorf("%w: invalid item kind %q for file import", shared.ErrValidation, kind)
	}
	if docType != "" && !docType.Valid() {
		return nil, fmt.Errorf("%w: unknown document type %q", shared.ErrValidation, docType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, shared.ErrSessionClosed
	}

	return s.addStillLocked(name, kind, docType, data)
}

func (s *Session) addStillLocked(name string, kind shared.ItemKind, docType shared.DocumentType, data []byte) (*Item, error) {
	res, err := compress.Image(data, s.budget)
	if err != nil {
		s.logger.Warn("item capture aborted", "name", name, "error", err)
		return nil, err
	}

	thumb, err := compress.Thumbnail(res.Data)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = fmt.Sprintf("%s %s", kind, time.Now().Format("15:04:05"))
	}

	item := &Item{
		ID:              shared.NewID("item_"),
		Kind:            kind,
		Name:            name,
		Payload:         res.Data,
		OriginalPayload: data,
		Thumbnail:       thumb,
		CreatedAt:       time.Now(),
		Meta: Metadata{
			DocumentType:    docType,
			OriginalBytes:   res.OriginalBytes,
			CompressedBytes: res.CompressedBytes,
		},
	}

	s.addItemLocked(item)
	return item, nil
}

func (s *Session) addItemLocked(item *Item) {
	evicted := s.buffer.Add(item)
	if evicted != nil {
		s.events.Publish(Event{Type: EventItemEvicted, SessionID: s.id, ItemID: evicted.ID})
	}
	s.events.Publish(Event{Type: EventItemAdded, SessionID: s.id, ItemID: item.ID})
	s.logger.Debug("item buffered", "item_id", item.ID, "kind", item.Kind,
		"original_bytes", item.Meta.OriginalBytes, "compressed_bytes", item.Meta.CompressedBytes)
}

// StartRecording marks the session as recording. The stream must be active in
// video mode.
func (s *Session) StartRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return shared.ErrSessionClosed
	}
	if s.state != StateActive {
		return fmt.Errorf("%w: no active stream", shared.ErrDeviceAccess)
	}
	if s.mode != shared.ModeVideo {
		return fmt.Errorf("%w: not in video mode", shared.ErrValidation)
	}
	if s.recording {
		return fmt.Errorf("%w: already recording", shared.ErrValidation)
	}

	s.recording = true
	s.events.Publish(Event{Type: EventRecordingStarted, SessionID: s.id})
	return nil
}

// StopRecording turns the recorded blob into a buffered video item. The
// payload is always a still frame: the thumbnail comes from the recording's
// midpoint and the representative frames from evenly spaced seeks. A frame
// extraction failure keeps the item with whatever thumbnail was generated and
// no additional frames; only a recording from which no frame at all can be
// decoded is rejected.
func (s *Session) StopRecording(ctx context.Context, name string, videoData []byte) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, shared.ErrSessionClosed
	}
	if !s.recording {
		return nil, fmt.Errorf("%w: not recording", shared.ErrValidation)
	}
	s.recording = false
	s.events.Publish(Event{Type: EventRecordingStopped, SessionID: s.id})

	src, err := frames.NewSource(videoData)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	thumb, thumbErr := s.extractor.Thumbnail(src)
	stills, extractErr := s.extractor.Extract(ctx, src, frames.DefaultFrameCount)
	if extractErr != nil {
		s.logger.Warn("frame extraction failed, keeping item without frames", "error", extractErr)
	}

	var payload []byte
	var extra [][]byte
	switch {
	case len(stills) > 0:
		payload = stills[0]
		extra = stills[1:]
	case thumbErr == nil:
		payload = thumb
	default:
		// No decodable frame anywhere in the recording.
		return nil, fmt.Errorf("%w: no decodable frame in recording", shared.ErrFrameExtraction)
	}

	if thumbErr != nil {
		thumb = payload
	}

	if name == "" {
		name = fmt.Sprintf("video %s", time.Now().Format("15:04:05"))
	}

	item := &Item{
		ID:              shared.NewID("item_"),
		Kind:            shared.ItemKindVideo,
		Name:            name,
		Payload:         payload,
		OriginalPayload: videoData,
		Thumbnail:       thumb,
		CreatedAt:       time.Now(),
		Meta: Metadata{
			VideoFrames:     extra,
			OriginalBytes:   int64(len(videoData)),
			CompressedBytes: int64(len(payload)),
		},
	}

	s.addItemLocked(item)
	return item, nil
}

func (s *Session) Items() []*Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Items()
}

func (s *Session) SelectedItems() []*Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Selected()
}

func (s *Session) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Len()
}

func (s *Session) ToggleSelect(id string) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, err := s.buffer.ToggleSelect(id)
	if err != nil {
		return nil, err
	}
	s.events.Publish(Event{Type: EventSelectionChanged, SessionID: s.id, ItemID: id, Detail: it.Selected})
	return it, nil
}

func (s *Session) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer.SelectAll()
	s.events.Publish(Event{Type: EventSelectionChanged, SessionID: s.id, Detail: "all"})
}

func (s *Session) DeselectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer.DeselectAll()
	s.events.Publish(Event{Type: EventSelectionChanged, SessionID: s.id, Detail: "none"})
}

func (s *Session) RemoveItem(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.buffer.Remove(id); err != nil {
		return err
	}
	s.events.Publish(Event{Type: EventItemRemoved, SessionID: s.id, ItemID: id})
	return nil
}

func (s *Session) ClearItems() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer.Clear()
	s.events.Publish(Event{Type: EventBufferCleared, SessionID: s.id})
}

// Ghost returns the session's ghost-mode draft.
func (s *Session) Ghost() *ghost.Draft {
	return s.ghost
}

func (s *Session) ToggleGhost(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return shared.ErrSessionClosed
	}
	s.mu.Unlock()

	err := s.ghost.Toggle(ctx, enabled)
	s.events.Publish(Event{Type: EventGhostToggled, SessionID: s.id, Detail: enabled})
	return err
}

// Close is the session's single cancellation signal: it releases the device
// stream, aborts any in-progress recording, discards the ghost draft, and
// clears the buffer. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.stopLocked()
	s.buffer.Clear()
	_ = s.ghost.Toggle(context.Background(), false)
	s.events.Publish(Event{Type: EventSessionClosed, SessionID: s.id})
	s.events.Close()
	s.logger.Info("capture session closed")
	return nil
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
