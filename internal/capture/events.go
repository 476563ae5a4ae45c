package capture

import (
	"sync"
	"time"
)

type EventType string

const (
	EventSessionStarted   EventType = "session_started"
	EventSessionStopped   EventType = "session_stopped"
	EventSessionClosed    EventType = "session_closed"
	EventModeChanged      EventType = "mode_changed"
	EventDeviceSwitched   EventType = "device_switched"
	EventItemAdded        EventType = "item_added"
	EventItemEvicted      EventType = "item_evicted"
	EventItemRemoved      EventType = "item_removed"
	EventSelectionChanged EventType = "selection_changed"
	EventBufferCleared    EventType = "buffer_cleared"
	EventGhostToggled     EventType = "ghost_toggled"
	EventRecordingStarted EventType = "recording_started"
	EventRecordingStopped EventType = "recording_stopped"
	EventUploadProgress   EventType = "upload_progress"
	EventSubmissionDone   EventType = "submission_done"
)

type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	ItemID    string    `json:"item_id,omitempty"`
	Detail    any       `json:"detail,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// EventHub fans session events out to websocket subscribers. Publishing never
// blocks: a subscriber that cannot keep up drops events.
type EventHub struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	closed bool
}

func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[chan Event]struct{})}
}

func (h *EventHub) Publish(evt Event) {
	if evt.Timestamp == 0 {
		evt.Timestamp = time.Now().UnixMilli()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribe returns a channel of events and an unsubscribe function. The
// channel is closed when the hub closes.
func (h *EventHub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
		delete(h.subs, ch)
	}
}

func (h *EventHub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
