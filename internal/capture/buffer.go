package capture

import (
	"fmt"
	"time"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/shared"
)

// MaxBufferItems caps the item buffer. Adding past the cap evicts the oldest
// surviving item (FIFO); insertion order is preserved for the remainder.
const MaxBufferItems = 15

// Item is one piece of captured evidence.
type Item struct {
	ID   string
	Kind shared.ItemKind
	Name string

	// Payload is the compressed encoding bound for analysis. For video items
	// it is always a still frame, never raw video bytes.
	Payload []byte

	// OriginalPayload is the capture as recorded, prior to compression. It is
	// what the upload orchestrator persists to durable storage.
	OriginalPayload []byte

	// Thumbnail is never empty.
	Thumbnail []byte

	Selected  bool
	CreatedAt time.Time
	Meta      Metadata
}

type Metadata struct {
	DocumentType    shared.DocumentType
	VideoFrames     [][]byte
	OriginalBytes   int64
	CompressedBytes int64
}

// Buffer is the bounded, ordered collection of captured items. It is not
// safe for concurrent use on its own; the owning session serializes access.
type Buffer struct {
	items []*Item
}

func NewBuffer() *Buffer {
	return &Buffer{items: make([]*Item, 0, MaxBufferItems)}
}

// Add appends an item, auto-selecting it, and returns the evicted item if the
// buffer was full.
func (b *Buffer) Add(item *Item) *Item {
	item.Selected = true

	var evicted *Item
	if len(b.items) >= MaxBufferItems {
		evicted = b.items[0]
		copy(b.items, b.items[1:])
		b.items = b.items[:len(b.items)-1]
	}

	b.items = append(b.items, item)
	return evicted
}

func (b *Buffer) Get(id string) (*Item, bool) {
	for _, it := range b.items {
		if it.ID == id {
			return it, true
		}
	}
	return nil, false
}

func (b *Buffer) ToggleSelect(id string) (*Item, error) {
	it, ok := b.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: item %s", shared.ErrNotFound, id)
	}
	it.Selected = !it.Selected
	return it, nil
}

func (b *Buffer) SelectAll() {
	for _, it := range b.items {
		it.Selected = true
	}
}

func (b *Buffer) DeselectAll() {
	for _, it := range b.items {
		it.Selected = false
	}
}

func (b *Buffer) Remove(id string) error {
	for i, it := range b.items {
		if it.ID == id {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: item %s", shared.ErrNotFound, id)
}

func (b *Buffer) Clear() {
	b.items = b.items[:0]
}

func (b *Buffer) Len() int {
	return len(b.items)
}

// Items returns the buffer contents in insertion order.
func (b *Buffer) Items() []*Item {
	out := make([]*Item, len(b.items))
	copy(out, b.items)
	return out
}

// Selected returns the selected items in insertion order.
func (b *Buffer) Selected() []*Item {
	var out []*Item
	for _, it := range b.items {
		if it.Selected {
			out = append(out, it)
		}
	}
	return out
}
