// Package frames extracts still frames from recorded video payloads. A Source
// wraps a single decode context, so extraction is strictly sequential: one
// seek-and-decode at a time, never overlapping.
package frames

import (
	"bytes"
	"fmt"
	"image"
	"time"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/shared"
)

type Source interface {
	// Duration is the playable length of the recording.
	Duration() time.Duration

	// FrameAt decodes the frame nearest to the given offset. Implementations
	// share one decode context and serialize calls internally.
	FrameAt(offset time.Duration) (image.Image, error)

	Close() error
}

// NewSource sniffs the container format of a recorded blob. MJPEG (raw
// concatenated JPEG frames) and IVF-wrapped VP8 are supported.
func NewSource(data []byte) (Source, error) {
	switch {
	case len(data) >= 4 && bytes.Equal(data[:4], []byte("DKIF")):
		return NewIVFSource(data)
	case len(data) >= 3 && data[0] == 0xff && data[1] == 0xd8 && data[2] == 0xff:
		return NewMJPEGSource(data)
	default:
		return nil, fmt.Errorf("%w: unrecognized video container", shared.ErrFrameExtraction)
	}
}
