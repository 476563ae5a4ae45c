package frames

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"sync"
	"time"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/shared"
)

// mjpegFPS is the assumed frame rate of raw MJPEG recordings; the container
// carries no timing information.
const mjpegFPS = 30

// MJPEGSource reads a stream of concatenated JPEG frames. Decoding is guarded
// by a mutex: the source stands in for a single shared decode element.
type MJPEGSource struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func NewMJPEGSource(data []byte) (*MJPEGSource, error) {
	frames := splitJPEGFrames(data)
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no JPEG frames found", shared.ErrFrameExtraction)
	}
	return &MJPEGSource{frames: frames}, nil
}

func (s *MJPEGSource) FrameCount() int {
	return len(s.frames)
}

func (s *MJPEGSource) Duration() time.Duration {
	return time.Duration(len(s.frames)) * time.Second / mjpegFPS
}

func (s *MJPEGSource) FrameAt(offset time.Duration) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("%w: source closed", shared.ErrFrameExtraction)
	}

	idx := int(offset.Seconds() * mjpegFPS)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(s.frames) {
		idx = len(s.frames) - 1
	}

	img, err := jpeg.Decode(bytes.NewReader(s.frames[idx]))
	if err != nil {
		return nil, fmt.Errorf("%w: decode frame %d: %v", shared.ErrFrameExtraction, idx, err)
	}
	return img, nil
}

func (s *MJPEGSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.frames = nil
	return nil
}

// splitJPEGFrames scans for SOI/EOI marker pairs. Markers inside entropy-coded
// data are always byte-stuffed, so a bare FFD8/FFD9 delimits a frame.
func splitJPEGFrames(data []byte) [][]byte {
	var frames [][]byte
	start := -1
	for i := 0; i+1 < len(data); i++ {
		if data[i] != 0xff {
			continue
		}
		switch data[i+1] {
		case 0xd8:
			if start < 0 {
				start = i
			}
		case 0xd9:
			if start >= 0 {
				frames = append(frames, data[start:i+2])
				start = -1
			}
		}
	}
	return frames
}
