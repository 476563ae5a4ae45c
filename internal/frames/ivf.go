package frames

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"sync"
	"time"

	"golang.org/x/image/vp8"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/shared"
)

const (
	ivfHeaderSize      = 32
	ivfFrameHeaderSize = 12
)

type ivfFrame struct {
	data []byte
	pts  uint64
	key  bool
}

// IVFSource reads VP8 frames from an IVF container. Only keyframes are
// independently decodable, so seeks snap to the nearest keyframe at or before
// the requested offset.
type IVFSource struct {
	mu     sync.Mutex
	frames []ivfFrame
	// timebase: seconds per pts tick = num/den
	num, den uint32
	closed   bool
}

func NewIVFSource(data []byte) (*IVFSource, error) {
	if len(data) < ivfHeaderSize {
		return nil, fmt.Errorf("%w: truncated IVF header", shared.ErrFrameExtraction)
	}
	if !bytes.Equal(data[:4], []byte("DKIF")) {
		return nil, fmt.Errorf("%w: not an IVF container", shared.ErrFrameExtraction)
	}
	if !bytes.Equal(data[8:12], []byte("VP80")) {
		return nil, fmt.Errorf("%w: unsupported codec %q (only VP8 supported)", shared.ErrFrameExtraction, data[8:12])
	}

	den := binary.LittleEndian.Uint32(data[16:20])
	num := binary.LittleEndian.Uint32(data[20:24])
	if den == 0 {
		den = 30
		num = 1
	}
	if num == 0 {
		num = 1
	}

	src := &IVFSource{num: num, den: den}
	off := ivfHeaderSize
	for off+ivfFrameHeaderSize <= len(data) {
		size := int(binary.LittleEndian.Uint32(data[off : off+4]))
		pts := binary.LittleEndian.Uint64(data[off+4 : off+12])
		off += ivfFrameHeaderSize
		if size <= 0 || off+size > len(data) {
			break
		}
		payload := data[off : off+size]
		off += size
		src.frames = append(src.frames, ivfFrame{
			data: payload,
			pts:  pts,
			key:  payload[0]&0x01 == 0,
		})
	}

	if len(src.frames) == 0 {
		return nil, fmt.Errorf("%w: no frames in IVF container", shared.ErrFrameExtraction)
	}
	return src, nil
}

func (s *IVFSource) Duration() time.Duration {
	last := s.frames[len(s.frames)-1].pts + 1
	secs := float64(last) * float64(s.num) / float64(s.den)
	return time.Duration(secs * float64(time.Second))
}

func (s *IVFSource) FrameAt(offset time.Duration) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("%w: source closed", shared.ErrFrameExtraction)
	}

	target := uint64(offset.Seconds() * float64(s.den) / float64(s.num))

	// Latest keyframe at or before the target, falling back to the first
	// keyframe in the stream.
	pick := -1
	for i, f := range s.frames {
		if !f.key {
			continue
		}
		if f.pts <= target || pick < 0 {
			pick = i
		}
		if f.pts > target && pick >= 0 {
			break
		}
	}
	if pick < 0 {
		return nil, fmt.Errorf("%w: no keyframe available", shared.ErrFrameExtraction)
	}

	return decodeVP8(s.frames[pick].data)
}

func (s *IVFSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.frames = nil
	return nil
}

func decodeVP8(data []byte) (image.Image, error) {
	dec := vp8.NewDecoder()
	dec.Init(bytes.NewReader(data), len(data))

	fh, err := dec.DecodeFrameHeader()
	if err != nil {
		return nil, fmt.Errorf("%w: decode frame header: %v", shared.ErrFrameExtraction, err)
	}
	if fh.Width == 0 || fh.Height == 0 {
		return nil, fmt.Errorf("%w: invalid frame dimensions %dx%d", shared.ErrFrameExtraction, fh.Width, fh.Height)
	}

	img, err := dec.DecodeFrame()
	if err != nil {
		return nil, fmt.Errorf("%w: decode frame: %v", shared.ErrFrameExtraction, err)
	}
	return img, nil
}
