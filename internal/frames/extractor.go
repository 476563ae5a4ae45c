package frames

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/compress"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/shared"
)

const (
	// DefaultFrameCount is the number of representative frames sampled from a
	// recording when the caller does not specify one.
	DefaultFrameCount = 5

	frameMaxDim  = 1024
	frameQuality = 75
)

type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger.With("component", "frame-extractor")}
}

// Extract samples frameCount frames at offsets 0, D/N, 2D/N, ... in that
// exact order, one seek at a time. The decode context does not tolerate
// overlapping seeks, so each frame is fully decoded and encoded before the
// next seek is issued. Any failure discards the whole batch: the result is
// all-or-nothing per extraction attempt.
func (e *Extractor) Extract(ctx context.Context, src Source, frameCount int) ([][]byte, error) {
	if frameCount <= 0 {
		frameCount = DefaultFrameCount
	}

	duration := src.Duration()
	if duration <= 0 {
		return nil, fmt.Errorf("%w: zero-length recording", shared.ErrFrameExtraction)
	}

	interval := duration / time.Duration(frameCount)
	out := make([][]byte, 0, frameCount)

	for i := 0; i < frameCount; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", shared.ErrFrameExtraction, ctx.Err())
		default:
		}

		offset := time.Duration(i) * interval
		img, err := src.FrameAt(offset)
		if err != nil {
			e.logger.Warn("frame seek failed, discarding batch", "frame", i, "offset", offset, "error", err)
			return nil, err
		}

		encoded, err := compress.EncodeJPEG(compress.FitBounds(img, frameMaxDim, frameMaxDim), frameQuality)
		if err != nil {
			return nil, fmt.Errorf("%w: encode frame %d: %v", shared.ErrFrameExtraction, i, err)
		}
		out = append(out, encoded)
	}

	e.logger.Debug("frame extraction complete", "frames", len(out), "duration", duration)
	return out, nil
}

// Thumbnail takes the frame at the midpoint of the recording. If the midpoint
// seek fails, the first frame is used instead.
func (e *Extractor) Thumbnail(src Source) ([]byte, error) {
	img, err := src.FrameAt(src.Duration() / 2)
	if err != nil {
		img, err = src.FrameAt(0)
		if err != nil {
			return nil, err
		}
	}
	return compress.ThumbnailFromImage(img)
}
