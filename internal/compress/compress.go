// Package compress implements size-bounded image compression for capture
// payloads. The search is deterministic and bounded: one bounding-box resize,
// a descending quality walk, then at most one dimension shrink. It is
// best-effort and never fails a well-formed capture, even when the final
// encoding still exceeds the budget.
package compress

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/draw"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/shared"
)

const (
	// DefaultQuality is the initial JPEG quality for the descending walk.
	DefaultQuality = 85

	qualityStep  = 10
	qualityFloor = 10

	// shrinkQuality is the fixed quality of the final dimension-shrink pass.
	shrinkQuality = 60
	shrinkFactor  = 0.7

	// skipThreshold: payloads already under this fraction of the budget are
	// returned unchanged to avoid a pointless re-encode.
	skipThreshold = 0.8

	ThumbnailMaxDim  = 256
	thumbnailQuality = 70
)

type Options struct {
	MaxWidth  int
	MaxHeight int
	MaxBytes  int64
	Quality   int
}

type Result struct {
	Data            []byte
	OriginalBytes   int64
	CompressedBytes int64
	Width           int
	Height          int
	Passes          int
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}

// Image compresses an encoded image to fit opts.MaxBytes. The encoded input
// is the size estimate; inputs already comfortably under budget pass through
// untouched.
func Image(data []byte, opts Options) (*Result, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", shared.ErrCompression)
	}
	if opts.Quality <= qualityFloor || opts.Quality > 100 {
		opts.Quality = DefaultQuality
	}

	originalBytes := int64(len(data))
	if opts.MaxBytes > 0 && float64(originalBytes) < skipThreshold*float64(opts.MaxBytes) {
		return &Result{
			Data:            data,
			OriginalBytes:   originalBytes,
			CompressedBytes: originalBytes,
		}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", shared.ErrCompression, err)
	}

	img = FitBounds(img, opts.MaxWidth, opts.MaxHeight)

	var (
		encoded []byte
		passes  int
	)
	for q := opts.Quality; q > qualityFloor; q -= qualityStep {
		encoded, err = EncodeJPEG(img, q)
		if err != nil {
			return nil, fmt.Errorf("%w: encode: %v", shared.ErrCompression, err)
		}
		passes++
		if opts.MaxBytes <= 0 || int64(len(encoded)) <= opts.MaxBytes {
			break
		}
	}

	// Quality floor reached and still over budget: shrink both dimensions
	// once and re-encode at a fixed moderate quality, then stop.
	if opts.MaxBytes > 0 && int64(len(encoded)) > opts.MaxBytes {
		b := img.Bounds()
		w := int(math.Round(float64(b.Dx()) * shrinkFactor))
		h := int(math.Round(float64(b.Dy()) * shrinkFactor))
		img = scale(img, w, h)
		encoded, err = EncodeJPEG(img, shrinkQuality)
		if err != nil {
			return nil, fmt.Errorf("%w: shrink encode: %v", shared.ErrCompression, err)
		}
		passes++
	}

	b := img.Bounds()
	return &Result{
		Data:            encoded,
		OriginalBytes:   originalBytes,
		CompressedBytes: int64(len(encoded)),
		Width:           b.Dx(),
		Height:          b.Dy(),
		Passes:          passes,
	}, nil
}

// Thumbnail produces a small JPEG preview, never larger than ThumbnailMaxDim
// on either axis.
func Thumbnail(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", shared.ErrCompression, err)
	}
	return ThumbnailFromImage(img)
}

func ThumbnailFromImage(img image.Image) ([]byte, error) {
	small := FitBounds(img, ThumbnailMaxDim, ThumbnailMaxDim)
	out, err := EncodeJPEG(small, thumbnailQuality)
	if err != nil {
		return nil, fmt.Errorf("%w: thumbnail encode: %v", shared.ErrCompression, err)
	}
	return out, nil
}

// FitBounds downscales img so it fits maxW x maxH, preserving aspect ratio.
// Images already within bounds are returned as-is; nothing is ever upscaled.
func FitBounds(img image.Image, maxW, maxH int) image.Image {
	if maxW <= 0 && maxH <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if (maxW <= 0 || w <= maxW) && (maxH <= 0 || h <= maxH) {
		return img
	}

	ratio := 1.0
	if maxW > 0 {
		ratio = float64(maxW) / float64(w)
	}
	if maxH > 0 {
		if r := float64(maxH) / float64(h); r < ratio {
			ratio = r
		}
	}

	return scale(img, int(math.Round(float64(w)*ratio)), int(math.Round(float64(h)*ratio)))
}

func scale(img image.Image, w, h int) image.Image {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
