package frames

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/shared"
)

type fakeSource struct {
	duration time.Duration
	seeks    []time.Duration
	calls    int
	failAt   int // fail the n-th call; -1 = never fail
}

func newFakeSource(d time.Duration) *fakeSource {
	return &fakeSource{duration: d, failAt: -1}
}

func (f *fakeSource) Duration() time.Duration { return f.duration }

func (f *fakeSource) FrameAt(offset time.Duration) (image.Image, error) {
	call := f.calls
	f.calls++
	if call == f.failAt {
		return nil, fmt.Errorf("%w: seek failed", shared.ErrFrameExtraction)
	}
	f.seeks = append(f.seeks, offset)
	return image.NewRGBA(image.Rect(0, 0, 32, 32)), nil
}

func (f *fakeSource) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExtract_SeekOrder(t *testing.T) {
	src := newFakeSource(10 * time.Second)
	e := NewExtractor(testLogger())

	out, err := e.Extract(context.Background(), src, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 5 {
		t.Fatalf("expected 5 frames, got %d", len(out))
	}

	// Seeks must be exactly 0, D/N, 2D/N, ... in that order.
	want := []time.Duration{0, 2 * time.Second, 4 * time.Second, 6 * time.Second, 8 * time.Second}
	if len(src.seeks) != len(want) {
		t.Fatalf("expected %d seeks, got %d", len(want), len(src.seeks))
	}
	for i, w := range want {
		if src.seeks[i] != w {
			t.Errorf("seek %d: expected %v, got %v", i, w, src.seeks[i])
		}
	}
}

func TestExtract_AllOrNothing(t *testing.T) {
	src := newFakeSource(10 * time.Second)
	src.failAt = 3
	e := NewExtractor(testLogger())

	out, err := e.Extract(context.Background(), src, 5)
	if !errors.Is(err, shared.ErrFrameExtraction) {
		t.Fatalf("expected ErrFrameExtraction, got %v", err)
	}
	if out != nil {
		t.Error("a failed extraction must not return a partial frame list")
	}
}

func TestExtract_ZeroDuration(t *testing.T) {
	src := newFakeSource(0)
	e := NewExtractor(testLogger())

	_, err := e.Extract(context.Background(), src, 5)
	if !errors.Is(err, shared.ErrFrameExtraction) {
		t.Fatalf("expected ErrFrameExtraction, got %v", err)
	}
}

func TestExtract_Cancelled(t *testing.T) {
	src := newFakeSource(10 * time.Second)
	e := NewExtractor(testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Extract(ctx, src, 5)
	if !errors.Is(err, shared.ErrFrameExtraction) {
		t.Fatalf("expected ErrFrameExtraction, got %v", err)
	}
}

func TestExtract_DefaultFrameCount(t *testing.T) {
	src := newFakeSource(10 * time.Second)
	e := NewExtractor(testLogger())

	out, err := e.Extract(context.Background(), src, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != DefaultFrameCount {
		t.Errorf("expected %d frames, got %d", DefaultFrameCount, len(out))
	}
}

func TestThumbnail_Midpoint(t *testing.T) {
	src := newFakeSource(10 * time.Second)
	e := NewExtractor(testLogger())

	thumb, err := e.Thumbnail(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(thumb) == 0 {
		t.Fatal("expected non-empty thumbnail")
	}
	if src.seeks[0] != 5*time.Second {
		t.Errorf("expected midpoint seek at 5s, got %v", src.seeks[0])
	}
}

func TestThumbnail_FallsBackToFirstFrame(t *testing.T) {
	src := newFakeSource(10 * time.Second)
	src.failAt = 0
	e := NewExtractor(testLogger())

	thumb, err := e.Thumbnail(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(thumb) == 0 {
		t.Fatal("expected fallback thumbnail")
	}
	// First seek failed; the successful one was at offset zero.
	if src.seeks[0] != 0 {
		t.Errorf("expected fallback seek at 0, got %v", src.seeks[0])
	}
}

func encodeTestJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestMJPEGSource(t *testing.T) {
	var blob bytes.Buffer
	for i := 0; i < 3; i++ {
		blob.Write(encodeTestJPEG(t, 64, 48))
	}

	src, err := NewMJPEGSource(blob.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer src.Close()

	if src.FrameCount() != 3 {
		t.Fatalf("expected 3 frames, got %d", src.FrameCount())
	}
	if src.Duration() != 3*time.Second/mjpegFPS {
		t.Errorf("unexpected duration %v", src.Duration())
	}

	img, err := src.FrameAt(0)
	if err != nil {
		t.Fatalf("decode first frame: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("unexpected frame size %v", img.Bounds())
	}

	// Past-the-end offsets clamp to the last frame.
	if _, err := src.FrameAt(time.Minute); err != nil {
		t.Errorf("clamped seek should succeed: %v", err)
	}
}

func TestMJPEGSource_Empty(t *testing.T) {
	if _, err := NewMJPEGSource([]byte("not jpeg data")); !errors.Is(err, shared.ErrFrameExtraction) {
		t.Errorf("expected ErrFrameExtraction, got %v", err)
	}
}

func TestMJPEGSource_Closed(t *testing.T) {
	src, err := NewMJPEGSource(encodeTestJPEG(t, 16, 16))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	src.Close()
	if _, err := src.FrameAt(0); !errors.Is(err, shared.ErrFrameExtraction) {
		t.Errorf("expected error after close, got %v", err)
	}
}

func TestNewSource_Sniffing(t *testing.T) {
	if _, err := NewSource([]byte("mystery bytes")); !errors.Is(err, shared.ErrFrameExtraction) {
		t.Errorf("expected ErrFrameExtraction for unknown container, got %v", err)
	}

	src, err := NewSource(encodeTestJPEG(t, 16, 16))
	if err != nil {
		t.Fatalf("JPEG SOI should sniff as MJPEG: %v", err)
	}
	if _, ok := src.(*MJPEGSource); !ok {
		t.Errorf("expected *MJPEGSource, got %T", src)
	}
}

func TestIVFSource_BadInput(t *testing.T) {
	if _, err := NewIVFSource([]byte("DKIF")); !errors.Is(err, shared.ErrFrameExtraction) {
		t.Errorf("expected error for truncated header, got %v", err)
	}

	hdr := make([]byte, 32)
	copy(hdr, "DKIF")
	copy(hdr[8:], "VP90")
	if _, err := NewIVFSource(hdr); !errors.Is(err, shared.ErrFrameExtraction) {
		t.Errorf("expected error for non-VP8 codec, got %v", err)
	}

	copy(hdr[8:], "VP80")
	if _, err := NewIVFSource(hdr); !errors.Is(err, shared.ErrFrameExtraction) {
		t.Errorf("expected error for empty container, got %v", err)
	}
}
