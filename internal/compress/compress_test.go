package compress

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/shared"
)

// noisyJPEG produces an image that resists JPEG compression so size budgets
// actually bite.
func noisyJPEG(t *testing.T, w, h, quality int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func flatPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{0, 0, 255, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestImage_SmallPayloadUnchanged(t *testing.T) {
	data := noisyJPEG(t, 64, 64, 90)
	res, err := Image(data, Options{MaxWidth: 2048, MaxHeight: 2048, MaxBytes: int64(len(data)) * 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(res.Data, data) {
		t.Error("payload under 0.8x budget should pass through unchanged")
	}
	if res.Passes != 0 {
		t.Errorf("expected zero encode passes, got %d", res.Passes)
	}
	if res.OriginalBytes != int64(len(data)) || res.CompressedBytes != int64(len(data)) {
		t.Error("sizes should both equal the input length")
	}
}

func TestImage_BoundingBoxResize(t *testing.T) {
	data := noisyJPEG(t, 800, 400, 95)
	res, err := Image(data, Options{MaxWidth: 400, MaxHeight: 400, MaxBytes: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	b := img.Bounds()
	// A 1-byte budget forces the full walk plus the final shrink pass, so the
	// result is 0.7x the 400x200 bounding-box fit.
	if b.Dx() > 400 || b.Dy() > 200 {
		t.Errorf("aspect ratio not preserved within bounds: got %dx%d", b.Dx(), b.Dy())
	}
}

func TestImage_QualityWalkMeetsBudget(t *testing.T) {
	data := noisyJPEG(t, 512, 512, 100)
	budget := int64(len(data)) / 3
	res, err := Image(data, Options{MaxWidth: 512, MaxHeight: 512, MaxBytes: budget})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Passes < 1 {
		t.Error("expected at least one encode pass")
	}
	// Either the budget was met or the search hit its floor and shrank once.
	if res.CompressedBytes > budget && res.Passes < 2 {
		t.Errorf("over budget (%d > %d) without exhausting the walk", res.CompressedBytes, budget)
	}
}

// A 6MB-class payload against a small budget: the search must terminate in a
// bounded number of passes and return a valid image even if the floor is hit.
func TestImage_OversizedTerminatesBounded(t *testing.T) {
	data := noisyJPEG(t, 1600, 1600, 100)
	res, err := Image(data, Options{MaxWidth: 1280, MaxHeight: 1280, MaxBytes: 1024})
	if err != nil {
		t.Fatalf("compress should be best-effort, got error: %v", err)
	}
	if res.Passes > 10 {
		t.Errorf("expected bounded search, got %d passes", res.Passes)
	}
	if _, _, err := image.Decode(bytes.NewReader(res.Data)); err != nil {
		t.Errorf("result is not a valid image: %v", err)
	}
	// The shrink pass reduced dimensions below the bounding box.
	if res.Width >= 1280 && res.Height >= 1280 {
		t.Error("expected the dimension-shrink pass to have run")
	}
}

func TestImage_PNGInput(t *testing.T) {
	data := flatPNG(t, 300, 300)
	res, err := Image(data, Options{MaxWidth: 300, MaxHeight: 300, MaxBytes: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Data) == 0 {
		t.Fatal("expected JPEG output for PNG input")
	}
	if res.Data[0] != 0xff || res.Data[1] != 0xd8 {
		t.Error("output should be JPEG encoded")
	}
}

func TestImage_InvalidInput(t *testing.T) {
	_, err := Image([]byte("not an image"), Options{MaxBytes: 1})
	if !errors.Is(err, shared.ErrCompression) {
		t.Errorf("expected ErrCompression, got %v", err)
	}
	_, err = Image(nil, Options{})
	if !errors.Is(err, shared.ErrCompression) {
		t.Errorf("expected ErrCompression for empty payload, got %v", err)
	}
}

func TestThumbnail(t *testing.T) {
	data := noisyJPEG(t, 1024, 768, 90)
	thumb, err := Thumbnail(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	b := img.Bounds()
	if b.Dx() > ThumbnailMaxDim || b.Dy() > ThumbnailMaxDim {
		t.Errorf("thumbnail exceeds %dpx: %dx%d", ThumbnailMaxDim, b.Dx(), b.Dy())
	}
}

func TestFitBounds_NoUpscale(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	out := FitBounds(img, 1024, 1024)
	if out.Bounds().Dx() != 50 || out.Bounds().Dy() != 50 {
		t.Error("small images must not be upscaled")
	}
}
