package pipeline

import (
	"image"
	"testing"
)

func testDetection() Detection {
	return Detection{
		Box:        [4]float32{100, 100, 200, 200},
		ClassID:    3,
		ClassName:  "ram",
		Confidence: 0.9,
		MaskCoeffs: make([]float32, 32),
	}
}

// hasColoredPixel reports whether any pixel in r has nonzero alpha.
func hasColoredPixel(img *image.RGBA, r image.Rectangle) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.RGBAAt(x, y).A != 0 {
				return true
			}
		}
	}
	return false
}

func TestRendererBoxAtScaledCoordinates(t *testing.T) {
	cfg := DefaultConfig()
	r := NewRenderer(cfg, nil)
	// Canvas 1280x1280 over a 640 input: scaleX = scaleY = 2.
	r.Resize(1280, 1280)

	r.Draw([]Detection{testDetection()}, nil, 0)
	canvas := r.Canvas()

	// The box lands at (200,200) sized 200x200. The outline (width 3) must
	// put colored pixels in a narrow band around each edge and nowhere in
	// the interior.
	edges := []image.Rectangle{
		image.Rect(196, 260, 205, 340), // left
		image.Rect(396, 260, 405, 340), // right
		image.Rect(260, 196, 340, 205), // top
		image.Rect(260, 396, 340, 405), // bottom
	}
	for i, band := range edges {
		if !hasColoredPixel(canvas, band) {
			t.Errorf("edge band %d %v has no outline pixels", i, band)
		}
	}
	if hasColoredPixel(canvas, image.Rect(280, 280, 320, 320)) {
		t.Error("box interior should stay transparent without a mask")
	}
	if hasColoredPixel(canvas, image.Rect(500, 500, 600, 600)) {
		t.Error("pixels outside the box should stay transparent")
	}
}

func TestRendererClearOnEmptyFrame(t *testing.T) {
	cfg := DefaultConfig()
	r := NewRenderer(cfg, nil)
	r.Resize(640, 480)

	// Dirty the canvas, then draw an empty frame over it.
	r.Draw([]Detection{testDetection()}, nil, 0)
	r.Draw(nil, nil, 0)

	canvas := r.Canvas()
	// Only the FPS chip in the top-left corner may remain.
	if hasColoredPixel(canvas, image.Rect(120, 0, 640, 480)) {
		t.Error("canvas not cleared right of the FPS chip")
	}
	if hasColoredPixel(canvas, image.Rect(0, 40, 120, 480)) {
		t.Error("canvas not cleared below the FPS chip")
	}
	if !hasColoredPixel(canvas, image.Rect(0, 0, 120, 40)) {
		t.Error("FPS readout missing")
	}
}

func TestRendererMaskUnderBox(t *testing.T) {
	base := LiveTensors()
	cfg := DefaultConfig()
	r := NewRenderer(cfg, nil)
	r.Resize(1280, 1280)

	// Prototype with every channel-0 value strongly positive and a
	// detection selecting channel 0: the whole cropped box region is
	// masked.
	protoData := make([]float32, 160*160*32)
	for i := 0; i < len(protoData); i += 32 {
		protoData[i] = 10
	}
	proto := NewTensor(protoData, []int64{1, 160, 160, 32}, nil)

	det := testDetection()
	det.MaskCoeffs[0] = 1

	r.Draw([]Detection{det}, proto, 0)
	canvas := r.Canvas()

	// Mask tint inside the box, away from the outline.
	px := canvas.RGBAAt(300, 300)
	if px.A == 0 {
		t.Fatal("expected mask tint inside the box")
	}
	wantA := uint8(255 * cfg.MaskAlpha)
	if px.A != wantA {
		t.Errorf("mask alpha = %d, want %d", px.A, wantA)
	}
	if hasColoredPixel(canvas, image.Rect(500, 500, 600, 600)) {
		t.Error("mask leaked outside the box crop")
	}

	// Ownership of the prototype transferred to Draw.
	if live := LiveTensors(); live != base {
		t.Errorf("live tensors = %d, want baseline %d (prototype not disposed?)", live, base)
	}
}

func TestRendererCanvasTracksNativeResolution(t *testing.T) {
	cfg := DefaultConfig()
	r := NewRenderer(cfg, nil)

	if r.Canvas() != nil {
		t.Fatal("frame published before any draw")
	}
	r.Resize(640, 480)
	if r.Canvas() != nil {
		t.Fatal("resize alone should not publish a frame")
	}

	r.Draw(nil, nil, 0)
	if b := r.Canvas().Bounds(); b.Dx() != 640 || b.Dy() != 480 {
		t.Fatalf("canvas = %v, want 640x480", b)
	}

	// Native resolution change: the next frame comes out at the new size.
	r.Resize(1920, 1080)
	r.Draw(nil, nil, 0)
	if b := r.Canvas().Bounds(); b.Dx() != 1920 || b.Dy() != 1080 {
		t.Fatalf("canvas = %v, want 1920x1080", b)
	}
}

func TestRendererPublishedFramesImmutable(t *testing.T) {
	cfg := DefaultConfig()
	r := NewRenderer(cfg, nil)
	r.Resize(1280, 1280)

	r.Draw([]Detection{testDetection()}, nil, 0)
	snapshot := r.Canvas()
	if !hasColoredPixel(snapshot, image.Rect(196, 196, 405, 405)) {
		t.Fatal("expected box pixels in the first frame")
	}

	// Later frames never touch an already published snapshot.
	r.Draw(nil, nil, 0)
	if !hasColoredPixel(snapshot, image.Rect(196, 196, 405, 405)) {
		t.Error("published frame mutated by a later draw")
	}
	if r.Canvas() == snapshot {
		t.Error("new frame shares the old snapshot buffer")
	}
}

func TestRendererCanvasConcurrentWithDraw(t *testing.T) {
	cfg := DefaultConfig()
	r := NewRenderer(cfg, nil)
	r.Resize(320, 240)
	r.Draw(nil, nil, 0)

	// A display loop reading frames while the render loop keeps drawing,
	// the way the demo binary does.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			c := r.Canvas()
			_ = c.RGBAAt(10, 10)
		}
	}()
	for i := 0; i < 200; i++ {
		r.Draw([]Detection{testDetection()}, nil, float64(i))
	}
	<-done
}
