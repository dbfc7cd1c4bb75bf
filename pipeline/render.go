package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"github.com/getcharzp/go-overlay"
	"github.com/up-zero/gotool/imageutil"
)

// Renderer redraws the transparent overlay surface every frame: instance
// masks first, then boxes with label chips on top, then the FPS readout.
// Apart from the canvas it owns, drawing is a pure function of its inputs.
//
// Each frame is painted into a back buffer the loop goroutine owns, then
// published as-is; a published frame is never written again, so Canvas
// readers need no synchronization with the loop.
type Renderer struct {
	cfg    Config
	text   *overlay.TextDrawer
	canvas *image.RGBA // back buffer, loop goroutine only
	masks  *maskBuilder

	mu    sync.Mutex
	front *image.RGBA // last completed frame, immutable once published
}

// NewRenderer creates a renderer. text may be nil, in which case label chips
// and the FPS readout are drawn without text.
func NewRenderer(cfg Config, text *overlay.TextDrawer) *Renderer {
	if text != nil {
		_ = text.SetSize(cfg.FontSize)
	}
	return &Renderer{
		cfg:   cfg,
		text:  text,
		masks: newMaskBuilder(cfg.ProtoSize, cfg.NumMaskCoeffs),
	}
}

// Resize keeps the canvas pixel buffer equal to the video's native
// resolution. No-op when the size is unchanged. On-screen placement of the
// canvas is a separate concern owned by the Aligner.
func (r *Renderer) Resize(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	if r.canvas != nil && r.canvas.Bounds().Dx() == w && r.canvas.Bounds().Dy() == h {
		return
	}
	r.canvas = image.NewRGBA(image.Rect(0, 0, w, h))
}

// Canvas returns the most recently completed overlay frame, or nil before
// the first Draw. The returned frame is never written again and may be read
// while the loop renders the next one.
func (r *Renderer) Canvas() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.front
}

// Draw renders one frame's detections onto a fresh transparent surface and
// publishes it. Ownership of proto transfers here; it is disposed once all
// masks are drawn (or immediately when there is nothing to draw).
func (r *Renderer) Draw(dets []Detection, proto *Tensor, fps float64) {
	if r.canvas == nil {
		proto.Close()
		return
	}

	if len(dets) > 0 && proto != nil {
		for i := range dets {
			r.drawMask(&dets[i], proto.Data())
		}
	}
	proto.Close()

	for i := range dets {
		r.drawBox(&dets[i])
	}
	r.drawFPS(fps)
	r.publish()
}

// publish hands the finished back buffer to readers and starts a fresh one.
// Allocation doubles as the clear: a new buffer is fully transparent.
func (r *Renderer) publish() {
	r.mu.Lock()
	r.front = r.canvas
	r.mu.Unlock()
	r.canvas = image.NewRGBA(r.canvas.Bounds())
}

// scaleFactors maps model-input coordinates onto the canvas, which is sized
// to the video's native resolution.
func (r *Renderer) scaleFactors() (float64, float64) {
	s := float64(r.cfg.InputSize)
	return float64(r.canvas.Bounds().Dx()) / s, float64(r.canvas.Bounds().Dy()) / s
}

// drawMask rasterizes one instance mask, tinted with the class color and
// cropped to the detection's box region.
func (r *Renderer) drawMask(det *Detection, proto []float32) {
	r.masks.build(det.MaskCoeffs, proto, r.cfg.MaskThreshold)
	crop := maskRect(det.Box, r.cfg.InputSize, r.cfg.ProtoSize)
	if crop.Empty() {
		return
	}

	scaleX, scaleY := r.scaleFactors()
	box := r.canvasBox(det.Box, scaleX, scaleY)
	if box.Empty() {
		return
	}

	tint := overlay.ClassColor(det.ClassID)
	a := r.cfg.MaskAlpha
	// Premultiplied tint at the configured opacity.
	px := color.RGBA{
		R: uint8(float64(tint.R) * a),
		G: uint8(float64(tint.G) * a),
		B: uint8(float64(tint.B) * a),
		A: uint8(255 * a),
	}

	protoScale := float64(r.cfg.ProtoSize) / float64(r.cfg.InputSize)
	for y := box.Min.Y; y < box.Max.Y; y++ {
		my := int(float64(y) / scaleY * protoScale)
		for x := box.Min.X; x < box.Max.X; x++ {
			mx := int(float64(x) / scaleX * protoScale)
			if mx < crop.Min.X || mx >= crop.Max.X || my < crop.Min.Y || my >= crop.Max.Y {
				continue
			}
			if r.masks.at(mx, my) {
				r.canvas.SetRGBA(x, y, px)
			}
		}
	}
}

// canvasBox scales a model-space box to canvas pixels, clamped to bounds.
func (r *Renderer) canvasBox(box [4]float32, scaleX, scaleY float64) image.Rectangle {
	x1 := int(math.Round(float64(box[0]) * scaleX))
	y1 := int(math.Round(float64(box[1]) * scaleY))
	x2 := int(math.Round(float64(box[2]) * scaleX))
	y2 := int(math.Round(float64(box[3]) * scaleY))
	return image.Rect(x1, y1, x2, y2).Intersect(r.canvas.Bounds())
}

// drawBox draws the detection outline and its label chip.
func (r *Renderer) drawBox(det *Detection) {
	scaleX, scaleY := r.scaleFactors()
	box := r.canvasBox(det.Box, scaleX, scaleY)
	if box.Empty() {
		return
	}

	col := overlay.ClassColor(det.ClassID)
	imageutil.DrawThickRectOutline(r.canvas, box, col, r.cfg.BoxWidth)

	label := fmt.Sprintf("%s %d%%", det.ClassName, int(math.Round(float64(det.Confidence)*100)))
	r.drawChip(label, box.Min.X, box.Min.Y, col)
}

// drawChip draws a filled label chip anchored above (x, y); when that would
// fall off the top edge the chip sits below the anchor instead.
func (r *Renderer) drawChip(label string, x, y int, col color.RGBA) {
	chipW, chipH := 8, 18
	if r.text != nil {
		chipW = r.text.Measure(label) + 8
		chipH = r.text.Height() + 4
	}

	top := y - chipH
	if top < 0 {
		top = y
	}
	chip := image.Rect(x, top, x+chipW, top+chipH).Intersect(r.canvas.Bounds())
	if chip.Empty() {
		return
	}
	draw.Draw(r.canvas, chip, image.NewUniform(col), image.Point{}, draw.Src)

	if r.text != nil {
		r.text.DrawText(r.canvas, label, chip.Min.X+4, chip.Max.Y-4, color.White)
	}
}

// drawFPS renders the throttled FPS value in the top-left corner.
func (r *Renderer) drawFPS(fps float64) {
	label := fmt.Sprintf("FPS: %.1f", fps)
	chipW, chipH := 70, 18
	if r.text != nil {
		chipW = r.text.Measure(label) + 8
		chipH = r.text.Height() + 4
	}
	chip := image.Rect(8, 8, 8+chipW, 8+chipH).Intersect(r.canvas.Bounds())
	if chip.Empty() {
		return
	}
	draw.Draw(r.canvas, chip, image.NewUniform(color.RGBA{A: 160}), image.Point{}, draw.Src)
	if r.text != nil {
		r.text.DrawText(r.canvas, label, chip.Min.X+4, chip.Max.Y-4, color.White)
	}
}
