package pipeline

import (
	"image"
	"testing"
)

func TestMaskBuilderDotProduct(t *testing.T) {
	// 4x4 prototype with 2 channels, channels last. Coefficients pick out
	// channel 0, whose value is positive only on the diagonal; sigmoid of a
	// positive sum exceeds the 0.5 threshold.
	size, channels := 4, 2
	proto := make([]float32, size*size*channels)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := float32(-5)
			if x == y {
				v = 5
			}
			proto[(y*size+x)*channels+0] = v
			proto[(y*size+x)*channels+1] = -100 // must be ignored by coeffs
		}
	}

	b := newMaskBuilder(size, channels)
	b.build([]float32{1, 0}, proto, 0.5)

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			want := x == y
			if got := b.at(x, y); got != want {
				t.Errorf("mask(%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestMaskBuilderDoesNotMutatePrototype(t *testing.T) {
	size, channels := 4, 2
	proto := make([]float32, size*size*channels)
	for i := range proto {
		proto[i] = float32(i)
	}
	snapshot := make([]float32, len(proto))
	copy(snapshot, proto)

	b := newMaskBuilder(size, channels)
	b.build([]float32{0.5, -0.5}, proto, 0.5)

	for i := range proto {
		if proto[i] != snapshot[i] {
			t.Fatalf("prototype buffer mutated at %d: %v != %v", i, proto[i], snapshot[i])
		}
	}
}

func TestMaskBuilderArenaReset(t *testing.T) {
	// A second build with all-negative sums must clear cells the first
	// build had set: the arena is reused, never accumulated into.
	size, channels := 4, 1
	on := make([]float32, size*size)
	off := make([]float32, size*size)
	for i := range on {
		on[i] = 10
		off[i] = -10
	}

	b := newMaskBuilder(size, channels)
	b.build([]float32{1}, on, 0.5)
	if !b.at(1, 1) {
		t.Fatal("expected cell set after first build")
	}
	b.build([]float32{1}, off, 0.5)
	if b.at(1, 1) {
		t.Fatal("expected cell cleared after second build")
	}
}

func TestMaskRect(t *testing.T) {
	cases := []struct {
		box  [4]float32
		want image.Rectangle
	}{
		// 640 -> 160 is a /4 scaling.
		{[4]float32{100, 100, 200, 200}, image.Rect(25, 25, 50, 50)},
		{[4]float32{0, 0, 640, 640}, image.Rect(0, 0, 160, 160)},
		// Out-of-range boxes clamp to the prototype bounds.
		{[4]float32{-40, -40, 1000, 1000}, image.Rect(0, 0, 160, 160)},
		// A box thinner than one prototype cell collapses to empty.
		{[4]float32{99, 0, 101, 640}, image.Rectangle{}},
	}
	for _, c := range cases {
		if got := maskRect(c.box, 640, 160); got != c.want {
			t.Errorf("maskRect(%v) = %v, want %v", c.box, got, c.want)
		}
	}
}

func TestSigmoid(t *testing.T) {
	if s := sigmoid(0); s != 0.5 {
		t.Errorf("sigmoid(0) = %v, want 0.5", s)
	}
	if s := sigmoid(10); s < 0.99 {
		t.Errorf("sigmoid(10) = %v, want ~1", s)
	}
	if s := sigmoid(-10); s > 0.01 {
		t.Errorf("sigmoid(-10) = %v, want ~0", s)
	}
}
