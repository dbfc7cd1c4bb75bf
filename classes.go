package overlay

import (
	"bufio"
	"fmt"
	"image/color"
	"os"
	"strings"
)

// DefaultClassNames returns the PC-component class table the bundled
// segmentation model was trained on. Row order matches the model's class ids.
func DefaultClassNames() []string {
	return []string{
		"cpu",
		"cpu-cooler",
		"gpu",
		"ram",
		"motherboard",
		"psu",
		"ssd",
		"hdd",
		"case-fan",
		"io-shield",
		"pcie-cable",
		"sata-cable",
		"atx-cable",
		"case",
	}
}

// LoadClassNames reads a classes.txt file, one class name per line.
// Blank lines are skipped. Line order defines the class ids.
func LoadClassNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open classes file: %w", err)
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			names = append(names, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read classes file: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("classes file %s contains no class names", path)
	}
	return names, nil
}

// ClassName resolves a class id against names. Ids outside the table
// (including negative ones from malformed model rows) get a synthesized name.
func ClassName(names []string, id int) string {
	if id >= 0 && id < len(names) {
		return names[id]
	}
	return fmt.Sprintf("cls%d", id)
}

// palette holds the fixed per-class overlay colors. At least as long as the
// default class table, so every built-in class keeps a distinct color.
var palette = []color.RGBA{
	{R: 255, G: 99, B: 71, A: 255},  // tomato
	{R: 50, G: 205, B: 50, A: 255},  // lime green
	{R: 30, G: 144, B: 255, A: 255}, // dodger blue
	{R: 255, G: 215, B: 0, A: 255},  // gold
	{R: 186, G: 85, B: 211, A: 255}, // orchid
	{R: 0, G: 206, B: 209, A: 255},  // turquoise
	{R: 255, G: 140, B: 0, A: 255},  // dark orange
	{R: 220, G: 20, B: 60, A: 255},  // crimson
	{R: 0, G: 250, B: 154, A: 255},  // spring green
	{R: 123, G: 104, B: 238, A: 255}, // medium slate blue
	{R: 244, G: 164, B: 96, A: 255},  // sandy brown
	{R: 60, G: 179, B: 113, A: 255},  // medium sea green
	{R: 70, G: 130, B: 180, A: 255},  // steel blue
	{R: 255, G: 105, B: 180, A: 255}, // hot pink
	{R: 154, G: 205, B: 50, A: 255},  // yellow green
	{R: 218, G: 112, B: 214, A: 255}, // orchid pink
}

// ClassColor returns the fixed color assigned to a class id. Out-of-range
// ids wrap onto the palette so rendering never fails on a malformed row.
func ClassColor(id int) color.RGBA {
	n := len(palette)
	i := id % n
	if i < 0 {
		i += n
	}
	return palette[i]
}
