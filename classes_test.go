package overlay

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func TestClassName(t *testing.T) {
	names := []string{"cpu", "gpu", "ram"}

	cases := []struct {
		id   int
		want string
	}{
		{0, "cpu"},
		{2, "ram"},
		{3, "cls3"},
		{99, "cls99"},
		{-1, "cls-1"},
	}
	for _, c := range cases {
		if got := ClassName(names, c.id); got != c.want {
			t.Errorf("ClassName(%d) = %q, want %q", c.id, got, c.want)
		}
	}
}

func TestClassColorNeverPanics(t *testing.T) {
	for _, id := range []int{0, 5, 11, 12, 100, -1, -37} {
		c := ClassColor(id)
		if c.A != 255 {
			t.Errorf("ClassColor(%d) has alpha %d, want 255", id, c.A)
		}
	}
	if ClassColor(0) != ClassColor(len(palette)) {
		t.Error("palette should wrap around")
	}
}

func TestClassColorsDistinctForDefaultClasses(t *testing.T) {
	seen := make(map[color.RGBA]int)
	for id := range DefaultClassNames() {
		c := ClassColor(id)
		if prev, ok := seen[c]; ok {
			t.Errorf("classes %d and %d share color %v", prev, id, c)
		}
		seen[c] = id
	}
}

func TestLoadClassNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.txt")
	content := "cpu\n\n  gpu  \nram\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	names, err := LoadClassNames(path)
	if err != nil {
		t.Fatalf("LoadClassNames: %v", err)
	}
	want := []string{"cpu", "gpu", "ram"}
	if len(names) != len(want) {
		t.Fatalf("got %d names, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestLoadClassNamesEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.txt")
	if err := os.WriteFile(path, []byte("\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadClassNames(path); err == nil {
		t.Fatal("expected error for empty classes file")
	}
}
