package imaging

import (
	"image"
	"image/color"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewCanvas(t *testing.T) {
	t.Parallel()

	c := NewCanvas(10, 20, White)
	if c.Bounds().Dx() != 10 || c.Bounds().Dy() != 20 {
		t.Fatalf("bounds = %v", c.Bounds())
	}
	if got := c.RGBAAt(5, 5); got != White {
		t.Errorf("fill color = %v, want white", got)
	}
}

func TestDrawFittedPreservesAspect(t *testing.T) {
	t.Parallel()

	// A wide black source into a square target: the fit is width-bound, so
	// the top and bottom bands stay white.
	dst := NewCanvas(100, 100, White)
	src := NewCanvas(200, 100, Black)
	DrawFitted(dst, dst.Bounds(), src)

	if got := dst.RGBAAt(50, 50); got != Black {
		t.Errorf("center = %v, want black", got)
	}
	if got := dst.RGBAAt(50, 5); got != White {
		t.Errorf("top band = %v, want white letterbox", got)
	}
	if got := dst.RGBAAt(50, 95); got != White {
		t.Errorf("bottom band = %v, want white letterbox", got)
	}
}

func TestDrawFittedUpscalesSmallImages(t *testing.T) {
	t.Parallel()

	dst := NewCanvas(100, 100, White)
	src := NewCanvas(10, 10, Black)
	DrawFitted(dst, dst.Bounds(), src)
	// A 10x10 source must be stretched to fill the square, not drawn 1:1.
	if got := dst.RGBAAt(90, 90); got != Black {
		t.Errorf("corner = %v, want upscaled black", got)
	}
}

func TestDrawFittedDegenerate(t *testing.T) {
	t.Parallel()

	dst := NewCanvas(10, 10, White)
	DrawFitted(dst, image.Rectangle{}, NewCanvas(5, 5, Black))
	DrawFitted(dst, dst.Bounds(), image.NewRGBA(image.Rectangle{}))
	if got := dst.RGBAAt(5, 5); got != White {
		t.Errorf("degenerate draw touched the canvas: %v", got)
	}
}

func TestAverageColor(t *testing.T) {
	t.Parallel()

	if got := AverageColor(NewCanvas(64, 64, Black)); got != (color.RGBA{A: 255}) {
		t.Errorf("black average = %v", got)
	}
	if got := AverageColor(NewCanvas(64, 64, White)); got != White {
		t.Errorf("white average = %v", got)
	}
	mid := AverageColor(NewCanvas(64, 64, color.RGBA{R: 100, G: 150, B: 200, A: 255}))
	if mid.R != 100 || mid.G != 150 || mid.B != 200 {
		t.Errorf("uniform average = %v", mid)
	}
}

func TestSavePNGAndDecodeFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "out.png")
	if err := SavePNG(path, NewCanvas(8, 4, Black)); err != nil {
		t.Fatal(err)
	}
	img, err := DecodeFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 4 {
		t.Errorf("round-trip bounds = %v", img.Bounds())
	}

	if _, err := DecodeFile(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("want error for missing file")
	}
}

func TestWrapText(t *testing.T) {
	t.Parallel()

	// Wide enough for roughly two short words per line at 1x.
	maxWidth := TextWidth("aaaa bbbb", 1)
	lines := WrapText("aaaa bbbb cccc dddd", maxWidth, 1)
	if len(lines) != 2 {
		t.Fatalf("lines = %q, want 2", lines)
	}
	for _, line := range lines {
		if TextWidth(line, 1) > maxWidth {
			t.Errorf("line %q exceeds max width", line)
		}
	}
}

func TestWrapTextLongWord(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 80)
	lines := WrapText("a "+long+" b", TextWidth("aaaa", 1), 1)
	found := false
	for _, line := range lines {
		if line == long {
			found = true
		}
	}
	if !found {
		t.Errorf("overlong word was split: %q", lines)
	}
}

func TestWrapTextParagraphs(t *testing.T) {
	t.Parallel()

	lines := WrapText("first\n\nsecond", 10000, 1)
	want := []string{"first", "", "second"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %q", lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("lines[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestDrawTextMarksPixels(t *testing.T) {
	t.Parallel()

	for _, scale := range []int{1, 3} {
		dst := NewCanvas(400, 100, White)
		h := DrawText(dst, []string{"HELLO"}, 10, 10, scale, Black)
		if h != LineHeight(scale) {
			t.Errorf("scale %d: height = %d, want %d", scale, h, LineHeight(scale))
		}
		dark := 0
		b := dst.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				if dst.RGBAAt(x, y) == Black {
					dark++
				}
			}
		}
		if dark == 0 {
			t.Errorf("scale %d: no pixels drawn", scale)
		}
	}
}
