// Package imaging holds the shared composition helpers for the 1200x1600
// portrait e-ink panel: canvas setup, aspect-preserving letterboxing, and
// simple text layout.
package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Panel dimensions of the 13.3" Spectra display, portrait.
const (
	DisplayWidth  = 1200
	DisplayHeight = 1600
)

var (
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Black = color.RGBA{A: 255}
)

// Face is the fixed face used for captions and lists. One size keeps the
// renderers dead simple; the panel is close-viewed so 7x13 is legible at 2x.
var Face font.Face = basicfont.Face7x13

// NewCanvas returns a w x h image filled with bg.
func NewCanvas(w, h int, bg color.Color) *image.RGBA {
	c := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(c, c.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return c
}

// DrawFitted scales src to fit inside r preserving aspect ratio and draws it
// centered. Images smaller than r are scaled up, matching the original frame
// behavior of always filling the panel.
func DrawFitted(dst *image.RGBA, r image.Rectangle, src image.Image) {
	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 || r.Dx() == 0 || r.Dy() == 0 {
		return
	}

	scaleW := float64(r.Dx()) / float64(sb.Dx())
	scaleH := float64(r.Dy()) / float64(sb.Dy())
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}

	w := int(float64(sb.Dx()) * scale)
	h := int(float64(sb.Dy()) * scale)
	x := r.Min.X + (r.Dx()-w)/2
	y := r.Min.Y + (r.Dy()-h)/2
	target := image.Rect(x, y, x+w, y+h)

	xdraw.CatmullRom.Scale(dst, target, src, sb, xdraw.Over, nil)
}

// AverageColor returns the mean RGB of img, sampled on a coarse grid so large
// photos stay cheap.
func AverageColor(img image.Image) color.RGBA {
	b := img.Bounds()
	step := b.Dx() / 64
	if step < 1 {
		step = 1
	}
	var r, g, bl, n uint64
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			pr, pg, pb, _ := img.At(x, y).RGBA()
			r += uint64(pr >> 8)
			g += uint64(pg >> 8)
			bl += uint64(pb >> 8)
			n++
		}
	}
	if n == 0 {
		return White
	}
	return color.RGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(bl / n), A: 255}
}

// Decode reads an image in any registered format (png/jpeg/gif).
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	return img, err
}

func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// SavePNG writes img to path, creating parent directories as needed.
func SavePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// LineHeight is the vertical advance for Face, scaled.
func LineHeight(scale int) int {
	return Face.Metrics().Height.Ceil() * scale
}

// TextWidth measures s rendered with Face at the given integer scale.
func TextWidth(s string, scale int) int {
	return font.MeasureString(Face, s).Ceil() * scale
}

// WrapText breaks s into lines no wider than maxWidth at the given scale.
// Words longer than a line are emitted as-is rather than split.
func WrapText(s string, maxWidth, scale int) []string {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		cur := words[0]
		for _, w := range words[1:] {
			cand := cur + " " + w
			if TextWidth(cand, scale) > maxWidth {
				lines = append(lines, cur)
				cur = w
				continue
			}
			cur = cand
		}
		lines = append(lines, cur)
	}
	return lines
}

// DrawText renders lines starting at (x, y) (top-left of the first line) in
// clr, scaled by an integer factor, and returns the total height used.
// Scaling a bitmap face gives chunky but perfectly readable text on e-ink.
func DrawText(dst *image.RGBA, lines []string, x, y, scale int, clr color.Color) int {
	lh := LineHeight(scale)
	ascent := Face.Metrics().Ascent.Ceil()

	for i, line := range lines {
		if scale <= 1 {
			d := font.Drawer{
				Dst:  dst,
				Src:  image.NewUniform(clr),
				Face: Face,
				Dot:  fixed.P(x, y+i*lh+ascent),
			}
			d.DrawString(line)
			continue
		}
		// Render at 1x then integer-upscale for a crisp result.
		w := font.MeasureString(Face, line).Ceil()
		if w == 0 {
			continue
		}
		h := Face.Metrics().Height.Ceil()
		tmp := image.NewRGBA(image.Rect(0, 0, w, h))
		d := font.Drawer{
			Dst:  tmp,
			Src:  image.NewUniform(clr),
			Face: Face,
			Dot:  fixed.P(0, ascent),
		}
		d.DrawString(line)
		target := image.Rect(x, y+i*lh, x+w*scale, y+i*lh+h*scale)
		xdraw.NearestNeighbor.Scale(dst, target, tmp, tmp.Bounds(), xdraw.Over, nil)
	}
	return len(lines) * lh
}
