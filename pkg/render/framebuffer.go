package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"

	"golang.org/x/image/vector"

	"github.com/taigrr/painter/pkg/math3d"
)

// Framebuffer is a 2D array of pixels. It is a draw.Image and a Backend;
// polygons are filled with an anti-aliased scanline rasterizer.
//
// When shown in a terminal each cell covers two rows using half-block
// characters (▀), so Height should be 2x the terminal rows.
type Framebuffer struct {
	Width      int          // Width in "pixels" (same as terminal columns)
	Height     int          // Height in "pixels" (2x terminal rows due to half-blocks)
	Pixels     []color.RGBA // Row-major pixel data
	Background color.RGBA   // Color used by Clear

	fill   color.RGBA
	stroke color.RGBA
	raster *vector.Rasterizer
}

// NewFramebuffer creates a new framebuffer with the given dimensions.
func NewFramebuffer(width, height int) *Framebuffer {
	return &Framebuffer{
		Width:      width,
		Height:     height,
		Pixels:     make([]color.RGBA, width*height),
		Background: ColorBackground,
		fill:       ColorFallback,
		raster:     vector.NewRasterizer(width, height),
	}
}

// Resize changes the dimensions and discards the contents.
func (fb *Framebuffer) Resize(width, height int) {
	if width == fb.Width && height == fb.Height {
		return
	}
	fb.Width = width
	fb.Height = height
	fb.Pixels = make([]color.RGBA, width*height)
	fb.raster.Reset(width, height)
}

// Fill fills the framebuffer with a solid color.
func (fb *Framebuffer) Fill(c color.RGBA) {
	for i := range fb.Pixels {
		fb.Pixels[i] = c
	}
}

// SetPixel sets a pixel at (x, y) to the given color.
// Bounds checking is performed.
func (fb *Framebuffer) SetPixel(x, y int, c color.RGBA) {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return
	}
	fb.Pixels[y*fb.Width+x] = c
}

// GetPixel returns the color at (x, y).
// Returns transparent black if out of bounds.
func (fb *Framebuffer) GetPixel(x, y int) color.RGBA {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return color.RGBA{}
	}
	return fb.Pixels[y*fb.Width+x]
}

// ColorModel implements image.Image.
func (fb *Framebuffer) ColorModel() color.Model {
	return color.RGBAModel
}

// Bounds implements image.Image.
func (fb *Framebuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, fb.Width, fb.Height)
}

// At implements image.Image.
func (fb *Framebuffer) At(x, y int) color.Color {
	return fb.GetPixel(x, y)
}

// Set implements draw.Image.
func (fb *Framebuffer) Set(x, y int, c color.Color) {
	fb.SetPixel(x, y, color.RGBAModel.Convert(c).(color.RGBA))
}

// Size implements Backend.
func (fb *Framebuffer) Size() (width, height int) {
	return fb.Width, fb.Height
}

// Clear implements Backend by filling with the background color.
func (fb *Framebuffer) Clear() {
	fb.Fill(fb.Background)
}

// SetBackground implements Backgrounder.
func (fb *Framebuffer) SetBackground(c color.Color) {
	if c == nil {
		fb.Background = color.RGBA{}
		return
	}
	fb.Background = color.RGBAModel.Convert(c).(color.RGBA)
}

// SetFillStyle implements Backend.
func (fb *Framebuffer) SetFillStyle(c color.Color) {
	if c == nil {
		fb.fill = ColorFallback
		return
	}
	fb.fill = color.RGBAModel.Convert(c).(color.RGBA)
}

// SetStrokeStyle implements Backend. A transparent stroke disables outlines.
func (fb *Framebuffer) SetStrokeStyle(c color.Color) {
	if c == nil {
		fb.stroke = color.RGBA{}
		return
	}
	fb.stroke = color.RGBAModel.Convert(c).(color.RGBA)
}

// FillPolygon implements Backend.
func (fb *Framebuffer) FillPolygon(points []math3d.Vec2) {
	if len(points) < 3 || fb.Width == 0 || fb.Height == 0 {
		return
	}

	fb.raster.Reset(fb.Width, fb.Height)
	fb.raster.DrawOp = draw.Over
	fb.raster.MoveTo(float32(points[0].X), float32(points[0].Y))
	for _, p := range points[1:] {
		fb.raster.LineTo(float32(p.X), float32(p.Y))
	}
	fb.raster.ClosePath()
	fb.raster.Draw(fb, fb.Bounds(), image.NewUniform(fb.fill), image.Point{})

	if fb.stroke.A != 0 {
		fb.DrawOutline(points, fb.stroke)
	}
}

// DrawOutline draws the closed outline of a polygon given in pixels.
func (fb *Framebuffer) DrawOutline(points []math3d.Vec2, c color.RGBA) {
	for i, p := range points {
		q := points[(i+1)%len(points)]
		fb.DrawLine(round(p.X), round(p.Y), round(q.X), round(q.Y), c)
	}
}

func round(v float64) int {
	return int(math.Round(v))
}

// DrawLine draws a line from (x0, y0) to (x1, y1) using Bresenham's algorithm.
func (fb *Framebuffer) DrawLine(x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		fb.SetPixel(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// ToImage converts the framebuffer to a standard Go image.RGBA.
func (fb *Framebuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(fb.Bounds())
	for y := 0; y < fb.Height; y++ {
		for x := 0; x < fb.Width; x++ {
			img.SetRGBA(x, y, fb.Pixels[y*fb.Width+x])
		}
	}
	return img
}

// WritePNG encodes the framebuffer as PNG.
func (fb *Framebuffer) WritePNG(w io.Writer) error {
	if err := png.Encode(w, fb.ToImage()); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// SavePNG saves the framebuffer as a PNG file.
func (fb *Framebuffer) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return fb.WritePNG(f)
}
