// Package raster draws the placeholder images written by the file-backed host:
// a framed canvas with caption lines, encoded as PNG, JPEG, BMP or TIFF.
//
// The host has no model geometry, so an exported view or a printed sheet is
// represented by its frame and its title lines. Text uses the fixed 7x13
// bitmap face from golang.org/x/image, which needs no font files.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/bmp"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/tiff"

	"github.com/matzehuels/sheetbatch/pkg/host"
)

// JPEGQuality is the quality used for JPEG output.
const JPEGQuality = 90

const (
	lineHeight = 15 // 13px face plus leading
	margin     = 8
)

// Option configures Render.
type Option func(*renderer)

type renderer struct {
	lines  []string
	border int
	paper  color.Color
	ink    color.Color
}

// WithCaption sets the caption lines drawn in the lower left corner.
func WithCaption(lines ...string) Option {
	return func(r *renderer) { r.lines = lines }
}

// WithBorder sets the frame width in pixels (default 2, 0 disables).
func WithBorder(px int) Option {
	return func(r *renderer) { r.border = px }
}

// WithColors sets paper and ink colors (default white and black).
func WithColors(paper, ink color.Color) Option {
	return func(r *renderer) { r.paper, r.ink = paper, ink }
}

// Render draws a w x h canvas. Sizes below 1 are clamped to 1.
func Render(w, h int, opts ...Option) *image.RGBA {
	r := renderer{border: 2, paper: color.White, ink: color.Black}
	for _, opt := range opts {
		opt(&r)
	}
	w, h = max(w, 1), max(h, 1)

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: r.paper}, image.Point{}, draw.Src)
	if r.border > 0 {
		drawFrame(img, r.border, r.ink)
	}

	d := &font.Drawer{Dst: img, Src: &image.Uniform{C: r.ink}, Face: basicfont.Face7x13}
	y := h - margin - r.border - (len(r.lines)-1)*lineHeight
	for _, line := range r.lines {
		if y-lineHeight < 0 {
			y += lineHeight
			continue
		}
		d.Dot = fixed.P(margin+r.border, y)
		d.DrawString(clip(line, w-2*(margin+r.border)))
		y += lineHeight
	}
	return img
}

func drawFrame(img *image.RGBA, px int, ink color.Color) {
	b := img.Bounds()
	src := &image.Uniform{C: ink}
	edges := []image.Rectangle{
		image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+px),
		image.Rect(b.Min.X, b.Max.Y-px, b.Max.X, b.Max.Y),
		image.Rect(b.Min.X, b.Min.Y, b.Min.X+px, b.Max.Y),
		image.Rect(b.Max.X-px, b.Min.Y, b.Max.X, b.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e.Intersect(b), src, image.Point{}, draw.Src)
	}
}

// clip shortens s so that it fits into width pixels.
func clip(s string, width int) string {
	face := basicfont.Face7x13
	if font.MeasureString(face, s).Ceil() <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && font.MeasureString(face, string(runes)+"...").Ceil() > width {
		runes = runes[:len(runes)-1]
	}
	if len(runes) == 0 {
		return ""
	}
	return string(runes) + "..."
}

// Fit returns the pixel dimensions of an image whose dimension selected by
// dir is pixelSize, keeping aspect (width / height).
func Fit(pixelSize int, dir host.FitDirection, aspect float64) (w, h int) {
	if pixelSize < 1 {
		pixelSize = 1
	}
	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		aspect = 1
	}
	if dir == host.FitVertical {
		return max(int(math.Round(float64(pixelSize)*aspect)), 1), pixelSize
	}
	return pixelSize, max(int(math.Round(float64(pixelSize)/aspect)), 1)
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, ft host.ImageFileType) error {
	var err error
	switch ft {
	case host.ImagePNG, "":
		err = png.Encode(w, img)
	case host.ImageJPEG:
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
	case host.ImageBMP:
		err = bmp.Encode(w, img)
	case host.ImageTIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("unsupported image format %q", ft)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", ft, err)
	}
	return nil
}
