package raster

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/matzehuels/sheetbatch/pkg/host"
)

func TestRenderFrame(t *testing.T) {
	img := Render(40, 30, WithBorder(2))

	if img.Bounds() != image.Rect(0, 0, 40, 30) {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	black := color.RGBAModel.Convert(color.Black)
	white := color.RGBAModel.Convert(color.White)
	for _, p := range []image.Point{{0, 0}, {39, 29}, {1, 15}, {20, 28}} {
		if got := img.At(p.X, p.Y); got != black {
			t.Errorf("pixel %v = %v, want frame ink", p, got)
		}
	}
	if got := img.At(20, 15); got != white {
		t.Errorf("center pixel = %v, want paper", got)
	}
}

func TestRenderCaptionDrawsInk(t *testing.T) {
	plain := Render(200, 60, WithBorder(0))
	captioned := Render(200, 60, WithBorder(0), WithCaption("A-101 - Plan"))

	if bytes.Equal(plain.Pix, captioned.Pix) {
		t.Error("caption should change the image")
	}
}

func TestRenderClampsSize(t *testing.T) {
	img := Render(0, -5)
	if img.Bounds().Dx() != 1 || img.Bounds().Dy() != 1 {
		t.Errorf("bounds = %v, want 1x1", img.Bounds())
	}
}

func TestClip(t *testing.T) {
	if got := clip("short", 100); got != "short" {
		t.Errorf("clip() = %q", got)
	}
	// 7px per glyph: 5 glyphs fit into 35px.
	if got := clip("abcdefghij", 35); got != "ab..." {
		t.Errorf("clip() = %q, want %q", got, "ab...")
	}
	if got := clip("abcdef", 10); got != "" {
		t.Errorf("clip() = %q, want empty", got)
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		dir    host.FitDirection
		aspect float64
		w, h   int
	}{
		{"horizontal", 1024, host.FitHorizontal, 2, 1024, 512},
		{"vertical", 1024, host.FitVertical, 2, 2048, 1024},
		{"square fallback", 100, host.FitHorizontal, 0, 100, 100},
		{"tiny", 0, host.FitHorizontal, 1, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := Fit(tt.size, tt.dir, tt.aspect)
			if w != tt.w || h != tt.h {
				t.Errorf("Fit() = %dx%d, want %dx%d", w, h, tt.w, tt.h)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	img := Render(16, 8)

	tests := []struct {
		ft     host.ImageFileType
		decode func([]byte) (image.Image, error)
	}{
		{host.ImagePNG, func(b []byte) (image.Image, error) { i, _, err := image.Decode(bytes.NewReader(b)); return i, err }},
		{host.ImageJPEG, func(b []byte) (image.Image, error) { i, _, err := image.Decode(bytes.NewReader(b)); return i, err }},
		{host.ImageBMP, func(b []byte) (image.Image, error) { return bmp.Decode(bytes.NewReader(b)) }},
		{host.ImageTIFF, func(b []byte) (image.Image, error) { return tiff.Decode(bytes.NewReader(b)) }},
	}
	for _, tt := range tests {
		t.Run(string(tt.ft), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, img, tt.ft); err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			got, err := tt.decode(buf.Bytes())
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Bounds().Dx() != 16 || got.Bounds().Dy() != 8 {
				t.Errorf("decoded bounds = %v", got.Bounds())
			}
		})
	}

	if err := Encode(&bytes.Buffer{}, img, "gif"); err == nil {
		t.Error("Encode(gif) should fail")
	}
}
