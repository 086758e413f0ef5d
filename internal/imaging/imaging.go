// Package imaging validates uploaded medical images and prepares them for
// vision model submission: alpha flattened onto white, downscaled to fit the
// model input bound, re-encoded as JPEG.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "image/png"
)

const (
	// MaxUploadBytes bounds accepted upload size.
	MaxUploadBytes = 10 << 20

	maxDimension = 1024
	jpegQuality  = 85
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrTooLarge          = errors.New("image exceeds size limit")
)

var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
}

// SupportedExtension reports whether the filename carries an accepted image
// extension. Matching is case-insensitive.
func SupportedExtension(filename string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Info describes a decoded image header.
type Info struct {
	Format string
	Width  int
	Height int
}

// Inspect decodes the image header without decoding pixel data.
func Inspect(blob []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(blob))
	if err != nil {
		return Info{}, fmt.Errorf("decode image header: %w", err)
	}
	return Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// Validate checks an upload before processing: accepted extension, size
// bound, decodable header.
func Validate(filename string, blob []byte) error {
	if !SupportedExtension(filename) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	if len(blob) == 0 {
		return errors.New("image is empty")
	}
	if len(blob) > MaxUploadBytes {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, len(blob))
	}
	info, err := Inspect(blob)
	if err != nil {
		return err
	}
	if info.Width <= 0 || info.Height <= 0 {
		return fmt.Errorf("invalid image dimensions %dx%d", info.Width, info.Height)
	}
	return nil
}

// PrepareForModel converts an accepted upload into the JPEG the model callers
// send: white-backed, at most 1024 on either side, quality 85.
func PrepareForModel(blob []byte) ([]byte, error) {
	if len(blob) == 0 {
		return nil, errors.New("image is empty")
	}
	if len(blob) > MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(blob))
	}
	img, _, err := image.Decode(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	flat := flattenOntoWhite(img)
	scaled := fitWithin(flat, maxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// flattenOntoWhite composites the image over a white background, discarding
// any alpha channel. Scanned reports and radiographs read best on white.
func flattenOntoWhite(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// fitWithin downscales to fit a max×max box, preserving aspect ratio.
// Images already inside the box are returned unchanged.
func fitWithin(img *image.RGBA, max int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= max && h <= max {
		return img
	}
	scale := float64(max) / float64(w)
	if h > w {
		scale = float64(max) / float64(h)
	}
	nw := int(float64(w)*scale + 0.5)
	nh := int(float64(h)*scale + 0.5)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
