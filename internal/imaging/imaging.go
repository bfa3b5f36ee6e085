// Package imaging decodes uploaded pictures and renders the JPEG original and
// size variants stored for every breeder image.
package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxDimension bounds the stored original.
	MaxDimension = 1024
	// MaxSourcePixels rejects uploads that would take too much memory to
	// decode.
	MaxSourcePixels = 50_000_000
	JPEGQuality     = 85
	OutputMIME      = "image/jpeg"
)

var (
	// ErrUnsupported is returned for input that is not JPEG, PNG or WebP.
	ErrUnsupported = errors.New("unsupported image format")
	ErrTooLarge    = errors.New("image dimensions too large")
)

var accepted = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Size is a named variant bound.
type Size struct {
	Name   string
	MaxDim int
}

// VariantSizes are rendered for every upload, smallest first.
var VariantSizes = []Size{
	{Name: "thumbnail", MaxDim: 150},
	{Name: "small", MaxDim: 300},
	{Name: "medium", MaxDim: 500},
	{Name: "large", MaxDim: 800},
}

// Rendition is one encoded JPEG. Name is empty for the original.
type Rendition struct {
	Name   string
	Data   []byte
	Width  int
	Height int
}

// Set is the output of Render. Variants follow VariantSizes order.
type Set struct {
	Original Rendition
	Variants []Rendition
}

// Sniff reports the MIME type of data from its leading bytes, or
// ErrUnsupported.
func Sniff(data []byte) (string, error) {
	detected := http.DetectContentType(data)
	if !accepted[detected] {
		return "", fmt.Errorf("%w: %s (JPEG, PNG and WebP accepted)", ErrUnsupported, detected)
	}
	return detected, nil
}

// Decode sniffs and decodes r. Client supplied content types are never
// trusted.
func Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if _, err := Sniff(data); err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("reading image header: %w", err)
	}
	if cfg.Width*cfg.Height > MaxSourcePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// Render decodes r and encodes the original and every variant. Variants are
// encoded concurrently.
func Render(ctx context.Context, r io.Reader) (*Set, error) {
	img, err := Decode(r)
	if err != nil {
		return nil, err
	}

	set := &Set{Variants: make([]Rendition, len(VariantSizes))}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		set.Original, err = encode("", img, MaxDimension)
		return err
	})
	for i, size := range VariantSizes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var err error
			set.Variants[i], err = encode(size.Name, img, size.MaxDim)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return set, nil
}

func encode(name string, img image.Image, maxDim int) (Rendition, error) {
	scaled := downscale(img, maxDim)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		if name == "" {
			name = "original"
		}
		return Rendition{}, fmt.Errorf("encoding %s: %w", name, err)
	}
	b := scaled.Bounds()
	return Rendition{Name: name, Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

// Fit returns w x h scaled down so neither side exceeds maxDim, keeping the
// aspect ratio. Sizes already within bounds are returned unchanged.
func Fit(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	if w >= h {
		return maxDim, max(1, h*maxDim/w)
	}
	return max(1, w*maxDim/h), maxDim
}

func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := Fit(bounds.Dx(), bounds.Dy(), maxDim)
	if w == bounds.Dx() && h == bounds.Dy() {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
	image.RegisterFormat("webp", "RIFF????WEBPVP8", webp.Decode, webp.DecodeConfig)
}
