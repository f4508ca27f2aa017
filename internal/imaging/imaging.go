// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imaging crops and downsizes uploaded images and computes
// blurhash placeholders for them. Decoding supports JPEG, PNG, GIF and
// WebP; output is JPEG, or PNG when the source was PNG.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/bbrks/go-blurhash"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

const (
	// MaxPixels guards against decompression bombs (~40 megapixels).
	MaxPixels = 40_000_000
	// JPEGQuality is used for every JPEG output.
	JPEGQuality = 85
	// DefaultMaxWidth bounds the output width when the caller passes 0.
	DefaultMaxWidth = 1920
)

var (
	// ErrUnsupported is returned for content types that cannot be decoded.
	ErrUnsupported = errors.New("imaging: unsupported image type")
	// ErrEmptyCrop is returned when the crop rectangle does not overlap
	// the image.
	ErrEmptyCrop = errors.New("imaging: crop rectangle is outside the image")
	// ErrTooLarge is returned for images above MaxPixels.
	ErrTooLarge = errors.New("imaging: image dimensions too large")
)

// Rect is a crop rectangle in source pixel coordinates. A zero Rect means
// "no crop".
type Rect struct {
	X, Y, Width, Height int
}

// IsZero reports whether no crop was requested.
func (r Rect) IsZero() bool {
	return r.Width == 0 && r.Height == 0
}

// Result is a processed image ready for upload.
type Result struct {
	Data        []byte
	ContentType string
	Ext         string
	Width       int
	Height      int
	Blurhash    string
}

// Supported reports whether Crop can decode contentType.
func Supported(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	}
	return false
}

// Decode decodes data according to contentType, rejecting images whose
// header declares more than MaxPixels.
func Decode(data []byte, contentType string) (image.Image, error) {
	var decodeConfig func([]byte) (image.Config, error)
	var decode func([]byte) (image.Image, error)

	switch contentType {
	case "image/jpeg":
		decodeConfig = func(b []byte) (image.Config, error) { return jpeg.DecodeConfig(bytes.NewReader(b)) }
		decode = func(b []byte) (image.Image, error) { return jpeg.Decode(bytes.NewReader(b)) }
	case "image/png":
		decodeConfig = func(b []byte) (image.Config, error) { return png.DecodeConfig(bytes.NewReader(b)) }
		decode = func(b []byte) (image.Image, error) { return png.Decode(bytes.NewReader(b)) }
	case "image/gif":
		decodeConfig = func(b []byte) (image.Config, error) { return gif.DecodeConfig(bytes.NewReader(b)) }
		decode = func(b []byte) (image.Image, error) { return gif.Decode(bytes.NewReader(b)) }
	case "image/webp":
		decodeConfig = func(b []byte) (image.Config, error) { return webp.DecodeConfig(bytes.NewReader(b)) }
		decode = func(b []byte) (image.Image, error) { return webp.Decode(bytes.NewReader(b)) }
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, contentType)
	}

	cfg, err := decodeConfig(data)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Crop decodes data, crops it to rect (clamped to the image bounds),
// scales the result down to at most maxWidth pixels wide and re-encodes
// it. Images are never upscaled.
func Crop(data []byte, contentType string, rect Rect, maxWidth int) (*Result, error) {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}

	img, err := Decode(data, contentType)
	if err != nil {
		return nil, err
	}

	src := img.Bounds()
	if !rect.IsZero() {
		want := image.Rect(rect.X, rect.Y, rect.X+rect.Width, rect.Y+rect.Height).Add(src.Min)
		src = src.Intersect(want)
		if src.Empty() {
			return nil, ErrEmptyCrop
		}
	}

	outW, outH := fit(src.Dx(), src.Dy(), maxWidth)
	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	if outW == src.Dx() && outH == src.Dy() {
		draw.Copy(dst, image.Point{}, img, src, draw.Src, nil)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	}

	res := &Result{Width: outW, Height: outH}
	var buf bytes.Buffer
	if contentType == "image/png" {
		if err := png.Encode(&buf, dst); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
		res.ContentType, res.Ext = "image/png", ".png"
	} else {
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		res.ContentType, res.Ext = "image/jpeg", ".jpg"
	}
	res.Data = buf.Bytes()

	hash, err := Blurhash(dst)
	if err != nil {
		return nil, err
	}
	res.Blurhash = hash
	return res, nil
}

// fit returns the output size for a w×h source constrained to maxWidth,
// preserving aspect ratio.
func fit(w, h, maxWidth int) (int, int) {
	if w <= maxWidth {
		return w, h
	}
	nh := int(float64(h) * float64(maxWidth) / float64(w))
	if nh < 1 {
		nh = 1
	}
	return maxWidth, nh
}

// Blurhash computes a 4×3 component blurhash for img. Large images are
// sampled from a small thumbnail since the hash only keeps low frequencies.
func Blurhash(img image.Image) (string, error) {
	b := img.Bounds()
	sample := img
	if b.Dx() > 64 || b.Dy() > 64 {
		w, h := fit(b.Dx(), b.Dy(), 64)
		if h > 64 {
			w, h = max(1, w*64/h), 64
		}
		thumb := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(thumb, thumb.Bounds(), img, b, draw.Src, nil)
		sample = thumb
	}
	hash, err := blurhash.Encode(4, 3, sample)
	if err != nil {
		return "", fmt.Errorf("blurhash: %w", err)
	}
	return hash, nil
}
