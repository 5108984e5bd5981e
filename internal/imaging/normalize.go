// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging verifies uploaded raster images and strips metadata from
// JPEG files.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder
)

// JPEGQuality is used when re-encoding JPEG uploads.
const JPEGQuality = 90

var (
	// ErrNotImage is returned when the data cannot be decoded as a supported image.
	ErrNotImage = errors.New("file is not a valid image")
	// ErrFormatMismatch is returned when the content does not match the extension.
	ErrFormatMismatch = errors.New("image content does not match file extension")
)

// Result describes a verified image.
type Result struct {
	Format   string
	MimeType string
	Width    int
	Height   int
}

// IsRaster reports whether files with ext (without dot) are decoded and
// verified before they are stored.
func IsRaster(ext string) bool {
	return formatForExt(ext) != ""
}

// Normalize checks that data is an image of the kind its extension claims.
// JPEG images are rotated upright from their EXIF orientation and
// re-encoded, which drops EXIF and other metadata. Other formats are
// returned unchanged once they decode.
func Normalize(data []byte, ext string) ([]byte, *Result, error) {
	want := formatForExt(ext)
	if want == "" {
		return nil, nil, fmt.Errorf("%w: unsupported extension %q", ErrNotImage, ext)
	}

	got := detectFormat(data)
	if got == "" {
		return nil, nil, ErrNotImage
	}
	if got != want {
		return nil, nil, fmt.Errorf("%w: %s content in .%s file", ErrFormatMismatch, got, ext)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	out := data
	if got == "jpeg" {
		img = applyOrientation(img, readExifOrientation(bytes.NewReader(data)))
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
			return nil, nil, fmt.Errorf("encoding jpeg: %w", err)
		}
		out = buf.Bytes()
	}

	bounds := img.Bounds()
	return out, &Result{
		Format:   got,
		MimeType: "image/" + got,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}, nil
}

func formatForExt(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jpg", "jpeg":
		return "jpeg"
	case "png":
		return "png"
	case "gif":
		return "gif"
	case "webp":
		return "webp"
	default:
		return ""
	}
}

// detectFormat detects the image format from raw bytes.
func detectFormat(data []byte) string {
	contentType := http.DetectContentType(data)
	// TIFF is rejected outright (CVE-2023-36308 in disintegration/imaging).
	if strings.Contains(contentType, "tiff") {
		return ""
	}
	switch {
	case strings.Contains(contentType, "jpeg"):
		return "jpeg"
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "gif"):
		return "gif"
	case strings.Contains(contentType, "webp"):
		return "webp"
	default:
		return ""
	}
}

// readExifOrientation returns the EXIF orientation tag, or 1 when absent.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return orientation
}

// applyOrientation undoes an EXIF orientation:
// 2 flip H, 3 rotate 180, 4 flip V, 5 transpose, 6 rotate 90 CW,
// 7 transverse, 8 rotate 90 CCW.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
