// Package vision prepares client-supplied images for the recognition model.
package vision

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
)

// maxDimension is the largest width or height forwarded to the model.
// Larger images are downscaled to stay inside the provider's size limits.
const maxDimension = 1024

// StripDataURI removes a data-URI scheme prefix ("data:image/png;base64,")
// from an image payload. Payloads without a comma pass through unchanged.
func StripDataURI(payload string) string {
	if i := strings.Index(payload, ","); i >= 0 {
		return payload[i+1:]
	}
	return payload
}

// PrepareForModel decodes a data-URI (or bare base64) image payload,
// downscales it when oversized, and returns it re-encoded as base64 PNG.
func PrepareForModel(payload string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(StripDataURI(payload))
	if err != nil {
		return "", fmt.Errorf("decode image payload: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	img = downscale(img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// downscale shrinks img so neither dimension exceeds maxDimension,
// preserving aspect ratio. Images already within bounds are returned as-is.
func downscale(img image.Image) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDimension && h <= maxDimension {
		return img
	}

	scale := float64(maxDimension) / float64(w)
	if h > w {
		scale = float64(maxDimension) / float64(h)
	}
	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
