package anonymize

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// jpegQuality is the fixed re-encode quality for sanitized images.
const jpegQuality = 95

// SanitizeImage strips ALL embedded metadata (EXIF, IPTC, XMP, GPS, comments)
// from an image by decoding it and re-encoding a baseline JPEG. Metadata
// removal is exhaustive by construction: the decoded pixel grid is the only
// thing that survives, and nothing is ever re-attached.
//
// On any decode or encode failure the original bytes come back unchanged
// together with the error — fail-open, so a malformed upload never breaks the
// caller's pipeline, but still distinguishable from a successful strip.
// Callers that need fail-closed behavior must treat a non-nil error as a
// rejection.
func (a *Anonymizer) SanitizeImage(data []byte, fieldID string) ([]byte, error) {
	segments := metadataSegments(data)

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		a.audit.ImageFailed(fieldID, err)
		return data, fmt.Errorf("decode image: %w", err)
	}

	// JPEG output wants an opaque RGB-compatible mode; redraw anything else
	// (palette, alpha) onto a fresh RGBA canvas.
	switch img.(type) {
	case *image.RGBA, *image.YCbCr, *image.Gray:
	default:
		rgba := image.NewRGBA(img.Bounds())
		draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
		img = rgba
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		a.audit.ImageFailed(fieldID, err)
		return data, fmt.Errorf("encode image: %w", err)
	}

	clean := out.Bytes()
	a.audit.ImageSanitized(fieldID, len(data), len(clean), segments)
	return clean, nil
}

// metadataSegments counts the container-level metadata blocks present before
// the strip: APPn/COM segments for JPEG, ancillary text/EXIF/time chunks for
// PNG. The count feeds the audit event; segment contents are never read out.
func metadataSegments(data []byte) int {
	switch {
	case len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8:
		return jpegMetaSegments(data)
	case len(data) >= 8 && bytes.Equal(data[:8], pngSignature):
		return pngMetaChunks(data)
	default:
		return 0
	}
}

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}

func jpegMetaSegments(data []byte) int {
	count := 0
	i := 2
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			break
		}
		marker := data[i+1]
		// Standalone markers carry no length.
		if marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			i += 2
			continue
		}
		// Entropy-coded data or end of image: metadata can't follow.
		if marker == 0xDA || marker == 0xD9 {
			break
		}
		size := int(data[i+2])<<8 | int(data[i+3])
		if size < 2 {
			break
		}
		if (marker >= 0xE0 && marker <= 0xEF) || marker == 0xFE {
			count++
		}
		i += 2 + size
	}
	return count
}

func pngMetaChunks(data []byte) int {
	count := 0
	i := 8
	for i+8 <= len(data) {
		size := int(binary.BigEndian.Uint32(data[i : i+4]))
		switch string(data[i+4 : i+8]) {
		case "tEXt", "zTXt", "iTXt", "eXIf", "tIME":
			count++
		case "IEND":
			return count
		}
		i += 12 + size // length + type + payload + crc
	}
	return count
}
