package anonymize

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodeJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// withComment splices a COM segment carrying fake patient metadata right
// after the SOI marker.
func withComment(t *testing.T, jpg []byte, comment string) []byte {
	t.Helper()
	if len(jpg) < 2 || jpg[0] != 0xFF || jpg[1] != 0xD8 {
		t.Fatal("not a JPEG")
	}
	size := len(comment) + 2
	seg := []byte{0xFF, 0xFE, byte(size >> 8), byte(size & 0xFF)}
	seg = append(seg, comment...)

	out := make([]byte, 0, len(jpg)+len(seg))
	out = append(out, jpg[:2]...)
	out = append(out, seg...)
	out = append(out, jpg[2:]...)
	return out
}

func TestSanitizeImageStripsMetadata(t *testing.T) {
	audit := &recordingAuditor{}
	a := New(audit)

	raw := withComment(t, encodeJPEG(t), "Patient: John Smith DOB 01/15/1980")
	if metadataSegments(raw) == 0 {
		t.Fatal("test image should carry a metadata segment")
	}

	clean, err := a.SanitizeImage(raw, "scan_chest_xray")
	if err != nil {
		t.Fatalf("SanitizeImage: %v", err)
	}

	if bytes.Contains(clean, []byte("John Smith")) {
		t.Error("comment text survived re-encode")
	}
	if got := metadataSegments(clean); got != 0 {
		t.Errorf("expected 0 metadata segments after strip, got %d", got)
	}
	if _, _, err := image.Decode(bytes.NewReader(clean)); err != nil {
		t.Errorf("sanitized output is not a decodable image: %v", err)
	}

	if len(audit.images) != 1 {
		t.Fatalf("expected 1 image audit event, got %d", len(audit.images))
	}
	ev := audit.images[0]
	if ev.fieldID != "scan_chest_xray" || ev.originalBytes != len(raw) || ev.cleanBytes != len(clean) {
		t.Errorf("bad audit event: %+v", ev)
	}
	if ev.metadataSegments == 0 {
		t.Error("audit event should report the pre-strip segment count")
	}
}

func TestSanitizeImagePNGInput(t *testing.T) {
	a := New(&recordingAuditor{})

	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	clean, err := a.SanitizeImage(buf.Bytes(), "scan_mri")
	if err != nil {
		t.Fatalf("SanitizeImage: %v", err)
	}

	// Output is always baseline JPEG regardless of input format.
	cfg, format, err := image.DecodeConfig(bytes.NewReader(clean))
	if err != nil {
		t.Fatalf("decode sanitized output: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("expected jpeg output, got %s", format)
	}
	if cfg.Width != 10 || cfg.Height != 10 {
		t.Errorf("dimensions changed: %dx%d", cfg.Width, cfg.Height)
	}
}

func TestSanitizeImageFailOpen(t *testing.T) {
	audit := &recordingAuditor{}
	a := New(audit)

	bad := []byte("this is not an image")
	got, err := a.SanitizeImage(bad, "bad_upload")
	if err == nil {
		t.Fatal("expected decode error")
	}
	if !bytes.Equal(got, bad) {
		t.Error("fail-open must return the original bytes unchanged")
	}
	if len(audit.failures) != 1 || audit.failures[0] != "bad_upload" {
		t.Errorf("expected one failure event, got %v", audit.failures)
	}
	if len(audit.images) != 0 {
		t.Error("no sanitized event should fire on failure")
	}
}

func TestMetadataSegmentsNonImage(t *testing.T) {
	if got := metadataSegments([]byte("plain text")); got != 0 {
		t.Errorf("expected 0 for non-image bytes, got %d", got)
	}
	if got := metadataSegments(nil); got != 0 {
		t.Errorf("expected 0 for nil, got %d", got)
	}
}
