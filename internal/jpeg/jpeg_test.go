package jpeg

import (
	"bytes"
	"image"
	"image/color"
	stdjpeg "image/jpeg"
	"testing"
)

func encodeTestJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio420)
	for i := range img.Y {
		img.Y[i] = uint8(i * 7)
	}
	var buf bytes.Buffer
	if err := stdjpeg.Encode(&buf, img, &stdjpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("stdlib jpeg encode: %v", err)
	}
	return buf.Bytes()
}

// injectSegment splices a length-prefixed segment right after SOI.
func injectSegment(src []byte, marker byte, payload []byte) []byte {
	seg := make([]byte, 0, 4+len(payload))
	seg = append(seg, 0xFF, marker, byte((len(payload)+2)>>8), byte(len(payload)+2))
	seg = append(seg, payload...)

	out := make([]byte, 0, len(src)+len(seg))
	out = append(out, src[:2]...)
	out = append(out, seg...)
	out = append(out, src[2:]...)
	return out
}

func TestDimensions(t *testing.T) {
	src := encodeTestJPEG(t, 70, 42)
	w, h, err := Dimensions(src)
	if err != nil {
		t.Fatalf("Dimensions: %v", err)
	}
	if w != 70 || h != 42 {
		t.Fatalf("got %dx%d, want 70x42", w, h)
	}
}

func TestDimensionsNotJPEG(t *testing.T) {
	if _, _, err := Dimensions([]byte{0x89, 'P', 'N', 'G'}); err != ErrNotJPEG {
		t.Fatalf("got %v, want ErrNotJPEG", err)
	}
}

func TestStripMetadataRemovesCOMAndAPPn(t *testing.T) {
	clean := encodeTestJPEG(t, 24, 24)
	dirty := injectSegment(clean, 0xE1, bytes.Repeat([]byte("Exif"), 64))
	dirty = injectSegment(dirty, markerCOM, []byte("created by some editor"))

	got, err := StripMetadata(dirty)
	if err != nil {
		t.Fatalf("StripMetadata: %v", err)
	}
	if !bytes.Equal(got, clean) {
		t.Fatalf("stripped output differs from the pre-injection bytes (lengths %d vs %d)", len(got), len(clean))
	}
	if len(got) >= len(dirty) {
		t.Fatalf("stripping removed nothing: %d vs %d bytes", len(got), len(dirty))
	}
}

func TestStripMetadataKeepsAPP0(t *testing.T) {
	clean := encodeTestJPEG(t, 16, 16)
	withJFIF := injectSegment(clean, markerAPP0, []byte{'J', 'F', 'I', 'F', 0, 1, 2, 0, 0, 1, 0, 1, 0, 0})

	got, err := StripMetadata(withJFIF)
	if err != nil {
		t.Fatalf("StripMetadata: %v", err)
	}
	if !bytes.Equal(got, withJFIF) {
		t.Fatal("JFIF APP0 segment was not preserved")
	}
}

func TestStripMetadataDecodesIdentically(t *testing.T) {
	clean := encodeTestJPEG(t, 40, 32)
	dirty := injectSegment(clean, 0xEE, bytes.Repeat([]byte{0xAB}, 100))

	stripped, err := StripMetadata(dirty)
	if err != nil {
		t.Fatalf("StripMetadata: %v", err)
	}

	want, err := stdjpeg.Decode(bytes.NewReader(dirty))
	if err != nil {
		t.Fatalf("decode dirty: %v", err)
	}
	got, err := stdjpeg.Decode(bytes.NewReader(stripped))
	if err != nil {
		t.Fatalf("decode stripped: %v", err)
	}

	b := got.Bounds()
	if b != want.Bounds() {
		t.Fatalf("bounds changed: %v vs %v", b, want.Bounds())
	}
	for y := b.Min.Y; y < b.Max.Y; y += 3 {
		for x := b.Min.X; x < b.Max.X; x += 3 {
			if !sameColor(got.At(x, y), want.At(x, y)) {
				t.Fatalf("pixel (%d,%d) changed after metadata strip", x, y)
			}
		}
	}
}

func sameColor(a, b color.Color) bool {
	ar, ag, ab_, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	return ar == br && ag == bg && ab_ == bb && aa == ba
}

func TestStripMetadataRejectsGarbage(t *testing.T) {
	if _, err := StripMetadata([]byte("not an image")); err != ErrNotJPEG {
		t.Fatalf("got %v, want ErrNotJPEG", err)
	}
	src := encodeTestJPEG(t, 8, 8)
	if _, err := StripMetadata(src[:6]); err != ErrTruncated {
		t.Fatalf("truncated input: got %v, want ErrTruncated", err)
	}
}
