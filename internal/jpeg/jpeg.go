// Package jpeg performs the lossless part of JPEG recompression: walking
// the marker stream, reading dimensions from the frame header, and
// dropping metadata segments the decoder never looks at. The entropy-coded
// image data itself passes through untouched.
package jpeg

import (
	"encoding/binary"
	"errors"
)

// ErrNotJPEG is returned when the input does not begin with an SOI
// marker.
var ErrNotJPEG = errors.New("jpeg: not a JPEG file")

// ErrTruncated is returned when the marker stream ends before a frame
// header (for Dimensions) or mid-segment.
var ErrTruncated = errors.New("jpeg: truncated marker stream")

// Marker bytes this package dispatches on. SOF0 through SOF15 share the
// 0xC0 high nibble except the non-frame markers carved out of that range
// (DHT, JPG, DAC).
const (
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerDHT  = 0xC4
	markerJPG  = 0xC8
	markerDAC  = 0xCC
	markerCOM  = 0xFE
	markerAPP0 = 0xE0
	markerTEM  = 0x01
	markerRST0 = 0xD0
	markerRST7 = 0xD7
)

func isSOF(m byte) bool {
	return m >= 0xC0 && m <= 0xCF && m != markerDHT && m != markerJPG && m != markerDAC
}

func standalone(m byte) bool {
	return m == markerTEM || (m >= markerRST0 && m <= markerRST7)
}

// Dimensions reads the image width and height from the first SOFn frame
// header in src.
func Dimensions(src []byte) (width, height int, err error) {
	err = walkSegments(src, func(marker byte, seg []byte) (bool, error) {
		if !isSOF(marker) {
			return false, nil
		}
		// Frame header: precision u8, height u16, width u16, ...
		if len(seg) < 5 {
			return false, ErrTruncated
		}
		height = int(binary.BigEndian.Uint16(seg[1:]))
		width = int(binary.BigEndian.Uint16(seg[3:]))
		return true, nil
	})
	if err == nil && width == 0 && height == 0 {
		err = ErrTruncated
	}
	return width, height, err
}

// StripMetadata returns a copy of src with every COM and APPn segment
// (other than the JFIF APP0) before the first scan removed. Markers at
// or after SOS, including everything embedded in the entropy-coded
// data, are copied verbatim, so the decoded image is bit-identical.
func StripMetadata(src []byte) ([]byte, error) {
	if len(src) < 2 || src[0] != 0xFF || src[1] != markerSOI {
		return nil, ErrNotJPEG
	}
	out := make([]byte, 0, len(src))
	out = append(out, 0xFF, markerSOI)

	pos := 2
	for pos < len(src) {
		if src[pos] != 0xFF {
			return nil, ErrTruncated
		}
		if pos+1 >= len(src) {
			return nil, ErrTruncated
		}
		marker := src[pos+1]

		if marker == markerSOS {
			// Entropy-coded data follows; everything from here to the
			// end of input passes through unmodified.
			out = append(out, src[pos:]...)
			return out, nil
		}
		if marker == markerEOI {
			out = append(out, src[pos:pos+2]...)
			return out, nil
		}
		if standalone(marker) {
			out = append(out, src[pos:pos+2]...)
			pos += 2
			continue
		}

		if pos+4 > len(src) {
			return nil, ErrTruncated
		}
		segLen := int(binary.BigEndian.Uint16(src[pos+2:]))
		if segLen < 2 || pos+2+segLen > len(src) {
			return nil, ErrTruncated
		}
		end := pos + 2 + segLen

		drop := marker == markerCOM || (marker > markerAPP0 && marker <= 0xEF)
		if !drop {
			out = append(out, src[pos:end]...)
		}
		pos = end
	}
	return nil, ErrTruncated
}

// walkSegments calls fn for each length-prefixed segment before the
// first SOS, stopping early when fn returns true.
func walkSegments(src []byte, fn func(marker byte, seg []byte) (bool, error)) error {
	if len(src) < 2 || src[0] != 0xFF || src[1] != markerSOI {
		return ErrNotJPEG
	}
	pos := 2
	for pos+1 < len(src) {
		if src[pos] != 0xFF {
			return ErrTruncated
		}
		marker := src[pos+1]
		if marker == markerSOS || marker == markerEOI {
			return nil
		}
		if standalone(marker) {
			pos += 2
			continue
		}
		if pos+4 > len(src) {
			return ErrTruncated
		}
		segLen := int(binary.BigEndian.Uint16(src[pos+2:]))
		if segLen < 2 || pos+2+segLen > len(src) {
			return ErrTruncated
		}
		stop, err := fn(marker, src[pos+4:pos+2+segLen])
		if err != nil || stop {
			return err
		}
		pos += 2 + segLen
	}
	return ErrTruncated
}
