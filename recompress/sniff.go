package recompress

import (
	"encoding/binary"

	"github.com/deepteams/flaca/internal/jpeg"
	"github.com/deepteams/flaca/internal/png"
)

// Kind is an image type determined from header bytes, never from the
// file extension — misnamed files get processed correctly, garbage gets
// rejected.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindPNG
	KindJPEG
)

func (k Kind) String() string {
	switch k {
	case KindPNG:
		return "png"
	case KindJPEG:
		return "jpeg"
	default:
		return "invalid"
	}
}

// Sniff identifies data by its magic bytes.
func Sniff(data []byte) (Kind, error) {
	if len(data) < 8 {
		return KindInvalid, ErrInvalidFormat
	}
	if [8]byte(data[:8]) == png.Signature {
		return KindPNG, nil
	}
	if data[0] == 0xFF && data[1] == 0xD8 {
		return KindJPEG, nil
	}
	return KindInvalid, ErrInvalidFormat
}

// Dimensions reads width and height from the format's own headers: the
// IHDR chunk for PNG, the first SOFn frame header for JPEG.
func Dimensions(kind Kind, data []byte) (width, height int, err error) {
	switch kind {
	case KindPNG:
		// Signature(8) + length(4) + "IHDR"(4) + width(4) + height(4).
		if len(data) < 24 || string(data[12:16]) != png.IHDR {
			return 0, 0, ErrInvalidFormat
		}
		width = int(binary.BigEndian.Uint32(data[16:]))
		height = int(binary.BigEndian.Uint32(data[20:]))
		return width, height, nil
	case KindJPEG:
		width, height, err = jpeg.Dimensions(data)
		if err != nil {
			return 0, 0, ErrInvalidFormat
		}
		return width, height, nil
	default:
		return 0, 0, ErrInvalidFormat
	}
}
