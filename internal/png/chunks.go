// Package png parses and reassembles PNG files at the chunk level so the
// IDAT payload can be recompressed with internal/deflate without touching
// any other part of the container.
package png

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// Signature is the 8-byte magic every PNG file begins with.
var Signature = [8]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}

// ErrNotPNG is returned when the input does not begin with the PNG
// signature.
var ErrNotPNG = errors.New("png: not a PNG file")

// ErrTruncated is returned when a chunk's declared length runs past the
// end of the input, or no IEND chunk is ever found.
var ErrTruncated = errors.New("png: truncated chunk stream")

// ErrBadCRC is returned when a chunk's trailing CRC32 does not match its
// type+data.
var ErrBadCRC = errors.New("png: chunk CRC mismatch")

// Chunk is one length-prefixed PNG chunk, CRC included implicitly (it is
// recomputed from Type+Data whenever the chunk is written back out, so
// callers never need to maintain it by hand).
type Chunk struct {
	Type string
	Data []byte
}

// IDAT, IHDR, IEND are the chunk type names this package cares about by
// name; every other chunk type is passed through unexamined.
const (
	IHDR = "IHDR"
	IDAT = "IDAT"
	IEND = "IEND"
)

// ParseChunks reads a PNG byte stream into its signature-verified chunk
// sequence, ending at (and including) IEND. Trailing bytes after IEND, if
// any, are ignored, matching how real decoders treat PNG as a container
// that ends at its own terminator chunk.
func ParseChunks(src []byte) ([]Chunk, error) {
	if len(src) < 8 || [8]byte(src[:8]) != Signature {
		return nil, ErrNotPNG
	}
	pos := 8
	var chunks []Chunk
	for {
		if pos+8 > len(src) {
			return nil, ErrTruncated
		}
		length := binary.BigEndian.Uint32(src[pos:])
		typ := string(src[pos+4 : pos+8])
		dataStart := pos + 8
		dataEnd := dataStart + int(length)
		if length > 1<<31 || dataEnd+4 > len(src) {
			return nil, ErrTruncated
		}
		data := src[dataStart:dataEnd]

		wantCRC := binary.BigEndian.Uint32(src[dataEnd:])
		gotCRC := crc32.ChecksumIEEE(src[pos+4 : dataEnd])
		if wantCRC != gotCRC {
			return nil, ErrBadCRC
		}

		chunks = append(chunks, Chunk{Type: typ, Data: append([]byte(nil), data...)})
		pos = dataEnd + 4
		if typ == IEND {
			return chunks, nil
		}
	}
}

// WriteChunks serializes chunks back into a complete PNG byte stream,
// recomputing each chunk's length and CRC32.
func WriteChunks(chunks []Chunk) []byte {
	size := len(Signature)
	for _, c := range chunks {
		size += 8 + len(c.Data) + 4
	}
	out := make([]byte, 0, size)
	out = append(out, Signature[:]...)
	var lenBuf, crcBuf [4]byte
	for _, c := range chunks {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(c.Data)))
		out = append(out, lenBuf[:]...)
		typeStart := len(out)
		out = append(out, []byte(c.Type)...)
		out = append(out, c.Data...)
		binary.BigEndian.PutUint32(crcBuf[:], crc32.ChecksumIEEE(out[typeStart:]))
		out = append(out, crcBuf[:]...)
	}
	return out
}
