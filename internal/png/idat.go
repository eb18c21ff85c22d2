package png

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"hash/adler32"
	"io"

	"github.com/deepteams/flaca/internal/pool"
)

// DeflateFunc recompresses a raw (already filtered) IDAT payload into a
// bare DEFLATE stream. final is always true for PNG's single zlib
// stream; it is part of the signature so the callback can be the
// deflate core's entry point unchanged.
type DeflateFunc func(input []byte, final bool) ([]byte, error)

// ErrNoIDAT is returned when a structurally valid PNG carries no IDAT
// chunk at all.
var ErrNoIDAT = errors.New("png: no IDAT chunk")

// maxIDATChunk is the payload size the recompressed output is split at.
// lodepng and most encoders emit one giant IDAT; 8 MiB per chunk keeps
// any reasonable image in a single chunk while staying far under the
// 2^31-1 format limit.
const maxIDATChunk = 8 << 20

// RecompressIDAT rebuilds src with its IDAT stream recompressed through
// deflate. All IDAT chunks are concatenated, the zlib wrapper is
// stripped and re-applied (CMF/FLG header, Adler-32 trailer), and the
// non-IDAT chunks pass through in their original order with the new
// IDAT data taking the place of the first original IDAT. The result is
// returned whether or not it is smaller; callers decide whether to keep
// it.
func RecompressIDAT(src []byte, deflate DeflateFunc) ([]byte, error) {
	chunks, err := ParseChunks(src)
	if err != nil {
		return nil, err
	}

	idatLen := 0
	for _, c := range chunks {
		if c.Type == IDAT {
			idatLen += len(c.Data)
		}
	}
	if idatLen == 0 {
		return nil, ErrNoIDAT
	}

	zdata := pool.Get(idatLen)
	defer pool.Put(zdata)
	zdata = zdata[:0]
	for _, c := range chunks {
		if c.Type == IDAT {
			zdata = append(zdata, c.Data...)
		}
	}

	raw, err := inflateZlib(zdata)
	if err != nil {
		return nil, fmt.Errorf("png: IDAT stream: %w", err)
	}

	compressed, err := deflate(raw, true)
	if err != nil {
		return nil, err
	}
	wrapped := wrapZlib(compressed, raw)

	out := make([]Chunk, 0, len(chunks))
	emitted := false
	for _, c := range chunks {
		if c.Type != IDAT {
			out = append(out, c)
			continue
		}
		if emitted {
			continue
		}
		emitted = true
		for off := 0; off < len(wrapped); off += maxIDATChunk {
			end := off + maxIDATChunk
			if end > len(wrapped) {
				end = len(wrapped)
			}
			out = append(out, Chunk{Type: IDAT, Data: wrapped[off:end]})
		}
	}
	return WriteChunks(out), nil
}

// inflateZlib decompresses one complete zlib stream into a fresh
// buffer.
func inflateZlib(zdata []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(zdata))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// wrapZlib frames a bare DEFLATE stream as a zlib stream: the 2-byte
// CMF/FLG header (32K window, FLEVEL=3, check bits adjusted so the pair
// is divisible by 31 per RFC 1950) and the Adler-32 of the uncompressed
// payload as a big-endian trailer.
func wrapZlib(compressed, raw []byte) []byte {
	const cmf = 0x78
	flg := uint32(3 << 6)
	if rem := (cmf<<8 | flg) % 31; rem != 0 {
		flg += 31 - rem
	}

	out := make([]byte, 0, len(compressed)+6)
	out = append(out, cmf, byte(flg))
	out = append(out, compressed...)
	sum := adler32.Checksum(raw)
	out = append(out, byte(sum>>24), byte(sum>>16), byte(sum>>8), byte(sum))
	return out
}
