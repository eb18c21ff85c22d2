// Package recompress ties the format layers to the deflate core: it
// reads a file, identifies it from its headers, recompresses it in
// memory, and atomically replaces the original only when the result is
// strictly smaller. The deflate core never sees a file or a path.
package recompress

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/deepteams/flaca/internal/deflate"
	"github.com/deepteams/flaca/internal/jpeg"
	"github.com/deepteams/flaca/internal/png"
)

// User-visible per-file failures. Everything else that can go
// wrong inside the deflate core surfaces as deflate.ErrInternal and is
// treated the same way: the attempt is discarded, the original file is
// kept. ErrNoSavings is the one benign member of the set: the file was
// processed fine, it just cannot be made any smaller.
var (
	ErrReadFailed    = errors.New("recompress: read error")
	ErrWriteFailed   = errors.New("recompress: write error")
	ErrInvalidFormat = errors.New("recompress: invalid format")
	ErrVanished      = errors.New("recompress: file vanished")
	ErrTooBig        = errors.New("recompress: pixel limit exceeded")
	ErrNoSavings     = errors.New("recompress: no savings")
)

// encoderPool hands each worker a reusable deflate scratch state: hash
// tables, match cache, stores and arena survive from image to image
// instead of being reallocated per file.
var encoderPool = sync.Pool{
	New: func() any { return deflate.NewEncoder() },
}

// File recompresses one image in place per cfg, returning its before
// and after sizes in bytes. A (0, 0, nil) return means the file was
// skipped by the kind filter. When compression yields no savings the
// file is left untouched and File returns ErrNoSavings with both sizes
// set to the original, so callers can errors.Is it apart from real
// failures.
func File(ctx context.Context, path string, cfg Config) (before, after uint64, err error) {
	cfg = cfg.normalized()

	data, err := readFile(path)
	if err != nil {
		return 0, 0, err
	}
	before = uint64(len(data))

	kind, err := Sniff(data)
	if err != nil {
		return 0, 0, err
	}
	if (kind == KindPNG && !cfg.PNG) || (kind == KindJPEG && !cfg.JPEG) {
		return 0, 0, nil
	}

	if cfg.MaxPixels > 0 {
		w, h, err := Dimensions(kind, data)
		if err != nil {
			return 0, 0, err
		}
		if int64(w)*int64(h) > cfg.MaxPixels {
			return 0, 0, fmt.Errorf("%w: %dx%d", ErrTooBig, w, h)
		}
	}

	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	var compressed []byte
	switch kind {
	case KindPNG:
		compressed, err = recompressPNG(data, cfg.Iterations)
	case KindJPEG:
		compressed, err = jpeg.StripMetadata(data)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	// Only a strictly smaller result replaces the original.
	if len(compressed) == 0 || len(compressed) >= len(data) {
		return before, before, ErrNoSavings
	}
	after = uint64(len(compressed))

	if cfg.DryRun {
		return before, after, nil
	}
	if err := writeAtomic(path, compressed, cfg.PreserveTimes); err != nil {
		return 0, 0, err
	}
	return before, after, nil
}

// recompressPNG runs the IDAT payload through a pooled deflate encoder.
func recompressPNG(data []byte, iterations int) ([]byte, error) {
	enc := encoderPool.Get().(*deflate.Encoder)
	defer encoderPool.Put(enc)
	enc.Iterations = iterations

	return png.RecompressIDAT(data, func(input []byte, final bool) ([]byte, error) {
		return enc.Deflate(input, final)
	})
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrReadFailed, path)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file %s", ErrReadFailed, path)
	}
	return data, nil
}
