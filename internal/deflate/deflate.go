package deflate

import "fmt"

// fixedLLCodes and fixedDCodes are the canonical codes for the RFC 1951
// fixed Huffman trees, built once since FixedTreeLL/FixedTreeD never
// change.
var (
	fixedLLCodes []uint32
	fixedDCodes  []uint32
)

func init() {
	fixedLLCodes = canonicalCodes(FixedTreeLL[:])
	fixedDCodes = canonicalCodes(FixedTreeD[:])
}

// Encoder holds everything one worker needs to deflate a sequence of
// byte buffers: the rolling hash, the longest-match cache, the
// Katajainen bump arena, squeeze's scratch stores and stats, and the
// output bit writer. None of this is safe to share between goroutines —
// an Encoder belongs to exactly one worker for its entire lifetime, per
// the one-image-per-worker concurrency model.
type Encoder struct {
	hash    *hashChain
	lmc     *LMC
	arena   *katArena
	scratch *squeezeScratch
	bw      *BitWriter

	greedyStore LZ77Store
	optStore    LZ77Store

	// Iterations overrides the built-in size-dependent iteration policy
	// when non-zero. Zero selects the default.
	Iterations int
}

// NewEncoder allocates a fresh, empty Encoder ready for repeated use
// across many images by one worker.
func NewEncoder() *Encoder {
	arena := &katArena{}
	return &Encoder{
		hash:    newHashChain(),
		lmc:     &LMC{},
		arena:   arena,
		scratch: newSqueezeScratch(arena),
		bw:      NewBitWriter(4096),
	}
}

// Deflate compresses input into a complete DEFLATE stream, setting
// BFINAL only on the very last block when final is true. The returned
// slice is owned by the caller; the Encoder's internal buffer is reused
// on the next call.
func (e *Encoder) Deflate(input []byte, final bool) ([]byte, error) {
	e.bw.Reset()

	if len(input) == 0 {
		// Zero-length input still needs one final block carrying only
		// the end-of-block symbol; the normal pipeline produces it from
		// an empty store.
		if final {
			if err := e.encodeMasterBlock(input, 0, 0, true); err != nil {
				return nil, err
			}
			e.bw.ByteAlign()
		}
		return e.bw.Finish(), nil
	}

	n := len(input)
	for partStart := 0; partStart < n; partStart += MasterBlockSize {
		partEnd := partStart + MasterBlockSize
		if partEnd > n {
			partEnd = n
		}
		isLastPart := partEnd == n
		if err := e.encodeMasterBlock(input, partStart, partEnd, final && isLastPart); err != nil {
			return nil, err
		}
	}

	e.bw.ByteAlign()
	return e.bw.Finish(), nil
}

// encodeMasterBlock runs the full per-part pipeline over
// input[partStart:partEnd): greedy seed, pre-squeeze block split, per-
// segment squeeze, post-squeeze block split, then emits each final
// segment as the cheapest of stored/fixed/dynamic. finalFlag marks this
// as the very last master block of the very last call, so its last
// emitted segment carries BFINAL.
func (e *Encoder) encodeMasterBlock(input []byte, partStart, partEnd int, finalFlag bool) error {
	blockSize := partEnd - partStart

	e.lmc.Reset(blockSize)
	greedyMatcher := &matcher{bytes: input, from: partStart, hash: e.hash, lmc: e.lmc}

	e.greedyStore.Clear()
	if err := greedyLZ77(greedyMatcher, partEnd, &e.greedyStore); err != nil {
		return err
	}

	preSplits := splitStore(&e.greedyStore, e.arena)

	e.optStore.Clear()
	for i := 0; i+1 < len(preSplits); i++ {
		segLo, segHi := preSplits[i], preSplits[i+1]
		if segLo >= segHi {
			continue
		}
		segStart, segEnd := e.greedyStore.ByteRange(segLo, segHi)

		// The LMC is keyed by offset from the matcher's start, so it must
		// be re-scoped to exactly this segment; the hash chain needs no
		// reset here, squeeze rewinds it before every pass of its own.
		e.lmc.Reset(segEnd - segStart)
		segMatcher := &matcher{bytes: input, from: segStart, hash: e.hash, lmc: e.lmc}

		iterations := iterationsFor(e.Iterations, segEnd-segStart)
		if err := squeeze(segMatcher, segEnd, e.scratch, iterations, &e.optStore); err != nil {
			return err
		}
	}

	finalSplits := splitStore(&e.optStore, e.arena)

	lastSegment := len(finalSplits) - 2
	for i := 0; i+1 < len(finalSplits); i++ {
		lo, hi := finalSplits[i], finalSplits[i+1]
		rangeStart, rangeEnd := e.optStore.ByteRange(lo, hi)
		isFinal := finalFlag && i == lastSegment
		if err := e.emitBlock(input, &e.optStore, lo, hi, rangeStart, rangeEnd, isFinal); err != nil {
			return err
		}
	}
	return nil
}

// emitBlock picks the cheapest block type for store[lo:hi) (spanning
// input bytes [rangeStart,rangeEnd)) and writes it to the bit writer.
func (e *Encoder) emitBlock(input []byte, store *LZ77Store, lo, hi, rangeStart, rangeEnd int, isFinal bool) error {
	_, typ := bestBlockTypeCost(store, lo, hi, rangeStart, rangeEnd, e.arena)

	var finalBit uint32
	if isFinal {
		finalBit = 1
	}

	switch typ {
	case blockStored:
		e.bw.AddBit(finalBit)
		e.bw.AddFixedBits(0, 2)
		e.bw.ByteAlign()
		length := rangeEnd - rangeStart
		e.bw.AddFixedBits(uint32(length), 16)
		e.bw.AddFixedBits(uint32(length)^0xFFFF, 16)
		e.bw.AddBytes(input[rangeStart:rangeEnd])

	case blockFixed:
		e.bw.AddBit(finalBit)
		e.bw.AddFixedBits(1, 2)
		writeBlockBody(e.bw, store, lo, hi, FixedTreeLL[:], FixedTreeD[:], fixedLLCodes, fixedDCodes)

	case blockDynamic:
		llLengths, dLengths, err := getDynamicLengths(store, lo, hi, e.arena)
		if err != nil {
			return err
		}
		header, err := buildTreeHeader(llLengths, dLengths, e.arena)
		if err != nil {
			return err
		}
		e.bw.AddBit(finalBit)
		e.bw.AddFixedBits(2, 2)
		writeDynamicHeader(e.bw, header)
		llCodes := canonicalCodes(llLengths[:])
		dCodes := canonicalCodes(dLengths[:])
		writeBlockBody(e.bw, store, lo, hi, llLengths[:], dLengths[:], llCodes, dCodes)

	default:
		return fmt.Errorf("%w: unknown block type %d", ErrInternal, typ)
	}

	return nil
}

// writeBlockBody emits store[lo:hi) as Huffman-coded symbols under the
// given lengths/codes, followed by the end-of-block symbol.
func writeBlockBody(w *BitWriter, store *LZ77Store, lo, hi int, llLengths, dLengths []uint8, llCodes, dCodes []uint32) {
	for i := lo; i < hi; i++ {
		litlen, dist, _ := store.At(i)
		llSym, dSym := store.Symbols(i)

		w.AddHuffmanBits(llCodes[llSym], int(llLengths[llSym]))
		if dist == 0 {
			continue
		}
		_, lExtraLen, lExtra := LengthSymbol(litlen)
		if lExtraLen > 0 {
			w.AddFixedBits(lExtra, lExtraLen)
		}
		w.AddHuffmanBits(dCodes[dSym], int(dLengths[dSym]))
		_, dExtraLen, dExtra := DistanceSymbol(dist)
		if dExtraLen > 0 {
			w.AddFixedBits(dExtra, dExtraLen)
		}
	}
	w.AddHuffmanBits(llCodes[endOfBlockSymbol], int(llLengths[endOfBlockSymbol]))
}
