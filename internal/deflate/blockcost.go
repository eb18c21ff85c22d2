package deflate

// storedBlockHeaderBits is the 5-byte stored-block overhead (the 3-bit
// BFINAL/BTYPE header padded to a byte, then 16-bit LEN and NLEN),
// expressed in bits.
const storedBlockHeaderBits = 5 * 8

// maxStoredBlockBytes is the largest payload a single stored block can
// carry: its LEN field is a 16-bit byte count.
const maxStoredBlockBytes = 65535

// treeOptimizeRounds bounds the "perturb small counts upward" pass in
// getDynamicLengths: each round tries, for every symbol whose frequency
// is zero, whether giving it a frequency of 1 shrinks the total dynamic
// size, stopping once a full sweep makes no improvement.
const treeOptimizeRounds = 15

// getDynamicLengths computes length-limited litlen/distance code lengths
// for store[lo:hi) via Katajainen, then runs the small perturbation
// pass: occasionally assigning a rarely/never-used
// symbol a count of 1 shrinks the RLE'd tree header by more than it
// lengthens the body, so each candidate perturbation is accepted only if
// it strictly reduces the total dynamicBlockSize.
func getDynamicLengths(store *LZ77Store, lo, hi int, arena *katArena) (llLengths [NumLitLenSymbols]uint8, dLengths [NumDistSymbols]uint8, err error) {
	llCounts, dCounts := store.Histogram(lo, hi)
	llCounts[endOfBlockSymbol] = 1

	llLengths, err = llclLL(llCounts[:], arena)
	if err != nil {
		return
	}
	dLengths, err = llclD(dCounts[:], arena)
	if err != nil {
		return
	}

	haveDist := false
	for _, l := range dLengths {
		if l != 0 {
			haveDist = true
			break
		}
	}
	if !haveDist {
		dLengths[0] = 1
	}

	size := treeBodySize(llLengths, dLengths, llCounts, dCounts)
	header, herr := buildTreeHeader(llLengths, dLengths, arena)
	if herr != nil {
		err = herr
		return
	}
	size += header.bitSize

	for round := 0; round < treeOptimizeRounds; round++ {
		improved := false
		for sym := range llCounts {
			if llCounts[sym] != 0 {
				continue
			}
			improved = tryPerturb(&llLengths, &dLengths, llCounts[:], dCounts[:], sym, true, &size, arena) || improved
		}
		for sym := range dCounts {
			if dCounts[sym] != 0 {
				continue
			}
			improved = tryPerturb(&llLengths, &dLengths, llCounts[:], dCounts[:], sym, false, &size, arena) || improved
		}
		if !improved {
			break
		}
	}

	return llLengths, dLengths, nil
}

// tryPerturb tentatively assigns a count of 1 to a zero-frequency symbol,
// recomputes lengths and exact size, and keeps the change only if it
// strictly lowers the total dynamic block size.
func tryPerturb(llLengths *[NumLitLenSymbols]uint8, dLengths *[NumDistSymbols]uint8, llCounts, dCounts []int32, sym int, isLL bool, size *int, arena *katArena) bool {
	var trialLL [NumLitLenSymbols]uint8
	var trialD [NumDistSymbols]uint8
	copy(trialLL[:], (*llLengths)[:])
	copy(trialD[:], (*dLengths)[:])

	revert := func() {
		if isLL {
			llCounts[sym] = 0
		} else {
			dCounts[sym] = 0
		}
	}
	if isLL {
		llCounts[sym] = 1
		fresh, err := llclLL(llCounts, arena)
		if err != nil {
			revert()
			return false
		}
		trialLL = fresh
	} else {
		dCounts[sym] = 1
		fresh, err := llclD(dCounts, arena)
		if err != nil {
			revert()
			return false
		}
		trialD = fresh
	}

	var llHist [NumLitLenSymbols]int32
	var dHist [NumDistSymbols]int32
	copy(llHist[:], llCounts)
	copy(dHist[:], dCounts)

	newSize := treeBodySize(trialLL, trialD, llHist, dHist)
	header, err := buildTreeHeader(trialLL, trialD, arena)
	if err != nil {
		revert()
		return false
	}
	newSize += header.bitSize

	if newSize < *size {
		// The perturbed count stays in place so later candidates are
		// judged against the tree this acceptance produced.
		*llLengths = trialLL
		*dLengths = trialD
		*size = newSize
		return true
	}
	revert()
	return false
}

// llclLL and llclD wrap LengthLimitedCodeLengths for the litlen and
// distance alphabets respectively, converting its uint32 output into the
// uint8 bitlength arrays the rest of this file works with.
func llclLL(counts []int32, arena *katArena) (out [NumLitLenSymbols]uint8, err error) {
	freqs := make([]int, NumLitLenSymbols)
	for i, c := range counts {
		freqs[i] = int(c)
	}
	var wide [NumLitLenSymbols]uint32
	if err = LengthLimitedCodeLengths(15, freqs, wide[:], arena); err != nil {
		return
	}
	for i, v := range wide {
		out[i] = uint8(v)
	}
	return
}

func llclD(counts []int32, arena *katArena) (out [NumDistSymbols]uint8, err error) {
	freqs := make([]int, NumDistSymbols)
	for i, c := range counts {
		freqs[i] = int(c)
	}
	var wide [NumDistSymbols]uint32
	if err = LengthLimitedCodeLengths(15, freqs, wide[:], arena); err != nil {
		return
	}
	for i, v := range wide {
		out[i] = uint8(v)
	}
	return
}

// dynamicBlockSize returns the exact number of bits (including the 3-bit
// block header and the dynamic tree header) to encode store[lo:hi) as a
// dynamic Huffman block. arena is the caller's per-worker Katajainen
// scratch; it is reset internally by every LengthLimitedCodeLengths call
// this makes, so callers never need to reset it themselves.
func dynamicBlockSize(store *LZ77Store, lo, hi int, arena *katArena) int {
	llLengths, dLengths, err := getDynamicLengths(store, lo, hi, arena)
	if err != nil {
		return maxStoredBlockBytes * 8 // effectively "infinite": never selected
	}
	llCounts, dCounts := store.Histogram(lo, hi)
	llCounts[endOfBlockSymbol] = 1
	size := 3 + treeBodySize(llLengths, dLengths, llCounts, dCounts)
	header, err := buildTreeHeader(llLengths, dLengths, arena)
	if err != nil {
		return maxStoredBlockBytes * 8
	}
	return size + header.bitSize
}

// fixedBlockSize returns the number of bits to encode store[lo:hi) as a
// fixed-Huffman block (RFC 1951's predefined code lengths).
func fixedBlockSize(store *LZ77Store, lo, hi int) int {
	llCounts, dCounts := store.Histogram(lo, hi)
	size := 3
	for sym, cnt := range llCounts {
		if cnt == 0 {
			continue
		}
		size += int(FixedTreeLL[sym]) * int(cnt)
		if sym >= 257 {
			_, extraLen, _ := lengthExtraForSymbol(sym)
			size += extraLen * int(cnt)
		}
	}
	size += int(FixedTreeLL[endOfBlockSymbol])
	for sym, cnt := range dCounts {
		if cnt == 0 {
			continue
		}
		size += int(FixedTreeD[sym]) * int(cnt)
		_, extraLen, _ := distExtraForSymbol(sym)
		size += extraLen * int(cnt)
	}
	return size
}

// blockType identifies which of the three RFC 1951 block encodings
// bestBlockTypeCost selected.
type blockType int

const (
	blockStored blockType = iota
	blockFixed
	blockDynamic
)

// bestBlockTypeCost compares stored/fixed/dynamic encodings of
// store[lo:hi) (whose underlying bytes span [rangeStart,rangeEnd)) and
// returns the cheapest, in bits, along with which type won. Ties prefer
// fixed over dynamic over stored.
func bestBlockTypeCost(store *LZ77Store, lo, hi, rangeStart, rangeEnd int, arena *katArena) (bits int, typ blockType) {
	dynamic := dynamicBlockSize(store, lo, hi, arena)
	fixed := fixedBlockSize(store, lo, hi)
	bits, typ = dynamic, blockDynamic
	if fixed <= bits {
		bits, typ = fixed, blockFixed
	}

	byteLen := rangeEnd - rangeStart
	if byteLen > 0 && byteLen <= maxStoredBlockBytes {
		stored := byteLen*8 + storedBlockHeaderBits
		if stored < bits {
			bits, typ = stored, blockStored
		}
	}
	return
}

// treeBodySize computes the bit cost of a dynamic block's body (the
// Huffman-coded symbol stream plus extra bits), excluding the header:
// sum over used symbols of count*length, plus extra bits for length and
// distance symbols that carry them.
func treeBodySize(llLengths [NumLitLenSymbols]uint8, dLengths [NumDistSymbols]uint8, llCounts [NumLitLenSymbols]int32, dCounts [NumDistSymbols]int32) int {
	size := 0
	for sym, cnt := range llCounts {
		if cnt == 0 {
			continue
		}
		size += int(llLengths[sym]) * int(cnt)
		if sym >= 257 {
			_, extraLen, _ := lengthExtraForSymbol(sym)
			size += extraLen * int(cnt)
		}
	}
	for sym, cnt := range dCounts {
		if cnt == 0 {
			continue
		}
		size += int(dLengths[sym]) * int(cnt)
		_, extraLen, _ := distExtraForSymbol(sym)
		size += extraLen * int(cnt)
	}
	return size
}
