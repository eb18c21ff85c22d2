package deflate

// canonicalCodes assigns canonical Huffman codes to a set of bit lengths,
// per RFC 1951 §3.2.2: codes are assigned in symbol order within each
// length class, starting from the smallest length, with the numerical
// value incrementing within a class and shifting left when the length
// increases.
func canonicalCodes(lengths []uint8) []uint32 {
	maxBits := 0
	for _, l := range lengths {
		if int(l) > maxBits {
			maxBits = int(l)
		}
	}
	codes := make([]uint32, len(lengths))
	if maxBits == 0 {
		return codes
	}

	blCount := make([]int, maxBits+1)
	for _, l := range lengths {
		if l > 0 {
			blCount[l]++
		}
	}

	nextCode := make([]uint32, maxBits+1)
	var code uint32
	for bits := 1; bits <= maxBits; bits++ {
		code = (code + uint32(blCount[bits-1])) << 1
		nextCode[bits] = code
	}

	for sym, l := range lengths {
		if l > 0 {
			codes[sym] = nextCode[l]
			nextCode[l]++
		}
	}
	return codes
}

// rleToken is one symbol of the 19-symbol code-length alphabet produced
// while RLE-encoding a litlen+distance length sequence: a literal length
// value 0..=18, or one of the three repeat codes (16/17/18) paired with
// its extra-bit count.
type rleToken struct {
	symbol   uint8
	extra    uint8
	extraLen uint8
}

// rleEncodeLengths converts a concatenated litlen+distance code-length
// array into code-length-alphabet tokens, using repeat symbol 16 (if
// allowed by useRepeat), zero-run symbol 17 (if useShortZero), and
// zero-run symbol 18 (if useLongZero). All three flags together form the
// "extra" mask.
func rleEncodeLengths(all []uint8, useRepeat, useShortZero, useLongZero bool) []rleToken {
	var tokens []rleToken
	n := len(all)
	for i := 0; i < n; {
		v := all[i]
		run := 1
		for i+run < n && all[i+run] == v {
			run++
		}

		if v == 0 {
			remaining := run
			for remaining > 0 {
				switch {
				case useLongZero && remaining >= 11:
					take := remaining
					if take > 138 {
						take = 138
					}
					tokens = append(tokens, rleToken{symbol: 18, extra: uint8(take - 11), extraLen: 7})
					remaining -= take
				case useShortZero && remaining >= 3:
					take := remaining
					if take > 10 {
						take = 10
					}
					tokens = append(tokens, rleToken{symbol: 17, extra: uint8(take - 3), extraLen: 3})
					remaining -= take
				default:
					tokens = append(tokens, rleToken{symbol: 0})
					remaining--
				}
			}
		} else {
			tokens = append(tokens, rleToken{symbol: v})
			remaining := run - 1
			for remaining > 0 && useRepeat {
				take := remaining
				if take > 6 {
					take = 6
				}
				if take < 3 {
					break
				}
				tokens = append(tokens, rleToken{symbol: 16, extra: uint8(take - 3), extraLen: 2})
				remaining -= take
			}
			for remaining > 0 {
				tokens = append(tokens, rleToken{symbol: v})
				remaining--
			}
		}

		i += run
	}
	return tokens
}

// treeHeader is the fully-resolved set of values needed to emit a dynamic
// block's header: trimmed HLIT/HDIST counts, the 19-symbol code-length
// tree, and the RLE token stream over the concatenated litlen+distance
// lengths.
type treeHeader struct {
	hlit, hdist int
	clLengths   [NumCodeLenSymbols]uint8
	clCodes     []uint32
	tokens      []rleToken
	bitSize     int
}

// computeHCLEN returns the largest index k in [0,15] such that the
// code-length symbol at DeflateOrder[k+3] is used.
func computeHCLEN(clLengths [NumCodeLenSymbols]uint8) int {
	for k := 15; k >= 0; k-- {
		if clLengths[DeflateOrder[k+3]] != 0 {
			return k
		}
	}
	return 0
}

// buildTreeHeader picks the cheapest of the 8 possible RLE masks and
// returns the header that achieves it, along with its
// exact serialized bit size (header only, not the body).
func buildTreeHeader(llLengths [NumLitLenSymbols]uint8, dLengths [NumDistSymbols]uint8, arena *katArena) (treeHeader, error) {
	hlit := NumLitLenSymbols - 1
	for hlit > 256 && llLengths[hlit] == 0 {
		hlit--
	}
	hdist := NumDistSymbols - 1
	for hdist > 0 && dLengths[hdist] == 0 {
		hdist--
	}

	all := make([]uint8, 0, hlit+1+hdist+1)
	all = append(all, llLengths[:hlit+1]...)
	all = append(all, dLengths[:hdist+1]...)

	best := treeHeader{}
	bestSize := -1

	for mask := 0; mask < 8; mask++ {
		useRepeat := mask&1 != 0
		useShortZero := mask&2 != 0
		useLongZero := mask&4 != 0

		tokens := rleEncodeLengths(all, useRepeat, useShortZero, useLongZero)

		var clCounts [NumCodeLenSymbols]int
		for _, t := range tokens {
			clCounts[t.symbol]++
		}

		var clLengths [NumCodeLenSymbols]uint32
		freqs := make([]int, NumCodeLenSymbols)
		for i, c := range clCounts {
			freqs[i] = c
		}
		if err := LengthLimitedCodeLengths(7, freqs, clLengths[:], arena); err != nil {
			return treeHeader{}, err
		}

		var l8probe [NumCodeLenSymbols]uint8
		for i, v := range clLengths {
			l8probe[i] = uint8(v)
		}
		hclen := computeHCLEN(l8probe)

		size := 14 + 3*(hclen+4)
		for sym, cnt := range clCounts {
			size += int(clLengths[sym]) * cnt
		}
		size += 2 * clCounts[16]
		size += 3 * clCounts[17]
		size += 7 * clCounts[18]

		if bestSize == -1 || size < bestSize {
			bestSize = size
			var l8 [NumCodeLenSymbols]uint8
			for i, v := range clLengths {
				l8[i] = uint8(v)
			}
			best = treeHeader{
				hlit:      hlit,
				hdist:     hdist,
				clLengths: l8,
				clCodes:   canonicalCodes(l8[:]),
				tokens:    tokens,
				bitSize:   size,
			}
		}
	}

	return best, nil
}

// writeDynamicHeader emits the dynamic block header (HLIT/HDIST/HCLEN,
// the code-length alphabet's own lengths, and the RLE-encoded litlen+
// distance lengths) to w.
func writeDynamicHeader(w *BitWriter, h treeHeader) {
	w.AddFixedBits(uint32(h.hlit+1-257), 5)
	w.AddFixedBits(uint32(h.hdist+1-1), 5)

	hclen := computeHCLEN(h.clLengths)
	w.AddFixedBits(uint32(hclen), 4)

	for k := 0; k < hclen+4; k++ {
		w.AddFixedBits(uint32(h.clLengths[DeflateOrder[k]]), 3)
	}

	for _, t := range h.tokens {
		w.AddHuffmanBits(h.clCodes[t.symbol], int(h.clLengths[t.symbol]))
		if t.extraLen > 0 {
			w.AddFixedBits(uint32(t.extra), int(t.extraLen))
		}
	}
}
