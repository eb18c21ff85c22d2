package deflate

// RFC 1951 length/distance constants.
const (
	MinMatch = 3
	MaxMatch = 258

	NumLitLenSymbols  = 288
	NumDistSymbols    = 32
	NumCodeLenSymbols = 19

	WindowSize      = 32768
	MasterBlockSize = 1000000

	endOfBlockSymbol = 256
)

// lengthSymbolEntry describes the symbol, extra-bit count, and extra-bit
// value used to transmit a given match length 3..=258.
type lengthSymbolEntry struct {
	symbol   uint16
	extraLen uint8
	extra    uint16
}

// distSymbolEntry describes the symbol, extra-bit count, and extra-bit
// value used to transmit a given match distance 1..=32768.
type distSymbolEntry struct {
	symbol   uint8
	extraLen uint8
	extra    uint16
}

// lengthTable and distTable are built once at package init from the RFC
// 1951 base/extra-bits tables below, then indexed directly by length-3 and
// distance-1 respectively for O(1) lookup during encoding.
var (
	lengthTable [MaxMatch - MinMatch + 1]lengthSymbolEntry
	distTable   [WindowSize]distSymbolEntry
)

// lengthBase lists, for symbols 257..=285, the smallest length the symbol
// represents and how many extra bits follow it.
var lengthBase = []struct {
	symbol   int
	base     int
	extraLen int
}{
	{257, 3, 0}, {258, 4, 0}, {259, 5, 0}, {260, 6, 0},
	{261, 7, 0}, {262, 8, 0}, {263, 9, 0}, {264, 10, 0},
	{265, 11, 1}, {266, 13, 1}, {267, 15, 1}, {268, 17, 1},
	{269, 19, 2}, {270, 23, 2}, {271, 27, 2}, {272, 31, 2},
	{273, 35, 3}, {274, 43, 3}, {275, 51, 3}, {276, 59, 3},
	{277, 67, 4}, {278, 83, 4}, {279, 99, 4}, {280, 115, 4},
	{281, 131, 5}, {282, 163, 5}, {283, 195, 5}, {284, 227, 5},
	{285, 258, 0},
}

// distBase lists, for symbols 0..=29, the smallest distance the symbol
// represents and how many extra bits follow it.
var distBase = []struct {
	symbol   int
	base     int
	extraLen int
}{
	{0, 1, 0}, {1, 2, 0}, {2, 3, 0}, {3, 4, 0},
	{4, 5, 1}, {5, 7, 1}, {6, 9, 2}, {7, 13, 2},
	{8, 17, 3}, {9, 25, 3}, {10, 33, 4}, {11, 49, 4},
	{12, 65, 5}, {13, 97, 5}, {14, 129, 6}, {15, 193, 6},
	{16, 257, 7}, {17, 385, 7}, {18, 513, 8}, {19, 769, 8},
	{20, 1025, 9}, {21, 1537, 9}, {22, 2049, 10}, {23, 3073, 10},
	{24, 4097, 11}, {25, 6145, 11}, {26, 8193, 12}, {27, 12289, 12},
	{28, 16385, 13}, {29, 24577, 13},
}

func init() {
	for i, e := range lengthBase {
		nextBase := MaxMatch + 1
		if i+1 < len(lengthBase) {
			nextBase = lengthBase[i+1].base
		} else {
			nextBase = MaxMatch + 1
		}
		for l := e.base; l < nextBase && l <= MaxMatch; l++ {
			lengthTable[l-MinMatch] = lengthSymbolEntry{
				symbol:   uint16(e.symbol),
				extraLen: uint8(e.extraLen),
				extra:    uint16(l - e.base),
			}
		}
	}
	// 258 is reached exactly at symbol 285's single value; the loop above
	// already assigns it since lengthBase's last entry has base==258 and
	// nextBase caps at MaxMatch+1.

	for i, e := range distBase {
		nextBase := WindowSize + 1
		if i+1 < len(distBase) {
			nextBase = distBase[i+1].base
		}
		for d := e.base; d < nextBase && d <= WindowSize; d++ {
			distTable[d-1] = distSymbolEntry{
				symbol:   uint8(e.symbol),
				extraLen: uint8(e.extraLen),
				extra:    uint16(d - e.base),
			}
		}
	}
}

// LengthSymbol returns the DEFLATE symbol, extra-bit count, and extra-bit
// value for a match length in [3, 258].
func LengthSymbol(length int) (symbol int, extraLen int, extra uint32) {
	e := lengthTable[length-MinMatch]
	return int(e.symbol), int(e.extraLen), uint32(e.extra)
}

// DistanceSymbol returns the DEFLATE symbol, extra-bit count, and
// extra-bit value for a match distance in [1, 32768].
func DistanceSymbol(dist int) (symbol int, extraLen int, extra uint32) {
	e := distTable[dist-1]
	return int(e.symbol), int(e.extraLen), uint32(e.extra)
}

// lengthSymbolExtraBits and distSymbolExtraBits are the inverse of
// lengthBase/distBase: for a given litlen or distance symbol, how many
// extra bits follow its Huffman code. Built once at init for O(1) lookup
// from the block-cost estimator, which only ever needs the bit count
// (the base/value are only needed when actually emitting a code).
var (
	lengthSymbolExtraBits [NumLitLenSymbols]int
	distSymbolExtraBits   [NumDistSymbols]int
)

func init() {
	for _, e := range lengthBase {
		lengthSymbolExtraBits[e.symbol] = e.extraLen
	}
	for _, e := range distBase {
		distSymbolExtraBits[e.symbol] = e.extraLen
	}
}

// lengthExtraForSymbol and distExtraForSymbol return (symbol, extraLen,
// 0) for litlen/distance symbols, mirroring LengthSymbol/DistanceSymbol's
// shape for callers (like the block-cost estimator) that only have the
// symbol, not the original length/distance value.
func lengthExtraForSymbol(symbol int) (sym, extraLen int, extra uint32) {
	return symbol, lengthSymbolExtraBits[symbol], 0
}

func distExtraForSymbol(symbol int) (sym, extraLen int, extra uint32) {
	return symbol, distSymbolExtraBits[symbol], 0
}

// DeflateOrder is the canonical permutation used to transmit code-length
// alphabet lengths in a dynamic block header.
var DeflateOrder = [19]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

// FixedTreeLL and FixedTreeD are the RFC 1951 fixed Huffman code lengths
// for the literal/length and distance alphabets.
var FixedTreeLL, FixedTreeD = fixedTreeLengths()

// fixedTreeLengths runs as a package variable initializer, which Go
// completes before any init function, so the fixed canonical codes built
// in deflate.go's init see the filled tables.
func fixedTreeLengths() (ll [NumLitLenSymbols]uint8, d [NumDistSymbols]uint8) {
	for i := 0; i <= 143; i++ {
		ll[i] = 8
	}
	for i := 144; i <= 255; i++ {
		ll[i] = 9
	}
	for i := 256; i <= 279; i++ {
		ll[i] = 7
	}
	for i := 280; i <= 287; i++ {
		ll[i] = 8
	}
	for i := range d {
		d[i] = 5
	}
	return ll, d
}
