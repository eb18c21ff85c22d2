package deflate

// hashBits sizes the primary hash table at 2^hashBits slots, matching the
// head table's 32,768 slots (a 15-bit hash of 3 bytes).
const (
	hashBits  = 15
	hashSize  = 1 << hashBits
	hashMask  = hashSize - 1
	hashShift = 5
)

// maxSameRun caps the "same" run-length counter so it always fits a
// uint16, capped so a degenerate all-zero input cannot blow it up, scaled
// to the counter's natural width.
const maxSameRun = 0xFFFF

// hashChain is the rolling 3-byte hash plus hash-chain machinery used to
// find candidate match positions. Two parallel hash tables are kept: the
// primary one over the raw 3-byte hash, and a secondary one that folds in
// the current "same run" length, which lets the longest-match search skip
// through long runs of repeated bytes (e.g. zeros) in long strides instead
// of walking every chain link. Both tables, plus "prev" and "same" arrays,
// are sized to one window and indexed circularly by pos & windowMask, so
// the whole structure is allocated once per worker and reused across
// every master block.
type hashChain struct {
	head  []int32 // hash value -> most recent window-relative index, or -1
	prev  []int32 // window-relative index -> previous index with same hash
	val   []int32 // window-relative index -> hash value recorded there
	head2 []int32
	prev2 []int32
	val2  []int32
	same  []uint16 // window-relative index -> run length of bytes[pos]==bytes[pos-1]...

	curVal  int32
	curVal2 int32
}

func newHashChain() *hashChain {
	h := &hashChain{
		head:  make([]int32, hashSize),
		prev:  make([]int32, WindowSize),
		val:   make([]int32, WindowSize),
		head2: make([]int32, hashSize),
		prev2: make([]int32, WindowSize),
		val2:  make([]int32, WindowSize),
		same:  make([]uint16, WindowSize),
	}
	h.reset()
	return h
}

func (h *hashChain) reset() {
	for i := range h.head {
		h.head[i] = -1
	}
	for i := range h.head2 {
		h.head2[i] = -1
	}
	for i := range h.prev {
		h.prev[i] = int32(i) // self-referential: "no earlier occurrence"
	}
	for i := range h.prev2 {
		h.prev2[i] = int32(i)
	}
	for i := range h.val {
		h.val[i] = -1
	}
	for i := range h.val2 {
		h.val2[i] = -1
	}
	for i := range h.same {
		h.same[i] = 0
	}
	h.curVal = 0
	h.curVal2 = 0
}

func byteAt(bytes []byte, pos int) byte {
	if pos < 0 || pos >= len(bytes) {
		return 0
	}
	return bytes[pos]
}

func (h *hashChain) updateVal(c byte) {
	h.curVal = ((h.curVal << hashShift) ^ int32(c)) & hashMask
}

// Warmup seeds the rolling 3-byte accumulator from the first one or two
// bytes available at pos, without recording any chain entries yet.
func (h *hashChain) warmup(bytes []byte, pos, end int) {
	h.updateVal(byteAt(bytes, pos))
	if pos+1 < end {
		h.updateVal(byteAt(bytes, pos+1))
	}
}

// update folds in the lookahead byte at pos+2 (or a zero pad past
// end-of-input), advances both hash chains, and extends the "same" run
// counter for position pos.
func (h *hashChain) update(bytes []byte, pos, end int) {
	hpos := int32(pos) & (WindowSize - 1)

	lookahead := byteAt(bytes, pos+MinMatch-1)
	if pos+MinMatch-1 >= end {
		lookahead = 0
	}
	h.updateVal(lookahead)
	h.val[hpos] = h.curVal
	if h.head[h.curVal] != -1 && h.val[h.head[h.curVal]] == h.curVal {
		h.prev[hpos] = h.head[h.curVal]
	} else {
		h.prev[hpos] = hpos
	}
	h.head[h.curVal] = hpos

	amount := 0
	prevHpos := (int32(pos) - 1) & (WindowSize - 1)
	if pos > 0 && h.same[prevHpos] > 1 {
		amount = int(h.same[prevHpos]) - 1
	}
	for pos+amount+1 < end && byteAt(bytes, pos) == byteAt(bytes, pos+amount+1) && amount < maxSameRun {
		amount++
	}
	h.same[hpos] = uint16(amount)

	h.curVal2 = int32(uint32(int32(amount-MinMatch)&0xFF)) ^ h.curVal
	h.val2[hpos] = h.curVal2
	if h.head2[h.curVal2] != -1 && h.val2[h.head2[h.curVal2]] == h.curVal2 {
		h.prev2[hpos] = h.head2[h.curVal2]
	} else {
		h.prev2[hpos] = hpos
	}
	h.head2[h.curVal2] = hpos
}

// sameRun returns the recorded same-byte run length at pos.
func (h *hashChain) sameRun(pos int) int {
	return int(h.same[int32(pos)&(WindowSize-1)])
}
