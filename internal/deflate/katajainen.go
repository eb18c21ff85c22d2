package deflate

import (
	"fmt"
	"sort"
)

// katLeaf pairs a non-zero frequency with the bitlengths slot it will
// eventually receive a code length for.
type katLeaf struct {
	frequency int
	slot      int
}

// katNode is one node of a boundary package-merge chain. tail is the
// index of the previous node in the chain, or -1 for "no tail".
type katNode struct {
	weight int
	count  int
	tail   int
}

// katArena is a bump allocator for katNode values, owned by one Encoder
// and reused across every Katajainen call it makes: Reset truncates the
// backing slice without releasing its capacity, so a busy encoder settles
// into zero allocations after its first few calls.
type katArena struct {
	nodes []katNode
}

func (a *katArena) reset() {
	a.nodes = a.nodes[:0]
}

func (a *katArena) alloc(weight, count, tail int) int {
	a.nodes = append(a.nodes, katNode{weight: weight, count: count, tail: tail})
	return len(a.nodes) - 1
}

// katList holds a pair of lookahead chains, referenced by arena index.
type katList struct {
	lookahead0, lookahead1 int
}

func (l *katList) rotate() { l.lookahead0 = l.lookahead1 }

func (l katList) weightSum(a *katArena) int {
	return a.nodes[l.lookahead0].weight + a.nodes[l.lookahead1].weight
}

// LengthLimitedCodeLengths assigns non-decreasing Huffman code lengths,
// each at most maxBits, to the symbols in frequencies, minimizing
// sum(freq[i] * length[i]) over symbols with non-zero frequency, via
// boundary package-merge. bitlengths must be zero-filled on entry and the
// same length as frequencies; symbols with zero frequency keep length 0.
func LengthLimitedCodeLengths(maxBits int, frequencies []int, bitlengths []uint32, arena *katArena) error {
	size := len(frequencies)
	if size < 6 {
		return fmt.Errorf("%w: katajainen size %d below minimum 6", ErrInternal, size)
	}
	if len(bitlengths) != size {
		return fmt.Errorf("%w: katajainen bitlengths length %d != frequencies length %d", ErrInternal, len(bitlengths), size)
	}

	leaves := make([]katLeaf, 0, size)
	for i, f := range frequencies {
		if f > 0 {
			leaves = append(leaves, katLeaf{frequency: f, slot: i})
		}
	}

	if len(leaves) == 0 || size < len(leaves) {
		return nil
	}

	if len(leaves) <= 2 {
		for _, leaf := range leaves {
			bitlengths[leaf.slot] = 1
		}
		return nil
	}

	sort.SliceStable(leaves, func(i, j int) bool {
		return leaves[i].frequency < leaves[j].frequency
	})

	return katLLCL(maxBits, leaves, bitlengths, arena)
}

func katLLCL(maxBits int, leaves []katLeaf, bitlengths []uint32, arena *katArena) error {
	if len(leaves) < 3 || (1<<uint(maxBits)) < len(leaves) {
		return fmt.Errorf("%w: katajainen infeasible for %d leaves at maxbits=%d", ErrInternal, len(leaves), maxBits)
	}

	bits := maxBits
	if len(leaves)-1 < bits {
		bits = len(leaves) - 1
	}

	n0 := arena.alloc(leaves[0].frequency, 1, -1)
	n1 := arena.alloc(leaves[1].frequency, 2, -1)

	lists := make([]katList, bits)
	for i := range lists {
		lists[i] = katList{lookahead0: n0, lookahead1: n1}
	}

	for i := 0; i < 2*len(leaves)-5; i++ {
		katBoundaryPM(leaves, lists, arena, len(lists))
	}

	err := katFinish(leaves, lists, bitlengths, arena)
	arena.reset()
	return err
}

// katBoundaryPM performs one boundary package-merge step against the
// active prefix lists[:n], mirroring the reverse-recursive structure of
// the reference implementation: lists[n-1] is "current", lists[:n-1] is
// "rest".
func katBoundaryPM(leaves []katLeaf, lists []katList, arena *katArena, n int) {
	current := &lists[n-1]
	lastCount := arena.nodes[current.lookahead1].count

	if n == 1 {
		if lastCount < len(leaves) {
			current.rotate()
			tail := arena.nodes[current.lookahead0].tail
			current.lookahead1 = arena.alloc(leaves[lastCount].frequency, lastCount+1, tail)
		}
		return
	}

	current.rotate()
	previous := lists[n-2]
	weightSum := previous.weightSum(arena)

	if lastCount < len(leaves) && leaves[lastCount].frequency < weightSum {
		tail := arena.nodes[current.lookahead0].tail
		current.lookahead1 = arena.alloc(leaves[lastCount].frequency, lastCount+1, tail)
		return
	}

	current.lookahead1 = arena.alloc(weightSum, lastCount, previous.lookahead1)

	katBoundaryPM(leaves, lists, arena, n-1)
	katBoundaryPM(leaves, lists, arena, n-1)
}

// katFinish closes out the last chain and writes the resulting weighted
// counts into bitlengths, grouped in decreasing-frequency order.
func katFinish(leaves []katLeaf, lists []katList, bitlengths []uint32, arena *katArena) error {
	n := len(lists)
	if n < 2 {
		return fmt.Errorf("%w: katajainen needs at least two lists, have %d", ErrInternal, n)
	}

	listY := lists[n-2]
	listZ := &lists[n-1]
	lastCount := arena.nodes[listZ.lookahead1].count
	weightSum := listY.weightSum(arena)

	if lastCount < len(leaves) && leaves[lastCount].frequency < weightSum {
		tail := arena.nodes[listZ.lookahead1].tail
		listZ.lookahead1 = arena.alloc(0, lastCount+1, tail)
	} else {
		arena.nodes[listZ.lookahead1].tail = listY.lookahead1
	}

	node := listZ.lookahead1
	lastCount = arena.nodes[node].count
	if len(leaves) < lastCount {
		return fmt.Errorf("%w: katajainen overcounted %d leaves out of %d", ErrInternal, lastCount, len(leaves))
	}

	value := uint32(1)
	writerPos := lastCount - 1
	for {
		tail := arena.nodes[node].tail
		if tail == -1 {
			break
		}
		tailCount := arena.nodes[tail].count
		if tailCount < lastCount {
			take := lastCount - tailCount
			for k := 0; k < take; k++ {
				bitlengths[leaves[writerPos].slot] = value
				writerPos--
			}
			lastCount = tailCount
		}
		value++
		node = tail
	}
	for writerPos >= 0 {
		bitlengths[leaves[writerPos].slot] = value
		writerPos--
	}

	return nil
}
