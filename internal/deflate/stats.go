package deflate

import "math"

// symbolStats holds frequency counts for both DEFLATE alphabets plus the
// per-symbol bit costs derived from them by crunch. Costs are kept in
// f64 here (built once per squeeze iteration) and narrowed to f32 only in
// the hot shortest-path inner loop.
type symbolStats struct {
	llCounts [NumLitLenSymbols]int32
	dCounts  [NumDistSymbols]int32
	llCost   [NumLitLenSymbols]float64
	dCost    [NumDistSymbols]float64
}

// clear zeroes all counts and costs, preparing the struct for a fresh
// accumulation.
func (s *symbolStats) clear() {
	*s = symbolStats{}
}

// loadFromHistogram replaces the counts with the given range histogram
// and forces the end-of-block symbol's count to 1, matching the
// invariant that crunch always assumes at least one end-of-block per
// block.
func (s *symbolStats) loadFromHistogram(ll [NumLitLenSymbols]int32, d [NumDistSymbols]int32) {
	s.llCounts = ll
	s.dCounts = d
	s.llCounts[endOfBlockSymbol] = 1
}

// crunch converts accumulated counts into bit costs: cost(sym) =
// log2(total) - log2(count[sym]), clamped to be non-negative, or
// log2(alphabet size) for symbols that never occurred when the whole
// alphabet's total count is zero.
func (s *symbolStats) crunch() {
	crunchOne(s.llCounts[:], s.llCost[:])
	crunchOne(s.dCounts[:], s.dCost[:])
}

func crunchOne(counts []int32, cost []float64) {
	var sum int64
	for _, c := range counts {
		sum += int64(c)
	}
	if sum == 0 {
		flat := math.Log2(float64(len(counts)))
		for i := range cost {
			cost[i] = flat
		}
		return
	}
	logSum := math.Log2(float64(sum))
	for i, c := range counts {
		if c == 0 {
			cost[i] = logSum
			continue
		}
		v := logSum - math.Log2(float64(c))
		if v < 0 {
			v = 0
		}
		cost[i] = v
	}
}

// costOfLiteral returns the bit cost of emitting byte b as a literal.
func (s *symbolStats) costOfLiteral(b byte) float64 {
	return s.llCost[b]
}

// costOfMatch returns the bit cost of emitting a (length, distance)
// match: the length symbol's cost plus its extra bits, plus the distance
// symbol's cost plus its extra bits.
func (s *symbolStats) costOfMatch(length, dist int) float64 {
	llSym, llExtra, _ := LengthSymbol(length)
	dSym, dExtra, _ := DistanceSymbol(dist)
	return s.llCost[llSym] + float64(llExtra) + s.dCost[dSym] + float64(dExtra)
}

// addWeighted accumulates other's counts into s, scaled by weight (used
// for the exponential-smoothing halve-and-add step between squeeze
// iterations).
func (s *symbolStats) addWeighted(other *symbolStats, weight float64) {
	for i := range s.llCounts {
		s.llCounts[i] += int32(float64(other.llCounts[i]) * weight)
	}
	for i := range s.dCounts {
		s.dCounts[i] += int32(float64(other.dCounts[i]) * weight)
	}
}

// randomize perturbs non-zero counts using the given PRNG, to help the
// squeeze loop escape a local minimum when cost has stalled.
func (s *symbolStats) randomize(rng *mwcRNG) {
	randomizeOne(s.llCounts[:], rng)
	randomizeOne(s.dCounts[:], rng)
	s.llCounts[endOfBlockSymbol] = 1
}

func randomizeOne(counts []int32, rng *mwcRNG) {
	for i := range counts {
		if (rng.next()>>4)%3 == 0 {
			counts[i] = counts[int(rng.next())%len(counts)]
		}
	}
}

// mwcRNG is a fixed-seed multiply-with-carry PRNG used to perturb stats
// deterministically; a platform RNG would make output non-reproducible
// across runs; output must be reproducible across platforms.
type mwcRNG struct {
	mW uint32
	mZ uint32
}

func newMWCRNG() *mwcRNG {
	return &mwcRNG{mW: 1, mZ: 2}
}

func (r *mwcRNG) next() uint32 {
	r.mZ = 36969*(r.mZ&0xFFFF) + (r.mZ >> 16)
	r.mW = 18000*(r.mW&0xFFFF) + (r.mW >> 16)
	return (r.mZ << 16) + r.mW
}
