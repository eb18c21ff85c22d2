package deflate

import "fmt"

// llBucketSize and dBucketSize are the bucket widths for the store's
// cumulative histograms: a new litlen bucket is appended every 288
// entries, a new distance bucket every 32.
const (
	llBucketSize = NumLitLenSymbols
	dBucketSize  = NumDistSymbols
)

// storeEntry is one literal/length-distance record in an LZ77Store.
type storeEntry struct {
	pos      int
	litlen   uint16
	dist     int32 // 0 for a literal
	llSymbol uint16
	dSymbol  uint8
}

// length returns the number of input bytes this entry accounts for: the
// match length for a back-reference, or 1 for a literal.
func (e storeEntry) length() int {
	if e.dist <= 0 {
		return 1
	}
	return int(e.litlen)
}

// LZ77Store is an append-only sequence of literal/length-distance
// records with cumulative per-symbol histograms bucketed every 288 (for
// litlen) and 32 (for distance) entries, so a histogram over an arbitrary
// sub-range can be produced from two bucket lookups plus a bounded
// direct-count correction instead of a full rescan.
type LZ77Store struct {
	entries  []storeEntry
	llCounts [][NumLitLenSymbols]int32 // cumulative counts at each 288-entry boundary
	dCounts  [][NumDistSymbols]int32   // cumulative counts at each 32-entry boundary
}

// newStoreEntry validates and constructs a store entry; Push builds every
// entry it appends through it.
func newStoreEntry(pos, litlen, dist int) (storeEntry, error) {
	if litlen > MaxMatch {
		return storeEntry{}, fmt.Errorf("%w: litlen %d exceeds MaxMatch", ErrInternal, litlen)
	}
	if dist == 0 {
		if litlen > 255 {
			return storeEntry{}, fmt.Errorf("%w: literal litlen %d exceeds 255", ErrInternal, litlen)
		}
		return storeEntry{pos: pos, litlen: uint16(litlen), dist: 0, llSymbol: uint16(litlen)}, nil
	}
	if dist >= WindowSize {
		return storeEntry{}, fmt.Errorf("%w: distance %d exceeds window size", ErrInternal, dist)
	}
	if litlen < MinMatch {
		return storeEntry{}, fmt.Errorf("%w: match litlen %d below MinMatch", ErrInternal, litlen)
	}
	llSym, _, _ := LengthSymbol(litlen)
	dSym, _, _ := DistanceSymbol(dist)
	return storeEntry{
		pos: pos, litlen: uint16(litlen), dist: int32(dist),
		llSymbol: uint16(llSym), dSymbol: uint8(dSym),
	}, nil
}

// Push appends a literal (dist==0, litlen is the byte value) or a match
// (dist>0, litlen in [MinMatch, MaxMatch]) to the store.
func (s *LZ77Store) Push(litlen, dist, pos int) error {
	e, err := newStoreEntry(pos, litlen, dist)
	if err != nil {
		return err
	}
	s.pushEntry(e)
	return nil
}

func (s *LZ77Store) pushEntry(e storeEntry) {
	idx := len(s.entries)

	var prevLL [NumLitLenSymbols]int32
	var prevD [NumDistSymbols]int32
	if len(s.llCounts) > 0 {
		prevLL = s.llCounts[len(s.llCounts)-1]
	}
	if len(s.dCounts) > 0 {
		prevD = s.dCounts[len(s.dCounts)-1]
	}

	if idx%llBucketSize == 0 {
		s.llCounts = append(s.llCounts, prevLL)
	}
	if idx%dBucketSize == 0 {
		s.dCounts = append(s.dCounts, prevD)
	}

	s.entries = append(s.entries, e)

	s.llCounts[len(s.llCounts)-1][e.llSymbol]++
	if e.dist > 0 {
		s.dCounts[len(s.dCounts)-1][e.dSymbol]++
	}
}

// Clear empties the store for reuse, retaining its backing capacity.
func (s *LZ77Store) Clear() {
	s.entries = s.entries[:0]
	s.llCounts = s.llCounts[:0]
	s.dCounts = s.dCounts[:0]
}

// Replace overwrites this store's contents with other's, retaining this
// store's backing capacity where possible.
func (s *LZ77Store) Replace(other *LZ77Store) {
	s.entries = append(s.entries[:0], other.entries...)
	s.llCounts = append(s.llCounts[:0], other.llCounts...)
	s.dCounts = append(s.dCounts[:0], other.dCounts...)
}

// Append concatenates other's entries onto this store.
func (s *LZ77Store) Append(other *LZ77Store) {
	for _, e := range other.entries {
		s.pushEntry(e)
	}
}

// Len returns the number of entries in the store.
func (s *LZ77Store) Len() int {
	return len(s.entries)
}

// At returns the entry at index i: (litlen, dist, pos).
func (s *LZ77Store) At(i int) (litlen, dist, pos int) {
	e := s.entries[i]
	return int(e.litlen), int(e.dist), e.pos
}

// Symbols returns the precomputed (llSymbol, dSymbol) for entry i.
func (s *LZ77Store) Symbols(i int) (llSymbol, dSymbol int) {
	e := s.entries[i]
	return int(e.llSymbol), int(e.dSymbol)
}

// ByteRange returns the [start, end) input-byte range spanned by entries
// [lo, hi) of the store.
func (s *LZ77Store) ByteRange(lo, hi int) (start, end int) {
	if lo >= hi {
		return 0, 0
	}
	first := s.entries[lo]
	last := s.entries[hi-1]
	return first.pos, last.pos + last.length()
}

// Histogram returns the litlen and distance symbol counts over entries
// [lo, hi). For short ranges it counts directly; for longer ranges it
// uses the bucketed cumulative counts, correcting by direct counts of at
// most one bucket's width.
func (s *LZ77Store) Histogram(lo, hi int) (llCounts [NumLitLenSymbols]int32, dCounts [NumDistSymbols]int32) {
	if lo >= hi {
		return
	}
	if lo+llBucketSize*3 > hi {
		for i := lo; i < hi; i++ {
			e := s.entries[i]
			llCounts[e.llSymbol]++
			if e.dist > 0 {
				dCounts[e.dSymbol]++
			}
		}
		return
	}

	llCounts = s.bucketHistogram(s.llCounts, llBucketSize, lo, hi, func(i int) int { return int(s.entries[i].llSymbol) })
	dCounts = s.bucketDistHistogram(lo, hi)
	return
}

// bucketHistogram computes the litlen sub-range histogram via bucket
// subtraction: take the cumulative counts at the bucket boundary nearest
// hi, subtract the forward direct count from hi back to that boundary,
// then subtract the (symmetric) cumulative counts at the boundary
// nearest lo corrected the same way.
func (s *LZ77Store) bucketHistogram(buckets [][NumLitLenSymbols]int32, bucketSize, lo, hi int, symbolAt func(int) int) [NumLitLenSymbols]int32 {
	var result [NumLitLenSymbols]int32

	n := len(s.entries)

	hiBucket := (hi - 1) / bucketSize
	hiBucketEnd := (hiBucket + 1) * bucketSize
	if hiBucketEnd > n {
		hiBucketEnd = n
	}
	result = buckets[hiBucket]
	for i := hi; i < hiBucketEnd; i++ {
		result[symbolAt(i)]--
	}

	if lo > 0 {
		loBucket := (lo - 1) / bucketSize
		loBucketEnd := (loBucket + 1) * bucketSize
		if loBucketEnd > n {
			loBucketEnd = n
		}
		loCounts := buckets[loBucket]
		for i := lo; i < loBucketEnd; i++ {
			loCounts[symbolAt(i)]--
		}
		for sym := range result {
			result[sym] -= loCounts[sym]
		}
	}

	return result
}

func (s *LZ77Store) bucketDistHistogram(lo, hi int) [NumDistSymbols]int32 {
	var result [NumDistSymbols]int32
	symbolAt := func(i int) (int, bool) {
		e := s.entries[i]
		if e.dist <= 0 {
			return 0, false
		}
		return int(e.dSymbol), true
	}

	n := len(s.entries)

	hiBucket := (hi - 1) / dBucketSize
	hiBucketEnd := (hiBucket + 1) * dBucketSize
	if hiBucketEnd > n {
		hiBucketEnd = n
	}
	result = s.dCounts[hiBucket]
	for i := hi; i < hiBucketEnd; i++ {
		if sym, ok := symbolAt(i); ok {
			result[sym]--
		}
	}

	if lo > 0 {
		loBucket := (lo - 1) / dBucketSize
		loBucketEnd := (loBucket + 1) * dBucketSize
		if loBucketEnd > n {
			loBucketEnd = n
		}
		loCounts := s.dCounts[loBucket]
		for i := lo; i < loBucketEnd; i++ {
			if sym, ok := symbolAt(i); ok {
				loCounts[sym]--
			}
		}
		for sym := range result {
			result[sym] -= loCounts[sym]
		}
	}

	return result
}
