package deflate

// maxChainHits bounds how many hash-chain links the longest-match search
// walks before giving up on finding something better, trading a small
// amount of compression for a hard cap on worst-case search time.
const maxChainHits = 8192

// matcher bundles the rolling hash and LMC scratch needed to search for
// matches within one input chunk, plus the chunk itself (prelude+body).
type matcher struct {
	bytes []byte // full buffer, prelude included
	from  int    // offset of the current part's first byte within bytes
	hash  *hashChain
	lmc   *LMC
}

// rewind resets the hash chain and replays it over the prelude (up to
// one window of bytes before m.from), leaving it ready for a forward
// walk that updates once per position starting at m.from. Every pass
// that scans the chunk (greedy, the DP, the follow-path replay) starts
// with its own rewind: the chain's tables are circular over one window,
// so state left behind by an earlier full-chunk walk is only valid for
// the final window of that walk, not for a fresh scan from the start.
func (m *matcher) rewind(end int) {
	m.hash.reset()
	windowStart := m.from - WindowSize
	if windowStart < 0 {
		windowStart = 0
	}
	m.hash.warmup(m.bytes, windowStart, end)
	for p := windowStart; p < m.from; p++ {
		m.hash.update(m.bytes, p, end)
	}
}

// findLongestMatch searches for the longest match at absolute offset pos,
// bounded by limit (<= MaxMatch) and the configured window/chain-hit
// caps. If fillSublen is non-nil it receives, for each length in
// [MinMatch, bestLength], the smallest distance achieving that length.
// A "no match" result is (length=1, dist=0).
//
// The LMC (keyed by pos-m.from) answers repeat queries in O(1). A cache
// entry is usable when it can prove the answer under the caller's limit:
// either the search that produced it ran at the full MaxMatch limit, or
// the cached length already fits under limit, or the cached sublens
// extend past limit (a matched prefix is still a match). New results
// are recorded only for full-limit searches that also captured sublens,
// so everything in the cache is the true unbounded best for its position.
func (m *matcher) findLongestMatch(pos, limit int, fillSublen []uint16) (length, dist int) {
	idx := pos - m.from
	end := len(m.bytes)

	if end-pos < MinMatch {
		return 1, 0
	}
	if limit > end-pos {
		limit = end - pos
	}

	cachedLen, cachedDist := m.lmc.GetLD(idx)
	cacheAvailable := cachedLen == 0 || cachedDist != 0
	if cacheAvailable {
		maxSub := m.lmc.MaxCachedSublen(idx)
		if limit == MaxMatch || cachedLen <= limit ||
			(fillSublen != nil && maxSub >= limit) {
			if fillSublen == nil || cachedLen <= maxSub {
				length = cachedLen
				if length > limit {
					length = limit
				}
				if length < MinMatch {
					return 1, 0
				}
				if fillSublen != nil {
					m.lmc.CacheToSublen(idx, length, fillSublen)
					dist = int(fillSublen[length])
				} else {
					dist = cachedDist
				}
				return length, dist
			}
			// The cached sublens don't reach the cached length, so the
			// distances must be re-derived; the cached length still
			// bounds how far the re-search needs to look.
			if cachedLen < limit {
				limit = cachedLen
			}
			if limit < MinMatch {
				return 1, 0
			}
		}
	}

	bestLength, bestDist := m.searchChains(pos, limit, fillSublen)

	// Only a full-limit search with captured sublens yields a cache entry
	// that later queries can trust as the unbounded best for idx.
	if limit == MaxMatch && fillSublen != nil && !cacheAvailable {
		if bestLength < MinMatch {
			m.lmc.SetLD(idx, 0, 0)
		} else {
			m.lmc.SetLD(idx, bestLength, bestDist)
			m.lmc.SublenToCache(fillSublen, idx, bestLength)
		}
	}
	return bestLength, bestDist
}

// searchChains walks the primary and (when the current position sits in
// a long run of identical bytes) secondary hash chains for the longest
// match at pos, ignoring the LMC entirely. It is the shared work behind
// both a cache-miss and an explicit uncached re-search.
func (m *matcher) searchChains(pos, limit int, fillSublen []uint16) (bestLength, bestDist int) {
	bytes := m.bytes
	hpos := int32(pos) & (WindowSize - 1)
	h := m.hash

	tryCandidate := func(cand int) bool {
		if cand == pos {
			return true
		}
		d := pos - cand
		if d <= 0 || d >= WindowSize {
			return false
		}
		if bestLength != 0 && bytes[cand+bestLength] != bytes[pos+bestLength] {
			return true
		}
		l := matchLength(bytes, cand, pos, limit)
		if l > bestLength {
			if fillSublen != nil {
				for k := bestLength + 1; k <= l; k++ {
					fillSublen[k] = uint16(d)
				}
			}
			bestLength = l
			bestDist = d
			if l >= limit {
				return false
			}
		}
		return true
	}

	// walkChain follows prevArr's circular links starting at window index
	// start, maintaining a running distance from pos that accumulates the
	// gap crossed at each hop (hops land on window-relative indices, not
	// on distances from pos directly, so the per-hop gaps must be summed
	// rather than recomputed fresh each time).
	walkChain := func(prevArr []int32, start int32) {
		pp := start
		p := prevArr[pp]
		if p == pp {
			return
		}
		var dist int
		if p < pp {
			dist = int(pp - p)
		} else {
			dist = WindowSize - int(p) + int(pp)
		}

		for chainLen := 0; dist < WindowSize && chainLen < maxChainHits; chainLen++ {
			candPos := pos - dist
			if candPos < 0 {
				break
			}
			if !tryCandidate(candPos) {
				break
			}
			pp = p
			p = prevArr[pp]
			if p == pp {
				break
			}
			if p < pp {
				dist += int(pp - p)
			} else {
				dist += WindowSize - int(p) + int(pp)
			}
		}
	}

	walkChain(h.prev, hpos)

	// Secondary chain keyed on the same-run hash: useful once we are
	// sitting inside a long run of identical bytes, where the primary
	// chain degenerates into one entry per position.
	if h.sameRun(pos) > MinMatch*2 && bestLength < h.sameRun(pos) {
		walkChain(h.prev2, hpos)
	}

	if bestLength < MinMatch {
		bestLength = 1
		bestDist = 0
	}
	return bestLength, bestDist
}

// matchLength returns how many bytes bytes[cand:] and bytes[pos:] share,
// up to limit, assuming the first three bytes were already guaranteed
// equal by the hash match (though we still verify defensively here for
// correctness against hash collisions).
func matchLength(bytes []byte, cand, pos, limit int) int {
	n := 0
	for n < limit && bytes[cand+n] == bytes[pos+n] {
		n++
	}
	return n
}
