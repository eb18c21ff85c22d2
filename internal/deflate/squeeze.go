package deflate

import (
	"fmt"
	"math"
)

// defaultIterationsLarge and defaultIterationsSmall are the built-in
// iteration-count policy when no count is configured: inputs at
// or above iterationSizeThreshold bytes get the cheaper pass count.
const (
	defaultIterationsLarge  = 20
	defaultIterationsSmall  = 60
	iterationSizeThreshold  = 200000
	stallRoundsBeforeReroll = 5
)

// squeezeScratch holds everything the optimal-parse loop needs that can
// be reused across master blocks on one worker: the cost/length-array
// DP buffers, the three LZ77 stores the driver needs (current best,
// trial, temporary), the stats structs, and the perturbation RNG.
type squeezeScratch struct {
	costs       []float32
	lengthArray []uint16

	trial   LZ77Store
	best    LZ77Store
	seed    LZ77Store
	current symbolStats
	rolling symbolStats

	rng   *mwcRNG
	arena *katArena
}

func newSqueezeScratch(arena *katArena) *squeezeScratch {
	return &squeezeScratch{rng: newMWCRNG(), arena: arena}
}

func (s *squeezeScratch) ensureCapacity(blockSize int) {
	if cap(s.costs) < blockSize+1 {
		s.costs = make([]float32, blockSize+1)
		s.lengthArray = make([]uint16, blockSize+1)
	} else {
		s.costs = s.costs[:blockSize+1]
		s.lengthArray = s.lengthArray[:blockSize+1]
	}
}

// iterationsFor resolves the configured iteration count: 0 selects the
// size-dependent default, anything else (already validated/clamped by
// the caller) is used verbatim.
func iterationsFor(configured int, blockSize int) int {
	if configured != 0 {
		return configured
	}
	if blockSize >= iterationSizeThreshold {
		return defaultIterationsLarge
	}
	return defaultIterationsSmall
}

// optimalParse runs one shortest-path pass over m.bytes[m.from:end],
// minimizing total symbol cost under stats, and appends the resulting
// entries to store (which must start empty).
func optimalParse(m *matcher, end int, stats *symbolStats, scratch *squeezeScratch, store *LZ77Store) error {
	from := m.from
	blockSize := end - from
	scratch.ensureCapacity(blockSize)

	costs := scratch.costs
	lengthArray := scratch.lengthArray
	costs[0] = 0
	for i := 1; i <= blockSize; i++ {
		costs[i] = math.MaxFloat32
	}
	lengthArray[0] = 0

	m.rewind(end)

	var sublen [MaxMatch + 1]uint16

	for pos := from; pos < end; pos++ {
		i := pos - from
		m.hash.update(m.bytes, pos, end)

		// Deep inside a run of identical bytes, every position has a
		// (MaxMatch, 1) match, so a whole stride can be relaxed at the
		// same per-edge cost without any searching.
		if m.hash.sameRun(pos) > MaxMatch*2 && pos > from+MaxMatch+1 &&
			pos+MaxMatch*2+1 < end && m.hash.sameRun(pos-MaxMatch) > MaxMatch {
			runCost := float32(stats.costOfMatch(MaxMatch, 1))
			for k := 0; k < MaxMatch; k++ {
				c := costs[i] + runCost
				if c < costs[i+MaxMatch] {
					costs[i+MaxMatch] = c
					lengthArray[i+MaxMatch] = MaxMatch
				}
				pos++
				i++
				m.hash.update(m.bytes, pos, end)
			}
		}

		litCost := costs[i] + float32(stats.costOfLiteral(m.bytes[pos]))
		if litCost < costs[i+1] {
			costs[i+1] = litCost
			lengthArray[i+1] = 1
		}

		if end-pos < MinMatch {
			continue
		}

		// The search fully writes sublen[MinMatch:bestLength+1] (and the
		// cache path fills from 0), so entries past bestLength are stale
		// from earlier positions and must not be read below.
		limit := MaxMatch
		if end-pos < limit {
			limit = end - pos
		}
		bestLength, _ := m.findLongestMatch(pos, limit, sublen[:])
		if bestLength < MinMatch {
			continue
		}

		base := costs[i]
		for length := MinMatch; length <= bestLength; length++ {
			dist := int(sublen[length])
			if dist == 0 {
				continue
			}
			c := base + float32(stats.costOfMatch(length, dist))
			if c < costs[i+length] {
				costs[i+length] = c
				lengthArray[i+length] = uint16(length)
			}
		}
	}

	return backtrack(m, end, lengthArray[:blockSize+1], store)
}

// backtrack recovers the chosen sequence of step lengths by walking
// lengthArray from the end back to the start, then replays the path
// forward over a rewound hash, re-deriving each match's distance with a
// search bounded to exactly the chosen length (a shorter chosen length
// can reach a nearer, cheaper distance than the position's overall best,
// so the stored ld pair alone cannot answer this).
func backtrack(m *matcher, end int, lengthArray []uint16, store *LZ77Store) error {
	from := m.from
	blockSize := end - from

	var lengths []uint16
	for i := blockSize; i > 0; {
		l := lengthArray[i]
		lengths = append(lengths, l)
		i -= int(l)
	}
	for a, b := 0, len(lengths)-1; a < b; a, b = a+1, b-1 {
		lengths[a], lengths[b] = lengths[b], lengths[a]
	}

	m.rewind(end)

	pos := from
	for _, l := range lengths {
		length := int(l)
		m.hash.update(m.bytes, pos, end)
		if length < MinMatch {
			if err := store.Push(int(m.bytes[pos]), 0, pos); err != nil {
				return err
			}
			pos++
			continue
		}
		foundLength, dist := m.findLongestMatch(pos, length, nil)
		if dist == 0 || foundLength < length {
			return fmt.Errorf("%w: follow-path lost the chosen match at pos %d (length %d, found %d/%d)",
				ErrInternal, pos, length, foundLength, dist)
		}
		if err := store.Push(length, dist, pos); err != nil {
			return err
		}
		for j := 1; j < length; j++ {
			m.hash.update(m.bytes, pos+j, end)
		}
		pos += length
	}
	return nil
}

// squeeze runs the full iterative optimal-parse driver: greedy seed,
// then repeated crunch/optimal-parse/re-derive-stats
// rounds, tracking the best store seen by exact dynamic block cost,
// returning it appended onto store (which must start empty). The caller
// must pass a matcher whose LMC has just been reset and scoped to
// exactly [m.from, end); the hash chain is rewound internally by every
// pass that scans the chunk.
func squeeze(m *matcher, end int, scratch *squeezeScratch, iterations int, store *LZ77Store) error {
	seed := &scratch.seed
	seed.Clear()
	if err := greedyLZ77(m, end, seed); err != nil {
		return err
	}

	scratch.current.clear()
	ll, d := seed.Histogram(0, seed.Len())
	scratch.current.loadFromHistogram(ll, d)
	scratch.current.crunch()

	bestCost := math.MaxFloat64
	scratch.best.Clear()
	lastCost := math.MaxFloat64
	stallRounds := 0

	for iter := 0; iter < iterations; iter++ {
		scratch.trial.Clear()
		if err := optimalParse(m, end, &scratch.current, scratch, &scratch.trial); err != nil {
			return err
		}

		cost := float64(dynamicBlockSize(&scratch.trial, 0, scratch.trial.Len(), scratch.arena))
		if cost < bestCost {
			bestCost = cost
			scratch.best.Replace(&scratch.trial)
		}

		scratch.rolling.clear()
		ll, d = scratch.trial.Histogram(0, scratch.trial.Len())
		scratch.rolling.loadFromHistogram(ll, d)

		if cost >= lastCost-1 {
			stallRounds++
		} else {
			stallRounds = 0
		}
		lastCost = cost

		if stallRounds >= stallRoundsBeforeReroll {
			scratch.rolling.randomize(scratch.rng)
			stallRounds = 0
		}

		// Exponential smoothing: halve the previous counts and add the
		// fresh ones, so the cost model doesn't whipsaw between passes.
		next := scratch.rolling
		scratch.rolling.clear()
		scratch.rolling.addWeighted(&scratch.current, 0.5)
		scratch.rolling.addWeighted(&next, 1.0)
		scratch.rolling.llCounts[endOfBlockSymbol] = 1
		scratch.current = scratch.rolling
		scratch.current.crunch()
	}

	store.Append(&scratch.best)
	return nil
}
