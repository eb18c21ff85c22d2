package deflate

// shortDistThreshold biases the greedy parser away from near-useless
// minimum-length matches that reach far back into the window: a 3-byte
// match more than this many bytes away rarely pays for its distance
// symbol, so a literal is usually cheaper.
const shortDistThreshold = 4096

// greedyLZ77 produces an initial LZ77Store for bytes[from:end] by greedy
// longest-match search with one-step lazy matching: having found a match
// at pos, it also checks pos+1 before committing; if the match at pos+1
// is strictly longer, a literal is emitted at pos and the better match
// used instead. The hash chain is rewound and warmed over the available
// prelude before parsing begins; every search passes a sublen scratch so
// the LMC gets seeded for the squeeze passes that follow.
func greedyLZ77(m *matcher, end int, store *LZ77Store) error {
	bytes := m.bytes
	from := m.from

	m.rewind(end)

	if from == end {
		return nil
	}

	var sublen [MaxMatch + 1]uint16
	var prevLength, prevDist int
	matchAvailable := false

	for pos := from; pos < end; pos++ {
		m.hash.update(bytes, pos, end)

		limit := MaxMatch
		if end-pos < limit {
			limit = end - pos
		}
		length, dist := m.findLongestMatch(pos, limit, sublen[:])
		if length == MinMatch && dist > shortDistThreshold {
			length = 1
		}

		if matchAvailable {
			matchAvailable = false
			if length > prevLength {
				if err := store.Push(int(bytes[pos-1]), 0, pos-1); err != nil {
					return err
				}
				if length >= MinMatch && length < MaxMatch {
					matchAvailable = true
					prevLength, prevDist = length, dist
					continue
				}
			} else {
				length, dist = prevLength, prevDist
				if err := store.Push(length, dist, pos-1); err != nil {
					return err
				}
				for j := 2; j < length; j++ {
					pos++
					if pos < end {
						m.hash.update(bytes, pos, end)
					}
				}
				continue
			}
		} else if length >= MinMatch {
			matchAvailable = true
			prevLength, prevDist = length, dist
			continue
		}

		if length >= MinMatch {
			if err := store.Push(length, dist, pos); err != nil {
				return err
			}
		} else {
			length = 1
			if err := store.Push(int(bytes[pos]), 0, pos); err != nil {
				return err
			}
		}
		for j := 1; j < length; j++ {
			pos++
			if pos < end {
				m.hash.update(bytes, pos, end)
			}
		}
	}

	if matchAvailable {
		if err := store.Push(int(bytes[end-1]), 0, end-1); err != nil {
			return err
		}
	}

	return nil
}
