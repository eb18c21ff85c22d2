package deflate

import "testing"

func TestFindLongestMatchFindsExactRepeat(t *testing.T) {
	input := []byte("abcdefgh_abcdefgh")
	m := newScratchMatcher(t, input)
	m.rewind(len(input))
	for p := 0; p < len(input); p++ {
		m.hash.update(input, p, len(input))
	}

	pos := 9 // second "abcdefgh"
	length, dist := m.findLongestMatch(pos, MaxMatch, nil)
	if dist != 9 {
		t.Fatalf("dist = %d, want 9", dist)
	}
	if length != 8 {
		t.Fatalf("length = %d, want 8", length)
	}
}

func TestFindLongestMatchNoCandidate(t *testing.T) {
	input := []byte("abcdefgh")
	m := newScratchMatcher(t, input)
	for p := 0; p < len(input); p++ {
		m.hash.update(input, p, len(input))
	}
	length, dist := m.findLongestMatch(3, MaxMatch, nil)
	if length >= MinMatch {
		t.Fatalf("expected no real match, got length=%d dist=%d", length, dist)
	}
}

func TestFindLongestMatchAnswersFromCache(t *testing.T) {
	// A repeated 8-byte pattern followed by enough distinct tail bytes
	// that the search at pos runs at the full, unclamped MaxMatch limit —
	// the precondition for the result entering the LMC.
	input := []byte("abcdefgh_abcdefgh")
	pos := 9
	for i := 0; i < 300; i++ {
		input = append(input, byte(i*7+13))
	}
	m := newScratchMatcher(t, input)
	m.rewind(len(input))
	for p := 0; p < len(input); p++ {
		m.hash.update(input, p, len(input))
	}

	var sub [MaxMatch + 1]uint16
	if length, dist := m.findLongestMatch(pos, MaxMatch, sub[:]); length != 8 || dist != 9 {
		t.Fatalf("priming call: got (length=%d dist=%d), want (8,9)", length, dist)
	}

	// Wiping the hash proves the repeat queries below are answered from
	// the cache alone, not by a second chain walk.
	m.hash.reset()

	length, dist := m.findLongestMatch(pos, MaxMatch, nil)
	if length != 8 || dist != 9 {
		t.Fatalf("cached full-limit call: got (length=%d dist=%d), want (8,9)", length, dist)
	}

	var sub2 [MaxMatch + 1]uint16
	length, dist = m.findLongestMatch(pos, 5, sub2[:])
	if length != 5 || dist != 9 {
		t.Fatalf("cache-limited call: got (length=%d dist=%d), want (5,9)", length, dist)
	}
}

func TestShortLimitPrefersNearerDistance(t *testing.T) {
	// Two candidate distances for the same short length: a nearer one of
	// length 4 and a farther one reaching length 6. A search bounded to
	// limit 4 must report the nearer distance even though the position's
	// overall best match is the longer, farther one — this is what the
	// follow-path replay relies on when the DP picked a shortened match.
	near := []byte("wxyz")
	far := []byte("wxyzAB")
	input := append(append([]byte{}, far...), make([]byte, 50)...)
	input = append(input, near...)
	input = append(input, far...)

	m := newScratchMatcher(t, input)
	m.rewind(len(input))
	for p := 0; p < len(input); p++ {
		m.hash.update(input, p, len(input))
	}

	pos := len(far) + 50 + len(near)
	var sub [MaxMatch + 1]uint16
	bestLength, bestDist := m.findLongestMatch(pos, MaxMatch, sub[:])
	if bestLength < 6 {
		t.Fatalf("expected the longer far match to win, got length=%d", bestLength)
	}
	nearDist := pos - (len(far) + 50)
	if bestDist == nearDist {
		t.Fatalf("expected the best match to prefer the longer, farther candidate")
	}

	length, dist := m.findLongestMatch(pos, 4, nil)
	if length != 4 || dist != nearDist {
		t.Fatalf("limit-4 search = (length=%d dist=%d), want (4,%d)", length, dist, nearDist)
	}
}
