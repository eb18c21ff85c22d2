package deflate

import "testing"

// reconstructStore replays an LZ77Store's literal/match entries against
// themselves (the same self-referential copy scheme DEFLATE decoding
// uses) to recover the byte sequence it encodes. Used across this
// package's tests to check that a store is a faithful encoding of its
// source bytes, independent of any particular bit-level serialization.
func reconstructStore(store *LZ77Store) []byte {
	var out []byte
	for i := 0; i < store.Len(); i++ {
		litlen, dist, _ := store.At(i)
		if dist == 0 {
			out = append(out, byte(litlen))
			continue
		}
		start := len(out) - dist
		for k := 0; k < litlen; k++ {
			out = append(out, out[start+k])
		}
	}
	return out
}

// newScratchMatcher builds a matcher over bytes with a freshly reset hash
// chain and LMC sized to bytes, for use by tests that don't need a
// prelude or a shared Encoder.
func newScratchMatcher(t *testing.T, bytes []byte) *matcher {
	t.Helper()
	h := newHashChain()
	lmc := &LMC{}
	lmc.Reset(len(bytes))
	return &matcher{bytes: bytes, from: 0, hash: h, lmc: lmc}
}
