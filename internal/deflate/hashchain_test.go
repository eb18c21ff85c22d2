package deflate

import "testing"

func TestHashChainResetDefaults(t *testing.T) {
	h := newHashChain()
	for i := 0; i < 16; i++ {
		if h.prev[i] != int32(i) {
			t.Fatalf("prev[%d] = %d, want self-referential %d", i, h.prev[i], i)
		}
		if h.same[i] != 0 {
			t.Fatalf("same[%d] = %d, want 0", i, h.same[i])
		}
	}
	for _, v := range h.head[:16] {
		if v != -1 {
			t.Fatalf("head entry = %d, want -1", v)
		}
	}
}

func TestHashChainFindsRepeatedTrigram(t *testing.T) {
	bytes := []byte("abcabcabc")
	h := newHashChain()
	h.warmup(bytes, 0, len(bytes))
	for p := 0; p < len(bytes); p++ {
		h.update(bytes, p, len(bytes))
	}
	// Position 3 ("abc" at offset 3) hashes the same trigram as position 0;
	// its prev chain entry should point back to an earlier occurrence with
	// the same recorded hash value, not be self-referential.
	hpos3 := int32(3) & (WindowSize - 1)
	if h.prev[hpos3] == hpos3 {
		t.Fatalf("expected position 3 to chain back to an earlier matching trigram")
	}
}

func TestHashChainSameRunCounts(t *testing.T) {
	bytes := make([]byte, 20)
	for i := range bytes {
		bytes[i] = 'z'
	}
	h := newHashChain()
	h.warmup(bytes, 0, len(bytes))
	for p := 0; p < len(bytes); p++ {
		h.update(bytes, p, len(bytes))
	}
	// Every position (other than tailing ones near the end) should report
	// a run of identical bytes stretching to the end of the buffer.
	if got := h.sameRun(0); got != len(bytes)-1 {
		t.Fatalf("sameRun(0) = %d, want %d", got, len(bytes)-1)
	}
	if got := h.sameRun(len(bytes) - 1); got != 0 {
		t.Fatalf("sameRun(last) = %d, want 0", got)
	}
}

func TestHashChainNoRunForDistinctBytes(t *testing.T) {
	bytes := []byte("abcdefgh")
	h := newHashChain()
	h.warmup(bytes, 0, len(bytes))
	for p := 0; p < len(bytes); p++ {
		h.update(bytes, p, len(bytes))
	}
	for p := range bytes {
		if got := h.sameRun(p); got != 0 {
			t.Fatalf("sameRun(%d) = %d, want 0 for all-distinct bytes", p, got)
		}
	}
}
