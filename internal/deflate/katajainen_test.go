package deflate

import (
	"reflect"
	"testing"
)

// Reference vectors for boundary package-merge: known-good length
// assignments for small frequency sets under several bit limits.

func runLLCL(t *testing.T, maxBits int, freq []int) []uint32 {
	t.Helper()
	bl := make([]uint32, len(freq))
	arena := &katArena{}
	if err := LengthLimitedCodeLengths(maxBits, freq, bl, arena); err != nil {
		t.Fatalf("LengthLimitedCodeLengths: %v", err)
	}
	return bl
}

func TestKatajainenMaxBits3(t *testing.T) {
	freq := []int{1, 1, 5, 7, 10, 14}
	want := []uint32{3, 3, 3, 3, 2, 2}
	got := runLLCL(t, 3, freq)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestKatajainenMaxBits4(t *testing.T) {
	freq := []int{1, 1, 5, 7, 10, 14}
	want := []uint32{4, 4, 3, 2, 2, 2}
	got := runLLCL(t, 4, freq)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestKatajainenMaxBits7(t *testing.T) {
	freq := []int{252, 0, 1, 6, 9, 10, 6, 3, 2, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	want := []uint32{1, 0, 6, 4, 3, 3, 3, 5, 6, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	got := runLLCL(t, 7, freq)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestKatajainenMaxBits15(t *testing.T) {
	freq := []int{
		0, 0, 0, 0, 0, 0, 18, 0, 6, 0, 12, 2, 14, 9, 27, 15,
		23, 15, 17, 8, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
	want := []uint32{
		0, 0, 0, 0, 0, 0, 3, 0, 5, 0, 4, 6, 4, 4, 3, 4,
		3, 3, 3, 4, 6, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
	got := runLLCL(t, 15, freq)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestKatajainenLimitedCases(t *testing.T) {
	freq := make([]int, 19)
	want := make([]uint32, 19)
	got := runLLCL(t, 7, freq)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("no frequencies: got %v want %v", got, want)
	}

	freq[2] = 10
	want = []uint32{0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	got = runLLCL(t, 7, freq)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("one frequency: got %v want %v", got, want)
	}

	freq[0] = 248
	want = []uint32{1, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	got = runLLCL(t, 7, freq)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("two frequencies: got %v want %v", got, want)
	}
}

// TestKatajainenArenaReuse checks that the arena can be reused across
// calls (as the per-worker Encoder will do) without carrying state over.
func TestKatajainenArenaReuse(t *testing.T) {
	arena := &katArena{}
	freq := []int{1, 1, 5, 7, 10, 14}
	bl1 := make([]uint32, len(freq))
	if err := LengthLimitedCodeLengths(3, freq, bl1, arena); err != nil {
		t.Fatalf("first call: %v", err)
	}
	bl2 := make([]uint32, len(freq))
	if err := LengthLimitedCodeLengths(4, freq, bl2, arena); err != nil {
		t.Fatalf("second call: %v", err)
	}
	want1 := []uint32{3, 3, 3, 3, 2, 2}
	want2 := []uint32{4, 4, 3, 2, 2, 2}
	if !reflect.DeepEqual(bl1, want1) || !reflect.DeepEqual(bl2, want2) {
		t.Fatalf("arena reuse produced wrong results: bl1=%v bl2=%v", bl1, bl2)
	}
}

// TestKatajainenKraftSum verifies the Kraft inequality (property 5) on a
// range of synthetic frequency distributions.
func TestKatajainenKraftSum(t *testing.T) {
	cases := [][]int{
		{5, 4, 3, 2, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
		{100, 50, 25, 12, 6, 3, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		{1000000, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
	}
	for ci, freq := range cases {
		bl := runLLCL(t, 7, freq)
		var kraft float64
		maxLen := uint32(0)
		for i, l := range bl {
			if l == 0 {
				if freq[i] != 0 {
					t.Fatalf("case %d: symbol %d has zero frequency-derived length but freq=%d", ci, i, freq[i])
				}
				continue
			}
			if freq[i] == 0 {
				t.Fatalf("case %d: symbol %d assigned length %d despite zero frequency", ci, i, l)
			}
			kraft += 1.0 / float64(uint64(1)<<l)
			if l > maxLen {
				maxLen = l
			}
		}
		if kraft > 1.0000001 {
			t.Fatalf("case %d: Kraft sum %f exceeds 1", ci, kraft)
		}
		if maxLen > 7 {
			t.Fatalf("case %d: max length %d exceeds maxBits 7", ci, maxLen)
		}
	}
}
