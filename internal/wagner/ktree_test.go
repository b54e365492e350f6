package wagner

import (
	"sort"
	"testing"
)

func kTreeKeys(sols []Solution) []string {
	keys := make([]string, 0, len(sols))
	for _, sol := range sols {
		keys = append(keys, sol.Key())
	}
	sort.Strings(keys)
	return keys
}

func TestKTreeMergeTwo_JoinsOnLowBits(t *testing.T) {
	s := NewKTree(Params{N: 16, K: 2, CollisionBits: 4, ListSize: 32, SolutionWidth: 4, HashLen: 2}, Seed{})
	L1 := &vectorList{vals: []Word{{0x12}, {0x34}}, tags: leafTags(4, 0, 1)}
	L2 := &vectorList{vals: []Word{{0x22}, {0x56}}, tags: leafTags(4, 2, 3)}

	out := s.mergeTwo(L1, L2, 4)

	if len(out.vals) != 1 {
		t.Fatalf("Expected one collision on the low nibble. Got: %d", len(out.vals))
	}
	if out.vals[0].Uint64() != 0x3 {
		t.Errorf("Expected merged value 0x1 ^ 0x2 = 0x3. Got: %#x", out.vals[0].Uint64())
	}
	// The left list's tag comes first: position encodes the list id.
	row := out.tags.Row(0)
	if row[0] != 0 || row[1] != 2 {
		t.Errorf("Expected merged tag [0 2]. Got: %v", row)
	}
}

func TestKTreeLeafList_TrimmedAndConstrained(t *testing.T) {
	p, _ := NewParams(16, 3) // ell = 4, 16 leaves per list
	s := NewKTree(p, Seed{})

	full := s.leafList(0, 0, -1)
	if len(full.vals) != 16 || full.tags.At(15, 0) != 15 {
		t.Fatalf("Expected 16 full-index leaves. Got: %d, last tag %d",
			len(full.vals), full.tags.At(15, 0))
	}

	trimmed := s.leafList(0, 1, -1)
	if len(trimmed.vals) != 16 {
		t.Fatalf("Expected the trimmed first pass to keep all leaves. Got: %d", len(trimmed.vals))
	}
	if trimmed.tags.At(3, 0) != 1 || trimmed.tags.At(4, 0) != 0 {
		t.Errorf("Expected tags j mod 2. Got: %d, %d", trimmed.tags.At(3, 0), trimmed.tags.At(4, 0))
	}

	// The constrained second pass keeps only leaves matching the
	// candidate's trimmed index, with full tags.
	constrained := s.leafList(0, 1, 1)
	if len(constrained.vals) != 8 {
		t.Fatalf("Expected half the leaves under a 1-bit constraint. Got: %d", len(constrained.vals))
	}
	for i := 0; i < constrained.tags.Rows(); i++ {
		if idx := constrained.tags.At(i, 0); idx%2 != 1 {
			t.Errorf("Expected only odd leaf indices. Got: %d", idx)
		}
	}
	if constrained.vals[0] != full.vals[1] {
		t.Error("Constrained leaf 0 must be the full list's leaf 1")
	}
}

func TestKTreeSolve_VerifiedPositionalSolutions(t *testing.T) {
	p, _ := NewParams(16, 3) // K = 8 lists of 16 leaves
	seed, _ := ParseSeed("00112233445566778899aabbccddeeff")
	s := NewKTree(p, seed)

	sols, err := s.Solve(0)
	if err != nil {
		t.Fatalf("k_tree: %v", err)
	}
	for _, sol := range sols {
		if len(sol.Indices) != p.SolutionWidth {
			t.Errorf("Expected positional width %d. Got: %d", p.SolutionWidth, len(sol.Indices))
		}
		for _, idx := range sol.Indices {
			if int(idx) >= 1<<uint(p.CollisionBits) {
				t.Errorf("Index %d outside the per-list leaf range", idx)
			}
		}
	}
}

func TestKTreeTrimmedRun_CoversFullRun(t *testing.T) {
	// The trimmed two-pass driver must recover every solution the full
	// run finds: the first pass has the same merge structure, and each
	// candidate's constrained pass re-derives its solutions.
	p, _ := NewParams(16, 3)
	seed, _ := ParseSeed("00112233445566778899aabbccddeeff")

	full, err := NewKTree(p, seed).Solve(0)
	if err != nil {
		t.Fatalf("full run: %v", err)
	}
	trimmed, err := NewKTree(p, seed).Solve(1)
	if err != nil {
		t.Fatalf("trimmed run: %v", err)
	}

	trimmedKeys := make(map[string]bool)
	for _, key := range kTreeKeys(trimmed) {
		trimmedKeys[key] = true
	}
	for _, key := range kTreeKeys(full) {
		if !trimmedKeys[key] {
			t.Errorf("Solution %s found by the full run is missing from the trimmed run", key)
		}
	}
}

func TestKTreeSolve_RejectsBadTrim(t *testing.T) {
	p, _ := NewParams(16, 3)
	if _, err := NewKTree(p, Seed{}).Solve(5); err == nil {
		t.Error("trim > ell must be rejected")
	}
}
