package wagner

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SolutionKind classifies a root-layer index vector.
type SolutionKind int

const (
	// Trivial: every index cancels pairwise; the vector is discarded.
	Trivial SolutionKind = iota
	// Perfect: all 2^k indices are distinct.
	Perfect
	// Secondary: some indices pair-cancel; the survivors solve
	// GBP(n, 2^k - 2i) for some i >= 1.
	Secondary
)

func (k SolutionKind) String() string {
	switch k {
	case Perfect:
		return "perfect"
	case Secondary:
		return "secondary"
	default:
		return "trivial"
	}
}

// Solution is one surviving index set. For the loose variant Indices is
// sorted ascending; for the strict variant it is positional (the i-th
// index belongs to list i).
type Solution struct {
	Kind    SolutionKind
	Indices []uint64
}

// Key returns the canonical identity of the solution's index set, used
// for deduplication and cross-strategy comparison.
func (s Solution) Key() string {
	var b strings.Builder
	for i, v := range s.Indices {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(v, 10))
	}
	return b.String()
}

// classifyVector tallies the mod-2 multiplicity of each index. A full
// vector with all indices distinct is perfect; a non-empty survivor set
// is a secondary solution; an empty one is trivial.
func classifyVector(vec []uint64, width int) (SolutionKind, []uint64) {
	distinct := make(map[uint64]int, len(vec))
	for _, idx := range vec {
		distinct[idx] ^= 1
	}
	if len(distinct) == width && len(vec) == width {
		out := append([]uint64(nil), vec...)
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		return Perfect, out
	}
	var out []uint64
	for idx, odd := range distinct {
		if odd == 1 {
			out = append(out, idx)
		}
	}
	if len(out) == 0 {
		return Trivial, nil
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return Secondary, out
}

// checkIndexVectors classifies every candidate vector, drops the trivial
// ones and deduplicates the rest by index set.
func checkIndexVectors(vectors [][]uint64, width int) []Solution {
	seen := make(map[string]struct{})
	var sols []Solution
	for _, vec := range vectors {
		kind, indices := classifyVector(vec, width)
		if kind == Trivial {
			continue
		}
		sol := Solution{Kind: kind, Indices: indices}
		key := sol.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		sols = append(sols, sol)
	}
	return sols
}

// PerfectSet extracts the canonical keys of the perfect solutions, the
// set every strategy must agree on for a fixed (n, k, seed).
func PerfectSet(sols []Solution) map[string]struct{} {
	set := make(map[string]struct{})
	for _, sol := range sols {
		if sol.Kind == Perfect {
			set[sol.Key()] = struct{}{}
		}
	}
	return set
}

// VerifySolutions recomputes the leaf hashes of every solution and checks
// that they XOR to zero. A failure is fatal: it indicates a kernel bug,
// so the error carries the run context.
func (s *SingleChainSolver) VerifySolutions(sols []Solution) error {
	for _, sol := range sols {
		var acc Word
		for _, idx := range sol.Indices {
			acc = acc.Xor(s.oracle.LooseLeaf(int(idx)))
		}
		if !acc.IsZero() {
			return fmt.Errorf("verification failed for %s solution %v (n=%d k=%d seed=%s): xor != 0",
				sol.Kind, sol.Indices, s.p.N, s.p.K, s.seed)
		}
	}
	return nil
}
