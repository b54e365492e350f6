package wagner

import "fmt"

// KTreeSolver runs Wagner's k-Tree algorithm for the strict variant: the
// 2^k leaves come from 2^k distinct lists and the i-th index of every
// solution belongs to list i.
type KTreeSolver struct {
	p      Params
	seed   Seed
	oracle *Oracle

	// Progress, when set, receives one report per completed merge.
	Progress func(LayerReport)
}

// NewKTree builds a strict-variant solver. The single-chain bound does
// not apply here.
func NewKTree(p Params, seed Seed) *KTreeSolver {
	return &KTreeSolver{p: p, seed: seed, oracle: NewOracle(p, seed)}
}

// Params returns the instance parameters.
func (s *KTreeSolver) Params() Params { return s.p }

// leafList materializes list `list`. With trim > 0 and trimVal < 0 the
// tags are trimmed to the low trim bits (first pass). With trimVal >= 0
// the list is restricted to leaves j with j mod 2^trim == trimVal and
// carries full indices (constrained second pass).
func (s *KTreeSolver) leafList(list, trim int, trimVal int64) *vectorList {
	size := 1 << uint(s.p.CollisionBits)
	width := s.p.CollisionBits
	step := 1
	start := 0
	mask := ^uint64(0)
	if trim > 0 {
		if trimVal >= 0 {
			step = 1 << uint(trim)
			start = int(trimVal)
		} else {
			width = trim
			mask = uint64(1)<<uint(trim) - 1
		}
	}
	L := &vectorList{
		tags: NewBitMatrix(width, 1, (size-start+step-1)/step),
	}
	for j := start; j < size; j += step {
		L.vals = append(L.vals, s.oracle.ListLeaf(list, j))
		L.tags.AppendUint(uint64(j) & mask)
	}
	return L
}

// mergeTwo hash-joins two distinct lists on the low collideBits. Unlike
// the single-chain kernel there is no trivial filtering: leaves from
// distinct lists cannot repeat.
func (s *KTreeSolver) mergeTwo(L1, L2 *vectorList, collideBits int) *vectorList {
	buckets := make(map[Word][]bucketEntry, len(L1.vals))
	for row, val := range L1.vals {
		low := val.Mask(collideBits)
		buckets[low] = append(buckets[low], bucketEntry{high: val.Shr(collideBits), row: row})
	}
	out := &vectorList{
		tags: NewBitMatrix(L1.tags.Width(), L1.tags.Count()+L2.tags.Count(), len(L2.vals)),
	}
	for row, val := range L2.vals {
		high := val.Shr(collideBits)
		for _, prior := range buckets[val.Mask(collideBits)] {
			out.vals = append(out.vals, prior.high.Xor(high))
			out.tags.AppendPair(L1.tags, prior.row, L2.tags, row)
		}
	}
	return out
}

// solveTree builds the balanced merge tree in post-order: a stack of
// (list, depth) pairs where two same-depth lists are popped and merged.
// The last merge (depth k-1) collides 2*ell bits.
func (s *KTreeSolver) solveTree(trim int, trimVals []int64, pass int) [][]uint64 {
	type stackItem struct {
		list  *vectorList
		depth int
	}
	trimVal := func(i int) int64 {
		if trimVals == nil {
			return -1
		}
		return trimVals[i]
	}
	stack := []stackItem{{list: s.leafList(0, trim, trimVal(0)), depth: 0}}
	for i := 1; i < s.p.SolutionWidth; i++ {
		merged := s.leafList(i, trim, trimVal(i))
		depth := 0
		for len(stack) > 0 && stack[len(stack)-1].depth == depth {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			collideBits := s.p.CollisionBits
			if depth == s.p.K-1 {
				collideBits = 2 * s.p.CollisionBits
			}
			merged = s.mergeTwo(top.list, merged, collideBits)
			depth++
			s.report(pass, depth, len(merged.vals), merged.tags.Width()*merged.tags.Count())
		}
		stack = append(stack, stackItem{list: merged, depth: depth})
	}
	root := stack[len(stack)-1]
	roots := make([][]uint64, root.list.tags.Rows())
	for i := range roots {
		roots[i] = root.list.tags.Row(i)
	}
	return roots
}

func (s *KTreeSolver) report(pass, depth, entries, entryBits int) {
	if s.Progress != nil {
		s.Progress(LayerReport{Pass: pass, Layer: depth, Entries: entries, EntryBits: entryBits})
	}
}

// Solve runs the k-Tree driver. With trim == 0 a single full-index pass
// is performed; with trim in [1, ell] the first pass stores trimmed tags
// and each candidate constrains one reduced-size second pass, shrinking
// list i to the leaves matching the candidate's i-th trimmed index.
func (s *KTreeSolver) Solve(trim int) ([]Solution, error) {
	if trim < 0 || trim > s.p.CollisionBits {
		return nil, fmt.Errorf("trim = %d, ell = %d: %w", trim, s.p.CollisionBits, ErrTrimLength)
	}
	var vectors [][]uint64
	if trim == 0 {
		vectors = s.solveTree(0, nil, 0)
	} else {
		candidates := s.solveTree(trim, nil, 0)
		for i, cand := range candidates {
			trimVals := make([]int64, len(cand))
			for j, v := range cand {
				trimVals[j] = int64(v)
			}
			vectors = append(vectors, s.solveTree(trim, trimVals, i+1)...)
		}
	}
	sols := dedupeStrict(vectors)
	if err := s.VerifySolutions(sols); err != nil {
		return nil, err
	}
	return sols, nil
}

// dedupeStrict wraps positional index vectors as perfect strict
// solutions, deduplicated by position.
func dedupeStrict(vectors [][]uint64) []Solution {
	seen := make(map[string]struct{})
	var sols []Solution
	for _, vec := range vectors {
		sol := Solution{Kind: Perfect, Indices: append([]uint64(nil), vec...)}
		key := sol.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		sols = append(sols, sol)
	}
	return sols
}

// VerifySolutions recomputes H(seed, i, v_i) for every solution and
// checks the XOR is zero.
func (s *KTreeSolver) VerifySolutions(sols []Solution) error {
	for _, sol := range sols {
		var acc Word
		for i, idx := range sol.Indices {
			acc = acc.Xor(s.oracle.ListLeaf(i, int(idx)))
		}
		if !acc.IsZero() {
			return fmt.Errorf("verification failed for strict solution %v (n=%d k=%d seed=%s): xor != 0",
				sol.Indices, s.p.N, s.p.K, s.seed)
		}
	}
	return nil
}
