package wagner

import (
	"fmt"
	"os"
)

// SingleChainSolver runs the loose (single-list) Wagner algorithm for
// GBP(n, 2^k): all leaves come from one chain and trivial repetitions are
// rejected along the way.
type SingleChainSolver struct {
	p      Params
	seed   Seed
	oracle *Oracle

	// Progress, when set, receives one report per completed layer.
	Progress func(LayerReport)

	// ScratchDir overrides the directory for the IP-EM pointer file;
	// empty means os.TempDir().
	ScratchDir string
}

// NewSingleChain validates the loose-variant bound and builds a solver.
func NewSingleChain(p Params, seed Seed) (*SingleChainSolver, error) {
	if err := p.CheckLoose(); err != nil {
		return nil, err
	}
	return &SingleChainSolver{p: p, seed: seed, oracle: NewOracle(p, seed)}, nil
}

// Params returns the instance parameters.
func (s *SingleChainSolver) Params() Params { return s.p }

// Seed returns the run seed.
func (s *SingleChainSolver) Seed() Seed { return s.seed }

// Solve dispatches to the driver for the given strategy. trim is the
// trimmed index bit length for the IV-IT strategies; 0 selects the
// estimator default of 1.
func (s *SingleChainSolver) Solve(strategy Strategy, trim int) ([]Solution, error) {
	if trim == 0 {
		trim = 1
	}
	switch strategy {
	case StrategyPlainIV:
		return s.SolvePlainIV()
	case StrategyPlainIP:
		return s.SolvePlainIP()
	case StrategyIPPR:
		return s.SolveIPPostRetrieval()
	case StrategyIPEM:
		return s.SolveIPExternalMemory()
	case StrategyIVIT:
		return s.SolveIVIT(trim)
	case StrategyIVITStar:
		return s.SolveIVITStar(trim)
	default:
		return nil, fmt.Errorf("strategy %q is not a single-chain strategy", strategy)
	}
}

func (s *SingleChainSolver) report(pass, layer, entries, entryBits int) {
	if s.Progress != nil {
		s.Progress(LayerReport{Pass: pass, Layer: layer, Entries: entries, EntryBits: entryBits})
	}
}

// generateValues materializes the layer-0 hash list without tags.
func (s *SingleChainSolver) generateValues() []Word {
	vals := make([]Word, s.p.ListSize)
	for i := range vals {
		vals[i] = s.oracle.LooseLeaf(i)
	}
	return vals
}

// generateVectors materializes layer 0 with one leaf index per entry,
// stored at the given bit width (the index is masked to that width, so a
// trimmed pass stores i mod 2^t).
func (s *SingleChainSolver) generateVectors(width int) *vectorList {
	L := &vectorList{
		vals: make([]Word, s.p.ListSize),
		tags: NewBitMatrix(width, 1, s.p.ListSize),
	}
	mask := uint64(1)<<uint(width) - 1
	for i := 0; i < s.p.ListSize; i++ {
		L.vals[i] = s.oracle.LooseLeaf(i)
		L.tags.AppendUint(uint64(i) & mask)
	}
	return L
}

// solveVectors runs the k-layer index-vector merge tree and returns the
// root tag rows. With checks set this is a constrained second pass: each
// merged tag, trimmed to checks.Trim() bits per index, must be a
// first-pass candidate chunk for its layer.
func (s *SingleChainSolver) solveVectors(width int, checks *CheckTables, pass int) [][]uint64 {
	ell := s.p.CollisionBits
	trim := 0
	if checks != nil {
		trim = checks.Trim()
	}
	L := s.generateVectors(width)
	s.report(pass, 0, len(L.vals), s.vectorEntryBits(0, width))
	for h := 1; h < s.p.K; h++ {
		L = s.mergeVectors(L, ell, trim, checks.layer(h))
		s.report(pass, h, len(L.vals), s.vectorEntryBits(h, width))
	}
	L = s.mergeVectors(L, 2*ell, trim, checks.layer(s.p.K))
	s.report(pass, s.p.K, len(L.vals), s.vectorEntryBits(s.p.K, width))

	roots := make([][]uint64, L.tags.Rows())
	for i := range roots {
		roots[i] = L.tags.Row(i)
	}
	return roots
}

// vectorEntryBits models the packed footprint of one layer-h entry: the
// residual hash bits plus 2^h tag indices of the stored width.
func (s *SingleChainSolver) vectorEntryBits(h, width int) int {
	residual := s.p.N - h*s.p.CollisionBits
	if h == s.p.K {
		residual = 0
	}
	return residual + (1<<uint(h))*width
}

// SolvePlainIV runs the plain index-vector driver: full-width tags, k-1
// merges on ell bits and one final self-merge on 2*ell bits.
func (s *SingleChainSolver) SolvePlainIV() ([]Solution, error) {
	roots := s.solveVectors(s.p.IndexBits(), nil, 0)
	return s.finish(roots)
}

// SolveIVIT runs index trimming with one constrained second pass per
// first-pass candidate (the strict two-pass form).
func (s *SingleChainSolver) SolveIVIT(trim int) ([]Solution, error) {
	if err := s.p.CheckTrim(trim); err != nil {
		return nil, err
	}
	candidates := s.solveVectors(trim, nil, 0)
	var vectors [][]uint64
	for i, cand := range candidates {
		checks := NewCheckTables(s.p.K, trim)
		checks.AddCandidate(cand)
		vectors = append(vectors, s.solveVectors(s.p.IndexBits(), checks, i+1)...)
	}
	return s.finish(vectors)
}

// SolveIVITStar runs index trimming with all first-pass candidates
// aggregated into one union check table and a single second pass.
func (s *SingleChainSolver) SolveIVITStar(trim int) ([]Solution, error) {
	if err := s.p.CheckTrim(trim); err != nil {
		return nil, err
	}
	candidates := s.solveVectors(trim, nil, 0)
	if len(candidates) == 0 {
		return nil, nil
	}
	checks := NewCheckTables(s.p.K, trim)
	for _, cand := range candidates {
		checks.AddCandidate(cand)
	}
	return s.finish(s.solveVectors(s.p.IndexBits(), checks, 1))
}

// SolvePlainIP runs the plain index-pointer driver: every layer keeps a
// pointer array into its predecessor, and root tags are reconstructed by
// walking the chain.
func (s *SingleChainSolver) SolvePlainIP() ([]Solution, error) {
	ell := s.p.CollisionBits
	vals := s.generateValues()
	s.report(0, 0, len(vals), s.p.N)
	layers := make([][]IndexPair, 0, s.p.K-1)
	for h := 1; h < s.p.K; h++ {
		var ips []IndexPair
		vals, ips = s.mergePointers(vals, ell)
		layers = append(layers, ips)
		s.report(0, h, len(vals), s.p.N-h*ell+2*s.p.IndexBits())
	}
	_, rootPairs := s.mergePointers(vals, 2*ell)
	s.report(0, s.p.K, len(rootPairs), 2*s.p.IndexBits())
	return s.finish(expandPointerChain(layers, rootPairs))
}

// expandPointerChain walks the per-layer pointer arrays from the root
// pairs down to leaf indices.
func expandPointerChain(layers [][]IndexPair, rootPairs []IndexPair) [][]uint64 {
	vectors := make([][]uint64, 0, len(rootPairs))
	for _, rp := range rootPairs {
		vec := []uint64{uint64(rp.Left), uint64(rp.Right)}
		for i := len(layers) - 1; i >= 0; i-- {
			next := make([]uint64, 0, 2*len(vec))
			for _, idx := range vec {
				pair := layers[i][idx]
				next = append(next, uint64(pair.Left), uint64(pair.Right))
			}
			vec = next
		}
		vectors = append(vectors, vec)
	}
	return vectors
}

// SolveIPPostRetrieval runs the index-pointer driver without storing any
// pointer array: the merge tree is re-run once per layer, each time one
// level shallower, to expand the solutions found at the top.
func (s *SingleChainSolver) SolveIPPostRetrieval() ([]Solution, error) {
	ell := s.p.CollisionBits
	var solutions [][]uint64
	for round := s.p.K; round >= 1; round-- {
		vals := s.generateValues()
		pass := s.p.K - round
		s.report(pass, 0, len(vals), s.p.N)
		for h := 1; h < round; h++ {
			vals = s.mergeValues(vals, ell)
			s.report(pass, h, len(vals), s.p.N-h*ell)
		}
		if round == s.p.K {
			_, rootPairs := s.mergePointers(vals, 2*ell)
			s.report(pass, round, len(rootPairs), 2*s.p.IndexBits())
			solutions = make([][]uint64, 0, len(rootPairs))
			for _, rp := range rootPairs {
				solutions = append(solutions, []uint64{uint64(rp.Left), uint64(rp.Right)})
			}
			continue
		}
		_, pairs := s.mergePointers(vals, ell)
		s.report(pass, round, len(pairs), s.p.N-round*ell+2*s.p.IndexBits())
		expanded := make([][]uint64, 0, len(solutions))
		for _, sol := range solutions {
			next := make([]uint64, 0, 2*len(sol))
			for _, idx := range sol {
				pair := pairs[idx]
				next = append(next, uint64(pair.Left), uint64(pair.Right))
			}
			expanded = append(expanded, next)
		}
		solutions = expanded
	}
	return s.finish(solutions)
}

// SolveIPExternalMemory runs the index-pointer driver with every
// non-final pointer array spilled to a scratch file, which is then
// memory-mapped read-only for the retrieval walk. The file is removed
// after validation.
func (s *SingleChainSolver) SolveIPExternalMemory() ([]Solution, error) {
	ell := s.p.CollisionBits
	path := s.scratchPath()
	pw, err := newPointerWriter(path, s.p.PointerBytes())
	if err != nil {
		return nil, fmt.Errorf("ip_em scratch file %s: %v", path, err)
	}
	defer os.Remove(path)

	vals := s.generateValues()
	s.report(0, 0, len(vals), s.p.N)
	layerSizes := make([]int, 0, s.p.K-1)
	for h := 1; h < s.p.K; h++ {
		vals, err = s.mergeExternal(vals, ell, pw)
		if err != nil {
			pw.Close()
			return nil, fmt.Errorf("ip_em scratch file %s: %v", path, err)
		}
		layerSizes = append(layerSizes, len(vals))
		s.report(0, h, len(vals), s.p.N-h*ell)
	}
	_, rootPairs := s.mergePointers(vals, 2*ell)
	s.report(0, s.p.K, len(rootPairs), 2*s.p.IndexBits())
	if err := pw.Close(); err != nil {
		return nil, fmt.Errorf("ip_em scratch file %s: %v", path, err)
	}

	mm, err := openPointerMap(path, s.p.PointerBytes())
	if err != nil {
		return nil, fmt.Errorf("ip_em scratch file %s: %v", path, err)
	}
	defer mm.Close()

	solutions := make([][]uint64, 0, len(rootPairs))
	for _, rp := range rootPairs {
		solutions = append(solutions, []uint64{uint64(rp.Left), uint64(rp.Right)})
	}
	for layer := s.p.K - 1; layer >= 1; layer-- {
		offset := 0
		for _, sz := range layerSizes[:layer-1] {
			offset += sz
		}
		expanded := make([][]uint64, 0, len(solutions))
		for _, sol := range solutions {
			next := make([]uint64, 0, 2*len(sol))
			for _, idx := range sol {
				left, right := mm.pair(offset + int(idx))
				next = append(next, uint64(left), uint64(right))
			}
			expanded = append(expanded, next)
		}
		solutions = expanded
	}
	return s.finish(solutions)
}

// finish classifies, deduplicates and verifies the candidate index
// vectors of the root layer.
func (s *SingleChainSolver) finish(vectors [][]uint64) ([]Solution, error) {
	sols := checkIndexVectors(vectors, s.p.SolutionWidth)
	if err := s.VerifySolutions(sols); err != nil {
		return nil, err
	}
	return sols, nil
}
