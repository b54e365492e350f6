package wagner

import (
	"fmt"
	"math"
)

// Estimator computes predicted peak memory (bits) and runtime (multiples
// of the baseline T0 = k*N) for every strategy, and searches the
// trade-off parameters (trimmed length, switching heights) ahead of a
// run. It is a pure function of (n, k).
type Estimator struct {
	p   Params
	n   float64
	k   int
	ell float64
	big float64 // N = 2^(ell+1)
}

// Plan is the strategy configuration the estimator selects before a run.
// RuntimeT0 is the predicted total runtime as a multiple of T0 (for
// k_tree, of the k-tree baseline T1); the runtime penalty of a two-pass
// trade-off is RuntimeT0 - 1.
type Plan struct {
	Strategy         Strategy `json:"strategy"`
	TrimmedLength    int      `json:"trimmedLength,omitempty"`
	SwitchHeight1    int      `json:"switchHeight1,omitempty"`
	SwitchHeight2    int      `json:"switchHeight2,omitempty"`
	ActivatingHeight int      `json:"activatingHeight,omitempty"`
	PeakLayer        int      `json:"peakLayer"`
	PeakMemoryBits   float64  `json:"peakMemoryBits"`
	RuntimeT0        float64  `json:"runtimeT0"`
}

// NewEstimator validates (n, k) and builds an estimator.
func NewEstimator(n, k int) (*Estimator, error) {
	p, err := NewParams(n, k)
	if err != nil {
		return nil, err
	}
	return &Estimator{
		p:   p,
		n:   float64(n),
		k:   k,
		ell: float64(p.CollisionBits),
		big: math.Exp2(float64(p.CollisionBits) + 1),
	}, nil
}

// BaselineT0 is the single-chain baseline runtime k*N in hash-merge
// operations.
func (e *Estimator) BaselineT0() float64 { return float64(e.k) * e.big }

// KTreeBaseline is the k-tree baseline (2^k - 1) * N.
func (e *Estimator) KTreeBaseline() float64 {
	return (math.Exp2(float64(e.k)) - 1) * e.big
}

// PlainIVMemory is the single-chain index-vector peak, reached at layer
// k-1: 2^(k-1) full indices plus the residual 2*ell hash bits per entry.
func (e *Estimator) PlainIVMemory() float64 {
	return (math.Exp2(float64(e.k-1))*(e.ell+1) + 2*e.ell) * e.big
}

// PlainIPMemory is the single-chain index-pointer peak
// 2*(n + k - ell - 1) * N.
func (e *Estimator) PlainIPMemory() float64 {
	return 2 * (e.n + float64(e.k) - e.ell - 1) * e.big
}

// KTreeIVMemory is the strict-variant index-vector peak.
func (e *Estimator) KTreeIVMemory() float64 {
	kf := float64(e.k)
	return ((kf*kf+5*kf+2)/4 + math.Exp2(kf-1)) * e.ell * e.big
}

// KTreeIPMemory is the strict-variant index-pointer peak.
func (e *Estimator) KTreeIPMemory() float64 {
	kf := float64(e.k)
	return ((kf*kf+kf-6)/4 + math.Exp2(kf)) * e.ell * e.big
}

// entry-size models shared by the searches. h == 0 never stores indices:
// the layer-0 tag is the sequential leaf position.
func (e *Estimator) fullEntryBits(h int) float64 {
	if h == 0 {
		return e.n
	}
	return math.Exp2(float64(h))*(e.ell+1) + e.n - float64(h)*e.ell
}

func (e *Estimator) trimmedEntryBits(h, t int) float64 {
	if h == 0 {
		return e.n
	}
	return math.Exp2(float64(h))*float64(t) + e.n - float64(h)*e.ell
}

func (e *Estimator) xorRemovalEntryBits(h int) float64 {
	if h == 0 {
		return 0
	}
	return math.Exp2(float64(h)) * (e.ell + 1)
}

// ActivatingHeight returns the smallest layer h at which the number of
// candidate index vectors under a t-bit partial solution, 2^(k-h), drops
// below the number of t-bit permutations of a 2^h-wide vector. Beyond it
// the constrained second-pass lists collapse rapidly.
func (e *Estimator) ActivatingHeight(t int) int {
	h, _ := e.constrainedSizes(t)
	return h
}

// ConstrainedLayerSizes returns the activating height and the expected
// second-pass list size per layer under a t-bit constraint.
func (e *Estimator) ConstrainedLayerSizes(t int) (int, []float64) {
	return e.constrainedSizes(t)
}

func (e *Estimator) constrainedSizes(t int) (int, []float64) {
	candidates := []float64{math.Exp2(float64(e.k))}
	permutations := []float64{math.Exp2(float64(t))}
	threshold := 0
	found := false
	for i := 1; i < e.k; i++ {
		cand := math.Exp2(float64(e.k - i))
		var perm float64
		if !found {
			perm = math.Pow(math.Exp2(float64(t)), math.Exp2(float64(i)))
		} else {
			perm = (cand * 2) * (cand * 2)
		}
		candidates = append(candidates, cand)
		permutations = append(permutations, perm)
		if cand < perm && !found {
			threshold = i
			found = true
		}
	}
	sizes := make([]float64, 0, e.k)
	current := e.big
	for i := 0; i < e.k; i++ {
		sizes = append(sizes, current)
		if i == e.k-1 {
			break
		}
		if i >= threshold-1 {
			current = (candidates[i+1] / permutations[i+1]) * (current * (current - 1) / 2) / math.Exp2(e.ell)
			if current < 1 {
				current = 1
			}
		}
	}
	return threshold, sizes
}

// IVITSearch is the result of the trimmed-length scan for the two-pass
// index-trimming trade-off.
type IVITSearch struct {
	Trim             int
	ActivatingHeight int
	SwitchHeight1    int // 0 = no XOR-removal in the first pass
	SwitchHeight2    int // 0 = no XOR-removal in the second pass
	PeakBits         float64
	OverheadT0       float64 // extra runtime beyond T0, in multiples of T0
}

// SearchIVIT scans t = 1, 2, ... and picks the smallest trimmed length
// whose two-pass peak (with XOR-removal bounded to floor(log2 k) layers
// in the first pass) does not exceed the first-pass peak. In practice
// this consistently yields t = 1.
func (e *Estimator) SearchIVIT() (IVITSearch, bool) {
	maxDepth := int(math.Floor(math.Log2(float64(e.k))))
	for t := 1; t < int(math.Ceil(e.ell)); t++ {
		layer0 := e.n * e.big
		layerK1 := e.trimmedEntryBits(e.k-1, t) * e.big
		firstMem := layerK1
		switch1 := 0
		overhead1 := 0.0
		if layer0 > layerK1 {
			firstMem = layer0
			for d := 0; d <= maxDepth; d++ {
				m1 := math.Max(e.xorRemovalEntryBits(d)*e.big, e.trimmedEntryBits(d+1, t)*e.big)
				m1 = math.Max(m1, layerK1)
				if m1 < layerK1 {
					firstMem = layerK1
					switch1 = d + 1
					overhead1 = (math.Exp2(float64(d+1)) - 2) * e.big
					break
				}
				if m1 < firstMem {
					firstMem = m1
					switch1 = d + 1
					overhead1 = (math.Exp2(float64(d+1)) - 2) * e.big
				}
			}
		}
		threshold, sizes := e.constrainedSizes(t)
		overhead2 := 0.0
		peak2 := 0.0
		for h, sz := range sizes {
			overhead2 += sz
			if m := e.fullEntryBits(h) * sz; m > peak2 {
				peak2 = m
			}
		}
		if peak2 < firstMem {
			return IVITSearch{
				Trim:             t,
				ActivatingHeight: threshold,
				SwitchHeight1:    switch1,
				PeakBits:         firstMem,
				OverheadT0:       (overhead1 + overhead2) / e.BaselineT0(),
			}, true
		}
		// The second pass needs its own limited XOR-removal window to
		// stay under the first-pass peak.
		for d := 0; d <= threshold+1 && d+1 < len(sizes); d++ {
			m2 := math.Max(
				math.Exp2(float64(d))*(e.ell+1)*sizes[d],
				e.trimmedEntryBits(d+1, t)*sizes[d+1],
			)
			if m2 < firstMem {
				for h := 1; h <= d; h++ {
					overhead2 += math.Exp2(float64(h)) * sizes[h]
				}
				return IVITSearch{
					Trim:             t,
					ActivatingHeight: threshold,
					SwitchHeight1:    switch1,
					SwitchHeight2:    d + 1,
					PeakBits:         firstMem,
					OverheadT0:       (overhead1 + overhead2) / e.BaselineT0(),
				}, true
			}
		}
	}
	return IVITSearch{}, false
}

// SearchIPPR picks the smallest switching height h in [ceil((k-1)/2), k-1]
// whose retained pointer arrays fit the n*N budget, and returns it with
// the total runtime in multiples of T0 (re-deriving pointer layers 1..h
// costs h(h+1)/2 * N).
func (e *Estimator) SearchIPPR() (int, float64, bool) {
	for h := e.k / 2; h < e.k; h++ {
		mem := float64(e.k-1-h)*2*(e.ell+1)*e.big + 2*e.ell*e.big
		if mem <= e.n*e.big {
			overhead := float64(h) * float64(h+1) / 2 * e.big
			return h, 1 + overhead/e.BaselineT0(), true
		}
	}
	return 0, 0, false
}

// hybridPlan models the combined trade-off: XOR-removal below h1, index
// trimming on [h1, h2), index pointers with post-retrieval on [h2, k-1].
// It reports the per-layer footprint peak and the total runtime.
func (e *Estimator) hybridPlan(t int) (h1, h2, peakLayer int, peakBits, runtimeT0 float64) {
	h1 = 1
	if e.k == 2 {
		h1 = 0
	}
	h2 = (e.k + 1) / 2
	peakBits = -1
	for h := 0; h < e.k; h++ {
		var bits float64
		switch {
		case h == 0:
			bits = e.n * e.big
		case h < h1:
			bits = (e.n - float64(h)*e.ell) * e.big
		case h < h2:
			bits = e.trimmedEntryBits(h, t) * e.big
		default:
			residual := e.n - float64(h)*e.ell
			pointers := float64(h-h2+1) * 2 * (e.ell + 1)
			bits = (residual + pointers) * e.big
		}
		if bits >= peakBits {
			peakBits = bits
			peakLayer = h
		}
	}
	var extra float64
	if e.k == 2 {
		// No trimmed tags survive at h2 = 1, so no second pass: only
		// the pointer retrieval is re-derived.
		extra = float64(h2) * float64(h2+1) / 2
	} else {
		// XOR-removal recompute in both passes, a full second pass,
		// post-retrieval of the pointer layers, and the final walk.
		extra = math.Exp2(float64(h1+1)) - 2 + float64(e.k) +
			float64(h2)*float64(h2+1)/2 + 1
		if extra > 3*float64(e.k) {
			extra = 3 * float64(e.k)
		}
	}
	runtimeT0 = 1 + extra/float64(e.k)
	return h1, h2, peakLayer, peakBits, runtimeT0
}

// PlanFor selects the trade-off configuration for one strategy. trim = 0
// lets the trimmed-length scan decide (it consistently picks 1).
func (e *Estimator) PlanFor(strategy Strategy, trim int) (Plan, error) {
	looseCheck := func() error { return e.p.CheckLoose() }
	switch strategy {
	case StrategyPlainIV:
		if err := looseCheck(); err != nil {
			return Plan{}, err
		}
		return Plan{
			Strategy:       strategy,
			PeakLayer:      e.k - 1,
			PeakMemoryBits: e.PlainIVMemory(),
			RuntimeT0:      1,
		}, nil
	case StrategyPlainIP:
		if err := looseCheck(); err != nil {
			return Plan{}, err
		}
		return Plan{
			Strategy:       strategy,
			PeakLayer:      e.k - 1,
			PeakMemoryBits: e.PlainIPMemory(),
			RuntimeT0:      1,
		}, nil
	case StrategyIPPR:
		if err := looseCheck(); err != nil {
			return Plan{}, err
		}
		h, runtime, ok := e.SearchIPPR()
		if !ok {
			return Plan{}, fmt.Errorf("no ip_pr switching height fits n*N for n=%d k=%d", e.p.N, e.k)
		}
		return Plan{
			Strategy:       strategy,
			SwitchHeight1:  h,
			PeakLayer:      e.k - 1,
			PeakMemoryBits: e.n * e.big,
			RuntimeT0:      runtime,
		}, nil
	case StrategyIPEM:
		if err := looseCheck(); err != nil {
			return Plan{}, err
		}
		return Plan{
			Strategy:       strategy,
			PeakLayer:      e.k - 1,
			PeakMemoryBits: e.n * e.big,
			RuntimeT0:      2,
		}, nil
	case StrategyIVIT, StrategyIVITStar:
		if err := looseCheck(); err != nil {
			return Plan{}, err
		}
		if trim == 0 {
			search, ok := e.SearchIVIT()
			if !ok {
				return Plan{}, fmt.Errorf("no trimmed length fits the two-pass bound for n=%d k=%d", e.p.N, e.k)
			}
			trim = search.Trim
		} else if err := e.p.CheckTrim(trim); err != nil {
			return Plan{}, err
		}
		h1, h2, peakLayer, peakBits, runtime := e.hybridPlan(trim)
		return Plan{
			Strategy:         strategy,
			TrimmedLength:    trim,
			SwitchHeight1:    h1,
			SwitchHeight2:    h2,
			ActivatingHeight: e.ActivatingHeight(trim),
			PeakLayer:        peakLayer,
			PeakMemoryBits:   peakBits,
			RuntimeT0:        runtime,
		}, nil
	case StrategyKTree:
		return Plan{
			Strategy:       strategy,
			PeakLayer:      e.k - 1,
			PeakMemoryBits: e.KTreeIVMemory(),
			RuntimeT0:      1,
		}, nil
	default:
		return Plan{}, fmt.Errorf("unknown strategy %q", strategy)
	}
}

// PlanAll evaluates every strategy for this (n, k); strategies whose
// preconditions fail (e.g. the loose bound) are skipped.
func (e *Estimator) PlanAll() []Plan {
	plans := make([]Plan, 0, len(StrategyNames))
	for _, strategy := range SingleChainStrategies {
		if plan, err := e.PlanFor(strategy, 0); err == nil {
			plans = append(plans, plan)
		}
	}
	if plan, err := e.PlanFor(StrategyKTree, 0); err == nil {
		plans = append(plans, plan)
	}
	return plans
}
