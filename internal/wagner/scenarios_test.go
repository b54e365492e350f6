package wagner

import (
	"os"
	"testing"
)

// The reference scenarios run full-size Equihash parameter sets (up to
// N = 2^21 leaves for (200, 9)) and take minutes to hours. They are
// gated behind an environment flag so the regular suite stays fast:
//
//	WAGNER_HEAVY_TESTS=1 go test ./internal/wagner -run Scenario -timeout 24h
func requireHeavy(t *testing.T) {
	t.Helper()
	if os.Getenv("WAGNER_HEAVY_TESTS") == "" {
		t.Skip("set WAGNER_HEAVY_TESTS=1 to run the full reference scenarios")
	}
}

func heavySolve(t *testing.T, n, k int, seedHex string, strategy Strategy, trim int) []Solution {
	t.Helper()
	p, err := NewParams(n, k)
	if err != nil {
		t.Fatalf("NewParams: %v", err)
	}
	seed, err := ParseSeed(seedHex)
	if err != nil {
		t.Fatalf("ParseSeed: %v", err)
	}
	if strategy == StrategyKTree {
		sols, err := NewKTree(p, seed).Solve(trim)
		if err != nil {
			t.Fatalf("k_tree: %v", err)
		}
		return sols
	}
	s, err := NewSingleChain(p, seed)
	if err != nil {
		t.Fatalf("NewSingleChain: %v", err)
	}
	s.ScratchDir = t.TempDir()
	sols, err := s.Solve(strategy, trim)
	if err != nil {
		t.Fatalf("%s: %v", strategy, err)
	}
	return sols
}

func countPerfect(sols []Solution) int {
	n := 0
	for _, sol := range sols {
		if sol.Kind == Perfect {
			n++
		}
	}
	return n
}

func TestScenario_PlainIVZeroSeed(t *testing.T) {
	requireHeavy(t)
	// (96, 3) with the all-zero seed yields at least one perfect vector
	// of length 8; verification runs inside the driver.
	sols := heavySolve(t, 96, 3, "00000000000000000000000000000000", StrategyPlainIV, 0)
	if countPerfect(sols) < 1 {
		t.Fatalf("Expected at least one perfect solution. Got: %d solutions", len(sols))
	}
	for _, sol := range sols {
		if sol.Kind == Perfect && len(sol.Indices) != 8 {
			t.Errorf("Expected perfect width 8. Got: %d", len(sol.Indices))
		}
	}
}

func TestScenario_PostRetrievalIdempotence(t *testing.T) {
	requireHeavy(t)
	seed := "e11c0fbda860aa57d3d8d68b11be0ba5"
	plain := PerfectSet(heavySolve(t, 128, 7, seed, StrategyPlainIP, 0))
	pr := PerfectSet(heavySolve(t, 128, 7, seed, StrategyIPPR, 0))
	if len(plain) != len(pr) {
		t.Fatalf("plain_ip found %d perfect sets, ip_pr found %d", len(plain), len(pr))
	}
	for key := range plain {
		if _, ok := pr[key]; !ok {
			t.Errorf("ip_pr is missing perfect set %s", key)
		}
	}
}

func TestScenario_IndexTrimmingMatchesPlainIV(t *testing.T) {
	requireHeavy(t)
	seed := "e11c0fbda860aa57d3d8d68b11be0ba5"
	plain := PerfectSet(heavySolve(t, 128, 7, seed, StrategyPlainIV, 0))
	trimmed := PerfectSet(heavySolve(t, 128, 7, seed, StrategyIVIT, 1))
	if len(plain) == 0 {
		t.Fatal("Expected first-pass candidates for the reference seed")
	}
	if len(plain) != len(trimmed) {
		t.Fatalf("plain_iv found %d perfect sets, iv_it found %d", len(plain), len(trimmed))
	}
	for key := range plain {
		if _, ok := trimmed[key]; !ok {
			t.Errorf("iv_it is missing perfect set %s", key)
		}
	}
}

func TestScenario_KTreeTrimmedReference(t *testing.T) {
	requireHeavy(t)
	// Empirical reference: exactly 2 perfect solutions.
	sols := heavySolve(t, 200, 9, "2f8355540e1a4ed472aa14eba5534647", StrategyKTree, 1)
	if countPerfect(sols) != 2 {
		t.Errorf("Expected exactly 2 perfect solutions. Got: %d", countPerfect(sols))
	}
}

func TestScenario_AggregatedTrimmingReference(t *testing.T) {
	requireHeavy(t)
	// Empirical reference: exactly 1 perfect solution.
	sols := heavySolve(t, 200, 9, "46a9be3479c4a2da4f5ab2cb7fefe79a", StrategyIVITStar, 1)
	if countPerfect(sols) != 1 {
		t.Errorf("Expected exactly 1 perfect solution. Got: %d", countPerfect(sols))
	}
}

func TestScenario_ModeledPeakWithinPrediction(t *testing.T) {
	requireHeavy(t)
	// The modeled per-layer footprint must stay within 1.15x of the
	// estimator's plain_iv prediction.
	p, _ := NewParams(96, 3)
	seed, _ := ParseSeed("00000000000000000000000000000000")
	s, err := NewSingleChain(p, seed)
	if err != nil {
		t.Fatalf("NewSingleChain: %v", err)
	}
	var peak float64
	s.Progress = func(lr LayerReport) {
		if bits := float64(lr.Entries) * float64(lr.EntryBits); bits > peak {
			peak = bits
		}
	}
	if _, err := s.SolvePlainIV(); err != nil {
		t.Fatalf("plain_iv: %v", err)
	}
	est, _ := NewEstimator(96, 3)
	plan, _ := est.PlanFor(StrategyPlainIV, 0)
	if peak > 1.15*plan.PeakMemoryBits {
		t.Errorf("Modeled peak %.0f bits exceeds 1.15x the predicted %.0f bits", peak, plan.PeakMemoryBits)
	}
}
