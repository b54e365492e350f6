package main

import (
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tl2cents/wagner-engine/internal/metrics"
	"github.com/tl2cents/wagner-engine/internal/wagner"
)

var (
	flagN       int
	flagK       int
	flagSeed    string
	flagAlgo    string
	flagTrim    int
	flagVerbose bool
)

func main() {
	root := &cobra.Command{
		Use:   "wagner",
		Short: "Wagner solver harness for the generalized birthday problem",
		Long: "Solves GBP(n, 2^k): finds 2^k hash inputs whose BLAKE2b outputs XOR to zero,\n" +
			"using one of the memory/runtime trade-off strategies of the solver engine.",
	}
	root.AddCommand(solveCmd(), estimateCmd())
	if err := root.Execute(); err != nil {
		os.Exit(2)
	}
}

func addInstanceFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&flagN, "n", 128, "hash output bit length")
	cmd.Flags().IntVar(&flagK, "k", 7, "merge tree depth (solution width 2^k)")
	cmd.Flags().IntVar(&flagTrim, "trim", 0, "trimmed index bit length (0 = estimator default; for k_tree, 0 = no trimming)")
}

func solveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Run one solver instance and verify its solutions",
		Run:   runSolve,
	}
	addInstanceFlags(cmd)
	cmd.Flags().StringVar(&flagSeed, "seed", "", "16-byte seed as 32 hex digits (empty = random)")
	cmd.Flags().StringVar(&flagAlgo, "algo", string(wagner.StrategyPlainIV),
		"strategy: plain_iv|plain_ip|ip_pr|ip_em|iv_it|iv_it_star|k_tree")
	cmd.Flags().BoolVar(&flagVerbose, "verbose", false, "log per-layer list sizes")
	return cmd
}

func runSolve(cmd *cobra.Command, args []string) {
	strategy, err := wagner.ParseStrategy(flagAlgo)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	p, err := wagner.NewParams(flagN, flagK)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	var seed wagner.Seed
	if flagSeed == "" {
		seed = wagner.RandomSeed()
	} else if seed, err = wagner.ParseSeed(flagSeed); err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	log.Printf("[Solve] %s on GBP(%d, 2^%d), seed = %s", wagner.StrategyNames[strategy], flagN, flagK, seed)
	log.Printf("[Solve] ell = %d, initial list size N = 2^%d, single-chain bound k <= %d",
		p.CollisionBits, p.CollisionBits+1, wagner.SingleChainBound(flagN))

	tracker := metrics.NewTracker()
	progress := func(lr wagner.LayerReport) {
		tracker.Record(lr.Pass, lr.Layer, lr.Entries, lr.EntryBits)
		if flagVerbose {
			log.Printf("[Solve] pass %d layer %d: %d entries, ~%.2f MB modeled",
				lr.Pass, lr.Layer, lr.Entries, metrics.ToMB(float64(lr.Entries)*float64(lr.EntryBits)))
		}
	}

	start := time.Now()
	var sols []wagner.Solution
	if strategy == wagner.StrategyKTree {
		solver := wagner.NewKTree(p, seed)
		solver.Progress = progress
		sols, err = solver.Solve(flagTrim)
	} else {
		var solver *wagner.SingleChainSolver
		solver, err = wagner.NewSingleChain(p, seed)
		if err == nil {
			solver.Progress = progress
			sols, err = solver.Solve(strategy, flagTrim)
		}
	}
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	elapsed := time.Since(start)

	if len(sols) == 0 {
		log.Printf("[Solve] No solution found after %.2fs", elapsed.Seconds())
		os.Exit(1)
	}

	perfect, secondary := 0, 0
	for _, sol := range sols {
		if sol.Kind == wagner.Perfect {
			perfect++
		} else {
			secondary++
		}
		fmt.Printf("%s: %v\n", sol.Kind, sol.Indices)
	}
	log.Printf("[Solve] %d solutions verified (%d perfect, %d secondary) in %.2fs, modeled peak %.2f MB",
		len(sols), perfect, secondary, elapsed.Seconds(), metrics.ToMB(tracker.PeakBits()))
}

func estimateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Report predicted peak memory and runtime per strategy",
		Run:   runEstimate,
	}
	addInstanceFlags(cmd)
	cmd.Flags().StringVar(&flagAlgo, "algo", "", "restrict to one strategy (default: all)")
	return cmd
}

func runEstimate(cmd *cobra.Command, args []string) {
	est, err := wagner.NewEstimator(flagN, flagK)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	var plans []wagner.Plan
	if flagAlgo != "" {
		strategy, err := wagner.ParseStrategy(flagAlgo)
		if err != nil {
			log.Fatalf("FATAL: %v", err)
		}
		plan, err := est.PlanFor(strategy, flagTrim)
		if err != nil {
			log.Fatalf("FATAL: %v", err)
		}
		plans = []wagner.Plan{plan}
	} else {
		plans = est.PlanAll()
	}

	fmt.Printf("Trade-off estimates for GBP(%d, 2^%d), T0 = k*N = 2^%.2f\n",
		flagN, flagK, math.Log2(est.BaselineT0()))
	for _, plan := range plans {
		line := fmt.Sprintf("  %-10s  peak 2^%-6.2f (%.1f MB)  runtime %.2f*T0",
			plan.Strategy, math.Log2(plan.PeakMemoryBits), metrics.ToMB(plan.PeakMemoryBits), plan.RuntimeT0)
		if plan.TrimmedLength > 0 {
			line += fmt.Sprintf("  [t=%d h1=%d h2=%d h*=%d peak layer %d]",
				plan.TrimmedLength, plan.SwitchHeight1, plan.SwitchHeight2,
				plan.ActivatingHeight, plan.PeakLayer)
		}
		fmt.Println(line)
	}
}
