package wagner

import "fmt"

// Strategy selects one of the memory/runtime trade-off drivers.
type Strategy string

const (
	StrategyPlainIV  Strategy = "plain_iv"
	StrategyPlainIP  Strategy = "plain_ip"
	StrategyIPPR     Strategy = "ip_pr"
	StrategyIPEM     Strategy = "ip_em"
	StrategyIVIT     Strategy = "iv_it"
	StrategyIVITStar Strategy = "iv_it_star"
	StrategyKTree    Strategy = "k_tree"
)

// StrategyNames maps every strategy to its long description, mirroring
// the reference naming.
var StrategyNames = map[Strategy]string{
	StrategyPlainIV:  "Plain Index Vector",
	StrategyPlainIP:  "Plain Index Pointer",
	StrategyIPPR:     "Index Pointer with Post Retrieval",
	StrategyIPEM:     "Index Pointer with External Memory",
	StrategyIVIT:     "Index Vector with Index Trimming",
	StrategyIVITStar: "Index Vector with Index Trimming (aggregated)",
	StrategyKTree:    "k-Tree (strict variant)",
}

// SingleChainStrategies lists the loose-variant strategies in canonical
// order.
var SingleChainStrategies = []Strategy{
	StrategyPlainIV, StrategyPlainIP, StrategyIPPR,
	StrategyIPEM, StrategyIVIT, StrategyIVITStar,
}

// ParseStrategy validates a strategy name from the CLI or API surface.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(name)
	if _, ok := StrategyNames[s]; !ok {
		return "", fmt.Errorf("unknown strategy %q", name)
	}
	return s, nil
}

// LayerReport describes one completed layer of a solver pass: the list
// size and the modeled per-entry footprint in bits. Drivers publish these
// through the Progress callback so harnesses can track peak memory
// without OS-level sampling.
type LayerReport struct {
	Pass      int
	Layer     int
	Entries   int
	EntryBits int
}
