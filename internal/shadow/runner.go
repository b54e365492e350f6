package shadow

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tl2cents/wagner-engine/internal/wagner"
)

// Runner executes a shadow strategy alongside the primary one on the same
// (n, k, seed) instance and compares their perfect solution sets. Every
// memory-reduction strategy must produce the same perfect sets for a
// fixed seed, so any divergence indicates a kernel regression and is
// logged (and optionally persisted) before it can reach callers.
type Runner struct {
	pool    *pgxpool.Pool
	primary wagner.Strategy
	shadow  wagner.Strategy
}

// Result captures the diff between the primary and shadow runs.
type Result struct {
	Primary         wagner.Strategy `json:"primary"`
	Shadow          wagner.Strategy `json:"shadow"`
	PrimaryPerfect  int             `json:"primaryPerfect"`
	ShadowPerfect   int             `json:"shadowPerfect"`
	Diverged        bool            `json:"diverged"`
	MissingInShadow []string        `json:"missingInShadow,omitempty"`
	ExtraInShadow   []string        `json:"extraInShadow,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// NewRunner creates a runner comparing primary vs shadow strategies.
// pool may be nil; divergences are then only logged.
func NewRunner(pool *pgxpool.Pool, primary, shadow wagner.Strategy) *Runner {
	return &Runner{pool: pool, primary: primary, shadow: shadow}
}

// Run solves the instance with both strategies and diffs the perfect
// solution sets.
func (r *Runner) Run(ctx context.Context, p wagner.Params, seed wagner.Seed, trim int) (*Result, error) {
	primarySolver, err := wagner.NewSingleChain(p, seed)
	if err != nil {
		return nil, err
	}
	primarySols, err := primarySolver.Solve(r.primary, trim)
	if err != nil {
		return nil, err
	}

	shadowSolver, err := wagner.NewSingleChain(p, seed)
	if err != nil {
		return nil, err
	}
	shadowSols, err := shadowSolver.Solve(r.shadow, trim)
	if err != nil {
		return nil, err
	}

	primarySet := wagner.PerfectSet(primarySols)
	shadowSet := wagner.PerfectSet(shadowSols)

	result := &Result{
		Primary:        r.primary,
		Shadow:         r.shadow,
		PrimaryPerfect: len(primarySet),
		ShadowPerfect:  len(shadowSet),
		CreatedAt:      time.Now(),
	}
	for key := range primarySet {
		if _, ok := shadowSet[key]; !ok {
			result.MissingInShadow = append(result.MissingInShadow, key)
		}
	}
	for key := range shadowSet {
		if _, ok := primarySet[key]; !ok {
			result.ExtraInShadow = append(result.ExtraInShadow, key)
		}
	}
	result.Diverged = len(result.MissingInShadow) > 0 || len(result.ExtraInShadow) > 0

	if result.Diverged {
		log.Printf("[Shadow] DIVERGENCE on n=%d k=%d seed=%s: %s found %d perfect, %s found %d perfect",
			p.N, p.K, seed, r.primary, result.PrimaryPerfect, r.shadow, result.ShadowPerfect)
	}

	if r.pool != nil {
		if err := r.persist(ctx, p, seed, result); err != nil {
			return result, err
		}
	}
	return result, nil
}

// persist writes the comparison to the shadow_results table.
func (r *Runner) persist(ctx context.Context, p wagner.Params, seed wagner.Seed, result *Result) error {
	sql := `INSERT INTO shadow_results
		(n, k, seed, primary_strategy, shadow_strategy, primary_count, shadow_count, diverged, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, sql,
		p.N, p.K, seed.String(),
		string(result.Primary), string(result.Shadow),
		result.PrimaryPerfect, result.ShadowPerfect,
		result.Diverged, result.CreatedAt,
	)
	return err
}

// DivergenceRate reports the fraction of persisted comparisons that
// diverged, for drift monitoring.
func (r *Runner) DivergenceRate(ctx context.Context) (total int, diverged int, err error) {
	sql := `SELECT COUNT(*), COUNT(*) FILTER (WHERE diverged) FROM shadow_results`
	err = r.pool.QueryRow(ctx, sql).Scan(&total, &diverged)
	return total, diverged, err
}
