package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tl2cents/wagner-engine/internal/db"
	"github.com/tl2cents/wagner-engine/internal/metrics"
	"github.com/tl2cents/wagner-engine/internal/wagner"
	"github.com/tl2cents/wagner-engine/pkg/models"
)

type APIHandler struct {
	dbStore     *db.PostgresStore
	wsHub       *Hub
	maxListBits int
}

// Health is the liveness probe.
func (h *APIHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"persistent": h.dbStore != nil,
	})
}

// ListStrategies returns every strategy name with its description.
func (h *APIHandler) ListStrategies(c *gin.Context) {
	out := make(map[string]string, len(wagner.StrategyNames))
	for s, name := range wagner.StrategyNames {
		out[string(s)] = name
	}
	c.JSON(http.StatusOK, out)
}

// Estimate runs the trade-off estimator for (n, k), either for one
// strategy (?algo=) or for all of them.
func (h *APIHandler) Estimate(c *gin.Context) {
	n, err1 := strconv.Atoi(c.Query("n"))
	k, err2 := strconv.Atoi(c.Query("k"))
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "n and k must be integers"})
		return
	}
	est, err := wagner.NewEstimator(n, k)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if algo := c.Query("algo"); algo != "" {
		strategy, err := wagner.ParseStrategy(algo)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		trim, _ := strconv.Atoi(c.DefaultQuery("trim", "0"))
		plan, err := est.PlanFor(strategy, trim)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, plan)
		return
	}
	c.JSON(http.StatusOK, est.PlanAll())
}

// Solve runs one solver instance synchronously, streaming layer progress
// over the WebSocket hub.
func (h *APIHandler) Solve(c *gin.Context) {
	var req models.SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	p, err := wagner.NewParams(req.N, req.K)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	// Guardrail: the solver is CPU- and memory-bound in N = 2^(ell+1).
	// Refuse instances beyond the configured list budget instead of
	// letting one request exhaust the host.
	if p.CollisionBits+1 > h.maxListBits {
		log.Printf("[Solve] Instance too large (n=%d k=%d, list 2^%d > 2^%d). Refusing to run.",
			req.N, req.K, p.CollisionBits+1, h.maxListBits)
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "instance too large for the API solver; run the CLI harness instead",
		})
		return
	}

	strategy, err := wagner.ParseStrategy(req.Strategy)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var seed wagner.Seed
	if req.Seed == "" {
		seed = wagner.RandomSeed()
	} else if seed, err = wagner.ParseSeed(req.Seed); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runID := uuid.New().String()
	tracker := metrics.NewTracker()
	progress := func(lr wagner.LayerReport) {
		tracker.Record(lr.Pass, lr.Layer, lr.Entries, lr.EntryBits)
		if h.wsHub != nil {
			h.wsHub.BroadcastEvent(models.ProgressEvent{
				Type:      "layer",
				RunID:     runID,
				Strategy:  string(strategy),
				Pass:      lr.Pass,
				Layer:     lr.Layer,
				Entries:   lr.Entries,
				EntryBits: lr.EntryBits,
				TotalBits: float64(lr.Entries) * float64(lr.EntryBits),
			})
		}
	}

	var predicted float64
	if est, err := wagner.NewEstimator(req.N, req.K); err == nil {
		if plan, err := est.PlanFor(strategy, req.TrimmedLength); err == nil {
			predicted = plan.PeakMemoryBits
		}
	}

	start := time.Now()
	var sols []wagner.Solution
	if strategy == wagner.StrategyKTree {
		solver := wagner.NewKTree(p, seed)
		solver.Progress = progress
		sols, err = solver.Solve(req.TrimmedLength)
	} else {
		var solver *wagner.SingleChainSolver
		solver, err = wagner.NewSingleChain(p, seed)
		if err == nil {
			solver.Progress = progress
			sols, err = solver.Solve(strategy, req.TrimmedLength)
		}
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	run := models.RunRecord{
		ID:            runID,
		N:             req.N,
		K:             req.K,
		Seed:          seed.String(),
		Strategy:      string(strategy),
		TrimmedLength: req.TrimmedLength,
		PredictedBits: predicted,
		ObservedBits:  tracker.PeakBits(),
		DurationMs:    time.Since(start).Milliseconds(),
		CreatedAt:     start,
	}
	for _, sol := range sols {
		run.Solutions = append(run.Solutions, models.SolutionRecord{
			Kind:    sol.Kind.String(),
			Indices: sol.Indices,
		})
		switch sol.Kind {
		case wagner.Perfect:
			run.PerfectCount++
		case wagner.Secondary:
			run.SecondaryCount++
		}
	}

	if h.wsHub != nil {
		h.wsHub.BroadcastEvent(models.ProgressEvent{
			Type:      "run_complete",
			RunID:     runID,
			Strategy:  string(strategy),
			Solutions: len(run.Solutions),
			TotalBits: run.ObservedBits,
		})
	}

	if h.dbStore != nil {
		if err := h.dbStore.SaveRun(c.Request.Context(), run); err != nil {
			log.Printf("[Solve] Warning: failed to persist run %s: %v", runID, err)
		}
	}

	c.JSON(http.StatusOK, run)
}

// ListRuns returns recent persisted runs.
func (h *APIHandler) ListRuns(c *gin.Context) {
	if h.dbStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence is not configured"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := h.dbStore.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, runs)
}

// GetRun returns one persisted run with its solutions.
func (h *APIHandler) GetRun(c *gin.Context) {
	if h.dbStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence is not configured"})
		return
	}
	run, err := h.dbStore.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}
