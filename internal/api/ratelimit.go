package api

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ──────────────────────────────────────────────────────────────────────
// Cost-Weighted Per-Client Rate Limiter
//
// The budget logic uses the standard library only; gin appears just in
// the Middleware adapter.
//
// Solver endpoints are wildly asymmetric: an estimate answers from
// closed-form formulas in microseconds, while a solve materializes an
// N-entry hash list and holds a core for seconds. Counting requests
// would let one client saturate the host with solves at the same rate
// another pages through run history, so each client IP gets one token
// budget and every route class charges its own cost against it
// (costQuery vs costSolve below).
//
// An exhausted budget receives HTTP 429 with a Retry-After header sized
// to the cost of the refused request, not to a fixed request interval.
//
// A background goroutine evicts budgets idle for more than
// idleEvictAfter to prevent unbounded memory growth from transient IPs.
// ──────────────────────────────────────────────────────────────────────

const (
	// costQuery covers estimate, strategy and run-history lookups.
	costQuery = 1.0
	// costSolve prices one run submission; with the default budget of
	// 60 tokens/minute this sustains 5 solves per minute per client.
	costSolve = 12.0

	idleEvictAfter = 10 * time.Minute
)

// clientBudget is one IP's token balance.
type clientBudget struct {
	tokens   float64
	lastSeen time.Time
	mu       sync.Mutex
}

// RateLimiter holds the per-client budgets.
type RateLimiter struct {
	refillRate float64 // tokens added per second
	capacity   float64 // max budget a client can bank
	mu         sync.Mutex
	clients    map[string]*clientBudget
}

// NewRateLimiter creates a limiter refilling `tokensPerMin` tokens per
// minute per client, banked up to `capacity` tokens (so a fresh client
// can burst capacity/costSolve runs back to back).
func NewRateLimiter(tokensPerMin, capacity int) *RateLimiter {
	rl := &RateLimiter{
		refillRate: float64(tokensPerMin) / 60.0,
		capacity:   float64(capacity),
		clients:    make(map[string]*clientBudget),
	}
	go rl.evictLoop()
	return rl
}

// charge tries to spend `cost` tokens from the client's budget. On
// refusal it returns how long the client must wait for the budget to
// cover this cost.
func (rl *RateLimiter) charge(ip string, cost float64) (bool, time.Duration) {
	rl.mu.Lock()
	budget, ok := rl.clients[ip]
	if !ok {
		budget = &clientBudget{tokens: rl.capacity}
		rl.clients[ip] = budget
	}
	rl.mu.Unlock()

	budget.mu.Lock()
	defer budget.mu.Unlock()

	now := time.Now()
	// Refill from elapsed time since the last charge attempt.
	if !budget.lastSeen.IsZero() {
		budget.tokens += now.Sub(budget.lastSeen).Seconds() * rl.refillRate
		if budget.tokens > rl.capacity {
			budget.tokens = rl.capacity
		}
	}
	budget.lastSeen = now

	if budget.tokens >= cost {
		budget.tokens -= cost
		return true, 0
	}

	deficit := cost - budget.tokens
	retryAfter := time.Duration(deficit/rl.refillRate*1000) * time.Millisecond
	return false, retryAfter
}

// Middleware returns a Gin handler charging `cost` tokens per request.
func (rl *RateLimiter) Middleware(cost float64) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := rl.charge(c.ClientIP(), cost)
		if !allowed {
			c.Header("Retry-After", retryAfter.String())
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":      "Rate limit exceeded",
				"retryAfter": retryAfter.String(),
				"hint":       fmt.Sprintf("this endpoint costs %.0f of your token budget per request", cost),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// evictLoop removes stale client budgets every idleEvictAfter.
func (rl *RateLimiter) evictLoop() {
	ticker := time.NewTicker(idleEvictAfter)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-idleEvictAfter)
		rl.mu.Lock()
		for ip, budget := range rl.clients {
			budget.mu.Lock()
			idle := budget.lastSeen.Before(cutoff)
			budget.mu.Unlock()
			if idle {
				delete(rl.clients, ip)
			}
		}
		rl.mu.Unlock()
	}
}
