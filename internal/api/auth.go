package api

import (
	"crypto/subtle"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// ──────────────────────────────────────────────────────────────────
// Scoped Bearer Token Authentication
//
// The API has two surfaces with different risk profiles: read-only
// queries (/api/estimate, /api/strategies, /api/runs) and /api/solve,
// which pins a CPU core for the length of a solver run. Each scope has
// its own token:
//
//   API_AUTH_TOKEN     read scope; also the solve fallback
//   SOLVER_AUTH_TOKEN  solve scope; when set, a read token is no
//                      longer enough to start a run
//
// Public endpoints (WebSocket stream, health probe) are excluded.
// ──────────────────────────────────────────────────────────────────

// Scope selects which credential a route group requires.
type Scope int

const (
	// ScopeRead covers the query endpoints.
	ScopeRead Scope = iota
	// ScopeSolve covers run submission.
	ScopeSolve
)

// AuthMiddleware returns a Gin middleware enforcing the token for the
// given scope. With no token configured for the scope, all requests are
// allowed (dev mode).
// WARNING: In GIN_MODE=release, leaving both tokens unset exposes the
// solve endpoint to anyone who can reach the port. Always set at least
// API_AUTH_TOKEN in prod.
func AuthMiddleware(scope Scope) gin.HandlerFunc {
	required := os.Getenv("API_AUTH_TOKEN")
	if scope == ScopeSolve {
		if solveToken := os.Getenv("SOLVER_AUTH_TOKEN"); solveToken != "" {
			required = solveToken
		}
	}

	// Fail loudly in production if auth is not configured.
	if required == "" && os.Getenv("GIN_MODE") == "release" {
		log.Printf("[SECURITY WARNING] No auth token is set for scope %d in release mode. "+
			"Set API_AUTH_TOKEN (and optionally SOLVER_AUTH_TOKEN) to enforce authentication.", scope)
	}

	return func(c *gin.Context) {
		// No token configured for this scope: skip auth (development mode)
		if required == "" {
			c.Next()
			return
		}

		presented, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Missing or malformed Authorization header",
				"hint":  "Use: Authorization: Bearer <token>",
			})
			c.Abort()
			return
		}

		// Constant-time compare to prevent timing-based token enumeration.
		// When SOLVER_AUTH_TOKEN is set, a valid read token presented
		// against the solve scope lands here too: estimate access does not
		// grant run submission. Without it, API_AUTH_TOKEN covers both.
		if subtle.ConstantTimeCompare([]byte(presented), []byte(required)) != 1 {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Token is invalid or not valid for this scope",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// bearerToken extracts the credential from an "Authorization: Bearer x"
// header.
func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
