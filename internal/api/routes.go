package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tl2cents/wagner-engine/internal/db"
)

func SetupRouter(dbStore *db.PostgresStore, hub *Hub, maxListBits int) *gin.Engine {
	r := gin.Default()

	// Enable CORS — configurable via ALLOWED_ORIGINS env var
	// Production: ALLOWED_ORIGINS=https://solver.example.net
	// Development: ALLOWED_ORIGINS=http://localhost:3000 (or leave empty for *)
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	handler := &APIHandler{
		dbStore:     dbStore,
		wsHub:       hub,
		maxListBits: maxListBits,
	}

	// Public endpoints: health probe and the progress stream.
	r.GET("/api/health", handler.Health)
	r.GET("/ws", hub.Subscribe)

	// One token budget per client; queries and solves charge different
	// costs against it, and the solve surface takes its own scope token.
	limiter := NewRateLimiter(60, 24)

	queries := r.Group("/api")
	queries.Use(AuthMiddleware(ScopeRead))
	queries.Use(limiter.Middleware(costQuery))
	{
		queries.GET("/strategies", handler.ListStrategies)
		queries.GET("/estimate", handler.Estimate)
		queries.GET("/runs", handler.ListRuns)
		queries.GET("/runs/:id", handler.GetRun)
	}

	solve := r.Group("/api")
	solve.Use(AuthMiddleware(ScopeSolve))
	solve.Use(limiter.Middleware(costSolve))
	solve.POST("/solve", handler.Solve)

	return r
}
