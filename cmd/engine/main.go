package main

import (
	"log"
	"os"

	"github.com/spf13/cast"
	"github.com/tl2cents/wagner-engine/internal/api"
	"github.com/tl2cents/wagner-engine/internal/db"
)

func main() {
	log.Println("Starting Wagner Solver Engine (Microservice: gbp-solver-analytics)...")

	// ─── Environment Configuration ──────────────────────────────────────
	// DATABASE_URL is optional: without it the engine still solves but
	// does not persist run history. Settings come from the process
	// environment only; no .env file is loaded.
	// ────────────────────────────────────────────────────────────────────

	var dbConn *db.PostgresStore
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		conn, err := db.Connect(dbURL)
		if err != nil {
			log.Printf("Warning: Failed to connect to PostgreSQL, continuing without persisting run history. Error: %v", err)
		} else {
			dbConn = conn
			defer dbConn.Close()
			if err := dbConn.InitSchema(); err != nil {
				log.Printf("Warning: DB schema init failed: %v", err)
			}
		}
	} else {
		log.Println("DATABASE_URL not set — engine running without run persistence")
	}

	// Setup WebSocket Hub for streaming per-layer solver progress
	wsHub := api.NewHub()
	go wsHub.Run()

	// The API solver refuses instances whose initial list exceeds
	// 2^SOLVER_MAX_LIST_BITS entries; bigger runs belong on the CLI.
	maxListBits := cast.ToInt(getEnvOrDefault("SOLVER_MAX_LIST_BITS", "22"))

	r := api.SetupRouter(dbConn, wsHub, maxListBits)

	port := getEnvOrDefault("PORT", "5341")

	log.Printf("Engine running on :%s (API Node: gbp-solver-analytics)\n", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// getEnvOrDefault returns the env var value or a safe default for non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
