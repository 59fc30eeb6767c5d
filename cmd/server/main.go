/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the reward engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (optional) and parse command-line flags
  2. Initialize SQLite store
  3. Apply seed file if one was given
  4. Create API handler with dependencies
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080, env PORT)
  -db      SQLite database path (default: rewards.db, env DATABASE_PATH)
           Use ":memory:" for in-memory database
  -seed    YAML seed file with cards and transactions (env SEED_FILE)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/rewards.db"

  # Run in-memory with demo cards loaded
  ./server -db=":memory:" -seed="./seed/demo.yaml"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cardwise/reward-engine/api"
	"github.com/cardwise/reward-engine/factory"
	"github.com/cardwise/reward-engine/store/sqlite"
)

func main() {
	// .env is optional; flags override it.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DATABASE_PATH", "rewards.db"), "SQLite database path")
	seedPath := flag.String("seed", envStr("SEED_FILE", ""), "YAML seed file with cards and transactions")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Seed cards and transactions
	if *seedPath != "" {
		seed, err := factory.LoadSeed(*seedPath)
		if err != nil {
			log.Fatalf("Failed to load seed file: %v", err)
		}
		if err := factory.ApplySeed(context.Background(), store, seed); err != nil {
			log.Fatalf("Failed to apply seed file: %v", err)
		}
		log.Printf("Seeded %d cards and %d transactions from %s",
			len(seed.Cards), len(seed.Transactions), *seedPath)
	}

	// Initialize handler and router
	handler := api.NewHandler(store)
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
