/*
main.go - Server entry point

PURPOSE:
  Starts the interpreter billing store server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Open the repository (memory, SQLite or PostgreSQL)
  3. Create API handler with dependencies
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port      HTTP server port (default: 8080)
  -driver    sqlite3 | postgres | memory (default: sqlite3)
  -db        SQLite path or PostgreSQL DSN (default: billing.db)
             Use ":memory:" with sqlite3 for an in-memory database
  -origins   Comma-separated CORS origins
  -scenario  Demo scenario to load at startup (resets the store)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  ./server -db="./data/billing.db"
  ./server -driver=postgres -db="postgres://billing@localhost/billing?sslmode=disable"
  ./server -driver=memory -port=3000

SEE ALSO:
  - api/server.go: Router configuration
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
	"strings"
	"syscall"
	"time"

	"github.com/warp/interpreter-billing/api"
	"github.com/warp/interpreter-billing/billing"
	"github.com/warp/interpreter-billing/billing/store"
	"github.com/warp/interpreter-billing/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	driver := flag.String("driver", sqlite.DriverSQLite, "Storage driver: sqlite3, postgres or memory")
	dsn := flag.String("db", "billing.db", "SQLite database path or PostgreSQL DSN")
	origins := flag.String("origins", "", "Comma-separated allowed CORS origins")
	scenario := flag.String("scenario", "", "Demo scenario to load at startup")
	flag.Parse()

	// Initialize store
	repo, closeRepo, err := openRepository(*driver, *dsn)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer closeRepo()

	handler := api.NewHandler(repo)
	router := api.NewRouter(handler, splitOrigins(*origins))

	if *scenario != "" {
		out, err := handler.ApplyScenario(context.Background(), *scenario)
		if err != nil {
			log.Printf("[Server] Warning: failed to load scenario %s: %v", *scenario, err)
		} else {
			log.Printf("[Server] Loaded scenario %s (%d assignments)", out.Scenario, out.Assignments)
		}
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("[Server] Starting on http://localhost:%d (driver %s)", *port, *driver)
		log.Printf("[Server] API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[Server] Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("[Server] Stopped")
}

func openRepository(driver, dsn string) (billing.Repository, func(), error) {
	switch driver {
	case "memory":
		return store.NewMemory(), func() {}, nil
	case sqlite.DriverSQLite:
		s, err := sqlite.New(dsn)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		s, err := sqlite.Open(driver, dsn)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
