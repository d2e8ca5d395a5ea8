// PHI de-identification gateway.
//
// HTTP service that redacts PHI from text, bucketizes quasi-identifiers,
// and strips image metadata before any patient data reaches the cloud AI
// provider.
//
// Usage:
//
//	gateway --config /etc/acoustixpulse/gateway.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/acoustixpulse/gateway/internal/anonymize"
	"github.com/acoustixpulse/gateway/internal/audit"
	"github.com/acoustixpulse/gateway/internal/config"
	"github.com/acoustixpulse/gateway/internal/provider"
	"github.com/acoustixpulse/gateway/internal/sdnotify"
	"github.com/acoustixpulse/gateway/internal/server"
)

var (
	flagConfig = flag.String("config", "gateway.yaml", "path to YAML config")
	flagPort   = flag.Int("port", 0, "HTTP listen port (overrides config)")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.LoadConfig(*flagConfig)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *flagPort != 0 {
		cfg.ListenPort = *flagPort
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Audit sink: Postgres when configured, stdlib log otherwise.
	var auditor anonymize.Auditor
	if cfg.AuditDatabaseURL != "" {
		store, err := audit.NewStore(ctx, cfg.AuditDatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to audit database: %v", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to ensure audit schema: %v", err)
		}
		log.Println("Audit trail: PostgreSQL")
		auditor = store
	} else {
		log.Println("Audit trail: log only (no database configured)")
	}

	anon := anonymize.New(auditor)
	budget := provider.NewBudgetTracker(cfg.Budget)
	client := provider.NewClient(cfg.Provider, budget)

	srv := server.New(cfg, client, anon)
	srv.SetBudgetStats(client.BudgetStats)

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ListenPort),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Shutdown signal: %v", sig)
		sdnotify.Stopping()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	sdnotify.Ready()
	sdnotify.Status(fmt.Sprintf("serving on :%d, model %s", cfg.ListenPort, cfg.Provider.Model))

	log.Printf("Gateway listening on :%d (model %s)", cfg.ListenPort, cfg.Provider.Model)
	if err := httpSrv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
	log.Println("Server stopped")
}
