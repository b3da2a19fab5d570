package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/david/proper-search/internal/api"
	"github.com/david/proper-search/internal/config"
	"github.com/david/proper-search/internal/db"
	"github.com/david/proper-search/internal/localstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	applied, err := db.ApplyMigrations(ctx, pool)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("Applied %d migrations", applied)

	kv, err := localstore.OpenFileKV(cfg.LocalStorePath)
	if err != nil {
		log.Fatalf("Failed to open local store: %v", err)
	}

	srv := api.NewServer(db.NewStore(pool), kv, cfg.Tunables, cfg.CORSOrigins)

	go func() {
		log.Printf("Server starting on port %s...", cfg.Port)
		if err := srv.Start(cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
