package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/reelcat/reelcat/internal/api"
	"github.com/reelcat/reelcat/internal/catalog"
	"github.com/reelcat/reelcat/internal/config"
	"github.com/reelcat/reelcat/internal/database"
	"github.com/reelcat/reelcat/internal/importer"
	"github.com/reelcat/reelcat/internal/listingcache"
	"github.com/reelcat/reelcat/internal/logger"
	"github.com/reelcat/reelcat/internal/maintenance"
	"github.com/reelcat/reelcat/internal/nfo"
	"github.com/reelcat/reelcat/internal/scanner"
	"github.com/reelcat/reelcat/internal/websocket"
)

func main() {
	// Optional .env for local development; a missing file is fine.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file")
	writeConfig := flag.Bool("write-config", false, "Write a default config file to the given path and exit")
	flag.Parse()

	if *writeConfig {
		path := *configPath
		if path == "" {
			path = "./reelcat.yaml"
		}
		if err := config.WriteDefault(path); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote default config to %s\n", path)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Path:   cfg.Logging.Path,
	})
	defer log.Close()

	log.Info().Str("logLevel", cfg.Logging.Level).Msg("starting reelcat")

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	store := catalog.NewStore(db.Conn(), log.Logger)
	cache := listingcache.New(store, log.Logger)

	hub := websocket.NewHub(log.Logger)
	go hub.Run()

	parser := &nfo.Parser{ActorLimit: cfg.Import.ActorLimit}
	orch := importer.NewOrchestrator(
		store,
		cache,
		scanner.LocalFS{},
		parser,
		importer.Options{EpisodeNameRatio: cfg.Import.EpisodeNameRatio},
		log.Logger,
	)
	imports := importer.NewService(orch, log.Logger)
	imports.SetForwardSink(hub)

	var maint *maintenance.Manager
	if cfg.Maintenance.PreWarmMinutes > 0 || cfg.Maintenance.RescanMinutes > 0 {
		maint, err = maintenance.New(cache, store, imports, maintenance.Options{
			WarmInterval:   time.Duration(cfg.Maintenance.PreWarmMinutes) * time.Minute,
			RescanInterval: time.Duration(cfg.Maintenance.RescanMinutes) * time.Minute,
			WatchedRoots:   cfg.Maintenance.WatchedRoots,
		}, log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create maintenance manager")
		}
		if err := maint.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start maintenance")
		}
	}

	server := api.NewServer(store, imports, hub, log.Logger)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	if maint != nil {
		if err := maint.Stop(); err != nil {
			log.Warn().Err(err).Msg("failed to stop maintenance")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to shut down HTTP server")
	}
}
