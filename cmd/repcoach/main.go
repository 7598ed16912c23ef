package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/claude/repcoach/internal/config"
	repmcp "github.com/claude/repcoach/internal/mcp"
	"github.com/claude/repcoach/internal/metrics"
	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/server"
	"github.com/claude/repcoach/internal/session"
	"github.com/claude/repcoach/internal/storage"
	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// sweepInterval is how often idle sessions are looked for.
const sweepInterval = time.Minute

// recordingStore is what both storage backends provide.
type recordingStore interface {
	InsertRecording(ctx context.Context, rec *models.Recording) error
	GetRecording(ctx context.Context, id uuid.UUID) (*models.Recording, error)
	ListRecordings(ctx context.Context, limit int) ([]models.RecordingSummary, error)
	Close() error
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("RepCoach starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	reg := metrics.NewRegistry()

	// Open storage
	ctx := context.Background()
	var store recordingStore
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		dsn := cfg.Database.DSN()
		if err := storage.RunMigrations(dsn, "migrations"); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")
		if *migrateOnly {
			log.Info("migrate-only: exiting")
			return
		}

		db, err := storage.New(ctx, dsn)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		reg.MustRegister(pgxpoolprometheus.NewCollector(db.Pool, map[string]string{"db_name": cfg.Database.Name}))
		store = db
		log.Info("database connected", "driver", cfg.Database.Driver)
	case config.DriverSQLite:
		if *migrateOnly {
			log.Info("migrate-only: nothing to do for sqlite")
			return
		}
		lite, err := storage.OpenLite(cfg.Database.Path)
		if err != nil {
			log.Error("failed to open sqlite", "path", cfg.Database.Path, "error", err)
			os.Exit(1)
		}
		store = lite
		log.Info("database opened", "driver", cfg.Database.Driver, "path", cfg.Database.Path)
	}
	defer store.Close()

	mm := metrics.NewManager("repcoach", "main", reg)
	engineOpts := cfg.Engine.Options()

	sessions := session.NewManager(session.Config{
		Engine:            engineOpts,
		Record:            cfg.Sessions.Record,
		MaxRecordedFrames: cfg.Sessions.MaxRecordedFrames,
	}, store, mm, log)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sessions.Run(sweepCtx, sweepInterval, cfg.Sessions.IdleTimeout)

	// Create server
	srv := server.New(sessions, store, mm, cfg.Auth.APIKey, log)
	srv.SetMetricsHandler(reg)
	mcpSrv := repmcp.New(store, engineOpts, Version, log)
	srv.SetMCP(mcpserver.NewStreamableHTTPServer(mcpSrv))

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "plain tcp (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	stopSweep()
	sessions.FlushAll(shutdownCtx)
	log.Info("server stopped")
}
