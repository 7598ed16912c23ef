package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/repcoach/internal/engine"
	repmcp "github.com/claude/repcoach/internal/mcp"
	"github.com/claude/repcoach/internal/storage"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "RepCoach server URL (e.g. https://repcoach.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("REPCOACH_AUTH_API_KEY"), "API key for -server")
	sqliteDir := flag.String("sqlite", "", "sqlite data directory to read recordings from")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("repcoach-mcp", Version)
		return
	}

	// stdout carries the protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var ds repmcp.DataSource
	switch {
	case *serverURL != "" && *sqliteDir == "":
		ds = repmcp.NewHTTPClient(*serverURL, *apiKey)
		log.Info("using remote data source", "server", *serverURL)
	case *sqliteDir != "" && *serverURL == "":
		lite, err := storage.OpenLite(*sqliteDir)
		if err != nil {
			log.Error("failed to open sqlite", "path", *sqliteDir, "error", err)
			os.Exit(1)
		}
		defer lite.Close()
		ds = lite
		log.Info("using local data source", "path", *sqliteDir)
	default:
		fmt.Fprintf(os.Stderr, "Usage: repcoach-mcp -server <URL> [-api-key KEY] | -sqlite <dir>\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	s := repmcp.New(ds, engine.DefaultOptions(), Version, log)
	if err := mcpserver.ServeStdio(s); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
