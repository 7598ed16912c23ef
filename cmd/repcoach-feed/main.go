package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "RepCoach server URL (e.g. https://repcoach.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("REPCOACH_AUTH_API_KEY"), "API key")
	file := flag.String("file", "", "recording JSON file to feed")
	realtime := flag.Bool("realtime", false, "pace frames by their recorded timestamps")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("repcoach-feed", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *serverURL == "" || *file == "" {
		fmt.Fprintf(os.Stderr, "Usage: repcoach-feed -server <URL> -file recording.json [-realtime]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Error("reading recording", "error", err)
		os.Exit(1)
	}
	var rec models.Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Error("parsing recording", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := upload.NewClient(*serverURL, *apiKey)
	info, err := client.CreateSession(ctx, rec.Exercise)
	if err != nil {
		log.Error("creating session", "error", err)
		os.Exit(1)
	}
	log.Info("session created", "id", info.ID, "exercise", rec.Exercise, "frames", len(rec.Frames))

	lastReps := 0
	for i, f := range rec.Frames {
		if *realtime && i > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(time.Duration(f.TimeMS-rec.Frames[i-1].TimeMS) * time.Millisecond):
			}
		}
		if ctx.Err() != nil {
			log.Warn("interrupted", "sent", i)
			break
		}
		snap, err := client.SendFrame(ctx, info.ID, f)
		if err != nil {
			log.Error("sending frame", "frame", i, "error", err)
			break
		}
		if snap.RepCount != lastReps {
			log.Info("rep", "count", snap.RepCount, "frame", i, "feedback", snap.Feedback)
			lastReps = snap.RepCount
		}
	}

	final, err := client.FinishSession(context.Background(), info.ID)
	if err != nil {
		log.Error("finishing session", "error", err)
		os.Exit(1)
	}
	log.Info("done", "reps", final.RepCount, "recorded_reps", rec.RepCount)
}
