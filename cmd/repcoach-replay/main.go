package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/claude/repcoach/internal/engine"
	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/storage"
	"github.com/google/uuid"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	file := flag.String("file", "", "recording JSON file (as returned by GET /api/v1/recordings/{id})")
	sqliteDir := flag.String("sqlite", "", "sqlite data directory to load the recording from")
	id := flag.String("id", "", "recording ID (with -sqlite)")
	window := flag.Int("window", engine.DefaultWindowSize, "smoothing window size in frames")
	debounceMS := flag.Int("debounce-ms", int(engine.DefaultDebounce/time.Millisecond), "minimum milliseconds between counted reps")
	all := flag.Bool("all", false, "print every frame, not only changes")
	asJSON := flag.Bool("json", false, "print snapshots as JSON lines")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("repcoach-replay", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if (*file == "") == (*sqliteDir == "") {
		fmt.Fprintf(os.Stderr, "Usage: repcoach-replay -file recording.json | -sqlite <dir> -id <uuid> [-window N] [-debounce-ms N] [-all] [-json]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *window < 1 || *debounceMS < 1 {
		fmt.Fprintln(os.Stderr, "-window and -debounce-ms must be positive")
		os.Exit(1)
	}

	rec, err := load(*file, *sqliteDir, *id)
	if err != nil {
		log.Error("loading recording", "error", err)
		os.Exit(1)
	}
	log.Info("replaying", "recording", rec.ID, "exercise", rec.Exercise, "frames", len(rec.Frames))

	opts := engine.Options{
		WindowSize: *window,
		Debounce:   time.Duration(*debounceMS) * time.Millisecond,
	}
	frames := rec.EngineFrames()
	snaps := engine.Replay(rec.Exercise, frames, opts)

	enc := json.NewEncoder(os.Stdout)
	var prev engine.Snapshot
	for i, snap := range snaps {
		changed := i == 0 || snap.RepCount != prev.RepCount || snap.Feedback != prev.Feedback
		prev = snap
		if !*all && !changed {
			continue
		}
		offset := frames[i].Time.Sub(frames[0].Time).Milliseconds()
		if *asJSON {
			enc.Encode(struct {
				Frame    int   `json:"frame"`
				OffsetMS int64 `json:"offset_ms"`
				engine.Snapshot
			}{i, offset, snap})
			continue
		}
		fmt.Printf("%6d %8dms reps=%-3d angle=%-3d %-5s %s\n",
			i, offset, snap.RepCount, snap.Angle, snap.Side, snap.Feedback)
	}

	final := 0
	if len(snaps) > 0 {
		final = snaps[len(snaps)-1].RepCount
	}
	log.Info("replay done", "reps", final, "recorded_reps", rec.RepCount)
}

func load(file, sqliteDir, id string) (*models.Recording, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}
		var rec models.Recording
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", file, err)
		}
		return &rec, nil
	}

	recID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid -id: %w", err)
	}
	db, err := storage.OpenLite(sqliteDir)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.GetRecording(context.Background(), recID)
}
