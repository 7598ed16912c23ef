package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/claude/repcoach/internal/exercise"
	"github.com/claude/repcoach/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// LiteDB stores recordings in a local SQLite database. It serves single-node
// deployments and the offline tools where running Postgres is overkill.
type LiteDB struct {
	db *sql.DB
}

// OpenLite opens (or creates) the SQLite database at dir/repcoach.db.
func OpenLite(dir string) (*LiteDB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "repcoach.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// A single connection serializes writers; SQLite locks the file anyway.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS recordings (
		id          TEXT PRIMARY KEY,
		session_id  TEXT NOT NULL,
		exercise    TEXT NOT NULL,
		started_at  INTEGER NOT NULL,
		ended_at    INTEGER NOT NULL,
		frame_count INTEGER NOT NULL,
		rep_count   INTEGER NOT NULL,
		frames      TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating recordings table: %w", err)
	}

	return &LiteDB{db: db}, nil
}

// Close closes the database.
func (l *LiteDB) Close() error {
	return l.db.Close()
}

// InsertRecording stores a recording with its frames.
func (l *LiteDB) InsertRecording(ctx context.Context, rec *models.Recording) error {
	frames, err := json.Marshal(rec.Frames)
	if err != nil {
		return fmt.Errorf("encoding frames: %w", err)
	}

	_, err = l.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO recordings (id, session_id, exercise, started_at, ended_at, frame_count, rep_count, frames)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.SessionID.String(), rec.Exercise.String(),
		rec.StartedAt.UnixMilli(), rec.EndedAt.UnixMilli(),
		rec.FrameCount, rec.RepCount, string(frames))
	if err != nil {
		return fmt.Errorf("inserting recording: %w", err)
	}
	return nil
}

// GetRecording loads one recording including its frames.
func (l *LiteDB) GetRecording(ctx context.Context, id uuid.UUID) (*models.Recording, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT id, session_id, exercise, started_at, ended_at, frame_count, rep_count, frames
		 FROM recordings WHERE id = ?`, id.String())

	var (
		s      liteSummary
		frames string
	)
	err := row.Scan(&s.id, &s.sessionID, &s.exercise, &s.startedAt, &s.endedAt,
		&s.frameCount, &s.repCount, &frames)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying recording: %w", err)
	}

	sum, err := s.decode()
	if err != nil {
		return nil, err
	}
	rec := &models.Recording{
		ID:         sum.ID,
		SessionID:  sum.SessionID,
		Exercise:   sum.Exercise,
		StartedAt:  sum.StartedAt,
		EndedAt:    sum.EndedAt,
		FrameCount: sum.FrameCount,
		RepCount:   sum.RepCount,
	}
	if err := json.Unmarshal([]byte(frames), &rec.Frames); err != nil {
		return nil, fmt.Errorf("decoding frames: %w", err)
	}
	return rec, nil
}

// ListRecordings returns the newest recordings first, without frames.
func (l *LiteDB) ListRecordings(ctx context.Context, limit int) ([]models.RecordingSummary, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, session_id, exercise, started_at, ended_at, frame_count, rep_count
		 FROM recordings ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recordings: %w", err)
	}
	defer rows.Close()

	result := []models.RecordingSummary{}
	for rows.Next() {
		var s liteSummary
		if err := rows.Scan(&s.id, &s.sessionID, &s.exercise, &s.startedAt, &s.endedAt,
			&s.frameCount, &s.repCount); err != nil {
			return nil, fmt.Errorf("scanning recording: %w", err)
		}
		sum, err := s.decode()
		if err != nil {
			return nil, err
		}
		result = append(result, sum)
	}
	return result, rows.Err()
}

// liteSummary holds the raw column values of a recordings row.
type liteSummary struct {
	id, sessionID, exercise string
	startedAt, endedAt      int64
	frameCount, repCount    int
}

func (s liteSummary) decode() (models.RecordingSummary, error) {
	id, err := uuid.Parse(s.id)
	if err != nil {
		return models.RecordingSummary{}, fmt.Errorf("parsing recording id: %w", err)
	}
	sessionID, err := uuid.Parse(s.sessionID)
	if err != nil {
		return models.RecordingSummary{}, fmt.Errorf("parsing session id: %w", err)
	}
	ex, err := exercise.Parse(s.exercise)
	if err != nil {
		return models.RecordingSummary{}, fmt.Errorf("recording %s: %w", id, err)
	}
	return models.RecordingSummary{
		ID:         id,
		SessionID:  sessionID,
		Exercise:   ex,
		StartedAt:  time.UnixMilli(s.startedAt).UTC(),
		EndedAt:    time.UnixMilli(s.endedAt).UTC(),
		FrameCount: s.frameCount,
		RepCount:   s.repCount,
	}, nil
}
