package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/claude/repcoach/internal/exercise"
	"github.com/claude/repcoach/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InsertRecording stores a recording with its frames.
func (db *DB) InsertRecording(ctx context.Context, rec *models.Recording) error {
	frames, err := json.Marshal(rec.Frames)
	if err != nil {
		return fmt.Errorf("encoding frames: %w", err)
	}

	_, err = db.Pool.Exec(ctx,
		`INSERT INTO recordings (id, session_id, exercise, started_at, ended_at, frame_count, rep_count, frames)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.SessionID, rec.Exercise.String(), rec.StartedAt, rec.EndedAt,
		rec.FrameCount, rec.RepCount, frames)
	if err != nil {
		return fmt.Errorf("inserting recording: %w", err)
	}
	return nil
}

// GetRecording loads one recording including its frames.
func (db *DB) GetRecording(ctx context.Context, id uuid.UUID) (*models.Recording, error) {
	var (
		rec      models.Recording
		exName   string
		rawFrame []byte
	)
	err := db.Pool.QueryRow(ctx,
		`SELECT id, session_id, exercise, started_at, ended_at, frame_count, rep_count, frames
		 FROM recordings WHERE id = $1`, id).
		Scan(&rec.ID, &rec.SessionID, &exName, &rec.StartedAt, &rec.EndedAt,
			&rec.FrameCount, &rec.RepCount, &rawFrame)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying recording: %w", err)
	}

	if rec.Exercise, err = exercise.Parse(exName); err != nil {
		return nil, fmt.Errorf("recording %s: %w", id, err)
	}
	if err := json.Unmarshal(rawFrame, &rec.Frames); err != nil {
		return nil, fmt.Errorf("decoding frames: %w", err)
	}
	return &rec, nil
}

// ListRecordings returns the newest recordings first, without frames.
func (db *DB) ListRecordings(ctx context.Context, limit int) ([]models.RecordingSummary, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, session_id, exercise, started_at, ended_at, frame_count, rep_count
		 FROM recordings ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recordings: %w", err)
	}
	defer rows.Close()

	result := []models.RecordingSummary{}
	for rows.Next() {
		var (
			r      models.RecordingSummary
			exName string
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &exName, &r.StartedAt, &r.EndedAt,
			&r.FrameCount, &r.RepCount); err != nil {
			return nil, fmt.Errorf("scanning recording: %w", err)
		}
		if r.Exercise, err = exercise.Parse(exName); err != nil {
			return nil, fmt.Errorf("recording %s: %w", r.ID, err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
