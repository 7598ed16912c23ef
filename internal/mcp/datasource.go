package mcp

import (
	"context"

	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/storage"
	"github.com/google/uuid"
)

// DataSource abstracts recording storage for MCP tools. *storage.DB,
// *storage.LiteDB (local) and HTTPClient (remote via REST API) satisfy it.
type DataSource interface {
	ListRecordings(ctx context.Context, limit int) ([]models.RecordingSummary, error)
	GetRecording(ctx context.Context, id uuid.UUID) (*models.Recording, error)
}

var (
	_ DataSource = (*storage.DB)(nil)
	_ DataSource = (*storage.LiteDB)(nil)
)
