package mcp

import (
	"log/slog"

	"github.com/claude/repcoach/internal/engine"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered. opts is
// the engine tuning replays run with unless a tool call overrides it.
func New(ds DataSource, opts engine.Options, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("RepCoach", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("RepCoach rep-counting server. Inspect the exercise catalog, list stored landmark recordings, and replay them through the rep counter to see when repetitions were counted and what feedback was given."),
	)

	h := &handlers{ds: ds, opts: opts, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolListExercises, Handler: h.listExercises},
		server.ServerTool{Tool: toolListRecordings, Handler: h.listRecordings},
		server.ServerTool{Tool: toolGetRecordingSummary, Handler: h.getRecordingSummary},
		server.ServerTool{Tool: toolReplayRecording, Handler: h.replayRecording},
	)

	s.AddResources(
		server.ServerResource{Resource: resExerciseCatalog, Handler: h.exerciseCatalog},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds   DataSource
	opts engine.Options
	log  *slog.Logger
}

var resExerciseCatalog = mcp.NewResource(
	"repcoach://exercise_catalog",
	"Exercise Catalog",
	mcp.WithResourceDescription("Every supported exercise with its landmark triplets, angle thresholds and feedback strings"),
	mcp.WithMIMEType("application/json"),
)
