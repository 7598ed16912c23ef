package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/repcoach/internal/engine"
	"github.com/claude/repcoach/internal/exercise"
	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/pose"
	"github.com/claude/repcoach/internal/session"
	"github.com/claude/repcoach/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const defaultRecordingLimit = 50

type createSessionRequest struct {
	Exercise string `json:"exercise"`
}

type resetRequest struct {
	Exercise string `json:"exercise"`
}

// frameRequest is one landmark frame as sent by a capture client, over HTTP
// or the websocket stream. A missing timestamp means "now".
type frameRequest struct {
	TimestampMS *int64          `json:"timestamp_ms,omitempty"`
	Landmarks   []pose.Landmark `json:"landmarks"`
}

func (f frameRequest) frame() pose.Frame {
	fr := pose.Frame{Landmarks: f.Landmarks}
	if f.TimestampMS != nil {
		fr.Time = time.UnixMilli(*f.TimestampMS).UTC()
	}
	return fr
}

type replayResponse struct {
	Recording models.RecordingSummary `json:"recording"`
	RepCount  int                     `json:"rep_count"`
	Snapshots []engine.Snapshot       `json:"snapshots"`
}

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, exercise.All())
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	ex, err := exercise.Parse(req.Exercise)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, s.sessions.Create(ex))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.List())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	info, err := s.sessions.Get(id)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleFinishSession(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	snap, err := s.sessions.Finish(r.Context(), id)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req frameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	snap, err := s.sessions.Process(id, req.frame())
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	info, err := s.sessions.Get(id)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}

	// An empty body keeps the current exercise.
	var req resetRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
			return
		}
	}
	ex := info.Exercise
	if req.Exercise != "" {
		if ex, err = exercise.Parse(req.Exercise); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}

	snap, err := s.sessions.Reset(r.Context(), id, ex)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleListRecordings(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	limit := defaultRecordingLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	recs, err := s.store.ListRecordings(r.Context(), limit)
	if err != nil {
		s.log.Error("listing recordings", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetRecording(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadRecording(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadRecording(w, r)
	if !ok {
		return
	}
	snaps := engine.Replay(rec.Exercise, rec.EngineFrames(), s.sessions.EngineOptions())
	resp := replayResponse{Recording: rec.Summary(), Snapshots: snaps}
	if len(snaps) > 0 {
		resp.RepCount = snaps[len(snaps)-1].RepCount
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) loadRecording(w http.ResponseWriter, r *http.Request) (*models.Recording, bool) {
	if !s.requireStore(w) {
		return nil, false
	}
	id, ok := parseID(w, r)
	if !ok {
		return nil, false
	}
	rec, err := s.store.GetRecording(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "recording not found"})
		return nil, false
	}
	if err != nil {
		s.log.Error("loading recording", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return nil, false
	}
	return rec, true
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "recording storage is not configured"})
		return false
	}
	return true
}

func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	s.log.Error("session error", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ID"})
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
