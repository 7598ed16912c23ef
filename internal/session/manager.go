// Package session keeps the live rep-counting sessions of the server. Each
// session owns one engine; frames for a session are serialized by its lock.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/claude/repcoach/internal/engine"
	"github.com/claude/repcoach/internal/exercise"
	"github.com/claude/repcoach/internal/metrics"
	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/pose"
	"github.com/google/uuid"
)

// ErrNotFound is returned for an unknown or already finished session.
var ErrNotFound = errors.New("session not found")

// RecordingStore persists finished recording segments.
type RecordingStore interface {
	InsertRecording(ctx context.Context, rec *models.Recording) error
}

// Config controls engine tuning and frame recording for new sessions.
type Config struct {
	Engine            engine.Options
	Record            bool
	MaxRecordedFrames int
}

// Info describes a session for API responses.
type Info struct {
	ID        uuid.UUID       `json:"id"`
	Exercise  exercise.ID     `json:"exercise"`
	Phase     engine.Phase    `json:"phase"`
	CreatedAt time.Time       `json:"created_at"`
	LastSeen  time.Time       `json:"last_seen"`
	Frames    int             `json:"frames"`
	Snapshot  engine.Snapshot `json:"snapshot"`
}

// Manager owns all live sessions.
type Manager struct {
	cfg     Config
	store   RecordingStore
	metrics *metrics.Manager
	log     *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewManager creates a Manager. store and m may be nil.
func NewManager(cfg Config, store RecordingStore, m *metrics.Manager, log *slog.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		store:    store,
		metrics:  m,
		log:      log,
		now:      time.Now,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// EngineOptions returns the engine tuning used for new sessions.
func (m *Manager) EngineOptions() engine.Options { return m.cfg.Engine }

// Session is one user's live exercise session.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	mu       sync.Mutex
	eng      *engine.Engine
	lastSeen time.Time
	frames   int
	rec      *models.Recording
	recFull  bool
}

func (s *Session) info() Info {
	st := s.eng.State()
	return Info{
		ID:        s.ID,
		Exercise:  st.Exercise,
		Phase:     st.Phase,
		CreatedAt: s.CreatedAt,
		LastSeen:  s.lastSeen,
		Frames:    s.frames,
		Snapshot:  s.eng.Snapshot(),
	}
}

// Create starts a session for ex, which must be a catalog ID.
func (m *Manager) Create(ex exercise.ID) Info {
	now := m.now()
	s := &Session{
		ID:        uuid.New(),
		CreatedAt: now,
		eng:       engine.New(ex, m.cfg.Engine),
		lastSeen:  now,
	}
	s.eng.SetClock(m.now)
	m.startRecording(s)

	m.mu.Lock()
	m.sessions[s.ID] = s
	count := len(m.sessions)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.GaugeSessions.Set(float64(count))
	}
	m.log.Info("session created", "id", s.ID, "exercise", ex)
	return s.info()
}

func (m *Manager) get(id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Get returns the current state of a session.
func (m *Manager) Get(id uuid.UUID) (Info, error) {
	s, err := m.get(id)
	if err != nil {
		return Info{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info(), nil
}

// List returns all live sessions, oldest first.
func (m *Manager) List() []Info {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()

	infos := make([]Info, 0, len(all))
	for _, s := range all {
		s.mu.Lock()
		infos = append(infos, s.info())
		s.mu.Unlock()
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Process feeds one frame to a session. A zero frame time is stamped with the
// current time. Frame times are truncated to the millisecond the recording
// keeps, so a stored segment replays to the same rep count.
func (m *Manager) Process(id uuid.UUID, f pose.Frame) (engine.Snapshot, error) {
	s, err := m.get(id)
	if err != nil {
		return engine.Snapshot{}, err
	}
	if f.Time.IsZero() {
		f.Time = m.now()
	}
	f.Time = f.Time.Truncate(time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.eng.State().Reps
	snap := s.eng.ProcessFrame(f)
	s.lastSeen = m.now()
	s.frames++
	m.record(s, f, snap)

	if m.metrics != nil {
		m.metrics.CounterFrames.WithLabelValues(outcome(snap)).Inc()
		if delta := snap.RepCount - before; delta > 0 {
			m.metrics.CounterReps.WithLabelValues(s.eng.Exercise().String()).Add(float64(delta))
		}
	}
	return snap, nil
}

// Reset restarts a session, optionally switching exercise. The current
// recording segment is flushed first.
func (m *Manager) Reset(ctx context.Context, id uuid.UUID, ex exercise.ID) (engine.Snapshot, error) {
	s, err := m.get(id)
	if err != nil {
		return engine.Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m.flush(ctx, s)
	snap := s.eng.Reset(ex)
	s.lastSeen = m.now()
	s.frames = 0
	m.startRecording(s)
	m.log.Info("session reset", "id", id, "exercise", ex)
	return snap, nil
}

// Finish removes a session, flushing its recording, and returns its final
// snapshot.
func (m *Manager) Finish(ctx context.Context, id uuid.UUID) (engine.Snapshot, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	count := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return engine.Snapshot{}, ErrNotFound
	}
	if m.metrics != nil {
		m.metrics.GaugeSessions.Set(float64(count))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m.flush(ctx, s)
	snap := s.eng.Snapshot()
	m.log.Info("session finished", "id", id, "reps", snap.RepCount)
	return snap, nil
}

// Sweep finishes sessions that received nothing for longer than maxIdle and
// returns how many were removed.
func (m *Manager) Sweep(ctx context.Context, maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	var idle []uuid.UUID
	for id, s := range m.sessions {
		s.mu.Lock()
		if s.lastSeen.Before(cutoff) {
			idle = append(idle, id)
		}
		s.mu.Unlock()
	}
	m.mu.Unlock()

	removed := 0
	for _, id := range idle {
		if _, err := m.Finish(ctx, id); err == nil {
			removed++
		}
	}
	if removed > 0 {
		m.log.Info("idle sessions swept", "count", removed)
	}
	return removed
}

// Run sweeps idle sessions every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx, maxIdle)
		}
	}
}

// FlushAll writes out the recordings of every live session without ending
// them. Used on shutdown.
func (m *Manager) FlushAll(ctx context.Context) {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()

	for _, s := range all {
		s.mu.Lock()
		m.flush(ctx, s)
		m.startRecording(s)
		s.mu.Unlock()
	}
}

func (m *Manager) startRecording(s *Session) {
	s.rec = nil
	s.recFull = false
	if !m.cfg.Record {
		return
	}
	s.rec = &models.Recording{
		ID:        uuid.New(),
		SessionID: s.ID,
		Exercise:  s.eng.Exercise(),
	}
}

// record appends f to the session's recording. Caller holds s.mu.
func (m *Manager) record(s *Session, f pose.Frame, snap engine.Snapshot) {
	if s.rec == nil || s.recFull {
		return
	}
	if m.cfg.MaxRecordedFrames > 0 && len(s.rec.Frames) >= m.cfg.MaxRecordedFrames {
		// A truncated segment still replays deterministically up to the cut.
		s.recFull = true
		m.log.Warn("recording frame limit reached", "session", s.ID, "limit", m.cfg.MaxRecordedFrames)
		return
	}
	if len(s.rec.Frames) == 0 {
		s.rec.StartedAt = f.Time
	}
	s.rec.Frames = append(s.rec.Frames, models.NewRecordedFrame(f))
	s.rec.EndedAt = f.Time
	s.rec.FrameCount = len(s.rec.Frames)
	s.rec.RepCount = snap.RepCount
}

// flush stores the current recording segment if it has frames. Caller holds s.mu.
func (m *Manager) flush(ctx context.Context, s *Session) {
	rec := s.rec
	s.rec = nil
	if rec == nil || len(rec.Frames) == 0 || m.store == nil {
		return
	}
	if err := m.store.InsertRecording(ctx, rec); err != nil {
		m.log.Error("saving recording", "session", s.ID, "recording", rec.ID, "error", err)
		return
	}
	if m.metrics != nil {
		m.metrics.CounterRecordingsSaved.Inc()
	}
	m.log.Info("recording saved", "session", s.ID, "recording", rec.ID, "frames", rec.FrameCount)
}

func outcome(snap engine.Snapshot) string {
	switch {
	case snap.Side != "":
		return metrics.OutcomeEvaluated
	case snap.Feedback == engine.FeedbackNoBody:
		return metrics.OutcomeNoBody
	default:
		return metrics.OutcomeLowConfidence
	}
}

