package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/claude/repcoach/internal/engine"
	"github.com/claude/repcoach/internal/exercise"
	"github.com/claude/repcoach/internal/metrics"
	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/pose"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var t0 = time.Date(2026, 4, 2, 7, 0, 0, 0, time.UTC)

type memStore struct {
	mu   sync.Mutex
	recs []*models.Recording
}

func (s *memStore) InsertRecording(_ context.Context, rec *models.Recording) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return nil
}

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// squatFrame builds a landmark set with a knee angle of deg on both sides.
func squatFrame(deg float64, at time.Time) pose.Frame {
	def := exercise.Lookup(exercise.Squat)
	lms := make([]pose.Landmark, pose.NumLandmarks)
	phi := (-90 + deg) * math.Pi / 180
	pts := []pose.Landmark{
		{X: 0.5, Y: 0.3, Visibility: 0.9},
		{X: 0.5, Y: 0.5, Visibility: 0.9},
		{X: 0.5 + 0.2*math.Cos(phi), Y: 0.5 + 0.2*math.Sin(phi), Visibility: 0.9},
	}
	for i := range pts {
		lms[def.Left[i]] = pts[i]
		lms[def.Right[i]] = pts[i]
	}
	return pose.Frame{Landmarks: lms, Time: at}
}

func newTestManager(record bool, store RecordingStore, m *metrics.Manager) *Manager {
	mgr := NewManager(Config{
		Engine:            engine.Options{WindowSize: 1},
		Record:            record,
		MaxRecordedFrames: 100,
	}, store, m, quietLog())
	mgr.now = func() time.Time { return t0 }
	return mgr
}

func TestCreateAndProcess(t *testing.T) {
	m := newTestManager(false, nil, nil)
	info := m.Create(exercise.Squat)
	if info.Snapshot.Feedback != "Stand in frame (Side View)" || info.Phase != engine.PhaseUp {
		t.Errorf("create info = %+v", info)
	}

	snap, err := m.Process(info.ID, squatFrame(170, t0))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if snap.Feedback != "Go down..." {
		t.Errorf("feedback = %q", snap.Feedback)
	}
	snap, _ = m.Process(info.ID, squatFrame(90, t0.Add(2*time.Second)))
	if snap.RepCount != 1 {
		t.Errorf("reps = %d, want 1", snap.RepCount)
	}

	got, err := m.Get(info.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Frames != 2 || got.Phase != engine.PhaseDown || got.Snapshot.RepCount != 1 {
		t.Errorf("info = %+v", got)
	}
}

func TestUnknownSession(t *testing.T) {
	m := newTestManager(false, nil, nil)
	id := uuid.New()
	if _, err := m.Get(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get err = %v", err)
	}
	if _, err := m.Process(id, pose.Frame{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Process err = %v", err)
	}
	if _, err := m.Reset(context.Background(), id, exercise.Curl); !errors.Is(err, ErrNotFound) {
		t.Errorf("Reset err = %v", err)
	}
	if _, err := m.Finish(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Finish err = %v", err)
	}
}

// TestResetFlushesRecording verifies an exercise switch stores the previous
// segment and starts a fresh one.
func TestResetFlushesRecording(t *testing.T) {
	store := &memStore{}
	m := newTestManager(true, store, nil)
	info := m.Create(exercise.Squat)

	m.Process(info.ID, squatFrame(170, t0))
	m.Process(info.ID, squatFrame(90, t0.Add(2*time.Second)))

	snap, err := m.Reset(context.Background(), info.ID, exercise.Curl)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if snap.RepCount != 0 || snap.Feedback != "Hold weights (Side View)" {
		t.Errorf("reset snapshot = %+v", snap)
	}
	if len(store.recs) != 1 {
		t.Fatalf("recordings = %d, want 1", len(store.recs))
	}
	rec := store.recs[0]
	if rec.Exercise != exercise.Squat || rec.FrameCount != 2 || rec.RepCount != 1 || rec.SessionID != info.ID {
		t.Errorf("recording = %+v", rec.Summary())
	}
	if !rec.StartedAt.Equal(t0) || !rec.EndedAt.Equal(t0.Add(2*time.Second)) {
		t.Errorf("recording span = %v..%v", rec.StartedAt, rec.EndedAt)
	}

	// Replaying the stored frames reproduces the live result.
	snaps := engine.Replay(rec.Exercise, rec.EngineFrames(), engine.Options{WindowSize: 1})
	if snaps[len(snaps)-1].RepCount != 1 {
		t.Errorf("replay reps = %d, want 1", snaps[len(snaps)-1].RepCount)
	}

	// Nothing recorded since the reset, so finishing stores nothing new.
	if _, err := m.Finish(context.Background(), info.ID); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if len(store.recs) != 1 {
		t.Errorf("recordings = %d, want 1", len(store.recs))
	}
	if _, err := m.Get(info.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("session still present after Finish")
	}
}

func TestRecordingLimit(t *testing.T) {
	store := &memStore{}
	m := newTestManager(true, store, nil)
	m.cfg.MaxRecordedFrames = 3
	info := m.Create(exercise.Squat)
	for i := 0; i < 5; i++ {
		m.Process(info.ID, squatFrame(170, t0.Add(time.Duration(i)*time.Second)))
	}
	m.Finish(context.Background(), info.ID)
	if len(store.recs) != 1 || store.recs[0].FrameCount != 3 {
		t.Fatalf("recordings = %+v", store.recs)
	}
}

func TestSweep(t *testing.T) {
	store := &memStore{}
	m := newTestManager(true, store, nil)
	stale := m.Create(exercise.Squat)
	m.Process(stale.ID, squatFrame(170, t0))

	m.now = func() time.Time { return t0.Add(20 * time.Minute) }
	fresh := m.Create(exercise.Neck)

	if n := m.Sweep(context.Background(), 10*time.Minute); n != 1 {
		t.Fatalf("swept = %d, want 1", n)
	}
	if _, err := m.Get(stale.ID); !errors.Is(err, ErrNotFound) {
		t.Error("stale session survived sweep")
	}
	if _, err := m.Get(fresh.ID); err != nil {
		t.Errorf("fresh session removed: %v", err)
	}
	if len(store.recs) != 1 {
		t.Errorf("recordings = %d, want 1", len(store.recs))
	}
	if list := m.List(); len(list) != 1 || list[0].ID != fresh.ID {
		t.Errorf("List = %+v", list)
	}
}

func TestMetrics(t *testing.T) {
	mm := metrics.NewTestManager()
	m := newTestManager(false, nil, mm)
	info := m.Create(exercise.Squat)

	m.Process(info.ID, squatFrame(170, t0))
	m.Process(info.ID, squatFrame(90, t0.Add(2*time.Second)))
	m.Process(info.ID, pose.Frame{Time: t0.Add(3 * time.Second)})

	if got := testutil.ToFloat64(mm.CounterFrames.WithLabelValues(metrics.OutcomeEvaluated)); got != 2 {
		t.Errorf("evaluated frames = %v, want 2", got)
	}
	if got := testutil.ToFloat64(mm.CounterFrames.WithLabelValues(metrics.OutcomeNoBody)); got != 1 {
		t.Errorf("no-body frames = %v, want 1", got)
	}
	if got := testutil.ToFloat64(mm.CounterReps.WithLabelValues("squat")); got != 1 {
		t.Errorf("squat reps = %v, want 1", got)
	}
	if got := testutil.ToFloat64(mm.GaugeSessions); got != 1 {
		t.Errorf("sessions gauge = %v, want 1", got)
	}
}

// TestConcurrentProcess verifies frames from several goroutines are
// serialized per session.
func TestConcurrentProcess(t *testing.T) {
	m := newTestManager(false, nil, nil)
	info := m.Create(exercise.Squat)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				m.Process(info.ID, squatFrame(170, t0))
			}
		}()
	}
	wg.Wait()

	got, _ := m.Get(info.ID)
	if got.Frames != 400 {
		t.Errorf("frames = %d, want 400", got.Frames)
	}
}

// TestServerStampedRecordingReplays verifies that frames stamped by the
// manager with sub-millisecond times replay to the live rep count.
func TestServerStampedRecordingReplays(t *testing.T) {
	store := &memStore{}
	m := newTestManager(true, store, nil)
	info := m.Create(exercise.Squat)

	steps := []struct {
		offset time.Duration
		deg    float64
	}{
		{0, 170},
		{400 * time.Microsecond, 90},
		{600 * time.Millisecond, 170},
		{1000*time.Millisecond + 900*time.Microsecond, 90},
	}
	var live engine.Snapshot
	for _, st := range steps {
		at := t0.Add(st.offset)
		m.now = func() time.Time { return at }
		f := squatFrame(st.deg, time.Time{})
		var err error
		if live, err = m.Process(info.ID, f); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}
	if _, err := m.Finish(context.Background(), info.ID); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if len(store.recs) != 1 {
		t.Fatalf("recordings = %d, want 1", len(store.recs))
	}
	rec := store.recs[0]
	// The second descent lands exactly 1000 ms after the first once stamped.
	if live.RepCount != 1 {
		t.Errorf("live reps = %d, want 1", live.RepCount)
	}

	snaps := engine.Replay(rec.Exercise, rec.EngineFrames(), m.EngineOptions())
	replayed := snaps[len(snaps)-1].RepCount
	if replayed != live.RepCount || rec.RepCount != live.RepCount {
		t.Errorf("live reps = %d, stored = %d, replayed = %d", live.RepCount, rec.RepCount, replayed)
	}
}
