package companion

import (
	"context"
	"sync"
	"time"
)

// GriefReading is one observed grief stage. Readings are only ever appended;
// nothing enforces an order between stages.
type GriefReading struct {
	At         time.Time  `json:"at"`
	Stage      GriefStage `json:"stage"`
	Confidence float64    `json:"confidence"`
	Source     string     `json:"source"` // analysis context, e.g. keyword-based
}

// GriefLog is an append-only record of grief readings per user and pet.
type GriefLog interface {
	AppendGriefReading(ctx context.Context, userID, petID string, r GriefReading) error
	// GriefTrajectory returns up to limit most recent readings, oldest first.
	// A non-positive limit returns all readings.
	GriefTrajectory(ctx context.Context, userID, petID string, limit int) ([]GriefReading, error)
}

// MemoryGriefLog is an in-process GriefLog.
type MemoryGriefLog struct {
	mu       sync.RWMutex
	readings map[string][]GriefReading
}

func NewMemoryGriefLog() *MemoryGriefLog {
	return &MemoryGriefLog{readings: make(map[string][]GriefReading)}
}

func (l *MemoryGriefLog) AppendGriefReading(_ context.Context, userID, petID string, r GriefReading) error {
	if r.At.IsZero() {
		r.At = time.Now().UTC()
	}
	key := userID + "\x00" + petID
	l.mu.Lock()
	l.readings[key] = append(l.readings[key], r)
	l.mu.Unlock()
	return nil
}

func (l *MemoryGriefLog) GriefTrajectory(_ context.Context, userID, petID string, limit int) ([]GriefReading, error) {
	key := userID + "\x00" + petID
	l.mu.RLock()
	defer l.mu.RUnlock()
	all := l.readings[key]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]GriefReading(nil), all...), nil
}

// ReadingFromAnalysis turns a memorial analysis into a reading. ok is false
// when the analysis carries no grief stage.
func ReadingFromAnalysis(a EmotionAnalysis, at time.Time) (GriefReading, bool) {
	if a.GriefStage == "" || a.GriefStage == UnknownStage {
		return GriefReading{}, false
	}
	return GriefReading{At: at, Stage: a.GriefStage, Confidence: clampScore(a.GriefScore), Source: a.Context}, true
}
