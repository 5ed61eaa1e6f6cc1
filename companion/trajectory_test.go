package companion

import (
	"context"
	"testing"
	"time"
)

func TestMemoryGriefLog(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log := NewMemoryGriefLog()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	stages := []GriefStage{Denial, Anger, Depression, Acceptance}
	for i, s := range stages {
		r := GriefReading{At: base.Add(time.Duration(i) * time.Hour), Stage: s, Confidence: 0.35, Source: ContextKeyword}
		if err := log.AppendGriefReading(ctx, "u1", "p1", r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := log.AppendGriefReading(ctx, "u1", "p2", GriefReading{Stage: Denial}); err != nil {
		t.Fatalf("append: %v", err)
	}

	all, _ := log.GriefTrajectory(ctx, "u1", "p1", 0)
	if len(all) != len(stages) {
		t.Fatalf("len=%d", len(all))
	}
	last2, _ := log.GriefTrajectory(ctx, "u1", "p1", 2)
	if len(last2) != 2 || last2[0].Stage != Depression || last2[1].Stage != Acceptance {
		t.Fatalf("last2=%+v", last2)
	}

	last2[0].Stage = Bargaining
	again, _ := log.GriefTrajectory(ctx, "u1", "p1", 2)
	if again[0].Stage != Depression {
		t.Fatalf("trajectory must be a copy")
	}

	other, _ := log.GriefTrajectory(ctx, "u1", "p2", 0)
	if len(other) != 1 || other[0].At.IsZero() {
		t.Fatalf("other=%+v", other)
	}
	none, _ := log.GriefTrajectory(ctx, "u2", "p1", 0)
	if len(none) != 0 {
		t.Fatalf("none=%+v", none)
	}
}

func TestReadingFromAnalysis(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if _, ok := ReadingFromAnalysis(EmotionAnalysis{Emotion: Sad}, at); ok {
		t.Fatalf("no stage must yield no reading")
	}
	if _, ok := ReadingFromAnalysis(EmotionAnalysis{GriefStage: UnknownStage}, at); ok {
		t.Fatalf("unknown stage must yield no reading")
	}
	r, ok := ReadingFromAnalysis(EmotionAnalysis{Emotion: Neutral, GriefStage: Denial, GriefScore: 0.35, Context: ContextKeyword}, at)
	want := GriefReading{At: at, Stage: Denial, Confidence: 0.35, Source: ContextKeyword}
	if !ok || r != want {
		t.Fatalf("got (%+v, %v), want %+v", r, ok, want)
	}
}
