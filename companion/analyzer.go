package companion

import (
	"context"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/theimaginaryfoundation/pet-companion/companion/metrics"
)

// DefaultConfidenceGate is the keyword confidence at or above which the refiner is skipped.
const DefaultConfidenceGate = 0.6

// EmotionRefiner is the model-backed second opinion used below the confidence gate.
type EmotionRefiner interface {
	Refine(ctx context.Context, message string, memorial bool) (EmotionAnalysis, error)
}

// HybridAnalyzer runs the keyword classifier first and only pays for the
// refiner when the keyword reading is not decisive. It holds no per-call state.
type HybridAnalyzer struct {
	keywords *KeywordClassifier
	refiner  EmotionRefiner
	gate     float64
	logger   zerolog.Logger
}

// AnalyzerOption configures a HybridAnalyzer.
type AnalyzerOption func(*HybridAnalyzer)

// WithConfidenceGate overrides DefaultConfidenceGate. Values outside (0, 1] are ignored.
func WithConfidenceGate(gate float64) AnalyzerOption {
	return func(a *HybridAnalyzer) {
		if gate > 0 && gate <= 1 {
			a.gate = gate
		}
	}
}

func WithAnalyzerLogger(l zerolog.Logger) AnalyzerOption {
	return func(a *HybridAnalyzer) { a.logger = l }
}

// NewHybridAnalyzer builds an analyzer. A nil refiner makes every call keyword-only.
func NewHybridAnalyzer(keywords *KeywordClassifier, refiner EmotionRefiner, opts ...AnalyzerOption) *HybridAnalyzer {
	if keywords == nil {
		keywords = NewKeywordClassifier(DefaultDictionaries())
	}
	a := &HybridAnalyzer{
		keywords: keywords,
		refiner:  refiner,
		gate:     DefaultConfidenceGate,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze always returns a classification. Refiner failures degrade to the
// keyword reading with Degraded set; they are logged, never returned.
func (a *HybridAnalyzer) Analyze(ctx context.Context, message string, memorial bool) EmotionAnalysis {
	fast := a.fastPath(message, memorial)
	if fast.Score >= a.gate {
		metrics.Classifications.WithLabelValues(metrics.PathKeyword).Inc()
		return fast
	}
	if a.refiner == nil {
		metrics.Classifications.WithLabelValues(metrics.PathOffline).Inc()
		return fast
	}

	refined, err := a.refiner.Refine(ctx, message, memorial)
	if err != nil {
		kind := ErrorKindOf(err)
		if kind == "" {
			kind = KindTransport
		}
		metrics.Classifications.WithLabelValues(metrics.PathFallback).Inc()
		metrics.CapabilityFailures.WithLabelValues(metrics.CapabilityRefiner, string(kind)).Inc()
		a.logger.Warn().
			Err(err).
			Str("op", "analyze").
			Str("kind", string(kind)).
			Int("message_runes", utf8.RuneCountInString(message)).
			Msg("emotion refiner failed; using keyword reading")
		fast.Context = ContextKeywordFallback
		fast.Degraded = true
		return fast
	}

	metrics.Classifications.WithLabelValues(metrics.PathModel).Inc()
	return merge(fast, refined)
}

// AnalyzeOffline is the keyword-only reading, used when the external capability
// must not be called (for example when the daily quota is exhausted).
func (a *HybridAnalyzer) AnalyzeOffline(message string, memorial bool) EmotionAnalysis {
	metrics.Classifications.WithLabelValues(metrics.PathOffline).Inc()
	return a.fastPath(message, memorial)
}

func (a *HybridAnalyzer) fastPath(message string, memorial bool) EmotionAnalysis {
	emotion, conf := a.keywords.ClassifyEmotion(message)
	out := EmotionAnalysis{Emotion: emotion, Score: conf, Context: ContextKeyword}
	if memorial {
		out.GriefStage, out.GriefScore = a.keywords.AcceptedGriefStage(message)
	}
	return out
}

// merge prefers the refiner's reading field by field and keeps the keyword
// reading wherever the refiner produced nothing usable.
func merge(fast, refined EmotionAnalysis) EmotionAnalysis {
	out := EmotionAnalysis{
		Emotion:    refined.Emotion,
		Score:      clampScore(refined.Score),
		Context:    refined.Context,
		GriefStage: refined.GriefStage,
		GriefScore: refined.GriefScore,
	}
	if out.Emotion == "" {
		out.Emotion = fast.Emotion
		out.Score = fast.Score
	}
	if out.Context == "" {
		out.Context = ContextModel
	}
	if out.GriefStage == "" {
		out.GriefStage = fast.GriefStage
		out.GriefScore = fast.GriefScore
	}
	return out
}
