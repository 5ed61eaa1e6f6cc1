package companion

import (
	"math"
	"strings"
)

const (
	emotionStep = 0.3
	griefStep   = 0.35

	// GriefAcceptThreshold is the confidence a keyword grief reading must exceed to be attached.
	GriefAcceptThreshold = 0.3
)

// KeywordClassifier is the zero-network fast path over the keyword tables.
// It is safe for concurrent use.
type KeywordClassifier struct {
	dicts Dictionaries
}

// NewKeywordClassifier builds a classifier over dicts. Empty tables fall back to the defaults.
func NewKeywordClassifier(dicts Dictionaries) *KeywordClassifier {
	if len(dicts.Emotions) == 0 {
		dicts.Emotions = DefaultEmotionDictionary
	}
	if len(dicts.Grief) == 0 {
		dicts.Grief = DefaultGriefDictionary
	}
	return &KeywordClassifier{dicts: dicts}
}

// ClassifyEmotion returns the emotion with the most keyword hits and
// confidence min(0.3*hits, 0.9). No hits yields (neutral, 0).
func (c *KeywordClassifier) ClassifyEmotion(message string) (Emotion, float64) {
	key, hits := bestMatch(c.dicts.Emotions, message)
	if hits == 0 {
		return Neutral, 0
	}
	return key, confidence(hits, emotionStep)
}

// ClassifyGriefStage is ClassifyEmotion over the grief table with a 0.35 step.
// No hits yields (unknown, 0).
func (c *KeywordClassifier) ClassifyGriefStage(message string) (GriefStage, float64) {
	key, hits := bestMatch(c.dicts.Grief, message)
	if hits == 0 {
		return UnknownStage, 0
	}
	return key, confidence(hits, griefStep)
}

// AcceptedGriefStage returns the keyword grief stage only when its confidence
// clears GriefAcceptThreshold; otherwise the stage is absent ("").
func (c *KeywordClassifier) AcceptedGriefStage(message string) (GriefStage, float64) {
	stage, conf := c.ClassifyGriefStage(message)
	if stage == UnknownStage || conf <= GriefAcceptThreshold {
		return "", 0
	}
	return stage, conf
}

// bestMatch counts substring hits per entry and keeps the first entry with the
// strictly highest count.
func bestMatch[K ~string](d Dictionary[K], message string) (K, int) {
	var (
		best     K
		bestHits int
	)
	normalized := normalizeText(message)
	if normalized == "" {
		return best, 0
	}
	for _, entry := range d {
		hits := 0
		for _, kw := range entry.Keywords {
			if kw != "" && strings.Contains(normalized, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = entry.Key, hits
		}
	}
	return best, bestHits
}

// confidence rounds to two decimals so 3*0.3 reads as 0.9, not 0.8999999999999999.
func confidence(hits int, step float64) float64 {
	return clampScore(math.Round(float64(hits)*step*100) / 100)
}
