// Package companion classifies the emotional state behind a user's message to a pet
// persona, selects the tone policy for the reply, and proposes long-term memories
// about the pet-owner relationship.
package companion

// Emotion is the per-message emotional reading.
type Emotion string

const (
	Happy    Emotion = "happy"
	Sad      Emotion = "sad"
	Anxious  Emotion = "anxious"
	Angry    Emotion = "angry"
	Grateful Emotion = "grateful"
	Lonely   Emotion = "lonely"
	Peaceful Emotion = "peaceful"
	Excited  Emotion = "excited"
	Neutral  Emotion = "neutral"
)

// Emotions lists every emotion, neutral last.
var Emotions = []Emotion{Happy, Sad, Anxious, Angry, Grateful, Lonely, Peaceful, Excited, Neutral}

// Valid reports whether e is one of the known emotions.
func (e Emotion) Valid() bool {
	for _, x := range Emotions {
		if e == x {
			return true
		}
	}
	return false
}

// GriefStage is a grief-support label. Each message is read independently;
// there is no enforced progression between stages.
type GriefStage string

const (
	Denial       GriefStage = "denial"
	Anger        GriefStage = "anger"
	Bargaining   GriefStage = "bargaining"
	Depression   GriefStage = "depression"
	Acceptance   GriefStage = "acceptance"
	UnknownStage GriefStage = "unknown"
)

// GriefStages lists every stage, unknown last.
var GriefStages = []GriefStage{Denial, Anger, Bargaining, Depression, Acceptance, UnknownStage}

func (g GriefStage) Valid() bool {
	for _, x := range GriefStages {
		if g == x {
			return true
		}
	}
	return false
}

// Mode selects the persona variant.
type Mode string

const (
	DailyMode    Mode = "daily"
	MemorialMode Mode = "memorial"
)

// ParseMode maps anything other than "memorial" to the daily mode.
func ParseMode(s string) Mode {
	if Mode(s) == MemorialMode {
		return MemorialMode
	}
	return DailyMode
}

// MaxScore caps every confidence so a reading never claims certainty.
const MaxScore = 0.9

// Analysis context labels.
const (
	ContextKeyword         = "keyword-based"
	ContextKeywordFallback = "keyword-based (fallback)"
	ContextModel           = "ai-analysis"
)

// EmotionAnalysis is the classification of one message.
type EmotionAnalysis struct {
	Emotion    Emotion    `json:"emotion"`
	Score      float64    `json:"score"`
	Context    string     `json:"context"`
	GriefStage GriefStage `json:"griefStage,omitempty"`
	GriefScore float64    `json:"griefScore,omitempty"`

	// Degraded is set when the model-backed refiner was needed but failed
	// and the keyword reading was used instead.
	Degraded bool `json:"degraded,omitempty"`
}

// MemoryType categorizes an extracted memory.
type MemoryType string

const (
	PreferenceMemory   MemoryType = "preference"
	EpisodeMemory      MemoryType = "episode"
	HealthMemory       MemoryType = "health"
	PersonalityMemory  MemoryType = "personality"
	RelationshipMemory MemoryType = "relationship"
	PlaceMemory        MemoryType = "place"
	RoutineMemory      MemoryType = "routine"
	ScheduleMemory     MemoryType = "schedule"
)

var MemoryTypes = []MemoryType{
	PreferenceMemory, EpisodeMemory, HealthMemory, PersonalityMemory,
	RelationshipMemory, PlaceMemory, RoutineMemory, ScheduleMemory,
}

func (m MemoryType) Valid() bool {
	for _, x := range MemoryTypes {
		if m == x {
			return true
		}
	}
	return false
}

// Recurrence of a time-bound memory.
type Recurrence string

const (
	Daily   Recurrence = "daily"
	Weekly  Recurrence = "weekly"
	Monthly Recurrence = "monthly"
	Once    Recurrence = "once"
)

func (r Recurrence) Valid() bool {
	switch r {
	case Daily, Weekly, Monthly, Once:
		return true
	}
	return false
}

// TimeInfo anchors a memory to a clock time and recurrence.
type TimeInfo struct {
	Type       Recurrence `json:"type"`
	Time       string     `json:"time,omitempty"` // HH:MM
	DayOfWeek  *int       `json:"dayOfWeek,omitempty"`
	DayOfMonth *int       `json:"dayOfMonth,omitempty"`
}

// PetMemory is a durable fact proposed for long-term storage.
type PetMemory struct {
	ID         string     `json:"id,omitempty"`
	PetID      string     `json:"petId"`
	UserID     string     `json:"userId"`
	MemoryType MemoryType `json:"memoryType"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Importance int        `json:"importance"`
	TimeInfo   *TimeInfo  `json:"timeInfo,omitempty"`
}

func clampScore(v float64) float64 {
	if v != v || v < 0 { // NaN or negative
		return 0
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}
