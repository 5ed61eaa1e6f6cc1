package companion

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/theimaginaryfoundation/pet-companion/companion/fileutils"
	"github.com/theimaginaryfoundation/pet-companion/companion/metrics"
	"github.com/theimaginaryfoundation/pet-companion/companion/provider"
)

// Capability is an external structured-output text service.
// *provider.OpenAI satisfies it; tests use fakes.
type Capability interface {
	Invoke(ctx context.Context, req provider.Request) (string, error)
}

const (
	defaultClassifyModel     = "gpt-4o-mini"
	defaultRefineTimeout     = 8 * time.Second
	defaultRefineMaxTokens   = 200
	defaultRefineTemperature = 0.3
)

type emotionResponse struct {
	Emotion string  `json:"emotion" jsonschema:"enum=happy,enum=sad,enum=anxious,enum=angry,enum=grateful,enum=lonely,enum=peaceful,enum=excited,enum=neutral"`
	Score   float64 `json:"score"`
	Context string  `json:"context"`
}

type memorialEmotionResponse struct {
	Emotion    string  `json:"emotion" jsonschema:"enum=happy,enum=sad,enum=anxious,enum=angry,enum=grateful,enum=lonely,enum=peaceful,enum=excited,enum=neutral"`
	Score      float64 `json:"score"`
	Context    string  `json:"context"`
	GriefStage string  `json:"griefStage" jsonschema:"enum=denial,enum=anger,enum=bargaining,enum=depression,enum=acceptance,enum=unknown"`
	GriefScore float64 `json:"griefScore"`
}

var (
	emotionSchema         = provider.GenerateSchema[emotionResponse]()
	memorialEmotionSchema = provider.GenerateSchema[memorialEmotionResponse]()
)

// rawEmotion uses pointers so missing fields can be told apart from zero values.
type rawEmotion struct {
	Emotion    *string  `json:"emotion"`
	Score      *float64 `json:"score"`
	Context    *string  `json:"context"`
	GriefStage *string  `json:"griefStage"`
	GriefScore *float64 `json:"griefScore"`
}

// Refiner asks an external model to classify a message when the keyword reading is not decisive.
type Refiner struct {
	capability  Capability
	model       string
	header      string
	timeout     time.Duration
	maxTokens   int64
	temperature float64
	logger      zerolog.Logger
}

// RefinerOption configures a Refiner.
type RefinerOption func(*Refiner)

func WithRefinerModel(model string) RefinerOption {
	return func(r *Refiner) {
		if model != "" {
			r.model = model
		}
	}
}

// WithRefinerPromptHeader replaces the persona part of the instructions.
func WithRefinerPromptHeader(header string) RefinerOption {
	return func(r *Refiner) { r.header = header }
}

func WithRefinerTimeout(d time.Duration) RefinerOption {
	return func(r *Refiner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithRefinerLogger(l zerolog.Logger) RefinerOption {
	return func(r *Refiner) { r.logger = l }
}

// NewRefiner fails fast on a missing capability.
func NewRefiner(capability Capability, opts ...RefinerOption) (*Refiner, error) {
	if capability == nil {
		return nil, ErrNilCapability
	}
	r := &Refiner{
		capability:  capability,
		model:       defaultClassifyModel,
		timeout:     defaultRefineTimeout,
		maxTokens:   defaultRefineMaxTokens,
		temperature: defaultRefineTemperature,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Refine classifies message with the external model. On success the returned
// analysis has Emotion == "" when the model gave no usable label, so the caller
// can substitute its own reading; GriefStage is "" unless a concrete stage was given.
// Every failure is returned as a *CapabilityError.
func (r *Refiner) Refine(ctx context.Context, message string, memorial bool) (EmotionAnalysis, error) {
	const op = "refine emotion"

	req := provider.Request{
		Name:            "EmotionAnalysis",
		Description:     "Emotion classification of one message",
		Model:           r.model,
		Instructions:    ComposeEmotionInstructions(r.header, memorial),
		Input:           message,
		Schema:          emotionSchema,
		MaxOutputTokens: r.maxTokens,
		Temperature:     r.temperature,
	}
	if memorial {
		req.Name = "MemorialEmotionAnalysis"
		req.Schema = memorialEmotionSchema
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	out, err := r.capability.Invoke(ctx, req)
	metrics.CapabilityLatency.WithLabelValues(metrics.CapabilityRefiner).Observe(time.Since(start).Seconds())
	if err != nil {
		return EmotionAnalysis{}, invocationError(op, err)
	}

	var raw rawEmotion
	if err := fileutils.DecodeModelJSON(out, &raw); err != nil {
		return EmotionAnalysis{}, &CapabilityError{Op: op, Kind: KindMalformed, Err: err}
	}
	if raw.Emotion == nil && raw.Score == nil && raw.Context == nil && raw.GriefStage == nil {
		return EmotionAnalysis{}, &CapabilityError{Op: op, Kind: KindIncomplete, Err: errNoFields}
	}

	var a EmotionAnalysis
	if raw.Emotion != nil {
		if e := Emotion(strings.ToLower(strings.TrimSpace(*raw.Emotion))); e.Valid() {
			a.Emotion = e
		}
	}
	if raw.Score != nil {
		a.Score = clampScore(*raw.Score)
	}
	a.Context = ContextModel
	if raw.Context != nil {
		if c := strings.TrimSpace(*raw.Context); c != "" {
			a.Context = c
		}
	}
	if memorial && raw.GriefStage != nil {
		if g := GriefStage(strings.ToLower(strings.TrimSpace(*raw.GriefStage))); g.Valid() && g != UnknownStage {
			a.GriefStage = g
			// The emotion score says nothing about the stage; without its own
			// confidence the stage is kept at zero confidence.
			if raw.GriefScore != nil {
				a.GriefScore = clampScore(*raw.GriefScore)
			}
		}
	}
	if a.Emotion == "" && a.GriefStage == "" {
		return EmotionAnalysis{}, &CapabilityError{Op: op, Kind: KindIncomplete, Err: errNoLabel}
	}
	r.logger.Debug().
		Str("emotion", string(a.Emotion)).
		Float64("score", a.Score).
		Str("grief_stage", string(a.GriefStage)).
		Dur("latency", time.Since(start)).
		Msg("emotion refined")
	return a, nil
}

var (
	errNoFields = errors.New("response has none of the expected fields")
	errNoLabel  = errors.New("response has no usable emotion or grief stage")
)
