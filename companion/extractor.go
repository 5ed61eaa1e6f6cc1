package companion

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/theimaginaryfoundation/pet-companion/companion/fileutils"
	"github.com/theimaginaryfoundation/pet-companion/companion/metrics"
	"github.com/theimaginaryfoundation/pet-companion/companion/provider"
)

const (
	defaultExtractModel     = "gpt-4o-mini"
	defaultExtractTimeout   = 10 * time.Second
	defaultExtractMaxTokens = 800
	defaultExtractTemp      = 0.2

	defaultImportance = 5
	maxTitleRunes     = 20
)

type memoryResponse struct {
	Memories []memoryItem `json:"memories"`
}

type memoryItem struct {
	MemoryType string        `json:"memoryType" jsonschema:"enum=preference,enum=episode,enum=health,enum=personality,enum=relationship,enum=place,enum=routine,enum=schedule"`
	Title      string        `json:"title"`
	Content    string        `json:"content"`
	Importance int           `json:"importance" jsonschema:"minimum=1,maximum=10"`
	TimeInfo   *timeInfoItem `json:"timeInfo"`
}

type timeInfoItem struct {
	Type       string  `json:"type" jsonschema:"enum=daily,enum=weekly,enum=monthly,enum=once"`
	Time       *string `json:"time"`
	DayOfWeek  *int    `json:"dayOfWeek"`
	DayOfMonth *int    `json:"dayOfMonth"`
}

var memorySchema = func() map[string]any {
	s := provider.GenerateSchema[memoryResponse]()
	provider.AllowNull(s, "memories", "timeInfo")
	provider.AllowNull(s, "memories", "timeInfo", "time")
	provider.AllowNull(s, "memories", "timeInfo", "dayOfWeek")
	provider.AllowNull(s, "memories", "timeInfo", "dayOfMonth")
	return s
}()

// rawMemory is decoded loosely: models sometimes send importance as 7.0 or omit fields.
type rawMemory struct {
	MemoryType string   `json:"memoryType"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Importance *float64 `json:"importance"`
	TimeInfo   *struct {
		Type       string   `json:"type"`
		Time       *string  `json:"time"`
		DayOfWeek  *float64 `json:"dayOfWeek"`
		DayOfMonth *float64 `json:"dayOfMonth"`
	} `json:"timeInfo"`
}

// MemoryExtractor mines durable facts from a single message through an external model.
type MemoryExtractor struct {
	capability Capability
	model      string
	header     string
	timeout    time.Duration
	maxTokens  int64
	logger     zerolog.Logger
}

// ExtractorOption configures a MemoryExtractor.
type ExtractorOption func(*MemoryExtractor)

func WithExtractorModel(model string) ExtractorOption {
	return func(e *MemoryExtractor) {
		if model != "" {
			e.model = model
		}
	}
}

func WithExtractorPromptHeader(header string) ExtractorOption {
	return func(e *MemoryExtractor) { e.header = header }
}

func WithExtractorTimeout(d time.Duration) ExtractorOption {
	return func(e *MemoryExtractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithExtractorMaxTokens(n int64) ExtractorOption {
	return func(e *MemoryExtractor) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

func WithExtractorLogger(l zerolog.Logger) ExtractorOption {
	return func(e *MemoryExtractor) { e.logger = l }
}

// NewMemoryExtractor fails fast on a missing capability.
func NewMemoryExtractor(capability Capability, opts ...ExtractorOption) (*MemoryExtractor, error) {
	if capability == nil {
		return nil, ErrNilCapability
	}
	e := &MemoryExtractor{
		capability: capability,
		model:      defaultExtractModel,
		timeout:    defaultExtractTimeout,
		maxTokens:  defaultExtractMaxTokens,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Extract proposes memories found in message. The slice is nil both when
// nothing was worth remembering and when extraction failed; in the latter case
// the error is a *CapabilityError the caller may log but must not surface.
// PetID and UserID are left for the caller to fill in.
func (e *MemoryExtractor) Extract(ctx context.Context, message, petName string) ([]PetMemory, error) {
	const op = "extract memories"

	if strings.TrimSpace(message) == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	out, err := e.capability.Invoke(ctx, provider.Request{
		Name:            "PetMemories",
		Description:     "Long-term memories extracted from one message",
		Model:           e.model,
		Instructions:    ComposeMemoryInstructions(e.header, petName),
		Input:           message,
		Schema:          memorySchema,
		MaxOutputTokens: e.maxTokens,
		Temperature:     defaultExtractTemp,
	})
	metrics.CapabilityLatency.WithLabelValues(metrics.CapabilityExtractor).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, e.fail(invocationError(op, err), message)
	}

	raws, err := decodeMemories(out)
	if err != nil {
		return nil, e.fail(&CapabilityError{Op: op, Kind: KindMalformed, Err: err}, message)
	}

	var mems []PetMemory
	for _, r := range raws {
		if m, ok := normalizeMemory(r); ok {
			mems = append(mems, m)
		}
	}
	if len(mems) == 0 {
		return nil, nil
	}
	metrics.MemoriesExtracted.Add(float64(len(mems)))
	e.logger.Debug().Int("memories", len(mems)).Dur("latency", time.Since(start)).Msg("memories extracted")
	return mems, nil
}

func (e *MemoryExtractor) fail(err *CapabilityError, message string) error {
	metrics.CapabilityFailures.WithLabelValues(metrics.CapabilityExtractor, string(err.Kind)).Inc()
	e.logger.Warn().
		Err(err).
		Str("op", "extract").
		Str("kind", string(err.Kind)).
		Int("message_runes", len([]rune(message))).
		Msg("memory extraction failed; nothing will be remembered this turn")
	return err
}

// decodeMemories accepts {"memories":[...]} or a bare array.
func decodeMemories(out string) ([]rawMemory, error) {
	trimmed := strings.TrimSpace(out)
	if !strings.HasPrefix(trimmed, "[") {
		var wrapped struct {
			Memories *[]rawMemory `json:"memories"`
		}
		if err := fileutils.DecodeModelJSON(trimmed, &wrapped); err == nil && wrapped.Memories != nil {
			return *wrapped.Memories, nil
		}
	}
	var list []rawMemory
	if err := fileutils.DecodeModelJSONArray(trimmed, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// normalizeMemory enforces the PetMemory invariants. Memories with an unknown
// type or an empty title or content are dropped.
func normalizeMemory(r rawMemory) (PetMemory, bool) {
	mt := MemoryType(strings.ToLower(strings.TrimSpace(r.MemoryType)))
	title := fileutils.FlattenLine(r.Title)
	content := fileutils.FlattenLine(r.Content)
	if !mt.Valid() || title == "" || content == "" {
		return PetMemory{}, false
	}

	m := PetMemory{
		MemoryType: mt,
		Title:      fileutils.Truncate(title, maxTitleRunes),
		Content:    content,
		Importance: normalizeImportance(r.Importance),
	}

	if ti := r.TimeInfo; ti != nil {
		rec := Recurrence(strings.ToLower(strings.TrimSpace(ti.Type)))
		if rec.Valid() {
			info := &TimeInfo{Type: rec}
			if ti.Time != nil {
				if clock, ok := NormalizeClock(*ti.Time); ok {
					info.Time = clock
				}
			}
			info.DayOfWeek = intInRange(ti.DayOfWeek, 0, 6)
			info.DayOfMonth = intInRange(ti.DayOfMonth, 1, 31)
			m.TimeInfo = info
		}
	}
	return m, true
}

func normalizeImportance(v *float64) int {
	if v == nil || math.IsNaN(*v) {
		return defaultImportance
	}
	return int(math.Round(min(max(*v, 1), 10)))
}

func intInRange(v *float64, lo, hi int) *int {
	if v == nil || math.IsNaN(*v) || *v != math.Trunc(*v) {
		return nil
	}
	n := int(*v)
	if n < lo || n > hi {
		return nil
	}
	return &n
}
