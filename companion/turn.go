package companion

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/theimaginaryfoundation/pet-companion/companion/metrics"
)

// DefaultContextLimit is how many stored memories are rendered into a turn's context.
const DefaultContextLimit = 10

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation line handed to storage.
type Message struct {
	UserID    string    `json:"userId"`
	PetID     string    `json:"petId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Emotion   Emotion   `json:"emotion,omitempty"`
	Score     *float64  `json:"score,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is the storage collaborator. It owns ordering and idempotence of writes.
type Store interface {
	AppendMessage(ctx context.Context, m Message) error
	AppendMemory(ctx context.Context, userID, petID string, m PetMemory) (PetMemory, error)
	// TopMemories returns up to limit memories for petID, importance descending.
	TopMemories(ctx context.Context, petID string, limit int) ([]PetMemory, error)
}

// Usage is the daily quota state for one identifier.
type Usage struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
	IsWarning bool `json:"isWarning"`
}

// UsageChecker is the quota collaborator. A call counts as one use.
type UsageChecker interface {
	CheckDailyUsage(ctx context.Context, identifier string, authenticated bool) (Usage, error)
}

// MemoryExtraction is satisfied by *MemoryExtractor.
type MemoryExtraction interface {
	Extract(ctx context.Context, message, petName string) ([]PetMemory, error)
}

// TurnInput describes one user message.
type TurnInput struct {
	UserID        string
	PetID         string
	PetName       string
	Message       string
	Mode          Mode
	Identifier    string // quota key: user id, or a client address for guests
	Authenticated bool
}

// TurnContext is everything the prompt builder needs for the reply.
type TurnContext struct {
	Analysis      EmotionAnalysis `json:"analysis"`
	Guidance      Guidance        `json:"guidance"`
	NewMemories   []PetMemory     `json:"newMemories,omitempty"`
	MemoryContext string          `json:"memoryContext"`
	Usage         *Usage          `json:"usage,omitempty"`
	// Offline is set when the external capability was skipped for this turn.
	Offline bool `json:"offline,omitempty"`
}

// TurnOrchestrator wires the analyzer and extractor to the storage and quota
// collaborators. Any collaborator may be nil.
type TurnOrchestrator struct {
	analyzer     *HybridAnalyzer
	extractor    MemoryExtraction
	store        Store
	griefLog     GriefLog
	usage        UsageChecker
	contextLimit int
	now          func() time.Time
	logger       zerolog.Logger
}

// TurnOption configures a TurnOrchestrator.
type TurnOption func(*TurnOrchestrator)

func WithStore(s Store) TurnOption               { return func(t *TurnOrchestrator) { t.store = s } }
func WithGriefLog(l GriefLog) TurnOption         { return func(t *TurnOrchestrator) { t.griefLog = l } }
func WithUsageChecker(u UsageChecker) TurnOption { return func(t *TurnOrchestrator) { t.usage = u } }
func WithTurnLogger(l zerolog.Logger) TurnOption { return func(t *TurnOrchestrator) { t.logger = l } }

func WithContextLimit(n int) TurnOption {
	return func(t *TurnOrchestrator) {
		if n > 0 {
			t.contextLimit = n
		}
	}
}

func NewTurnOrchestrator(analyzer *HybridAnalyzer, extractor MemoryExtraction, opts ...TurnOption) *TurnOrchestrator {
	if analyzer == nil {
		analyzer = NewHybridAnalyzer(nil, nil)
	}
	t := &TurnOrchestrator{
		analyzer:     analyzer,
		extractor:    extractor,
		contextLimit: DefaultContextLimit,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Prepare classifies the message and extracts memories concurrently, records
// the results with the collaborators, and assembles the reply context. It never
// fails: quota or capability problems degrade to keyword-only analysis and no
// new memories, and storage problems are logged.
func (t *TurnOrchestrator) Prepare(ctx context.Context, in TurnInput) TurnContext {
	var out TurnContext
	memorial := in.Mode == MemorialMode

	offline := false
	if t.usage != nil {
		u, err := t.usage.CheckDailyUsage(ctx, in.Identifier, in.Authenticated)
		switch {
		case err != nil:
			offline = true
			t.logger.Warn().Err(err).Str("op", "quota").Msg("usage check failed; keyword-only turn")
		case !u.Allowed:
			offline = true
			out.Usage = &u
			t.logger.Info().Str("op", "quota").Msg("daily usage exhausted; keyword-only turn")
		default:
			out.Usage = &u
		}
		if offline {
			metrics.QuotaDenials.Inc()
		}
	}
	out.Offline = offline

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if offline {
			out.Analysis = t.analyzer.AnalyzeOffline(in.Message, memorial)
			return nil
		}
		out.Analysis = t.analyzer.Analyze(gctx, in.Message, memorial)
		return nil
	})
	if !offline && t.extractor != nil {
		g.Go(func() error {
			// Failures are already logged by the extractor; nil means nothing to remember.
			mems, _ := t.extractor.Extract(gctx, in.Message, in.PetName)
			for i := range mems {
				mems[i].UserID = in.UserID
				mems[i].PetID = in.PetID
			}
			out.NewMemories = mems
			return nil
		})
	}
	_ = g.Wait()

	t.record(ctx, in, &out)
	out.MemoryContext = t.memoryContext(ctx, in.PetID)
	out.Guidance = SelectGuide(out.Analysis, in.Mode)
	return out
}

func (t *TurnOrchestrator) record(ctx context.Context, in TurnInput, out *TurnContext) {
	now := t.now()
	if t.store != nil {
		score := out.Analysis.Score
		err := t.store.AppendMessage(ctx, Message{
			UserID:    in.UserID,
			PetID:     in.PetID,
			Role:      RoleUser,
			Content:   in.Message,
			Emotion:   out.Analysis.Emotion,
			Score:     &score,
			CreatedAt: now,
		})
		if err != nil {
			t.logger.Warn().Err(err).Str("op", "append_message").Msg("failed to store message")
		}
		for i, m := range out.NewMemories {
			stored, err := t.store.AppendMemory(ctx, in.UserID, in.PetID, m)
			if err != nil {
				t.logger.Warn().Err(err).Str("op", "append_memory").Str("memory_type", string(m.MemoryType)).Msg("failed to store memory")
				continue
			}
			out.NewMemories[i] = stored
		}
	}
	if t.griefLog != nil && in.Mode == MemorialMode {
		if r, ok := ReadingFromAnalysis(out.Analysis, now); ok {
			if err := t.griefLog.AppendGriefReading(ctx, in.UserID, in.PetID, r); err != nil {
				t.logger.Warn().Err(err).Str("op", "append_grief_reading").Msg("failed to record grief reading")
			}
		}
	}
}

// RecordReply stores the persona's reply after the prompt builder produced it.
// It is a no-op without a store.
func (t *TurnOrchestrator) RecordReply(ctx context.Context, userID, petID, reply string) error {
	if t.store == nil {
		return nil
	}
	if strings.TrimSpace(reply) == "" {
		return errors.New("reply is empty")
	}
	return t.store.AppendMessage(ctx, Message{
		UserID:    userID,
		PetID:     petID,
		Role:      RoleAssistant,
		Content:   reply,
		CreatedAt: t.now(),
	})
}

func (t *TurnOrchestrator) memoryContext(ctx context.Context, petID string) string {
	if t.store == nil {
		return ""
	}
	mems, err := t.store.TopMemories(ctx, petID, t.contextLimit)
	if err != nil {
		t.logger.Warn().Err(err).Str("op", "top_memories").Msg("failed to load memories")
		return ""
	}
	return ToContext(mems)
}
