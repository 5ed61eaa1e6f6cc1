// Package quota implements the daily usage collaborator consulted before every
// model-backed turn. Each check counts as one use.
package quota

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/theimaginaryfoundation/pet-companion/companion"
)

const (
	DefaultAuthenticatedLimit = 50
	DefaultAnonymousLimit     = 10
	DefaultWarningRatio       = 0.8
)

// Limits are per identifier per UTC day. A zero limit disables the check for
// that class of caller.
type Limits struct {
	Authenticated int
	Anonymous     int
	// WarningRatio is the fraction of the limit after which IsWarning is set.
	WarningRatio float64
}

func DefaultLimits() Limits {
	return Limits{
		Authenticated: DefaultAuthenticatedLimit,
		Anonymous:     DefaultAnonymousLimit,
		WarningRatio:  DefaultWarningRatio,
	}
}

func (l Limits) Validate() error {
	if l.Authenticated < 0 || l.Anonymous < 0 {
		return fmt.Errorf("quota limits must be >= 0 (authenticated=%d anonymous=%d)", l.Authenticated, l.Anonymous)
	}
	if l.WarningRatio <= 0 || l.WarningRatio > 1 {
		return fmt.Errorf("quota warning ratio must be in (0, 1], got %v", l.WarningRatio)
	}
	return nil
}

func (l Limits) limitFor(authenticated bool) int {
	if authenticated {
		return l.Authenticated
	}
	return l.Anonymous
}

// evaluate turns the count after this use into a Usage. Remaining is -1 when unlimited.
func (l Limits) evaluate(count int64, authenticated bool) companion.Usage {
	limit := l.limitFor(authenticated)
	if limit == 0 {
		return companion.Usage{Allowed: true, Remaining: -1}
	}
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	allowed := count <= int64(limit)
	warnAt := int64(math.Ceil(float64(limit) * l.WarningRatio))
	return companion.Usage{
		Allowed:   allowed,
		Remaining: remaining,
		IsWarning: allowed && count >= warnAt,
	}
}

func dayKey(prefix, identifier string, authenticated bool, now time.Time) string {
	class := "anon"
	if authenticated {
		class = "auth"
	}
	return fmt.Sprintf("%s:%s:%s:%s", prefix, class, identifier, now.UTC().Format("2006-01-02"))
}

// untilTomorrow is how long a day's counter must live, with an hour of slack.
func untilTomorrow(now time.Time) time.Duration {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	return midnight.Sub(now) + time.Hour
}

// MemoryUsage is an in-process counter for single-instance deployments and tests.
type MemoryUsage struct {
	limits Limits
	now    func() time.Time

	mu     sync.Mutex
	counts map[string]int64
}

var _ companion.UsageChecker = (*MemoryUsage)(nil)

func NewMemoryUsage(limits Limits) (*MemoryUsage, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	return &MemoryUsage{limits: limits, now: time.Now, counts: make(map[string]int64)}, nil
}

func (m *MemoryUsage) CheckDailyUsage(_ context.Context, identifier string, authenticated bool) (companion.Usage, error) {
	now := m.now()
	key := dayKey("usage", identifier, authenticated, now)
	today := now.UTC().Format("2006-01-02")

	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.counts {
		if !strings.HasSuffix(k, today) {
			delete(m.counts, k)
		}
	}
	m.counts[key]++
	return m.limits.evaluate(m.counts[key], authenticated), nil
}
