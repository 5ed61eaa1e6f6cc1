package companion

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/theimaginaryfoundation/pet-companion/companion/provider"
)

// fakeCapability returns a canned output, or blocks until the context ends.
type fakeCapability struct {
	mu    sync.Mutex
	out   string
	err   error
	block bool
	calls int
	last  provider.Request
}

func (f *fakeCapability) Invoke(ctx context.Context, req provider.Request) (string, error) {
	f.mu.Lock()
	f.calls++
	f.last = req
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.out, f.err
}

func (f *fakeCapability) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRefiner struct {
	mu    sync.Mutex
	out   EmotionAnalysis
	err   error
	calls int
}

func (f *fakeRefiner) Refine(context.Context, string, bool) (EmotionAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.out, f.err
}

func (f *fakeRefiner) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeExtraction struct {
	mu    sync.Mutex
	out   []PetMemory
	err   error
	calls int
}

func (f *fakeExtraction) Extract(context.Context, string, string) ([]PetMemory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.out == nil {
		return nil, f.err
	}
	return append([]PetMemory(nil), f.out...), f.err
}

func (f *fakeExtraction) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeStore struct {
	mu        sync.Mutex
	messages  []Message
	memories  []PetMemory
	appendErr error
	topErr    error
}

func (s *fakeStore) AppendMessage(_ context.Context, m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.messages = append(s.messages, m)
	return nil
}

func (s *fakeStore) AppendMemory(_ context.Context, userID, petID string, m PetMemory) (PetMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return PetMemory{}, s.appendErr
	}
	m.ID = fmt.Sprintf("mem-%d", len(s.memories)+1)
	m.UserID, m.PetID = userID, petID
	s.memories = append(s.memories, m)
	return m, nil
}

func (s *fakeStore) TopMemories(_ context.Context, petID string, limit int) ([]PetMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.topErr != nil {
		return nil, s.topErr
	}
	var out []PetMemory
	for _, m := range s.memories {
		if m.PetID == petID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeUsage struct {
	usage Usage
	err   error
}

func (f fakeUsage) CheckDailyUsage(context.Context, string, bool) (Usage, error) {
	return f.usage, f.err
}
