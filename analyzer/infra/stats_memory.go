package infra

import (
	"context"
	"sync"

	"perspective-gateway/analyzer/domain"
)

// Counters conta eventos por desfecho.
type Counters struct {
	Accepted  int64
	Rejected  int64
	Completed int64
	Released  int64
	Dropped   int64
	Failed    int64
}

func (c *Counters) add(ev domain.StatsEvent) {
	switch ev.Outcome {
	case domain.OutcomeAccepted:
		c.Accepted++
	case domain.OutcomeRejected:
		c.Rejected++
	case domain.OutcomeCompleted:
		c.Completed++
	case domain.OutcomeReleased:
		c.Released++
		if ev.Failed {
			c.Failed++
		}
	case domain.OutcomeDropped:
		c.Dropped++
	}
}

// MemoryStatsStore é uma implementação simples em memória.
// Útil para testes e desenvolvimento.
//
// Não faz expiração e não é indicada para produção.
type MemoryStatsStore struct {
	mu         sync.Mutex
	total      Counters
	byPriority map[domain.Priority]Counters
	byID       map[string][]domain.Outcome

	trackIDs bool
}

type MemoryStatsOption func(*MemoryStatsStore)

// WithTrackIDs guarda a sequência de desfechos por submissão (cresce sem limite).
func WithTrackIDs(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackIDs = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byPriority: make(map[domain.Priority]Counters),
		byID:       make(map[string][]domain.Outcome),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.add(ev)
	c := s.byPriority[ev.Priority]
	c.add(ev)
	s.byPriority[ev.Priority] = c
	if s.trackIDs && ev.ID != "" {
		s.byID[ev.ID] = append(s.byID[ev.ID], ev.Outcome)
	}
	return nil
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *MemoryStatsStore) ByPriority() map[domain.Priority]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.Priority]Counters, len(s.byPriority))
	for k, v := range s.byPriority {
		out[k] = v
	}
	return out
}

func (s *MemoryStatsStore) Outcomes(id string) []domain.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Outcome(nil), s.byID[id]...)
}
