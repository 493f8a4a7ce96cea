// Package battletest provides an in-memory battle store for tests.
package battletest

import (
	"context"
	"sync"
	"time"

	"github.com/mentoro/arena/internal/models"
	"github.com/mentoro/arena/pkg/errors"
)

// MemoryStore mirrors the conditional write semantics of the database store.
// The Fail fields inject errors into the matching operation.
type MemoryStore struct {
	mu          sync.Mutex
	matches     map[string]*models.Match
	settlements []models.Settlement
	nextID      uint

	FailCreate error
	FailAdd    error
	FailRecord error
	FailSettle error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{matches: make(map[string]*models.Match)}
}

func cloneMatch(m *models.Match) *models.Match {
	c := *m
	c.Participants = append([]models.Participant(nil), m.Participants...)
	return &c
}

func (s *MemoryStore) CreateMatch(ctx context.Context, match *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreate != nil {
		return s.FailCreate
	}
	for i := range match.Participants {
		s.nextID++
		match.Participants[i].ID = s.nextID
		match.Participants[i].MatchID = match.ID
	}
	s.matches[match.ID] = cloneMatch(match)
	return nil
}

func (s *MemoryStore) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[matchID]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "match not found")
	}
	return cloneMatch(m), nil
}

func (s *MemoryStore) AddParticipant(ctx context.Context, participant *models.Participant, startedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAdd != nil {
		return s.FailAdd
	}
	m, ok := s.matches[participant.MatchID]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "match not found")
	}
	if m.Status != models.MatchStatusWaiting {
		return errors.New(errors.ErrCodeNotJoinable, "match is not waiting")
	}
	if m.Participant(participant.UserID) != nil {
		return errors.New(errors.ErrCodeAlreadyJoined, "already joined this match")
	}
	s.nextID++
	participant.ID = s.nextID
	m.Participants = append(m.Participants, *participant)
	if startedAt != nil {
		m.Status = models.MatchStatusActive
		m.StartedAt = startedAt
	}
	return nil
}

func (s *MemoryStore) RecordSubmission(ctx context.Context, participant *models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailRecord != nil {
		return s.FailRecord
	}
	m, ok := s.matches[participant.MatchID]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "match not found")
	}
	p := m.Participant(participant.UserID)
	if p == nil || p.SubmittedAt != nil {
		return errors.New(errors.ErrCodeAlreadySubmitted, "submission already recorded")
	}
	*p = *participant
	return nil
}

func (s *MemoryStore) SettleMatch(ctx context.Context, settlement models.Settlement) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSettle != nil {
		return false, s.FailSettle
	}
	m, ok := s.matches[settlement.MatchID]
	if !ok || m.Status != settlement.FromStatus {
		return false, nil
	}
	endedAt := settlement.EndedAt
	m.Status = models.MatchStatusCompleted
	m.Outcome = settlement.Outcome
	m.WinnerID = settlement.WinnerID
	m.EndedAt = &endedAt
	s.settlements = append(s.settlements, settlement)
	return true, nil
}

func (s *MemoryStore) LoadOpenMatches(ctx context.Context) ([]models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Match
	for _, m := range s.matches {
		if m.Status != models.MatchStatusCompleted {
			out = append(out, *cloneMatch(m))
		}
	}
	return out, nil
}

// SetFailSettle changes the settlement error while other goroutines run
func (s *MemoryStore) SetFailSettle(err error) {
	s.mu.Lock()
	s.FailSettle = err
	s.mu.Unlock()
}

// Settlements returns every committed settlement in order
func (s *MemoryStore) Settlements() []models.Settlement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Settlement(nil), s.settlements...)
}
