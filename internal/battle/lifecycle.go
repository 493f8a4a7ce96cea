package battle

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mentoro/arena/internal/models"
	"github.com/mentoro/arena/internal/realtime"
	"github.com/mentoro/arena/internal/security"
	"github.com/mentoro/arena/pkg/errors"
	"github.com/mentoro/arena/pkg/logger"
)

// Restore loads waiting and active matches from the store after a restart
func (s *Service) Restore(ctx context.Context) (int, error) {
	matches, err := s.store.LoadOpenMatches(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDependencyFailure, "failed to load open matches")
	}

	restored := 0
	for i := range matches {
		match := &matches[i]
		cases, err := match.GetTestCases()
		if err != nil {
			logger.Warn("Skipping match with unreadable test cases", "match_id", match.ID, "error", err)
			continue
		}

		s.mu.Lock()
		if _, exists := s.matches[match.ID]; exists {
			s.mu.Unlock()
			continue
		}
		s.matches[match.ID] = &liveMatch{match: match, testCases: cases}
		s.mu.Unlock()

		for _, p := range match.Participants {
			s.rooms.Join(match.ID, p.UserID)
		}
		restored++
	}

	logger.Info("Restored open matches", "count", restored)
	return restored, nil
}

// ExpireOverdue runs one maintenance pass at now. Active matches past their
// time limit end with a timeout, fully submitted matches whose settlement
// failed are settled again, stale waiting matches are cancelled and
// completed matches are evicted after the retention period.
func (s *Service) ExpireOverdue(ctx context.Context, now time.Time) int {
	s.mu.RLock()
	live := make([]*liveMatch, 0, len(s.matches))
	for _, lm := range s.matches {
		live = append(live, lm)
	}
	s.mu.RUnlock()

	settled := 0
	var evict []string

	for _, lm := range live {
		lm.mu.Lock()
		match := lm.match

		var outcome string
		switch match.Status {
		case models.MatchStatusActive:
			if match.AllSubmitted() {
				outcome = models.MatchOutcomeWinner
			} else if deadline, ok := match.Deadline(); ok && !now.Before(deadline) {
				outcome = models.MatchOutcomeTimeout
			}
		case models.MatchStatusWaiting:
			if s.opts.WaitingTTL > 0 && now.Sub(match.CreatedAt) >= s.opts.WaitingTTL {
				outcome = models.MatchOutcomeCancelled
			}
		case models.MatchStatusCompleted:
			if now.Sub(lm.completedAt) >= s.opts.CompletedRetention {
				evict = append(evict, match.ID)
			}
		}

		if outcome != "" {
			ok, err := s.settleLocked(ctx, lm, outcome)
			if err != nil {
				logger.Error("Sweep failed to settle match", "match_id", match.ID, "outcome", outcome, "error", err)
			} else if ok {
				settled++
			}
		}
		lm.mu.Unlock()
	}

	if len(evict) > 0 {
		s.mu.Lock()
		for _, id := range evict {
			delete(s.matches, id)
		}
		s.mu.Unlock()
		logger.Debug("Evicted completed matches", "count", len(evict))
	}

	return settled
}

// JoinRoom subscribes a user, participant or spectator, to a match's room
func (s *Service) JoinRoom(ctx context.Context, matchID, userID string) error {
	lm := s.live(matchID)
	if lm == nil {
		return s.missing(ctx, matchID, errors.ErrCodeNotActive)
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	if lm.match.Status == models.MatchStatusCompleted {
		return errors.New(errors.ErrCodeNotActive, "match is completed")
	}

	s.rooms.Join(matchID, userID)
	s.rooms.Send(userID, realtime.RoomJoinedMessage{Type: realtime.TypeRoomJoined, MatchID: matchID})
	return nil
}

// RelayChat sanitizes a chat line and broadcasts it to the room
func (s *Service) RelayChat(matchID, userID, content string) error {
	if !s.rooms.IsMember(matchID, userID) {
		return errors.New(errors.ErrCodeNotParticipant, "join the match room first")
	}

	message := security.SanitizeChat(content)
	if message == "" {
		return errors.New(errors.ErrCodeValidation, "message is empty")
	}

	s.rooms.Broadcast(matchID, realtime.ChatMessage{
		Type:      realtime.TypeChatMessage,
		MatchID:   matchID,
		UserID:    userID,
		Message:   message,
		Timestamp: s.now(),
	})
	return nil
}

// RelayCode broadcasts a live code update to the room
func (s *Service) RelayCode(matchID, userID, code string, cursor json.RawMessage) error {
	if !s.rooms.IsMember(matchID, userID) {
		return errors.New(errors.ErrCodeNotParticipant, "join the match room first")
	}
	if len(code) > maxCodeLength {
		return errors.New(errors.ErrCodeValidation, "code is too long")
	}

	s.rooms.Broadcast(matchID, realtime.CodeSyncMessage{
		Type:    realtime.TypeCodeSync,
		MatchID: matchID,
		UserID:  userID,
		Code:    code,
		Cursor:  cursor,
	})
	return nil
}
