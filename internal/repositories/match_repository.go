package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/mentoro/arena/internal/models"
	"github.com/mentoro/arena/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(db *gorm.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// stateUpdates skips model hooks for partial column updates
func stateUpdates(tx *gorm.DB) *gorm.DB {
	return tx.Session(&gorm.Session{SkipHooks: true})
}

// CreateMatch stores a new match together with its initial participants
func (r *MatchRepository) CreateMatch(ctx context.Context, match *models.Match) error {
	result := r.db.WithContext(ctx).Create(match)
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to create match")
	}
	return nil
}

// GetMatch retrieves a match with its participants in join order
func (r *MatchRepository) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	var match models.Match
	result := r.db.WithContext(ctx).
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("join_order ASC")
		}).
		Where("id = ?", matchID).
		First(&match)

	if result.Error == gorm.ErrRecordNotFound {
		return nil, errors.New(errors.ErrCodeNotFound, "match not found")
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get match")
	}

	return &match, nil
}

// AddParticipant inserts a participant into a waiting match. When startedAt
// is set the match is activated in the same transaction.
func (r *MatchRepository) AddParticipant(ctx context.Context, participant *models.Participant, startedAt *time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var match models.Match
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&match, "id = ?", participant.MatchID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.New(errors.ErrCodeNotFound, "match not found")
			}
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to get match")
		}

		if match.Status != models.MatchStatusWaiting {
			return errors.New(errors.ErrCodeNotJoinable, fmt.Sprintf("match is %s", match.Status))
		}

		var count int64
		if err := tx.Model(&models.Participant{}).Where("match_id = ?", match.ID).Count(&count).Error; err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to count participants")
		}
		if int(count) >= match.MaxPlayers {
			return errors.New(errors.ErrCodeNotJoinable, "match is full")
		}

		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(participant).Error; err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to add participant")
		}
		if participant.ID == 0 {
			return errors.New(errors.ErrCodeAlreadyJoined, "already joined this match")
		}

		if startedAt == nil {
			return nil
		}

		result := stateUpdates(tx).Model(&models.Match{}).
			Where("id = ? AND status = ?", match.ID, models.MatchStatusWaiting).
			Updates(map[string]interface{}{
				"status":     models.MatchStatusActive,
				"started_at": *startedAt,
			})
		if result.Error != nil {
			return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to activate match")
		}
		if result.RowsAffected == 0 {
			return errors.New(errors.ErrCodeNotJoinable, "match is no longer waiting")
		}

		return nil
	})
}

// RecordSubmission stores a participant's evaluated submission exactly once
func (r *MatchRepository) RecordSubmission(ctx context.Context, participant *models.Participant) error {
	result := r.db.WithContext(ctx).Model(&models.Participant{}).
		Where("match_id = ? AND user_id = ? AND submitted_at IS NULL", participant.MatchID, participant.UserID).
		Updates(map[string]interface{}{
			"code_submission": participant.CodeSubmission,
			"score":           participant.Score,
			"tests_passed":    participant.TestsPassed,
			"total_tests":     participant.TotalTests,
			"completion_time": participant.CompletionTime,
			"submitted_at":    participant.SubmittedAt,
		})

	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to record submission")
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.ErrCodeAlreadySubmitted, "submission already recorded")
	}

	return nil
}

// SettleMatch moves the match to completed and credits the reward in one
// transaction. It returns false when the match had already left FromStatus,
// in which case nothing is written.
func (r *MatchRepository) SettleMatch(ctx context.Context, settlement models.Settlement) (bool, error) {
	settled := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := stateUpdates(tx).Model(&models.Match{}).
			Where("id = ? AND status = ?", settlement.MatchID, settlement.FromStatus).
			Updates(map[string]interface{}{
				"status":    models.MatchStatusCompleted,
				"outcome":   settlement.Outcome,
				"winner_id": settlement.WinnerID,
				"ended_at":  settlement.EndedAt,
			})
		if result.Error != nil {
			return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to complete match")
		}
		if result.RowsAffected == 0 {
			return nil
		}

		if settlement.WinnerID != nil {
			matchID := settlement.MatchID
			credit := XPCredit{
				UserID:      *settlement.WinnerID,
				Amount:      settlement.XPReward,
				Source:      models.XPSourceBattleWin,
				Description: settlement.Description,
				MatchID:     &matchID,
				BattleWon:   true,
			}
			if err := creditXP(tx, credit); err != nil {
				return err
			}
		}

		settled = true
		return nil
	})

	if err != nil {
		return false, err
	}
	return settled, nil
}

// LoadOpenMatches returns every waiting or active match with participants
func (r *MatchRepository) LoadOpenMatches(ctx context.Context) ([]models.Match, error) {
	var matches []models.Match
	result := r.db.WithContext(ctx).
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("join_order ASC")
		}).
		Where("status IN ?", []string{models.MatchStatusWaiting, models.MatchStatusActive}).
		Order("created_at ASC").
		Find(&matches)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to load open matches")
	}

	return matches, nil
}
