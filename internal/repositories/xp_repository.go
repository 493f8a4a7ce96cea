package repositories

import (
	"context"

	"github.com/mentoro/arena/internal/models"
	"github.com/mentoro/arena/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type XPRepository struct {
	db *gorm.DB
}

func NewXPRepository(db *gorm.DB) *XPRepository {
	return &XPRepository{db: db}
}

// XPCredit describes an XP award that is written together with its log row
type XPCredit struct {
	UserID      string
	Amount      int64
	Source      string
	Description string
	MatchID     *string
	BattleWon   bool
}

// GetHistory retrieves the user's most recent XP log entries
func (r *XPRepository) GetHistory(ctx context.Context, userID string, limit int) ([]models.XPLog, error) {
	var logs []models.XPLog
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get xp history")
	}

	return logs, nil
}

// creditXP applies an award inside an existing transaction. The profile row
// is created on first reward and locked for the update.
func creditXP(tx *gorm.DB, credit XPCredit) error {
	profile := models.Profile{ID: credit.UserID, Level: 1}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&profile).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to ensure profile")
	}

	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&profile, "id = ?", credit.UserID).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to get profile")
	}

	profile.ApplyXP(credit.Amount)
	updates := map[string]interface{}{
		"xp":       profile.XP,
		"total_xp": profile.TotalXP,
		"level":    profile.Level,
	}
	if credit.BattleWon {
		updates["total_battles"] = gorm.Expr("total_battles + 1")
		updates["battles_won"] = gorm.Expr("battles_won + 1")
	}
	if err := tx.Model(&profile).Updates(updates).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to update profile xp")
	}

	entry := &models.XPLog{
		UserID:      credit.UserID,
		Amount:      credit.Amount,
		Source:      credit.Source,
		Description: credit.Description,
		MatchID:     credit.MatchID,
	}
	if err := tx.Create(entry).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to create xp log")
	}

	return nil
}
