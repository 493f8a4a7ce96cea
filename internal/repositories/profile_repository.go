package repositories

import (
	"context"

	"github.com/mentoro/arena/internal/models"
	"github.com/mentoro/arena/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// EnsureProfile creates the profile on first sight and refreshes the username
func (r *ProfileRepository) EnsureProfile(ctx context.Context, userID, username string) error {
	profile := &models.Profile{ID: userID, Username: username, Level: 1}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "updated_at"}),
	}).Create(profile)

	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to ensure profile")
	}
	return nil
}

// GetProfile retrieves a profile by its user id
func (r *ProfileRepository) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	result := r.db.WithContext(ctx).Where("id = ?", userID).First(&profile)

	if result.Error == gorm.ErrRecordNotFound {
		return nil, errors.New(errors.ErrCodeNotFound, "profile not found")
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get profile")
	}

	return &profile, nil
}

// Leaderboard returns the profiles with the most lifetime XP
func (r *ProfileRepository) Leaderboard(ctx context.Context, limit int) ([]models.Profile, error) {
	var profiles []models.Profile
	result := r.db.WithContext(ctx).
		Order("total_xp DESC").
		Order("battles_won DESC").
		Limit(limit).
		Find(&profiles)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get leaderboard")
	}

	return profiles, nil
}
