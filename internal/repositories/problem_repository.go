package repositories

import (
	"context"

	"github.com/gosimple/slug"
	"github.com/mentoro/arena/internal/models"
	"github.com/mentoro/arena/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProblemRepository struct {
	db *gorm.DB
}

func NewProblemRepository(db *gorm.DB) *ProblemRepository {
	return &ProblemRepository{db: db}
}

// RandomProblem retrieves a random template, optionally filtered by difficulty
func (r *ProblemRepository) RandomProblem(ctx context.Context, difficulty string) (*models.Problem, error) {
	var problem models.Problem
	query := r.db.WithContext(ctx)

	if difficulty != "" {
		query = query.Where("difficulty = ?", difficulty)
	}

	result := query.Order("RANDOM()").First(&problem)

	if result.Error == gorm.ErrRecordNotFound {
		return nil, errors.New(errors.ErrCodeNotFound, "no problems found")
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get problem")
	}

	return &problem, nil
}

// UpsertProblem inserts a template or replaces the one with the same slug.
// The slug is derived from the title when empty.
func (r *ProblemRepository) UpsertProblem(ctx context.Context, problem *models.Problem) error {
	if problem.Slug == "" {
		problem.Slug = slug.Make(problem.Title)
	}
	if problem.Slug == "" {
		return errors.New(errors.ErrCodeValidation, "problem title is required")
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "description", "difficulty", "test_cases", "starter_code", "updated_at"}),
	}).Create(problem)

	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to upsert problem")
	}
	return nil
}

// CountProblems returns the number of stored templates
func (r *ProblemRepository) CountProblems(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Problem{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternalError, "failed to count problems")
	}
	return count, nil
}
