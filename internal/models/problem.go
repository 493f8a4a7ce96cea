package models

import (
	"time"
)

// Problem is a reusable battle template
type Problem struct {
	ID          uint      `gorm:"primaryKey"`
	Slug        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Title       string    `gorm:"type:varchar(255);not null"`
	Description string    `gorm:"type:text"`
	Difficulty  string    `gorm:"type:varchar(20);index"`
	TestCases   string    `gorm:"type:jsonb"` // JSON string for PostgreSQL
	StarterCode string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Problem) TableName() string {
	return "problems"
}

func (p *Problem) GetTestCases() ([]TestCase, error) {
	return decodeTestCases(p.TestCases)
}

func (p *Problem) SetTestCases(cases []TestCase) error {
	raw, err := encodeTestCases(cases)
	if err != nil {
		return err
	}
	p.TestCases = raw
	return nil
}

// ValidDifficulty reports whether d is a known difficulty
func ValidDifficulty(d string) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}
