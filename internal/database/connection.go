package database

import (
	"fmt"
	"time"

	"github.com/gosimple/slug"
	"github.com/mentoro/arena/internal/config"
	"github.com/mentoro/arena/internal/models"
	"github.com/mentoro/arena/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.GetDSN()

	var logLevel gormlogger.LogLevel
	if cfg.AppEnv == "development" {
		logLevel = gormlogger.Info
	} else {
		logLevel = gormlogger.Error
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(20)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	logger.Info("Database connected", "host", cfg.DBHost, "name", cfg.DBName)
	return db, nil
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func AutoMigrate(db *gorm.DB) error {
	logger.Info("Running database migrations...")

	err := db.AutoMigrate(
		&models.Profile{},
		&models.XPLog{},
		&models.Problem{},
		&models.Match{},
		&models.Participant{},
	)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// SeedProblems inserts the built-in templates when the table is empty
func SeedProblems(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Problem{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count problems: %w", err)
	}
	if count > 0 {
		return nil
	}

	logger.Info("Seeding problem templates...")
	for _, seed := range DefaultProblems() {
		problem := models.Problem{
			Slug:        slug.Make(seed.Title),
			Title:       seed.Title,
			Description: seed.Description,
			Difficulty:  seed.Difficulty,
			StarterCode: seed.StarterCode,
		}
		if err := problem.SetTestCases(seed.TestCases); err != nil {
			return fmt.Errorf("failed to encode test cases for %q: %w", seed.Title, err)
		}
		if err := db.Create(&problem).Error; err != nil {
			return fmt.Errorf("failed to seed problem %q: %w", seed.Title, err)
		}
	}

	return nil
}

// ProblemSeed is a template definition shipped with the server
type ProblemSeed struct {
	Title       string
	Description string
	Difficulty  string
	StarterCode string
	TestCases   []models.TestCase
}

func DefaultProblems() []ProblemSeed {
	return []ProblemSeed{
		{
			Title:       "Two Sum",
			Description: "Return the indices of the two numbers in nums that add up to target.",
			Difficulty:  models.DifficultyEasy,
			StarterCode: "def two_sum(nums, target):\n    pass\n",
			TestCases: []models.TestCase{
				{Input: "([2, 7, 11, 15], 9)", Output: "[0, 1]"},
				{Input: "([3, 2, 4], 6)", Output: "[1, 2]"},
				{Input: "([3, 3], 6)", Output: "[0, 1]"},
			},
		},
		{
			Title:       "Reverse String",
			Description: "Return the input string reversed.",
			Difficulty:  models.DifficultyEasy,
			StarterCode: "def reverse(s):\n    pass\n",
			TestCases: []models.TestCase{
				{Input: "'hello'", Output: "'olleh'"},
				{Input: "'a'", Output: "'a'"},
				{Input: "''", Output: "''"},
			},
		},
		{
			Title:       "Valid Palindrome",
			Description: "Return True if the string reads the same forwards and backwards, ignoring case.",
			Difficulty:  models.DifficultyEasy,
			StarterCode: "def is_palindrome(s):\n    pass\n",
			TestCases: []models.TestCase{
				{Input: "'Racecar'", Output: "True"},
				{Input: "'arena'", Output: "False"},
				{Input: "''", Output: "True"},
			},
		},
		{
			Title:       "FizzBuzz Count",
			Description: "Return how many numbers from 1 to n are divisible by 3 or 5.",
			Difficulty:  models.DifficultyMedium,
			StarterCode: "def fizzbuzz_count(n):\n    pass\n",
			TestCases: []models.TestCase{
				{Input: "15", Output: "7"},
				{Input: "1", Output: "0"},
				{Input: "100", Output: "47"},
			},
		},
		{
			Title:       "Maximum Subarray",
			Description: "Return the largest sum of a contiguous, non-empty subarray of nums.",
			Difficulty:  models.DifficultyHard,
			StarterCode: "def max_subarray(nums):\n    pass\n",
			TestCases: []models.TestCase{
				{Input: "[-2, 1, -3, 4, -1, 2, 1, -5, 4]", Output: "6"},
				{Input: "[1]", Output: "1"},
				{Input: "[-3, -1, -2]", Output: "-1"},
			},
		},
	}
}
