package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

type Match struct {
	ID                 string        `gorm:"primaryKey;type:varchar(36)"`
	CreatorID          string        `gorm:"type:varchar(64);not null;index"`
	ProblemTitle       string        `gorm:"type:varchar(255);not null"`
	ProblemDescription string        `gorm:"type:text"`
	TestCases          string        `gorm:"type:jsonb"` // JSON array of TestCase
	StarterCode        string        `gorm:"type:text"`
	Difficulty         string        `gorm:"type:varchar(20);default:'medium'"`
	XPWager            int64         `gorm:"default:100;not null"`
	Mode               string        `gorm:"type:varchar(20);default:'1v1'"`
	TimeLimitSeconds   int           `gorm:"default:1800;not null"`
	MaxPlayers         int           `gorm:"default:2;not null"`
	Status             string        `gorm:"type:varchar(20);default:'waiting';index"`
	Outcome            string        `gorm:"type:varchar(20)"`
	WinnerID           *string       `gorm:"type:varchar(64);index"`
	StartedAt          *time.Time    `gorm:"index"`
	EndedAt            *time.Time    `gorm:"index"`
	CreatedAt          time.Time     `gorm:"autoCreateTime;index"`
	UpdatedAt          time.Time     `gorm:"autoUpdateTime"`
	Participants       []Participant `gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`
}

// Match status constants
const (
	MatchStatusWaiting   = "waiting"
	MatchStatusActive    = "active"
	MatchStatusCompleted = "completed"
)

// Match outcome constants
const (
	MatchOutcomeWinner    = "winner"
	MatchOutcomeTimeout   = "timeout"
	MatchOutcomeCancelled = "cancelled"
)

// Difficulty constants
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// TestCase is one input/expected-output pair. Both sides are expression literals.
type TestCase struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

func (Match) TableName() string {
	return "matches"
}

// GetTestCases decodes the stored test case list
func (m *Match) GetTestCases() ([]TestCase, error) {
	return decodeTestCases(m.TestCases)
}

// SetTestCases encodes the test case list for storage
func (m *Match) SetTestCases(cases []TestCase) error {
	raw, err := encodeTestCases(cases)
	if err != nil {
		return err
	}
	m.TestCases = raw
	return nil
}

// Participant looks up a participant by user id
func (m *Match) Participant(userID string) *Participant {
	for i := range m.Participants {
		if m.Participants[i].UserID == userID {
			return &m.Participants[i]
		}
	}
	return nil
}

// AllSubmitted reports whether every participant has a recorded submission
func (m *Match) AllSubmitted() bool {
	if len(m.Participants) == 0 {
		return false
	}
	for i := range m.Participants {
		if !m.Participants[i].HasSubmitted() {
			return false
		}
	}
	return true
}

// Deadline returns when an active match runs out of time
func (m *Match) Deadline() (time.Time, bool) {
	if m.StartedAt == nil || m.TimeLimitSeconds <= 0 {
		return time.Time{}, false
	}
	return m.StartedAt.Add(time.Duration(m.TimeLimitSeconds) * time.Second), true
}

// BeforeSave hook for validation
func (m *Match) BeforeSave(tx *gorm.DB) error {
	if m.ID == "" || m.CreatorID == "" {
		return gorm.ErrInvalidData
	}
	if m.MaxPlayers < 1 || m.XPWager < 0 {
		return gorm.ErrInvalidData
	}
	return nil
}

type Participant struct {
	ID             uint       `gorm:"primaryKey"`
	MatchID        string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_participant_match_user"`
	UserID         string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_participant_match_user;index"`
	JoinOrder      int        `gorm:"not null"`
	CodeSubmission *string    `gorm:"type:text"`
	Score          int        `gorm:"default:0"`
	TestsPassed    int        `gorm:"default:0"`
	TotalTests     int        `gorm:"default:0"`
	CompletionTime int        `gorm:"default:0"` // seconds since the match started
	SubmittedAt    *time.Time `gorm:"index"`
	JoinedAt       time.Time  `gorm:"autoCreateTime"`
}

func (Participant) TableName() string {
	return "match_participants"
}

// HasSubmitted reports whether a submission has been recorded
func (p *Participant) HasSubmitted() bool {
	return p.SubmittedAt != nil
}

// Settlement describes the terminal transition of a match and its reward
type Settlement struct {
	MatchID     string
	FromStatus  string
	Outcome     string
	WinnerID    *string
	EndedAt     time.Time
	XPReward    int64
	Description string
}

func decodeTestCases(raw string) ([]TestCase, error) {
	if raw == "" {
		return nil, nil
	}
	var cases []TestCase
	if err := json.Unmarshal([]byte(raw), &cases); err != nil {
		return nil, err
	}
	return cases, nil
}

func encodeTestCases(cases []TestCase) (string, error) {
	if cases == nil {
		cases = []TestCase{}
	}
	data, err := json.Marshal(cases)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
