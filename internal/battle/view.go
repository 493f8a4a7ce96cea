package battle

import (
	"time"

	"github.com/mentoro/arena/internal/models"
	"github.com/mentoro/arena/internal/realtime"
)

// MatchView is the public shape of a match. Submitted code is never exposed.
type MatchView struct {
	ID                 string            `json:"id"`
	Creator            string            `json:"creator"`
	ProblemTitle       string            `json:"problem_title"`
	ProblemDescription string            `json:"problem_description"`
	TestCases          []models.TestCase `json:"test_cases"`
	StarterCode        string            `json:"starter_code"`
	Difficulty         string            `json:"difficulty"`
	XPWager            int64             `json:"xp_wager"`
	Mode               string            `json:"mode"`
	TimeLimitSeconds   int               `json:"time_limit"`
	MaxPlayers         int               `json:"max_players"`
	Status             string            `json:"status"`
	Outcome            string            `json:"outcome,omitempty"`
	WinnerID           *string           `json:"winner_id"`
	ParticipantCount   int               `json:"participant_count"`
	Participants       []ParticipantView `json:"participants"`
	StartedAt          *time.Time        `json:"started_at"`
	EndedAt            *time.Time        `json:"ended_at"`
	CreatedAt          time.Time         `json:"created_at"`
}

type ParticipantView struct {
	UserID         string     `json:"user_id"`
	JoinOrder      int        `json:"join_order"`
	Score          int        `json:"score"`
	TestsPassed    int        `json:"tests_passed"`
	TotalTests     int        `json:"total_tests"`
	CompletionTime int        `json:"completion_time"`
	Submitted      bool       `json:"submitted"`
	SubmittedAt    *time.Time `json:"submitted_at"`
}

func newMatchView(m *models.Match, testCases []models.TestCase) *MatchView {
	if testCases == nil {
		testCases = []models.TestCase{}
	}
	view := &MatchView{
		ID:                 m.ID,
		Creator:            m.CreatorID,
		ProblemTitle:       m.ProblemTitle,
		ProblemDescription: m.ProblemDescription,
		TestCases:          testCases,
		StarterCode:        m.StarterCode,
		Difficulty:         m.Difficulty,
		XPWager:            m.XPWager,
		Mode:               m.Mode,
		TimeLimitSeconds:   m.TimeLimitSeconds,
		MaxPlayers:         m.MaxPlayers,
		Status:             m.Status,
		Outcome:            m.Outcome,
		WinnerID:           m.WinnerID,
		ParticipantCount:   len(m.Participants),
		Participants:       make([]ParticipantView, 0, len(m.Participants)),
		StartedAt:          m.StartedAt,
		EndedAt:            m.EndedAt,
		CreatedAt:          m.CreatedAt,
	}
	for _, p := range m.Participants {
		view.Participants = append(view.Participants, ParticipantView{
			UserID:         p.UserID,
			JoinOrder:      p.JoinOrder,
			Score:          p.Score,
			TestsPassed:    p.TestsPassed,
			TotalTests:     p.TotalTests,
			CompletionTime: p.CompletionTime,
			Submitted:      p.HasSubmitted(),
			SubmittedAt:    p.SubmittedAt,
		})
	}
	return view
}

func startedMessage(m *models.Match) realtime.MatchStartedMessage {
	return realtime.MatchStartedMessage{
		Type:    realtime.TypeMatchStarted,
		MatchID: m.ID,
		Message: "Battle started! Good luck!",
	}
}

func endedMessage(m *models.Match) realtime.MatchEndedMessage {
	results := make([]realtime.ParticipantResult, 0, len(m.Participants))
	for _, p := range m.Participants {
		results = append(results, realtime.ParticipantResult{
			UserID:         p.UserID,
			Score:          p.Score,
			TestsPassed:    p.TestsPassed,
			TotalTests:     p.TotalTests,
			CompletionTime: p.CompletionTime,
			Submitted:      p.HasSubmitted(),
		})
	}
	return realtime.MatchEndedMessage{
		Type:     realtime.TypeMatchEnded,
		MatchID:  m.ID,
		WinnerID: m.WinnerID,
		Outcome:  m.Outcome,
		Results:  results,
	}
}
