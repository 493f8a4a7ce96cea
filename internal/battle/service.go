package battle

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mentoro/arena/internal/models"
	"github.com/mentoro/arena/internal/scoring"
	"github.com/mentoro/arena/pkg/errors"
	"github.com/mentoro/arena/pkg/logger"
)

const (
	defaultMode          = "1v1"
	fallbackTitle        = "Code Challenge"
	fallbackStatement    = "Solve the given problem."
	maxTestCases         = 50
	maxCodeLength        = 64 * 1024
	maxTitleLength       = 255
	maxDescriptionLength = 10000
)

// Store persists matches. Implemented by repositories.MatchRepository.
type Store interface {
	CreateMatch(ctx context.Context, match *models.Match) error
	GetMatch(ctx context.Context, matchID string) (*models.Match, error)
	AddParticipant(ctx context.Context, participant *models.Participant, startedAt *time.Time) error
	RecordSubmission(ctx context.Context, participant *models.Participant) error
	SettleMatch(ctx context.Context, settlement models.Settlement) (bool, error)
	LoadOpenMatches(ctx context.Context) ([]models.Match, error)
}

// ProblemSource supplies a template when a battle is created without one
type ProblemSource interface {
	RandomProblem(ctx context.Context, difficulty string) (*models.Problem, error)
}

// Evaluator scores a submission against test cases
type Evaluator interface {
	Evaluate(ctx context.Context, code string, testCases []models.TestCase) scoring.Result
}

// RoomHub fans messages out to the users following a match
type RoomHub interface {
	Join(matchID, userID string) bool
	IsMember(matchID, userID string) bool
	Broadcast(matchID string, payload interface{}) int
	Send(userID string, payload interface{}) bool
	Close(matchID string)
}

type Options struct {
	DefaultXPWager     int64
	MaxXPWager         int64
	DefaultMaxPlayers  int
	MaxPlayersLimit    int
	DefaultTimeLimit   time.Duration
	WaitingTTL         time.Duration
	CompletedRetention time.Duration
}

// liveMatch is the in-memory copy of a match. mu serializes join,
// submission recording, completion check and settlement.
type liveMatch struct {
	mu          sync.Mutex
	match       *models.Match
	testCases   []models.TestCase
	completedAt time.Time
}

type Service struct {
	store     Store
	problems  ProblemSource
	rooms     RoomHub
	evaluator Evaluator
	opts      Options
	now       func() time.Time

	mu      sync.RWMutex
	matches map[string]*liveMatch
}

func NewService(store Store, problems ProblemSource, rooms RoomHub, evaluator Evaluator, opts Options) *Service {
	return &Service{
		store:     store,
		problems:  problems,
		rooms:     rooms,
		evaluator: evaluator,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
		matches:   make(map[string]*liveMatch),
	}
}

// CreateMatchRequest holds the battle configuration. Zero values take defaults.
type CreateMatchRequest struct {
	ProblemTitle       string            `json:"problem_title"`
	ProblemDescription string            `json:"problem_description"`
	TestCases          []models.TestCase `json:"test_cases"`
	StarterCode        string            `json:"starter_code"`
	Difficulty         string            `json:"difficulty"`
	XPWager            int64             `json:"xp_wager"`
	Mode               string            `json:"mode"`
	TimeLimitSeconds   int               `json:"time_limit"`
	MaxPlayers         int               `json:"max_players"`
}

type JoinResult struct {
	MatchStatus string `json:"match_status"`
}

type SubmitResult struct {
	scoring.Result
	MatchCompleted bool    `json:"match_completed"`
	WinnerID       *string `json:"winner_id"`
}

// Create allocates a waiting match with the creator as first participant
func (s *Service) Create(ctx context.Context, userID string, req CreateMatchRequest) (*MatchView, error) {
	if err := s.normalize(&req); err != nil {
		return nil, err
	}
	if req.ProblemTitle == "" {
		s.applyTemplate(ctx, &req)
	}

	now := s.now()
	match := &models.Match{
		ID:                 uuid.NewString(),
		CreatorID:          userID,
		ProblemTitle:       req.ProblemTitle,
		ProblemDescription: req.ProblemDescription,
		StarterCode:        req.StarterCode,
		Difficulty:         req.Difficulty,
		XPWager:            req.XPWager,
		Mode:               req.Mode,
		TimeLimitSeconds:   req.TimeLimitSeconds,
		MaxPlayers:         req.MaxPlayers,
		Status:             models.MatchStatusWaiting,
		CreatedAt:          now,
		Participants: []models.Participant{
			{UserID: userID, JoinOrder: 0, JoinedAt: now},
		},
	}
	if err := match.SetTestCases(req.TestCases); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid test cases")
	}
	if match.MaxPlayers == 1 {
		match.Status = models.MatchStatusActive
		match.StartedAt = &now
	}

	if err := s.store.CreateMatch(ctx, match); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDependencyFailure, "failed to store match")
	}

	lm := &liveMatch{match: match, testCases: req.TestCases}
	lm.mu.Lock()
	defer lm.mu.Unlock()

	s.mu.Lock()
	s.matches[match.ID] = lm
	s.mu.Unlock()

	s.rooms.Join(match.ID, userID)
	if match.Status == models.MatchStatusActive {
		s.announceStart(match)
	}

	logger.Info("Match created",
		"match_id", match.ID,
		"creator_id", userID,
		"max_players", match.MaxPlayers,
		"xp_wager", match.XPWager,
	)

	return newMatchView(match, req.TestCases), nil
}

func (s *Service) normalize(req *CreateMatchRequest) error {
	if req.MaxPlayers == 0 {
		req.MaxPlayers = s.opts.DefaultMaxPlayers
	}
	if req.MaxPlayers < 1 || req.MaxPlayers > s.opts.MaxPlayersLimit {
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("max_players must be between 1 and %d", s.opts.MaxPlayersLimit))
	}

	if req.XPWager == 0 {
		req.XPWager = s.opts.DefaultXPWager
	}
	if req.XPWager < 0 || req.XPWager > s.opts.MaxXPWager {
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("xp_wager must be between 0 and %d", s.opts.MaxXPWager))
	}

	if req.TimeLimitSeconds == 0 {
		req.TimeLimitSeconds = int(s.opts.DefaultTimeLimit / time.Second)
	}
	if req.TimeLimitSeconds < 0 {
		return errors.New(errors.ErrCodeValidation, "time_limit must be positive")
	}

	if req.Difficulty == "" {
		req.Difficulty = models.DifficultyMedium
	}
	if !models.ValidDifficulty(req.Difficulty) {
		return errors.New(errors.ErrCodeValidation, "difficulty must be easy, medium or hard")
	}

	if req.Mode == "" {
		req.Mode = defaultMode
	}

	if len([]rune(req.ProblemTitle)) > maxTitleLength {
		return errors.New(errors.ErrCodeValidation, "problem_title is too long")
	}
	if len([]rune(req.ProblemDescription)) > maxDescriptionLength {
		return errors.New(errors.ErrCodeValidation, "problem_description is too long")
	}
	if len(req.TestCases) > maxTestCases {
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("at most %d test cases are allowed", maxTestCases))
	}

	return nil
}

// applyTemplate fills the problem from a stored template, or a generic
// placeholder when none is available
func (s *Service) applyTemplate(ctx context.Context, req *CreateMatchRequest) {
	problem, err := s.problems.RandomProblem(ctx, req.Difficulty)
	if err == nil {
		cases, decodeErr := problem.GetTestCases()
		if decodeErr == nil {
			req.ProblemTitle = problem.Title
			req.ProblemDescription = problem.Description
			req.StarterCode = problem.StarterCode
			req.TestCases = cases
			return
		}
		err = decodeErr
	}
	if !errors.Is(err, errors.ErrCodeNotFound) {
		logger.Warn("Problem template lookup failed", "difficulty", req.Difficulty, "error", err)
	}

	req.ProblemTitle = fallbackTitle
	if req.ProblemDescription == "" {
		req.ProblemDescription = fallbackStatement
	}
}

// ListActive returns waiting and active matches, newest first
func (s *Service) ListActive() []MatchView {
	s.mu.RLock()
	live := make([]*liveMatch, 0, len(s.matches))
	for _, lm := range s.matches {
		live = append(live, lm)
	}
	s.mu.RUnlock()

	views := make([]MatchView, 0, len(live))
	for _, lm := range live {
		lm.mu.Lock()
		if lm.match.Status != models.MatchStatusCompleted {
			views = append(views, *newMatchView(lm.match, lm.testCases))
		}
		lm.mu.Unlock()
	}

	sort.Slice(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
	return views
}

// Get returns a match from memory, falling back to the store
func (s *Service) Get(ctx context.Context, matchID string) (*MatchView, error) {
	if lm := s.live(matchID); lm != nil {
		lm.mu.Lock()
		defer lm.mu.Unlock()
		return newMatchView(lm.match, lm.testCases), nil
	}

	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, storeError(err, "failed to load match")
	}
	cases, _ := match.GetTestCases()
	return newMatchView(match, cases), nil
}

// Join adds a participant to a waiting match and activates it once full
func (s *Service) Join(ctx context.Context, matchID, userID string) (*JoinResult, error) {
	lm := s.live(matchID)
	if lm == nil {
		return nil, s.missing(ctx, matchID, errors.ErrCodeNotJoinable)
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	match := lm.match
	if match.Status != models.MatchStatusWaiting {
		return nil, errors.New(errors.ErrCodeNotJoinable, fmt.Sprintf("match is %s", match.Status))
	}
	if match.Participant(userID) != nil {
		return nil, errors.New(errors.ErrCodeAlreadyJoined, "already joined this match")
	}
	if len(match.Participants) >= match.MaxPlayers {
		return nil, errors.New(errors.ErrCodeNotJoinable, "match is full")
	}

	now := s.now()
	participant := models.Participant{
		MatchID:   match.ID,
		UserID:    userID,
		JoinOrder: len(match.Participants),
		JoinedAt:  now,
	}

	var startedAt *time.Time
	if len(match.Participants)+1 == match.MaxPlayers {
		startedAt = &now
	}

	if err := s.store.AddParticipant(ctx, &participant, startedAt); err != nil {
		return nil, storeError(err, "failed to add participant")
	}

	match.Participants = append(match.Participants, participant)
	s.rooms.Join(match.ID, userID)

	if startedAt != nil {
		match.Status = models.MatchStatusActive
		match.StartedAt = startedAt
		s.announceStart(match)
	}

	logger.Info("Participant joined match",
		"match_id", match.ID,
		"user_id", userID,
		"participants", len(match.Participants),
		"status", match.Status,
	)

	return &JoinResult{MatchStatus: match.Status}, nil
}

func (s *Service) announceStart(match *models.Match) {
	delivered := s.rooms.Broadcast(match.ID, startedMessage(match))
	logger.Info("Match started", "match_id", match.ID, "delivered", delivered)
}

// Submit evaluates code for a participant, records the result and settles
// the match when it was the last outstanding submission
func (s *Service) Submit(ctx context.Context, matchID, userID, code string) (*SubmitResult, error) {
	if len(code) > maxCodeLength {
		return nil, errors.New(errors.ErrCodeValidation, "code is too long")
	}

	lm := s.live(matchID)
	if lm == nil {
		return nil, s.missing(ctx, matchID, errors.ErrCodeNotActive)
	}

	lm.mu.Lock()
	err := s.expireIfOverdue(ctx, lm)
	if err == nil {
		err = checkSubmittable(lm.match, userID)
	}
	testCases := lm.testCases
	lm.mu.Unlock()
	if err != nil {
		return nil, err
	}

	result := s.evaluator.Evaluate(ctx, code, testCases)

	lm.mu.Lock()
	defer lm.mu.Unlock()

	if err := s.expireIfOverdue(ctx, lm); err != nil {
		return nil, err
	}
	match := lm.match
	if err := checkSubmittable(match, userID); err != nil {
		return nil, err
	}

	submittedAt := s.now()
	record := *match.Participant(userID)
	record.CodeSubmission = &code
	record.Score = result.Score
	record.TestsPassed = result.Passed
	record.TotalTests = result.Total
	record.CompletionTime = int(submittedAt.Sub(*match.StartedAt) / time.Second)
	record.SubmittedAt = &submittedAt

	if err := s.store.RecordSubmission(ctx, &record); err != nil {
		return nil, storeError(err, "failed to record submission")
	}
	*match.Participant(userID) = record

	logger.Info("Submission recorded",
		"match_id", match.ID,
		"user_id", userID,
		"score", result.Score,
		"passed", result.Passed,
		"total", result.Total,
	)

	out := &SubmitResult{Result: result}
	if match.AllSubmitted() {
		settled, err := s.settleLocked(ctx, lm, models.MatchOutcomeWinner)
		if err != nil {
			logger.Error("Match settlement failed, will retry", "match_id", match.ID, "error", err)
		}
		out.MatchCompleted = settled || lm.match.Status == models.MatchStatusCompleted
		out.WinnerID = lm.match.WinnerID
	}

	return out, nil
}

// expireIfOverdue times out an active match whose deadline has passed and
// reports NotActive. lm.mu must be held.
func (s *Service) expireIfOverdue(ctx context.Context, lm *liveMatch) error {
	match := lm.match
	if match.Status != models.MatchStatusActive || match.AllSubmitted() {
		return nil
	}
	deadline, ok := match.Deadline()
	if !ok || s.now().Before(deadline) {
		return nil
	}

	if _, err := s.settleLocked(ctx, lm, models.MatchOutcomeTimeout); err != nil {
		logger.Error("Match timeout settlement failed, will retry", "match_id", match.ID, "error", err)
	}
	return errors.New(errors.ErrCodeNotActive, "match time limit has passed")
}

func checkSubmittable(match *models.Match, userID string) error {
	if match.Status != models.MatchStatusActive {
		return errors.New(errors.ErrCodeNotActive, "match is not active")
	}
	participant := match.Participant(userID)
	if participant == nil {
		return errors.New(errors.ErrCodeNotParticipant, "not a participant in this match")
	}
	if participant.HasSubmitted() {
		return errors.New(errors.ErrCodeAlreadySubmitted, "already submitted")
	}
	return nil
}

// CheckCompletion settles an active match whose participants have all
// submitted. Calling it again after completion has no effect.
func (s *Service) CheckCompletion(ctx context.Context, matchID string) (bool, error) {
	lm := s.live(matchID)
	if lm == nil {
		return false, nil
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	if lm.match.Status != models.MatchStatusActive || !lm.match.AllSubmitted() {
		return false, nil
	}
	return s.settleLocked(ctx, lm, models.MatchOutcomeWinner)
}

// settleLocked commits the terminal transition and broadcasts the result.
// lm.mu must be held.
func (s *Service) settleLocked(ctx context.Context, lm *liveMatch, outcome string) (bool, error) {
	match := lm.match
	if match.Status == models.MatchStatusCompleted {
		return false, nil
	}

	var winnerID *string
	if outcome == models.MatchOutcomeWinner {
		if winner := PickWinner(match.Participants); winner != nil {
			id := winner.UserID
			winnerID = &id
		}
	}

	endedAt := s.now()
	settlement := models.Settlement{
		MatchID:     match.ID,
		FromStatus:  match.Status,
		Outcome:     outcome,
		WinnerID:    winnerID,
		EndedAt:     endedAt,
		XPReward:    match.XPWager,
		Description: fmt.Sprintf("Won battle: %s", match.ProblemTitle),
	}

	settled, err := s.store.SettleMatch(ctx, settlement)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDependencyFailure, "failed to settle match")
	}

	if !settled {
		// Another writer completed the match; adopt its result without re-announcing.
		if stored, getErr := s.store.GetMatch(ctx, match.ID); getErr == nil {
			lm.match = stored
		} else {
			match.Status = models.MatchStatusCompleted
		}
		lm.completedAt = endedAt
		s.rooms.Close(match.ID)
		logger.Warn("Match already settled elsewhere", "match_id", match.ID)
		return false, nil
	}

	match.Status = models.MatchStatusCompleted
	match.Outcome = outcome
	match.WinnerID = winnerID
	match.EndedAt = &endedAt
	lm.completedAt = endedAt

	delivered := s.rooms.Broadcast(match.ID, endedMessage(match))
	s.rooms.Close(match.ID)

	logger.Info("Match completed",
		"match_id", match.ID,
		"outcome", outcome,
		"winner_id", winnerID,
		"xp_reward", match.XPWager,
		"delivered", delivered,
	)

	return true, nil
}

// PickWinner returns the submitted participant with the highest score.
// Ties go to the earlier submission, then to the earlier joiner.
func PickWinner(participants []models.Participant) *models.Participant {
	var best *models.Participant
	for i := range participants {
		p := &participants[i]
		if !p.HasSubmitted() {
			continue
		}
		if best == nil || beats(p, best) {
			best = p
		}
	}
	return best
}

func beats(a, b *models.Participant) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.SubmittedAt.Equal(*b.SubmittedAt) {
		return a.SubmittedAt.Before(*b.SubmittedAt)
	}
	return a.JoinOrder < b.JoinOrder
}

func (s *Service) live(matchID string) *liveMatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matches[matchID]
}

// missing explains why a match is not live: it either never existed or has
// already finished, in which case finishedCode is returned
func (s *Service) missing(ctx context.Context, matchID, finishedCode string) error {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return storeError(err, "failed to load match")
	}
	return errors.New(finishedCode, fmt.Sprintf("match is %s", match.Status))
}

// storeError keeps domain errors from the store and marks the rest as
// dependency failures
func storeError(err error, message string) error {
	switch errors.CodeOf(err) {
	case errors.ErrCodeNotFound,
		errors.ErrCodeNotJoinable,
		errors.ErrCodeAlreadyJoined,
		errors.ErrCodeNotActive,
		errors.ErrCodeAlreadySubmitted:
		return err
	}
	return errors.Wrap(err, errors.ErrCodeDependencyFailure, message)
}
