package battle

import (
	"context"
	stderrors "errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/mentoro/arena/internal/models"
	"github.com/mentoro/arena/internal/realtime"
	"github.com/mentoro/arena/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_AppliesDefaults(t *testing.T) {
	h := newHarness(t)
	h.connect("alice")

	view, err := h.svc.Create(context.Background(), "alice", CreateMatchRequest{ProblemTitle: "Sum"})
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusWaiting, view.Status)
	assert.Equal(t, 2, view.MaxPlayers)
	assert.Equal(t, int64(100), view.XPWager)
	assert.Equal(t, 1800, view.TimeLimitSeconds)
	assert.Equal(t, models.DifficultyMedium, view.Difficulty)
	assert.Equal(t, "1v1", view.Mode)
	assert.Equal(t, 1, view.ParticipantCount)
	assert.True(t, h.rooms.IsMember(view.ID, "alice"))
	assert.Equal(t, 0, h.channels["alice"].count(realtime.TypeMatchStarted))
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  CreateMatchRequest
	}{
		{name: "Too many players", req: CreateMatchRequest{MaxPlayers: 9}},
		{name: "Negative players", req: CreateMatchRequest{MaxPlayers: -1}},
		{name: "Wager above max", req: CreateMatchRequest{XPWager: 5000}},
		{name: "Negative time limit", req: CreateMatchRequest{TimeLimitSeconds: -5}},
		{name: "Unknown difficulty", req: CreateMatchRequest{Difficulty: "insane"}},
		{name: "Too many test cases", req: CreateMatchRequest{TestCases: make([]models.TestCase, 51)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.svc.Create(context.Background(), "alice", tt.req)
			assert.True(t, errors.Is(err, errors.ErrCodeValidation), "got %v", err)
		})
	}
}

func TestCreate_UsesProblemTemplate(t *testing.T) {
	h := newHarness(t)
	problem := &models.Problem{Title: "Reverse String", Description: "Reverse it", StarterCode: "def reverse(s):\n    pass\n"}
	require.NoError(t, problem.SetTestCases([]models.TestCase{{Input: "'ab'", Output: "'ba'"}}))
	h.svc.problems = &fakeProblems{problem: problem}

	view, err := h.svc.Create(context.Background(), "alice", CreateMatchRequest{})
	require.NoError(t, err)

	assert.Equal(t, "Reverse String", view.ProblemTitle)
	assert.Equal(t, problem.StarterCode, view.StarterCode)
	require.Len(t, view.TestCases, 1)
	assert.Equal(t, "'ba'", view.TestCases[0].Output)
}

func TestCreate_FallsBackWithoutTemplate(t *testing.T) {
	h := newHarness(t)

	view, err := h.svc.Create(context.Background(), "alice", CreateMatchRequest{})
	require.NoError(t, err)

	assert.Equal(t, "Code Challenge", view.ProblemTitle)
	assert.Empty(t, view.TestCases)
}

func TestCreate_SinglePlayerStartsImmediately(t *testing.T) {
	h := newHarness(t)
	h.connect("alice")

	view, err := h.svc.Create(context.Background(), "alice", CreateMatchRequest{ProblemTitle: "Solo", MaxPlayers: 1})
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusActive, view.Status)
	assert.NotNil(t, view.StartedAt)
	assert.Equal(t, 1, h.channels["alice"].count(realtime.TypeMatchStarted))
}

func TestCreate_StoreFailure(t *testing.T) {
	h := newHarness(t)
	h.store.FailCreate = stderrors.New("connection refused")

	_, err := h.svc.Create(context.Background(), "alice", CreateMatchRequest{ProblemTitle: "x"})

	assert.True(t, errors.Is(err, errors.ErrCodeDependencyFailure))
	assert.Empty(t, h.svc.ListActive())
}

func TestJoin_ActivationBroadcastsOnce(t *testing.T) {
	h := newHarness(t)
	h.connect("alice", "bob", "carol")

	matchID := h.startMatch(t, "alice", "bob", "carol")

	view, err := h.svc.Get(context.Background(), matchID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusActive, view.Status)
	require.NotNil(t, view.StartedAt)

	for _, u := range []string{"alice", "bob", "carol"} {
		assert.Equal(t, 1, h.channels[u].count(realtime.TypeMatchStarted), "user %s", u)
	}
}

func TestJoin_Errors(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	view, err := h.svc.Create(ctx, "alice", CreateMatchRequest{ProblemTitle: "x", MaxPlayers: 2})
	require.NoError(t, err)

	_, err = h.svc.Join(ctx, view.ID, "alice")
	assert.True(t, errors.Is(err, errors.ErrCodeAlreadyJoined), "got %v", err)

	res, err := h.svc.Join(ctx, view.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusActive, res.MatchStatus)

	_, err = h.svc.Join(ctx, view.ID, "carol")
	assert.True(t, errors.Is(err, errors.ErrCodeNotJoinable), "got %v", err)

	_, err = h.svc.Join(ctx, "missing", "carol")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound), "got %v", err)
}

func TestJoin_CompletedAndEvictedMatch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	matchID := h.startMatch(t, "alice")

	_, err := h.svc.Submit(ctx, matchID, "alice", "score:500")
	require.NoError(t, err)
	h.svc.ExpireOverdue(ctx, h.clock.Now().Add(time.Hour))

	_, err = h.svc.Join(ctx, matchID, "bob")
	assert.True(t, errors.Is(err, errors.ErrCodeNotJoinable), "got %v", err)

	_, err = h.svc.Submit(ctx, matchID, "alice", "score:900")
	assert.True(t, errors.Is(err, errors.ErrCodeNotActive), "got %v", err)
}

func TestJoin_StoreFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	view, err := h.svc.Create(ctx, "alice", CreateMatchRequest{ProblemTitle: "x"})
	require.NoError(t, err)

	h.store.FailAdd = stderrors.New("timeout")
	_, err = h.svc.Join(ctx, view.ID, "bob")
	assert.True(t, errors.Is(err, errors.ErrCodeDependencyFailure), "got %v", err)

	got, err := h.svc.Get(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ParticipantCount)
	assert.Equal(t, models.MatchStatusWaiting, got.Status)
	assert.False(t, h.rooms.IsMember(view.ID, "bob"))
}

func TestSubmit_HighestScoreWinsWithEarliestTieBreak(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.connect("a", "b", "c")
	matchID := h.startMatch(t, "a", "b", "c")

	res, err := h.svc.Submit(ctx, matchID, "a", "score:700")
	require.NoError(t, err)
	assert.False(t, res.MatchCompleted)
	assert.Equal(t, 700, res.Score)

	res, err = h.svc.Submit(ctx, matchID, "b", "score:700")
	require.NoError(t, err)
	assert.False(t, res.MatchCompleted)

	res, err = h.svc.Submit(ctx, matchID, "c", "score:300")
	require.NoError(t, err)
	require.True(t, res.MatchCompleted)
	require.NotNil(t, res.WinnerID)
	assert.Equal(t, "a", *res.WinnerID)

	settlements := h.store.Settlements()
	require.Len(t, settlements, 1)
	assert.Equal(t, models.MatchOutcomeWinner, settlements[0].Outcome)
	assert.Equal(t, int64(100), settlements[0].XPReward)
	assert.Equal(t, "a", *settlements[0].WinnerID)

	for _, u := range []string{"a", "b", "c"} {
		ch := h.channels[u]
		require.Equal(t, 1, ch.count(realtime.TypeMatchEnded), "user %s", u)
		ended := ch.last(realtime.TypeMatchEnded)
		assert.Equal(t, "a", ended["winner_id"])
		assert.Equal(t, matchID, ended["match_id"])
		assert.Len(t, ended["results"], 3)
	}
	assert.Empty(t, h.rooms.Members(matchID))
}

func TestSubmit_Errors(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	waiting, err := h.svc.Create(ctx, "alice", CreateMatchRequest{ProblemTitle: "x"})
	require.NoError(t, err)
	_, err = h.svc.Submit(ctx, waiting.ID, "alice", "score:1")
	assert.True(t, errors.Is(err, errors.ErrCodeNotActive), "got %v", err)

	matchID := h.startMatch(t, "a", "b")

	_, err = h.svc.Submit(ctx, matchID, "stranger", "score:1")
	assert.True(t, errors.Is(err, errors.ErrCodeNotParticipant), "got %v", err)

	_, err = h.svc.Submit(ctx, matchID, "a", "score:400")
	require.NoError(t, err)
	_, err = h.svc.Submit(ctx, matchID, "a", "score:900")
	assert.True(t, errors.Is(err, errors.ErrCodeAlreadySubmitted), "got %v", err)

	_, err = h.svc.Submit(ctx, "missing", "a", "score:1")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound), "got %v", err)
}

func TestSubmit_RecordFailureKeepsParticipantOpen(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	matchID := h.startMatch(t, "a", "b")

	h.store.FailRecord = stderrors.New("disk full")
	_, err := h.svc.Submit(ctx, matchID, "a", "score:400")
	assert.True(t, errors.Is(err, errors.ErrCodeDependencyFailure), "got %v", err)

	h.store.FailRecord = nil
	_, err = h.svc.Submit(ctx, matchID, "a", "score:400")
	assert.NoError(t, err)
}

func TestCheckCompletion_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.connect("a", "b")
	matchID := h.startMatch(t, "a", "b")

	_, err := h.svc.Submit(ctx, matchID, "a", "score:100")
	require.NoError(t, err)
	res, err := h.svc.Submit(ctx, matchID, "b", "score:900")
	require.NoError(t, err)
	require.True(t, res.MatchCompleted)

	for i := 0; i < 3; i++ {
		done, err := h.svc.CheckCompletion(ctx, matchID)
		require.NoError(t, err)
		assert.False(t, done)
	}

	assert.Len(t, h.store.Settlements(), 1)
	assert.Equal(t, 1, h.channels["a"].count(realtime.TypeMatchEnded))
	assert.Equal(t, 1, h.channels["b"].count(realtime.TypeMatchEnded))
}

func TestSettlementFailureIsRetriedBySweep(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.connect("a", "b")
	matchID := h.startMatch(t, "a", "b")

	h.store.SetFailSettle(stderrors.New("deadlock detected"))
	_, err := h.svc.Submit(ctx, matchID, "a", "score:800")
	require.NoError(t, err)
	res, err := h.svc.Submit(ctx, matchID, "b", "score:200")
	require.NoError(t, err)

	assert.False(t, res.MatchCompleted)
	assert.Nil(t, res.WinnerID)
	assert.Equal(t, 0, h.channels["a"].count(realtime.TypeMatchEnded))

	assert.Equal(t, 0, h.svc.ExpireOverdue(ctx, h.clock.Now()))

	h.store.SetFailSettle(nil)
	assert.Equal(t, 1, h.svc.ExpireOverdue(ctx, h.clock.Now()))

	view, err := h.svc.Get(ctx, matchID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, view.Status)
	require.NotNil(t, view.WinnerID)
	assert.Equal(t, "a", *view.WinnerID)
	assert.Equal(t, 1, h.channels["b"].count(realtime.TypeMatchEnded))
}

func TestConcurrentSubmissionsCompleteOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	users := []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8"}
	h.connect(users...)
	matchID := h.startMatch(t, users...)

	var wg sync.WaitGroup
	for i, u := range users {
		wg.Add(1)
		go func(user string, score int) {
			defer wg.Done()
			_, err := h.svc.Submit(ctx, matchID, user, "score:"+strconv.Itoa(score))
			assert.NoError(t, err)
		}(u, i*100)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.svc.CheckCompletion(ctx, matchID)
		}()
	}
	wg.Wait()

	settlements := h.store.Settlements()
	require.Len(t, settlements, 1)
	assert.Equal(t, "u8", *settlements[0].WinnerID)
	for _, u := range users {
		assert.Equal(t, 1, h.channels[u].count(realtime.TypeMatchEnded), "user %s", u)
	}
}

func TestPickWinner(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(sec int) *time.Time {
		ts := base.Add(time.Duration(sec) * time.Second)
		return &ts
	}

	tests := []struct {
		name         string
		participants []models.Participant
		want         string
	}{
		{
			name: "Highest score",
			participants: []models.Participant{
				{UserID: "a", Score: 300, SubmittedAt: at(1), JoinOrder: 0},
				{UserID: "b", Score: 900, SubmittedAt: at(2), JoinOrder: 1},
			},
			want: "b",
		},
		{
			name: "Tie goes to earlier submission",
			participants: []models.Participant{
				{UserID: "a", Score: 700, SubmittedAt: at(5), JoinOrder: 0},
				{UserID: "b", Score: 700, SubmittedAt: at(3), JoinOrder: 1},
				{UserID: "c", Score: 300, SubmittedAt: at(1), JoinOrder: 2},
			},
			want: "b",
		},
		{
			name: "Same instant goes to earlier joiner",
			participants: []models.Participant{
				{UserID: "b", Score: 500, SubmittedAt: at(4), JoinOrder: 1},
				{UserID: "a", Score: 500, SubmittedAt: at(4), JoinOrder: 0},
			},
			want: "a",
		},
		{
			name: "Unsubmitted participants are ignored",
			participants: []models.Participant{
				{UserID: "a", JoinOrder: 0},
				{UserID: "b", Score: 0, SubmittedAt: at(9), JoinOrder: 1},
			},
			want: "b",
		},
		{
			name:         "Nobody submitted",
			participants: []models.Participant{{UserID: "a"}, {UserID: "b"}},
			want:         "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			winner := PickWinner(tt.participants)
			if tt.want == "" {
				assert.Nil(t, winner)
				return
			}
			require.NotNil(t, winner)
			assert.Equal(t, tt.want, winner.UserID)
		})
	}
}
