package battle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mentoro/arena/internal/battle/battletest"
	"github.com/mentoro/arena/internal/models"
	"github.com/mentoro/arena/internal/realtime"
	"github.com/mentoro/arena/internal/scoring"
	"github.com/mentoro/arena/pkg/errors"
)

type fakeProblems struct {
	problem *models.Problem
	err     error
}

func (f *fakeProblems) RandomProblem(ctx context.Context, difficulty string) (*models.Problem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.problem, nil
}

// scriptedEvaluator reads the score from code of the form "score:NNN"
type scriptedEvaluator struct{}

func (scriptedEvaluator) Evaluate(ctx context.Context, code string, testCases []models.TestCase) scoring.Result {
	var score int
	if _, err := fmt.Sscanf(code, "score:%d", &score); err != nil {
		return scoring.Result{Total: 10, Error: "unreadable"}
	}
	return scoring.Result{Score: score, Passed: score / 100, Total: 10}
}

type recordingChannel struct {
	mu       sync.Mutex
	messages []map[string]interface{}
}

func (c *recordingChannel) Send(message []byte) error {
	var decoded map[string]interface{}
	if err := json.Unmarshal(message, &decoded); err != nil {
		return err
	}
	c.mu.Lock()
	c.messages = append(c.messages, decoded)
	c.mu.Unlock()
	return nil
}

func (c *recordingChannel) Close() error { return nil }

func (c *recordingChannel) count(msgType string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.messages {
		if m["type"] == msgType {
			n++
		}
	}
	return n
}

func (c *recordingChannel) last(msgType string) map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i]["type"] == msgType {
			return c.messages[i]
		}
	}
	return nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

// Now advances by one second on every call so submissions are ordered
func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// lateEvaluator moves the clock forward while a submission is being scored
type lateEvaluator struct {
	clock *testClock
	by    time.Duration
}

func (e lateEvaluator) Evaluate(ctx context.Context, code string, testCases []models.TestCase) scoring.Result {
	e.clock.advance(e.by)
	return scriptedEvaluator{}.Evaluate(ctx, code, testCases)
}

type harness struct {
	svc      *Service
	store    *battletest.MemoryStore
	registry *realtime.Registry
	rooms    *realtime.Rooms
	clock    *testClock
	channels map[string]*recordingChannel
}

func testOptions() Options {
	return Options{
		DefaultXPWager:     100,
		MaxXPWager:         1000,
		DefaultMaxPlayers:  2,
		MaxPlayersLimit:    8,
		DefaultTimeLimit:   30 * time.Minute,
		WaitingTTL:         time.Hour,
		CompletedRetention: 10 * time.Minute,
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := battletest.NewMemoryStore()
	registry := realtime.NewRegistry()
	rooms := realtime.NewRooms(registry)
	clock := &testClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}

	svc := NewService(store, &fakeProblems{err: errors.New(errors.ErrCodeNotFound, "none")}, rooms, scriptedEvaluator{}, testOptions())
	svc.now = clock.Now

	return &harness{
		svc:      svc,
		store:    store,
		registry: registry,
		rooms:    rooms,
		clock:    clock,
		channels: make(map[string]*recordingChannel),
	}
}

func (h *harness) connect(users ...string) {
	for _, u := range users {
		ch := &recordingChannel{}
		h.channels[u] = ch
		h.registry.Register(u, ch)
	}
}

// startMatch creates a match for the first user and joins the rest
func (h *harness) startMatch(t *testing.T, users ...string) string {
	t.Helper()
	ctx := context.Background()
	view, err := h.svc.Create(ctx, users[0], CreateMatchRequest{
		ProblemTitle: "Add",
		TestCases:    []models.TestCase{{Input: "(1, 2)", Output: "3"}},
		MaxPlayers:   len(users),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	for _, u := range users[1:] {
		if _, err := h.svc.Join(ctx, view.ID, u); err != nil {
			t.Fatalf("Join(%s) error = %v", u, err)
		}
	}
	return view.ID
}
