package models

import (
	"testing"
	"time"
)

func TestMatch_TestCasesRoundTrip(t *testing.T) {
	m := &Match{}
	cases := []TestCase{{Input: "(2, 3)", Output: "5"}, {Input: "'abc'", Output: "'cba'"}}

	if err := m.SetTestCases(cases); err != nil {
		t.Fatalf("SetTestCases() error = %v", err)
	}

	got, err := m.GetTestCases()
	if err != nil {
		t.Fatalf("GetTestCases() error = %v", err)
	}
	if len(got) != 2 || got[1].Output != "'cba'" {
		t.Errorf("GetTestCases() = %v, want %v", got, cases)
	}
}

func TestMatch_GetTestCases_Empty(t *testing.T) {
	m := &Match{}
	got, err := m.GetTestCases()
	if err != nil || got != nil {
		t.Errorf("GetTestCases() = %v, %v; want nil, nil", got, err)
	}

	if err := m.SetTestCases(nil); err != nil {
		t.Fatalf("SetTestCases(nil) error = %v", err)
	}
	if m.TestCases != "[]" {
		t.Errorf("TestCases = %q, want []", m.TestCases)
	}
}

func TestMatch_AllSubmitted(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		match Match
		want  bool
	}{
		{name: "No participants", match: Match{}, want: false},
		{
			name: "One outstanding",
			match: Match{Participants: []Participant{
				{UserID: "a", SubmittedAt: &now},
				{UserID: "b"},
			}},
			want: false,
		},
		{
			name: "Everyone submitted",
			match: Match{Participants: []Participant{
				{UserID: "a", SubmittedAt: &now},
				{UserID: "b", SubmittedAt: &now},
			}},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.match.AllSubmitted(); got != tt.want {
				t.Errorf("AllSubmitted() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatch_Participant(t *testing.T) {
	m := &Match{Participants: []Participant{{UserID: "a", JoinOrder: 0}, {UserID: "b", JoinOrder: 1}}}

	p := m.Participant("b")
	if p == nil || p.JoinOrder != 1 {
		t.Fatalf("Participant(b) = %v", p)
	}
	p.Score = 500
	if m.Participants[1].Score != 500 {
		t.Error("Participant() should return a pointer into the slice")
	}
	if m.Participant("zz") != nil {
		t.Error("Participant(zz) should be nil")
	}
}

func TestMatch_Deadline(t *testing.T) {
	m := &Match{TimeLimitSeconds: 60}
	if _, ok := m.Deadline(); ok {
		t.Error("Deadline() should be unset before start")
	}

	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.StartedAt = &start
	deadline, ok := m.Deadline()
	if !ok || !deadline.Equal(start.Add(time.Minute)) {
		t.Errorf("Deadline() = %v, %v", deadline, ok)
	}
}

func TestMatch_BeforeSave(t *testing.T) {
	tests := []struct {
		name    string
		match   Match
		wantErr bool
	}{
		{name: "Valid", match: Match{ID: "m1", CreatorID: "u1", MaxPlayers: 2}, wantErr: false},
		{name: "Missing creator", match: Match{ID: "m1", MaxPlayers: 2}, wantErr: true},
		{name: "Zero players", match: Match{ID: "m1", CreatorID: "u1"}, wantErr: true},
		{name: "Negative wager", match: Match{ID: "m1", CreatorID: "u1", MaxPlayers: 2, XPWager: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.match.BeforeSave(nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("BeforeSave() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidDifficulty(t *testing.T) {
	for _, d := range []string{"easy", "medium", "hard"} {
		if !ValidDifficulty(d) {
			t.Errorf("ValidDifficulty(%q) = false", d)
		}
	}
	if ValidDifficulty("insane") {
		t.Error("ValidDifficulty(insane) = true")
	}
}
