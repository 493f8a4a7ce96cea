package realtime

import (
	"encoding/json"
	"time"
)

// Inbound message types
const (
	TypeJoinMatch    = "join_match"
	TypeMatchMessage = "match_message"
	TypeCodeUpdate   = "code_update"
)

// Outbound message types
const (
	TypeRoomJoined   = "room_joined"
	TypeChatMessage  = "chat_message"
	TypeCodeSync     = "code_sync"
	TypeMatchStarted = "match_started"
	TypeMatchEnded   = "match_ended"
	TypeError        = "error"
)

// InboundMessage is any message a client may send
type InboundMessage struct {
	Type    string          `json:"type"`
	MatchID string          `json:"match_id"`
	Content string          `json:"content,omitempty"`
	Code    string          `json:"code,omitempty"`
	Cursor  json.RawMessage `json:"cursor,omitempty"`
}

type RoomJoinedMessage struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id"`
}

type ChatMessage struct {
	Type      string    `json:"type"`
	MatchID   string    `json:"match_id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type CodeSyncMessage struct {
	Type    string          `json:"type"`
	MatchID string          `json:"match_id"`
	UserID  string          `json:"user_id"`
	Code    string          `json:"code"`
	Cursor  json.RawMessage `json:"cursor,omitempty"`
}

type MatchStartedMessage struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id"`
	Message string `json:"message"`
}

// ParticipantResult is one line of the final standings
type ParticipantResult struct {
	UserID         string `json:"user_id"`
	Score          int    `json:"score"`
	TestsPassed    int    `json:"tests_passed"`
	TotalTests     int    `json:"total_tests"`
	CompletionTime int    `json:"completion_time"`
	Submitted      bool   `json:"submitted"`
}

type MatchEndedMessage struct {
	Type     string              `json:"type"`
	MatchID  string              `json:"match_id"`
	WinnerID *string             `json:"winner_id"`
	Outcome  string              `json:"outcome"`
	Results  []ParticipantResult `json:"results"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Message string `json:"message"`
}
