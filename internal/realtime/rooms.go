package realtime

import (
	"encoding/json"
	"sync"

	"github.com/mentoro/arena/pkg/logger"
)

// Rooms tracks which users follow which match
type Rooms struct {
	registry *Registry

	mu    sync.RWMutex
	rooms map[string][]string
}

func NewRooms(registry *Registry) *Rooms {
	return &Rooms{
		registry: registry,
		rooms:    make(map[string][]string),
	}
}

// Join adds the user to the match room. It returns false if already a member.
func (r *Rooms) Join(matchID, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, member := range r.rooms[matchID] {
		if member == userID {
			return false
		}
	}
	r.rooms[matchID] = append(r.rooms[matchID], userID)
	return true
}

// Members returns the room's users in join order
func (r *Rooms) Members(matchID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]string, len(r.rooms[matchID]))
	copy(members, r.rooms[matchID])
	return members
}

func (r *Rooms) IsMember(matchID, userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, member := range r.rooms[matchID] {
		if member == userID {
			return true
		}
	}
	return false
}

// Broadcast sends payload to every member and returns how many deliveries
// succeeded. Members are delivered to independently.
func (r *Rooms) Broadcast(matchID string, payload interface{}) int {
	message, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal room message", "match_id", matchID, "error", err)
		return 0
	}

	delivered := 0
	for _, userID := range r.Members(matchID) {
		if r.registry.Send(userID, message) {
			delivered++
		}
	}
	return delivered
}

// Send delivers payload to a single user
func (r *Rooms) Send(userID string, payload interface{}) bool {
	message, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal message", "user_id", userID, "error", err)
		return false
	}
	return r.registry.Send(userID, message)
}

// Close tears down the room
func (r *Rooms) Close(matchID string) {
	r.mu.Lock()
	delete(r.rooms, matchID)
	r.mu.Unlock()
}

// Count returns the number of open rooms
func (r *Rooms) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
