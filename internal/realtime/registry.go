package realtime

import (
	"sync"

	"github.com/mentoro/arena/pkg/errors"
	"github.com/mentoro/arena/pkg/logger"
)

// Channel is a live outbound connection to one user
type Channel interface {
	Send(message []byte) error
	Close() error
}

// Registry maps each connected user to at most one live channel
type Registry struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]Channel)}
}

// Register binds the channel to the user. A previous channel is closed.
func (r *Registry) Register(userID string, ch Channel) {
	r.mu.Lock()
	previous := r.channels[userID]
	r.channels[userID] = ch
	r.mu.Unlock()

	if previous != nil && previous != ch {
		previous.Close()
		logger.Debug("Replaced user connection", "user_id", userID)
	}
}

// Unregister removes the user's channel if any
func (r *Registry) Unregister(userID string) {
	r.mu.Lock()
	delete(r.channels, userID)
	r.mu.Unlock()
}

// Release removes the user's entry only while ch is still the current channel
func (r *Registry) Release(userID string, ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.channels[userID]; ok && current == ch {
		delete(r.channels, userID)
		return true
	}
	return false
}

// Send delivers message to the user's current channel. A failed delivery
// drops and closes the entry, logs a warning and returns false. The error
// never reaches the caller.
func (r *Registry) Send(userID string, message []byte) bool {
	r.mu.RLock()
	ch, ok := r.channels[userID]
	r.mu.RUnlock()

	if !ok {
		return false
	}

	if err := ch.Send(message); err != nil {
		if r.Release(userID, ch) {
			ch.Close()
		}
		logger.Warn("Message delivery failed",
			"user_id", userID,
			"error", errors.Wrap(err, errors.ErrCodeDeliveryFailure, "send failed"),
		)
		return false
	}
	return true
}

// Connected reports whether the user has a live channel
func (r *Registry) Connected(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.channels[userID]
	return ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}
