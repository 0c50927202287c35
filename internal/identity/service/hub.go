package service

import (
	"sync"
	"time"

	"github.com/pillflow/pillflow-backend/pkg/logger"
)

// Session change kinds pushed to subscribers
const (
	SessionSignedIn       = "SIGNED_IN"
	SessionSignedOut      = "SIGNED_OUT"
	SessionTokenRefreshed = "TOKEN_REFRESHED"
)

const subscriberBuffer = 8

// SessionChange is pushed to a user's subscribers
type SessionChange struct {
	Event     string    `json:"event"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id,omitempty"`
	At        time.Time `json:"at"`
}

type subscriber struct {
	ch chan SessionChange
}

// SessionHub fans session changes out to per-user subscribers. A
// subscriber that is not keeping up misses events rather than blocking
// the sign-in path.
type SessionHub struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	closed bool
	logger *logger.Logger
}

// NewSessionHub creates an empty hub
func NewSessionHub(log *logger.Logger) *SessionHub {
	return &SessionHub{
		subs:   make(map[string]map[*subscriber]struct{}),
		logger: log.WithComponent("session-hub"),
	}
}

// Subscribe registers for userID's session changes. The returned function
// unsubscribes and is safe to call more than once. After Close the channel
// is returned already closed.
func (h *SessionHub) Subscribe(userID string) (<-chan SessionChange, func()) {
	sub := &subscriber{ch: make(chan SessionChange, subscriberBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*subscriber]struct{})
	}
	h.subs[userID][sub] = struct{}{}

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() { h.remove(userID, sub) })
	}
}

func (h *SessionHub) remove(userID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[userID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.ch)
	if len(set) == 0 {
		delete(h.subs, userID)
	}
}

// Publish delivers change to the user's subscribers without blocking
func (h *SessionHub) Publish(change SessionChange) {
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[change.UserID] {
		select {
		case sub.ch <- change:
		default:
			h.logger.Warn().Str("user_id", change.UserID).Str("event", change.Event).Msg("dropping session change for slow subscriber")
		}
	}
}

// Subscribers returns the number of live subscriptions for userID
func (h *SessionHub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// Close drops every subscriber. Later subscriptions receive a closed channel.
func (h *SessionHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for userID, set := range h.subs {
		for sub := range set {
			close(sub.ch)
		}
		delete(h.subs, userID)
	}
}
