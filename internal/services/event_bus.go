package services

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sokosmart/marketplace-backend/internal/models"
)

// ProfileStatusEvent is published whenever an application's verification
// status changes, so dependent consumers (notifications, caches) refresh
// without the mutating caller having to remember each of them.
type ProfileStatusEvent struct {
	ProfileID    uuid.UUID
	UserID       uuid.UUID
	ProviderType models.ProviderType
	Status       models.VerificationStatus
	Notes        string
}

// EventBus is a small in-process publish-subscribe hub for profile
// status changes. Publish never blocks: a subscriber that falls behind
// loses events, which is acceptable because every consumer can re-read
// the authoritative row.
type EventBus struct {
	mu     sync.RWMutex
	subs   []chan ProfileStatusEvent
	logger *logrus.Logger
	closed bool
}

// subscriberBuffer bounds how many undelivered events a subscriber may hold
const subscriberBuffer = 64

// NewEventBus creates a new event bus
func NewEventBus(logger *logrus.Logger) *EventBus {
	return &EventBus{logger: logger}
}

// Subscribe registers a new subscriber and returns its channel. After
// Close it returns a closed channel so consumers ranging over it exit
// instead of blocking forever.
func (b *EventBus) Subscribe() <-chan ProfileStatusEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan ProfileStatusEvent)
		close(ch)
		return ch
	}

	ch := make(chan ProfileStatusEvent, subscriberBuffer)
	b.subs = append(b.subs, ch)
	return ch
}

// Publish delivers an event to all subscribers without blocking
func (b *EventBus) Publish(event ProfileStatusEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.logger.WithFields(logrus.Fields{
				"profile_id": event.ProfileID,
				"status":     event.Status,
			}).Warn("Dropping profile status event: subscriber buffer full")
		}
	}
}

// Close closes all subscriber channels. Publish after Close is a no-op.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
