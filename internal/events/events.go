package events

import (
	"context"
	"sync"
	"time"

	"postback-ingest-api/internal/models"
)

// EventType represents the type of event.
type EventType string

const (
	// EventPostbackReceived is emitted when a postback is normalized and stored
	EventPostbackReceived EventType = "postback.received"
	// EventPostbackDuplicate is emitted when a postback is suppressed by the dedup key
	EventPostbackDuplicate EventType = "postback.duplicate"
	// EventClickTracked is emitted when an outbound redirect hands out a click id
	EventClickTracked EventType = "click.tracked"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// PostbackReceivedData contains data for postback received events.
type PostbackReceivedData struct {
	Record models.Postback
}

// PostbackDuplicateData contains data for duplicate-suppressed events.
type PostbackDuplicateData struct {
	Partner  string
	DedupKey string
}

// ClickTrackedData contains data for click tracked events.
type ClickTrackedData struct {
	OfferID   string
	ClickID   string
	Gclid     string
	TrackedAt time.Time
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
}

// NewManager creates a new event manager.
func NewManager(enabled bool) *Manager {
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	if !m.enabled {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	if !m.enabled {
		return
	}

	m.mu.RLock()
	handlers := m.handlers[eventType]
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	// Execute handlers asynchronously to avoid blocking the request path
	for _, handler := range handlers {
		go func(h Handler) {
			if err := h(ctx, event); err != nil {
				_ = err
			}
		}(handler)
	}
}

// PublishPostbackReceived publishes a postback received event.
func (m *Manager) PublishPostbackReceived(ctx context.Context, record models.Postback) {
	m.Publish(ctx, EventPostbackReceived, PostbackReceivedData{Record: record})
}

// PublishPostbackDuplicate publishes a duplicate-suppressed event.
func (m *Manager) PublishPostbackDuplicate(ctx context.Context, partner, dedupKey string) {
	m.Publish(ctx, EventPostbackDuplicate, PostbackDuplicateData{
		Partner:  partner,
		DedupKey: dedupKey,
	})
}

// PublishClickTracked publishes a click tracked event.
func (m *Manager) PublishClickTracked(ctx context.Context, offerID, clickID, gclid string) {
	m.Publish(ctx, EventClickTracked, ClickTrackedData{
		OfferID:   offerID,
		ClickID:   clickID,
		Gclid:     gclid,
		TrackedAt: time.Now(),
	})
}

// Shutdown shuts down the event manager.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
}
