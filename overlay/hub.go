// Package overlay fans out state change events to connected overlay clients.
// The hub is purely in-memory: delivery is fire-and-forget, at-least-once
// across reconnects, and clients are expected to re-fetch full state when
// they attach. A slow client loses events instead of stalling publishers.
package overlay

import (
	"log/slog"
	"sync"

	"github.com/onnwee/stream-tender/backend/models"
	"github.com/onnwee/stream-tender/backend/telemetry"
)

// Event types pushed over the overlay stream.
const (
	EventCounterUpdate  = "counter_update"
	EventSettingsUpdate = "settings_update"
	EventCustomAlert    = "custom_alert"
)

// Event is the envelope written to overlay clients.
type Event struct {
	Type    string `json:"type"`
	UserID  string `json:"user_id"`
	Payload any    `json:"payload,omitempty"`
}

// Hub routes events to the subscribers of each user id.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[string]map[chan Event]struct{}{}}
}

// Subscribe registers a listener for one user's events. The returned cancel
// function is idempotent and must be called when the client disconnects; it
// closes the channel.
func (h *Hub) Subscribe(userID string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	set, ok := h.subs[userID]
	if !ok {
		set = map[chan Event]struct{}{}
		h.subs[userID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()
	telemetry.SetOverlayClients(h.ClientCount())

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[userID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, userID)
				}
			}
			h.mu.Unlock()
			close(ch)
			telemetry.SetOverlayClients(h.ClientCount())
		})
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of its user. Subscribers with
// a full buffer are skipped; they resynchronize from the state endpoint.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ev.UserID] {
		select {
		case ch <- ev:
		default:
			slog.Debug("dropping overlay event for slow client",
				slog.String("user_id", ev.UserID), slog.String("type", ev.Type))
		}
	}
	telemetry.CountOverlayEvent(ev.Type)
}

// ClientCount returns the number of connected subscribers across all users.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.subs {
		n += len(set)
	}
	return n
}

// The hub doubles as the orchestrator's notifier.

func (h *Hub) NotifyCounterUpdate(userID string, c *models.Counter) {
	h.Publish(Event{Type: EventCounterUpdate, UserID: userID, Payload: c})
}

func (h *Hub) NotifySettingsUpdate(userID string, settings models.CounterVisibility) {
	h.Publish(Event{Type: EventSettingsUpdate, UserID: userID, Payload: settings})
}

// NotifyCustomAlert wraps arbitrary alerts, including chat command refreshes,
// in a custom_alert envelope with the concrete kind inside.
func (h *Hub) NotifyCustomAlert(userID, alertType string, payload any) {
	h.Publish(Event{
		Type:   EventCustomAlert,
		UserID: userID,
		Payload: map[string]any{
			"alert_type": alertType,
			"data":       payload,
		},
	})
}
