package mapview

import "sync"

const (
	EventOverlayAdded   = "overlay_added"
	EventOverlayRemoved = "overlay_removed"
	EventStyle          = "style"
	EventFeatureStyle   = "feature_style"
	EventView           = "view"
	EventControl        = "control"
	EventMessage        = "message"
	EventSelection      = "selection"
	EventLegend         = "legend"
)

// Event describes a change of the map view state.
type Event struct {
	Type    string      `json:"type"`
	Overlay string      `json:"overlay,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// EventBus is a fan-out pub/sub of view events.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Publish sends an event to all subscribers without blocking. Slow
// subscribers miss events.
func (b *EventBus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}
