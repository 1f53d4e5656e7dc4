package mapview

import (
	"sync"

	"github.com/gisquick/countyview/internal/overlay"
)

type ControlEntry struct {
	Overlay string `json:"overlay"`
	Label   string `json:"label"`
}

// Control is the layer toggle list shown next to the map.
type Control struct {
	mu      sync.RWMutex
	bus     *EventBus
	entries []ControlEntry
}

func NewControl(bus *EventBus) *Control {
	return &Control{bus: bus}
}

func (c *Control) AddOverlay(handle overlay.Overlay, label string) {
	entry := ControlEntry{Overlay: handle.ID(), Label: label}
	c.mu.Lock()
	c.entries = append(c.entries, entry)
	c.mu.Unlock()
	c.bus.Publish(Event{Type: EventControl, Overlay: entry.Overlay, Data: entry})
}

func (c *Control) Entries() []ControlEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res := make([]ControlEntry, len(c.entries))
	copy(res, c.entries)
	return res
}
