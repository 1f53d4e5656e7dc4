package mapview

import (
	"sync"

	"github.com/gisquick/countyview/internal/domain"
	"github.com/gisquick/countyview/internal/overlay"
	"go.uber.org/zap"
)

type FeatureInfo struct {
	Layer      string             `json:"layer"`
	Attributes []domain.Attribute `json:"attributes"`
}

// Host forwards user notifications to the event bus and remembers the last
// legend and feature details for clients that connect later.
type Host struct {
	mu       sync.RWMutex
	log      *zap.SugaredLogger
	bus      *EventBus
	legend   []overlay.LegendEntry
	selected *FeatureInfo
	messages []string
}

func NewHost(log *zap.SugaredLogger, bus *EventBus) *Host {
	return &Host{log: log, bus: bus, legend: []overlay.LegendEntry{}}
}

func (h *Host) Message(text string) {
	h.log.Infow("user message", "text", text)
	h.mu.Lock()
	h.messages = append(h.messages, text)
	h.mu.Unlock()
	h.bus.Publish(Event{Type: EventMessage, Data: text})
}

func (h *Host) FeatureSelected(layer string, attributes []domain.Attribute) {
	info := &FeatureInfo{Layer: layer, Attributes: attributes}
	h.mu.Lock()
	h.selected = info
	h.mu.Unlock()
	h.bus.Publish(Event{Type: EventSelection, Data: info})
}

func (h *Host) Legend(entries []overlay.LegendEntry) {
	h.mu.Lock()
	h.legend = entries
	h.mu.Unlock()
	h.bus.Publish(Event{Type: EventLegend, Data: entries})
}

func (h *Host) LastLegend() []overlay.LegendEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.legend
}

func (h *Host) Selected() (FeatureInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.selected == nil {
		return FeatureInfo{}, false
	}
	return *h.selected, true
}

func (h *Host) Messages() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	res := make([]string, len(h.messages))
	copy(res, h.messages)
	return res
}
