package session

import (
	"log/slog"
	"slices"
	"sync"
)

// EventType names an inventory change.
type EventType string

const (
	EventDeviceAdded   EventType = "device_added"
	EventDeviceUpdated EventType = "device_updated"
	EventDeviceRemoved EventType = "device_removed"
	EventSaved         EventType = "inventory_saved"
	EventLoaded        EventType = "inventory_loaded"
	EventCampusAdded   EventType = "campus_added"
	EventCampusRemoved EventType = "campus_removed"
)

// Event represents an inventory change. Data is DeviceData for device
// events, SaveData for save and load, and CampusData for catalog changes.
type Event struct {
	Type   EventType `json:"type"`
	Campus string    `json:"campus"`
	Data   any       `json:"data,omitempty"`
}

// DeviceData is the payload of device events: the record in persisted form
// and its position at the time of the change.
type DeviceData struct {
	Position int               `json:"position"`
	Device   map[string]string `json:"device"`
}

// SaveData is the payload of EventSaved and EventLoaded.
type SaveData struct {
	Path    string `json:"path"`
	Devices int    `json:"devices"`
}

// CampusData is the payload of EventCampusAdded and EventCampusRemoved.
type CampusData struct {
	File string `json:"file"`
}

// EventHandler is a callback for events.
type EventHandler func(Event)

type subscription struct {
	id      uint64
	all     bool
	typ     EventType
	handler EventHandler
}

// EventBus delivers inventory events to subscribers in the order they
// subscribed.
type EventBus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
	logger *slog.Logger
}

// NewEventBus creates a new event bus.
func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{logger: logger.With("component", "events")}
}

// On registers a handler for one event type. Returns an unsubscribe function.
func (eb *EventBus) On(typ EventType, handler EventHandler) func() {
	return eb.subscribe(subscription{typ: typ, handler: handler})
}

// OnAll registers a handler that receives every event.
func (eb *EventBus) OnAll(handler EventHandler) func() {
	return eb.subscribe(subscription{all: true, handler: handler})
}

func (eb *EventBus) subscribe(sub subscription) func() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	sub.id = eb.nextID
	eb.nextID++
	eb.subs = append(eb.subs, sub)
	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		eb.subs = slices.DeleteFunc(eb.subs, func(s subscription) bool { return s.id == sub.id })
	}
}

// Emit calls every matching handler synchronously. A panicking handler is
// logged and the rest still run.
func (eb *EventBus) Emit(event Event) {
	eb.mu.RLock()
	var handlers []EventHandler
	for _, s := range eb.subs {
		if s.all || s.typ == event.Type {
			handlers = append(handlers, s.handler)
		}
	}
	eb.mu.RUnlock()

	for _, h := range handlers {
		eb.deliver(h, event)
	}
}

func (eb *EventBus) deliver(h EventHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			eb.logger.Error("event handler panic", "type", event.Type, "panic", r)
		}
	}()
	h(event)
}
