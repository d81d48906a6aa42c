// Package realtime fans committed state changes out to connected dashboards.
//
// Services depend on the Publisher interface only. In production a websocket
// Hub and a redis mirror are combined with Multi; tests use a Recorder.
// Publishing is best effort: a failure is logged by Notify and never reported
// to the operation that triggered it.
package realtime

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	EventNewOrder           = "newOrder"
	EventOrderStatusUpdated = "orderStatusUpdated"
	EventTableCleared       = "tableCleared"
	EventSettingsUpdated    = "settingsUpdated"
	EventPaymentCompleted   = "paymentCompleted"

	// client -> server
	EventJoinKitchen = "join-kitchen"
	EventJoined      = "joined"
)

type Event struct {
	Name      string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

func NewEvent(name string, data interface{}) Event {
	return Event{Name: name, Data: data, Timestamp: time.Now().UTC()}
}

// Notify publishes and swallows the error.
func Notify(ctx context.Context, p Publisher, name string, data interface{}) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, NewEvent(name, data)); err != nil {
		log.WithError(err).WithField("event", name).Warn("Failed to broadcast event")
	}
}

type nop struct{}

func (nop) Publish(context.Context, Event) error { return nil }

// Nop discards every event.
var Nop Publisher = nop{}

type multi []Publisher

// Multi publishes to each publisher in order and reports the first error
// after trying all of them.
func Multi(publishers ...Publisher) Publisher {
	out := make(multi, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (m multi) Publish(ctx context.Context, event Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Recorder keeps every published event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Named returns the recorded events with the given name.
func (r *Recorder) Named(name string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
