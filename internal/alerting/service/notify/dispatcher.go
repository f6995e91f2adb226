// Package notify fans committed alert transitions out to registered
// handlers. Delivery is fire-and-forget: a slow, failing, or panicking
// handler never blocks the engine or its sibling handlers.
package notify

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/slopewatch/slopewatch/internal/alerting/model"
)

// Event marks which transition produced the notification.
type Event string

const (
	EventCreated  Event = "created"
	EventResolved Event = "resolved"
)

// Handler receives a fully formed alert after a state transition. Errors are
// logged and isolated per handler.
type Handler interface {
	Name() string
	Notify(event Event, a *model.Alert) error
}

type Dispatcher struct {
	mu       sync.RWMutex
	handlers []Handler
	// wg tracks in-flight deliveries so tests can drain them.
	wg sync.WaitGroup
}

func NewDispatcher(handlers ...Handler) *Dispatcher {
	d := &Dispatcher{}
	for _, h := range handlers {
		d.Register(h)
	}
	return d
}

func (d *Dispatcher) Register(h Handler) {
	if h == nil {
		return
	}
	d.mu.Lock()
	d.handlers = append(d.handlers, h)
	d.mu.Unlock()
}

func (d *Dispatcher) AlertCreated(a *model.Alert)  { d.dispatch(EventCreated, a) }
func (d *Dispatcher) AlertResolved(a *model.Alert) { d.dispatch(EventResolved, a) }

func (d *Dispatcher) dispatch(event Event, a *model.Alert) {
	if a == nil {
		return
	}
	d.mu.RLock()
	handlers := make([]Handler, len(d.handlers))
	copy(handlers, d.handlers)
	d.mu.RUnlock()

	for _, h := range handlers {
		d.wg.Add(1)
		go func(h Handler) {
			defer d.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Error().Str("handler", h.Name()).Str("alert", a.DisplayID()).
						Interface("panic", r).Msg("notification handler panicked")
				}
			}()
			if err := h.Notify(event, a); err != nil {
				log.Error().Err(err).Str("handler", h.Name()).Str("alert", a.DisplayID()).
					Str("event", string(event)).Msg("notification handler failed")
			}
		}(h)
	}
}

// Wait blocks until all in-flight deliveries finish. Test helper.
func (d *Dispatcher) Wait() { d.wg.Wait() }
