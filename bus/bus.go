// Package bus implements the Event Bus: a bounded, typed channel bridging
// synchronous media-callback producers and the asynchronous consumer side
// that drives handlers concurrently up to a limit.
package bus

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pipeless-ai/pipeless/models"
)

// Handler processes one BusEvent. A non-nil return is logged as an error;
// it never stops the consumer loop — see Bus.ProcessEvents.
type Handler func(ctx context.Context, event models.BusEvent) error

// Bus is a per-stream typed channel. The producer handle (Send) is safe to
// call from synchronous decoder-callback threads; the consumer side
// (ProcessEvents) is driven from the async world.
type Bus struct {
	events chan models.BusEvent
	end    chan struct{}
	endOne sync.Once
	log    zerolog.Logger
}

// New creates a Bus with the given buffer capacity. Capacity is normally
// 2x the CPU core count, derived once at Manager start per the Event Bus
// contract.
func New(capacity int, log zerolog.Logger) *Bus {
	if capacity < 1 {
		capacity = 1
	}
	return &Bus{
		events: make(chan models.BusEvent, capacity),
		end:    make(chan struct{}),
		log:    log,
	}
}

// Send delivers an event onto the bus. FrameChange events never block the
// producer: on a full buffer they are dropped and logged at debug level
// (lossy backpressure). Every other event kind blocks until delivered or
// until the bus is closed.
func (b *Bus) Send(event models.BusEvent) {
	if event.Kind == models.FrameChange {
		select {
		case b.events <- event:
		default:
			b.log.Debug().Str("event", event.Kind.String()).Msg("event bus full, dropping frame")
		}
		return
	}

	defer func() {
		// Sending on a closed channel panics; a producer racing a Close
		// (stream teardown) should not crash the caller.
		if r := recover(); r != nil {
			b.log.Debug().Str("event", event.Kind.String()).Msg("dropped event on closed bus")
		}
	}()
	b.events <- event
}

// Close closes the producer side. The consumer loop drains remaining
// buffered events and exits normally once empty.
func (b *Bus) Close() {
	defer func() { recover() }() // tolerate a double-close from racing teardown paths
	close(b.events)
}

// SignalEnd fires the one-shot end signal. The first call wins; subsequent
// calls are no-ops, matching the "first sender wins" one-shot contract.
func (b *Bus) SignalEnd() {
	b.endOne.Do(func() { close(b.end) })
}

// ProcessEvents drives the consumer side: it receives events and dispatches
// each to handler, running up to concurrencyLimit handlers at once. It
// returns when the producer side is closed and drained, when the end
// signal fires, or when ctx is canceled.
func ProcessEvents(ctx context.Context, b *Bus, concurrencyLimit int, handler Handler) {
	if concurrencyLimit < 1 {
		concurrencyLimit = 1
	}
	sem := make(chan struct{}, concurrencyLimit)
	var wg sync.WaitGroup

	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.end:
			return
		case event, ok := <-b.events:
			if !ok {
				return
			}
			sem <- struct{}{}
			wg.Add(1)
			go func(ev models.BusEvent) {
				defer wg.Done()
				defer func() { <-sem }()
				defer func() {
					if r := recover(); r != nil {
						b.log.Error().Interface("panic", r).Str("event", ev.Kind.String()).Msg("bus handler panicked")
					}
				}()
				if err := handler(ctx, ev); err != nil {
					b.log.Error().Err(err).Str("event", ev.Kind.String()).Msg("bus handler returned error")
				}
			}(event)
		}
	}
}
