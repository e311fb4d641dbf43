package util

import (
	"context"
	"sync"
	"time"
)

// An Eventer is a type that broadcasts events to multiple listeners.
type Eventer interface {
	Events() *Emitter
}

// Emitter is a single producer, multiple consumer broadcast of typed events.
//
// The zero value is ready for use.
type Emitter struct {
	// Release sets the amount of time an event is withheld to deduplicate
	// bursts of identical events. A zero value disables buffering.
	Release time.Duration

	lock      sync.Mutex
	listeners map[chan interface{}]struct{}
	release   map[interface{}]struct{}
}

func (emitter *Emitter) Events() *Emitter { return emitter }

// Emit broadcasts an event to all current listeners. A slow listener does not
// block the emitting party.
func (emitter *Emitter) Emit(event interface{}) {
	emitter.lock.Lock()
	defer emitter.lock.Unlock()

	if emitter.Release == 0 {
		emitter.broadcast(event)
		return
	}

	if emitter.release == nil {
		emitter.release = map[interface{}]struct{}{}
	}
	if _, ok := emitter.release[event]; ok {
		return // Already scheduled.
	}
	emitter.release[event] = struct{}{}

	time.AfterFunc(emitter.Release, func() {
		emitter.lock.Lock()
		defer emitter.lock.Unlock()
		delete(emitter.release, event)
		emitter.broadcast(event)
	})
}

func (emitter *Emitter) broadcast(event interface{}) {
	for listener := range emitter.listeners {
		select {
		case listener <- event:
		default:
			// The listener's buffer is full. Drop the event rather than
			// stalling everyone else.
		}
	}
}

// Listen registers a new listener channel which receives all events emitted
// after this call. The listener is removed when the context is canceled.
func (emitter *Emitter) Listen(ctx context.Context) <-chan interface{} {
	emitter.lock.Lock()
	defer emitter.lock.Unlock()

	if emitter.listeners == nil {
		emitter.listeners = map[chan interface{}]struct{}{}
	}
	ch := make(chan interface{}, 128)
	emitter.listeners[ch] = struct{}{}

	go func() {
		<-ctx.Done()
		emitter.lock.Lock()
		defer emitter.lock.Unlock()
		delete(emitter.listeners, ch)
		close(ch)
	}()
	return ch
}
