package mvi

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	// ErrClosed is returned to consumers once a closed EventChannel is drained.
	ErrClosed = errors.New("event channel closed")
	// ErrCollectorActive is returned when a second consumer tries to attach.
	ErrCollectorActive = errors.New("event channel already has an active collector")
)

// EventChannel delivers one-shot events to at most one consumer at a time.
//
// It is unbounded: Send never blocks and never drops. Events sent while no
// consumer is attached stay queued until one attaches. Close is terminal;
// sending afterwards panics.
type EventChannel[E any] struct {
	q         *queue[E]
	collector atomic.Bool
}

// NewEventChannel creates an empty, open channel.
func NewEventChannel[E any]() *EventChannel[E] {
	return &EventChannel[E]{q: newQueue[E]()}
}

// Send queues e for delivery.
func (c *EventChannel[E]) Send(e E) {
	if !c.q.push(e) {
		panic(fmt.Sprintf("mvi: send %T on closed event channel", e))
	}
}

// Close closes the channel. Queued events remain receivable.
func (c *EventChannel[E]) Close() {
	c.q.close()
}

// Pending returns the number of queued events.
func (c *EventChannel[E]) Pending() int {
	return c.q.len()
}

// Receive waits for the next event. It fails with ErrCollectorActive when
// another consumer is attached, with ErrClosed when the channel is closed
// and drained, or with ctx.Err().
func (c *EventChannel[E]) Receive(ctx context.Context) (E, error) {
	var zero E
	if !c.collector.CompareAndSwap(false, true) {
		return zero, ErrCollectorActive
	}
	defer c.collector.Store(false)

	return c.receive(ctx)
}

// Collect attaches fn as the consumer and delivers events to it in order
// until ctx is done or the channel is closed and drained. It returns nil in
// the latter case.
func (c *EventChannel[E]) Collect(ctx context.Context, fn func(E)) error {
	if !c.collector.CompareAndSwap(false, true) {
		return ErrCollectorActive
	}
	defer c.collector.Store(false)

	for {
		e, err := c.receive(ctx)
		if errors.Is(err, ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		fn(e)
	}
}

func (c *EventChannel[E]) receive(ctx context.Context) (E, error) {
	var zero E
	for {
		if e, ok := c.q.pop(); ok {
			return e, nil
		}
		if c.q.isClosed() {
			// a push may have landed between pop and isClosed
			if e, ok := c.q.pop(); ok {
				return e, nil
			}
			return zero, ErrClosed
		}

		select {
		case <-c.q.ready:
		case <-c.q.done:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}
