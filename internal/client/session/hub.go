package session

import (
	"context"
	"sync"
)

// eventBufferSize is the per-subscriber event buffer.
const eventBufferSize = 8

// eventHub fans events out to live subscribers. Broadcast never blocks:
// a subscriber whose buffer is full misses the event.
type eventHub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[chan Event]struct{})}
}

func (h *eventHub) subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, eventBufferSize)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		close(ch)
		h.mu.Unlock()
	}()
	return ch
}

func (h *eventHub) broadcast(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// replayHub delivers the latest value to new subscribers and then every
// published value in order. Each subscriber has its own unbounded queue
// drained by a pump goroutine, so publish never blocks and a slow reader
// never loses or reorders values.
type replayHub[T any] struct {
	mu     sync.Mutex
	latest T
	subs   map[*queue[T]]struct{}
}

func newReplayHub[T any](initial T) *replayHub[T] {
	return &replayHub[T]{latest: initial, subs: make(map[*queue[T]]struct{})}
}

func (h *replayHub[T]) publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = v
	for q := range h.subs {
		q.push(v)
	}
}

func (h *replayHub[T]) subscribe(ctx context.Context) <-chan T {
	q := &queue[T]{wake: make(chan struct{}, 1)}

	h.mu.Lock()
	q.push(h.latest)
	h.subs[q] = struct{}{}
	h.mu.Unlock()

	out := make(chan T)
	go func() {
		defer close(out)
		defer func() {
			h.mu.Lock()
			delete(h.subs, q)
			h.mu.Unlock()
		}()

		for {
			v, ok := q.pop()
			if !ok {
				select {
				case <-q.wake:
					continue
				case <-ctx.Done():
					return
				}
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

type queue[T any] struct {
	mu    sync.Mutex
	items []T
	wake  chan struct{}
}

func (q *queue[T]) push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *queue[T]) pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true
}
