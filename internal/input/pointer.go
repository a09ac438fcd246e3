// Package input collects pointer events from the window and hands them to
// the simulation step that consumes them.
package input

import "sync"

// EventKind identifies a pointer transition
type EventKind uint8

const (
	PointerDown EventKind = iota + 1
	PointerMove
	PointerUp
)

func (k EventKind) String() string {
	switch k {
	case PointerDown:
		return "down"
	case PointerMove:
		return "move"
	case PointerUp:
		return "up"
	default:
		return "unknown"
	}
}

// Event is a pointer transition in surface coordinates
type Event struct {
	Kind EventKind
	X, Y int
}

// DefaultQueueSize bounds the number of events held between two steps
const DefaultQueueSize = 64

// Queue buffers pointer events between the window goroutine and the loop
// worker. When full, the oldest move event is dropped, or the oldest event
// if no move is queued.
type Queue struct {
	mu     sync.Mutex
	events []Event
	size   int

	// Pointer tracking, so Update can be fed raw button state each tick
	pressed bool
	lastX   int
	lastY   int

	dropped uint64
}

// NewQueue creates a queue holding at most size events
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{size: size, events: make([]Event, 0, size)}
}

// Push appends an event
func (q *Queue) Push(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.push(e)
}

func (q *Queue) push(e Event) {
	if len(q.events) >= q.size {
		// drop the oldest move, else the oldest event
		dropAt := 0
		for i, old := range q.events {
			if old.Kind == PointerMove {
				dropAt = i
				break
			}
		}
		q.events = append(q.events[:dropAt], q.events[dropAt+1:]...)
		q.dropped++
	}
	q.events = append(q.events, e)
}

// Update turns the current button state and position into transitions.
// It is meant to be called once per window tick.
func (q *Queue) Update(pressed bool, x, y int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch {
	case pressed && !q.pressed:
		q.push(Event{Kind: PointerDown, X: x, Y: y})
	case pressed && (x != q.lastX || y != q.lastY):
		q.push(Event{Kind: PointerMove, X: x, Y: y})
	case !pressed && q.pressed:
		q.push(Event{Kind: PointerUp, X: x, Y: y})
	}

	q.pressed = pressed
	q.lastX, q.lastY = x, y
}

// Drain removes and returns all queued events in arrival order
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return nil
	}

	out := make([]Event, len(q.events))
	copy(out, q.events)
	q.events = q.events[:0]
	return out
}

// Dropped returns how many events were discarded because the queue was full
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
