package event

// Queue is an unbounded FIFO of pending events.
type Queue struct {
	entries []Event
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{entries: make([]Event, 0)}
}

// Enqueue adds an event to the back of the queue.
func (q *Queue) Enqueue(evt Event) {
	q.entries = append(q.entries, evt)
}

// Dequeue removes and returns the event at the front of the queue.
// Returns (nil, false) if the queue is empty.
func (q *Queue) Dequeue() (Event, bool) {
	if len(q.entries) == 0 {
		return nil, false
	}

	evt := q.entries[0]
	q.entries[0] = nil
	q.entries = q.entries[1:]
	return evt, true
}

// Peek returns the event at the front of the queue without removing it.
// Returns (nil, false) if the queue is empty.
func (q *Queue) Peek() (Event, bool) {
	if len(q.entries) == 0 {
		return nil, false
	}
	return q.entries[0], true
}

// Len returns the current number of queued events.
func (q *Queue) Len() int {
	return len(q.entries)
}

// Drain removes and returns all queued events, leaving the queue empty.
func (q *Queue) Drain() []Event {
	if len(q.entries) == 0 {
		return []Event{}
	}

	result := q.entries
	q.entries = make([]Event, 0)
	return result
}
