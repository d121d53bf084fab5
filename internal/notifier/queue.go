package notifier

import (
	"sync"
	"time"
)

// Toast is one queued message.
type Toast struct {
	ID        int
	Level     Level
	Text      string
	ExpiresAt time.Time
}

// Queue keeps toasts until they expire. The TUI polls Active on each tick.
type Queue struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	nextID int
	toasts []Toast
}

func NewQueue(ttl time.Duration) *Queue {
	return &Queue{ttl: ttl, now: time.Now}
}

func (q *Queue) Notify(level Level, text string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	q.toasts = append(q.toasts, Toast{
		ID:        q.nextID,
		Level:     level,
		Text:      text,
		ExpiresAt: q.now().Add(q.ttl),
	})
	return nil
}

// Active drops expired toasts and returns the rest, oldest first.
func (q *Queue) Active() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	kept := q.toasts[:0]
	for _, t := range q.toasts {
		if now.Before(t.ExpiresAt) {
			kept = append(kept, t)
		}
	}
	q.toasts = kept
	return append([]Toast(nil), kept...)
}

// Dismiss removes one toast early.
func (q *Queue) Dismiss(id int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, t := range q.toasts {
		if t.ID == id {
			q.toasts = append(q.toasts[:i], q.toasts[i+1:]...)
			return
		}
	}
}

// Clear drops every toast. Called on shutdown.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.toasts = nil
	q.mu.Unlock()
}
