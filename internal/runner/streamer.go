package runner

import (
	"sync"

	"github.com/google/uuid"
)

// Streamer fans run events out to per-run subscribers and to global
// subscribers (the WebSocket bridge).
type Streamer struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID][]chan *Event
	global      []chan *Event
}

func NewStreamer() *Streamer {
	return &Streamer{
		subscribers: make(map[uuid.UUID][]chan *Event),
	}
}

func (s *Streamer) Subscribe(runID uuid.UUID) <-chan *Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan *Event, 100)
	s.subscribers[runID] = append(s.subscribers[runID], ch)
	return ch
}

func (s *Streamer) Unsubscribe(runID uuid.UUID, ch <-chan *Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.subscribers[runID]
	for i, sub := range subs {
		if sub == ch {
			s.subscribers[runID] = append(subs[:i], subs[i+1:]...)
			close(sub)
			break
		}
	}
	if len(s.subscribers[runID]) == 0 {
		delete(s.subscribers, runID)
	}
}

// SubscribeAll receives every event of every run.
func (s *Streamer) SubscribeAll() <-chan *Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan *Event, 256)
	s.global = append(s.global, ch)
	return ch
}

func (s *Streamer) UnsubscribeAll(ch <-chan *Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.global {
		if sub == ch {
			s.global = append(s.global[:i], s.global[i+1:]...)
			close(sub)
			break
		}
	}
}

func (s *Streamer) Broadcast(event *Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.subscribers[event.RunID] {
		select {
		case ch <- event:
		default:
			// Skip if channel is full
		}
	}
	for _, ch := range s.global {
		select {
		case ch <- event:
		default:
		}
	}
}
