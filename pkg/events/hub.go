// Package events fans frames out to push-transport subscribers.
package events

import (
	"sync"
)

// Hub broadcasts frames to every subscriber without ever blocking the
// publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan string]struct{}
}

func NewHub() *Hub { return &Hub{subs: make(map[chan string]struct{})} }

func (h *Hub) Subscribe() chan string {
	ch := make(chan string, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan string) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Len returns the number of current subscribers.
func (h *Hub) Len() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast sends frame to all subscribers and returns how many of them
// accepted it.
func (h *Hub) Broadcast(frame string) int {
	if h == nil {
		return 0
	}
	sent := 0
	h.mu.RLock()
	for ch := range h.subs {
		// Non-blocking send; drop if subscriber is slow
		select {
		case ch <- frame:
			sent++
		default:
		}
	}
	h.mu.RUnlock()
	return sent
}

// Publish broadcasts an event.
func (h *Hub) Publish(e Event) int {
	return h.Broadcast(e.Frame())
}
