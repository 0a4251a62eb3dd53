// Package broadcast fans live updates out to connected websocket clients.
//
// The subscriber set is mutated concurrently by the connection layer while
// broadcasts are in flight; a failed write removes only that subscriber and
// never aborts delivery to the others.
package broadcast

import (
	"sync"
	"time"

	"k8s.io/klog/v2"
)

// WriteTimeout bounds each subscriber write so one stalled client cannot
// hold up a broadcast.
const WriteTimeout = 10 * time.Second

// Conn is the subset of *websocket.Conn the hub needs; tests substitute
// fakes.
type Conn interface {
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type Hub struct {
	mu          sync.Mutex
	subscribers map[Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[Conn]struct{})}
}

func (h *Hub) Subscribe(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[c] = struct{}{}
}

// Unsubscribe drops the connection without closing it; the connection layer
// owns the close.
func (h *Hub) Unsubscribe(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, c)
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Publish sends one message to every subscriber. Dead connections are
// closed and removed.
func (h *Hub) Publish(message any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var dead []Conn
	for c := range h.subscribers {
		if err := c.SetWriteDeadline(time.Now().Add(WriteTimeout)); err != nil {
			dead = append(dead, c)
			continue
		}
		if err := c.WriteJSON(message); err != nil {
			klog.Errorf("Websocket write failed, dropping subscriber: %v", err)
			dead = append(dead, c)
		}
	}
	for _, c := range dead {
		delete(h.subscribers, c)
		_ = c.Close()
	}
}
