package http

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/louisbranch/packworks/internal/telemetry"
)

// streamEvent is the wire shape of one security event on the stream.
type streamEvent struct {
	Seq       int64             `json:"seq,omitempty"`
	Kind      string            `json:"kind"`
	Actor     string            `json:"actor"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// EventHub fans live security events out to websocket subscribers. It
// implements telemetry.Sink, so the emitter publishes into it directly.
type EventHub struct {
	mu          sync.Mutex
	subscribers map[chan streamEvent]struct{}
	upgrader    websocket.Upgrader
}

// NewEventHub creates an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{
		subscribers: make(map[chan streamEvent]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Publish delivers one event to every subscriber. Slow subscribers drop
// events instead of blocking the emitter.
func (h *EventHub) Publish(evt telemetry.SecurityEvent) {
	wire := streamEvent{
		Seq:       evt.ID,
		Kind:      string(evt.Kind),
		Actor:     evt.Actor,
		Timestamp: evt.Timestamp,
		Metadata:  evt.Metadata,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- wire:
		default:
		}
	}
}

func (h *EventHub) subscribe() chan streamEvent {
	ch := make(chan streamEvent, 64)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *EventHub) unsubscribe(ch chan streamEvent) {
	h.mu.Lock()
	delete(h.subscribers, ch)
	h.mu.Unlock()
}

// Handler upgrades the connection and streams events until the client
// disconnects.
func (h *EventHub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ch := h.subscribe()
		defer h.unsubscribe(ch)

		// Reads are discarded; the read loop exists to notice disconnects.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case <-r.Context().Done():
				return
			case evt := <-ch:
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(evt); err != nil {
					log.Printf("event stream write: %v", err)
					return
				}
			}
		}
	}
}
