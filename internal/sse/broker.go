// Package sse implements a Server-Sent Events broker for real-time updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Event types.
const (
	EventSpecsChanged = "specs.changed"
	EventSpecUpdated  = "spec.updated"
	EventGraphUpdated = "graph.updated"
)

type changeReq struct {
	projectID string
	spec      string
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop goroutine owns the client set and the per-project
// graph throttle timestamps; public methods talk to it over channels.
type Broker struct {
	graphMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan changeReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker with the given graph throttle interval.
func NewBroker(graphThrottle time.Duration) *Broker {
	if graphThrottle <= 0 {
		graphThrottle = 2 * time.Second
	}

	b := &Broker{
		graphMin:      graphThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan changeReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	lastGraph := make(map[string]time.Time)

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		msg := fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", uuid.NewString(), event.Type, payload)
		raw := []byte(msg)

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// client buffer full, drop
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.changeCh:
			data := map[string]string{"project_id": req.projectID}
			if req.spec != "" {
				data["spec"] = req.spec
			}
			broadcast(Event{Type: EventSpecsChanged, Data: data})

			now := time.Now()
			if now.Sub(lastGraph[req.projectID]) >= b.graphMin {
				lastGraph[req.projectID] = now
				broadcast(Event{Type: EventGraphUpdated, Data: map[string]string{"project_id": req.projectID}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishSpecsChanged announces that a project's specs changed on disk so
// clients re-fetch. spec may be empty when the change is not tied to one
// spec directory. A graph.updated event follows, throttled per project.
func (b *Broker) PublishSpecsChanged(projectID, spec string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- changeReq{projectID: projectID, spec: spec}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
