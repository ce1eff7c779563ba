package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: EventSpecUpdated, Data: map[string]string{"spec": "001-base"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: spec.updated") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"spec":"001-base"`) {
			t.Errorf("missing data in %q", s)
		}
		if !strings.HasPrefix(s, "id: ") {
			t.Errorf("missing event id in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func drain(ch chan []byte) []string {
	time.Sleep(50 * time.Millisecond)
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestPublishSpecsChanged_GraphThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishSpecsChanged("p1", "001-a")
	b.PublishSpecsChanged("p1", "002-b")

	graphCount, changeCount := 0, 0
	for _, s := range drain(ch) {
		switch {
		case strings.Contains(s, "event: graph.updated"):
			graphCount++
		case strings.Contains(s, "event: specs.changed"):
			changeCount++
			if !strings.Contains(s, `"project_id":"p1"`) {
				t.Errorf("missing project id in %q", s)
			}
		}
	}

	if changeCount != 2 {
		t.Errorf("change events = %d, want 2", changeCount)
	}
	if graphCount != 1 {
		t.Errorf("graph events = %d, want 1 (throttled)", graphCount)
	}
}

func TestPublishSpecsChanged_ThrottlePerProject(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishSpecsChanged("p1", "")
	b.PublishSpecsChanged("p2", "")

	graphCount := 0
	for _, s := range drain(ch) {
		if strings.Contains(s, "event: graph.updated") {
			graphCount++
		}
		if strings.Contains(s, `"spec"`) {
			t.Errorf("empty spec should be omitted: %q", s)
		}
	}
	if graphCount != 2 {
		t.Errorf("graph events = %d, want one per project", graphCount)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: EventSpecUpdated, Data: map[string]string{"spec": "001-x"}})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: spec.updated") {
		t.Errorf("handler output missing event: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// buffer holds 64; the rest must be dropped without blocking
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// no-ops after close
	b.Publish(Event{Type: EventSpecUpdated, Data: map[string]string{"spec": "001-x"}})
	b.PublishSpecsChanged("p1", "001-x")
}
