package relay

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hydrusband/fetchd/internal/progress"
)

// chanSink collects payloads on a channel for inspection.
type chanSink struct {
	payloads chan []byte
	sendErr  error
	mu       sync.Mutex
	closed   bool
}

func newChanSink(buffer int) *chanSink {
	return &chanSink{payloads: make(chan []byte, buffer)}
}

func (s *chanSink) Send(payload []byte) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.payloads <- payload
	return nil
}

func (s *chanSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *chanSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func collect(t *testing.T, s *chanSink, n int) []string {
	t.Helper()
	statuses := make([]string, 0, n)
	for range n {
		select {
		case payload := <-s.payloads:
			var ev struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(payload, &ev); err != nil {
				t.Fatalf("bad payload: %v", err)
			}
			statuses = append(statuses, ev.Status)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for payload %d of %d", len(statuses)+1, n)
		}
	}
	return statuses
}

func TestPublishWithoutSubscriber(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	start := time.Now()
	hub.Publish("nobody", progress.Started{})
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("publish without subscriber blocked for %v", elapsed)
	}
}

func TestPublishPreservesOrder(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	sink := newChanSink(8)
	hub.Attach("job1", sink)

	hub.Publish("job1", progress.Started{})
	hub.Publish("job1", progress.Downloading{BytesDone: 1})
	hub.Publish("job1", progress.Downloading{BytesDone: 2})
	hub.Publish("job1", progress.Finished{Result: progress.Result{FinalPath: "/x"}})

	got := collect(t, sink, 4)
	want := []string{"started", "downloading", "downloading", "finished"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %s, want %s (sequence %v)", i, got[i], want[i], got)
		}
	}
}

func TestLastAttachWins(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	first := newChanSink(8)
	second := newChanSink(8)

	hub.Attach("job1", first)
	hub.Attach("job1", second)

	hub.Publish("job1", progress.Started{})

	got := collect(t, second, 1)
	if got[0] != "started" {
		t.Errorf("second sink got %s, want started", got[0])
	}

	select {
	case <-first.payloads:
		t.Error("replaced sink should not receive events")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStaleDetachIsNoop(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	first := newChanSink(8)
	second := newChanSink(8)

	stale := hub.Attach("job1", first)
	hub.Attach("job1", second)

	hub.Detach("job1", stale)

	if !hub.Subscribed("job1") {
		t.Fatal("stale detach removed the live connection")
	}

	hub.Publish("job1", progress.Started{})
	collect(t, second, 1)
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(nil, WithPublishTimeout(20*time.Millisecond), WithQueueSize(1))
	defer hub.Close()

	// Unbuffered sink channel that nothing reads: the writer goroutine
	// stalls on the first payload, so the queue fills immediately.
	sink := &chanSink{payloads: make(chan []byte)}
	hub.Attach("job1", sink)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			hub.Publish("job1", progress.Downloading{BytesDone: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}
}

func TestSendFailureDetaches(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	sink := newChanSink(8)
	sink.sendErr = errors.New("connection reset")
	hub.Attach("job1", sink)

	hub.Publish("job1", progress.Started{})

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribed("job1") {
		if time.Now().After(deadline) {
			t.Fatal("failing subscriber was never detached")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if !sink.isClosed() {
		t.Error("sink should be closed after detach")
	}
}
