package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hydrusband/fetchd/internal/progress"
	"github.com/hydrusband/fetchd/internal/relay"
)

func TestProgressSubscription(t *testing.T) {
	hub := relay.NewHub(nil)
	defer hub.Close()

	api := NewAPI(&fakeOrchestrator{}, &fakeHistory{}, &fakeProber{}, hub, nil)
	router := NewBasicRouter()
	api.Register(router)

	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/job1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for !hub.Subscribed("job1") {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never attached")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Publish("job1", progress.Started{})
	hub.Publish("job1", progress.Downloading{BytesDone: 5, BytesTotal: 10})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first struct {
		Status string `json:"status"`
	}
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if err := json.Unmarshal(payload, &first); err != nil || first.Status != "started" {
		t.Fatalf("first event = %s (err %v), want started", payload, err)
	}

	var second struct {
		Status string `json:"status"`
		Done   int64  `json:"downloaded_bytes"`
	}
	_, payload, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if err := json.Unmarshal(payload, &second); err != nil || second.Status != "downloading" || second.Done != 5 {
		t.Fatalf("second event = %s (err %v), want downloading/5", payload, err)
	}
}

func TestSubscriberDisconnectDetaches(t *testing.T) {
	hub := relay.NewHub(nil)
	defer hub.Close()

	api := NewAPI(&fakeOrchestrator{}, &fakeHistory{}, &fakeProber{}, hub, nil)
	router := NewBasicRouter()
	api.Register(router)

	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/job1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !hub.Subscribed("job1") {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never attached")
		}
		time.Sleep(5 * time.Millisecond)
	}

	conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for hub.Subscribed("job1") {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never detached after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
