package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/hydrusband/fetchd/internal/shared"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The service binds to localhost and serves local clients; origin
	// checks stay permissive.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsSink adapts a websocket connection to the relay's Sink contract.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *wsSink) Close() error {
	return s.conn.Close()
}

// subscribe upgrades the request and attaches the connection to the relay
// under the requested channel id. The handler then reads (and discards)
// inbound frames purely to detect disconnection; on read failure the
// connection is detached. A stale detach after a replacement attach is a
// no-op, so a lingering handler can never tear down its successor.
func (a *API) subscribe(w http.ResponseWriter, r *http.Request) {
	channel := r.PathValue("channel")
	if channel == "" {
		a.writeError(w, shared.ErrMissingArgument)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Debug("websocket upgrade failed", "channel", channel, "error", err)
		return
	}

	sink := &wsSink{conn: conn}
	instance := a.hub.Attach(channel, sink)
	a.logger.Debug("subscriber connected", "channel", channel)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	a.hub.Detach(channel, instance)
	a.logger.Debug("subscriber disconnected", "channel", channel)
}
