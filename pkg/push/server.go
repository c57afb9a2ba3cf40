// Package push serves the WebSocket push transport. Every connected client
// receives every frame broadcast on the hub.
package push

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/wle/pkg/events"
)

const defaultWriteTimeout = 5 * time.Second

// MessageFunc is called with the payload of every text frame a client sends.
type MessageFunc func(msg []byte)

// Server upgrades HTTP requests to WebSocket connections and relays hub
// frames to them.
type Server struct {
	hub       *events.Hub
	onMessage MessageFunc
	upgrader  websocket.Upgrader

	WriteTimeout time.Duration
}

// NewServer returns a Server relaying frames from hub. onMessage may be nil.
func NewServer(hub *events.Hub, onMessage MessageFunc) *Server {
	return &Server{
		hub:       hub,
		onMessage: onMessage,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The status page is served from a different port, so the
			// origin never matches the push listener.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		WriteTimeout: defaultWriteTimeout,
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	return s.hub.Len()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		logrus.WithField("remote", r.RemoteAddr).Warnf("websocket upgrade failed: %v", err)
		return
	}

	frames := s.hub.Subscribe()
	log := logrus.WithField("remote", conn.RemoteAddr().String())
	log.WithField("clients", s.hub.Len()).Debug("push client connected")

	done := make(chan struct{})
	go s.readLoop(conn, done, log)

	defer func() {
		s.hub.Unsubscribe(frames)
		_ = conn.Close()
		log.WithField("clients", s.hub.Len()).Debug("push client disconnected")
	}()

	for {
		select {
		case <-done:
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(s.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				log.Debugf("failed to write push frame: %v", err)
				return
			}
		}
	}
}

func (s *Server) readLoop(conn *websocket.Conn, done chan<- struct{}, log logrus.FieldLogger) {
	defer close(done)
	for {
		typ, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debugf("push client read failed: %v", err)
			}
			return
		}
		if typ == websocket.TextMessage && s.onMessage != nil {
			s.onMessage(msg)
		}
	}
}
