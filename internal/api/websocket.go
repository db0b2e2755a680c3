package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"codeberg.org/halcyon/robomon/internal/frame"
	"codeberg.org/halcyon/robomon/internal/logger"
	"codeberg.org/halcyon/robomon/internal/state"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Viewers connect from anywhere on the operations network
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleThermalSocket(w http.ResponseWriter, r *http.Request) {
	s.serveSocket(w, r, frame.StreamThermal)
}

func (s *Server) handleTorqueSocket(w http.ResponseWriter, r *http.Request) {
	s.serveSocket(w, r, frame.StreamTorque)
}

// serveSocket attaches the connection to the publisher and pushes one message
// per published snapshot until the viewer goes away.
func (s *Server) serveSocket(w http.ResponseWriter, r *http.Request, stream frame.Stream) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := s.state.Subscribe(stream)
	defer s.state.Unsubscribe(sub.ID)

	logger.Debug().
		Str("stream", string(stream)).
		Str("remote", conn.RemoteAddr().String()).
		Msg("Viewer attached")

	// Drain control and client frames so pings are answered and closes seen
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
		case snap, ok := <-sub.C:
			if !ok {
				return
			}

			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(payloadFor(snap)); err != nil {
				logger.Debug().Err(err).Str("stream", string(stream)).Msg("Viewer detached")
				return
			}
		}
	}
}

func payloadFor(snap state.Snapshot) any {
	if !snap.OK {
		return noData
	}
	if snap.Torque != nil {
		return snap.Torque
	}

	return snap.Thermal
}
