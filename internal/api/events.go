package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/practice-engine/internal/prefetch"
)

const (
	eventsWriteWait  = 10 * time.Second
	eventsPongWait   = 60 * time.Second
	eventsPingPeriod = 50 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamMessage is one frame of the session events stream
type StreamMessage struct {
	Type  string          `json:"type"`
	Data  string          `json:"data,omitempty"`
	Event *prefetch.Event `json:"event,omitempty"`
}

// handleSessionEvents streams prefetch progress. Clients may send
// {"type":"cancel"} to stop the current run.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	coordinator := s.service.Prefetcher()
	events, unsubscribe := coordinator.Subscribe()
	defer unsubscribe()

	slog.Info("session events websocket connected", "remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Read from WebSocket: control messages and close detection
	go func() {
		defer cancel()
		conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		})
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("websocket read error", "error", err)
				}
				return
			}

			var msg StreamMessage
			if err := json.Unmarshal(message, &msg); err != nil {
				slog.Debug("invalid message format", "error", err)
				continue
			}
			if msg.Type == "cancel" {
				slog.Info("prefetch cancelled by client", "epoch", coordinator.Epoch())
				coordinator.Cancel()
			}
		}
	}()

	if err := s.sendStreamMessage(conn, StreamMessage{Type: "connected", Data: "subscribed to session events"}); err != nil {
		return
	}

	ticker := time.NewTicker(eventsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session events websocket disconnected", "remote_addr", r.RemoteAddr)
			return
		case event, ok := <-events:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(eventsWriteWait))
				return
			}
			if err := s.sendStreamMessage(conn, StreamMessage{Type: "event", Event: &event}); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) sendStreamMessage(conn *websocket.Conn, msg StreamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal stream message", "error", err)
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send stream message", "error", err)
		return err
	}
	return nil
}
