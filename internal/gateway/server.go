// Package gateway exposes the agent over a WebSocket endpoint. Clients send
// chat messages and authorization decisions; the server streams session
// events and final replies back.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wardenhq/warden/internal/bus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 25 * time.Second
	maxPayloadSize = 1 << 20
)

// ClientFrame is a message from client to server.
type ClientFrame struct {
	Type       string `json:"type"` // "chat" or "auth_response"
	Content    string `json:"content,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	Authorized bool   `json:"authorized,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// ServerFrame is a message from server to client.
type ServerFrame struct {
	Type  string     `json:"type"` // "event" or "reply"
	Event *bus.Event `json:"event,omitempty"`
	Reply string     `json:"reply,omitempty"`
}

// Server is the WebSocket gateway.
type Server struct {
	messageBus *bus.MessageBus
	authToken  string
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	httpServer *http.Server
}

// NewServer creates a gateway bound to host:port. An empty authToken
// disables authentication, which is only sensible on loopback.
func NewServer(host string, port int, authToken string, messageBus *bus.MessageBus, logger *slog.Logger) *Server {
	s := &Server{
		messageBus: messageBus,
		authToken:  authToken,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  8192,
			WriteBufferSize: 8192,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: mux,
	}
	return s
}

// Run serves until the context ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gateway listening", "addr", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.authToken != "" && r.URL.Query().Get("token") != s.authToken {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := newClientConn(conn, sessionID, s.messageBus, s.logger)
	client.run()
}

// clientConn owns one WebSocket connection. All writes go through the send
// channel so the event subscription callbacks never write concurrently.
type clientConn struct {
	conn       *websocket.Conn
	sessionID  string
	messageBus *bus.MessageBus
	logger     *slog.Logger
	send       chan *ServerFrame
	closeOnce  sync.Once
	done       chan struct{}
}

func newClientConn(conn *websocket.Conn, sessionID string, messageBus *bus.MessageBus, logger *slog.Logger) *clientConn {
	return &clientConn{
		conn:       conn,
		sessionID:  sessionID,
		messageBus: messageBus,
		logger:     logger,
		send:       make(chan *ServerFrame, 64),
		done:       make(chan struct{}),
	}
}

func (c *clientConn) run() {
	c.messageBus.SubscribeEvents(c.sessionID, func(ev *bus.Event) {
		c.enqueue(&ServerFrame{Type: "event", Event: ev})
	})
	c.messageBus.Subscribe(c.sessionID, func(msg *bus.OutboundMessage) {
		c.enqueue(&ServerFrame{Type: "reply", Reply: msg.Content})
	})

	go c.writePump()
	c.readPump()
}

func (c *clientConn) enqueue(frame *ServerFrame) {
	select {
	case <-c.done:
	case c.send <- frame:
	default:
		// Slow client; drop the frame rather than stall the bus dispatcher.
	}
}

func (c *clientConn) readPump() {
	defer c.close()
	c.conn.SetReadLimit(maxPayloadSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var frame ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Debug("malformed client frame", "session_id", c.sessionID, "error", err)
			continue
		}
		c.dispatch(&frame)
	}
}

func (c *clientConn) dispatch(frame *ClientFrame) {
	switch frame.Type {
	case "chat":
		if frame.Content == "" {
			return
		}
		c.messageBus.PublishInbound(&bus.InboundMessage{
			SessionID: c.sessionID,
			SenderID:  "websocket",
			Content:   frame.Content,
		})
	case "auth_response":
		if frame.RequestID == "" {
			return
		}
		c.messageBus.PublishInbound(&bus.InboundMessage{
			SessionID: c.sessionID,
			SenderID:  "websocket",
			AuthResponse: &bus.AuthResponse{
				RequestID:  frame.RequestID,
				Authorized: frame.Authorized,
				Reason:     frame.Reason,
			},
		})
	default:
		c.logger.Debug("unknown frame type", "session_id", c.sessionID, "type", frame.Type)
	}
}

func (c *clientConn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.close()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *clientConn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
