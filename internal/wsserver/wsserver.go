// Package wsserver exposes the mixer to WebSocket clients. A single hub
// goroutine owns the client set; each connection runs a read pump that feeds
// the message handler and a write pump that drains its send queue.
package wsserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vmorsell/app-mixer/pkg/model"
	"go.uber.org/zap"
)

const (
	readBufferSize  = 1024
	writeBufferSize = 1024
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxMessageSize  = 4096
	sendQueueSize   = 64

	DefaultMaxClients = 10

	ErrConnectionLimit = "connection limit exceeded"
)

// MessageHandler answers client messages.
type MessageHandler interface {
	HandleMessage(clientID string, body []byte) any
	Forget(clientID string)
}

type Options struct {
	MaxClients int
}

type outbound struct {
	client  *client
	payload []byte
}

type Server struct {
	logger     *zap.Logger
	handler    MessageHandler
	maxClients int
	upgrader   websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[*client]struct{}

	broadcast  chan []byte
	reply      chan outbound
	register   chan *client
	unregister chan *client
	done       chan struct{}
}

type client struct {
	conn   *websocket.Conn
	id     string
	send   chan []byte
	server *Server
}

func New(logger *zap.Logger, handler MessageHandler, opts Options) *Server {
	maxClients := opts.MaxClients
	if maxClients <= 0 {
		maxClients = DefaultMaxClients
	}
	return &Server{
		logger:     logger,
		handler:    handler,
		maxClients: maxClients,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: writeBufferSize,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan []byte, 16),
		reply:      make(chan outbound, 16),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Run is the hub loop. It returns when ctx is cancelled, after closing every
// client's send queue.
func (s *Server) Run(ctx context.Context) {
	defer s.closeAll()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-s.register:
			s.clientsMu.Lock()
			s.clients[c] = struct{}{}
			count := len(s.clients)
			s.clientsMu.Unlock()
			s.logger.Info("client connected", zap.String("clientID", c.id), zap.Int("clients", count))
			s.deliverAll(s.clientCountMessage(count))

		case c := <-s.unregister:
			s.clientsMu.Lock()
			_, ok := s.clients[c]
			if ok {
				delete(s.clients, c)
				close(c.send)
			}
			count := len(s.clients)
			s.clientsMu.Unlock()
			if ok {
				s.handler.Forget(c.id)
				s.logger.Info("client disconnected", zap.String("clientID", c.id), zap.Int("clients", count))
				s.deliverAll(s.clientCountMessage(count))
			}

		case out := <-s.reply:
			s.deliver(out.client, out.payload)

		case payload := <-s.broadcast:
			s.deliverAll(payload)
		}
	}
}

func (s *Server) closeAll() {
	close(s.done)

	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for c := range s.clients {
		close(c.send)
		delete(s.clients, c)
	}
}

// deliver queues payload for c. A client whose queue is full is dropped.
// Only the hub goroutine calls it.
func (s *Server) deliver(c *client, payload []byte) {
	s.clientsMu.Lock()
	if _, ok := s.clients[c]; !ok {
		s.clientsMu.Unlock()
		return
	}
	select {
	case c.send <- payload:
		s.clientsMu.Unlock()
		return
	default:
	}
	close(c.send)
	delete(s.clients, c)
	s.clientsMu.Unlock()

	s.logger.Warn("dropping slow client", zap.String("clientID", c.id))
	s.handler.Forget(c.id)
}

func (s *Server) deliverAll(payload []byte) {
	s.clientsMu.RLock()
	targets := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		targets = append(targets, c)
	}
	s.clientsMu.RUnlock()

	for _, c := range targets {
		s.deliver(c, payload)
	}
}

func (s *Server) clientCountMessage(count int) []byte {
	payload, _ := json.Marshal(model.ConnectedClientsMessage{
		Type:    model.MessageTypeClients,
		Clients: count,
	})
	return payload
}

// Broadcast sends msg to every connected client.
func (s *Server) Broadcast(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	select {
	case s.broadcast <- payload:
	case <-s.done:
	}
	return nil
}

func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if count := s.ClientCount(); count >= s.maxClients {
		s.logger.Warn("connection limit reached", zap.Int("current", count), zap.Int("max", s.maxClients))
		http.Error(w, fmt.Sprintf("%s: maximum connections reached (%d)", ErrConnectionLimit, s.maxClients), http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	c := &client{
		conn:   conn,
		id:     uuid.NewString(),
		send:   make(chan []byte, sendQueueSize),
		server: s,
	}

	select {
	case s.register <- c:
	case <-s.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.server.unregister <- c:
		case <-c.server.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.server.logger.Warn("websocket error", zap.String("clientID", c.id), zap.Error(err))
			}
			return
		}

		reply := c.server.handler.HandleMessage(c.id, message)
		payload, err := json.Marshal(reply)
		if err != nil {
			c.server.logger.Error("failed to marshal reply", zap.String("clientID", c.id), zap.Error(err))
			continue
		}

		select {
		case c.server.reply <- outbound{client: c, payload: payload}:
		case <-c.server.done:
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
