package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/geocontrol/internal/auth"
	"github.com/nerrad567/geocontrol/internal/infrastructure/config"
	"github.com/nerrad567/geocontrol/internal/infrastructure/logging"
	"github.com/nerrad567/geocontrol/internal/infrastructure/metrics"
	"github.com/nerrad567/geocontrol/internal/measurement"
)

// Frame types exchanged on the live stream.
const (
	frameSubscribe   = "subscribe"
	frameUnsubscribe = "unsubscribe"
	framePing        = "ping"
	framePong        = "pong"
	frameAck         = "ack"
	frameEvent       = "event"
	frameError       = "error"
)

// EventMeasurementsStored names the event sent for every ingested batch.
const EventMeasurementsStored = "measurements.stored"

// ScopeAll subscribes to every sensor.
const ScopeAll = "*"

const clientQueueSize = 256

// StoredEvent is the payload of an EventMeasurementsStored frame.
type StoredEvent struct {
	NetworkCode  string                    `json:"networkCode"`
	GatewayMAC   string                    `json:"gatewayMacAddress"`
	SensorMAC    string                    `json:"sensorMacAddress"`
	Count        int                       `json:"count"`
	Measurements []measurement.Measurement `json:"measurements"`
}

func (e StoredEvent) path() string {
	return entityPath(e.NetworkCode, e.GatewayMAC, e.SensorMAC)
}

// streamRequest is a frame sent by a client.
type streamRequest struct {
	Type   string   `json:"type"`
	ID     string   `json:"id,omitempty"`
	Scopes []string `json:"scopes,omitempty"`
}

// streamFrame is a frame sent to a client.
type streamFrame struct {
	Type      string    `json:"type"`
	ID        string    `json:"id,omitempty"`
	Event     string    `json:"event,omitempty"`
	Scopes    []string  `json:"scopes,omitempty"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// scopeMatches reports whether scope covers a network/gateway/sensor path.
// A scope is a path prefix on segment boundaries, or ScopeAll.
func scopeMatches(scope, path string) bool {
	if scope == ScopeAll || scope == path {
		return true
	}
	return strings.HasPrefix(path, scope+"/")
}

// Hub fans stored measurements out to live stream clients.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

// WSClient is one live stream connection.
type WSClient struct {
	hub      *Hub
	conn     *websocket.Conn
	username string
	role     auth.Role

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Int64

	mu     sync.RWMutex
	scopes map[string]struct{}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers are already filtered by the CORS middleware.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// NewHub creates a hub. m may be nil.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		clients: make(map[*WSClient]struct{}),
	}
}

func newWSClient(hub *Hub, conn *websocket.Conn, username string, role auth.Role) *WSClient {
	return &WSClient{
		hub:      hub,
		conn:     conn,
		username: username,
		role:     role,
		send:     make(chan []byte, clientQueueSize),
		done:     make(chan struct{}),
		scopes:   make(map[string]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*WSClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close()
		if h.metrics != nil {
			h.metrics.ClientDisconnected()
		}
	}
}

// Register adds a client.
func (h *Hub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.ClientConnected()
	}
	h.logger.Debug("websocket client connected", "username", c.username, "role", c.role, "clients", n)
}

// Unregister removes a client. Calling it twice is harmless.
func (h *Hub) Unregister(c *WSClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.close()
	if h.metrics != nil {
		h.metrics.ClientDisconnected()
	}
	h.logger.Debug("websocket client disconnected",
		"username", c.username,
		"dropped", c.dropped.Load(),
		"clients", n,
	)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish delivers ev to every client with a matching scope. The frame is
// encoded once and shared.
func (h *Hub) Publish(ev StoredEvent) {
	data, err := json.Marshal(streamFrame{
		Type:      frameEvent,
		Event:     EventMeasurementsStored,
		Data:      ev,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		h.logger.Error("encoding stored event", "error", err)
		return
	}

	path := ev.path()
	h.mu.RLock()
	recipients := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		recipients = append(recipients, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range recipients {
		if c.wants(path) && c.enqueue(data) {
			sent++
		}
	}
	if sent > 0 {
		h.logger.Debug("stored event sent", "sensor", path, "recipients", sent)
	}
}

// Name identifies the hub as a measurement sink.
func (h *Hub) Name() string { return "websocket" }

// Write publishes a stored batch to subscribed clients.
func (h *Hub) Write(_ context.Context, b measurement.Batch) error {
	h.Publish(StoredEvent{
		NetworkCode:  b.Sensor.NetworkCode,
		GatewayMAC:   b.Sensor.GatewayMAC,
		SensorMAC:    b.Sensor.SensorMAC,
		Count:        len(b.Measurements),
		Measurements: b.Measurements,
	})
	return nil
}

// handleWebSocket upgrades to the live stream. Browsers cannot set headers on
// the handshake, so the bearer token travels as ?token=.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeUnauthorized(w, "token query parameter is required")
		return
	}
	claims, err := auth.ParseToken(token, s.secCfg.JWT.Secret)
	if err != nil {
		writeUnauthorized(w, "invalid or expired token")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "request_id", requestIDFrom(r.Context()))
		return
	}

	c := newWSClient(s.hub, conn, claims.Subject, claims.Role)
	s.hub.Register(c)

	go c.writeLoop(s.wsCfg)
	go c.readLoop(s.wsCfg)
}

// close stops the write loop and the connection. Safe to call repeatedly.
func (c *WSClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// enqueue queues data without blocking. A full queue drops the frame.
func (c *WSClient) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}

func (c *WSClient) wants(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for scope := range c.scopes {
		if scopeMatches(scope, path) {
			return true
		}
	}
	return false
}

func (c *WSClient) reply(f streamFrame) {
	f.Timestamp = time.Now().UTC()
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (c *WSClient) readLoop(cfg config.WebSocketConfig) {
	defer c.hub.Unregister(c)

	wait := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(wait)) }

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	extend() //nolint:errcheck // a failed deadline surfaces as a read error
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "username", c.username, "error", err)
			}
			return
		}
		// Application frames count as liveness too.
		extend() //nolint:errcheck // a failed deadline surfaces as a read error
		c.handle(data)
	}
}

func (c *WSClient) writeLoop(cfg config.WebSocketConfig) {
	ping := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	defer ping.Stop()

	writeWait := time.Duration(cfg.PongTimeout) * time.Second
	write := func(kind int, data []byte) error {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // surfaced by the write
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case <-c.done:
			write(websocket.CloseMessage, nil) //nolint:errcheck // connection is going away
			return
		case data := <-c.send:
			if err := write(websocket.TextMessage, data); err != nil {
				c.hub.Unregister(c)
				return
			}
		case <-ping.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				c.hub.Unregister(c)
				return
			}
		}
	}
}

func (c *WSClient) handle(data []byte) {
	var req streamRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply(streamFrame{Type: frameError, Error: "invalid JSON frame"})
		return
	}

	switch req.Type {
	case frameSubscribe, frameUnsubscribe:
		scopes := cleanScopes(req.Scopes)
		if len(scopes) == 0 {
			c.reply(streamFrame{Type: frameError, ID: req.ID, Error: "at least one scope is required"})
			return
		}
		c.mu.Lock()
		for _, s := range scopes {
			if req.Type == frameSubscribe {
				c.scopes[s] = struct{}{}
			} else {
				delete(c.scopes, s)
			}
		}
		c.mu.Unlock()
		c.hub.logger.Debug("websocket "+req.Type, "username", c.username, "scopes", scopes)
		c.reply(streamFrame{Type: frameAck, ID: req.ID, Scopes: scopes})
	case framePing:
		c.reply(streamFrame{Type: framePong, ID: req.ID})
	default:
		c.reply(streamFrame{Type: frameError, ID: req.ID, Error: "unknown frame type: " + req.Type})
	}
}

// cleanScopes trims scopes and drops empty ones and trailing slashes.
func cleanScopes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.Trim(strings.TrimSpace(s), "/")
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
